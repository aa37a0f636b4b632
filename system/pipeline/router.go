package pipeline

import (
	"pipelinehealth/pkg/core/security"
	controller "pipelinehealth/system/pipeline/external/http"

	"github.com/gofiber/fiber/v2"
)

// RegisterRoutes 注册流水线、构建与回调接口
func RegisterRoutes(m *Module, api fiber.Router, auth *security.Auth) {
	// 回调接口不走登录校验，由签名或令牌保护
	controller.NewWebhookController(m.internalApp, m.log).RegisterRoutes(api)

	controller.NewPipelineController(m.internalApp, auth, m.log).RegisterRoutes(api)
	controller.NewBuildController(m.internalApp, auth, m.log).RegisterRoutes(api)
}
