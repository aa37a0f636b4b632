package metric

import (
	"pipelinehealth/pkg/core/security"
	controller "pipelinehealth/system/metric/external/http"

	"github.com/gofiber/fiber/v2"
)

// RegisterRoutes 注册看板统计接口与流水线指标接口
func RegisterRoutes(m *Module, api fiber.Router, auth *security.Auth) {
	controller.NewMetricController(m.internalApp, auth, m.log).RegisterRoutes(api)
}
