package router

import (
	"pipelinehealth/app"
	"pipelinehealth/pkg/core/logger"
	"pipelinehealth/system/alert"
	"pipelinehealth/system/metric"
	"pipelinehealth/system/pipeline"
	"pipelinehealth/system/user"

	"github.com/gofiber/fiber/v2"
)

// Register 负责集中注册所有 HTTP 路由。
//   - 只依赖 app.App 和 fiber.App。
//   - 不包含业务逻辑，只做分组与路由绑定。
//   - 鉴权由各组件在注册时按路由声明。
func Register(a *app.App, f *fiber.App) {
	in := a.Infra
	api := f.Group("/api",
		in.Metrics.APIMonitor(),
		logger.NewApiLogger(logger.Config{Logger: in.Logger}),
	)

	// 注册、登录与当前用户
	user.RegisterRoutes(a.UserModule, api, in.Auth)

	// 流水线、构建与 CI 回调
	pipeline.RegisterRoutes(a.PipelineModule, api, in.Auth)

	metric.RegisterRoutes(a.MetricModule, api, in.Auth)

	alert.RegisterRoutes(a.AlertModule, api, in.Auth)

	// 健康检查对外公开
	a.Health.RegisterRoutes(api)
}
