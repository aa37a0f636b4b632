package start

import (
	"fmt"

	"pipelinehealth/pkg/core/fiber_handle"
	"pipelinehealth/pkg/core/logger"
	"pipelinehealth/pkg/core/tracer"

	"github.com/gofiber/fiber/v2"
	recover2 "github.com/gofiber/fiber/v2/middleware/recover"
)

func GetApp(cfg Config, log *logger.Log, tr tracer.Tracer) *fiber.App {
	app := fiber.New(
		fiber.Config{
			AppName:      cfg.AppName,
			BodyLimit:    10 * 1024 * 1024,
			ErrorHandler: fiber_handle.ErrHandler,
		})
	app.Use(fiber_handle.Cors(cfg.Cors))
	app.Use(recover2.New(recover2.Config{
		EnableStackTrace: true,
		StackTraceHandler: func(c *fiber.Ctx, e interface{}) {
			log.WithField("path", c.Path()).Error(fmt.Sprintf("请求处理崩溃: %+v", e))
		},
	}))
	app.Use(fiber_handle.HealthCheck(fiber_handle.HealthCheckConfig{Path: "/health", AppName: cfg.AppName}))
	app.Use(fiber_handle.NewApiTracer(fiber_handle.TracerConfig{Tracer: tr, AppName: cfg.AppName}))
	return app
}
