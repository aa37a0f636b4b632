package fiber_handle

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

// HealthCheckConfig Path 为负载均衡探测路径，不经过鉴权与业务日志
type HealthCheckConfig struct {
	Path    string
	AppName string
}

func HealthCheck(config HealthCheckConfig) fiber.Handler {
	if config.Path == "" {
		config.Path = "/health"
	}
	return func(c *fiber.Ctx) error {
		if c.Path() != config.Path || c.Method() != fiber.MethodGet {
			return c.Next()
		}
		return c.JSON(fiber.Map{
			"status":    "ok",
			"service":   config.AppName,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	}
}
