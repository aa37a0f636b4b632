package health

import (
	"pipelinehealth/pkg/core/result"
	"pipelinehealth/pkg/core/util"

	"github.com/gofiber/fiber/v2"
)

// RegisterRoutes 健康检查接口无需鉴权，不健康时返回 503
func (c *Checker) RegisterRoutes(api fiber.Router) {
	router := api.Group("/health")
	router.Get("/", c.handleBasic)
	router.Get("/detailed", c.handleDetailed)
	router.Get("/database", c.handleDatabase)
	router.Get("/ready", c.handleReady)
	router.Get("/live", c.handleLive)
}

func (c *Checker) handleBasic(ctx *fiber.Ctx) error {
	return result.OK(ctx, c.Basic())
}

func (c *Checker) handleDetailed(ctx *fiber.Ctx) error {
	d := c.Detailed(util.Context(ctx))
	if d.Overall != StatusHealthy {
		ctx.Status(fiber.StatusServiceUnavailable)
	}
	return ctx.JSON(fiber.Map{"status": ctx.Response().StatusCode(), "data": d})
}

func (c *Checker) handleDatabase(ctx *fiber.Ctx) error {
	db := c.Database(util.Context(ctx))
	if db.Status != StatusHealthy {
		return ctx.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status":  fiber.StatusServiceUnavailable,
			"message": "Database connection failed",
			"data":    db,
		})
	}
	return result.OK(ctx, fiber.Map{"database": db, "timestamp": c.timestamp()})
}

func (c *Checker) handleReady(ctx *fiber.Ctx) error {
	ready, checks := c.Ready(util.Context(ctx))
	status := "ready"
	code := fiber.StatusOK
	if !ready {
		status = "not ready"
		code = fiber.StatusServiceUnavailable
	}
	return ctx.Status(code).JSON(fiber.Map{
		"status": code,
		"data":   fiber.Map{"status": status, "checks": checks, "timestamp": c.timestamp()},
	})
}

func (c *Checker) handleLive(ctx *fiber.Ctx) error {
	return result.OK(ctx, fiber.Map{
		"status":    "alive",
		"timestamp": c.timestamp(),
		"uptime":    c.uptime(),
	})
}
