package fiber_handle

import (
	"context"
	"strings"

	"pipelinehealth/pkg/core/consts"
	"pipelinehealth/pkg/core/tracer"

	"github.com/gofiber/fiber/v2"
)

type TracerConfig struct {
	Tracer  tracer.Tracer
	AppName string
}

// NewApiTracer 为每个请求开启追踪，上游带 X-Trace-Context 时沿用其链路
func NewApiTracer(config TracerConfig) fiber.Handler {
	return func(c *fiber.Ctx) error {
		name := strings.TrimPrefix(c.Path(), "/")
		ctx := c.UserContext()

		var (
			traceID string
			finish  func()
		)
		parentTrace := c.Get(consts.TraceHeaderName)
		if len(parentTrace) == 0 {
			ctx, traceID, finish = config.Tracer.StartTrace(ctx, name)
		} else {
			var err error
			ctx, traceID, finish, err = config.Tracer.StartTraceWithParent(ctx, name, parentTrace)
			if err != nil {
				// 父追踪上下文无法解析时重新开启
				ctx, traceID, finish = config.Tracer.StartTrace(ctx, name)
			}
		}
		defer finish()

		ctx = context.WithValue(ctx, consts.TraceKey, traceID)
		c.SetUserContext(ctx)
		c.Locals(consts.TraceKey, traceID)
		return c.Next()
	}
}
