package util

import (
	"context"

	"pipelinehealth/pkg/core/consts"

	"github.com/gofiber/fiber/v2"
	uuid "github.com/satori/go.uuid"
)

func Context(c *fiber.Ctx) context.Context {
	ctx := c.UserContext()
	if ctx.Value(consts.TraceKey) == nil {
		return context.WithValue(ctx, consts.TraceKey, uuid.NewV4().String())
	}
	return ctx
}

// DetachContext 异步处理时保留追踪 ID，脱离请求生命周期
func DetachContext(ctx context.Context) context.Context {
	detached := context.Background()
	if traceID, ok := ctx.Value(consts.TraceKey).(string); ok {
		detached = context.WithValue(detached, consts.TraceKey, traceID)
	}
	return detached
}
