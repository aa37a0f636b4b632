package tracer

import (
	"context"

	"pipelinehealth/pkg/core/consts"

	uuid "github.com/satori/go.uuid"
)

// Tracer 请求与定时任务共用的追踪接口，返回的 func 结束当前 span
type Tracer interface {
	StartTrace(ctx context.Context, name string) (context.Context, string, func())

	// StartTraceWithParent parentTraceID 来自上游请求头 X-Trace-Context
	StartTraceWithParent(ctx context.Context, name string, parentTraceID string) (context.Context, string, func(), error)
}

// SimpleTracer 未配置 zipkin 时使用，只生成并透传 TraceID
type SimpleTracer struct{}

func NewSimpleTracer() *SimpleTracer {
	return &SimpleTracer{}
}

func (t *SimpleTracer) StartTrace(ctx context.Context, name string) (context.Context, string, func()) {
	traceID := uuid.NewV4().String()
	return context.WithValue(ctx, consts.TraceKey, traceID), traceID, func() {}
}

func (t *SimpleTracer) StartTraceWithParent(ctx context.Context, name string, parentTraceID string) (context.Context, string, func(), error) {
	if parentTraceID == "" {
		newCtx, traceID, done := t.StartTrace(ctx, name)
		return newCtx, traceID, done, nil
	}
	return context.WithValue(ctx, consts.TraceKey, parentTraceID), parentTraceID, func() {}, nil
}
