package tracer

import (
	"context"

	"pipelinehealth/pkg/core/consts"

	jsoniter "github.com/json-iterator/go"
	"github.com/openzipkin/zipkin-go"
	"github.com/openzipkin/zipkin-go/model"
)

// ZipkinTracer span 名为 {appName}.{name}，如 pipelinehealth.job.alerts
type ZipkinTracer struct {
	tracer  *zipkin.Tracer
	appName string
}

func NewZipkinTracer(tracer *zipkin.Tracer, appName string) *ZipkinTracer {
	return &ZipkinTracer{
		tracer:  tracer,
		appName: appName,
	}
}

func (t *ZipkinTracer) StartTrace(ctx context.Context, name string) (context.Context, string, func()) {
	span, newCtx := t.tracer.StartSpanFromContext(ctx, t.appName+"."+name)
	traceID := span.Context().TraceID.String()
	return context.WithValue(newCtx, consts.TraceKey, traceID), traceID, span.Finish
}

func (t *ZipkinTracer) StartTraceWithParent(ctx context.Context, name string, parentTraceStr string) (context.Context, string, func(), error) {
	if parentTraceStr == "" {
		newCtx, traceID, finish := t.StartTrace(ctx, name)
		return newCtx, traceID, finish, nil
	}
	spanContext := new(model.SpanContext)
	if err := jsoniter.UnmarshalFromString(parentTraceStr, spanContext); err != nil {
		return ctx, "", func() {}, err
	}

	span := t.tracer.StartSpan(t.appName+"."+name, zipkin.Parent(*spanContext))
	newCtx := zipkin.NewContext(ctx, span)
	traceID := span.Context().TraceID.String()
	return context.WithValue(newCtx, consts.TraceKey, traceID), traceID, span.Finish, nil
}
