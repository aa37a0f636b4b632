package metric

import (
	"pipelinehealth/pkg/core/logger"
	"pipelinehealth/system/metric/api/client"
	internalapp "pipelinehealth/system/metric/internal/app"
	"pipelinehealth/system/metric/internal/service"
)

type Deps = internalapp.Deps

// PipelineSource 由流水线组件客户端实现
type PipelineSource = service.PipelineSource

// Module 指标组件模块
type Module struct {
	internalApp *internalapp.App
	Client      *client.MetricClient
	log         *logger.Log
}

func NewModule(deps Deps) *Module {
	app := internalapp.NewApp(deps)
	return &Module{
		internalApp: app,
		Client:      client.NewMetricClient(app),
		log:         deps.Log.WithEntryName("MetricModule"),
	}
}
