package alert

import (
	"pipelinehealth/pkg/core/logger"
	"pipelinehealth/system/alert/api/client"
	internalapp "pipelinehealth/system/alert/internal/app"
	"pipelinehealth/system/alert/internal/service"
)

type Deps = internalapp.Deps

// PipelineSource 由流水线组件客户端实现
type PipelineSource = service.PipelineSource

// Notifier 由 notifier.Dispatcher 实现
type Notifier = service.Notifier

// Module 告警组件模块
type Module struct {
	internalApp *internalapp.App
	Client      *client.AlertClient
	log         *logger.Log
}

func NewModule(deps Deps) *Module {
	app := internalapp.NewApp(deps)
	return &Module{
		internalApp: app,
		Client:      client.NewAlertClient(app),
		log:         deps.Log.WithEntryName("AlertModule"),
	}
}
