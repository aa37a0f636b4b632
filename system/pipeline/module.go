package pipeline

import (
	"pipelinehealth/pkg/core/logger"
	"pipelinehealth/system/pipeline/api/client"
	internalapp "pipelinehealth/system/pipeline/internal/app"
	"pipelinehealth/system/pipeline/internal/service"
)

// Deps 流水线组件依赖
type Deps = internalapp.Deps

// DeleteHook 删除流水线时在同一事务内执行
type DeleteHook = service.DeleteHook

// MetricReader 列表接口读取最新指标
type MetricReader = service.MetricReader

// Module 流水线组件模块
type Module struct {
	internalApp *internalapp.App
	Client      *client.PipelineClient
	log         *logger.Log
}

func NewModule(deps Deps) *Module {
	app := internalapp.NewApp(deps)
	return &Module{
		internalApp: app,
		Client:      client.NewPipelineClient(app),
		log:         deps.Log.WithEntryName("PipelineModule"),
	}
}

// OnDelete 其他组件注册随流水线一起删除的数据
func (m *Module) OnDelete(hook DeleteHook) {
	m.internalApp.PipelineService.OnDelete(hook)
}

func (m *Module) SetMetricReader(reader MetricReader) {
	m.internalApp.PipelineService.SetMetricReader(reader)
}
