// Package app 组合根：按依赖顺序创建各业务组件并完成组件间的挂接
package app

import (
	"pipelinehealth/base"
	"pipelinehealth/pkg/health"
	"pipelinehealth/system/alert"
	"pipelinehealth/system/metric"
	"pipelinehealth/system/pipeline"
	"pipelinehealth/system/user"
)

// App 业务组件集合，路由与定时任务只通过这里访问组件
type App struct {
	Infra *base.Infra

	UserModule     *user.Module
	PipelineModule *pipeline.Module
	MetricModule   *metric.Module
	AlertModule    *alert.Module
	Health         *health.Checker
}

func NewApp(in *base.Infra) *App {
	a := &App{Infra: in}

	a.UserModule = user.NewModule(user.Deps{
		DB:   in.DB,
		Log:  in.Logger,
		Auth: in.Auth,
	})

	a.PipelineModule = pipeline.NewModule(pipeline.Deps{
		DB:        in.DB,
		Log:       in.Logger,
		Publisher: in.Publisher,
		Ingest:    in.Config.Ingest,
		OnWebhook: in.Metrics.ObserveWebhook,
		Clock:     in.Clock,
	})

	a.MetricModule = metric.NewModule(metric.Deps{
		DB:        in.DB,
		Log:       in.Logger,
		Source:    a.PipelineModule.Client,
		Publisher: in.Publisher,
		Cache:     in.Cache,
		Clock:     in.Clock,
	})

	a.AlertModule = alert.NewModule(alert.Deps{
		DB:        in.DB,
		Log:       in.Logger,
		Source:    a.PipelineModule.Client,
		Notifier:  in.Notifier,
		Locks:     in.Locks,
		Publisher: in.Publisher,
		Observe:   in.Metrics.ObserveAlert,
		Clock:     in.Clock,
	})

	// 删除流水线时指标与告警在同一事务内清理
	a.PipelineModule.OnDelete(a.MetricModule.Client.DeleteByPipeline)
	a.PipelineModule.OnDelete(a.AlertModule.Client.DeleteByPipeline)
	a.PipelineModule.SetMetricReader(a.MetricModule.Client)

	a.Health = health.NewChecker(health.Options{
		DB:    in.DB,
		Redis: in.RDB,
		Live:  in.Hub,
		Env:   in.ENV,
		Log:   in.Logger,
	})
	return a
}
