package app

import (
	"context"
	"time"

	"pipelinehealth/pkg/clock"
	"pipelinehealth/pkg/core/logger"
	"pipelinehealth/pkg/live"
	"pipelinehealth/pkg/lock"
	"pipelinehealth/system/alert/api/dto"
	"pipelinehealth/system/alert/internal/dao"
	"pipelinehealth/system/alert/internal/service"

	"gorm.io/gorm"
)

// Deps 告警组件依赖，Locks 为空时不加锁
type Deps struct {
	DB        *gorm.DB
	Log       *logger.Log
	Source    service.PipelineSource
	Notifier  service.Notifier
	Locks     lock.LockManager
	Publisher live.Publisher
	Clock     clock.Clock
	Observe   service.Observer
}

// App 告警组件应用层
type App struct {
	Evaluator    *service.Evaluator
	AlertService *service.AlertService
}

func NewApp(deps Deps) *App {
	log := deps.Log.WithEntryName("AlertApp")
	if deps.Clock == nil {
		deps.Clock = clock.RealClock{}
	}

	alertDao := dao.NewAlertDao(deps.DB, log)
	historyDao := dao.NewHistoryDao(deps.DB, log)
	return &App{
		Evaluator: service.NewEvaluator(service.EvaluatorDeps{
			Alerts:    alertDao,
			History:   historyDao,
			Source:    deps.Source,
			Sender:    deps.Notifier,
			Locks:     deps.Locks,
			Publisher: deps.Publisher,
			Clock:     deps.Clock,
			Observe:   deps.Observe,
			Log:       log,
		}),
		AlertService: service.NewAlertService(deps.DB, alertDao, historyDao, deps.Source, deps.Notifier, deps.Clock, log),
	}
}

// EvaluateAll 定时任务入口
func (a *App) EvaluateAll(ctx context.Context) ([]dto.Evaluation, error) {
	return a.Evaluator.EvaluateAll(ctx)
}

func (a *App) Cleanup(ctx context.Context, cutoff time.Time) (int64, error) {
	return a.AlertService.Cleanup(ctx, cutoff)
}
