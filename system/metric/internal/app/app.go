package app

import (
	"context"
	"time"

	"pipelinehealth/pkg/clock"
	"pipelinehealth/pkg/core/logger"
	"pipelinehealth/pkg/live"
	"pipelinehealth/system/metric/api/dto"
	"pipelinehealth/system/metric/internal/dao"
	"pipelinehealth/system/metric/internal/service"

	"github.com/go-redis/cache/v9"
	"gorm.io/gorm"
)

// Deps 指标组件依赖，Cache 为空时不缓存
type Deps struct {
	DB        *gorm.DB
	Log       *logger.Log
	Source    service.PipelineSource
	Publisher live.Publisher
	Clock     clock.Clock
	Cache     *cache.Cache
}

// App 指标组件应用层
type App struct {
	Aggregator    *service.Aggregator
	MetricService *service.MetricService

	metricDao *dao.MetricDao
	log       *logger.Log
}

func NewApp(deps Deps) *App {
	log := deps.Log.WithEntryName("MetricApp")
	if deps.Clock == nil {
		deps.Clock = clock.RealClock{}
	}
	if deps.Publisher == nil {
		deps.Publisher = live.NopPublisher{}
	}

	metricDao := dao.NewMetricDao(deps.DB, log)
	return &App{
		Aggregator:    service.NewAggregator(deps.Source, metricDao, deps.Publisher, deps.Clock, log),
		MetricService: service.NewMetricService(metricDao, deps.Source, deps.Cache, deps.Clock, log),
		metricDao:     metricDao,
		log:           log,
	}
}

// ComputeAll 定时任务入口
func (a *App) ComputeAll(ctx context.Context, period dto.Period) error {
	return a.Aggregator.ComputeAll(ctx, period)
}

func (a *App) Cleanup(ctx context.Context, cutoff time.Time) (int64, error) {
	return a.MetricService.Cleanup(ctx, cutoff)
}
