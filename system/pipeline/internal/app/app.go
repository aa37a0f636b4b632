package app

import (
	"context"
	"time"

	"pipelinehealth/pkg/clock"
	"pipelinehealth/pkg/core/config"
	errorc "pipelinehealth/pkg/core/err"
	"pipelinehealth/pkg/core/logger"
	"pipelinehealth/pkg/live"
	"pipelinehealth/system/pipeline/api/dto"
	"pipelinehealth/system/pipeline/internal/dao"
	"pipelinehealth/system/pipeline/internal/service"

	"gorm.io/gorm"
)

// Deps 流水线组件依赖的基础设施
type Deps struct {
	DB        *gorm.DB
	Log       *logger.Log
	Publisher live.Publisher
	Clock     clock.Clock
	Ingest    config.IngestConfig
	OnWebhook service.WebhookObserver
}

// App 流水线组件应用层
type App struct {
	PipelineService *service.PipelineService
	BuildService    *service.BuildService
	HealthService   *service.HealthService
	WebhookService  *service.WebhookService

	pipelineDao *dao.PipelineDao
	buildDao    *dao.BuildDao
	stageDao    *dao.StageDao
	log         *logger.Log
	err         *errorc.ErrorBuilder
}

func NewApp(deps Deps) *App {
	log := deps.Log.WithEntryName("PipelineApp")
	if deps.Clock == nil {
		deps.Clock = clock.RealClock{}
	}
	if deps.Publisher == nil {
		deps.Publisher = live.NopPublisher{}
	}

	pipelineDao := dao.NewPipelineDao(deps.DB, log)
	buildDao := dao.NewBuildDao(deps.DB, log)
	stageDao := dao.NewStageDao(deps.DB, log)

	return &App{
		PipelineService: service.NewPipelineService(deps.DB, pipelineDao, buildDao, stageDao, log),
		BuildService:    service.NewBuildService(buildDao, stageDao, pipelineDao, deps.Publisher, deps.Clock, log),
		HealthService:   service.NewHealthService(pipelineDao, buildDao, deps.Publisher, deps.Clock, log),
		WebhookService:  service.NewWebhookService(deps.DB, pipelineDao, buildDao, stageDao, deps.Publisher, deps.Ingest, deps.OnWebhook, log),
		pipelineDao:     pipelineDao,
		buildDao:        buildDao,
		stageDao:        stageDao,
		log:             log,
		err:             errorc.NewErrorBuilder("PipelineApp"),
	}
}

func (a *App) ListPipelines(ctx context.Context) ([]*dto.PipelineDTO, error) {
	pipelines, err := a.PipelineService.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*dto.PipelineDTO, 0, len(pipelines))
	for _, p := range pipelines {
		out = append(out, p.ToDTO())
	}
	return out, nil
}

func (a *App) GetPipeline(ctx context.Context, id int64) (*dto.PipelineDTO, error) {
	p, err := a.PipelineService.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return p.ToDTO(), nil
}

func (a *App) BuildsCreatedBetween(ctx context.Context, pipelineID int64, from, to time.Time) ([]*dto.BuildDTO, error) {
	builds, err := a.buildDao.FindCreatedBetween(ctx, pipelineID, from, to)
	if err != nil {
		return nil, err
	}
	out := make([]*dto.BuildDTO, 0, len(builds))
	for _, b := range builds {
		out = append(out, b.ToDTO())
	}
	return out, nil
}

// LatestBuild 没有构建时返回 nil
func (a *App) LatestBuild(ctx context.Context, pipelineID int64) (*dto.BuildDTO, error) {
	b, err := a.buildDao.Latest(ctx, pipelineID)
	if err != nil || b == nil {
		return nil, err
	}
	return b.ToDTO(), nil
}

func (a *App) CountBuilds(ctx context.Context, scope dto.BuildScope, status dto.BuildStatus) (int64, error) {
	return a.buildDao.CountByStatus(ctx, scope, status)
}

func (a *App) HasBuildSince(ctx context.Context, scope dto.BuildScope, status dto.BuildStatus, since time.Time) (bool, error) {
	return a.buildDao.ExistsWithStatusSince(ctx, scope, status, since)
}

func (a *App) DurationStatsSince(ctx context.Context, scope dto.BuildScope, since time.Time) (dto.DurationStats, error) {
	return a.buildDao.DurationStatsSince(ctx, scope, since)
}

func (a *App) OutcomeStatsSince(ctx context.Context, scope dto.BuildScope, since time.Time) (dto.OutcomeStats, error) {
	return a.buildDao.OutcomeStatsSince(ctx, scope, since)
}

func (a *App) RefreshAll(ctx context.Context) error {
	return a.HealthService.RefreshAll(ctx)
}
