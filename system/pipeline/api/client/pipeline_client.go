package client

import (
	"context"
	"time"

	"pipelinehealth/system/pipeline/api/dto"
	"pipelinehealth/system/pipeline/internal/app"
)

// PipelineClient 流水线组件对外客户端，指标与告警组件通过它读取构建数据
type PipelineClient struct {
	app *app.App
}

func NewPipelineClient(app *app.App) *PipelineClient {
	return &PipelineClient{app: app}
}

func (c *PipelineClient) ListPipelines(ctx context.Context) ([]*dto.PipelineDTO, error) {
	return c.app.ListPipelines(ctx)
}

func (c *PipelineClient) GetPipeline(ctx context.Context, id int64) (*dto.PipelineDTO, error) {
	return c.app.GetPipeline(ctx, id)
}

// BuildsCreatedBetween 闭区间 [from, to]
func (c *PipelineClient) BuildsCreatedBetween(ctx context.Context, pipelineID int64, from, to time.Time) ([]*dto.BuildDTO, error) {
	return c.app.BuildsCreatedBetween(ctx, pipelineID, from, to)
}

// LatestBuild 没有构建时返回 nil, nil
func (c *PipelineClient) LatestBuild(ctx context.Context, pipelineID int64) (*dto.BuildDTO, error) {
	return c.app.LatestBuild(ctx, pipelineID)
}

func (c *PipelineClient) CountBuilds(ctx context.Context, scope dto.BuildScope, status dto.BuildStatus) (int64, error) {
	return c.app.CountBuilds(ctx, scope, status)
}

func (c *PipelineClient) HasBuildSince(ctx context.Context, scope dto.BuildScope, status dto.BuildStatus, since time.Time) (bool, error) {
	return c.app.HasBuildSince(ctx, scope, status, since)
}

func (c *PipelineClient) DurationStatsSince(ctx context.Context, scope dto.BuildScope, since time.Time) (dto.DurationStats, error) {
	return c.app.DurationStatsSince(ctx, scope, since)
}

func (c *PipelineClient) OutcomeStatsSince(ctx context.Context, scope dto.BuildScope, since time.Time) (dto.OutcomeStats, error) {
	return c.app.OutcomeStatsSince(ctx, scope, since)
}

func (c *PipelineClient) Overview(ctx context.Context, recent int) (*dto.BuildOverview, error) {
	return c.app.Overview(ctx, recent)
}

func (c *PipelineClient) RecentBuilds(ctx context.Context, limit int) ([]dto.BuildWithPipeline, error) {
	return c.app.RecentBuilds(ctx, limit)
}

func (c *PipelineClient) RunningBuilds(ctx context.Context) ([]dto.BuildWithPipeline, error) {
	return c.app.RunningBuilds(ctx)
}

func (c *PipelineClient) RecentDurations(ctx context.Context, scope dto.BuildScope, limit int) ([]dto.DurationPoint, error) {
	return c.app.RecentDurations(ctx, scope, limit)
}

func (c *PipelineClient) FailedBuilds(ctx context.Context, scope dto.BuildScope, limit int) ([]dto.FailedBuild, error) {
	return c.app.FailedBuilds(ctx, scope, limit)
}

func (c *PipelineClient) StageFailures(ctx context.Context, scope dto.BuildScope, limit int) ([]dto.StageFailure, error) {
	return c.app.StageFailures(ctx, scope, limit)
}

func (c *PipelineClient) Comparison(ctx context.Context) ([]dto.PipelineBuildStats, error) {
	return c.app.Comparison(ctx)
}

func (c *PipelineClient) WindowSummary(ctx context.Context, since time.Time) (dto.WindowSummary, error) {
	return c.app.WindowSummary(ctx, since)
}

func (c *PipelineClient) PipelineStatuses(ctx context.Context) ([]dto.StatusCount, error) {
	return c.app.PipelineStatuses(ctx)
}

// RefreshHealth 刷新全部流水线的健康状态
func (c *PipelineClient) RefreshHealth(ctx context.Context) error {
	return c.app.RefreshAll(ctx)
}
