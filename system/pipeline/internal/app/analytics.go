package app

import (
	"context"
	"time"

	"pipelinehealth/system/pipeline/api/dto"
	"pipelinehealth/system/pipeline/internal/model"
)

// Overview 看板概览所需的全部计数
func (a *App) Overview(ctx context.Context, recent int) (*dto.BuildOverview, error) {
	var (
		out dto.BuildOverview
		err error
		all dto.BuildScope
	)
	if out.TotalPipelines, err = a.pipelineDao.CountAll(ctx); err != nil {
		return nil, err
	}
	if out.TotalBuilds, err = a.buildDao.Count(ctx, all); err != nil {
		return nil, err
	}
	if out.RunningBuilds, err = a.buildDao.CountByStatus(ctx, all, dto.BuildStatusRunning); err != nil {
		return nil, err
	}
	if out.FailedBuilds, err = a.buildDao.CountByStatus(ctx, all, dto.BuildStatusFailed); err != nil {
		return nil, err
	}
	if out.SuccessBuilds, err = a.buildDao.CountByStatus(ctx, all, dto.BuildStatusSuccess); err != nil {
		return nil, err
	}
	if out.PipelineStatuses, err = a.pipelineDao.CountByStatus(ctx); err != nil {
		return nil, err
	}
	if out.DurationAverage, out.DurationMinimum, out.DurationMaximum, err = a.buildDao.DurationRange(ctx); err != nil {
		return nil, err
	}
	if out.RecentBuilds, err = a.RecentBuilds(ctx, recent); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *App) RecentBuilds(ctx context.Context, limit int) ([]dto.BuildWithPipeline, error) {
	builds, err := a.buildDao.FindRecent(ctx, 0, limit)
	if err != nil {
		return nil, err
	}
	return withPipeline(builds), nil
}

// RunningBuilds 按开始时间升序
func (a *App) RunningBuilds(ctx context.Context) ([]dto.BuildWithPipeline, error) {
	builds, err := a.buildDao.FindByStatus(ctx, dto.BuildStatusRunning)
	if err != nil {
		return nil, err
	}
	return withPipeline(builds), nil
}

func (a *App) RecentDurations(ctx context.Context, scope dto.BuildScope, limit int) ([]dto.DurationPoint, error) {
	return a.buildDao.RecentDurations(ctx, scope, limit)
}

func (a *App) FailedBuilds(ctx context.Context, scope dto.BuildScope, limit int) ([]dto.FailedBuild, error) {
	builds, err := a.buildDao.FindFailed(ctx, scope, limit)
	if err != nil {
		return nil, err
	}
	out := make([]dto.FailedBuild, 0, len(builds))
	for _, b := range builds {
		fb := dto.FailedBuild{BuildWithPipeline: b.WithPipeline(), FailedStages: []dto.StageLog{}}
		for _, st := range b.Stages {
			fb.FailedStages = append(fb.FailedStages, dto.StageLog{Name: st.Name, Logs: st.Logs})
		}
		out = append(out, fb)
	}
	return out, nil
}

func (a *App) StageFailures(ctx context.Context, scope dto.BuildScope, limit int) ([]dto.StageFailure, error) {
	return a.stageDao.TopFailures(ctx, scope, limit)
}

// Comparison 每条流水线的构建汇总，保持流水线 ID 升序
func (a *App) Comparison(ctx context.Context) ([]dto.PipelineBuildStats, error) {
	pipelines, err := a.PipelineService.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	stats, err := a.buildDao.StatsByPipeline(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]dto.PipelineBuildStats, 0, len(pipelines))
	for _, p := range pipelines {
		s := stats[p.ID]
		s.ID = p.ID
		s.Name = p.Name
		s.Type = p.Type
		s.Repository = p.Repository
		s.LastStatus = p.Status
		out = append(out, s)
	}
	return out, nil
}

func (a *App) WindowSummary(ctx context.Context, since time.Time) (dto.WindowSummary, error) {
	return a.buildDao.WindowSummary(ctx, since)
}

func (a *App) PipelineStatuses(ctx context.Context) ([]dto.StatusCount, error) {
	return a.pipelineDao.CountByStatus(ctx)
}

func withPipeline(builds []*model.Build) []dto.BuildWithPipeline {
	out := make([]dto.BuildWithPipeline, 0, len(builds))
	for _, b := range builds {
		out = append(out, b.WithPipeline())
	}
	return out
}
