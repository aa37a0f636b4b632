package service

import (
	"context"
	"time"

	pipelinedto "pipelinehealth/system/pipeline/api/dto"
)

// PipelineSource 指标组件读取流水线与构建数据的入口，由流水线组件客户端实现
type PipelineSource interface {
	ListPipelines(ctx context.Context) ([]*pipelinedto.PipelineDTO, error)
	GetPipeline(ctx context.Context, id int64) (*pipelinedto.PipelineDTO, error)
	BuildsCreatedBetween(ctx context.Context, pipelineID int64, from, to time.Time) ([]*pipelinedto.BuildDTO, error)
	CountBuilds(ctx context.Context, scope pipelinedto.BuildScope, status pipelinedto.BuildStatus) (int64, error)

	Overview(ctx context.Context, recent int) (*pipelinedto.BuildOverview, error)
	RecentBuilds(ctx context.Context, limit int) ([]pipelinedto.BuildWithPipeline, error)
	RunningBuilds(ctx context.Context) ([]pipelinedto.BuildWithPipeline, error)
	RecentDurations(ctx context.Context, scope pipelinedto.BuildScope, limit int) ([]pipelinedto.DurationPoint, error)
	FailedBuilds(ctx context.Context, scope pipelinedto.BuildScope, limit int) ([]pipelinedto.FailedBuild, error)
	StageFailures(ctx context.Context, scope pipelinedto.BuildScope, limit int) ([]pipelinedto.StageFailure, error)
	Comparison(ctx context.Context) ([]pipelinedto.PipelineBuildStats, error)
	WindowSummary(ctx context.Context, since time.Time) (pipelinedto.WindowSummary, error)
	PipelineStatuses(ctx context.Context) ([]pipelinedto.StatusCount, error)
}

func scopeOf(pipelineID int64) pipelinedto.BuildScope {
	if pipelineID <= 0 {
		return pipelinedto.BuildScope{}
	}
	return pipelinedto.BuildScope{PipelineID: &pipelineID}
}
