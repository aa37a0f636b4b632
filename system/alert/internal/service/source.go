package service

import (
	"context"
	"time"

	"pipelinehealth/pkg/notifier"
	pipelinedto "pipelinehealth/system/pipeline/api/dto"
)

// PipelineSource 告警评估读取构建数据的入口，由流水线组件客户端实现
type PipelineSource interface {
	ListPipelines(ctx context.Context) ([]*pipelinedto.PipelineDTO, error)
	GetPipeline(ctx context.Context, id int64) (*pipelinedto.PipelineDTO, error)
	LatestBuild(ctx context.Context, pipelineID int64) (*pipelinedto.BuildDTO, error)
	CountBuilds(ctx context.Context, scope pipelinedto.BuildScope, status pipelinedto.BuildStatus) (int64, error)
	HasBuildSince(ctx context.Context, scope pipelinedto.BuildScope, status pipelinedto.BuildStatus, since time.Time) (bool, error)
	DurationStatsSince(ctx context.Context, scope pipelinedto.BuildScope, since time.Time) (pipelinedto.DurationStats, error)
	OutcomeStatsSince(ctx context.Context, scope pipelinedto.BuildScope, since time.Time) (pipelinedto.OutcomeStats, error)
}

// Notifier 通知分发，由 notifier.Dispatcher 实现
type Notifier interface {
	notifier.Sender
	Test(ctx context.Context, channels notifier.Channels) notifier.Result
}

// Observer 告警触发回调，用于指标统计
type Observer func(severity string)
