package client

import (
	"context"
	"time"

	"pipelinehealth/system/metric/api/dto"
	"pipelinehealth/system/metric/internal/app"
	pipelinedto "pipelinehealth/system/pipeline/api/dto"

	"gorm.io/gorm"
)

// MetricClient 指标组件对外客户端，供调度任务与流水线组件使用
type MetricClient struct {
	app *app.App
}

func NewMetricClient(app *app.App) *MetricClient {
	return &MetricClient{app: app}
}

func (c *MetricClient) ComputeAll(ctx context.Context, period dto.Period) error {
	return c.app.ComputeAll(ctx, period)
}

func (c *MetricClient) ComputeMetrics(ctx context.Context, pipelineID int64, period dto.Period) (*dto.Snapshot, error) {
	return c.app.Aggregator.ComputeMetrics(ctx, pipelineID, period)
}

// Cleanup 删除早于 cutoff 的指标，返回删除条数
func (c *MetricClient) Cleanup(ctx context.Context, cutoff time.Time) (int64, error) {
	return c.app.Cleanup(ctx, cutoff)
}

func (c *MetricClient) LatestMetrics(ctx context.Context, pipelineIDs []int64) (map[int64]pipelinedto.LatestMetrics, error) {
	return c.app.MetricService.LatestMetrics(ctx, pipelineIDs)
}

func (c *MetricClient) DeleteByPipeline(ctx context.Context, tx *gorm.DB, pipelineID int64) error {
	return c.app.MetricService.DeleteByPipeline(ctx, tx, pipelineID)
}
