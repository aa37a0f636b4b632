package client

import (
	"context"
	"time"

	"pipelinehealth/system/alert/api/dto"
	"pipelinehealth/system/alert/internal/app"

	"gorm.io/gorm"
)

// AlertClient 告警组件对外客户端，供调度任务与流水线组件使用
type AlertClient struct {
	app *app.App
}

func NewAlertClient(app *app.App) *AlertClient {
	return &AlertClient{app: app}
}

func (c *AlertClient) EvaluateAll(ctx context.Context) ([]dto.Evaluation, error) {
	return c.app.EvaluateAll(ctx)
}

func (c *AlertClient) EvaluateOne(ctx context.Context, alertID int64) (dto.Evaluation, error) {
	return c.app.Evaluator.EvaluateOne(ctx, alertID)
}

// Cleanup 删除早于 cutoff 的告警历史，返回删除条数
func (c *AlertClient) Cleanup(ctx context.Context, cutoff time.Time) (int64, error) {
	return c.app.Cleanup(ctx, cutoff)
}

func (c *AlertClient) DeleteByPipeline(ctx context.Context, tx *gorm.DB, pipelineID int64) error {
	return c.app.AlertService.DeleteByPipeline(ctx, tx, pipelineID)
}
