package service

import (
	"context"

	"pipelinehealth/pkg/clock"
	errorc "pipelinehealth/pkg/core/err"
	"pipelinehealth/pkg/core/logger"
	"pipelinehealth/pkg/live"
	"pipelinehealth/system/metric/api/dto"
	"pipelinehealth/system/metric/internal/dao"
	"pipelinehealth/system/metric/internal/model"
	pipelinedto "pipelinehealth/system/pipeline/api/dto"
	"pipelinehealth/utils"
)

// Aggregator 按周期为每条流水线计算四项指标
type Aggregator struct {
	source    PipelineSource
	dao       *dao.MetricDao
	publisher live.Publisher
	clock     clock.Clock
	log       *logger.Log
	err       *errorc.ErrorBuilder
}

func NewAggregator(source PipelineSource, metricDao *dao.MetricDao, publisher live.Publisher, clk clock.Clock, log *logger.Log) *Aggregator {
	return &Aggregator{
		source:    source,
		dao:       metricDao,
		publisher: publisher,
		clock:     clk,
		log:       log.WithEntryName("Aggregator"),
		err:       errorc.NewErrorBuilder("Aggregator"),
	}
}

// ComputeMetrics 窗口内没有构建时不写入也不广播，返回 nil
func (a *Aggregator) ComputeMetrics(ctx context.Context, pipelineID int64, period dto.Period) (*dto.Snapshot, error) {
	if !period.Valid() {
		return nil, a.err.BadRequest("Invalid period")
	}

	now := a.clock.Now()
	builds, err := a.source.BuildsCreatedBetween(ctx, pipelineID, now.Add(-period.Window()), now)
	if err != nil {
		return nil, err
	}
	if len(builds) == 0 {
		return nil, nil
	}

	var success, failed, timed, total int64
	for _, b := range builds {
		switch b.Status {
		case pipelinedto.BuildStatusSuccess:
			success++
		case pipelinedto.BuildStatusFailed:
			failed++
		}
		if b.Duration != nil && *b.Duration > 0 {
			timed++
			total += *b.Duration
		}
	}

	queue, err := a.source.CountBuilds(ctx, scopeOf(pipelineID), pipelinedto.BuildStatusPending)
	if err != nil {
		return nil, err
	}

	snapshot := &dto.Snapshot{
		PipelineID:   pipelineID,
		Period:       period,
		SuccessRate:  float64(success) / float64(len(builds)) * 100,
		FailureCount: failed,
		QueueLength:  queue,
		Timestamp:    live.Timestamp(now),
	}
	if timed > 0 {
		snapshot.AvgBuildTime = float64(total) / float64(timed)
	}

	rows := []*model.Metric{
		{PipelineID: pipelineID, MetricType: dto.MetricTypeSuccessRate, Period: period, Value: snapshot.SuccessRate, Timestamp: now},
		{PipelineID: pipelineID, MetricType: dto.MetricTypeBuildTime, Period: period, Value: snapshot.AvgBuildTime, Timestamp: now},
		{PipelineID: pipelineID, MetricType: dto.MetricTypeFailureCount, Period: period, Value: float64(failed), Timestamp: now},
		{PipelineID: pipelineID, MetricType: dto.MetricTypeQueueLength, Period: period, Value: float64(queue), Timestamp: now},
	}
	if err := a.dao.SaveBatch(ctx, rows); err != nil {
		return nil, err
	}

	a.publisher.Broadcast(live.Event{Name: live.EventMetricsUpdate, PipelineID: pipelineID, Data: snapshot})

	a.log.WithPipelineID(pipelineID).
		WithField("period", period).
		WithField("successRate", utils.Round2(snapshot.SuccessRate)).
		WithField("avgBuildTime", snapshot.AvgBuildTime).
		WithField("failureCount", failed).
		WithField("queueLength", queue).
		Debug("指标计算完成")
	return snapshot, nil
}

// ComputeAll 逐条流水线计算，单条失败只记录日志
func (a *Aggregator) ComputeAll(ctx context.Context, period dto.Period) error {
	pipelines, err := a.source.ListPipelines(ctx)
	if err != nil {
		return err
	}

	var computed int
	for _, p := range pipelines {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		snapshot, err := a.ComputeMetrics(ctx, p.ID, period)
		if err != nil {
			errorc.ParseError(err).ToLog(a.log.WithPipelineID(p.ID).GetLogger(), "计算流水线指标失败")
			continue
		}
		if snapshot != nil {
			computed++
		}
	}

	a.log.WithField("period", period).
		WithField("pipelines", len(pipelines)).
		WithField("computed", computed).
		Info("周期指标计算完成")
	return nil
}
