package service

import (
	"context"
	"fmt"
	"time"

	"pipelinehealth/pkg/clock"
	errorc "pipelinehealth/pkg/core/err"
	"pipelinehealth/pkg/core/logger"
	"pipelinehealth/pkg/live"
	"pipelinehealth/pkg/lock"
	"pipelinehealth/pkg/notifier"
	"pipelinehealth/system/alert/api/dto"
	"pipelinehealth/system/alert/internal/dao"
	"pipelinehealth/system/alert/internal/model"
)

const (
	dedupWindow  = 15 * time.Minute
	alertLockTTL = time.Minute
)

// Evaluator 对启用的告警规则逐条评估，命中时发送通知并记录历史
type Evaluator struct {
	alerts    *dao.AlertDao
	history   *dao.HistoryDao
	source    PipelineSource
	sender    notifier.Sender
	locks     lock.LockManager
	publisher live.Publisher
	clock     clock.Clock
	observe   Observer
	log       *logger.Log
	err       *errorc.ErrorBuilder
}

type EvaluatorDeps struct {
	Alerts    *dao.AlertDao
	History   *dao.HistoryDao
	Source    PipelineSource
	Sender    notifier.Sender
	Locks     lock.LockManager
	Publisher live.Publisher
	Clock     clock.Clock
	Observe   Observer
	Log       *logger.Log
}

func NewEvaluator(deps EvaluatorDeps) *Evaluator {
	e := &Evaluator{
		alerts:    deps.Alerts,
		history:   deps.History,
		source:    deps.Source,
		sender:    deps.Sender,
		locks:     deps.Locks,
		publisher: deps.Publisher,
		clock:     deps.Clock,
		observe:   deps.Observe,
		log:       deps.Log.WithEntryName("AlertEvaluator"),
		err:       errorc.NewErrorBuilder("AlertEvaluator"),
	}
	if e.publisher == nil {
		e.publisher = live.NopPublisher{}
	}
	if e.clock == nil {
		e.clock = clock.RealClock{}
	}
	return e
}

// EvaluateAll 单条告警出错只记录日志，不影响其他告警
func (e *Evaluator) EvaluateAll(ctx context.Context) ([]dto.Evaluation, error) {
	alerts, err := e.alerts.FindActive(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]dto.Evaluation, 0, len(alerts))
	for _, alert := range alerts {
		res, err := e.Evaluate(ctx, alert)
		if err != nil {
			errorc.ParseError(err).ToLog(e.log.WithAlertID(alert.ID).GetLogger(), "评估告警失败")
			continue
		}
		results = append(results, res)
	}
	e.log.WithField("count", len(alerts)).Debug("告警评估完成")
	return results, nil
}

// EvaluateOne 手动触发单条告警评估，停用的告警同样会被评估
func (e *Evaluator) EvaluateOne(ctx context.Context, id int64) (dto.Evaluation, error) {
	alert, err := e.alerts.FindByID(ctx, id)
	if err != nil {
		return dto.Evaluation{}, err
	}
	return e.Evaluate(ctx, alert)
}

// Evaluate 配置了锁时，同一告警同一时刻只有一个评估者
func (e *Evaluator) Evaluate(ctx context.Context, alert *model.Alert) (dto.Evaluation, error) {
	if e.locks == nil {
		return e.evaluate(ctx, alert)
	}

	var res dto.Evaluation
	acquired, err := lock.WithLock(ctx, e.locks, fmt.Sprintf("alert:%d", alert.ID), alertLockTTL, func(ctx context.Context) error {
		var err error
		res, err = e.evaluate(ctx, alert)
		return err
	})
	if err != nil {
		return dto.Evaluation{}, err
	}
	if !acquired {
		e.log.WithAlertID(alert.ID).Debug("告警正在被其他实例评估，跳过")
		return dto.Evaluation{AlertID: alert.ID}, nil
	}
	return res, nil
}

func (e *Evaluator) evaluate(ctx context.Context, alert *model.Alert) (dto.Evaluation, error) {
	res := dto.Evaluation{AlertID: alert.ID}

	v, err := e.check(ctx, alert)
	if err != nil {
		return res, err
	}
	if !v.Triggered {
		return res, nil
	}
	res.Triggered = true
	res.Message = v.Message
	res.Severity = v.Severity

	sent, err := e.history.SentSince(ctx, alert.ID, v.Message, e.clock.Now().Add(-dedupWindow))
	if err != nil {
		return res, err
	}
	if sent {
		res.Suppressed = true
		e.log.WithAlertID(alert.ID).Debug("15 分钟内已发送过相同告警，抑制")
		return res, nil
	}

	status, err := e.trigger(ctx, alert, v)
	res.Status = status
	return res, err
}

// trigger 发送通知、写入历史并广播 alert 事件
func (e *Evaluator) trigger(ctx context.Context, alert *model.Alert, v verdict) (dto.NotificationStatus, error) {
	log := e.log.WithAlertID(alert.ID)
	now := e.clock.Now()

	var pipelineName string
	var buildID *int64
	if alert.PipelineID != nil {
		pipeline, err := e.source.GetPipeline(ctx, *alert.PipelineID)
		if err != nil && !errorc.IsNotFound(err) {
			return "", err
		}
		if pipeline != nil {
			pipelineName = pipeline.Name
		}
		latest, err := e.source.LatestBuild(ctx, *alert.PipelineID)
		if err != nil {
			return "", err
		}
		if latest != nil {
			buildID = &latest.ID
		}
	}

	metadata := map[string]interface{}{
		"alertId":   alert.ID,
		"alertName": alert.Name,
		"timestamp": live.Timestamp(now),
	}
	if pipelineName != "" {
		metadata["pipelineName"] = pipelineName
	}
	if buildID != nil {
		metadata["buildId"] = *buildID
	}

	result := e.sender.Send(ctx, notifier.Request{
		Message:  fmt.Sprintf("%s: %s", alert.Name, v.Message),
		Severity: v.Severity,
		Channels: alert.Channels,
		Metadata: metadata,
	})

	status := dto.NotificationFailed
	if result.Success {
		status = dto.NotificationSent
	}

	record := &model.AlertHistory{
		AlertID:  alert.ID,
		BuildID:  buildID,
		Message:  v.Message,
		Severity: v.Severity,
		Status:   status,
		SentAt:   now,
	}
	if err := e.history.Create(ctx, record); err != nil {
		return status, err
	}

	e.publisher.Broadcast(live.Event{
		Name:       live.EventAlert,
		PipelineID: derefID(alert.PipelineID),
		Data: dto.AlertEvent{
			ID:           alert.ID,
			Name:         alert.Name,
			Message:      v.Message,
			Severity:     v.Severity,
			PipelineID:   alert.PipelineID,
			PipelineName: pipelineName,
			Timestamp:    live.Timestamp(now),
		},
	})
	if e.observe != nil {
		e.observe(string(v.Severity))
	}

	log.WithField("severity", v.Severity).
		WithField("status", status).
		WithField("sentChannels", result.SentChannels).
		WithField("failedChannels", result.FailedChannels).
		Info("告警已触发")
	return status, nil
}

func derefID(id *int64) int64 {
	if id == nil {
		return 0
	}
	return *id
}
