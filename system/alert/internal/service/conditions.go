package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"pipelinehealth/pkg/notifier"
	"pipelinehealth/system/alert/api/dto"
	"pipelinehealth/system/alert/internal/model"
	pipelinedto "pipelinehealth/system/pipeline/api/dto"
)

const (
	failureWindow     = 5 * time.Minute
	buildTimeWindow   = time.Hour
	successRateWindow = 24 * time.Hour
	inactiveAfter     = 24 * time.Hour
)

// verdict 条件命中时的消息与级别
type verdict struct {
	Triggered bool
	Message   string
	Severity  notifier.Severity
}

func hit(message string, severity notifier.Severity) verdict {
	return verdict{Triggered: true, Message: message, Severity: severity}
}

func formatThreshold(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func scopeOf(alert *model.Alert) pipelinedto.BuildScope {
	return pipelinedto.BuildScope{PipelineID: alert.PipelineID}
}

// check 每种条件类型对应一个判定函数
func (e *Evaluator) check(ctx context.Context, alert *model.Alert) (verdict, error) {
	switch alert.ConditionType {
	case dto.ConditionFailure:
		return e.checkFailure(ctx, alert)
	case dto.ConditionBuildTime:
		return e.checkBuildTime(ctx, alert)
	case dto.ConditionSuccessRate:
		return e.checkSuccessRate(ctx, alert)
	case dto.ConditionQueueLength:
		return e.checkQueueLength(ctx, alert)
	case dto.ConditionPipelineDown:
		return e.checkPipelineDown(ctx, alert)
	}
	return verdict{}, e.err.BadRequest(fmt.Sprintf("Unknown alert condition type: %s", alert.ConditionType))
}

// checkFailure 最近 5 分钟内有失败构建
func (e *Evaluator) checkFailure(ctx context.Context, alert *model.Alert) (verdict, error) {
	found, err := e.source.HasBuildSince(ctx, scopeOf(alert), pipelinedto.BuildStatusFailed, e.clock.Now().Add(-failureWindow))
	if err != nil || !found {
		return verdict{}, err
	}
	return hit("Build failure detected", notifier.SeverityError), nil
}

// checkBuildTime 最近 1 小时成功与失败构建的平均耗时超过阈值
func (e *Evaluator) checkBuildTime(ctx context.Context, alert *model.Alert) (verdict, error) {
	stats, err := e.source.DurationStatsSince(ctx, scopeOf(alert), e.clock.Now().Add(-buildTimeWindow))
	if err != nil || stats.Count == 0 || stats.Average <= alert.Threshold {
		return verdict{}, err
	}
	return hit(fmt.Sprintf("Build time exceeded threshold: %s seconds", formatThreshold(alert.Threshold)), notifier.SeverityWarning), nil
}

// checkSuccessRate 最近 24 小时成功率低于阈值
func (e *Evaluator) checkSuccessRate(ctx context.Context, alert *model.Alert) (verdict, error) {
	stats, err := e.source.OutcomeStatsSince(ctx, scopeOf(alert), e.clock.Now().Add(-successRateWindow))
	if err != nil || stats.Total() == 0 {
		return verdict{}, err
	}
	rate := float64(stats.Success) / float64(stats.Total()) * 100
	if rate >= alert.Threshold {
		return verdict{}, nil
	}
	return hit(fmt.Sprintf("Success rate dropped below threshold: %s%%", formatThreshold(alert.Threshold)), notifier.SeverityWarning), nil
}

func (e *Evaluator) checkQueueLength(ctx context.Context, alert *model.Alert) (verdict, error) {
	queue, err := e.source.CountBuilds(ctx, scopeOf(alert), pipelinedto.BuildStatusPending)
	if err != nil || float64(queue) <= alert.Threshold {
		return verdict{}, err
	}
	return hit(fmt.Sprintf("Queue length exceeded threshold: %s builds", formatThreshold(alert.Threshold)), notifier.SeverityWarning), nil
}

// checkPipelineDown 没有任何构建或最近一次构建超过 24 小时，全局告警任一流水线满足即命中
func (e *Evaluator) checkPipelineDown(ctx context.Context, alert *model.Alert) (verdict, error) {
	var ids []int64
	if alert.PipelineID != nil {
		ids = []int64{*alert.PipelineID}
	} else {
		pipelines, err := e.source.ListPipelines(ctx)
		if err != nil {
			return verdict{}, err
		}
		for _, p := range pipelines {
			ids = append(ids, p.ID)
		}
	}

	now := e.clock.Now()
	for _, id := range ids {
		latest, err := e.source.LatestBuild(ctx, id)
		if err != nil {
			return verdict{}, err
		}
		if latest == nil || now.Sub(latest.CreatedAt) > inactiveAfter {
			return hit("Pipeline appears to be down or inactive", notifier.SeverityCritical), nil
		}
	}
	return verdict{}, nil
}
