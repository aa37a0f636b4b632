package service

import (
	"context"
	"testing"
	"time"

	"pipelinehealth/pkg/clock"
	"pipelinehealth/pkg/core/logger"
	"pipelinehealth/pkg/dbtest"
	"pipelinehealth/pkg/live"
	"pipelinehealth/pkg/lock"
	"pipelinehealth/pkg/notifier"
	"pipelinehealth/system/alert/api/dto"
	"pipelinehealth/system/alert/internal/dao"
	"pipelinehealth/system/alert/internal/model"
	pipelinedto "pipelinehealth/system/pipeline/api/dto"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var (
	ctx      = context.Background()
	baseTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
)

type fixture struct {
	db       *gorm.DB
	alerts   *dao.AlertDao
	history  *dao.HistoryDao
	source   *fakeSource
	notifier *fakeNotifier
	recorder *live.Recorder
	clock    *clock.FakeClock
	observed []string
	log      *logger.Log
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := dbtest.Open(t, &model.Alert{}, &model.AlertHistory{})
	log := logger.GetLogger()
	return &fixture{
		db:       db,
		alerts:   dao.NewAlertDao(db, log),
		history:  dao.NewHistoryDao(db, log),
		source:   &fakeSource{},
		notifier: &fakeNotifier{},
		recorder: &live.Recorder{},
		clock:    clock.NewFakeClock(baseTime),
		log:      log,
	}
}

func (f *fixture) evaluator(locks lock.LockManager) *Evaluator {
	return NewEvaluator(EvaluatorDeps{
		Alerts:    f.alerts,
		History:   f.history,
		Source:    f.source,
		Sender:    f.notifier,
		Locks:     locks,
		Publisher: f.recorder,
		Clock:     f.clock,
		Observe:   func(severity string) { f.observed = append(f.observed, severity) },
		Log:       f.log,
	})
}

func (f *fixture) addAlert(t *testing.T, name string, condition dto.ConditionType, threshold float64, pipelineID *int64) *model.Alert {
	t.Helper()
	alert := &model.Alert{
		Name:          name,
		ConditionType: condition,
		Threshold:     threshold,
		PipelineID:    pipelineID,
		Channels:      notifier.Channels{Webhook: "http://hooks.local/alert"},
		IsActive:      true,
	}
	require.NoError(t, f.alerts.Create(ctx, alert))
	return alert
}

func (f *fixture) historyRows(t *testing.T) []model.AlertHistory {
	t.Helper()
	var rows []model.AlertHistory
	require.NoError(t, f.db.Order("id").Find(&rows).Error)
	return rows
}

func id(v int64) *int64 { return &v }

func secs(v int64) *int64 { return &v }

func TestSuccessRateAlertTriggersWarning(t *testing.T) {
	f := newFixture(t)
	f.source.addPipeline(1, "api")
	for i := 0; i < 7; i++ {
		f.source.addBuild(1, pipelinedto.BuildStatusSuccess, baseTime.Add(-time.Duration(i+1)*time.Hour), secs(100))
	}
	for i := 0; i < 3; i++ {
		f.source.addBuild(1, pipelinedto.BuildStatusFailed, baseTime.Add(-time.Duration(i+1)*30*time.Minute), secs(100))
	}
	alert := f.addAlert(t, "API success rate", dto.ConditionSuccessRate, 80, id(1))

	res, err := f.evaluator(nil).EvaluateOne(ctx, alert.ID)
	require.NoError(t, err)

	assert.True(t, res.Triggered)
	assert.False(t, res.Suppressed)
	assert.Equal(t, notifier.SeverityWarning, res.Severity)
	assert.Equal(t, "Success rate dropped below threshold: 80%", res.Message)
	assert.Equal(t, dto.NotificationSent, res.Status)

	sent := f.notifier.sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "API success rate: Success rate dropped below threshold: 80%", sent[0].Message)
	assert.Equal(t, "api", sent[0].Metadata["pipelineName"])
	assert.Equal(t, alert.ID, sent[0].Metadata["alertId"])
	assert.Equal(t, "http://hooks.local/alert", sent[0].Channels.Webhook)

	rows := f.historyRows(t)
	require.Len(t, rows, 1)
	assert.Equal(t, dto.NotificationSent, rows[0].Status)
	assert.Equal(t, notifier.SeverityWarning, rows[0].Severity)
	assert.True(t, rows[0].SentAt.Equal(baseTime))
	require.NotNil(t, rows[0].BuildID)

	events := f.recorder.Named(live.EventAlert)
	require.Len(t, events, 1)
	assert.Equal(t, int64(1), events[0].PipelineID)
	payload := events[0].Data.(dto.AlertEvent)
	assert.Equal(t, "api", payload.PipelineName)
	assert.Equal(t, []string{"WARNING"}, f.observed)
}

func TestConditionPredicates(t *testing.T) {
	tests := []struct {
		name      string
		condition dto.ConditionType
		threshold float64
		setup     func(s *fakeSource)
		triggered bool
		message   string
		severity  notifier.Severity
	}{
		{
			name:      "5分钟内有失败构建",
			condition: dto.ConditionFailure,
			setup: func(s *fakeSource) {
				s.addBuild(1, pipelinedto.BuildStatusFailed, baseTime.Add(-4*time.Minute), nil)
			},
			triggered: true,
			message:   "Build failure detected",
			severity:  notifier.SeverityError,
		},
		{
			name:      "失败构建超过5分钟不触发",
			condition: dto.ConditionFailure,
			setup: func(s *fakeSource) {
				s.addBuild(1, pipelinedto.BuildStatusFailed, baseTime.Add(-6*time.Minute), nil)
			},
		},
		{
			name:      "平均耗时超过阈值",
			condition: dto.ConditionBuildTime,
			threshold: 300,
			setup: func(s *fakeSource) {
				s.addBuild(1, pipelinedto.BuildStatusSuccess, baseTime.Add(-10*time.Minute), secs(200))
				s.addBuild(1, pipelinedto.BuildStatusFailed, baseTime.Add(-20*time.Minute), secs(500))
				s.addBuild(1, pipelinedto.BuildStatusSuccess, baseTime.Add(-2*time.Hour), secs(10))
			},
			triggered: true,
			message:   "Build time exceeded threshold: 300 seconds",
			severity:  notifier.SeverityWarning,
		},
		{
			name:      "没有带耗时的构建不触发",
			condition: dto.ConditionBuildTime,
			threshold: 1,
			setup: func(s *fakeSource) {
				s.addBuild(1, pipelinedto.BuildStatusRunning, baseTime.Add(-10*time.Minute), nil)
			},
		},
		{
			name:      "没有完成的构建时成功率不触发",
			condition: dto.ConditionSuccessRate,
			threshold: 90,
		},
		{
			name:      "排队数量超过阈值",
			condition: dto.ConditionQueueLength,
			threshold: 2.5,
			setup: func(s *fakeSource) {
				for i := 0; i < 3; i++ {
					s.addBuild(1, pipelinedto.BuildStatusPending, baseTime.Add(-time.Minute), nil)
				}
			},
			triggered: true,
			message:   "Queue length exceeded threshold: 2.5 builds",
			severity:  notifier.SeverityWarning,
		},
		{
			name:      "排队数量等于阈值不触发",
			condition: dto.ConditionQueueLength,
			threshold: 1,
			setup: func(s *fakeSource) {
				s.addBuild(1, pipelinedto.BuildStatusPending, baseTime.Add(-time.Minute), nil)
			},
		},
		{
			name:      "流水线从未构建视为停止",
			condition: dto.ConditionPipelineDown,
			triggered: true,
			message:   "Pipeline appears to be down or inactive",
			severity:  notifier.SeverityCritical,
		},
		{
			name:      "最近构建超过24小时",
			condition: dto.ConditionPipelineDown,
			setup: func(s *fakeSource) {
				s.addBuild(1, pipelinedto.BuildStatusSuccess, baseTime.Add(-25*time.Hour), nil)
			},
			triggered: true,
			message:   "Pipeline appears to be down or inactive",
			severity:  notifier.SeverityCritical,
		},
		{
			name:      "恰好24小时不算停止",
			condition: dto.ConditionPipelineDown,
			setup: func(s *fakeSource) {
				s.addBuild(1, pipelinedto.BuildStatusSuccess, baseTime.Add(-24*time.Hour), nil)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.source.addPipeline(1, "api")
			if tt.setup != nil {
				tt.setup(f.source)
			}
			alert := f.addAlert(t, "rule", tt.condition, tt.threshold, id(1))

			res, err := f.evaluator(nil).EvaluateOne(ctx, alert.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.triggered, res.Triggered)
			assert.Equal(t, tt.message, res.Message)
			assert.Equal(t, tt.severity, res.Severity)
			if !tt.triggered {
				assert.Empty(t, f.notifier.sent())
				assert.Empty(t, f.historyRows(t))
			}
		})
	}
}

func TestGlobalPipelineDown(t *testing.T) {
	t.Run("全部流水线活跃时不触发", func(t *testing.T) {
		f := newFixture(t)
		f.source.addPipeline(1, "api")
		f.source.addPipeline(2, "web")
		f.source.addBuild(1, pipelinedto.BuildStatusSuccess, baseTime.Add(-time.Hour), nil)
		f.source.addBuild(2, pipelinedto.BuildStatusFailed, baseTime.Add(-23*time.Hour), nil)
		alert := f.addAlert(t, "any down", dto.ConditionPipelineDown, 0, nil)

		res, err := f.evaluator(nil).EvaluateOne(ctx, alert.ID)
		require.NoError(t, err)
		assert.False(t, res.Triggered)
	})

	t.Run("任一流水线停止即触发", func(t *testing.T) {
		f := newFixture(t)
		f.source.addPipeline(1, "api")
		f.source.addPipeline(2, "web")
		f.source.addBuild(1, pipelinedto.BuildStatusSuccess, baseTime.Add(-time.Hour), nil)
		f.source.addBuild(2, pipelinedto.BuildStatusSuccess, baseTime.Add(-48*time.Hour), nil)
		alert := f.addAlert(t, "any down", dto.ConditionPipelineDown, 0, nil)

		res, err := f.evaluator(nil).EvaluateOne(ctx, alert.ID)
		require.NoError(t, err)
		assert.True(t, res.Triggered)
		assert.Equal(t, notifier.SeverityCritical, res.Severity)

		sent := f.notifier.sent()
		require.Len(t, sent, 1)
		assert.NotContains(t, sent[0].Metadata, "pipelineName")
		assert.NotContains(t, sent[0].Metadata, "buildId")
		assert.Equal(t, int64(0), f.recorder.Named(live.EventAlert)[0].PipelineID)
	})
}

func TestDuplicateAlertSuppressed(t *testing.T) {
	f := newFixture(t)
	f.source.addPipeline(1, "api")
	alert := f.addAlert(t, "queue", dto.ConditionQueueLength, 0, id(1))
	f.source.addBuild(1, pipelinedto.BuildStatusPending, baseTime, nil)
	evaluator := f.evaluator(nil)

	first, err := evaluator.EvaluateOne(ctx, alert.ID)
	require.NoError(t, err)
	assert.False(t, first.Suppressed)

	f.clock.Advance(14 * time.Minute)
	second, err := evaluator.EvaluateOne(ctx, alert.ID)
	require.NoError(t, err)
	assert.True(t, second.Triggered)
	assert.True(t, second.Suppressed)
	assert.Len(t, f.notifier.sent(), 1)
	assert.Len(t, f.historyRows(t), 1)

	f.clock.Advance(2 * time.Minute)
	third, err := evaluator.EvaluateOne(ctx, alert.ID)
	require.NoError(t, err)
	assert.False(t, third.Suppressed)
	assert.Len(t, f.notifier.sent(), 2)
	assert.Len(t, f.historyRows(t), 2)
	assert.Len(t, f.recorder.Named(live.EventAlert), 2)
}

func TestFailedDeliveryRecorded(t *testing.T) {
	f := newFixture(t)
	f.notifier.fail = true
	f.source.addPipeline(1, "api")
	alert := f.addAlert(t, "down", dto.ConditionPipelineDown, 0, id(1))

	res, err := f.evaluator(nil).EvaluateOne(ctx, alert.ID)
	require.NoError(t, err)
	assert.Equal(t, dto.NotificationFailed, res.Status)

	rows := f.historyRows(t)
	require.Len(t, rows, 1)
	assert.Equal(t, dto.NotificationFailed, rows[0].Status)
	assert.Nil(t, rows[0].BuildID)
}

func TestEvaluateAll(t *testing.T) {
	f := newFixture(t)
	f.source.addPipeline(1, "api")
	f.source.addBuild(1, pipelinedto.BuildStatusFailed, baseTime.Add(-time.Minute), nil)

	broken := f.addAlert(t, "broken", dto.ConditionType("LATENCY"), 1, id(1))
	failure := f.addAlert(t, "failure", dto.ConditionFailure, 0, id(1))
	inactive := f.addAlert(t, "inactive", dto.ConditionFailure, 0, id(1))
	require.NoError(t, f.alerts.SetActive(ctx, inactive.ID, false))

	results, err := f.evaluator(nil).EvaluateAll(ctx)
	require.NoError(t, err)

	require.Len(t, results, 1)
	assert.Equal(t, failure.ID, results[0].AlertID)
	assert.True(t, results[0].Triggered)
	assert.NotEqual(t, broken.ID, results[0].AlertID)
	assert.Len(t, f.notifier.sent(), 1)
}

func TestEvaluateSkipsWhenLocked(t *testing.T) {
	f := newFixture(t)
	f.source.addPipeline(1, "api")
	alert := f.addAlert(t, "down", dto.ConditionPipelineDown, 0, id(1))

	locks := lock.NewLocalLockManager()
	held := locks.NewLock("alert:1", time.Minute)
	ok, err := held.TryLock(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int64(1), alert.ID)

	res, err := f.evaluator(locks).EvaluateOne(ctx, alert.ID)
	require.NoError(t, err)
	assert.False(t, res.Triggered)
	assert.Empty(t, f.notifier.sent())

	require.NoError(t, held.Unlock(ctx))
	res, err = f.evaluator(locks).EvaluateOne(ctx, alert.ID)
	require.NoError(t, err)
	assert.True(t, res.Triggered)
}
