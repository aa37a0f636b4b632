package service

import (
	"testing"
	"time"

	errorc "pipelinehealth/pkg/core/err"
	"pipelinehealth/pkg/notifier"
	"pipelinehealth/system/alert/api/dto"
	"pipelinehealth/system/alert/internal/model"
	reqdto "pipelinehealth/system/alert/internal/model/dto"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (f *fixture) service() *AlertService {
	return NewAlertService(f.db, f.alerts, f.history, f.source, f.notifier, f.clock, f.log)
}

func (f *fixture) addHistory(t *testing.T, alertID int64, severity notifier.Severity, status dto.NotificationStatus, sentAt time.Time) {
	t.Helper()
	require.NoError(t, f.history.Create(ctx, &model.AlertHistory{
		AlertID:  alertID,
		Message:  "Build failure detected",
		Severity: severity,
		Status:   status,
		SentAt:   sentAt,
	}))
}

func saveReq(name string, pipelineID *int64) *reqdto.SaveAlertReq {
	threshold := 5.0
	return &reqdto.SaveAlertReq{
		Name:          name,
		ConditionType: dto.ConditionQueueLength,
		Threshold:     &threshold,
		Channels:      &notifier.Channels{Email: []string{"ops@example.com"}},
		PipelineID:    pipelineID,
	}
}

func TestAlertCRUD(t *testing.T) {
	f := newFixture(t)
	f.source.addPipeline(1, "api")
	svc := f.service()

	t.Run("流水线不存在", func(t *testing.T) {
		_, err := svc.CreateAlert(ctx, saveReq("queue", id(99)), 7)
		require.Error(t, err)
		assert.True(t, errorc.IsNotFound(err))
		assert.Equal(t, "Pipeline not found", errorc.ParseError(err).Msg)
	})

	created, err := svc.CreateAlert(ctx, saveReq("queue", id(1)), 7)
	require.NoError(t, err)
	assert.True(t, created.IsActive)
	assert.Equal(t, int64(7), created.CreatedBy)
	assert.Equal(t, []string{"ops@example.com"}, created.Channels.Email)

	global, err := svc.CreateAlert(ctx, saveReq("global", nil), 7)
	require.NoError(t, err)

	t.Run("列表附带流水线名称", func(t *testing.T) {
		list, err := svc.List(ctx, &reqdto.ListAlertReq{PipelineID: 1})
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, "api", list[0].PipelineName)

		all, err := svc.List(ctx, &reqdto.ListAlertReq{})
		require.NoError(t, err)
		assert.Len(t, all, 2)
	})

	t.Run("切换启用状态", func(t *testing.T) {
		toggled, err := svc.Toggle(ctx, created.ID)
		require.NoError(t, err)
		assert.False(t, toggled.IsActive)

		active := true
		list, err := svc.List(ctx, &reqdto.ListAlertReq{IsActive: &active})
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, global.ID, list[0].ID)
	})

	t.Run("更新保持启用状态", func(t *testing.T) {
		req := saveReq("queue renamed", id(1))
		updated, err := svc.UpdateAlert(ctx, created.ID, req)
		require.NoError(t, err)
		assert.Equal(t, "queue renamed", updated.Name)
		assert.False(t, updated.IsActive)
	})

	t.Run("详情附带最近历史", func(t *testing.T) {
		for i := 0; i < 12; i++ {
			f.addHistory(t, created.ID, notifier.SeverityWarning, dto.NotificationSent, baseTime.Add(-time.Duration(i)*time.Minute))
		}
		detail, err := svc.Detail(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, "api", detail.PipelineName)
		require.Len(t, detail.History, 10)
		assert.True(t, detail.History[0].SentAt.Equal(baseTime))
	})

	t.Run("历史分页", func(t *testing.T) {
		rows, total, err := svc.History(ctx, created.ID, &reqdto.HistoryReq{Page: 2, Limit: 5})
		require.NoError(t, err)
		assert.Equal(t, int64(12), total)
		require.Len(t, rows, 5)
		assert.True(t, rows[0].SentAt.Equal(baseTime.Add(-5*time.Minute)))
	})

	t.Run("删除告警同时删除历史", func(t *testing.T) {
		require.NoError(t, svc.DeleteAlert(ctx, created.ID))
		_, err := svc.Detail(ctx, created.ID)
		assert.True(t, errorc.IsNotFound(err))

		var n int64
		require.NoError(t, f.db.Model(&model.AlertHistory{}).Count(&n).Error)
		assert.Zero(t, n)
	})

	t.Run("删除不存在的告警", func(t *testing.T) {
		err := svc.DeleteAlert(ctx, 404)
		assert.True(t, errorc.IsNotFound(err))
	})
}

func TestStatistics(t *testing.T) {
	f := newFixture(t)
	svc := f.service()
	a := f.addAlert(t, "a", dto.ConditionFailure, 0, nil)
	b := f.addAlert(t, "b", dto.ConditionFailure, 0, nil)
	require.NoError(t, f.alerts.SetActive(ctx, b.ID, false))

	f.addHistory(t, a.ID, notifier.SeverityError, dto.NotificationSent, baseTime.Add(-time.Hour))
	f.addHistory(t, a.ID, notifier.SeverityError, dto.NotificationSent, baseTime.Add(-2*time.Hour))
	f.addHistory(t, b.ID, notifier.SeverityCritical, dto.NotificationFailed, baseTime.Add(-3*time.Hour))
	f.addHistory(t, b.ID, notifier.SeverityCritical, dto.NotificationFailed, baseTime.Add(-25*time.Hour))

	stats, err := svc.Statistics(ctx)
	require.NoError(t, err)

	assert.Equal(t, int64(2), stats.TotalAlerts)
	assert.Equal(t, int64(1), stats.ActiveAlertCount)
	assert.Equal(t, int64(3), stats.AlertCounts.Total)
	assert.Equal(t, int64(2), stats.AlertCounts.BySeverity[notifier.SeverityError])
	assert.Equal(t, int64(1), stats.AlertCounts.BySeverity[notifier.SeverityCritical])
	assert.Equal(t, int64(2), stats.Sent)
	assert.Equal(t, int64(1), stats.Failed)
	assert.Equal(t, 66.67, stats.AlertSuccessRate)
	assert.Equal(t, "24h", stats.Period)
}

func TestCleanupAndPipelineDeletion(t *testing.T) {
	f := newFixture(t)
	svc := f.service()
	scoped := f.addAlert(t, "scoped", dto.ConditionFailure, 0, id(1))
	other := f.addAlert(t, "other", dto.ConditionFailure, 0, id(2))

	f.addHistory(t, scoped.ID, notifier.SeverityError, dto.NotificationSent, baseTime.AddDate(0, 0, -91))
	f.addHistory(t, scoped.ID, notifier.SeverityError, dto.NotificationSent, baseTime.AddDate(0, 0, -1))
	f.addHistory(t, other.ID, notifier.SeverityError, dto.NotificationSent, baseTime.AddDate(0, 0, -1))

	deleted, err := svc.Cleanup(ctx, baseTime.AddDate(0, 0, -90))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	require.NoError(t, svc.DeleteByPipeline(ctx, f.db, 1))

	var alerts []model.Alert
	require.NoError(t, f.db.Find(&alerts).Error)
	require.Len(t, alerts, 1)
	assert.Equal(t, other.ID, alerts[0].ID)

	rows := f.historyRows(t)
	require.Len(t, rows, 1)
	assert.Equal(t, other.ID, rows[0].AlertID)
}

func TestTestNotification(t *testing.T) {
	f := newFixture(t)
	res := f.service().TestNotification(ctx, notifier.Channels{Webhook: "http://hooks.local/test"})
	assert.True(t, res.Success)

	sent := f.notifier.sent()
	require.Len(t, sent, 1)
	assert.Equal(t, notifier.SeverityInfo, sent[0].Severity)
	assert.Equal(t, "http://hooks.local/test", sent[0].Channels.Webhook)
}
