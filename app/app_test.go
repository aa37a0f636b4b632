package app

import (
	"context"
	"testing"
	"time"

	"pipelinehealth/base"
	"pipelinehealth/pkg/clock"
	"pipelinehealth/pkg/core/config"
	"pipelinehealth/pkg/core/logger"
	"pipelinehealth/pkg/core/start"
	"pipelinehealth/pkg/core/tracer"
	"pipelinehealth/pkg/db"
	"pipelinehealth/pkg/dbtest"
	"pipelinehealth/pkg/live"
	"pipelinehealth/pkg/lock"
	"pipelinehealth/pkg/monitoring"
	"pipelinehealth/pkg/notifier"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(t *testing.T, jobs map[string]string) *App {
	t.Helper()
	return newTestAppAt(t, jobs, nil)
}

func newTestAppAt(t *testing.T, jobs map[string]string, c clock.Clock) *App {
	t.Helper()
	gdb := dbtest.Open(t)
	require.NoError(t, db.AutoMigrate(gdb))

	log := logger.GetLogger()
	hub := live.NewHub(log)
	t.Cleanup(hub.Close)

	in := &base.Infra{
		Config: start.Config{
			AppName: "pipelinehealth",
			Scheduler: config.SchedulerConfig{
				Jobs:          jobs,
				RetentionDays: 90,
			},
		},
		Logger:    log,
		ENV:       "test",
		DB:        gdb,
		Locks:     lock.NewLocalLockManager(),
		Metrics:   monitoring.New(),
		Hub:       hub,
		Publisher: hub,
		Notifier:  notifier.NewDispatcher(config.NotifyConfig{}, log),
		Tracer:    tracer.NewSimpleTracer(),
		Clock:     c,
	}
	return NewApp(in)
}

func TestJobs(t *testing.T) {
	a := newTestApp(t, map[string]string{"alerts": "", "hourly": "0 30 * * * *"})

	crons := map[string]string{}
	for _, job := range a.Jobs() {
		crons[job.Name] = job.Cron
	}

	assert.Len(t, crons, len(JobNames()))
	assert.Equal(t, "", crons["alerts"])
	assert.Equal(t, "0 30 * * * *", crons["hourly"])
	assert.Equal(t, "0 0 2 * * *", crons["cleanup"])
	assert.Equal(t, "0 */5 * * * *", crons["health"])
}

func TestRunJob(t *testing.T) {
	a := newTestApp(t, nil)
	ctx := context.Background()

	for _, name := range JobNames() {
		t.Run(name, func(t *testing.T) {
			assert.NoError(t, a.RunJob(ctx, name))
		})
	}

	t.Run("未知任务", func(t *testing.T) {
		err := a.RunJob(ctx, "yearly")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "yearly")
	})
}

func TestRegisterJobs(t *testing.T) {
	a := newTestApp(t, map[string]string{"weekly": ""})
	s := a.NewScheduler()

	require.NoError(t, a.RegisterJobs(s))
	assert.Len(t, s.ListTasks(), len(JobNames())-1)

	bad := newTestApp(t, map[string]string{"daily": "not a cron"})
	assert.Error(t, bad.RegisterJobs(bad.NewScheduler()))
}

func TestCleanupUsesClock(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	a := newTestAppAt(t, nil, clock.NewFakeClock(now))
	gdb := a.Infra.DB

	// 保留 90 天，截止时间为 2024-03-03
	for _, age := range []int{100, 10} {
		at := now.AddDate(0, 0, -age)
		require.NoError(t, gdb.Table("metrics").Create(map[string]interface{}{
			"pipeline_id": 1,
			"metric_type": "SUCCESS_RATE",
			"period":      "DAILY",
			"value":       90.0,
			"timestamp":   at,
			"created_at":  at,
			"updated_at":  at,
		}).Error)
		require.NoError(t, gdb.Table("alert_history").Create(map[string]interface{}{
			"alert_id": 1,
			"message":  "Pipeline failure detected",
			"severity": "ERROR",
			"status":   "SENT",
			"sent_at":  at,
		}).Error)
	}

	require.NoError(t, a.RunJob(context.Background(), "cleanup"))

	var metrics, history int64
	require.NoError(t, gdb.Table("metrics").Count(&metrics).Error)
	require.NoError(t, gdb.Table("alert_history").Count(&history).Error)
	assert.Equal(t, int64(1), metrics, "保留期内的指标不应被清理")
	assert.Equal(t, int64(1), history, "保留期内的告警历史不应被清理")
}
