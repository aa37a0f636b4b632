package service

import (
	"context"
	"testing"
	"time"

	"pipelinehealth/pkg/clock"
	"pipelinehealth/pkg/core/logger"
	"pipelinehealth/pkg/dbtest"
	"pipelinehealth/pkg/live"
	"pipelinehealth/system/metric/api/dto"
	"pipelinehealth/system/metric/internal/dao"
	"pipelinehealth/system/metric/internal/model"
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
	dao      *dao.MetricDao
	source   *fakeSource
	recorder *live.Recorder
	clock    *clock.FakeClock
	log      *logger.Log
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := dbtest.Open(t, &model.Metric{})
	log := logger.GetLogger()
	return &fixture{
		db:       db,
		dao:      dao.NewMetricDao(db, log),
		source:   newFakeSource(),
		recorder: &live.Recorder{},
		clock:    clock.NewFakeClock(baseTime),
		log:      log,
	}
}

func (f *fixture) aggregator() *Aggregator {
	return NewAggregator(f.source, f.dao, f.recorder, f.clock, f.log)
}

func (f *fixture) metrics(t *testing.T) []model.Metric {
	t.Helper()
	var rows []model.Metric
	require.NoError(t, f.db.Order("id").Find(&rows).Error)
	return rows
}

func secs(v int64) *int64 {
	return &v
}

func TestComputeMetrics(t *testing.T) {
	f := newFixture(t)
	f.source.addPipeline(1, "web")
	f.source.pending[1] = 2

	// 7 次成功 3 次失败，其中一次没有耗时、一次耗时为 0
	durations := []*int64{secs(100), secs(200), secs(300), secs(400), secs(500), nil, secs(0)}
	for i, d := range durations {
		f.source.addBuild(1, pipelinedto.BuildStatusSuccess, baseTime.Add(-time.Duration(i+1)*time.Minute), d)
	}
	for i := 0; i < 3; i++ {
		f.source.addBuild(1, pipelinedto.BuildStatusFailed, baseTime.Add(-time.Duration(i+10)*time.Minute), secs(600))
	}
	// 窗口外的构建不参与计算
	f.source.addBuild(1, pipelinedto.BuildStatusFailed, baseTime.Add(-2*time.Hour), secs(9000))

	snapshot, err := f.aggregator().ComputeMetrics(ctx, 1, dto.PeriodHourly)
	require.NoError(t, err)
	require.NotNil(t, snapshot)

	assert.InDelta(t, 70.0, snapshot.SuccessRate, 1e-9)
	assert.InDelta(t, (100+200+300+400+500+600*3)/8.0, snapshot.AvgBuildTime, 1e-9)
	assert.EqualValues(t, 3, snapshot.FailureCount)
	assert.EqualValues(t, 2, snapshot.QueueLength)

	rows := f.metrics(t)
	require.Len(t, rows, 4)
	values := map[dto.MetricType]float64{}
	for _, r := range rows {
		assert.Equal(t, dto.PeriodHourly, r.Period)
		assert.True(t, r.Timestamp.Equal(baseTime))
		values[r.MetricType] = r.Value
	}
	assert.InDelta(t, 70.0, values[dto.MetricTypeSuccessRate], 1e-9)
	assert.InDelta(t, 3.0, values[dto.MetricTypeFailureCount], 1e-9)
	assert.InDelta(t, 2.0, values[dto.MetricTypeQueueLength], 1e-9)

	events := f.recorder.Named(live.EventMetricsUpdate)
	require.Len(t, events, 1)
	assert.EqualValues(t, 1, events[0].PipelineID)
	assert.Equal(t, snapshot, events[0].Data)
}

func TestComputeMetricsEmptyWindow(t *testing.T) {
	f := newFixture(t)
	f.source.addPipeline(1, "web")
	f.source.addBuild(1, pipelinedto.BuildStatusSuccess, baseTime.Add(-25*time.Hour), secs(60))

	snapshot, err := f.aggregator().ComputeMetrics(ctx, 1, dto.PeriodDaily)
	require.NoError(t, err)
	assert.Nil(t, snapshot)
	assert.Empty(t, f.metrics(t))
	assert.Empty(t, f.recorder.Events())
}

func TestComputeMetricsWithoutDurations(t *testing.T) {
	f := newFixture(t)
	f.source.addBuild(1, pipelinedto.BuildStatusRunning, baseTime.Add(-time.Minute), nil)
	f.source.addBuild(1, pipelinedto.BuildStatusSuccess, baseTime.Add(-2*time.Minute), secs(0))

	snapshot, err := f.aggregator().ComputeMetrics(ctx, 1, dto.PeriodDaily)
	require.NoError(t, err)
	require.NotNil(t, snapshot)
	assert.Zero(t, snapshot.AvgBuildTime)
	assert.InDelta(t, 50.0, snapshot.SuccessRate, 1e-9)
}

func TestComputeMetricsWindows(t *testing.T) {
	tests := []struct {
		name   string
		period dto.Period
		age    time.Duration
		want   bool
	}{
		{"小时窗口内", dto.PeriodHourly, 59 * time.Minute, true},
		{"小时窗口边界", dto.PeriodHourly, time.Hour, true},
		{"小时窗口外", dto.PeriodHourly, 61 * time.Minute, false},
		{"周窗口内", dto.PeriodWeekly, 6 * 24 * time.Hour, true},
		{"月窗口外", dto.PeriodMonthly, 31 * 24 * time.Hour, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.source.addBuild(1, pipelinedto.BuildStatusSuccess, baseTime.Add(-tt.age), secs(10))

			snapshot, err := f.aggregator().ComputeMetrics(ctx, 1, tt.period)
			require.NoError(t, err)
			assert.Equal(t, tt.want, snapshot != nil)
		})
	}
}

func TestComputeMetricsInvalidPeriod(t *testing.T) {
	f := newFixture(t)
	_, err := f.aggregator().ComputeMetrics(ctx, 1, dto.Period("YEARLY"))
	assert.Error(t, err)
}

func TestComputeAllContinuesAfterFailure(t *testing.T) {
	f := newFixture(t)
	for _, id := range []int64{1, 2, 3} {
		f.source.addPipeline(id, "p")
		f.source.addBuild(id, pipelinedto.BuildStatusSuccess, baseTime.Add(-time.Minute), secs(30))
	}
	f.source.failFor[2] = true

	require.NoError(t, f.aggregator().ComputeAll(ctx, dto.PeriodDaily))

	rows := f.metrics(t)
	assert.Len(t, rows, 8)
	pipelines := map[int64]bool{}
	for _, r := range rows {
		pipelines[r.PipelineID] = true
	}
	assert.Equal(t, map[int64]bool{1: true, 3: true}, pipelines)
	assert.Len(t, f.recorder.Named(live.EventMetricsUpdate), 2)
}
