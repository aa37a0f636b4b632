package service

import (
	"testing"
	"time"

	"pipelinehealth/pkg/live"
	"pipelinehealth/system/pipeline/api/dto"
	"pipelinehealth/system/pipeline/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDerive(t *testing.T) {
	now := baseTime
	build := func(status dto.BuildStatus, age time.Duration) *model.Build {
		b := &model.Build{Status: status}
		b.CreatedAt = now.Add(-age)
		return b
	}

	tests := []struct {
		name   string
		latest *model.Build
		want   dto.PipelineStatus
	}{
		{"没有构建", nil, dto.PipelineStatusUnknown},
		{"最近构建成功", build(dto.BuildStatusSuccess, time.Hour), dto.PipelineStatusSuccess},
		{"最近构建运行中", build(dto.BuildStatusRunning, time.Minute), dto.PipelineStatusRunning},
		{"取消映射为未知", build(dto.BuildStatusCancelled, time.Minute), dto.PipelineStatusUnknown},
		{"跳过映射为未知", build(dto.BuildStatusSkipped, time.Minute), dto.PipelineStatusUnknown},
		{"恰好 24 小时不算停用", build(dto.BuildStatusFailed, 24*time.Hour), dto.PipelineStatusFailed},
		{"超过 24 小时停用", build(dto.BuildStatusSuccess, 24*time.Hour+time.Second), dto.PipelineStatusDisabled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Derive(tt.latest, now))
		})
	}
}

func TestRefreshHealth_WritesOnlyOnChange(t *testing.T) {
	f := newFixture(t)
	svc := f.health()

	p := f.addPipeline(t, "web", dto.PipelineTypeGithubActions, "acme/web")
	f.addBuild(t, p.ID, dto.BuildStatusSuccess, baseTime.Add(-2*time.Hour), secs(60))
	f.addBuild(t, p.ID, dto.BuildStatusFailed, baseTime.Add(-time.Hour), secs(30))

	changed, err := svc.RefreshHealth(ctx, p)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, dto.PipelineStatusFailed, f.reload(t, p.ID).Status)
	assert.True(t, f.reload(t, p.ID).UpdatedAt.Equal(baseTime), "状态变化时 updated_at 取当前时钟")
	require.Len(t, f.recorder.Named(live.EventPipelineUpdate), 1)

	// 再次刷新不写库也不推送
	before := f.reload(t, p.ID).UpdatedAt
	changed, err = svc.RefreshHealth(ctx, f.reload(t, p.ID))
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, before, f.reload(t, p.ID).UpdatedAt)
	assert.Len(t, f.recorder.Named(live.EventPipelineUpdate), 1)

	// 新构建改变状态后 updated_at 前进
	f.clock.Advance(10 * time.Minute)
	f.addBuild(t, p.ID, dto.BuildStatusSuccess, f.clock.Now(), secs(20))
	changed, err = svc.RefreshHealth(ctx, f.reload(t, p.ID))
	require.NoError(t, err)
	assert.True(t, changed)
	after := f.reload(t, p.ID)
	assert.Equal(t, dto.PipelineStatusSuccess, after.Status)
	assert.True(t, after.UpdatedAt.After(before))
	assert.True(t, after.UpdatedAt.Equal(baseTime.Add(10*time.Minute)))
}

func TestRefreshHealth_InactivityBoundary(t *testing.T) {
	f := newFixture(t)
	svc := f.health()

	p := f.addPipeline(t, "api", dto.PipelineTypeGitlabCI, "group/api")
	f.addBuild(t, p.ID, dto.BuildStatusSuccess, baseTime.Add(-24*time.Hour), secs(10))

	_, err := svc.RefreshHealth(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, dto.PipelineStatusSuccess, f.reload(t, p.ID).Status)

	f.clock.Advance(time.Second)
	changed, err := svc.RefreshHealth(ctx, f.reload(t, p.ID))
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, dto.PipelineStatusDisabled, f.reload(t, p.ID).Status)
}

func TestRefreshAll(t *testing.T) {
	f := newFixture(t)
	svc := f.health()

	empty := f.addPipeline(t, "empty", dto.PipelineTypeJenkins, "jobs/empty")
	busy := f.addPipeline(t, "busy", dto.PipelineTypeJenkins, "jobs/busy")
	f.addBuild(t, busy.ID, dto.BuildStatusRunning, baseTime.Add(-time.Minute), nil)

	require.NoError(t, svc.RefreshAll(ctx))
	assert.Equal(t, dto.PipelineStatusUnknown, f.reload(t, empty.ID).Status)
	assert.Equal(t, dto.PipelineStatusRunning, f.reload(t, busy.ID).Status)
	// 空流水线本就是 UNKNOWN，只有 busy 发生变化
	assert.Len(t, f.recorder.Named(live.EventPipelineUpdate), 1)
}
