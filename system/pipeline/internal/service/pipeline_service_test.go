package service

import (
	"context"
	"errors"
	"testing"
	"time"

	errorc "pipelinehealth/pkg/core/err"
	"pipelinehealth/pkg/live"
	"pipelinehealth/system/pipeline/api/dto"
	"pipelinehealth/system/pipeline/internal/model"
	reqdto "pipelinehealth/system/pipeline/internal/model/dto"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeMetricReader map[int64]dto.LatestMetrics

func (f fakeMetricReader) LatestMetrics(_ context.Context, ids []int64) (map[int64]dto.LatestMetrics, error) {
	out := make(map[int64]dto.LatestMetrics, len(ids))
	for _, id := range ids {
		if m, ok := f[id]; ok {
			out[id] = m
		}
	}
	return out, nil
}

func codeOf(err error) *errorc.ErrorCode {
	return errorc.ParseError(err).ErrorCode
}

func TestPipelineService_CreateAndUpdate(t *testing.T) {
	f := newFixture(t)
	svc := f.pipelines()

	created, err := svc.Create(ctx, &reqdto.SavePipelineReq{Name: "web", Type: dto.PipelineTypeGithubActions, Repository: "acme/web"})
	require.NoError(t, err)
	assert.Equal(t, "main", created.Branch)
	assert.Equal(t, dto.PipelineStatusUnknown, created.Status)

	_, err = svc.Create(ctx, &reqdto.SavePipelineReq{Name: "web", Type: dto.PipelineTypeJenkins, Repository: "x"})
	require.Error(t, err)
	assert.Equal(t, errorc.ErrorCodeConflict, codeOf(err))

	other, err := svc.Create(ctx, &reqdto.SavePipelineReq{Name: "api", Type: dto.PipelineTypeGitlabCI, Repository: "group/api"})
	require.NoError(t, err)

	t.Run("改名冲突", func(t *testing.T) {
		_, err := svc.Update(ctx, other.ID, &reqdto.SavePipelineReq{Name: "web", Type: dto.PipelineTypeGitlabCI, Repository: "group/api"})
		assert.Equal(t, errorc.ErrorCodeConflict, codeOf(err))
	})
	t.Run("正常更新", func(t *testing.T) {
		updated, err := svc.Update(ctx, other.ID, &reqdto.SavePipelineReq{Name: "api-v2", Type: dto.PipelineTypeGitlabCI, Repository: "group/api", Branch: "develop"})
		require.NoError(t, err)
		assert.Equal(t, "api-v2", updated.Name)
		assert.Equal(t, "develop", updated.Branch)
	})
	t.Run("不存在", func(t *testing.T) {
		_, err := svc.Update(ctx, 999, &reqdto.SavePipelineReq{Name: "x", Type: dto.PipelineTypeGitlabCI, Repository: "y"})
		assert.Equal(t, errorc.ErrorCodeNotFound, codeOf(err))
	})
}

func TestPipelineService_DeleteCascades(t *testing.T) {
	f := newFixture(t)
	svc := f.pipelines()

	var hooked []int64
	svc.OnDelete(func(_ context.Context, tx *gorm.DB, id int64) error {
		hooked = append(hooked, id)
		return nil
	})

	p := f.addPipeline(t, "web", dto.PipelineTypeGithubActions, "acme/web")
	keep := f.addPipeline(t, "keep", dto.PipelineTypeGithubActions, "acme/keep")
	b := f.addBuild(t, p.ID, dto.BuildStatusFailed, baseTime, secs(5))
	f.addBuild(t, keep.ID, dto.BuildStatusSuccess, baseTime, secs(5))
	require.NoError(t, f.db.Create(&model.BuildStage{BuildID: b.ID, Name: "test", Status: dto.BuildStatusFailed}).Error)

	require.NoError(t, svc.Delete(ctx, p.ID))
	assert.Equal(t, []int64{p.ID}, hooked)

	var builds, stages, pipelines int64
	f.db.Model(&model.Build{}).Count(&builds)
	f.db.Model(&model.BuildStage{}).Count(&stages)
	f.db.Model(&model.Pipeline{}).Count(&pipelines)
	assert.EqualValues(t, 1, builds)
	assert.EqualValues(t, 0, stages)
	assert.EqualValues(t, 1, pipelines)
}

func TestPipelineService_DeleteHookFailureRollsBack(t *testing.T) {
	f := newFixture(t)
	svc := f.pipelines()
	svc.OnDelete(func(context.Context, *gorm.DB, int64) error { return errors.New("boom") })

	p := f.addPipeline(t, "web", dto.PipelineTypeGithubActions, "acme/web")
	f.addBuild(t, p.ID, dto.BuildStatusSuccess, baseTime, nil)

	require.Error(t, svc.Delete(ctx, p.ID))

	var builds int64
	f.db.Model(&model.Build{}).Count(&builds)
	assert.EqualValues(t, 1, builds)
}

func TestPipelineService_Page(t *testing.T) {
	f := newFixture(t)
	svc := f.pipelines()

	web := f.addPipeline(t, "Web Frontend", dto.PipelineTypeGithubActions, "acme/web")
	f.addPipeline(t, "api", dto.PipelineTypeGitlabCI, "group/api")
	f.addBuild(t, web.ID, dto.BuildStatusSuccess, baseTime.Add(-time.Hour), secs(40))
	last := f.addBuild(t, web.ID, dto.BuildStatusFailed, baseTime, secs(20))

	svc.SetMetricReader(fakeMetricReader{web.ID: {SuccessRate: 50, AvgBuildTime: 30}})

	items, total, err := svc.Page(ctx, &reqdto.ListPipelineReq{Search: "WEB"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, items, 1)
	require.NotNil(t, items[0].LastBuild)
	assert.Equal(t, last.ID, items[0].LastBuild.ID)
	assert.Equal(t, reqdto.PipelineMetrics{SuccessRate: 50, AvgBuildTime: 30, TotalBuilds: 2}, items[0].Metrics)

	items, total, err = svc.Page(ctx, &reqdto.ListPipelineReq{Type: dto.PipelineTypeGitlabCI})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Nil(t, items[0].LastBuild)
	assert.Zero(t, items[0].Metrics.SuccessRate)
}

func TestBuildService_TriggerAndCancel(t *testing.T) {
	f := newFixture(t)
	svc := f.builds()
	p := f.addPipeline(t, "web", dto.PipelineTypeGithubActions, "acme/web")

	build, err := svc.Trigger(ctx, p.ID, &reqdto.TriggerBuildReq{}, "dev@example.com")
	require.NoError(t, err)
	assert.Equal(t, dto.BuildStatusPending, build.Status)
	assert.Equal(t, dto.TriggerTypeManual, build.TriggerType)
	assert.Equal(t, "main", build.Branch)
	assert.Contains(t, build.ExternalID, "manual-")
	assert.Equal(t, "Manual trigger", build.Metadata["triggerReason"])
	assert.Equal(t, "dev@example.com", build.Metadata["triggeredBy"])

	_, err = svc.Trigger(ctx, 999, &reqdto.TriggerBuildReq{}, "")
	assert.Equal(t, errorc.ErrorCodeNotFound, codeOf(err))

	cancelled, err := svc.Cancel(ctx, build.ID)
	require.NoError(t, err)
	assert.Equal(t, dto.BuildStatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.EndTime)
	assert.True(t, cancelled.EndTime.Equal(baseTime))

	_, err = svc.Cancel(ctx, build.ID)
	require.Error(t, err)
	assert.Equal(t, errorc.ErrorCodeValid, codeOf(err))
	assert.Equal(t, "Only running or pending builds can be cancelled", errorc.ParseError(err).Msg)

	assert.Len(t, f.recorder.Named(live.EventBuildUpdate), 2)
}

func TestBuildService_CancelRunningSetsDuration(t *testing.T) {
	f := newFixture(t)
	svc := f.builds()
	p := f.addPipeline(t, "web", dto.PipelineTypeGithubActions, "acme/web")

	b := f.addBuild(t, p.ID, dto.BuildStatusRunning, baseTime.Add(-time.Minute), nil)
	start := baseTime.Add(-90 * time.Second)
	require.NoError(t, f.db.Model(b).Update("start_time", start).Error)

	cancelled, err := svc.Cancel(ctx, b.ID)
	require.NoError(t, err)
	require.NotNil(t, cancelled.Duration)
	assert.EqualValues(t, 90, *cancelled.Duration)
}
