package service

import (
	"context"
	"errors"
	"time"

	errorc "pipelinehealth/pkg/core/err"
	pipelinedto "pipelinehealth/system/pipeline/api/dto"
)

// fakeSource 内存中的流水线数据
type fakeSource struct {
	pipelines  []*pipelinedto.PipelineDTO
	builds     []*pipelinedto.BuildDTO
	pending    map[int64]int64
	failFor    map[int64]bool
	overview   *pipelinedto.BuildOverview
	comparison []pipelinedto.PipelineBuildStats
	window     pipelinedto.WindowSummary
	statuses   []pipelinedto.StatusCount
	running    []pipelinedto.BuildWithPipeline
	windowFrom time.Time
}

func newFakeSource() *fakeSource {
	return &fakeSource{pending: map[int64]int64{}, failFor: map[int64]bool{}}
}

func (f *fakeSource) addPipeline(id int64, name string) {
	f.pipelines = append(f.pipelines, &pipelinedto.PipelineDTO{ID: id, Name: name, Type: pipelinedto.PipelineTypeGithubActions})
}

func (f *fakeSource) addBuild(pipelineID int64, status pipelinedto.BuildStatus, createdAt time.Time, duration *int64) {
	f.builds = append(f.builds, &pipelinedto.BuildDTO{
		ID:         int64(len(f.builds) + 1),
		PipelineID: pipelineID,
		Status:     status,
		Duration:   duration,
		CreatedAt:  createdAt,
	})
}

func (f *fakeSource) ListPipelines(context.Context) ([]*pipelinedto.PipelineDTO, error) {
	return f.pipelines, nil
}

func (f *fakeSource) GetPipeline(_ context.Context, id int64) (*pipelinedto.PipelineDTO, error) {
	for _, p := range f.pipelines {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, errorc.NewErrorBuilder("fakeSource").NotFound("Pipeline not found")
}

func (f *fakeSource) BuildsCreatedBetween(_ context.Context, pipelineID int64, from, to time.Time) ([]*pipelinedto.BuildDTO, error) {
	if f.failFor[pipelineID] {
		return nil, errors.New("query failed")
	}
	var out []*pipelinedto.BuildDTO
	for _, b := range f.builds {
		if b.PipelineID == pipelineID && !b.CreatedAt.Before(from) && !b.CreatedAt.After(to) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeSource) CountBuilds(_ context.Context, scope pipelinedto.BuildScope, status pipelinedto.BuildStatus) (int64, error) {
	if status != pipelinedto.BuildStatusPending {
		return 0, nil
	}
	if scope.PipelineID != nil {
		return f.pending[*scope.PipelineID], nil
	}
	var total int64
	for _, n := range f.pending {
		total += n
	}
	return total, nil
}

func (f *fakeSource) Overview(context.Context, int) (*pipelinedto.BuildOverview, error) {
	return f.overview, nil
}

func (f *fakeSource) RecentBuilds(context.Context, int) ([]pipelinedto.BuildWithPipeline, error) {
	return []pipelinedto.BuildWithPipeline{}, nil
}

func (f *fakeSource) RunningBuilds(context.Context) ([]pipelinedto.BuildWithPipeline, error) {
	return f.running, nil
}

func (f *fakeSource) RecentDurations(context.Context, pipelinedto.BuildScope, int) ([]pipelinedto.DurationPoint, error) {
	return []pipelinedto.DurationPoint{}, nil
}

func (f *fakeSource) FailedBuilds(context.Context, pipelinedto.BuildScope, int) ([]pipelinedto.FailedBuild, error) {
	return []pipelinedto.FailedBuild{}, nil
}

func (f *fakeSource) StageFailures(context.Context, pipelinedto.BuildScope, int) ([]pipelinedto.StageFailure, error) {
	return []pipelinedto.StageFailure{}, nil
}

func (f *fakeSource) Comparison(context.Context) ([]pipelinedto.PipelineBuildStats, error) {
	return f.comparison, nil
}

func (f *fakeSource) WindowSummary(_ context.Context, since time.Time) (pipelinedto.WindowSummary, error) {
	f.windowFrom = since
	return f.window, nil
}

func (f *fakeSource) PipelineStatuses(context.Context) ([]pipelinedto.StatusCount, error) {
	return f.statuses, nil
}
