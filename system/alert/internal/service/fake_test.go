package service

import (
	"context"
	"sync"
	"time"

	errorc "pipelinehealth/pkg/core/err"
	"pipelinehealth/pkg/notifier"
	pipelinedto "pipelinehealth/system/pipeline/api/dto"
)

// fakeSource 内存中的流水线与构建
type fakeSource struct {
	pipelines []*pipelinedto.PipelineDTO
	builds    []*pipelinedto.BuildDTO
}

func (f *fakeSource) addPipeline(id int64, name string) {
	f.pipelines = append(f.pipelines, &pipelinedto.PipelineDTO{ID: id, Name: name})
}

func (f *fakeSource) addBuild(pipelineID int64, status pipelinedto.BuildStatus, createdAt time.Time, duration *int64) *pipelinedto.BuildDTO {
	b := &pipelinedto.BuildDTO{
		ID:         int64(len(f.builds) + 1),
		PipelineID: pipelineID,
		Status:     status,
		Duration:   duration,
		CreatedAt:  createdAt,
	}
	f.builds = append(f.builds, b)
	return b
}

func (f *fakeSource) inScope(b *pipelinedto.BuildDTO, scope pipelinedto.BuildScope) bool {
	return scope.PipelineID == nil || *scope.PipelineID == b.PipelineID
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

func (f *fakeSource) LatestBuild(_ context.Context, pipelineID int64) (*pipelinedto.BuildDTO, error) {
	var latest *pipelinedto.BuildDTO
	for _, b := range f.builds {
		if b.PipelineID == pipelineID && (latest == nil || b.CreatedAt.After(latest.CreatedAt)) {
			latest = b
		}
	}
	return latest, nil
}

func (f *fakeSource) CountBuilds(_ context.Context, scope pipelinedto.BuildScope, status pipelinedto.BuildStatus) (int64, error) {
	var n int64
	for _, b := range f.builds {
		if f.inScope(b, scope) && b.Status == status {
			n++
		}
	}
	return n, nil
}

func (f *fakeSource) HasBuildSince(_ context.Context, scope pipelinedto.BuildScope, status pipelinedto.BuildStatus, since time.Time) (bool, error) {
	for _, b := range f.builds {
		if f.inScope(b, scope) && b.Status == status && !b.CreatedAt.Before(since) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeSource) DurationStatsSince(_ context.Context, scope pipelinedto.BuildScope, since time.Time) (pipelinedto.DurationStats, error) {
	var stats pipelinedto.DurationStats
	var total int64
	for _, b := range f.builds {
		if !f.inScope(b, scope) || b.CreatedAt.Before(since) || b.Duration == nil {
			continue
		}
		if b.Status == pipelinedto.BuildStatusSuccess || b.Status == pipelinedto.BuildStatusFailed {
			stats.Count++
			total += *b.Duration
		}
	}
	if stats.Count > 0 {
		stats.Average = float64(total) / float64(stats.Count)
	}
	return stats, nil
}

func (f *fakeSource) OutcomeStatsSince(_ context.Context, scope pipelinedto.BuildScope, since time.Time) (pipelinedto.OutcomeStats, error) {
	var stats pipelinedto.OutcomeStats
	for _, b := range f.builds {
		if !f.inScope(b, scope) || b.CreatedAt.Before(since) {
			continue
		}
		switch b.Status {
		case pipelinedto.BuildStatusSuccess:
			stats.Success++
		case pipelinedto.BuildStatusFailed:
			stats.Failed++
		}
	}
	return stats, nil
}

// fakeNotifier 记录发送请求，fail 为 true 时所有渠道失败
type fakeNotifier struct {
	mu       sync.Mutex
	requests []notifier.Request
	fail     bool
}

func (n *fakeNotifier) Send(_ context.Context, req notifier.Request) notifier.Result {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.requests = append(n.requests, req)
	if n.fail {
		return notifier.Result{FailedChannels: []string{notifier.ChannelWebhook}, Errors: []string{"webhook: boom"}}
	}
	return notifier.Result{Success: true, SentChannels: []string{notifier.ChannelWebhook}}
}

func (n *fakeNotifier) Test(ctx context.Context, channels notifier.Channels) notifier.Result {
	return n.Send(ctx, notifier.Request{
		Message:  "This is a test notification from the CI/CD Pipeline Health Dashboard",
		Severity: notifier.SeverityInfo,
		Channels: channels,
	})
}

func (n *fakeNotifier) sent() []notifier.Request {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]notifier.Request, len(n.requests))
	copy(out, n.requests)
	return out
}
