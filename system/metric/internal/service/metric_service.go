package service

import (
	"context"
	"math"
	"sort"
	"time"

	"pipelinehealth/pkg/clock"
	errorc "pipelinehealth/pkg/core/err"
	"pipelinehealth/pkg/core/logger"
	"pipelinehealth/pkg/core/mvc"
	"pipelinehealth/pkg/live"
	"pipelinehealth/system/metric/api/dto"
	"pipelinehealth/system/metric/internal/dao"
	"pipelinehealth/system/metric/internal/model"
	reqdto "pipelinehealth/system/metric/internal/model/dto"
	pipelinedto "pipelinehealth/system/pipeline/api/dto"
	"pipelinehealth/utils"

	"github.com/go-redis/cache/v9"
	"gorm.io/gorm"
)

const (
	recentLimit      = 10
	durationLimit    = 100
	stageFailureTop  = 10
	defaultTrendSize = 30
	defaultFailures  = 20

	overviewCacheKey = "metrics:overview"
	realtimeCacheKey = "metrics:realtime"
	overviewTTL      = 30 * time.Second
	realtimeTTL      = 5 * time.Second
)

// MetricService 看板统计查询，概览与实时数据走缓存
type MetricService struct {
	mvc.IBaseService[model.Metric]
	dao    *dao.MetricDao
	source PipelineSource
	cache  *cache.Cache
	clock  clock.Clock
	log    *logger.Log
	err    *errorc.ErrorBuilder
}

func NewMetricService(metricDao *dao.MetricDao, source PipelineSource, c *cache.Cache, clk clock.Clock, log *logger.Log) *MetricService {
	return &MetricService{
		IBaseService: mvc.NewBaseService[model.Metric](metricDao.IBaseDao),
		dao:          metricDao,
		source:       source,
		cache:        c,
		clock:        clk,
		log:          log.WithEntryName("MetricService"),
		err:          errorc.NewErrorBuilder("MetricService"),
	}
}

func (s *MetricService) Overview(ctx context.Context) (*dto.Overview, error) {
	return once(ctx, s.cache, overviewCacheKey, overviewTTL, func() (*dto.Overview, error) {
		raw, err := s.source.Overview(ctx, recentLimit)
		if err != nil {
			return nil, err
		}
		return toOverview(raw), nil
	})
}

// once 读取缓存，未命中时计算并回填；未配置缓存时直接计算
func once[T any](ctx context.Context, c *cache.Cache, key string, ttl time.Duration, do func() (*T, error)) (*T, error) {
	if c == nil {
		return do()
	}
	var out *T
	err := c.Once(&cache.Item{
		Ctx:   ctx,
		Key:   key,
		Value: &out,
		TTL:   ttl,
		Do: func(*cache.Item) (interface{}, error) {
			return do()
		},
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func toOverview(raw *pipelinedto.BuildOverview) *dto.Overview {
	var rate float64
	if raw.TotalBuilds > 0 {
		rate = utils.Round2(float64(raw.SuccessBuilds) / float64(raw.TotalBuilds) * 100)
	}
	return &dto.Overview{
		Summary: dto.OverviewSummary{
			TotalPipelines: raw.TotalPipelines,
			TotalBuilds:    raw.TotalBuilds,
			RunningBuilds:  raw.RunningBuilds,
			FailedBuilds:   raw.FailedBuilds,
			SuccessBuilds:  raw.SuccessBuilds,
			SuccessRate:    rate,
		},
		PipelineStatuses: raw.PipelineStatuses,
		BuildTimeStats: dto.BuildTimeStats{
			Average: math.Round(raw.DurationAverage),
			Minimum: raw.DurationMinimum,
			Maximum: raw.DurationMaximum,
		},
		RecentBuilds: raw.RecentBuilds,
	}
}

// trend 按时间正序返回最近的 limit 条
func (s *MetricService) trend(ctx context.Context, metricType dto.MetricType, req *reqdto.TrendReq) (dto.Period, []dto.MetricPoint, error) {
	period := req.Period
	if period == "" {
		period = dto.PeriodDaily
	}
	metrics, err := s.dao.FindLatest(ctx, dao.MetricQuery{
		PipelineID: req.PipelineID,
		MetricType: metricType,
		Period:     period,
		Limit:      defaultInt(req.Limit, defaultTrendSize),
	})
	if err != nil {
		return period, nil, err
	}

	points, err := s.withPipelines(ctx, metrics)
	if err != nil {
		return period, nil, err
	}
	for i, j := 0, len(points)-1; i < j; i, j = i+1, j-1 {
		points[i], points[j] = points[j], points[i]
	}
	return period, points, nil
}

func (s *MetricService) withPipelines(ctx context.Context, metrics []*model.Metric) ([]dto.MetricPoint, error) {
	pipelines, err := s.source.ListPipelines(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]*pipelinedto.PipelineDTO, len(pipelines))
	for _, p := range pipelines {
		byID[p.ID] = p
	}

	points := make([]dto.MetricPoint, 0, len(metrics))
	for _, m := range metrics {
		point := m.ToPoint()
		if p, ok := byID[m.PipelineID]; ok {
			point.PipelineName = p.Name
			point.PipelineType = p.Type
		}
		points = append(points, point)
	}
	return points, nil
}

func (s *MetricService) SuccessRate(ctx context.Context, req *reqdto.TrendReq) (*dto.Trend, error) {
	period, points, err := s.trend(ctx, dto.MetricTypeSuccessRate, req)
	if err != nil {
		return nil, err
	}
	return &dto.Trend{Period: period, Metrics: points}, nil
}

// BuildTimes 附带最近 100 次构建的实际耗时
func (s *MetricService) BuildTimes(ctx context.Context, req *reqdto.TrendReq) (*dto.BuildTimeTrend, error) {
	period, points, err := s.trend(ctx, dto.MetricTypeBuildTime, req)
	if err != nil {
		return nil, err
	}
	durations, err := s.source.RecentDurations(ctx, scopeOf(req.PipelineID), durationLimit)
	if err != nil {
		return nil, err
	}
	return &dto.BuildTimeTrend{Period: period, Metrics: points, BuildDurations: durations}, nil
}

func (s *MetricService) Failures(ctx context.Context, req *reqdto.FailureReq) (*dto.FailureAnalysis, error) {
	scope := scopeOf(req.PipelineID)
	failed, err := s.source.FailedBuilds(ctx, scope, defaultInt(req.Limit, defaultFailures))
	if err != nil {
		return nil, err
	}
	stages, err := s.source.StageFailures(ctx, scope, stageFailureTop)
	if err != nil {
		return nil, err
	}
	return &dto.FailureAnalysis{FailedBuilds: failed, StageFailures: stages}, nil
}

// Comparison 按成功率降序
func (s *MetricService) Comparison(ctx context.Context) ([]dto.Comparison, error) {
	stats, err := s.source.Comparison(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]dto.Comparison, 0, len(stats))
	for _, st := range stats {
		c := dto.Comparison{
			ID:               st.ID,
			Name:             st.Name,
			Type:             st.Type,
			Repository:       st.Repository,
			TotalBuilds:      st.TotalBuilds,
			AverageBuildTime: math.Round(st.AverageBuildTime),
			LastStatus:       st.LastStatus,
		}
		if st.TotalBuilds > 0 {
			c.SuccessRate = utils.Round2(float64(st.SuccessfulBuilds) / float64(st.TotalBuilds) * 100)
		}
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].SuccessRate > out[j].SuccessRate
	})
	return out, nil
}

func (s *MetricService) Realtime(ctx context.Context) (*dto.Realtime, error) {
	return once(ctx, s.cache, realtimeCacheKey, realtimeTTL, func() (*dto.Realtime, error) {
		running, err := s.source.RunningBuilds(ctx)
		if err != nil {
			return nil, err
		}
		recent, err := s.source.RecentBuilds(ctx, recentLimit)
		if err != nil {
			return nil, err
		}
		queue, err := s.source.CountBuilds(ctx, pipelinedto.BuildScope{}, pipelinedto.BuildStatusPending)
		if err != nil {
			return nil, err
		}
		return &dto.Realtime{
			RunningBuilds:  running,
			RecentActivity: recent,
			QueueLength:    queue,
			LastUpdated:    live.Timestamp(s.clock.Now()),
		}, nil
	})
}

// Summary 最近 24 小时的整体成功率与平均耗时
func (s *MetricService) Summary(ctx context.Context) (*dto.Summary, error) {
	window, err := s.source.WindowSummary(ctx, s.clock.Now().Add(-24*time.Hour))
	if err != nil {
		return nil, err
	}
	statuses, err := s.source.PipelineStatuses(ctx)
	if err != nil {
		return nil, err
	}

	out := &dto.Summary{
		AverageBuildTime: math.Round(window.AverageBuildTime),
		TotalBuilds:      window.TotalBuilds,
		SuccessfulBuilds: window.SuccessfulBuilds,
		PipelineStatuses: statuses,
	}
	if window.TotalBuilds > 0 {
		out.OverallSuccessRate = utils.Round2(float64(window.SuccessfulBuilds) / float64(window.TotalBuilds) * 100)
	}
	return out, nil
}

// PipelineMetrics 单条流水线的指标，时间倒序
func (s *MetricService) PipelineMetrics(ctx context.Context, pipelineID int64, req *reqdto.PipelineMetricsReq) (*dto.PipelineMetrics, error) {
	if _, err := s.source.GetPipeline(ctx, pipelineID); err != nil {
		return nil, err
	}

	period := req.Period
	if period == "" {
		period = dto.PeriodDaily
	}
	metrics, err := s.dao.FindLatest(ctx, dao.MetricQuery{
		PipelineID: pipelineID,
		Period:     period,
		Limit:      defaultInt(req.Limit, defaultTrendSize),
	})
	if err != nil {
		return nil, err
	}

	points := make([]dto.MetricPoint, 0, len(metrics))
	for _, m := range metrics {
		points = append(points, m.ToPoint())
	}
	return &dto.PipelineMetrics{PipelineID: pipelineID, Period: period, Metrics: points}, nil
}

// LatestMetrics 流水线列表展示的最新成功率与平均耗时
func (s *MetricService) LatestMetrics(ctx context.Context, pipelineIDs []int64) (map[int64]pipelinedto.LatestMetrics, error) {
	rates, err := s.dao.LatestValues(ctx, pipelineIDs, dto.MetricTypeSuccessRate)
	if err != nil {
		return nil, err
	}
	times, err := s.dao.LatestValues(ctx, pipelineIDs, dto.MetricTypeBuildTime)
	if err != nil {
		return nil, err
	}

	out := make(map[int64]pipelinedto.LatestMetrics, len(pipelineIDs))
	for _, id := range pipelineIDs {
		out[id] = pipelinedto.LatestMetrics{SuccessRate: rates[id], AvgBuildTime: times[id]}
	}
	return out, nil
}

// Cleanup 删除早于 cutoff 的指标
func (s *MetricService) Cleanup(ctx context.Context, cutoff time.Time) (int64, error) {
	n, err := s.dao.DeleteBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	s.log.WithField("deleted", n).WithField("cutoff", cutoff).Info("历史指标清理完成")
	return n, nil
}

// DeleteByPipeline 流水线删除时在同一事务内清理指标
func (s *MetricService) DeleteByPipeline(ctx context.Context, tx *gorm.DB, pipelineID int64) error {
	return s.dao.WithTx(tx).DeleteByPipeline(ctx, pipelineID)
}

func defaultInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
