package dao

import (
	"context"
	"errors"
	"strings"
	"time"

	errorc "pipelinehealth/pkg/core/err"
	"pipelinehealth/pkg/core/logger"
	"pipelinehealth/pkg/core/mvc"
	"pipelinehealth/system/pipeline/api/dto"
	"pipelinehealth/system/pipeline/internal/model"

	"gorm.io/gorm"
)

// BuildDao 构建数据访问层
type BuildDao struct {
	mvc.IBaseDao[model.Build]
	log *logger.Log
	err *errorc.ErrorBuilder
	db  *gorm.DB
}

func NewBuildDao(db *gorm.DB, log *logger.Log) *BuildDao {
	return &BuildDao{
		IBaseDao: mvc.NewGormDao[model.Build](db),
		log:      log,
		err:      errorc.NewErrorBuilder("BuildDao"),
		db:       db,
	}
}

// terminalOutcomes 告警与统计只看已结束的成功/失败构建
var terminalOutcomes = []dto.BuildStatus{dto.BuildStatusSuccess, dto.BuildStatusFailed}

func scoped(db *gorm.DB, scope dto.BuildScope) *gorm.DB {
	if scope.PipelineID != nil {
		return db.Where("pipeline_id = ?", *scope.PipelineID)
	}
	return db
}

func (d *BuildDao) model(ctx context.Context) *gorm.DB {
	return d.db.WithContext(ctx).Model(&model.Build{})
}

type BuildFilter struct {
	PipelineID  int64
	Status      dto.BuildStatus
	Branch      string
	TriggerType dto.TriggerType
}

// FindPage 按创建时间倒序分页，预加载流水线与阶段
func (d *BuildDao) FindPage(ctx context.Context, page *mvc.Page, filter BuildFilter) ([]*model.Build, int64, error) {
	query := d.model(ctx)
	if filter.PipelineID > 0 {
		query = query.Where("pipeline_id = ?", filter.PipelineID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Branch != "" {
		query = query.Where("LOWER(branch) LIKE ?", "%"+strings.ToLower(filter.Branch)+"%")
	}
	if filter.TriggerType != "" {
		query = query.Where("trigger_type = ?", filter.TriggerType)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, d.err.New("统计构建数量失败", err).DB()
	}

	var builds []*model.Build
	err := query.Preload("Pipeline").Preload("Stages").
		Scopes(mvc.Paginate(page)).
		Order("created_at DESC").Order("id DESC").
		Find(&builds).Error
	if err != nil {
		return nil, 0, d.err.New("分页查询构建失败", err).DB()
	}
	return builds, total, nil
}

// FindDetail 带流水线与按创建顺序排列的阶段
func (d *BuildDao) FindDetail(ctx context.Context, id int64) (*model.Build, error) {
	var build model.Build
	err := d.db.WithContext(ctx).
		Preload("Pipeline").
		Preload("Stages", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC").Order("id ASC") }).
		First(&build, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, d.err.New("Build not found", err).NotFound()
		}
		return nil, d.err.New("查询构建详情失败", err).DB()
	}
	return &build, nil
}

// FindByExternalID 找不到返回 nil
func (d *BuildDao) FindByExternalID(ctx context.Context, pipelineID int64, externalID string) (*model.Build, error) {
	var build model.Build
	err := d.db.WithContext(ctx).
		Where("pipeline_id = ? AND external_id = ?", pipelineID, externalID).
		First(&build).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, d.err.New("按外部ID查询构建失败", err).DB()
	}
	return &build, nil
}

// Save 按主键整行保存，零值字段也会写入
func (d *BuildDao) Save(ctx context.Context, build *model.Build) error {
	if err := d.db.WithContext(ctx).Omit("Pipeline", "Stages").Save(build).Error; err != nil {
		return d.err.New("保存构建失败", err).DB()
	}
	return nil
}

// FindCreatedBetween 指定流水线在 [from, to] 内创建的构建
// 库中时间以 UTC 存储，SQLite 按字符串比较，查询参数统一转为 UTC
func (d *BuildDao) FindCreatedBetween(ctx context.Context, pipelineID int64, from, to time.Time) ([]*model.Build, error) {
	var builds []*model.Build
	err := d.db.WithContext(ctx).
		Where("pipeline_id = ? AND created_at >= ? AND created_at <= ?", pipelineID, from.UTC(), to.UTC()).
		Order("created_at ASC").
		Find(&builds).Error
	if err != nil {
		return nil, d.err.New("查询窗口内构建失败", err).DB()
	}
	return builds, nil
}

// Latest 按创建时间取最近一次构建，没有构建返回 nil
func (d *BuildDao) Latest(ctx context.Context, pipelineID int64) (*model.Build, error) {
	var builds []*model.Build
	err := d.db.WithContext(ctx).
		Where("pipeline_id = ?", pipelineID).
		Order("created_at DESC").Order("id DESC").
		Limit(1).
		Find(&builds).Error
	if err != nil {
		return nil, d.err.New("查询最近构建失败", err).DB()
	}
	if len(builds) == 0 {
		return nil, nil
	}
	return builds[0], nil
}

func (d *BuildDao) FindRecent(ctx context.Context, pipelineID int64, limit int) ([]*model.Build, error) {
	var builds []*model.Build
	query := d.db.WithContext(ctx).Order("created_at DESC").Order("id DESC").Limit(limit)
	if pipelineID > 0 {
		query = query.Where("pipeline_id = ?", pipelineID)
	}
	if err := query.Preload("Pipeline").Find(&builds).Error; err != nil {
		return nil, d.err.New("查询最近构建失败", err).DB()
	}
	return builds, nil
}

func (d *BuildDao) CountByStatus(ctx context.Context, scope dto.BuildScope, status dto.BuildStatus) (int64, error) {
	var count int64
	err := scoped(d.model(ctx), scope).Where("status = ?", status).Count(&count).Error
	if err != nil {
		return 0, d.err.New("按状态统计构建失败", err).DB()
	}
	return count, nil
}

func (d *BuildDao) Count(ctx context.Context, scope dto.BuildScope) (int64, error) {
	var count int64
	if err := scoped(d.model(ctx), scope).Count(&count).Error; err != nil {
		return 0, d.err.New("统计构建数量失败", err).DB()
	}
	return count, nil
}

// ExistsWithStatusSince since 之后是否创建过指定状态的构建
func (d *BuildDao) ExistsWithStatusSince(ctx context.Context, scope dto.BuildScope, status dto.BuildStatus, since time.Time) (bool, error) {
	var count int64
	err := scoped(d.model(ctx), scope).
		Where("status = ? AND created_at >= ?", status, since.UTC()).
		Limit(1).
		Count(&count).Error
	if err != nil {
		return false, d.err.New("查询近期构建失败", err).DB()
	}
	return count > 0, nil
}

// DurationStatsSince since 之后成功/失败且耗时非空的构建平均耗时
func (d *BuildDao) DurationStatsSince(ctx context.Context, scope dto.BuildScope, since time.Time) (dto.DurationStats, error) {
	var row struct {
		Cnt int64
		Avg *float64
	}
	err := scoped(d.model(ctx), scope).
		Select("COUNT(*) AS cnt, AVG(duration) AS avg").
		Where("status IN ? AND duration IS NOT NULL AND created_at >= ?", terminalOutcomes, since.UTC()).
		Scan(&row).Error
	if err != nil {
		return dto.DurationStats{}, d.err.New("统计构建耗时失败", err).DB()
	}
	stats := dto.DurationStats{Count: row.Cnt}
	if row.Avg != nil {
		stats.Average = *row.Avg
	}
	return stats, nil
}

// OutcomeStatsSince since 之后成功与失败的构建数
func (d *BuildDao) OutcomeStatsSince(ctx context.Context, scope dto.BuildScope, since time.Time) (dto.OutcomeStats, error) {
	var rows []struct {
		Status dto.BuildStatus
		Cnt    int64
	}
	err := scoped(d.model(ctx), scope).
		Select("status, COUNT(*) AS cnt").
		Where("status IN ? AND created_at >= ?", terminalOutcomes, since.UTC()).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return dto.OutcomeStats{}, d.err.New("统计构建结果失败", err).DB()
	}

	var stats dto.OutcomeStats
	for _, r := range rows {
		switch r.Status {
		case dto.BuildStatusSuccess:
			stats.Success = r.Cnt
		case dto.BuildStatusFailed:
			stats.Failed = r.Cnt
		}
	}
	return stats, nil
}

// DurationRange 全部成功/失败构建的耗时均值、最小与最大值
func (d *BuildDao) DurationRange(ctx context.Context) (float64, int64, int64, error) {
	var row struct {
		Avg *float64
		Min *int64
		Max *int64
	}
	err := d.model(ctx).
		Select("AVG(duration) AS avg, MIN(duration) AS min, MAX(duration) AS max").
		Where("status IN ? AND duration IS NOT NULL", terminalOutcomes).
		Scan(&row).Error
	if err != nil {
		return 0, 0, 0, d.err.New("统计耗时分布失败", err).DB()
	}
	var (
		avg      float64
		min, max int64
	)
	if row.Avg != nil {
		avg = *row.Avg
	}
	if row.Min != nil {
		min = *row.Min
	}
	if row.Max != nil {
		max = *row.Max
	}
	return avg, min, max, nil
}

// RecentDurations 最近的成功/失败构建耗时
func (d *BuildDao) RecentDurations(ctx context.Context, scope dto.BuildScope, limit int) ([]dto.DurationPoint, error) {
	var builds []*model.Build
	err := scoped(d.db.WithContext(ctx), scope).
		Where("status IN ? AND duration IS NOT NULL", terminalOutcomes).
		Order("created_at DESC").
		Limit(limit).
		Find(&builds).Error
	if err != nil {
		return nil, d.err.New("查询构建耗时失败", err).DB()
	}
	points := make([]dto.DurationPoint, 0, len(builds))
	for _, b := range builds {
		points = append(points, dto.DurationPoint{Duration: *b.Duration, Status: b.Status, CreatedAt: b.CreatedAt})
	}
	return points, nil
}

// FindFailed 最近失败的构建，附带失败阶段
func (d *BuildDao) FindFailed(ctx context.Context, scope dto.BuildScope, limit int) ([]*model.Build, error) {
	var builds []*model.Build
	err := scoped(d.db.WithContext(ctx), scope).
		Where("status = ?", dto.BuildStatusFailed).
		Preload("Pipeline").
		Preload("Stages", "status = ?", dto.BuildStatusFailed).
		Order("created_at DESC").
		Limit(limit).
		Find(&builds).Error
	if err != nil {
		return nil, d.err.New("查询失败构建失败", err).DB()
	}
	return builds, nil
}

// FindByStatus 按开始时间升序
func (d *BuildDao) FindByStatus(ctx context.Context, status dto.BuildStatus) ([]*model.Build, error) {
	var builds []*model.Build
	err := d.db.WithContext(ctx).
		Where("status = ?", status).
		Preload("Pipeline").
		Order("start_time ASC").Order("id ASC").
		Find(&builds).Error
	if err != nil {
		return nil, d.err.New("按状态查询构建失败", err).DB()
	}
	return builds, nil
}

// StatsByPipeline 每条流水线的构建总数、成功数与平均耗时
func (d *BuildDao) StatsByPipeline(ctx context.Context) (map[int64]dto.PipelineBuildStats, error) {
	var rows []struct {
		PipelineID int64
		Total      int64
		Success    int64
		AvgDur     *float64
	}
	err := d.model(ctx).
		Select(`pipeline_id, COUNT(*) AS total,
			SUM(CASE WHEN status = ? THEN 1 ELSE 0 END) AS success,
			AVG(CASE WHEN status IN ? AND duration > 0 THEN duration END) AS avg_dur`,
			dto.BuildStatusSuccess, terminalOutcomes).
		Group("pipeline_id").
		Scan(&rows).Error
	if err != nil {
		return nil, d.err.New("按流水线统计构建失败", err).DB()
	}

	out := make(map[int64]dto.PipelineBuildStats, len(rows))
	for _, r := range rows {
		s := dto.PipelineBuildStats{ID: r.PipelineID, TotalBuilds: r.Total, SuccessfulBuilds: r.Success}
		if r.AvgDur != nil {
			s.AverageBuildTime = *r.AvgDur
		}
		out[r.PipelineID] = s
	}
	return out, nil
}

// WindowSummary since 之后全部构建的数量、成功数与耗时大于 0 的平均耗时
func (d *BuildDao) WindowSummary(ctx context.Context, since time.Time) (dto.WindowSummary, error) {
	var row struct {
		Total   int64
		Success *int64
		AvgDur  *float64
	}
	err := d.model(ctx).
		Select(`COUNT(*) AS total,
			SUM(CASE WHEN status = ? THEN 1 ELSE 0 END) AS success,
			AVG(CASE WHEN duration > 0 THEN duration END) AS avg_dur`, dto.BuildStatusSuccess).
		Where("created_at >= ?", since.UTC()).
		Scan(&row).Error
	if err != nil {
		return dto.WindowSummary{}, d.err.New("统计窗口构建失败", err).DB()
	}
	summary := dto.WindowSummary{TotalBuilds: row.Total}
	if row.Success != nil {
		summary.SuccessfulBuilds = *row.Success
	}
	if row.AvgDur != nil {
		summary.AverageBuildTime = *row.AvgDur
	}
	return summary, nil
}

func (d *BuildDao) DeleteByPipeline(ctx context.Context, pipelineID int64) error {
	err := d.db.WithContext(ctx).Where("pipeline_id = ?", pipelineID).Delete(&model.Build{}).Error
	if err != nil {
		return d.err.New("删除流水线构建失败", err).DB()
	}
	return nil
}

func (d *BuildDao) WithTx(tx *gorm.DB) *BuildDao {
	return &BuildDao{
		IBaseDao: mvc.NewGormDao[model.Build](tx),
		log:      d.log,
		err:      d.err,
		db:       tx,
	}
}
