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

// PipelineDao 流水线数据访问层
type PipelineDao struct {
	mvc.IBaseDao[model.Pipeline]
	log *logger.Log
	err *errorc.ErrorBuilder
	db  *gorm.DB
}

func NewPipelineDao(db *gorm.DB, log *logger.Log) *PipelineDao {
	return &PipelineDao{
		IBaseDao: mvc.NewGormDao[model.Pipeline](db),
		log:      log,
		err:      errorc.NewErrorBuilder("PipelineDao"),
		db:       db,
	}
}

// PipelineFilter 列表查询条件，零值字段不参与过滤
type PipelineFilter struct {
	Type   dto.PipelineType
	Status dto.PipelineStatus
	Search string
}

// FindPage 按更新时间倒序分页，search 匹配名称或仓库（忽略大小写）
func (d *PipelineDao) FindPage(ctx context.Context, page *mvc.Page, filter PipelineFilter) ([]*model.Pipeline, int64, error) {
	query := d.db.WithContext(ctx).Model(&model.Pipeline{})
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Search != "" {
		like := "%" + strings.ToLower(filter.Search) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(repository) LIKE ?", like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, d.err.New("统计流水线数量失败", err).DB()
	}

	var pipelines []*model.Pipeline
	err := query.Scopes(mvc.Paginate(page)).Order("updated_at DESC").Order("id DESC").Find(&pipelines).Error
	if err != nil {
		return nil, 0, d.err.New("分页查询流水线失败", err).DB()
	}
	return pipelines, total, nil
}

func (d *PipelineDao) ExistsByName(ctx context.Context, name string, exceptID int64) (bool, error) {
	var count int64
	query := d.db.WithContext(ctx).Model(&model.Pipeline{}).Where("name = ?", name)
	if exceptID > 0 {
		query = query.Where("id <> ?", exceptID)
	}
	if err := query.Count(&count).Error; err != nil {
		return false, d.err.New("检查流水线名称失败", err).DB()
	}
	return count > 0, nil
}

// FindByRepository 按仓库与类型匹配回调对应的流水线，找不到返回 nil
func (d *PipelineDao) FindByRepository(ctx context.Context, repository string, pipelineType dto.PipelineType) (*model.Pipeline, error) {
	var pipeline model.Pipeline
	err := d.db.WithContext(ctx).
		Where("repository = ? AND type = ?", repository, pipelineType).
		Order("id ASC").
		First(&pipeline).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, d.err.New("按仓库查询流水线失败", err).DB()
	}
	return &pipeline, nil
}

// FindByNameContains Jenkins 回调只带 job 名称，按名称包含匹配
func (d *PipelineDao) FindByNameContains(ctx context.Context, name string, pipelineType dto.PipelineType) (*model.Pipeline, error) {
	var pipeline model.Pipeline
	err := d.db.WithContext(ctx).
		Where("name LIKE ? AND type = ?", "%"+name+"%", pipelineType).
		Order("id ASC").
		First(&pipeline).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, d.err.New("按名称查询流水线失败", err).DB()
	}
	return &pipeline, nil
}

// UpdateStatus 写入状态并以 at 刷新 updated_at，lastBuildID 为 nil 时不修改
func (d *PipelineDao) UpdateStatus(ctx context.Context, id int64, status dto.PipelineStatus, lastBuildID *int64, at time.Time) error {
	fields := map[string]interface{}{"status": status, "updated_at": at.UTC()}
	if lastBuildID != nil {
		fields["last_build_id"] = *lastBuildID
	}
	err := d.db.WithContext(ctx).Model(&model.Pipeline{}).Where("id = ?", id).Updates(fields).Error
	if err != nil {
		return d.err.New("更新流水线状态失败", err).DB()
	}
	return nil
}

func (d *PipelineDao) CountAll(ctx context.Context) (int64, error) {
	var count int64
	if err := d.db.WithContext(ctx).Model(&model.Pipeline{}).Count(&count).Error; err != nil {
		return 0, d.err.New("统计流水线数量失败", err).DB()
	}
	return count, nil
}

func (d *PipelineDao) CountByStatus(ctx context.Context) ([]dto.StatusCount, error) {
	var rows []dto.StatusCount
	err := d.db.WithContext(ctx).Model(&model.Pipeline{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Order("status").
		Scan(&rows).Error
	if err != nil {
		return nil, d.err.New("统计流水线状态分布失败", err).DB()
	}
	return rows, nil
}

func (d *PipelineDao) WithTx(tx *gorm.DB) *PipelineDao {
	return &PipelineDao{
		IBaseDao: mvc.NewGormDao[model.Pipeline](tx),
		log:      d.log,
		err:      d.err,
		db:       tx,
	}
}
