package dao

import (
	"context"
	"errors"

	errorc "pipelinehealth/pkg/core/err"
	"pipelinehealth/pkg/core/logger"
	"pipelinehealth/pkg/core/mvc"
	"pipelinehealth/system/alert/internal/model"

	"gorm.io/gorm"
)

// AlertDao 告警规则数据访问层
type AlertDao struct {
	mvc.IBaseDao[model.Alert]
	log *logger.Log
	err *errorc.ErrorBuilder
	db  *gorm.DB
}

func NewAlertDao(db *gorm.DB, log *logger.Log) *AlertDao {
	return &AlertDao{
		IBaseDao: mvc.NewGormDao[model.Alert](db),
		log:      log,
		err:      errorc.NewErrorBuilder("AlertDao"),
		db:       db,
	}
}

// AlertFilter 零值字段不参与过滤
type AlertFilter struct {
	PipelineID int64
	IsActive   *bool
}

// FindList 按创建时间倒序
func (d *AlertDao) FindList(ctx context.Context, filter AlertFilter) ([]*model.Alert, error) {
	query := d.db.WithContext(ctx).Model(&model.Alert{})
	if filter.PipelineID > 0 {
		query = query.Where("pipeline_id = ?", filter.PipelineID)
	}
	if filter.IsActive != nil {
		query = query.Where("is_active = ?", *filter.IsActive)
	}

	var alerts []*model.Alert
	if err := query.Order("created_at DESC").Order("id DESC").Find(&alerts).Error; err != nil {
		return nil, d.err.New("查询告警列表失败", err).DB()
	}
	return alerts, nil
}

func (d *AlertDao) FindActive(ctx context.Context) ([]*model.Alert, error) {
	var alerts []*model.Alert
	if err := d.db.WithContext(ctx).Where("is_active = ?", true).Order("id").Find(&alerts).Error; err != nil {
		return nil, d.err.New("查询启用的告警失败", err).DB()
	}
	return alerts, nil
}

func (d *AlertDao) FindByID(ctx context.Context, id int64) (*model.Alert, error) {
	var alert model.Alert
	if err := d.db.WithContext(ctx).Where("id = ?", id).First(&alert).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, d.err.New("Alert not found", err).NotFound()
		}
		return nil, d.err.New("查询告警失败", err).DB()
	}
	return &alert, nil
}

// Save 全字段更新，零值也写入
func (d *AlertDao) Save(ctx context.Context, alert *model.Alert) error {
	if err := d.db.WithContext(ctx).Save(alert).Error; err != nil {
		return d.err.New("保存告警失败", err).DB()
	}
	return nil
}

func (d *AlertDao) SetActive(ctx context.Context, id int64, active bool) error {
	err := d.db.WithContext(ctx).Model(&model.Alert{}).Where("id = ?", id).Update("is_active", active).Error
	if err != nil {
		return d.err.New("更新告警状态失败", err).DB()
	}
	return nil
}

func (d *AlertDao) Count(ctx context.Context, activeOnly bool) (int64, error) {
	query := d.db.WithContext(ctx).Model(&model.Alert{})
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}
	var n int64
	if err := query.Count(&n).Error; err != nil {
		return 0, d.err.New("统计告警数量失败", err).DB()
	}
	return n, nil
}

func (d *AlertDao) IDsByPipeline(ctx context.Context, pipelineID int64) ([]int64, error) {
	var ids []int64
	err := d.db.WithContext(ctx).Model(&model.Alert{}).Where("pipeline_id = ?", pipelineID).Pluck("id", &ids).Error
	if err != nil {
		return nil, d.err.New("查询流水线告警失败", err).DB()
	}
	return ids, nil
}

func (d *AlertDao) DeleteByIDs(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	if err := d.db.WithContext(ctx).Where("id IN ?", ids).Delete(&model.Alert{}).Error; err != nil {
		return d.err.New("删除告警失败", err).DB()
	}
	return nil
}

func (d *AlertDao) WithTx(tx *gorm.DB) *AlertDao {
	return &AlertDao{
		IBaseDao: mvc.NewGormDao[model.Alert](tx),
		log:      d.log,
		err:      d.err,
		db:       tx,
	}
}
