package dao

import (
	"context"
	"time"

	errorc "pipelinehealth/pkg/core/err"
	"pipelinehealth/pkg/core/logger"
	"pipelinehealth/pkg/core/mvc"
	"pipelinehealth/system/metric/api/dto"
	"pipelinehealth/system/metric/internal/model"

	"gorm.io/gorm"
)

// MetricDao 指标数据访问层
type MetricDao struct {
	mvc.IBaseDao[model.Metric]
	log *logger.Log
	err *errorc.ErrorBuilder
	db  *gorm.DB
}

func NewMetricDao(db *gorm.DB, log *logger.Log) *MetricDao {
	return &MetricDao{
		IBaseDao: mvc.NewGormDao[model.Metric](db),
		log:      log,
		err:      errorc.NewErrorBuilder("MetricDao"),
		db:       db,
	}
}

// SaveBatch 一个事务内写入同一次聚合的全部指标
func (d *MetricDao) SaveBatch(ctx context.Context, metrics []*model.Metric) error {
	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, m := range metrics {
			if err := tx.Create(m).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return d.err.New("保存指标失败", err).DB()
	}
	return nil
}

// MetricQuery 趋势查询条件，PipelineID 为 0 表示全部流水线
type MetricQuery struct {
	PipelineID int64
	MetricType dto.MetricType
	Period     dto.Period
	Limit      int
}

// FindLatest 按时间倒序取最近的若干条
func (d *MetricDao) FindLatest(ctx context.Context, q MetricQuery) ([]*model.Metric, error) {
	query := d.db.WithContext(ctx).Model(&model.Metric{})
	if q.PipelineID > 0 {
		query = query.Where("pipeline_id = ?", q.PipelineID)
	}
	if q.MetricType != "" {
		query = query.Where("metric_type = ?", q.MetricType)
	}
	if q.Period != "" {
		query = query.Where("period = ?", q.Period)
	}
	if q.Limit > 0 {
		query = query.Limit(q.Limit)
	}

	var metrics []*model.Metric
	if err := query.Order("timestamp DESC").Order("id DESC").Find(&metrics).Error; err != nil {
		return nil, d.err.New("查询指标失败", err).DB()
	}
	return metrics, nil
}

// LatestValues 每条流水线指定类型的最新一条
func (d *MetricDao) LatestValues(ctx context.Context, pipelineIDs []int64, metricType dto.MetricType) (map[int64]float64, error) {
	out := make(map[int64]float64, len(pipelineIDs))
	if len(pipelineIDs) == 0 {
		return out, nil
	}

	// 指标只追加，同一流水线同类型 id 最大的即最新
	latest := d.db.Model(&model.Metric{}).
		Select("MAX(id)").
		Where("metric_type = ? AND pipeline_id IN ?", metricType, pipelineIDs).
		Group("pipeline_id")

	var rows []model.Metric
	err := d.db.WithContext(ctx).Where("id IN (?)", latest).Find(&rows).Error
	if err != nil {
		return nil, d.err.New("查询最新指标失败", err).DB()
	}
	for _, r := range rows {
		out[r.PipelineID] = r.Value
	}
	return out, nil
}

// DeleteBefore 清理早于 cutoff 的指标
func (d *MetricDao) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := d.db.WithContext(ctx).Where("timestamp < ?", cutoff.UTC()).Delete(&model.Metric{})
	if res.Error != nil {
		return 0, d.err.New("清理历史指标失败", res.Error).DB()
	}
	return res.RowsAffected, nil
}

func (d *MetricDao) DeleteByPipeline(ctx context.Context, pipelineID int64) error {
	if err := d.db.WithContext(ctx).Where("pipeline_id = ?", pipelineID).Delete(&model.Metric{}).Error; err != nil {
		return d.err.New("删除流水线指标失败", err).DB()
	}
	return nil
}

func (d *MetricDao) WithTx(tx *gorm.DB) *MetricDao {
	return &MetricDao{
		IBaseDao: mvc.NewGormDao[model.Metric](tx),
		log:      d.log,
		err:      d.err,
		db:       tx,
	}
}
