package dao

import (
	"context"
	"time"

	errorc "pipelinehealth/pkg/core/err"
	"pipelinehealth/pkg/core/logger"
	"pipelinehealth/pkg/core/mvc"
	"pipelinehealth/system/alert/internal/model"

	"gorm.io/gorm"
)

// HistoryDao 告警历史数据访问层
type HistoryDao struct {
	mvc.IBaseDao[model.AlertHistory]
	log *logger.Log
	err *errorc.ErrorBuilder
	db  *gorm.DB
}

func NewHistoryDao(db *gorm.DB, log *logger.Log) *HistoryDao {
	return &HistoryDao{
		IBaseDao: mvc.NewGormDao[model.AlertHistory](db),
		log:      log,
		err:      errorc.NewErrorBuilder("HistoryDao"),
		db:       db,
	}
}

// SentSince 同一告警同一消息在 since 之后是否已有记录
func (d *HistoryDao) SentSince(ctx context.Context, alertID int64, message string, since time.Time) (bool, error) {
	var n int64
	err := d.db.WithContext(ctx).Model(&model.AlertHistory{}).
		Where("alert_id = ? AND message = ? AND sent_at >= ?", alertID, message, since.UTC()).
		Count(&n).Error
	if err != nil {
		return false, d.err.New("查询告警历史失败", err).DB()
	}
	return n > 0, nil
}

// FindPage 按发送时间倒序分页
func (d *HistoryDao) FindPage(ctx context.Context, alertID int64, page *mvc.Page) ([]*model.AlertHistory, int64, error) {
	query := d.db.WithContext(ctx).Model(&model.AlertHistory{}).Where("alert_id = ?", alertID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, d.err.New("统计告警历史失败", err).DB()
	}

	var rows []*model.AlertHistory
	err := query.Scopes(mvc.Paginate(page)).Order("sent_at DESC").Order("id DESC").Find(&rows).Error
	if err != nil {
		return nil, 0, d.err.New("查询告警历史失败", err).DB()
	}
	return rows, total, nil
}

func (d *HistoryDao) FindRecent(ctx context.Context, alertID int64, limit int) ([]*model.AlertHistory, error) {
	var rows []*model.AlertHistory
	err := d.db.WithContext(ctx).Where("alert_id = ?", alertID).
		Order("sent_at DESC").Order("id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, d.err.New("查询告警历史失败", err).DB()
	}
	return rows, nil
}

func (d *HistoryDao) FindSince(ctx context.Context, since time.Time) ([]*model.AlertHistory, error) {
	var rows []*model.AlertHistory
	if err := d.db.WithContext(ctx).Where("sent_at >= ?", since.UTC()).Find(&rows).Error; err != nil {
		return nil, d.err.New("查询告警历史失败", err).DB()
	}
	return rows, nil
}

// DeleteBefore 清理早于 cutoff 的历史
func (d *HistoryDao) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := d.db.WithContext(ctx).Where("sent_at < ?", cutoff.UTC()).Delete(&model.AlertHistory{})
	if res.Error != nil {
		return 0, d.err.New("清理告警历史失败", res.Error).DB()
	}
	return res.RowsAffected, nil
}

func (d *HistoryDao) DeleteByAlerts(ctx context.Context, alertIDs []int64) error {
	if len(alertIDs) == 0 {
		return nil
	}
	if err := d.db.WithContext(ctx).Where("alert_id IN ?", alertIDs).Delete(&model.AlertHistory{}).Error; err != nil {
		return d.err.New("删除告警历史失败", err).DB()
	}
	return nil
}

func (d *HistoryDao) WithTx(tx *gorm.DB) *HistoryDao {
	return &HistoryDao{
		IBaseDao: mvc.NewGormDao[model.AlertHistory](tx),
		log:      d.log,
		err:      d.err,
		db:       tx,
	}
}
