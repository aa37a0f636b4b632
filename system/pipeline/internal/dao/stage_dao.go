package dao

import (
	"context"

	errorc "pipelinehealth/pkg/core/err"
	"pipelinehealth/pkg/core/logger"
	"pipelinehealth/pkg/core/mvc"
	"pipelinehealth/system/pipeline/api/dto"
	"pipelinehealth/system/pipeline/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// StageDao 构建阶段数据访问层
type StageDao struct {
	mvc.IBaseDao[model.BuildStage]
	log *logger.Log
	err *errorc.ErrorBuilder
	db  *gorm.DB
}

func NewStageDao(db *gorm.DB, log *logger.Log) *StageDao {
	return &StageDao{
		IBaseDao: mvc.NewGormDao[model.BuildStage](db),
		log:      log,
		err:      errorc.NewErrorBuilder("StageDao"),
		db:       db,
	}
}

// Upsert 按 (build_id, name) 插入或覆盖阶段
func (d *StageDao) Upsert(ctx context.Context, stages []*model.BuildStage) error {
	if len(stages) == 0 {
		return nil
	}
	err := d.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "build_id"}, {Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"status", "start_time", "end_time", "duration", "updated_at"}),
	}).Create(&stages).Error
	if err != nil {
		return d.err.New("保存构建阶段失败", err).DB()
	}
	return nil
}

func (d *StageDao) FindByBuild(ctx context.Context, buildID int64) ([]*model.BuildStage, error) {
	var stages []*model.BuildStage
	err := d.db.WithContext(ctx).
		Where("build_id = ?", buildID).
		Order("created_at ASC").Order("id ASC").
		Find(&stages).Error
	if err != nil {
		return nil, d.err.New("查询构建阶段失败", err).DB()
	}
	return stages, nil
}

// TopFailures 失败次数最多的阶段名
func (d *StageDao) TopFailures(ctx context.Context, scope dto.BuildScope, limit int) ([]dto.StageFailure, error) {
	var rows []dto.StageFailure
	query := d.db.WithContext(ctx).Model(&model.BuildStage{}).
		Select("build_stages.name AS stage_name, COUNT(*) AS failure_count").
		Where("build_stages.status = ?", dto.BuildStatusFailed)
	if scope.PipelineID != nil {
		query = query.Joins("JOIN builds ON builds.id = build_stages.build_id").
			Where("builds.pipeline_id = ?", *scope.PipelineID)
	}
	err := query.Group("build_stages.name").
		Order("failure_count DESC").Order("stage_name ASC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, d.err.New("统计阶段失败次数失败", err).DB()
	}
	return rows, nil
}

// DeleteByPipeline 删除流水线下全部构建的阶段
func (d *StageDao) DeleteByPipeline(ctx context.Context, pipelineID int64) error {
	err := d.db.WithContext(ctx).
		Where("build_id IN (?)", d.db.Model(&model.Build{}).Select("id").Where("pipeline_id = ?", pipelineID)).
		Delete(&model.BuildStage{}).Error
	if err != nil {
		return d.err.New("删除构建阶段失败", err).DB()
	}
	return nil
}

func (d *StageDao) WithTx(tx *gorm.DB) *StageDao {
	return &StageDao{
		IBaseDao: mvc.NewGormDao[model.BuildStage](tx),
		log:      d.log,
		err:      d.err,
		db:       tx,
	}
}
