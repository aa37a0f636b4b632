package pipeline

import (
	"pipelinehealth/pkg/core/logger"
	"pipelinehealth/system/pipeline/internal/model"

	"gorm.io/gorm"
)

// AutoMigrate 自动执行流水线组件的数据库迁移
func AutoMigrate(db *gorm.DB, log *logger.Log) error {
	log.Info("开始迁移流水线组件表...")

	if err := db.AutoMigrate(
		&model.Pipeline{},
		&model.Build{},
		&model.BuildStage{},
	); err != nil {
		log.WithErr(err).Error("流水线组件表迁移失败")
		return err
	}

	log.Info("流水线组件表迁移完成")
	return nil
}
