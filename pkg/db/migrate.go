package db

import (
	"pipelinehealth/pkg/core/logger"
	"pipelinehealth/system/alert"
	"pipelinehealth/system/metric"
	"pipelinehealth/system/pipeline"
	"pipelinehealth/system/user"

	"gorm.io/gorm"
)

// AutoMigrate 自动执行所有数据库迁移
func AutoMigrate(db *gorm.DB) error {
	log := logger.GetLogger().WithEntryName("DatabaseMigration")

	log.Info("开始执行数据库迁移...")

	// 用户表
	if err := user.AutoMigrate(db, log); err != nil {
		return err
	}

	// 流水线、构建与阶段
	if err := pipeline.AutoMigrate(db, log); err != nil {
		return err
	}

	if err := metric.AutoMigrate(db, log); err != nil {
		return err
	}

	// 告警规则与触发历史
	if err := alert.AutoMigrate(db, log); err != nil {
		return err
	}

	log.Info("所有数据库迁移执行完成")
	return nil
}
