package metric

import (
	"pipelinehealth/pkg/core/logger"
	"pipelinehealth/system/metric/internal/model"

	"gorm.io/gorm"
)

// AutoMigrate 自动执行指标组件的数据库迁移
func AutoMigrate(db *gorm.DB, log *logger.Log) error {
	log.Info("开始迁移指标组件表...")

	if err := db.AutoMigrate(&model.Metric{}); err != nil {
		log.WithErr(err).Error("指标组件表迁移失败")
		return err
	}

	log.Info("指标组件表迁移完成")
	return nil
}
