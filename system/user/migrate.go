package user

import (
	"pipelinehealth/pkg/core/logger"
	"pipelinehealth/system/user/internal/model"

	"gorm.io/gorm"
)

// AutoMigrate 自动执行用户组件的数据库迁移
func AutoMigrate(db *gorm.DB, log *logger.Log) error {
	log.Info("开始迁移用户组件表...")

	if err := db.AutoMigrate(&model.User{}); err != nil {
		log.WithErr(err).Error("用户组件表迁移失败")
		return err
	}

	log.Info("用户组件表迁移完成")
	return nil
}
