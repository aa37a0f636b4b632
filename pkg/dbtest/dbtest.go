// Package dbtest 为各组件的测试提供独立的内存 SQLite 数据库
package dbtest

import (
	"fmt"
	"testing"

	"pipelinehealth/pkg/core/config"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Open 每个测试一个独立的内存库，models 会被自动迁移
func Open(t testing.TB, models ...interface{}) *gorm.DB {
	t.Helper()

	db, err := config.InitSqlite(config.Database{
		Type:     "sqlite",
		Path:     fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()),
		LogLevel: "silent",
	})
	if err != nil {
		t.Fatalf("打开测试数据库失败: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("获取连接失败: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if len(models) > 0 {
		if err := db.AutoMigrate(models...); err != nil {
			t.Fatalf("迁移测试表失败: %v", err)
		}
	}
	return db
}
