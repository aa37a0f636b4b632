package common

import (
	"time"
)

// Model 业务表通用字段，流水线数据按需物理删除，不带软删除列
type Model struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type PageReturn struct {
	Total   int64       `json:"total"`
	Content interface{} `json:"content"`
}

// PageResult 列表接口分页返回
type PageResult struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"totalPages"`
}

func NewPageResult(page, limit int, total int64) PageResult {
	pages := int64(0)
	if limit > 0 {
		pages = (total + int64(limit) - 1) / int64(limit)
	}
	return PageResult{Page: page, Limit: limit, Total: total, TotalPages: pages}
}
