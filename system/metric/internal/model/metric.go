package model

import (
	"time"

	"pipelinehealth/pkg/core/model/common"
	"pipelinehealth/system/metric/api/dto"
)

// Metric 聚合指标，只追加不修改
type Metric struct {
	common.Model
	PipelineID int64          `gorm:"not null;index:idx_metric_lookup,priority:1" json:"pipelineId"`
	MetricType dto.MetricType `gorm:"size:32;not null;index:idx_metric_lookup,priority:2" json:"metricType"`
	Period     dto.Period     `gorm:"size:16;not null;index:idx_metric_lookup,priority:3" json:"period"`
	Value      float64        `gorm:"not null" json:"value"`
	Timestamp  time.Time      `gorm:"not null;index:idx_metric_lookup,priority:4;index" json:"timestamp"`
}

func (Metric) TableName() string {
	return "metrics"
}

func (m *Metric) ToPoint() dto.MetricPoint {
	return dto.MetricPoint{
		ID:         m.ID,
		PipelineID: m.PipelineID,
		MetricType: m.MetricType,
		Value:      m.Value,
		Period:     m.Period,
		Timestamp:  m.Timestamp,
	}
}
