package model

import (
	"time"

	"pipelinehealth/pkg/core/model/common"
	"pipelinehealth/pkg/notifier"
	"pipelinehealth/system/alert/api/dto"
)

// Alert 用户定义的告警规则，PipelineID 为空表示全局
type Alert struct {
	common.Model
	Name          string            `gorm:"size:255;not null" json:"name"`
	ConditionType dto.ConditionType `gorm:"size:32;not null" json:"conditionType"`
	Threshold     float64           `gorm:"not null" json:"threshold"`
	PipelineID    *int64            `gorm:"index" json:"pipelineId"`
	Channels      notifier.Channels `gorm:"serializer:json;type:text" json:"notificationChannels"`
	IsActive      bool              `gorm:"not null;index" json:"isActive"`
	CreatedBy     int64             `json:"createdBy"`
}

func (Alert) TableName() string {
	return "alerts"
}

func (a *Alert) ToDTO() dto.AlertDTO {
	return dto.AlertDTO{
		ID:         a.ID,
		Name:       a.Name,
		Condition:  a.ConditionType,
		Threshold:  a.Threshold,
		PipelineID: a.PipelineID,
		Channels:   a.Channels,
		IsActive:   a.IsActive,
		CreatedBy:  a.CreatedBy,
		CreatedAt:  a.CreatedAt,
		UpdatedAt:  a.UpdatedAt,
	}
}

// AlertHistory 告警触发记录，只追加
type AlertHistory struct {
	ID       int64                  `gorm:"primaryKey" json:"id"`
	AlertID  int64                  `gorm:"not null;index:idx_alert_history_alert_sent,priority:1" json:"alertId"`
	BuildID  *int64                 `json:"buildId"`
	Message  string                 `gorm:"size:1000;not null" json:"message"`
	Severity notifier.Severity      `gorm:"size:16;not null" json:"severity"`
	Status   dto.NotificationStatus `gorm:"size:16;not null" json:"notificationStatus"`
	SentAt   time.Time              `gorm:"not null;index:idx_alert_history_alert_sent,priority:2;index" json:"sentAt"`
}

func (AlertHistory) TableName() string {
	return "alert_history"
}

func (h *AlertHistory) ToDTO() dto.HistoryDTO {
	return dto.HistoryDTO{
		ID:       h.ID,
		AlertID:  h.AlertID,
		BuildID:  h.BuildID,
		Message:  h.Message,
		Severity: h.Severity,
		Status:   h.Status,
		SentAt:   h.SentAt,
	}
}
