package dto

import (
	"time"

	"pipelinehealth/pkg/notifier"
)

// AlertDTO 对外展示的告警规则
type AlertDTO struct {
	ID           int64             `json:"id"`
	Name         string            `json:"name"`
	Condition    ConditionType     `json:"conditionType"`
	Threshold    float64           `json:"threshold"`
	PipelineID   *int64            `json:"pipelineId"`
	PipelineName string            `json:"pipelineName,omitempty"`
	Channels     notifier.Channels `json:"notificationChannels"`
	IsActive     bool              `json:"isActive"`
	CreatedBy    int64             `json:"createdBy"`
	CreatedAt    time.Time         `json:"createdAt"`
	UpdatedAt    time.Time         `json:"updatedAt"`
}

type HistoryDTO struct {
	ID       int64              `json:"id"`
	AlertID  int64              `json:"alertId"`
	BuildID  *int64             `json:"buildId"`
	Message  string             `json:"message"`
	Severity notifier.Severity  `json:"severity"`
	Status   NotificationStatus `json:"notificationStatus"`
	SentAt   time.Time          `json:"sentAt"`
}

// AlertDetail 告警详情附带最近 10 条历史
type AlertDetail struct {
	AlertDTO
	History []HistoryDTO `json:"alertHistory"`
}

// AlertEvent alert 事件内容
type AlertEvent struct {
	ID           int64             `json:"id"`
	Name         string            `json:"name"`
	Message      string            `json:"message"`
	Severity     notifier.Severity `json:"severity"`
	PipelineID   *int64            `json:"pipelineId"`
	PipelineName string            `json:"pipelineName,omitempty"`
	Timestamp    string            `json:"timestamp"`
}

// Evaluation 单条告警一次评估的结论
type Evaluation struct {
	AlertID    int64              `json:"alertId"`
	Triggered  bool               `json:"triggered"`
	Suppressed bool               `json:"suppressed"`
	Message    string             `json:"message,omitempty"`
	Severity   notifier.Severity  `json:"severity,omitempty"`
	Status     NotificationStatus `json:"notificationStatus,omitempty"`
}

type AlertCounts struct {
	Total      int64                       `json:"total"`
	BySeverity map[notifier.Severity]int64 `json:"bySeverity"`
}

// Statistics 最近 24 小时的告警统计
type Statistics struct {
	TotalAlerts      int64       `json:"totalAlerts"`
	ActiveAlertCount int64       `json:"activeAlertCount"`
	AlertCounts      AlertCounts `json:"alertCounts"`
	Sent             int64       `json:"sent"`
	Failed           int64       `json:"failed"`
	AlertSuccessRate float64     `json:"alertSuccessRate"`
	Period           string      `json:"period"`
}
