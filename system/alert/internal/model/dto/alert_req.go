package dto

import (
	"pipelinehealth/pkg/notifier"
	"pipelinehealth/system/alert/api/dto"
)

// SaveAlertReq 创建与更新共用
type SaveAlertReq struct {
	Name          string             `json:"name" validate:"required,max=255" comment:"名称"`
	ConditionType dto.ConditionType  `json:"conditionType" validate:"required,oneof=FAILURE BUILD_TIME SUCCESS_RATE QUEUE_LENGTH PIPELINE_DOWN" comment:"条件类型"`
	Threshold     *float64           `json:"threshold" validate:"required" comment:"阈值"`
	Channels      *notifier.Channels `json:"notificationChannels" validate:"required" comment:"通知渠道"`
	PipelineID    *int64             `json:"pipelineId" validate:"omitempty,min=1" comment:"流水线"`
	IsActive      *bool              `json:"isActive"`
}

type ListAlertReq struct {
	PipelineID int64 `query:"pipelineId" validate:"omitempty,min=1"`
	IsActive   *bool `query:"isActive"`
}

type HistoryReq struct {
	Page  int `query:"page" validate:"omitempty,min=1"`
	Limit int `query:"limit" validate:"omitempty,min=1,max=100"`
}

type TestNotificationReq struct {
	Channels *notifier.Channels `json:"notificationChannels" validate:"required" comment:"通知渠道"`
}
