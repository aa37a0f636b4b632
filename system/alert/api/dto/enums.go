package dto

// ConditionType 告警条件类型，阈值对 SUCCESS_RATE 是下限，其余是上限
type ConditionType string

const (
	ConditionFailure      ConditionType = "FAILURE"
	ConditionBuildTime    ConditionType = "BUILD_TIME"
	ConditionSuccessRate  ConditionType = "SUCCESS_RATE"
	ConditionQueueLength  ConditionType = "QUEUE_LENGTH"
	ConditionPipelineDown ConditionType = "PIPELINE_DOWN"
)

func (c ConditionType) Valid() bool {
	switch c {
	case ConditionFailure, ConditionBuildTime, ConditionSuccessRate, ConditionQueueLength, ConditionPipelineDown:
		return true
	}
	return false
}

// NotificationStatus 告警历史中的投递结果
type NotificationStatus string

const (
	NotificationSent   NotificationStatus = "SENT"
	NotificationFailed NotificationStatus = "FAILED"
)
