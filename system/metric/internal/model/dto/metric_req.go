package dto

import "pipelinehealth/system/metric/api/dto"

// TrendReq 成功率、耗时趋势查询
type TrendReq struct {
	PipelineID int64      `query:"pipelineId" validate:"omitempty,min=1" comment:"流水线"`
	Period     dto.Period `query:"period" validate:"omitempty,oneof=HOURLY DAILY WEEKLY MONTHLY" comment:"周期"`
	Limit      int        `query:"limit" validate:"omitempty,min=1,max=1000" comment:"条数"`
}

type FailureReq struct {
	PipelineID int64 `query:"pipelineId" validate:"omitempty,min=1" comment:"流水线"`
	Limit      int   `query:"limit" validate:"omitempty,min=1,max=100" comment:"条数"`
}

type PipelineMetricsReq struct {
	Period dto.Period `query:"period" validate:"omitempty,oneof=HOURLY DAILY WEEKLY MONTHLY" comment:"周期"`
	Limit  int        `query:"limit" validate:"omitempty,min=1,max=1000" comment:"条数"`
}
