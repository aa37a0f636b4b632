package dto

import (
	"time"

	"pipelinehealth/pkg/core/model/common"
	"pipelinehealth/system/pipeline/api/dto"
)

type SavePipelineReq struct {
	Name       string           `json:"name" validate:"required,min=1,max=255" comment:"名称"`
	Type       dto.PipelineType `json:"type" validate:"required,oneof=GITHUB_ACTIONS GITLAB_CI JENKINS AZURE_DEVOPS CIRCLE_CI TRAVIS_CI" comment:"类型"`
	Repository string           `json:"repository" validate:"required,min=1,max=500" comment:"仓库"`
	Branch     string           `json:"branch" validate:"omitempty,max=255" comment:"分支"`
	WebhookURL string           `json:"webhookUrl" validate:"omitempty,url" comment:"回调地址"`
	Config     common.JSON      `json:"config"`
}

type ListPipelineReq struct {
	Page   int                `query:"page" validate:"omitempty,min=1"`
	Limit  int                `query:"limit" validate:"omitempty,min=1,max=100"`
	Type   dto.PipelineType   `query:"type" validate:"omitempty,oneof=GITHUB_ACTIONS GITLAB_CI JENKINS AZURE_DEVOPS CIRCLE_CI TRAVIS_CI"`
	Status dto.PipelineStatus `query:"status" validate:"omitempty,oneof=SUCCESS FAILED RUNNING PENDING UNKNOWN DISABLED"`
	Search string             `query:"search" validate:"omitempty,max=255"`
}

type ListBuildReq struct {
	Page        int             `query:"page" validate:"omitempty,min=1"`
	Limit       int             `query:"limit" validate:"omitempty,min=1,max=100"`
	PipelineID  int64           `query:"pipelineId"`
	Status      dto.BuildStatus `query:"status" validate:"omitempty,oneof=PENDING RUNNING SUCCESS FAILED CANCELLED SKIPPED"`
	Branch      string          `query:"branch" validate:"omitempty,max=255"`
	TriggerType dto.TriggerType `query:"triggerType" validate:"omitempty,oneof=PUSH PULL_REQUEST SCHEDULE MANUAL WEBHOOK"`
}

type TriggerBuildReq struct {
	Branch      string          `json:"branch" validate:"omitempty,max=255"`
	CommitHash  string          `json:"commitHash" validate:"omitempty,max=64"`
	TriggerType dto.TriggerType `json:"triggerType" validate:"omitempty,oneof=PUSH PULL_REQUEST SCHEDULE MANUAL WEBHOOK"`
}

// PipelineListItem 列表项附带最近一次构建与最新指标
type PipelineListItem struct {
	ID         int64              `json:"id"`
	Name       string             `json:"name"`
	Type       dto.PipelineType   `json:"type"`
	Repository string             `json:"repository"`
	Branch     string             `json:"branch"`
	Status     dto.PipelineStatus `json:"status"`
	LastBuild  *dto.BuildDTO      `json:"lastBuild"`
	Metrics    PipelineMetrics    `json:"metrics"`
	CreatedAt  time.Time          `json:"createdAt"`
	UpdatedAt  time.Time          `json:"updatedAt"`
}

type PipelineMetrics struct {
	SuccessRate  float64 `json:"successRate"`
	AvgBuildTime float64 `json:"avgBuildTime"`
	TotalBuilds  int64   `json:"totalBuilds"`
}
