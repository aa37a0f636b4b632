package model

import (
	"pipelinehealth/pkg/core/model/common"
	"pipelinehealth/system/pipeline/api/dto"
)

// Pipeline 被监控的 CI/CD 流水线
type Pipeline struct {
	common.Model
	Name        string             `gorm:"uniqueIndex;size:255;not null" json:"name" comment:"流水线名称"`
	Type        dto.PipelineType   `gorm:"size:32;not null;index" json:"type" comment:"CI 平台"`
	Repository  string             `gorm:"size:500;not null;index" json:"repository" comment:"仓库，如 owner/repo"`
	Branch      string             `gorm:"size:255;not null;default:main" json:"branch" comment:"默认分支"`
	WebhookURL  string             `gorm:"size:500" json:"webhookUrl,omitempty"`
	Config      common.JSON        `gorm:"type:json" json:"config"`
	Status      dto.PipelineStatus `gorm:"size:16;not null;default:UNKNOWN;index" json:"status"`
	LastBuildID *int64             `json:"lastBuildId"`
}

func (Pipeline) TableName() string {
	return "pipelines"
}

func (p *Pipeline) ToDTO() *dto.PipelineDTO {
	return &dto.PipelineDTO{
		ID:          p.ID,
		Name:        p.Name,
		Type:        p.Type,
		Repository:  p.Repository,
		Branch:      p.Branch,
		Status:      p.Status,
		LastBuildID: p.LastBuildID,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}
