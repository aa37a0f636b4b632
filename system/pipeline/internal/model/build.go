package model

import (
	"time"

	"pipelinehealth/pkg/core/model/common"
	"pipelinehealth/system/pipeline/api/dto"
)

// Build 一次流水线运行，(pipeline_id, external_id) 唯一
type Build struct {
	common.Model
	PipelineID    int64           `gorm:"not null;uniqueIndex:uk_build_pipeline_external,priority:1;index" json:"pipelineId"`
	ExternalID    string          `gorm:"size:255;not null;uniqueIndex:uk_build_pipeline_external,priority:2" json:"externalId" comment:"CI 平台上的运行 ID"`
	Number        int             `json:"number"`
	Status        dto.BuildStatus `gorm:"size:16;not null;index" json:"status"`
	StartTime     *time.Time      `json:"startTime"`
	EndTime       *time.Time      `json:"endTime"`
	Duration      *int64          `json:"duration" comment:"耗时（秒）"`
	CommitHash    string          `gorm:"size:64" json:"commitHash"`
	CommitMessage string          `gorm:"type:text" json:"commitMessage"`
	Branch        string          `gorm:"size:255" json:"branch"`
	Author        string          `gorm:"size:255" json:"author"`
	TriggerType   dto.TriggerType `gorm:"size:16;not null;default:WEBHOOK" json:"triggerType"`
	Logs          string          `gorm:"type:text" json:"logs,omitempty"`
	Metadata      common.JSON     `gorm:"type:json" json:"metadata"`

	Pipeline *Pipeline    `gorm:"foreignKey:PipelineID;constraint:OnDelete:CASCADE" json:"pipeline,omitempty"`
	Stages   []*BuildStage `gorm:"foreignKey:BuildID;constraint:OnDelete:CASCADE" json:"stages,omitempty"`
}

func (Build) TableName() string {
	return "builds"
}

// WithPipeline 需要预加载 Pipeline
func (b *Build) WithPipeline() dto.BuildWithPipeline {
	out := dto.BuildWithPipeline{BuildDTO: *b.ToDTO()}
	if b.Pipeline != nil {
		out.PipelineName = b.Pipeline.Name
		out.PipelineType = b.Pipeline.Type
	}
	return out
}

func (b *Build) ToDTO() *dto.BuildDTO {
	return &dto.BuildDTO{
		ID:          b.ID,
		PipelineID:  b.PipelineID,
		ExternalID:  b.ExternalID,
		Number:      b.Number,
		Status:      b.Status,
		StartTime:   b.StartTime,
		EndTime:     b.EndTime,
		Duration:    b.Duration,
		CommitHash:  b.CommitHash,
		Branch:      b.Branch,
		Author:      b.Author,
		TriggerType: b.TriggerType,
		CreatedAt:   b.CreatedAt,
	}
}

// BuildStage 构建中的一个阶段 / job
type BuildStage struct {
	common.Model
	BuildID   int64           `gorm:"not null;uniqueIndex:uk_stage_build_name,priority:1" json:"buildId"`
	Name      string          `gorm:"size:255;not null;uniqueIndex:uk_stage_build_name,priority:2" json:"name"`
	Status    dto.BuildStatus `gorm:"size:16;not null" json:"status"`
	StartTime *time.Time      `json:"startTime"`
	EndTime   *time.Time      `json:"endTime"`
	Duration  *int64          `json:"duration"`
	Logs      string          `gorm:"type:text" json:"logs,omitempty"`
}

func (BuildStage) TableName() string {
	return "build_stages"
}
