package dto

import "time"

// PipelineDTO 对外暴露的流水线信息
type PipelineDTO struct {
	ID          int64          `json:"id"`
	Name        string         `json:"name"`
	Type        PipelineType   `json:"type"`
	Repository  string         `json:"repository"`
	Branch      string         `json:"branch"`
	Status      PipelineStatus `json:"status"`
	LastBuildID *int64         `json:"lastBuildId"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

// BuildDTO 对外暴露的构建信息
type BuildDTO struct {
	ID          int64       `json:"id"`
	PipelineID  int64       `json:"pipelineId"`
	ExternalID  string      `json:"externalId"`
	Number      int         `json:"number"`
	Status      BuildStatus `json:"status"`
	StartTime   *time.Time  `json:"startTime"`
	EndTime     *time.Time  `json:"endTime"`
	Duration    *int64      `json:"duration"`
	CommitHash  string      `json:"commitHash"`
	Branch      string      `json:"branch"`
	Author      string      `json:"author"`
	TriggerType TriggerType `json:"triggerType"`
	CreatedAt   time.Time   `json:"createdAt"`
}

// BuildScope 跨流水线查询的范围，PipelineID 为 nil 表示全部流水线
type BuildScope struct {
	PipelineID *int64
}

// DurationStats 一段时间内带耗时构建的统计
type DurationStats struct {
	Count   int64
	Average float64
}

// OutcomeStats 成功与失败构建计数
type OutcomeStats struct {
	Success int64
	Failed  int64
}

func (s OutcomeStats) Total() int64 {
	return s.Success + s.Failed
}

// BuildWithPipeline 附带所属流水线名称与类型的构建
type BuildWithPipeline struct {
	BuildDTO
	PipelineName string       `json:"pipelineName"`
	PipelineType PipelineType `json:"pipelineType"`
}

type StatusCount struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
}

// BuildOverview 看板概览的原始统计
type BuildOverview struct {
	TotalPipelines   int64               `json:"totalPipelines"`
	TotalBuilds      int64               `json:"totalBuilds"`
	RunningBuilds    int64               `json:"runningBuilds"`
	FailedBuilds     int64               `json:"failedBuilds"`
	SuccessBuilds    int64               `json:"successBuilds"`
	PipelineStatuses []StatusCount       `json:"pipelineStatuses"`
	DurationAverage  float64             `json:"durationAverage"`
	DurationMinimum  int64               `json:"durationMinimum"`
	DurationMaximum  int64               `json:"durationMaximum"`
	RecentBuilds     []BuildWithPipeline `json:"recentBuilds"`
}

type DurationPoint struct {
	Duration  int64       `json:"duration"`
	Status    BuildStatus `json:"status"`
	CreatedAt time.Time   `json:"createdAt"`
}

type StageLog struct {
	Name string `json:"name"`
	Logs string `json:"logs"`
}

type FailedBuild struct {
	BuildWithPipeline
	FailedStages []StageLog `json:"failedStages"`
}

type StageFailure struct {
	StageName    string `json:"stageName"`
	FailureCount int64  `json:"failureCount"`
}

// PipelineBuildStats 单条流水线的构建汇总，用于横向对比
type PipelineBuildStats struct {
	ID               int64          `json:"id"`
	Name             string         `json:"name"`
	Type             PipelineType   `json:"type"`
	Repository       string         `json:"repository"`
	TotalBuilds      int64          `json:"totalBuilds"`
	SuccessfulBuilds int64          `json:"successfulBuilds"`
	AverageBuildTime float64        `json:"averageBuildTime"`
	LastStatus       PipelineStatus `json:"lastStatus"`
}

// LatestMetrics 流水线最新一次聚合的成功率与平均耗时
type LatestMetrics struct {
	SuccessRate  float64 `json:"successRate"`
	AvgBuildTime float64 `json:"avgBuildTime"`
}

// WindowSummary 一段时间内全部构建的汇总
type WindowSummary struct {
	TotalBuilds      int64   `json:"totalBuilds"`
	SuccessfulBuilds int64   `json:"successfulBuilds"`
	AverageBuildTime float64 `json:"averageBuildTime"`
}
