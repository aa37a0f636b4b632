package dto

import (
	"time"

	pipelinedto "pipelinehealth/system/pipeline/api/dto"
)

// Snapshot 一次聚合的结果，同时作为 metrics-update 事件内容
type Snapshot struct {
	PipelineID   int64   `json:"pipelineId"`
	Period       Period  `json:"period"`
	SuccessRate  float64 `json:"successRate"`
	AvgBuildTime float64 `json:"avgBuildTime"`
	FailureCount int64   `json:"failureCount"`
	QueueLength  int64   `json:"queueLength"`
	Timestamp    string  `json:"timestamp"`
}

// MetricPoint 指标趋势中的一个点
type MetricPoint struct {
	ID           int64                    `json:"id"`
	PipelineID   int64                    `json:"pipelineId"`
	PipelineName string                   `json:"pipelineName,omitempty"`
	PipelineType pipelinedto.PipelineType `json:"pipelineType,omitempty"`
	MetricType   MetricType               `json:"metricType"`
	Value        float64                  `json:"value"`
	Period       Period                   `json:"period"`
	Timestamp    time.Time                `json:"timestamp"`
}

type OverviewSummary struct {
	TotalPipelines int64   `json:"totalPipelines"`
	TotalBuilds    int64   `json:"totalBuilds"`
	RunningBuilds  int64   `json:"runningBuilds"`
	FailedBuilds   int64   `json:"failedBuilds"`
	SuccessBuilds  int64   `json:"successBuilds"`
	SuccessRate    float64 `json:"successRate"`
}

type BuildTimeStats struct {
	Average float64 `json:"average"`
	Minimum int64   `json:"minimum"`
	Maximum int64   `json:"maximum"`
}

// Overview 看板首页
type Overview struct {
	Summary          OverviewSummary                 `json:"summary"`
	PipelineStatuses []pipelinedto.StatusCount       `json:"pipelineStatuses"`
	BuildTimeStats   BuildTimeStats                  `json:"buildTimeStats"`
	RecentBuilds     []pipelinedto.BuildWithPipeline `json:"recentBuilds"`
}

type Trend struct {
	Period  Period        `json:"period"`
	Metrics []MetricPoint `json:"metrics"`
}

type BuildTimeTrend struct {
	Period         Period                      `json:"period"`
	Metrics        []MetricPoint               `json:"metrics"`
	BuildDurations []pipelinedto.DurationPoint `json:"buildDurations"`
}

type FailureAnalysis struct {
	FailedBuilds  []pipelinedto.FailedBuild  `json:"failedBuilds"`
	StageFailures []pipelinedto.StageFailure `json:"stageFailures"`
}

// Comparison 流水线横向对比的一行
type Comparison struct {
	ID               int64                      `json:"id"`
	Name             string                     `json:"name"`
	Type             pipelinedto.PipelineType   `json:"type"`
	Repository       string                     `json:"repository"`
	TotalBuilds      int64                      `json:"totalBuilds"`
	SuccessRate      float64                    `json:"successRate"`
	AverageBuildTime float64                    `json:"averageBuildTime"`
	LastStatus       pipelinedto.PipelineStatus `json:"lastStatus"`
}

type Realtime struct {
	RunningBuilds  []pipelinedto.BuildWithPipeline `json:"runningBuilds"`
	RecentActivity []pipelinedto.BuildWithPipeline `json:"recentActivity"`
	QueueLength    int64                           `json:"queueLength"`
	LastUpdated    string                          `json:"lastUpdated"`
}

// Summary 最近 24 小时汇总
type Summary struct {
	OverallSuccessRate float64                   `json:"overallSuccessRate"`
	AverageBuildTime   float64                   `json:"averageBuildTime"`
	TotalBuilds        int64                     `json:"totalBuilds"`
	SuccessfulBuilds   int64                     `json:"successfulBuilds"`
	PipelineStatuses   []pipelinedto.StatusCount `json:"pipelineStatuses"`
}

type PipelineMetrics struct {
	PipelineID int64         `json:"pipelineId"`
	Period     Period        `json:"period"`
	Metrics    []MetricPoint `json:"metrics"`
}
