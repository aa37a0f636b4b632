package dto

// PipelineType 流水线所属的 CI 平台
type PipelineType string

const (
	PipelineTypeGithubActions PipelineType = "GITHUB_ACTIONS"
	PipelineTypeGitlabCI      PipelineType = "GITLAB_CI"
	PipelineTypeJenkins       PipelineType = "JENKINS"
	PipelineTypeAzureDevops   PipelineType = "AZURE_DEVOPS"
	PipelineTypeCircleCI      PipelineType = "CIRCLE_CI"
	PipelineTypeTravisCI      PipelineType = "TRAVIS_CI"
)

func (t PipelineType) Valid() bool {
	switch t {
	case PipelineTypeGithubActions, PipelineTypeGitlabCI, PipelineTypeJenkins,
		PipelineTypeAzureDevops, PipelineTypeCircleCI, PipelineTypeTravisCI:
		return true
	}
	return false
}

type PipelineStatus string

const (
	PipelineStatusSuccess  PipelineStatus = "SUCCESS"
	PipelineStatusFailed   PipelineStatus = "FAILED"
	PipelineStatusRunning  PipelineStatus = "RUNNING"
	PipelineStatusPending  PipelineStatus = "PENDING"
	PipelineStatusUnknown  PipelineStatus = "UNKNOWN"
	PipelineStatusDisabled PipelineStatus = "DISABLED"
)

func (s PipelineStatus) Valid() bool {
	switch s {
	case PipelineStatusSuccess, PipelineStatusFailed, PipelineStatusRunning,
		PipelineStatusPending, PipelineStatusUnknown, PipelineStatusDisabled:
		return true
	}
	return false
}

type BuildStatus string

const (
	BuildStatusPending   BuildStatus = "PENDING"
	BuildStatusRunning   BuildStatus = "RUNNING"
	BuildStatusSuccess   BuildStatus = "SUCCESS"
	BuildStatusFailed    BuildStatus = "FAILED"
	BuildStatusCancelled BuildStatus = "CANCELLED"
	BuildStatusSkipped   BuildStatus = "SKIPPED"
)

func (s BuildStatus) Valid() bool {
	switch s {
	case BuildStatusPending, BuildStatusRunning, BuildStatusSuccess,
		BuildStatusFailed, BuildStatusCancelled, BuildStatusSkipped:
		return true
	}
	return false
}

// Terminal 终态构建不再变更状态与耗时
func (s BuildStatus) Terminal() bool {
	switch s {
	case BuildStatusSuccess, BuildStatusFailed, BuildStatusCancelled, BuildStatusSkipped:
		return true
	}
	return false
}

// PipelineStatus 构建状态映射到流水线状态，流水线没有取消/跳过，归为 UNKNOWN
func (s BuildStatus) PipelineStatus() PipelineStatus {
	switch s {
	case BuildStatusPending:
		return PipelineStatusPending
	case BuildStatusRunning:
		return PipelineStatusRunning
	case BuildStatusSuccess:
		return PipelineStatusSuccess
	case BuildStatusFailed:
		return PipelineStatusFailed
	case BuildStatusCancelled, BuildStatusSkipped:
		return PipelineStatusUnknown
	}
	return PipelineStatusUnknown
}

type TriggerType string

const (
	TriggerTypePush        TriggerType = "PUSH"
	TriggerTypePullRequest TriggerType = "PULL_REQUEST"
	TriggerTypeSchedule    TriggerType = "SCHEDULE"
	TriggerTypeManual      TriggerType = "MANUAL"
	TriggerTypeWebhook     TriggerType = "WEBHOOK"
)

func (t TriggerType) Valid() bool {
	switch t {
	case TriggerTypePush, TriggerTypePullRequest, TriggerTypeSchedule, TriggerTypeManual, TriggerTypeWebhook:
		return true
	}
	return false
}
