package service

import (
	"strconv"
	"strings"
	"time"

	"pipelinehealth/pkg/core/model/common"
	"pipelinehealth/system/pipeline/api/dto"

	"github.com/tidwall/gjson"
)

// Source 支持的回调来源
type Source string

const (
	SourceGithub  Source = "github"
	SourceGitlab  Source = "gitlab"
	SourceJenkins Source = "jenkins"
)

func (s Source) Valid() bool {
	switch s {
	case SourceGithub, SourceGitlab, SourceJenkins:
		return true
	}
	return false
}

// updateKind 回调对构建产生的影响
type updateKind int

const (
	// kindBuild 整条构建的状态变化，同时刷新流水线状态
	kindBuild updateKind = iota + 1
	// kindStage 单个阶段变化，构建状态由阶段组合得出
	kindStage
)

// buildUpdate 从各平台回调中解析出的统一结构
type buildUpdate struct {
	Kind         updateKind
	PipelineType dto.PipelineType
	Repository   string
	JobName      string
	ExternalID   string
	Number       int
	Status       dto.BuildStatus
	StartTime    *time.Time
	EndTime      *time.Time
	Duration     *int64
	CommitHash   string
	CommitMsg    string
	Branch       string
	Author       string
	TriggerType  dto.TriggerType
	Metadata     common.JSON
	Stages       []stageUpdate
	// CreateBuild 阶段回调找不到构建时是否新建
	CreateBuild bool
}

type stageUpdate struct {
	Name      string
	Status    dto.BuildStatus
	StartTime *time.Time
	EndTime   *time.Time
	Duration  *int64
	Logs      string
}

// parseResult 解析结果，Skip 表示该事件无需处理，Reason 用于日志
type parseResult struct {
	Update *buildUpdate
	Skip   bool
	Reason string
}

func skip(reason string) parseResult {
	return parseResult{Skip: true, Reason: reason}
}

func unmapped(field, value string) parseResult {
	return skip("unmapped " + field + " status: " + value)
}

// parse 按来源与事件分发到对应解析函数
func parse(source Source, event string, data gjson.Result) parseResult {
	switch source {
	case SourceGithub:
		switch event {
		case "workflow_run":
			return parseGithubWorkflowRun(data)
		case "check_run":
			return parseGithubCheckRun(data)
		case "push", "pull_request":
			return skip("github " + event + " event recorded only")
		}
	case SourceGitlab:
		switch event {
		case "pipeline":
			return parseGitlabPipeline(data)
		case "job", "build":
			return parseGitlabJob(data)
		}
	case SourceJenkins:
		switch event {
		case "build", "":
			return parseJenkinsBuild(data)
		}
	default:
		return skip("unknown webhook source: " + string(source))
	}
	return skip("unhandled " + string(source) + " event: " + event)
}

func mapGithubStatus(v string) (dto.BuildStatus, bool) {
	switch v {
	case "success":
		return dto.BuildStatusSuccess, true
	case "failure":
		return dto.BuildStatusFailed, true
	case "cancelled":
		return dto.BuildStatusCancelled, true
	case "in_progress":
		return dto.BuildStatusRunning, true
	case "queued", "waiting":
		return dto.BuildStatusPending, true
	}
	return "", false
}

func mapGitlabStatus(v string) (dto.BuildStatus, bool) {
	switch v {
	case "success":
		return dto.BuildStatusSuccess, true
	case "failed":
		return dto.BuildStatusFailed, true
	case "canceled":
		return dto.BuildStatusCancelled, true
	case "running":
		return dto.BuildStatusRunning, true
	case "pending":
		return dto.BuildStatusPending, true
	case "skipped":
		return dto.BuildStatusSkipped, true
	}
	return "", false
}

func mapJenkinsStatus(v string) (dto.BuildStatus, bool) {
	switch v {
	case "SUCCESS":
		return dto.BuildStatusSuccess, true
	case "FAILURE":
		return dto.BuildStatusFailed, true
	case "ABORTED":
		return dto.BuildStatusCancelled, true
	case "IN_PROGRESS":
		return dto.BuildStatusRunning, true
	case "QUEUED":
		return dto.BuildStatusPending, true
	}
	return "", false
}

// combineStages 任一失败则失败，其次运行中、排队中，全部成功才算成功；都不满足返回 false
func combineStages(statuses []dto.BuildStatus) (dto.BuildStatus, bool) {
	if len(statuses) == 0 {
		return "", false
	}
	has := make(map[dto.BuildStatus]bool, len(statuses))
	for _, s := range statuses {
		has[s] = true
	}
	switch {
	case has[dto.BuildStatusFailed]:
		return dto.BuildStatusFailed, true
	case has[dto.BuildStatusRunning]:
		return dto.BuildStatusRunning, true
	case has[dto.BuildStatusPending]:
		return dto.BuildStatusPending, true
	case len(has) == 1 && has[dto.BuildStatusSuccess]:
		return dto.BuildStatusSuccess, true
	}
	return "", false
}

func timeOf(r gjson.Result) *time.Time {
	if !r.Exists() || r.Type == gjson.Null {
		return nil
	}
	if r.Type == gjson.Number {
		t := time.UnixMilli(r.Int()).UTC()
		return &t
	}
	t, err := common.ParseTime(r.String())
	if err != nil {
		return nil
	}
	return &t
}

func secondsBetween(start, end *time.Time) *int64 {
	if start == nil || end == nil {
		return nil
	}
	d := int64(end.Sub(*start).Seconds())
	return &d
}

// positiveSeconds 0 或缺失视为没有耗时
func positiveSeconds(r gjson.Result) *int64 {
	if !r.Exists() || r.Float() <= 0 {
		return nil
	}
	d := int64(r.Float())
	return &d
}

func triggerOf(event string) dto.TriggerType {
	switch event {
	case "push":
		return dto.TriggerTypePush
	case "pull_request", "merge_request_event":
		return dto.TriggerTypePullRequest
	case "schedule":
		return dto.TriggerTypeSchedule
	}
	return dto.TriggerTypeWebhook
}

func parseGithubWorkflowRun(data gjson.Result) parseResult {
	run := data.Get("workflow_run")
	if !run.Exists() {
		return skip("workflow_run payload missing")
	}

	raw := run.Get("conclusion").String()
	if raw == "" {
		raw = run.Get("status").String()
	}
	status, ok := mapGithubStatus(raw)
	if !ok {
		return unmapped("github", raw)
	}

	u := &buildUpdate{
		Kind:         kindBuild,
		PipelineType: dto.PipelineTypeGithubActions,
		Repository:   data.Get("repository.full_name").String(),
		ExternalID:   run.Get("id").String(),
		Number:       int(run.Get("run_number").Int()),
		Status:       status,
		StartTime:    timeOf(run.Get("run_started_at")),
		CommitHash:   run.Get("head_sha").String(),
		CommitMsg:    run.Get("head_commit.message").String(),
		Branch:       run.Get("head_branch").String(),
		Author:       run.Get("actor.login").String(),
		TriggerType:  triggerOf(run.Get("event").String()),
		Metadata: common.JSON{
			"workflowName": run.Get("name").String(),
			"workflowId":   run.Get("workflow_id").Int(),
			"runNumber":    run.Get("run_number").Int(),
			"actor":        run.Get("actor.login").String(),
			"event":        run.Get("event").String(),
		},
	}
	if run.Get("conclusion").String() != "" {
		u.EndTime = timeOf(run.Get("updated_at"))
		u.Duration = secondsBetween(u.StartTime, u.EndTime)
	}
	return parseResult{Update: u}
}

func parseGithubCheckRun(data gjson.Result) parseResult {
	check := data.Get("check_run")
	if !check.Exists() {
		return skip("check_run payload missing")
	}

	raw := check.Get("conclusion").String()
	if raw == "" {
		raw = check.Get("status").String()
	}
	status, ok := mapGithubStatus(raw)
	if !ok {
		return unmapped("github", raw)
	}

	suiteID := check.Get("check_suite.id").String()
	if suiteID == "" {
		suiteID = check.Get("check_suite_id").String()
	}

	stage := stageUpdate{
		Name:      check.Get("name").String(),
		Status:    status,
		StartTime: timeOf(check.Get("started_at")),
		Logs:      check.Get("output.summary").String(),
	}
	if check.Get("conclusion").String() != "" {
		stage.EndTime = timeOf(check.Get("completed_at"))
		stage.Duration = secondsBetween(stage.StartTime, stage.EndTime)
	}

	return parseResult{Update: &buildUpdate{
		Kind:         kindStage,
		PipelineType: dto.PipelineTypeGithubActions,
		Repository:   data.Get("repository.full_name").String(),
		ExternalID:   suiteID,
		Status:       status,
		CommitHash:   check.Get("head_sha").String(),
		Branch:       check.Get("check_suite.head_branch").String(),
		TriggerType:  dto.TriggerTypeWebhook,
		Metadata: common.JSON{
			"checkRunName": check.Get("name").String(),
			"checkSuiteId": suiteID,
			"appName":      check.Get("app.name").String(),
		},
		Stages:      []stageUpdate{stage},
		CreateBuild: true,
	}}
}

// parseGitlabPipeline 原生回调字段在 object_attributes，转发格式在 pipeline
func parseGitlabPipeline(data gjson.Result) parseResult {
	attrs := data.Get("object_attributes")
	if !attrs.Exists() {
		attrs = data.Get("pipeline")
	}
	if !attrs.Exists() {
		return skip("gitlab pipeline payload missing")
	}

	raw := attrs.Get("status").String()
	status, ok := mapGitlabStatus(raw)
	if !ok {
		return unmapped("gitlab", raw)
	}

	author := data.Get("user.name").String()
	if author == "" {
		author = attrs.Get("user.name").String()
	}

	u := &buildUpdate{
		Kind:         kindBuild,
		PipelineType: dto.PipelineTypeGitlabCI,
		Repository:   data.Get("project.path_with_namespace").String(),
		ExternalID:   attrs.Get("id").String(),
		Number:       int(attrs.Get("iid").Int()),
		Status:       status,
		StartTime:    timeOf(attrs.Get("created_at")),
		EndTime:      timeOf(attrs.Get("finished_at")),
		Duration:     positiveSeconds(attrs.Get("duration")),
		CommitHash:   attrs.Get("sha").String(),
		CommitMsg:    data.Get("commit.message").String(),
		Branch:       attrs.Get("ref").String(),
		Author:       author,
		TriggerType:  triggerOf(attrs.Get("source").String()),
		Metadata: common.JSON{
			"pipelineId": attrs.Get("id").Int(),
			"projectId":  data.Get("project.id").Int(),
			"source":     attrs.Get("source").String(),
			"user":       author,
		},
	}

	for _, job := range data.Get("builds").Array() {
		s, ok := mapGitlabStatus(job.Get("status").String())
		if !ok {
			continue
		}
		u.Stages = append(u.Stages, stageUpdate{
			Name:      gitlabJobName(job.Get("name"), job.Get("stage")),
			Status:    s,
			StartTime: timeOf(job.Get("started_at")),
			EndTime:   timeOf(job.Get("finished_at")),
			Duration:  positiveSeconds(job.Get("duration")),
		})
	}
	return parseResult{Update: u}
}

// parseGitlabJob 兼容原生 Job Hook 的平铺字段与转发格式的 job 对象
func parseGitlabJob(data gjson.Result) parseResult {
	job := data.Get("job")
	var (
		pipelineID, raw string
		name            string
		start, end      *time.Time
		duration        *int64
		logs            string
	)
	if job.Exists() {
		pipelineID = job.Get("pipeline.id").String()
		raw = job.Get("status").String()
		name = gitlabJobName(job.Get("name"), job.Get("stage"))
		start = timeOf(job.Get("started_at"))
		end = timeOf(job.Get("finished_at"))
		duration = positiveSeconds(job.Get("duration"))
		logs = job.Get("trace").String()
	} else {
		pipelineID = data.Get("pipeline_id").String()
		raw = data.Get("build_status").String()
		name = gitlabJobName(data.Get("build_name"), data.Get("build_stage"))
		start = timeOf(data.Get("build_started_at"))
		end = timeOf(data.Get("build_finished_at"))
		duration = positiveSeconds(data.Get("build_duration"))
	}
	if pipelineID == "" {
		return skip("gitlab job payload missing pipeline id")
	}

	status, ok := mapGitlabStatus(raw)
	if !ok {
		return unmapped("gitlab", raw)
	}

	return parseResult{Update: &buildUpdate{
		Kind:         kindStage,
		PipelineType: dto.PipelineTypeGitlabCI,
		Repository:   data.Get("project.path_with_namespace").String(),
		ExternalID:   pipelineID,
		Status:       status,
		Stages: []stageUpdate{{
			Name:      name,
			Status:    status,
			StartTime: start,
			EndTime:   end,
			Duration:  duration,
			Logs:      logs,
		}},
	}}
}

func gitlabJobName(name, stage gjson.Result) string {
	if n := strings.TrimSpace(name.String()); n != "" {
		return n
	}
	return stage.String()
}

// parseJenkinsBuild 时间戳与耗时单位为毫秒
func parseJenkinsBuild(data gjson.Result) parseResult {
	build := data.Get("build")
	if !build.Exists() {
		return skip("jenkins build payload missing")
	}

	raw := build.Get("status").String()
	status, ok := mapJenkinsStatus(raw)
	if !ok {
		return unmapped("jenkins", raw)
	}

	number := build.Get("number").Int()
	u := &buildUpdate{
		Kind:         kindBuild,
		PipelineType: dto.PipelineTypeJenkins,
		JobName:      data.Get("job.name").String(),
		ExternalID:   strconv.FormatInt(number, 10),
		Number:       int(number),
		Status:       status,
		StartTime:    timeOf(build.Get("timestamp")),
		CommitHash:   build.Get("commit_id").String(),
		Branch:       build.Get("branch").String(),
		TriggerType:  dto.TriggerTypeWebhook,
		Metadata: common.JSON{
			"buildNumber": number,
			"jobName":     data.Get("job.name").String(),
			"result":      build.Get("result").String(),
			"url":         build.Get("url").String(),
		},
	}
	if ms := build.Get("duration").Int(); ms > 0 {
		seconds := ms / 1000
		u.Duration = &seconds
		if u.StartTime != nil {
			end := u.StartTime.Add(time.Duration(ms) * time.Millisecond)
			u.EndTime = &end
		}
	}
	return parseResult{Update: u}
}
