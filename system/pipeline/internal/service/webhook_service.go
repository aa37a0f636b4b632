package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"

	"pipelinehealth/pkg/core/config"
	errorc "pipelinehealth/pkg/core/err"
	"pipelinehealth/pkg/core/logger"
	"pipelinehealth/pkg/core/util"
	"pipelinehealth/pkg/live"
	"pipelinehealth/system/pipeline/api/dto"
	"pipelinehealth/system/pipeline/internal/dao"
	"pipelinehealth/system/pipeline/internal/model"

	"github.com/tidwall/gjson"
	"gorm.io/gorm"
)

// WebhookObserver 每收到一个回调事件调用一次
type WebhookObserver func(source, event string)

// WebhookService 处理 CI 平台回调，更新构建、阶段与流水线状态
type WebhookService struct {
	db          *gorm.DB
	pipelineDao *dao.PipelineDao
	buildDao    *dao.BuildDao
	stageDao    *dao.StageDao
	publisher   live.Publisher
	cfg         config.IngestConfig
	observe     WebhookObserver
	log         *logger.Log
	err         *errorc.ErrorBuilder
}

func NewWebhookService(db *gorm.DB, pipelineDao *dao.PipelineDao, buildDao *dao.BuildDao, stageDao *dao.StageDao,
	publisher live.Publisher, cfg config.IngestConfig, observe WebhookObserver, log *logger.Log) *WebhookService {
	if observe == nil {
		observe = func(string, string) {}
	}
	return &WebhookService{
		db:          db,
		pipelineDao: pipelineDao,
		buildDao:    buildDao,
		stageDao:    stageDao,
		publisher:   publisher,
		cfg:         cfg,
		observe:     observe,
		log:         log.WithEntryName("WebhookService"),
		err:         errorc.NewErrorBuilder("WebhookService"),
	}
}

// Verify 校验回调来源，对应密钥未配置时直接通过
func (s *WebhookService) Verify(source Source, header func(string) string, body []byte) error {
	switch source {
	case SourceGithub:
		if s.cfg.GithubSecret == "" {
			return nil
		}
		signature := header("X-Hub-Signature-256")
		if !strings.HasPrefix(signature, "sha256=") {
			return s.err.Unauthorized("Missing webhook signature")
		}
		mac := hmac.New(sha256.New, []byte(s.cfg.GithubSecret))
		mac.Write(body)
		expected := hex.EncodeToString(mac.Sum(nil))
		if !hmac.Equal([]byte(expected), []byte(strings.TrimPrefix(signature, "sha256="))) {
			return s.err.Unauthorized("Invalid webhook signature")
		}
	case SourceGitlab:
		if s.cfg.GitlabToken != "" && !tokenEqual(header("X-Gitlab-Token"), s.cfg.GitlabToken) {
			return s.err.Unauthorized("Invalid webhook token")
		}
	case SourceJenkins:
		if s.cfg.JenkinsToken != "" && !tokenEqual(header("X-Jenkins-Token"), s.cfg.JenkinsToken) {
			return s.err.Unauthorized("Invalid webhook token")
		}
	default:
		return s.err.BadRequest("Unknown webhook source: " + string(source))
	}
	return nil
}

func tokenEqual(got, want string) bool {
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

// ResolveEvent 原生回调的事件名来自请求头，其次是报文中的 object_kind / event
func ResolveEvent(source Source, header func(string) string, body gjson.Result) string {
	switch source {
	case SourceGithub:
		if e := header("X-GitHub-Event"); e != "" {
			return e
		}
	case SourceGitlab:
		switch header("X-Gitlab-Event") {
		case "Pipeline Hook":
			return "pipeline"
		case "Job Hook":
			return "job"
		}
		if kind := body.Get("object_kind").String(); kind != "" {
			return kind
		}
	}
	return body.Get("event").String()
}

// Accept 立即返回，异步处理回调，错误只记录日志
func (s *WebhookService) Accept(ctx context.Context, source Source, event string, data []byte) {
	payload := make([]byte, len(data))
	copy(payload, data)
	detached := util.DetachContext(ctx)
	go func() {
		if err := s.Process(detached, source, event, payload); err != nil {
			s.log.WithTrace(detached).WithErr(err).
				WithField("source", source).WithField("event", event).
				Error("处理回调失败")
		}
	}()
}

// Process 同步处理单个回调事件
func (s *WebhookService) Process(ctx context.Context, source Source, event string, data []byte) error {
	s.observe(string(source), event)
	log := s.log.WithTrace(ctx).WithField("source", source).WithField("event", event)

	res := parse(source, event, gjson.ParseBytes(data))
	if res.Skip {
		if strings.HasPrefix(res.Reason, "unmapped") || strings.HasPrefix(res.Reason, "unknown") {
			log.WithField("reason", res.Reason).Warn("忽略回调事件")
		} else {
			log.WithField("reason", res.Reason).Info("回调事件无需处理")
		}
		return nil
	}

	u := res.Update
	pipeline, err := s.matchPipeline(ctx, u)
	if err != nil {
		return err
	}
	if pipeline == nil {
		log.WithField("repository", u.Repository).WithField("job", u.JobName).Warn("未找到回调对应的流水线")
		return nil
	}

	var build *model.Build
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		switch u.Kind {
		case kindBuild:
			build, err = s.applyBuild(ctx, tx, pipeline, u)
		case kindStage:
			build, err = s.applyStage(ctx, tx, pipeline, u)
		}
		return err
	})
	if err != nil {
		return s.err.New("保存回调构建失败", err).DB()
	}
	if build == nil {
		log.WithField("externalId", u.ExternalID).Info("阶段回调对应的构建不存在，已忽略")
		return nil
	}

	s.publisher.Broadcast(live.Event{Name: live.EventBuildUpdate, PipelineID: pipeline.ID, Data: build.ToDTO()})
	if u.Kind == kindBuild {
		s.publisher.Broadcast(live.Event{Name: live.EventPipelineUpdate, PipelineID: pipeline.ID, Data: pipeline.ToDTO()})
	}

	log.WithPipelineID(pipeline.ID).WithField("buildId", build.ID).WithField("status", build.Status).Info("回调处理完成")
	return nil
}

func (s *WebhookService) matchPipeline(ctx context.Context, u *buildUpdate) (*model.Pipeline, error) {
	if u.JobName != "" {
		return s.pipelineDao.FindByNameContains(ctx, u.JobName, u.PipelineType)
	}
	if u.Repository == "" {
		return nil, nil
	}
	return s.pipelineDao.FindByRepository(ctx, u.Repository, u.PipelineType)
}

// applyBuild 按外部 ID 新建或更新构建，并刷新流水线状态与最近构建
func (s *WebhookService) applyBuild(ctx context.Context, tx *gorm.DB, pipeline *model.Pipeline, u *buildUpdate) (*model.Build, error) {
	buildDao := s.buildDao.WithTx(tx)
	build, err := buildDao.FindByExternalID(ctx, pipeline.ID, u.ExternalID)
	if err != nil {
		return nil, err
	}
	if build == nil {
		build = &model.Build{PipelineID: pipeline.ID, ExternalID: u.ExternalID}
	}
	merge(build, u)
	if err := buildDao.Save(ctx, build); err != nil {
		return nil, err
	}

	if len(u.Stages) > 0 {
		if err := s.saveStages(ctx, tx, build, u.Stages); err != nil {
			return nil, err
		}
	}

	status := build.Status.PipelineStatus()
	if err := s.pipelineDao.WithTx(tx).UpdateStatus(ctx, pipeline.ID, status, &build.ID, tx.NowFunc()); err != nil {
		return nil, err
	}
	pipeline.Status = status
	pipeline.LastBuildID = &build.ID
	return build, nil
}

// applyStage 更新单个阶段，构建状态随阶段组合变化
func (s *WebhookService) applyStage(ctx context.Context, tx *gorm.DB, pipeline *model.Pipeline, u *buildUpdate) (*model.Build, error) {
	buildDao := s.buildDao.WithTx(tx)
	build, err := buildDao.FindByExternalID(ctx, pipeline.ID, u.ExternalID)
	if err != nil {
		return nil, err
	}
	if build == nil {
		if !u.CreateBuild {
			return nil, nil
		}
		build = &model.Build{PipelineID: pipeline.ID, ExternalID: u.ExternalID}
		merge(build, u)
		if err := buildDao.Save(ctx, build); err != nil {
			return nil, err
		}
	}

	if err := s.saveStages(ctx, tx, build, u.Stages); err != nil {
		return nil, err
	}
	return build, nil
}

// saveStages 写入阶段后按全部阶段重新组合构建状态，终态构建不再改变
func (s *WebhookService) saveStages(ctx context.Context, tx *gorm.DB, build *model.Build, updates []stageUpdate) error {
	stageDao := s.stageDao.WithTx(tx)
	stages := make([]*model.BuildStage, 0, len(updates))
	for _, st := range updates {
		if st.Name == "" {
			continue
		}
		stages = append(stages, &model.BuildStage{
			BuildID:   build.ID,
			Name:      st.Name,
			Status:    st.Status,
			StartTime: st.StartTime,
			EndTime:   st.EndTime,
			Duration:  st.Duration,
			Logs:      st.Logs,
		})
	}
	if err := stageDao.Upsert(ctx, stages); err != nil {
		return err
	}
	if err := s.saveStageLogs(ctx, tx, stages); err != nil {
		return err
	}

	all, err := stageDao.FindByBuild(ctx, build.ID)
	if err != nil {
		return err
	}
	statuses := make([]dto.BuildStatus, 0, len(all))
	for _, st := range all {
		statuses = append(statuses, st.Status)
	}
	combined, ok := combineStages(statuses)
	if !ok || combined == build.Status || build.Status.Terminal() {
		return nil
	}
	build.Status = combined
	return s.buildDao.WithTx(tx).Save(ctx, build)
}

// saveStageLogs 日志只在回调带了内容时覆盖
func (s *WebhookService) saveStageLogs(ctx context.Context, tx *gorm.DB, stages []*model.BuildStage) error {
	for _, st := range stages {
		if st.Logs == "" {
			continue
		}
		err := tx.WithContext(ctx).Model(&model.BuildStage{}).
			Where("build_id = ? AND name = ?", st.BuildID, st.Name).
			Update("logs", st.Logs).Error
		if err != nil {
			return s.err.New("保存阶段日志失败", err).DB()
		}
	}
	return nil
}

// merge 把回调内容写入构建，终态构建保留原有状态与时间
func merge(build *model.Build, u *buildUpdate) {
	if build.ID == 0 || !build.Status.Terminal() {
		build.Status = u.Status
		if u.StartTime != nil {
			build.StartTime = u.StartTime
		}
		if u.EndTime != nil {
			build.EndTime = u.EndTime
		}
		if u.Duration != nil {
			build.Duration = u.Duration
		}
	}
	if u.Number > 0 {
		build.Number = u.Number
	}
	if u.CommitHash != "" {
		build.CommitHash = u.CommitHash
	}
	if u.CommitMsg != "" {
		build.CommitMessage = u.CommitMsg
	}
	if u.Branch != "" {
		build.Branch = u.Branch
	}
	if u.Author != "" {
		build.Author = u.Author
	}
	if build.TriggerType == "" {
		build.TriggerType = u.TriggerType
	}
	if build.TriggerType == "" {
		build.TriggerType = dto.TriggerTypeWebhook
	}
	if build.Metadata == nil {
		build.Metadata = make(map[string]interface{}, len(u.Metadata))
	}
	for k, v := range u.Metadata {
		build.Metadata[k] = v
	}
}
