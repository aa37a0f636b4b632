package service

import (
	"context"

	"pipelinehealth/pkg/clock"
	errorc "pipelinehealth/pkg/core/err"
	"pipelinehealth/pkg/core/logger"
	"pipelinehealth/pkg/core/model/common"
	"pipelinehealth/pkg/core/mvc"
	"pipelinehealth/pkg/live"
	"pipelinehealth/system/pipeline/api/dto"
	"pipelinehealth/system/pipeline/internal/dao"
	"pipelinehealth/system/pipeline/internal/model"
	reqdto "pipelinehealth/system/pipeline/internal/model/dto"

	"github.com/google/uuid"
)

// BuildService 构建查询、手动触发与取消
type BuildService struct {
	mvc.IBaseService[model.Build]
	dao         *dao.BuildDao
	stageDao    *dao.StageDao
	pipelineDao *dao.PipelineDao
	publisher   live.Publisher
	clock       clock.Clock
	log         *logger.Log
	err         *errorc.ErrorBuilder
}

func NewBuildService(buildDao *dao.BuildDao, stageDao *dao.StageDao, pipelineDao *dao.PipelineDao,
	publisher live.Publisher, clk clock.Clock, log *logger.Log) *BuildService {
	return &BuildService{
		IBaseService: mvc.NewBaseService[model.Build](buildDao.IBaseDao),
		dao:          buildDao,
		stageDao:     stageDao,
		pipelineDao:  pipelineDao,
		publisher:    publisher,
		clock:        clk,
		log:          log.WithEntryName("BuildService"),
		err:          errorc.NewErrorBuilder("BuildService"),
	}
}

func (s *BuildService) Page(ctx context.Context, req *reqdto.ListBuildReq) ([]*model.Build, int64, error) {
	page := mvc.NewPage(req.Page, defaultLimit(req.Limit, 20), nil)
	return s.dao.FindPage(ctx, page, dao.BuildFilter{
		PipelineID:  req.PipelineID,
		Status:      req.Status,
		Branch:      req.Branch,
		TriggerType: req.TriggerType,
	})
}

func (s *BuildService) Detail(ctx context.Context, id int64) (*model.Build, error) {
	return s.dao.FindDetail(ctx, id)
}

// Logs 构建日志按阶段返回
func (s *BuildService) Logs(ctx context.Context, id int64) ([]*model.BuildStage, error) {
	if _, err := s.get(ctx, id); err != nil {
		return nil, err
	}
	return s.stageDao.FindByBuild(ctx, id)
}

// Trigger 手动触发只登记一条 PENDING 构建，真正的执行由 CI 平台回调推进
func (s *BuildService) Trigger(ctx context.Context, pipelineID int64, req *reqdto.TriggerBuildReq, triggeredBy string) (*model.Build, error) {
	pipeline, err := s.pipelineDao.FindById(ctx, pipelineID)
	if err != nil {
		if errorc.IsNotFound(err) {
			return nil, s.err.New("Pipeline not found", err).NotFound()
		}
		return nil, s.err.New("查询流水线失败", err).DB()
	}

	count, err := s.dao.Count(ctx, dto.BuildScope{PipelineID: &pipelineID})
	if err != nil {
		return nil, err
	}

	build := &model.Build{
		PipelineID:  pipelineID,
		ExternalID:  "manual-" + uuid.NewString(),
		Number:      int(count) + 1,
		Status:      dto.BuildStatusPending,
		Branch:      req.Branch,
		CommitHash:  req.CommitHash,
		TriggerType: req.TriggerType,
		Metadata: common.JSON{
			"triggeredBy":   triggeredBy,
			"triggerReason": "Manual trigger",
		},
	}
	if build.Branch == "" {
		build.Branch = pipeline.Branch
	}
	if build.TriggerType == "" {
		build.TriggerType = dto.TriggerTypeManual
	}
	if err := s.dao.Create(ctx, build); err != nil {
		return nil, s.err.New("创建手动构建失败", err).DB()
	}

	s.log.WithPipelineID(pipelineID).WithField("buildId", build.ID).WithField("by", triggeredBy).Info("手动触发构建")
	s.broadcast(build)
	return build, nil
}

// Cancel 只有运行中或排队中的构建可以取消
func (s *BuildService) Cancel(ctx context.Context, id int64) (*model.Build, error) {
	build, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if build.Status != dto.BuildStatusRunning && build.Status != dto.BuildStatusPending {
		return nil, s.err.BadRequest("Only running or pending builds can be cancelled")
	}

	now := s.clock.Now()
	build.Status = dto.BuildStatusCancelled
	build.EndTime = &now
	if build.StartTime != nil {
		seconds := int64(now.Sub(*build.StartTime).Seconds())
		build.Duration = &seconds
	}
	if err := s.dao.Save(ctx, build); err != nil {
		return nil, err
	}

	s.log.WithField("buildId", id).Info("构建已取消")
	s.broadcast(build)
	return build, nil
}

func (s *BuildService) get(ctx context.Context, id int64) (*model.Build, error) {
	build, err := s.dao.FindById(ctx, id)
	if err != nil {
		if errorc.IsNotFound(err) {
			return nil, s.err.New("Build not found", err).NotFound()
		}
		return nil, s.err.New("查询构建失败", err).DB()
	}
	return build, nil
}

func (s *BuildService) broadcast(build *model.Build) {
	s.publisher.Broadcast(live.Event{
		Name:       live.EventBuildUpdate,
		PipelineID: build.PipelineID,
		Data:       build.ToDTO(),
	})
}
