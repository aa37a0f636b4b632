package service

import (
	"context"

	errorc "pipelinehealth/pkg/core/err"
	"pipelinehealth/pkg/core/logger"
	"pipelinehealth/pkg/core/mvc"
	"pipelinehealth/system/pipeline/api/dto"
	"pipelinehealth/system/pipeline/internal/dao"
	"pipelinehealth/system/pipeline/internal/model"
	reqdto "pipelinehealth/system/pipeline/internal/model/dto"

	"gorm.io/gorm"
)

const recentBuildLimit = 10

// DeleteHook 删除流水线时在同一事务内清理其他模块的数据
type DeleteHook func(ctx context.Context, tx *gorm.DB, pipelineID int64) error

// MetricReader 读取流水线最新指标，由指标模块提供
type MetricReader interface {
	LatestMetrics(ctx context.Context, pipelineIDs []int64) (map[int64]dto.LatestMetrics, error)
}

// PipelineService 流水线业务逻辑层
type PipelineService struct {
	mvc.IBaseService[model.Pipeline]
	dao      *dao.PipelineDao
	buildDao *dao.BuildDao
	stageDao *dao.StageDao
	db       *gorm.DB
	hooks    []DeleteHook
	metrics  MetricReader
	log      *logger.Log
	err      *errorc.ErrorBuilder
}

func NewPipelineService(db *gorm.DB, pipelineDao *dao.PipelineDao, buildDao *dao.BuildDao, stageDao *dao.StageDao, log *logger.Log) *PipelineService {
	return &PipelineService{
		IBaseService: mvc.NewBaseService[model.Pipeline](pipelineDao.IBaseDao),
		dao:          pipelineDao,
		buildDao:     buildDao,
		stageDao:     stageDao,
		db:           db,
		log:          log.WithEntryName("PipelineService"),
		err:          errorc.NewErrorBuilder("PipelineService"),
	}
}

// OnDelete 注册删除钩子，需在服务启动前完成
func (s *PipelineService) OnDelete(hook DeleteHook) {
	s.hooks = append(s.hooks, hook)
}

func (s *PipelineService) SetMetricReader(reader MetricReader) {
	s.metrics = reader
}

func (s *PipelineService) Get(ctx context.Context, id int64) (*model.Pipeline, error) {
	pipeline, err := s.dao.FindById(ctx, id)
	if err != nil {
		if errorc.IsNotFound(err) {
			return nil, s.err.New("Pipeline not found", err).NotFound()
		}
		return nil, s.err.New("查询流水线失败", err).DB()
	}
	return pipeline, nil
}

// Detail 流水线及最近的构建
func (s *PipelineService) Detail(ctx context.Context, id int64) (*model.Pipeline, []*model.Build, error) {
	pipeline, err := s.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	builds, err := s.buildDao.FindRecent(ctx, id, recentBuildLimit)
	if err != nil {
		return nil, nil, err
	}
	return pipeline, builds, nil
}

func (s *PipelineService) Create(ctx context.Context, req *reqdto.SavePipelineReq) (*model.Pipeline, error) {
	exists, err := s.dao.ExistsByName(ctx, req.Name, 0)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, s.err.Conflict("Pipeline with this name already exists")
	}

	pipeline := &model.Pipeline{
		Name:       req.Name,
		Type:       req.Type,
		Repository: req.Repository,
		Branch:     req.Branch,
		WebhookURL: req.WebhookURL,
		Config:     req.Config,
		Status:     dto.PipelineStatusUnknown,
	}
	if pipeline.Branch == "" {
		pipeline.Branch = "main"
	}
	if err := s.dao.Create(ctx, pipeline); err != nil {
		return nil, s.err.New("创建流水线失败", err).DB()
	}

	s.log.WithPipelineID(pipeline.ID).WithField("name", pipeline.Name).Info("流水线已创建")
	return pipeline, nil
}

func (s *PipelineService) Update(ctx context.Context, id int64, req *reqdto.SavePipelineReq) (*model.Pipeline, error) {
	pipeline, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != pipeline.Name {
		exists, err := s.dao.ExistsByName(ctx, req.Name, id)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, s.err.Conflict("Pipeline with this name already exists")
		}
	}

	fields := map[string]interface{}{
		"name":        req.Name,
		"type":        req.Type,
		"repository":  req.Repository,
		"webhook_url": req.WebhookURL,
		"config":      req.Config,
	}
	if req.Branch != "" {
		fields["branch"] = req.Branch
	}
	if _, err := s.dao.UpdateFieldsById(ctx, id, fields); err != nil {
		return nil, s.err.New("更新流水线失败", err).DB()
	}

	s.log.WithPipelineID(id).Info("流水线已更新")
	return s.Get(ctx, id)
}

// Delete 级联删除构建、阶段以及注册钩子负责的指标和告警
func (s *PipelineService) Delete(ctx context.Context, id int64) error {
	pipeline, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, hook := range s.hooks {
			if err := hook(ctx, tx, id); err != nil {
				return err
			}
		}
		if err := s.stageDao.WithTx(tx).DeleteByPipeline(ctx, id); err != nil {
			return err
		}
		if err := s.buildDao.WithTx(tx).DeleteByPipeline(ctx, id); err != nil {
			return err
		}
		return s.dao.WithTx(tx).DeleteById(ctx, id)
	})
	if err != nil {
		return s.err.New("删除流水线失败", err).DB()
	}

	s.log.WithPipelineID(id).WithField("name", pipeline.Name).Info("流水线已删除")
	return nil
}

// Page 列表附带最近一次构建、构建总数与最新指标
func (s *PipelineService) Page(ctx context.Context, req *reqdto.ListPipelineReq) ([]*reqdto.PipelineListItem, int64, error) {
	page := mvc.NewPage(req.Page, defaultLimit(req.Limit, 20), nil)
	pipelines, total, err := s.dao.FindPage(ctx, page, dao.PipelineFilter{
		Type:   req.Type,
		Status: req.Status,
		Search: req.Search,
	})
	if err != nil {
		return nil, 0, err
	}

	ids := make([]int64, 0, len(pipelines))
	for _, p := range pipelines {
		ids = append(ids, p.ID)
	}
	latest := map[int64]dto.LatestMetrics{}
	if s.metrics != nil && len(ids) > 0 {
		if latest, err = s.metrics.LatestMetrics(ctx, ids); err != nil {
			return nil, 0, err
		}
	}

	items := make([]*reqdto.PipelineListItem, 0, len(pipelines))
	for _, p := range pipelines {
		last, err := s.buildDao.Latest(ctx, p.ID)
		if err != nil {
			return nil, 0, err
		}
		count, err := s.buildDao.Count(ctx, dto.BuildScope{PipelineID: &p.ID})
		if err != nil {
			return nil, 0, err
		}

		item := &reqdto.PipelineListItem{
			ID:         p.ID,
			Name:       p.Name,
			Type:       p.Type,
			Repository: p.Repository,
			Branch:     p.Branch,
			Status:     p.Status,
			Metrics: reqdto.PipelineMetrics{
				SuccessRate:  latest[p.ID].SuccessRate,
				AvgBuildTime: latest[p.ID].AvgBuildTime,
				TotalBuilds:  count,
			},
			CreatedAt: p.CreatedAt,
			UpdatedAt: p.UpdatedAt,
		}
		if last != nil {
			item.LastBuild = last.ToDTO()
		}
		items = append(items, item)
	}
	return items, total, nil
}

func (s *PipelineService) ListAll(ctx context.Context) ([]*model.Pipeline, error) {
	pipelines, err := s.dao.FindList(ctx)
	if err != nil {
		return nil, s.err.New("查询流水线列表失败", err).DB()
	}
	return pipelines, nil
}

func defaultLimit(limit, def int) int {
	if limit <= 0 {
		return def
	}
	return limit
}
