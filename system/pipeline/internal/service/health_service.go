package service

import (
	"context"
	"time"

	"pipelinehealth/pkg/clock"
	errorc "pipelinehealth/pkg/core/err"
	"pipelinehealth/pkg/core/logger"
	"pipelinehealth/pkg/live"
	"pipelinehealth/system/pipeline/api/dto"
	"pipelinehealth/system/pipeline/internal/dao"
	"pipelinehealth/system/pipeline/internal/model"
)

// InactiveAfter 最近一次构建超过该时长视为停用
const InactiveAfter = 24 * time.Hour

// HealthService 根据最近一次构建推导流水线状态
type HealthService struct {
	pipelineDao *dao.PipelineDao
	buildDao    *dao.BuildDao
	publisher   live.Publisher
	clock       clock.Clock
	log         *logger.Log
	err         *errorc.ErrorBuilder
}

func NewHealthService(pipelineDao *dao.PipelineDao, buildDao *dao.BuildDao, publisher live.Publisher, clk clock.Clock, log *logger.Log) *HealthService {
	return &HealthService{
		pipelineDao: pipelineDao,
		buildDao:    buildDao,
		publisher:   publisher,
		clock:       clk,
		log:         log.WithEntryName("HealthService"),
		err:         errorc.NewErrorBuilder("HealthService"),
	}
}

// Derive 没有构建为 UNKNOWN，最近构建超过 24 小时为 DISABLED，否则跟随最近构建
func Derive(latest *model.Build, now time.Time) dto.PipelineStatus {
	if latest == nil {
		return dto.PipelineStatusUnknown
	}
	if now.Sub(latest.CreatedAt) > InactiveAfter {
		return dto.PipelineStatusDisabled
	}
	return latest.Status.PipelineStatus()
}

// RefreshHealth 状态有变化时才写库并推送，返回是否发生变化
func (s *HealthService) RefreshHealth(ctx context.Context, pipeline *model.Pipeline) (bool, error) {
	latest, err := s.buildDao.Latest(ctx, pipeline.ID)
	if err != nil {
		return false, err
	}

	now := s.clock.Now()
	status := Derive(latest, now)
	if status == pipeline.Status {
		return false, nil
	}

	if err := s.pipelineDao.UpdateStatus(ctx, pipeline.ID, status, nil, now); err != nil {
		return false, err
	}

	s.log.WithPipelineID(pipeline.ID).
		WithField("from", pipeline.Status).
		WithField("to", status).
		Info("流水线状态已更新")

	pipeline.Status = status
	s.publisher.Broadcast(live.Event{
		Name:       live.EventPipelineUpdate,
		PipelineID: pipeline.ID,
		Data: map[string]interface{}{
			"pipelineId": pipeline.ID,
			"status":     status,
			"timestamp":  live.Timestamp(now),
		},
	})
	return true, nil
}

// RefreshAll 单条流水线失败只记录日志
func (s *HealthService) RefreshAll(ctx context.Context) error {
	pipelines, err := s.pipelineDao.FindList(ctx)
	if err != nil {
		return s.err.New("查询流水线列表失败", err).DB()
	}

	changed := 0
	for _, p := range pipelines {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		ok, err := s.RefreshHealth(ctx, p)
		if err != nil {
			s.log.WithPipelineID(p.ID).WithErr(err).Error("刷新流水线健康状态失败")
			continue
		}
		if ok {
			changed++
		}
	}

	s.log.WithField("total", len(pipelines)).WithField("changed", changed).Debug("流水线健康检查完成")
	return nil
}
