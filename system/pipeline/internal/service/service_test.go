package service

import (
	"context"
	"testing"
	"time"

	"pipelinehealth/pkg/clock"
	"pipelinehealth/pkg/core/config"
	"pipelinehealth/pkg/core/logger"
	"pipelinehealth/pkg/dbtest"
	"pipelinehealth/pkg/live"
	"pipelinehealth/system/pipeline/api/dto"
	"pipelinehealth/system/pipeline/internal/dao"
	"pipelinehealth/system/pipeline/internal/model"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var baseTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	db          *gorm.DB
	pipelineDao *dao.PipelineDao
	buildDao    *dao.BuildDao
	stageDao    *dao.StageDao
	recorder    *live.Recorder
	clock       *clock.FakeClock
	log         *logger.Log
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := dbtest.Open(t, &model.Pipeline{}, &model.Build{}, &model.BuildStage{})
	log := logger.GetLogger()
	return &fixture{
		db:          db,
		pipelineDao: dao.NewPipelineDao(db, log),
		buildDao:    dao.NewBuildDao(db, log),
		stageDao:    dao.NewStageDao(db, log),
		recorder:    &live.Recorder{},
		clock:       clock.NewFakeClock(baseTime),
		log:         log,
	}
}

func (f *fixture) health() *HealthService {
	return NewHealthService(f.pipelineDao, f.buildDao, f.recorder, f.clock, f.log)
}

func (f *fixture) webhooks(cfg config.IngestConfig) *WebhookService {
	return NewWebhookService(f.db, f.pipelineDao, f.buildDao, f.stageDao, f.recorder, cfg, nil, f.log)
}

func (f *fixture) pipelines() *PipelineService {
	return NewPipelineService(f.db, f.pipelineDao, f.buildDao, f.stageDao, f.log)
}

func (f *fixture) builds() *BuildService {
	return NewBuildService(f.buildDao, f.stageDao, f.pipelineDao, f.recorder, f.clock, f.log)
}

func (f *fixture) addPipeline(t *testing.T, name string, typ dto.PipelineType, repo string) *model.Pipeline {
	t.Helper()
	p := &model.Pipeline{Name: name, Type: typ, Repository: repo, Branch: "main", Status: dto.PipelineStatusUnknown}
	require.NoError(t, f.db.Create(p).Error)
	return p
}

func (f *fixture) addBuild(t *testing.T, pipelineID int64, status dto.BuildStatus, createdAt time.Time, duration *int64) *model.Build {
	t.Helper()
	b := &model.Build{
		PipelineID:  pipelineID,
		ExternalID:  createdAt.Format(time.RFC3339Nano) + string(status),
		Status:      status,
		Duration:    duration,
		TriggerType: dto.TriggerTypePush,
	}
	b.CreatedAt = createdAt
	require.NoError(t, f.db.Create(b).Error)
	return b
}

func (f *fixture) reload(t *testing.T, id int64) *model.Pipeline {
	t.Helper()
	var p model.Pipeline
	require.NoError(t, f.db.First(&p, id).Error)
	return &p
}

func secs(v int64) *int64 {
	return &v
}

var ctx = context.Background()
