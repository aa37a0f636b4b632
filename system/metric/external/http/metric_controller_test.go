package http

import (
	"context"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	errorc "pipelinehealth/pkg/core/err"
	"pipelinehealth/pkg/core/fiber_handle"
	"pipelinehealth/pkg/core/logger"
	"pipelinehealth/pkg/core/security"
	"pipelinehealth/pkg/dbtest"
	internalapp "pipelinehealth/system/metric/internal/app"
	"pipelinehealth/system/metric/internal/model"
	"pipelinehealth/system/metric/internal/service"
	pipelinedto "pipelinehealth/system/pipeline/api/dto"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

// stubSource 只实现接口测试用到的方法
type stubSource struct {
	service.PipelineSource
}

func (stubSource) GetPipeline(_ context.Context, id int64) (*pipelinedto.PipelineDTO, error) {
	if id != 1 {
		return nil, errorc.NewErrorBuilder("stubSource").NotFound("Pipeline not found")
	}
	return &pipelinedto.PipelineDTO{ID: 1, Name: "web"}, nil
}

func (stubSource) Overview(context.Context, int) (*pipelinedto.BuildOverview, error) {
	return &pipelinedto.BuildOverview{TotalPipelines: 1, TotalBuilds: 4, SuccessBuilds: 3}, nil
}

func newServer(t *testing.T) (*fiber.App, string) {
	t.Helper()
	db := dbtest.Open(t, &model.Metric{})
	log := logger.GetLogger()
	auth := security.NewAuth([]byte("test-secret"), time.Hour)

	app := internalapp.NewApp(internalapp.Deps{DB: db, Log: log, Source: stubSource{}})
	server := fiber.New(fiber.Config{ErrorHandler: fiber_handle.ErrHandler})
	NewMetricController(app, auth, log).RegisterRoutes(server.Group("/api"))

	token, _, err := auth.CreateToken(&security.Claims{ID: 1, Role: "VIEWER"})
	require.NoError(t, err)
	return server, token
}

func get(t *testing.T, server *fiber.App, path, token string) (int, gjson.Result) {
	t.Helper()
	req := httptest.NewRequest("GET", path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := server.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, gjson.ParseBytes(body)
}

func TestMetricRoutes(t *testing.T) {
	server, token := newServer(t)

	tests := []struct {
		name  string
		path  string
		token string
		code  int
	}{
		{"未登录", "/api/metrics/overview", "", fiber.StatusUnauthorized},
		{"概览", "/api/metrics/overview", token, fiber.StatusOK},
		{"非法周期", "/api/metrics/success-rate?period=YEARLY", token, fiber.StatusBadRequest},
		{"条数超限", "/api/metrics/build-times?limit=5000", token, fiber.StatusBadRequest},
		{"失败条数超限", "/api/metrics/failures?limit=101", token, fiber.StatusBadRequest},
		{"流水线指标", "/api/pipelines/1/metrics?period=HOURLY", token, fiber.StatusOK},
		{"流水线不存在", "/api/pipelines/2/metrics", token, fiber.StatusNotFound},
		{"非法流水线", "/api/pipelines/abc/metrics", token, fiber.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _ := get(t, server, tt.path, tt.token)
			assert.Equal(t, tt.code, code)
		})
	}

	_, body := get(t, server, "/api/metrics/overview", token)
	assert.Equal(t, 75.0, body.Get("data.summary.successRate").Float())

	_, body = get(t, server, "/api/pipelines/1/metrics?period=HOURLY", token)
	assert.Equal(t, "HOURLY", body.Get("data.period").String())
	assert.True(t, body.Get("data.metrics").IsArray())
}
