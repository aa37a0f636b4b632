package http

import (
	"bytes"
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
	"pipelinehealth/pkg/notifier"
	internalapp "pipelinehealth/system/alert/internal/app"
	"pipelinehealth/system/alert/internal/model"
	"pipelinehealth/system/alert/internal/service"
	pipelinedto "pipelinehealth/system/pipeline/api/dto"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

// stubSource 一条流水线，队列中固定 3 个待执行构建
type stubSource struct {
	service.PipelineSource
}

func (stubSource) ListPipelines(context.Context) ([]*pipelinedto.PipelineDTO, error) {
	return []*pipelinedto.PipelineDTO{{ID: 1, Name: "web"}}, nil
}

func (stubSource) GetPipeline(_ context.Context, id int64) (*pipelinedto.PipelineDTO, error) {
	if id != 1 {
		return nil, errorc.NewErrorBuilder("stubSource").NotFound("Pipeline not found")
	}
	return &pipelinedto.PipelineDTO{ID: 1, Name: "web"}, nil
}

func (stubSource) LatestBuild(context.Context, int64) (*pipelinedto.BuildDTO, error) {
	return nil, nil
}

func (stubSource) CountBuilds(context.Context, pipelinedto.BuildScope, pipelinedto.BuildStatus) (int64, error) {
	return 3, nil
}

type stubNotifier struct{}

func (stubNotifier) Send(context.Context, notifier.Request) notifier.Result {
	return notifier.Result{Success: true, SentChannels: []string{notifier.ChannelWebhook}}
}

func (n stubNotifier) Test(ctx context.Context, channels notifier.Channels) notifier.Result {
	return n.Send(ctx, notifier.Request{Channels: channels})
}

type testServer struct {
	app  *fiber.App
	auth *security.Auth
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db := dbtest.Open(t, &model.Alert{}, &model.AlertHistory{})
	log := logger.GetLogger()
	auth := security.NewAuth([]byte("test-secret"), time.Hour)

	app := internalapp.NewApp(internalapp.Deps{DB: db, Log: log, Source: stubSource{}, Notifier: stubNotifier{}})
	server := fiber.New(fiber.Config{ErrorHandler: fiber_handle.ErrHandler})
	NewAlertController(app, auth, log).RegisterRoutes(server.Group("/api"))
	return &testServer{app: server, auth: auth}
}

func (s *testServer) token(t *testing.T, role string) string {
	t.Helper()
	token, _, err := s.auth.CreateToken(&security.Claims{ID: 42, Email: "ops@example.com", Role: role})
	require.NoError(t, err)
	return token
}

func (s *testServer) do(t *testing.T, method, path, token, body string) (int, gjson.Result) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, gjson.ParseBytes(raw)
}

func TestAlertRoutes(t *testing.T) {
	s := newTestServer(t)
	user := s.token(t, "USER")
	viewer := s.token(t, "VIEWER")
	body := `{"name":"queue","conditionType":"QUEUE_LENGTH","threshold":2,"pipelineId":1,"notificationChannels":{"webhook":"http://hooks.local/a"}}`

	t.Run("只读用户不能创建", func(t *testing.T) {
		code, _ := s.do(t, "POST", "/api/alerts", viewer, body)
		assert.Equal(t, fiber.StatusForbidden, code)
	})
	t.Run("条件类型非法", func(t *testing.T) {
		code, _ := s.do(t, "POST", "/api/alerts", user, `{"name":"x","conditionType":"LATENCY","threshold":1,"notificationChannels":{}}`)
		assert.Equal(t, fiber.StatusBadRequest, code)
	})
	t.Run("缺少阈值", func(t *testing.T) {
		code, _ := s.do(t, "POST", "/api/alerts", user, `{"name":"x","conditionType":"FAILURE","notificationChannels":{}}`)
		assert.Equal(t, fiber.StatusBadRequest, code)
	})
	t.Run("流水线不存在", func(t *testing.T) {
		code, res := s.do(t, "POST", "/api/alerts", user, `{"name":"x","conditionType":"FAILURE","threshold":0,"pipelineId":9,"notificationChannels":{}}`)
		assert.Equal(t, fiber.StatusNotFound, code)
		assert.Equal(t, "Pipeline not found", res.Get("message").String())
	})

	code, res := s.do(t, "POST", "/api/alerts", user, body)
	require.Equal(t, fiber.StatusCreated, code)
	id := res.Get("data.id").Int()
	require.NotZero(t, id)
	assert.EqualValues(t, 42, res.Get("data.createdBy").Int())
	assert.True(t, res.Get("data.isActive").Bool())

	t.Run("列表", func(t *testing.T) {
		code, res := s.do(t, "GET", "/api/alerts", viewer, "")
		require.Equal(t, fiber.StatusOK, code)
		assert.Equal(t, "web", res.Get("data.0.pipelineName").String())
		assert.Equal(t, "http://hooks.local/a", res.Get("data.0.notificationChannels.webhook").String())
	})
	t.Run("立即评估", func(t *testing.T) {
		code, res := s.do(t, "POST", "/api/alerts/1/evaluate", user, "")
		require.Equal(t, fiber.StatusOK, code)
		assert.True(t, res.Get("data.triggered").Bool())
		assert.Equal(t, "Queue length exceeded threshold: 2 builds", res.Get("data.message").String())
		assert.Equal(t, "SENT", res.Get("data.notificationStatus").String())
	})
	t.Run("历史", func(t *testing.T) {
		code, res := s.do(t, "GET", "/api/alerts/1/history?limit=10", viewer, "")
		require.Equal(t, fiber.StatusOK, code)
		assert.EqualValues(t, 1, res.Get("data.pagination.total").Int())
		assert.Equal(t, "WARNING", res.Get("data.history.0.severity").String())
	})
	t.Run("历史分页上限", func(t *testing.T) {
		code, _ := s.do(t, "GET", "/api/alerts/1/history?limit=500", viewer, "")
		assert.Equal(t, fiber.StatusBadRequest, code)
	})
	t.Run("统计", func(t *testing.T) {
		code, res := s.do(t, "GET", "/api/alerts/statistics", viewer, "")
		require.Equal(t, fiber.StatusOK, code)
		assert.EqualValues(t, 1, res.Get("data.alertCounts.total").Int())
		assert.EqualValues(t, 100, res.Get("data.alertSuccessRate").Float())
	})
	t.Run("切换", func(t *testing.T) {
		code, res := s.do(t, "PATCH", "/api/alerts/1/toggle", user, "")
		require.Equal(t, fiber.StatusOK, code)
		assert.False(t, res.Get("data.isActive").Bool())
	})
	t.Run("测试通知", func(t *testing.T) {
		code, res := s.do(t, "POST", "/api/alerts/test", user, `{"notificationChannels":{"webhook":"http://hooks.local/t"}}`)
		require.Equal(t, fiber.StatusOK, code)
		assert.True(t, res.Get("data.success").Bool())
	})
	t.Run("删除", func(t *testing.T) {
		code, _ := s.do(t, "DELETE", "/api/alerts/1", user, "")
		require.Equal(t, fiber.StatusOK, code)
		code, _ = s.do(t, "GET", "/api/alerts/1", viewer, "")
		assert.Equal(t, fiber.StatusNotFound, code)
	})
}
