package health

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"pipelinehealth/pkg/clock"
	"pipelinehealth/pkg/core/logger"
	"pipelinehealth/pkg/dbtest"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

type fixedCounter int

func (c fixedCounter) Count() int { return int(c) }

func get(t *testing.T, app *fiber.App, path string) (int, gjson.Result) {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest("GET", path, nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, gjson.ParseBytes(body)
}

func TestHealthRoutes(t *testing.T) {
	db := dbtest.Open(t)
	clk := clock.NewFakeClock(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	checker := NewChecker(Options{DB: db, Live: fixedCounter(3), Env: "test", Clock: clk, Log: logger.GetLogger()})
	clk.Advance(90 * time.Second)

	app := fiber.New()
	checker.RegisterRoutes(app.Group("/api"))

	t.Run("基础检查", func(t *testing.T) {
		code, res := get(t, app, "/api/health")
		require.Equal(t, fiber.StatusOK, code)
		assert.Equal(t, "healthy", res.Get("data.status").String())
		assert.Equal(t, 90.0, res.Get("data.uptime").Float())
		assert.Equal(t, "test", res.Get("data.environment").String())
	})
	t.Run("详细检查", func(t *testing.T) {
		_, res := get(t, app, "/api/health/detailed")
		assert.Equal(t, "healthy", res.Get("data.components.database.status").String())
		assert.Equal(t, "disabled", res.Get("data.components.redis.status").String())
		assert.EqualValues(t, 3, res.Get("data.liveClients").Int())
	})
	t.Run("数据库", func(t *testing.T) {
		code, res := get(t, app, "/api/health/database")
		require.Equal(t, fiber.StatusOK, code)
		assert.Equal(t, "healthy", res.Get("data.database.status").String())
	})
	t.Run("就绪", func(t *testing.T) {
		code, res := get(t, app, "/api/health/ready")
		require.Equal(t, fiber.StatusOK, code)
		assert.Equal(t, "ready", res.Get("data.status").String())
	})
	t.Run("存活", func(t *testing.T) {
		code, _ := get(t, app, "/api/health/live")
		assert.Equal(t, fiber.StatusOK, code)
	})
}

func TestNotReadyWhenDatabaseClosed(t *testing.T) {
	db := dbtest.Open(t)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	checker := NewChecker(Options{DB: db, Log: logger.GetLogger()})
	app := fiber.New()
	checker.RegisterRoutes(app.Group("/api"))

	code, res := get(t, app, "/api/health/ready")
	assert.Equal(t, fiber.StatusServiceUnavailable, code)
	assert.False(t, res.Get("data.checks.database").Bool())

	code, _ = get(t, app, "/api/health/database")
	assert.Equal(t, fiber.StatusServiceUnavailable, code)
	code, res = get(t, app, "/api/health/detailed")
	assert.Equal(t, fiber.StatusServiceUnavailable, code)
	assert.Equal(t, "degraded", res.Get("data.overall").String())
}
