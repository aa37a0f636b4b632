package http

import (
	"bytes"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"pipelinehealth/pkg/core/fiber_handle"
	"pipelinehealth/pkg/core/logger"
	"pipelinehealth/pkg/core/security"
	"pipelinehealth/pkg/dbtest"
	internalapp "pipelinehealth/system/user/internal/app"
	"pipelinehealth/system/user/internal/model"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"gorm.io/gorm"
)

func newServer(t *testing.T) (*fiber.App, *gorm.DB) {
	t.Helper()
	db := dbtest.Open(t, &model.User{})
	log := logger.GetLogger()
	auth := security.NewAuth([]byte("test-secret"), time.Hour)

	app := internalapp.NewApp(internalapp.Deps{DB: db, Log: log, Auth: auth})
	server := fiber.New(fiber.Config{ErrorHandler: fiber_handle.ErrHandler})
	NewAuthController(app, auth, log).RegisterRoutes(server.Group("/api"))
	return server, db
}

func call(t *testing.T, server *fiber.App, method, path, token, body string) (int, gjson.Result) {
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
	resp, err := server.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, gjson.ParseBytes(raw)
}

func TestAuthFlow(t *testing.T) {
	server, db := newServer(t)
	register := `{"email":"Dev@Example.com","username":"dev_1","password":"secret1"}`

	code, res := call(t, server, "POST", "/api/auth/register", "", register)
	require.Equal(t, fiber.StatusCreated, code)
	assert.Equal(t, "dev@example.com", res.Get("data.email").String())
	assert.Equal(t, "VIEWER", res.Get("data.role").String())
	assert.False(t, res.Get("data.password").Exists())
	assert.False(t, res.Get("data.passwordHash").Exists())

	t.Run("重复注册", func(t *testing.T) {
		code, res := call(t, server, "POST", "/api/auth/register", "", `{"email":"other@example.com","username":"dev_1","password":"secret1"}`)
		assert.Equal(t, fiber.StatusConflict, code)
		assert.Equal(t, "User with this email or username already exists", res.Get("message").String())
	})

	t.Run("注册参数校验", func(t *testing.T) {
		cases := map[string]string{
			"邮箱格式":  `{"email":"nope","username":"abc","password":"secret1"}`,
			"用户名字符": `{"email":"a@example.com","username":"a-b","password":"secret1"}`,
			"密码太短":  `{"email":"a@example.com","username":"abc","password":"123"}`,
			"角色非法":  `{"email":"a@example.com","username":"abc","password":"secret1","role":"ROOT"}`,
		}
		for name, body := range cases {
			t.Run(name, func(t *testing.T) {
				code, _ := call(t, server, "POST", "/api/auth/register", "", body)
				assert.Equal(t, fiber.StatusBadRequest, code)
			})
		}
	})

	t.Run("密码错误", func(t *testing.T) {
		code, res := call(t, server, "POST", "/api/auth/login", "", `{"email":"dev@example.com","password":"wrong-pass"}`)
		assert.Equal(t, fiber.StatusUnauthorized, code)
		assert.Equal(t, "Invalid credentials", res.Get("message").String())
	})

	t.Run("用户不存在", func(t *testing.T) {
		code, _ := call(t, server, "POST", "/api/auth/login", "", `{"email":"ghost@example.com","password":"secret1"}`)
		assert.Equal(t, fiber.StatusUnauthorized, code)
	})

	code, res = call(t, server, "POST", "/api/auth/login", "", `{"email":"dev@example.com","password":"secret1"}`)
	require.Equal(t, fiber.StatusOK, code)
	token := res.Get("data.accessToken").String()
	require.NotEmpty(t, token)
	assert.Equal(t, "dev_1", res.Get("data.user.username").String())

	t.Run("当前用户", func(t *testing.T) {
		code, res := call(t, server, "GET", "/api/auth/me", token, "")
		require.Equal(t, fiber.StatusOK, code)
		assert.Equal(t, "dev@example.com", res.Get("data.email").String())
	})

	t.Run("未登录", func(t *testing.T) {
		code, _ := call(t, server, "GET", "/api/auth/me", "", "")
		assert.Equal(t, fiber.StatusUnauthorized, code)
	})

	t.Run("停用后不能登录", func(t *testing.T) {
		require.NoError(t, db.Model(&model.User{}).Where("email = ?", "dev@example.com").Update("is_active", false).Error)

		code, _ := call(t, server, "POST", "/api/auth/login", "", `{"email":"dev@example.com","password":"secret1"}`)
		assert.Equal(t, fiber.StatusUnauthorized, code)
		code, _ = call(t, server, "GET", "/api/auth/me", token, "")
		assert.Equal(t, fiber.StatusUnauthorized, code)
	})
}
