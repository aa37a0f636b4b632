package security

import (
	"net/http/httptest"
	"testing"
	"time"

	"pipelinehealth/pkg/core/fiber_handle"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJwtClient_RoundTrip(t *testing.T) {
	client := NewJwtClient([]byte("secret"), time.Hour)
	token, exp, err := client.CreateToken(&Claims{ID: 7, Email: "dev@example.com", Role: "USER"})
	require.NoError(t, err)
	assert.Greater(t, exp, time.Now().Unix())

	claims, err := client.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, int64(7), claims.ID)
	assert.Equal(t, "USER", claims.Role)

	_, err = NewJwtClient([]byte("other"), time.Hour).ParseToken(token)
	assert.Error(t, err)
}

func TestAuth_RequireAuth(t *testing.T) {
	auth := NewAuth([]byte("secret"), time.Hour)
	app := fiber.New(fiber.Config{ErrorHandler: fiber_handle.ErrHandler})
	app.Get("/any", auth.RequireAuth(), func(c *fiber.Ctx) error {
		id, err := GetUserID(c)
		if err != nil {
			return err
		}
		claims, err := GetClaimsByCtx(c.UserContext())
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"id": id, "email": claims.Email})
	})
	app.Get("/admin", auth.RequireAuth(RoleAdmin), func(c *fiber.Ctx) error {
		return c.SendStatus(200)
	})

	userToken, _, err := auth.CreateToken(&Claims{ID: 1, Email: "u@example.com", Role: "USER"})
	require.NoError(t, err)
	adminToken, _, err := auth.CreateToken(&Claims{ID: 2, Email: "a@example.com", Role: RoleAdmin})
	require.NoError(t, err)

	tests := []struct {
		name   string
		path   string
		token  string
		status int
	}{
		{"无令牌", "/any", "", 401},
		{"无效令牌", "/any", "broken", 401},
		{"普通用户", "/any", userToken, 200},
		{"角色不足", "/admin", userToken, 403},
		{"管理员", "/admin", adminToken, 200},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", tt.path, nil)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}
