package security

import (
	"context"
	"strings"
	"time"

	"pipelinehealth/pkg/core/consts"
	errorc "pipelinehealth/pkg/core/err"

	"github.com/gofiber/fiber/v2"
)

const RoleAdmin = "ADMIN"

type Auth struct {
	jwtClient *JwtClient
}

func NewAuth(secret []byte, expireTime time.Duration) *Auth {
	return &Auth{
		jwtClient: NewJwtClient(secret, expireTime),
	}
}

func (a *Auth) CreateToken(claims *Claims) (string, int64, error) {
	return a.jwtClient.CreateToken(claims)
}

// RequireAuth 校验 Bearer 令牌，传入角色时要求命中其一，ADMIN 总是放行
func (a *Auth) RequireAuth(roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		auth := c.Get("Authorization")
		if auth == "" || !strings.HasPrefix(auth, "Bearer ") {
			return errorc.New("Access token required", nil).NoAuth()
		}

		claims, err := a.jwtClient.ParseToken(strings.TrimPrefix(auth, "Bearer "))
		if err != nil {
			return errorc.New("Invalid or expired token", err).NoAuth()
		}

		saveToContext(c, claims)

		if !hasRole(claims.Role, roles) {
			return errorc.New("Insufficient permissions", nil).Forbidden()
		}
		return c.Next()
	}
}

func hasRole(role string, required []string) bool {
	if len(required) == 0 || role == RoleAdmin {
		return true
	}
	for _, r := range required {
		if r == role {
			return true
		}
	}
	return false
}

func saveToContext(c *fiber.Ctx, claims *Claims) {
	c.Locals(consts.LocalUserID, claims.ID)
	c.Locals(consts.LocalAccount, claims.Email)
	c.Locals(consts.LocalRoles, []string{claims.Role})

	userCtx := context.WithValue(c.UserContext(), consts.ClaimsCtxKey, claims)
	c.SetUserContext(userCtx)
}

func GetClaimsByCtx(ctx context.Context) (*Claims, error) {
	claims, ok := ctx.Value(consts.ClaimsCtxKey).(*Claims)
	if !ok {
		return nil, errorc.New("user claims not found", nil).NoAuth()
	}
	return claims, nil
}

func GetUserID(c *fiber.Ctx) (int64, error) {
	id, ok := c.Locals(consts.LocalUserID).(int64)
	if !ok || id == 0 {
		return 0, errorc.New("user id not found or invalid", nil).NoAuth()
	}
	return id, nil
}
