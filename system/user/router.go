package user

import (
	"pipelinehealth/pkg/core/security"
	controller "pipelinehealth/system/user/external/http"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(m *Module, api fiber.Router, auth *security.Auth) {
	controller.NewAuthController(m.internalApp, auth, m.log).RegisterRoutes(api)
}
