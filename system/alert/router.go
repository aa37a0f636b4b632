package alert

import (
	"pipelinehealth/pkg/core/security"
	controller "pipelinehealth/system/alert/external/http"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(m *Module, api fiber.Router, auth *security.Auth) {
	controller.NewAlertController(m.internalApp, auth, m.log).RegisterRoutes(api)
}
