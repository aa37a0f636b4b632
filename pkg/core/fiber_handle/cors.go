package fiber_handle

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

func Cors(allowOrigins string) fiber.Handler {
	if allowOrigins == "" {
		allowOrigins = "*"
	}
	return cors.New(cors.Config{
		AllowOrigins:  allowOrigins,
		AllowMethods:  "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowHeaders:  "Origin,Content-Type,Accept,Authorization,X-GitHub-Event,X-Gitlab-Event,X-Hub-Signature-256,X-Gitlab-Token",
		ExposeHeaders: "Authorization,Link,X-Total-Count",
		MaxAge:        1800,
	})
}
