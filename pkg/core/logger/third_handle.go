package logger

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

type ThirdConfig struct {
	Logger *Log
}

// NewThirdLogger CI 平台回调日志，记录事件类型与投递ID，请求体只在 debug 级别输出
func NewThirdLogger(config ThirdConfig) fiber.Handler {
	log := config.Logger.WithEntryName("Webhook")

	return func(c *fiber.Ctx) error {
		url := strings.SplitN(c.OriginalURL(), "?", 2)[0]
		start := time.Now()

		err := c.Next()

		entry := log.WithField("status", c.Response().StatusCode()).
			WithField("latency", time.Since(start).Round(time.Millisecond)).
			WithField("path", url).
			WithField("githubEvent", c.Get("X-GitHub-Event")).
			WithField("gitlabEvent", c.Get("X-Gitlab-Event")).
			WithField("delivery", c.Get("X-GitHub-Delivery"))

		if entry.Logger.IsLevelEnabled(DebugLevel) {
			entry = entry.WithField("req", string(c.Body()))
		}
		entry.Info("收到 CI 回调")

		return err
	}
}
