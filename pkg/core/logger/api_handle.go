package logger

import (
	"strings"
	"time"

	"pipelinehealth/pkg/core/consts"
	errorc "pipelinehealth/pkg/core/err"

	"github.com/gofiber/fiber/v2"
)

type Config struct {
	Logger *Log
}

// NewApiLogger 请求日志中间件，记录状态码、耗时与错误根因
func NewApiLogger(config Config) fiber.Handler {
	log := config.Logger.WithEntryName("API")

	return func(c *fiber.Ctx) (err error) {
		url := strings.SplitN(c.OriginalURL(), "?", 2)[0]

		start := time.Now()

		err = c.Next()

		entry := log.WithField("status", c.Response().StatusCode()).
			WithField("latency", time.Since(start).Round(time.Millisecond)).
			WithField("method", c.Method()).
			WithField("path", url).
			WithField("TraceId", c.Locals(consts.TraceKey)).
			WithField("userId", c.Locals(consts.LocalUserID))

		if err != nil {
			errc := errorc.ParseError(err)
			if errc.Code >= 500 {
				errc.ToLog(entry.WithTrace(c.UserContext()).GetLogger())
			}
			entry.WithField("Err", errc.RootCause()).Warn("请求处理失败")
			return err
		}

		entry.Debug("请求处理完毕")
		return nil
	}
}
