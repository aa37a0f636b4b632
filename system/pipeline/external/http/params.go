package http

import (
	errorc "pipelinehealth/pkg/core/err"
	"pipelinehealth/utils"

	"github.com/gofiber/fiber/v2"
)

func paramID(ctx *fiber.Ctx, name string) (int64, error) {
	id := utils.ParseInt64(ctx.Params(name), 0)
	if id <= 0 {
		return 0, errorc.New("Invalid "+name, nil).ValidWithCtx()
	}
	return id, nil
}
