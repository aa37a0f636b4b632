package fiber_handle

import (
	"errors"

	errorc "pipelinehealth/pkg/core/err"

	"github.com/gofiber/fiber/v2"
)

// ErrHandler 业务错误以错误码对应的 HTTP 状态返回
func ErrHandler(ctx *fiber.Ctx, err error) error {
	var e *fiber.Error
	if errors.As(err, &e) {
		return ctx.Status(e.Code).JSON(fiber.Map{"status": e.Code, "message": e.Message})
	}

	cError := errorc.ParseError(err)

	return ctx.Status(cError.HTTPStatus()).JSON(fiber.Map{"status": cError.Code, "message": cError.Msg, "errData": cError})
}
