package http

import (
	errorc "pipelinehealth/pkg/core/err"
	"pipelinehealth/pkg/core/logger"
	"pipelinehealth/pkg/core/result"
	"pipelinehealth/pkg/core/util"
	internalapp "pipelinehealth/system/pipeline/internal/app"
	"pipelinehealth/system/pipeline/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/tidwall/gjson"
)

const acceptedMessage = "Webhook received and queued for processing"

// WebhookController 接收 CI 平台回调，校验后立即返回，异步处理
type WebhookController struct {
	app *internalapp.App
	err *errorc.ErrorBuilder
	log *logger.Log
}

func NewWebhookController(app *internalapp.App, log *logger.Log) *WebhookController {
	return &WebhookController{
		app: app,
		err: errorc.NewErrorBuilder("WebhookController"),
		log: log.WithEntryName("WebhookController"),
	}
}

func (c *WebhookController) RegisterRoutes(api fiber.Router) {
	third := logger.NewThirdLogger(logger.ThirdConfig{Logger: c.log})
	api.Post("/builds/webhook", third, c.Envelope)
	api.Post("/webhooks/:source", third, c.Native)
}

// Envelope 转发格式 {source, event, data}
func (c *WebhookController) Envelope(ctx *fiber.Ctx) error {
	body := ctx.Body()
	if !gjson.ValidBytes(body) {
		return c.err.BadRequest("Invalid webhook payload")
	}
	envelope := gjson.ParseBytes(body)
	source := service.Source(envelope.Get("source").String())
	event := envelope.Get("event").String()

	c.log.WithField("source", source).WithField("event", event).Info("收到回调")
	if !source.Valid() {
		c.log.WithField("source", source).Warn("未知的回调来源")
		return result.Accepted(ctx, acceptedMessage)
	}
	if err := c.app.WebhookService.Verify(source, headerOf(ctx), body); err != nil {
		return err
	}

	c.app.WebhookService.Accept(util.Context(ctx), source, event, []byte(envelope.Get("data").Raw))
	return result.Accepted(ctx, acceptedMessage)
}

// Native 平台原生回调，事件名取自请求头
func (c *WebhookController) Native(ctx *fiber.Ctx) error {
	source := service.Source(ctx.Params("source"))
	if !source.Valid() {
		return c.err.NotFound("Unknown webhook source")
	}

	body := ctx.Body()
	if err := c.app.WebhookService.Verify(source, headerOf(ctx), body); err != nil {
		return err
	}
	if !gjson.ValidBytes(body) {
		return c.err.BadRequest("Invalid webhook payload")
	}

	event := service.ResolveEvent(source, headerOf(ctx), gjson.ParseBytes(body))
	c.log.WithField("source", source).WithField("event", event).Info("收到回调")

	c.app.WebhookService.Accept(util.Context(ctx), source, event, body)
	return result.Accepted(ctx, acceptedMessage)
}

func headerOf(ctx *fiber.Ctx) func(string) string {
	return func(key string) string {
		return ctx.Get(key)
	}
}
