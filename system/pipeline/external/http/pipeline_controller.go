package http

import (
	errorc "pipelinehealth/pkg/core/err"
	"pipelinehealth/pkg/core/logger"
	"pipelinehealth/pkg/core/model/common"
	"pipelinehealth/pkg/core/result"
	"pipelinehealth/pkg/core/security"
	"pipelinehealth/pkg/core/util"
	internalapp "pipelinehealth/system/pipeline/internal/app"
	"pipelinehealth/system/pipeline/internal/model/dto"
	"pipelinehealth/utils"

	"github.com/gofiber/fiber/v2"
)

// PipelineController 流水线管理接口
type PipelineController struct {
	app  *internalapp.App
	auth *security.Auth
	err  *errorc.ErrorBuilder
	log  *logger.Log
}

func NewPipelineController(app *internalapp.App, auth *security.Auth, log *logger.Log) *PipelineController {
	return &PipelineController{
		app:  app,
		auth: auth,
		err:  errorc.NewErrorBuilder("PipelineController"),
		log:  log.WithEntryName("PipelineController"),
	}
}

func (c *PipelineController) RegisterRoutes(api fiber.Router) {
	router := api.Group("/pipelines")
	router.Get("/", c.auth.RequireAuth(), c.List)
	router.Get("/:id", c.auth.RequireAuth(), c.Get)
	router.Post("/", c.auth.RequireAuth("USER"), c.Create)
	router.Put("/:id", c.auth.RequireAuth("USER"), c.Update)
	router.Delete("/:id", c.auth.RequireAuth("USER"), c.Delete)
}

// List 分页查询流水线，附带最近构建与最新指标
func (c *PipelineController) List(ctx *fiber.Ctx) error {
	var req dto.ListPipelineReq
	if err := ctx.QueryParser(&req); err != nil {
		return c.err.New("解析查询参数失败", err).ValidWithCtx().WithTraceID(util.Context(ctx)).ToLog(c.log.GetLogger())
	}
	if errMsg, err := utils.Validate(&req); err != nil {
		return c.err.New(errMsg, err).ValidWithCtx().WithTraceID(util.Context(ctx))
	}

	items, total, err := c.app.PipelineService.Page(util.Context(ctx), &req)
	if err != nil {
		return err
	}

	limit := req.Limit
	if limit <= 0 {
		limit = 20
	}
	page := req.Page
	if page <= 0 {
		page = 1
	}
	return result.OK(ctx, fiber.Map{
		"pipelines":  items,
		"pagination": common.NewPageResult(page, limit, total),
	})
}

// Get 流水线详情与最近 10 次构建
func (c *PipelineController) Get(ctx *fiber.Ctx) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}

	pipeline, builds, err := c.app.PipelineService.Detail(util.Context(ctx), id)
	if err != nil {
		return err
	}

	recent := make([]interface{}, 0, len(builds))
	for _, b := range builds {
		recent = append(recent, b.ToDTO())
	}
	return result.OK(ctx, fiber.Map{
		"pipeline": pipeline,
		"builds":   recent,
	})
}

func (c *PipelineController) Create(ctx *fiber.Ctx) error {
	var req dto.SavePipelineReq
	if err := ctx.BodyParser(&req); err != nil {
		return c.err.New("解析请求参数失败", err).ValidWithCtx().WithTraceID(util.Context(ctx)).ToLog(c.log.GetLogger())
	}
	if errMsg, err := utils.Validate(&req); err != nil {
		return c.err.New(errMsg, err).ValidWithCtx().WithTraceID(util.Context(ctx))
	}

	pipeline, err := c.app.PipelineService.Create(util.Context(ctx), &req)
	if err != nil {
		return err
	}
	return result.Created(ctx, pipeline)
}

func (c *PipelineController) Update(ctx *fiber.Ctx) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}

	var req dto.SavePipelineReq
	if err := ctx.BodyParser(&req); err != nil {
		return c.err.New("解析请求参数失败", err).ValidWithCtx().WithTraceID(util.Context(ctx)).ToLog(c.log.GetLogger())
	}
	if errMsg, err := utils.Validate(&req); err != nil {
		return c.err.New(errMsg, err).ValidWithCtx().WithTraceID(util.Context(ctx))
	}

	pipeline, err := c.app.PipelineService.Update(util.Context(ctx), id, &req)
	return result.Once(ctx, pipeline, err)
}

// Delete 级联删除构建、阶段、指标与告警
func (c *PipelineController) Delete(ctx *fiber.Ctx) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	if err := c.app.PipelineService.Delete(util.Context(ctx), id); err != nil {
		return err
	}
	return result.OK(ctx, fiber.Map{"id": id})
}
