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

// BuildController 构建查询、手动触发与取消
type BuildController struct {
	app  *internalapp.App
	auth *security.Auth
	err  *errorc.ErrorBuilder
	log  *logger.Log
}

func NewBuildController(app *internalapp.App, auth *security.Auth, log *logger.Log) *BuildController {
	return &BuildController{
		app:  app,
		auth: auth,
		err:  errorc.NewErrorBuilder("BuildController"),
		log:  log.WithEntryName("BuildController"),
	}
}

func (c *BuildController) RegisterRoutes(api fiber.Router) {
	router := api.Group("/builds")
	router.Get("/", c.auth.RequireAuth(), c.List)
	router.Get("/:id", c.auth.RequireAuth(), c.Get)
	router.Get("/:id/logs", c.auth.RequireAuth(), c.Logs)
	router.Post("/:pipelineId/trigger", c.auth.RequireAuth("USER"), c.Trigger)
	router.Post("/:id/cancel", c.auth.RequireAuth("USER"), c.Cancel)
}

func (c *BuildController) List(ctx *fiber.Ctx) error {
	var req dto.ListBuildReq
	if err := ctx.QueryParser(&req); err != nil {
		return c.err.New("解析查询参数失败", err).ValidWithCtx().WithTraceID(util.Context(ctx)).ToLog(c.log.GetLogger())
	}
	if errMsg, err := utils.Validate(&req); err != nil {
		return c.err.New(errMsg, err).ValidWithCtx().WithTraceID(util.Context(ctx))
	}

	builds, total, err := c.app.BuildService.Page(util.Context(ctx), &req)
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
		"builds":     builds,
		"pagination": common.NewPageResult(page, limit, total),
	})
}

// Get 构建详情，阶段按创建顺序
func (c *BuildController) Get(ctx *fiber.Ctx) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	build, err := c.app.BuildService.Detail(util.Context(ctx), id)
	return result.Once(ctx, build, err)
}

func (c *BuildController) Logs(ctx *fiber.Ctx) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	stages, err := c.app.BuildService.Logs(util.Context(ctx), id)
	if err != nil {
		return err
	}
	return result.OK(ctx, fiber.Map{"buildId": id, "stages": stages})
}

// Trigger 手动登记一次构建，状态为 PENDING
func (c *BuildController) Trigger(ctx *fiber.Ctx) error {
	pipelineID, err := paramID(ctx, "pipelineId")
	if err != nil {
		return err
	}

	var req dto.TriggerBuildReq
	if len(ctx.Body()) > 0 {
		if err := ctx.BodyParser(&req); err != nil {
			return c.err.New("解析请求参数失败", err).ValidWithCtx().WithTraceID(util.Context(ctx)).ToLog(c.log.GetLogger())
		}
	}
	if errMsg, err := utils.Validate(&req); err != nil {
		return c.err.New(errMsg, err).ValidWithCtx().WithTraceID(util.Context(ctx))
	}

	var by string
	if claims, err := security.GetClaimsByCtx(ctx.UserContext()); err == nil {
		by = claims.Email
	}

	build, err := c.app.BuildService.Trigger(util.Context(ctx), pipelineID, &req, by)
	if err != nil {
		return err
	}
	return result.Created(ctx, fiber.Map{"buildId": build.ID, "status": build.Status})
}

func (c *BuildController) Cancel(ctx *fiber.Ctx) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	build, err := c.app.BuildService.Cancel(util.Context(ctx), id)
	return result.Once(ctx, build, err)
}
