package http

import (
	errorc "pipelinehealth/pkg/core/err"
	"pipelinehealth/pkg/core/logger"
	"pipelinehealth/pkg/core/model/common"
	"pipelinehealth/pkg/core/result"
	"pipelinehealth/pkg/core/security"
	"pipelinehealth/pkg/core/util"
	internalapp "pipelinehealth/system/alert/internal/app"
	"pipelinehealth/system/alert/internal/model/dto"
	"pipelinehealth/utils"

	"github.com/gofiber/fiber/v2"
)

const defaultHistoryLimit = 20

// AlertController 告警规则管理接口
type AlertController struct {
	app  *internalapp.App
	auth *security.Auth
	err  *errorc.ErrorBuilder
	log  *logger.Log
}

func NewAlertController(app *internalapp.App, auth *security.Auth, log *logger.Log) *AlertController {
	return &AlertController{
		app:  app,
		auth: auth,
		err:  errorc.NewErrorBuilder("AlertController"),
		log:  log.WithEntryName("AlertController"),
	}
}

func (c *AlertController) RegisterRoutes(api fiber.Router) {
	router := api.Group("/alerts")
	router.Get("/", c.auth.RequireAuth(), c.List)
	router.Get("/statistics", c.auth.RequireAuth(), c.Statistics)
	router.Post("/test", c.auth.RequireAuth("USER"), c.TestNotification)
	router.Get("/:id", c.auth.RequireAuth(), c.Get)
	router.Get("/:id/history", c.auth.RequireAuth(), c.History)
	router.Post("/", c.auth.RequireAuth("USER"), c.Create)
	router.Put("/:id", c.auth.RequireAuth("USER"), c.Update)
	router.Delete("/:id", c.auth.RequireAuth("USER"), c.Delete)
	router.Patch("/:id/toggle", c.auth.RequireAuth("USER"), c.Toggle)
	router.Post("/:id/evaluate", c.auth.RequireAuth("USER"), c.Evaluate)
}

func (c *AlertController) parse(ctx *fiber.Ctx, req interface{}, query bool) error {
	var err error
	if query {
		err = ctx.QueryParser(req)
	} else {
		err = ctx.BodyParser(req)
	}
	if err != nil {
		return c.err.New("解析请求参数失败", err).ValidWithCtx().WithTraceID(util.Context(ctx))
	}
	if errMsg, err := utils.Validate(req); err != nil {
		return c.err.New(errMsg, err).ValidWithCtx().WithTraceID(util.Context(ctx))
	}
	return nil
}

func (c *AlertController) List(ctx *fiber.Ctx) error {
	var req dto.ListAlertReq
	if err := c.parse(ctx, &req, true); err != nil {
		return err
	}
	alerts, err := c.app.AlertService.List(util.Context(ctx), &req)
	return result.Once(ctx, alerts, err)
}

// Get 告警详情附带最近的触发历史
func (c *AlertController) Get(ctx *fiber.Ctx) error {
	id, err := paramID(ctx)
	if err != nil {
		return err
	}
	detail, err := c.app.AlertService.Detail(util.Context(ctx), id)
	return result.Once(ctx, detail, err)
}

func (c *AlertController) Create(ctx *fiber.Ctx) error {
	var req dto.SaveAlertReq
	if err := c.parse(ctx, &req, false); err != nil {
		return err
	}

	claims, err := security.GetClaimsByCtx(ctx.UserContext())
	if err != nil {
		return c.err.New("获取登录信息失败", err).NoAuth()
	}

	alert, err := c.app.AlertService.CreateAlert(util.Context(ctx), &req, claims.ID)
	if err != nil {
		return err
	}
	return result.Created(ctx, alert)
}

func (c *AlertController) Update(ctx *fiber.Ctx) error {
	id, err := paramID(ctx)
	if err != nil {
		return err
	}
	var req dto.SaveAlertReq
	if err := c.parse(ctx, &req, false); err != nil {
		return err
	}
	alert, err := c.app.AlertService.UpdateAlert(util.Context(ctx), id, &req)
	return result.Once(ctx, alert, err)
}

func (c *AlertController) Delete(ctx *fiber.Ctx) error {
	id, err := paramID(ctx)
	if err != nil {
		return err
	}
	if err := c.app.AlertService.DeleteAlert(util.Context(ctx), id); err != nil {
		return err
	}
	return result.OK(ctx, fiber.Map{"id": id})
}

func (c *AlertController) Toggle(ctx *fiber.Ctx) error {
	id, err := paramID(ctx)
	if err != nil {
		return err
	}
	alert, err := c.app.AlertService.Toggle(util.Context(ctx), id)
	return result.Once(ctx, alert, err)
}

// History 分页查询触发历史，limit 上限 100
func (c *AlertController) History(ctx *fiber.Ctx) error {
	id, err := paramID(ctx)
	if err != nil {
		return err
	}
	var req dto.HistoryReq
	if err := c.parse(ctx, &req, true); err != nil {
		return err
	}

	rows, total, err := c.app.AlertService.History(util.Context(ctx), id, &req)
	if err != nil {
		return err
	}

	page, limit := req.Page, req.Limit
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	return result.OK(ctx, fiber.Map{
		"history":    rows,
		"pagination": common.NewPageResult(page, limit, total),
	})
}

// Evaluate 立即评估一条告警，命中且未被抑制时会真实发送通知
func (c *AlertController) Evaluate(ctx *fiber.Ctx) error {
	id, err := paramID(ctx)
	if err != nil {
		return err
	}
	res, err := c.app.Evaluator.EvaluateOne(util.Context(ctx), id)
	return result.Once(ctx, res, err)
}

func (c *AlertController) TestNotification(ctx *fiber.Ctx) error {
	var req dto.TestNotificationReq
	if err := c.parse(ctx, &req, false); err != nil {
		return err
	}
	res := c.app.AlertService.TestNotification(util.Context(ctx), *req.Channels)
	return result.OK(ctx, res)
}

func (c *AlertController) Statistics(ctx *fiber.Ctx) error {
	stats, err := c.app.AlertService.Statistics(util.Context(ctx))
	return result.Once(ctx, stats, err)
}

func paramID(ctx *fiber.Ctx) (int64, error) {
	id := utils.ParseInt64(ctx.Params("id"), 0)
	if id <= 0 {
		return 0, errorc.New("Invalid id", nil).ValidWithCtx()
	}
	return id, nil
}
