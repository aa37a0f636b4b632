package http

import (
	errorc "pipelinehealth/pkg/core/err"
	"pipelinehealth/pkg/core/logger"
	"pipelinehealth/pkg/core/result"
	"pipelinehealth/pkg/core/security"
	"pipelinehealth/pkg/core/util"
	internalapp "pipelinehealth/system/metric/internal/app"
	"pipelinehealth/system/metric/internal/model/dto"
	"pipelinehealth/utils"

	"github.com/gofiber/fiber/v2"
)

// MetricController 看板统计接口，全部只读
type MetricController struct {
	app  *internalapp.App
	auth *security.Auth
	err  *errorc.ErrorBuilder
	log  *logger.Log
}

func NewMetricController(app *internalapp.App, auth *security.Auth, log *logger.Log) *MetricController {
	return &MetricController{
		app:  app,
		auth: auth,
		err:  errorc.NewErrorBuilder("MetricController"),
		log:  log.WithEntryName("MetricController"),
	}
}

func (c *MetricController) RegisterRoutes(api fiber.Router) {
	router := api.Group("/metrics", c.auth.RequireAuth())
	router.Get("/overview", c.Overview)
	router.Get("/success-rate", c.SuccessRate)
	router.Get("/build-times", c.BuildTimes)
	router.Get("/failures", c.Failures)
	router.Get("/pipeline-comparison", c.Comparison)
	router.Get("/realtime", c.Realtime)
	router.Get("/summary", c.Summary)

	api.Get("/pipelines/:id/metrics", c.auth.RequireAuth(), c.PipelineMetrics)
}

// parseQuery 解析并校验查询参数
func (c *MetricController) parseQuery(ctx *fiber.Ctx, req interface{}) error {
	if err := ctx.QueryParser(req); err != nil {
		return c.err.New("解析查询参数失败", err).ValidWithCtx().WithTraceID(util.Context(ctx))
	}
	if errMsg, err := utils.Validate(req); err != nil {
		return c.err.New(errMsg, err).ValidWithCtx().WithTraceID(util.Context(ctx))
	}
	return nil
}

func (c *MetricController) Overview(ctx *fiber.Ctx) error {
	overview, err := c.app.MetricService.Overview(util.Context(ctx))
	return result.Once(ctx, overview, err)
}

func (c *MetricController) SuccessRate(ctx *fiber.Ctx) error {
	var req dto.TrendReq
	if err := c.parseQuery(ctx, &req); err != nil {
		return err
	}
	trend, err := c.app.MetricService.SuccessRate(util.Context(ctx), &req)
	return result.Once(ctx, trend, err)
}

// BuildTimes 聚合耗时趋势与最近的实际耗时
func (c *MetricController) BuildTimes(ctx *fiber.Ctx) error {
	var req dto.TrendReq
	if err := c.parseQuery(ctx, &req); err != nil {
		return err
	}
	trend, err := c.app.MetricService.BuildTimes(util.Context(ctx), &req)
	return result.Once(ctx, trend, err)
}

func (c *MetricController) Failures(ctx *fiber.Ctx) error {
	var req dto.FailureReq
	if err := c.parseQuery(ctx, &req); err != nil {
		return err
	}
	analysis, err := c.app.MetricService.Failures(util.Context(ctx), &req)
	return result.Once(ctx, analysis, err)
}

func (c *MetricController) Comparison(ctx *fiber.Ctx) error {
	rows, err := c.app.MetricService.Comparison(util.Context(ctx))
	return result.Once(ctx, rows, err)
}

func (c *MetricController) Realtime(ctx *fiber.Ctx) error {
	realtime, err := c.app.MetricService.Realtime(util.Context(ctx))
	return result.Once(ctx, realtime, err)
}

func (c *MetricController) Summary(ctx *fiber.Ctx) error {
	summary, err := c.app.MetricService.Summary(util.Context(ctx))
	return result.Once(ctx, summary, err)
}

func (c *MetricController) PipelineMetrics(ctx *fiber.Ctx) error {
	id := utils.ParseInt64(ctx.Params("id"), 0)
	if id <= 0 {
		return c.err.BadRequest("Invalid id")
	}
	var req dto.PipelineMetricsReq
	if err := c.parseQuery(ctx, &req); err != nil {
		return err
	}
	metrics, err := c.app.MetricService.PipelineMetrics(util.Context(ctx), id, &req)
	return result.Once(ctx, metrics, err)
}
