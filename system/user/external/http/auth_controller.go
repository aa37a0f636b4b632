package http

import (
	errorc "pipelinehealth/pkg/core/err"
	"pipelinehealth/pkg/core/logger"
	"pipelinehealth/pkg/core/result"
	"pipelinehealth/pkg/core/security"
	"pipelinehealth/pkg/core/util"
	internalapp "pipelinehealth/system/user/internal/app"
	"pipelinehealth/system/user/internal/model/dto"
	"pipelinehealth/utils"

	"github.com/gofiber/fiber/v2"
)

// AuthController 注册与登录接口，除 /me 外无需鉴权
type AuthController struct {
	app  *internalapp.App
	auth *security.Auth
	err  *errorc.ErrorBuilder
	log  *logger.Log
}

func NewAuthController(app *internalapp.App, auth *security.Auth, log *logger.Log) *AuthController {
	return &AuthController{
		app:  app,
		auth: auth,
		err:  errorc.NewErrorBuilder("AuthController"),
		log:  log.WithEntryName("AuthController"),
	}
}

func (c *AuthController) RegisterRoutes(api fiber.Router) {
	router := api.Group("/auth")
	router.Post("/register", c.Register)
	router.Post("/login", c.Login)
	router.Get("/me", c.auth.RequireAuth(), c.Me)
}

func (c *AuthController) Register(ctx *fiber.Ctx) error {
	var req dto.RegisterReq
	if err := ctx.BodyParser(&req); err != nil {
		return c.err.New("解析请求参数失败", err).ValidWithCtx().WithTraceID(util.Context(ctx))
	}
	if errMsg, err := utils.Validate(&req); err != nil {
		return c.err.New(errMsg, err).ValidWithCtx().WithTraceID(util.Context(ctx))
	}

	user, err := c.app.UserService.Register(util.Context(ctx), &req)
	if err != nil {
		return err
	}
	return result.Created(ctx, user)
}

func (c *AuthController) Login(ctx *fiber.Ctx) error {
	var req dto.LoginReq
	if err := ctx.BodyParser(&req); err != nil {
		return c.err.New("解析请求参数失败", err).ValidWithCtx().WithTraceID(util.Context(ctx))
	}
	if errMsg, err := utils.Validate(&req); err != nil {
		return c.err.New(errMsg, err).ValidWithCtx().WithTraceID(util.Context(ctx))
	}

	res, err := c.app.UserService.Login(util.Context(ctx), &req)
	return result.Once(ctx, res, err)
}

func (c *AuthController) Me(ctx *fiber.Ctx) error {
	id, err := security.GetUserID(ctx)
	if err != nil {
		return err
	}
	user, err := c.app.UserService.Me(util.Context(ctx), id)
	return result.Once(ctx, user, err)
}
