package user

import (
	"pipelinehealth/pkg/core/logger"
	"pipelinehealth/system/user/api/client"
	internalapp "pipelinehealth/system/user/internal/app"
)

type Deps = internalapp.Deps

// Module 用户组件模块
type Module struct {
	internalApp *internalapp.App
	Client      *client.UserClient
	log         *logger.Log
}

func NewModule(deps Deps) *Module {
	app := internalapp.NewApp(deps)
	return &Module{
		internalApp: app,
		Client:      client.NewUserClient(app),
		log:         deps.Log.WithEntryName("UserModule"),
	}
}
