package app

import (
	"pipelinehealth/pkg/core/logger"
	"pipelinehealth/pkg/core/security"
	"pipelinehealth/system/user/internal/dao"
	"pipelinehealth/system/user/internal/service"

	"gorm.io/gorm"
)

type Deps struct {
	DB   *gorm.DB
	Log  *logger.Log
	Auth *security.Auth
}

// App 用户组件应用层
type App struct {
	UserService *service.UserService
}

func NewApp(deps Deps) *App {
	log := deps.Log.WithEntryName("UserApp")
	return &App{
		UserService: service.NewUserService(dao.NewUserDao(deps.DB, log), deps.Auth, log),
	}
}
