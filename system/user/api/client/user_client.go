package client

import (
	"context"

	"pipelinehealth/system/user/internal/app"
)

// UserClient 用户组件对外客户端，供命令行初始化管理员使用
type UserClient struct {
	app *app.App
}

func NewUserClient(app *app.App) *UserClient {
	return &UserClient{app: app}
}

// EnsureAdmin 账号不存在时创建 ADMIN 用户，返回是否新建
func (c *UserClient) EnsureAdmin(ctx context.Context, email, username, password string) (bool, error) {
	return c.app.UserService.EnsureAdmin(ctx, email, username, password)
}
