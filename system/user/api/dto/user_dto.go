package dto

import "time"

// Role 用户角色，ADMIN 拥有全部权限
type Role string

const (
	RoleAdmin  Role = "ADMIN"
	RoleUser   Role = "USER"
	RoleViewer Role = "VIEWER"
)

// UserDTO 对外展示的用户信息，不含密码
type UserDTO struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	Role      Role      `json:"role"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
}

// LoginResult 登录成功返回的令牌
type LoginResult struct {
	User        UserDTO `json:"user"`
	AccessToken string  `json:"accessToken"`
	ExpiresAt   int64   `json:"expiresAt"`
}
