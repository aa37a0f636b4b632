package model

import (
	"pipelinehealth/pkg/core/model/common"
	"pipelinehealth/system/user/api/dto"
)

// User 看板登录用户
type User struct {
	common.Model
	Email        string   `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Username     string   `gorm:"uniqueIndex;size:64;not null" json:"username"`
	PasswordHash string   `gorm:"size:255;not null" json:"-"`
	Role         dto.Role `gorm:"size:16;not null;default:VIEWER" json:"role"`
	IsActive     bool     `gorm:"not null;default:true" json:"isActive"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) ToDTO() dto.UserDTO {
	return dto.UserDTO{
		ID:        u.ID,
		Email:     u.Email,
		Username:  u.Username,
		Role:      u.Role,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
	}
}
