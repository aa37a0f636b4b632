package dto

import "pipelinehealth/system/user/api/dto"

type RegisterReq struct {
	Email    string   `json:"email" validate:"required,email" comment:"邮箱"`
	Username string   `json:"username" validate:"required,min=3,max=30,username" comment:"用户名"`
	Password string   `json:"password" validate:"required,min=6" comment:"密码"`
	Role     dto.Role `json:"role" validate:"omitempty,oneof=ADMIN USER VIEWER" comment:"角色"`
}

type LoginReq struct {
	Email    string `json:"email" validate:"required,email" comment:"邮箱"`
	Password string `json:"password" validate:"required,min=6" comment:"密码"`
}
