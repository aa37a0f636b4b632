package service

import (
	"context"
	"strings"

	errorc "pipelinehealth/pkg/core/err"
	"pipelinehealth/pkg/core/logger"
	"pipelinehealth/pkg/core/mvc"
	"pipelinehealth/pkg/core/security"
	"pipelinehealth/system/user/api/dto"
	"pipelinehealth/system/user/internal/dao"
	"pipelinehealth/system/user/internal/model"
	reqdto "pipelinehealth/system/user/internal/model/dto"

	"golang.org/x/crypto/bcrypt"
)

const passwordCost = 12

// UserService 注册、登录与令牌签发
type UserService struct {
	mvc.IBaseService[model.User]
	dao  *dao.UserDao
	auth *security.Auth
	log  *logger.Log
	err  *errorc.ErrorBuilder
}

func NewUserService(userDao *dao.UserDao, auth *security.Auth, log *logger.Log) *UserService {
	return &UserService{
		IBaseService: mvc.NewBaseService[model.User](userDao.IBaseDao),
		dao:          userDao,
		auth:         auth,
		log:          log.WithEntryName("UserService"),
		err:          errorc.NewErrorBuilder("UserService"),
	}
}

// Register 未指定角色时为 VIEWER
func (s *UserService) Register(ctx context.Context, req *reqdto.RegisterReq) (*dto.UserDTO, error) {
	exists, err := s.dao.ExistsByEmailOrUsername(ctx, req.Email, req.Username)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, s.err.Conflict("User with this email or username already exists")
	}

	hash, err := s.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	role := req.Role
	if role == "" {
		role = dto.RoleViewer
	}
	user := &model.User{
		Email:        strings.ToLower(req.Email),
		Username:     req.Username,
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
	}
	if err := s.dao.Create(ctx, user); err != nil {
		return nil, s.err.New("创建用户失败", err).DB()
	}

	s.log.WithField("email", user.Email).WithField("role", user.Role).Info("新用户注册")
	out := user.ToDTO()
	return &out, nil
}

// Login 账号不存在、已停用或密码错误统一返回 Invalid credentials
func (s *UserService) Login(ctx context.Context, req *reqdto.LoginReq) (*dto.LoginResult, error) {
	user, err := s.dao.FindByEmail(ctx, req.Email)
	if err != nil {
		if errorc.IsNotFound(err) {
			return nil, s.err.Unauthorized("Invalid credentials")
		}
		return nil, err
	}
	if !user.IsActive || !s.VerifyPassword(req.Password, user.PasswordHash) {
		return nil, s.err.Unauthorized("Invalid credentials")
	}

	token, expiresAt, err := s.auth.CreateToken(&security.Claims{
		ID:       user.ID,
		Email:    user.Email,
		Username: user.Username,
		Role:     string(user.Role),
	})
	if err != nil {
		return nil, s.err.New("签发令牌失败", err)
	}

	s.log.WithField("email", user.Email).Info("用户登录")
	return &dto.LoginResult{User: user.ToDTO(), AccessToken: token, ExpiresAt: expiresAt}, nil
}

// Me 令牌对应的用户已停用时视为未登录
func (s *UserService) Me(ctx context.Context, id int64) (*dto.UserDTO, error) {
	user, err := s.dao.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, s.err.Unauthorized("User account is disabled")
	}
	out := user.ToDTO()
	return &out, nil
}

// EnsureAdmin 邮箱已存在时不做任何修改，返回是否新建
func (s *UserService) EnsureAdmin(ctx context.Context, email, username, password string) (bool, error) {
	exists, err := s.dao.ExistsByEmailOrUsername(ctx, email, username)
	if err != nil || exists {
		return false, err
	}
	_, err = s.Register(ctx, &reqdto.RegisterReq{Email: email, Username: username, Password: password, Role: dto.RoleAdmin})
	return err == nil, err
}

func (s *UserService) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), passwordCost)
	if err != nil {
		return "", s.err.New("密码散列失败", err)
	}
	return string(hash), nil
}

func (s *UserService) VerifyPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
