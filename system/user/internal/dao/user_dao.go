package dao

import (
	"context"
	"errors"
	"strings"

	errorc "pipelinehealth/pkg/core/err"
	"pipelinehealth/pkg/core/logger"
	"pipelinehealth/pkg/core/mvc"
	"pipelinehealth/system/user/internal/model"

	"gorm.io/gorm"
)

// UserDao 用户数据访问层
type UserDao struct {
	mvc.IBaseDao[model.User]
	log *logger.Log
	err *errorc.ErrorBuilder
	db  *gorm.DB
}

func NewUserDao(db *gorm.DB, log *logger.Log) *UserDao {
	return &UserDao{
		IBaseDao: mvc.NewGormDao[model.User](db),
		log:      log,
		err:      errorc.NewErrorBuilder("UserDao"),
		db:       db,
	}
}

// FindByEmail 邮箱统一按小写存储
func (d *UserDao) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	err := d.db.WithContext(ctx).Where("email = ?", strings.ToLower(email)).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, d.err.New("用户不存在", err).NotFound()
		}
		return nil, d.err.New("查询用户失败", err).DB()
	}
	return &user, nil
}

func (d *UserDao) FindByID(ctx context.Context, id int64) (*model.User, error) {
	var user model.User
	if err := d.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, d.err.New("User not found", err).NotFound()
		}
		return nil, d.err.New("查询用户失败", err).DB()
	}
	return &user, nil
}

// ExistsByEmailOrUsername 注册前的重复检查
func (d *UserDao) ExistsByEmailOrUsername(ctx context.Context, email, username string) (bool, error) {
	var count int64
	err := d.db.WithContext(ctx).Model(&model.User{}).
		Where("email = ? OR username = ?", strings.ToLower(email), username).
		Count(&count).Error
	if err != nil {
		return false, d.err.New("检查用户是否存在失败", err).DB()
	}
	return count > 0, nil
}

func (d *UserDao) WithTx(tx *gorm.DB) *UserDao {
	return &UserDao{
		IBaseDao: mvc.NewGormDao[model.User](tx),
		log:      d.log,
		err:      d.err,
		db:       tx,
	}
}
