package mvc

import (
	"context"

	"gorm.io/gorm"
)

// IBaseService 按主键的通用读写，业务服务嵌入后只需实现领域方法
type IBaseService[T any] interface {
	Create(ctx context.Context, entity *T) error
	CreateBatch(ctx context.Context, entities []*T) error
	FindById(ctx context.Context, id interface{}) (*T, error)
	FindByIds(ctx context.Context, ids []int64) ([]*T, error)
	UpdateById(ctx context.Context, id interface{}, entity *T) (int64, error)
	// UpdateFieldsById 允许写入零值，如 is_active=false
	UpdateFieldsById(ctx context.Context, id interface{}, fields map[string]interface{}) (int64, error)
	DeleteById(ctx context.Context, id interface{}) error
	FindPage(ctx context.Context, page *Page, condition map[string]interface{}) ([]*T, int64, error)
	WithTx(tx *gorm.DB) IBaseService[T]
}

type BaseService[T any] struct {
	Dao IBaseDao[T]
}

func NewBaseService[T any](dao IBaseDao[T]) *BaseService[T] {
	return &BaseService[T]{Dao: dao}
}

// WithTx 返回绑定事务的副本，原实例不受影响
func (s *BaseService[T]) WithTx(tx *gorm.DB) IBaseService[T] {
	return NewBaseService[T](s.Dao.WithTx(tx))
}

func (s *BaseService[T]) Create(ctx context.Context, entity *T) error {
	return s.Dao.Create(ctx, entity)
}

func (s *BaseService[T]) CreateBatch(ctx context.Context, entities []*T) error {
	if len(entities) == 0 {
		return nil
	}
	return s.Dao.CreateBatch(ctx, entities)
}

func (s *BaseService[T]) FindById(ctx context.Context, id interface{}) (*T, error) {
	return s.Dao.FindById(ctx, id)
}

func (s *BaseService[T]) FindByIds(ctx context.Context, ids []int64) ([]*T, error) {
	if len(ids) == 0 {
		return []*T{}, nil
	}
	return s.Dao.FindByIds(ctx, ids)
}

func (s *BaseService[T]) UpdateById(ctx context.Context, id interface{}, entity *T) (int64, error) {
	return s.Dao.UpdateById(ctx, id, entity)
}

func (s *BaseService[T]) UpdateFieldsById(ctx context.Context, id interface{}, fields map[string]interface{}) (int64, error) {
	return s.Dao.UpdateFieldsById(ctx, id, fields)
}

func (s *BaseService[T]) DeleteById(ctx context.Context, id interface{}) error {
	return s.Dao.DeleteById(ctx, id)
}

func (s *BaseService[T]) FindPage(ctx context.Context, page *Page, condition map[string]interface{}) ([]*T, int64, error) {
	return s.Dao.FindPageByMap(ctx, page, condition)
}
