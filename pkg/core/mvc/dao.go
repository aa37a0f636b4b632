package mvc

import (
	"context"
)

// IBaseDao 基础数据访问接口
type IBaseDao[T any] interface {
	// Create 创建记录
	Create(ctx context.Context, entity *T) error
	// CreateBatch 批量创建记录
	CreateBatch(ctx context.Context, entities []*T) error
	// DeleteById 根据ID删除记录
	DeleteById(ctx context.Context, id interface{}) error
	// DeleteByMap 根据多个条件删除记录，返回删除条数
	DeleteByMap(ctx context.Context, conditions map[string]interface{}) (int64, error)
	// UpdateById 根据ID更新非零字段
	UpdateById(ctx context.Context, id interface{}, entity *T) (int64, error)
	// UpdateFieldsById 根据ID更新指定列，允许零值
	UpdateFieldsById(ctx context.Context, id interface{}, fields map[string]interface{}) (int64, error)
	// FindById 根据ID查询记录
	FindById(ctx context.Context, id interface{}) (*T, error)
	// FindByIds 根据ID批量查询记录
	FindByIds(ctx context.Context, ids []int64) ([]*T, error)
	// FindOneByMap 根据多个条件查询单条记录
	FindOneByMap(ctx context.Context, conditions map[string]interface{}) (*T, error)
	// FindByMap 根据多个条件查询记录
	FindByMap(ctx context.Context, conditions map[string]interface{}) ([]*T, error)
	// FindList 查询全部
	FindList(ctx context.Context) ([]*T, error)
	// FindPageByMap 分页查询
	FindPageByMap(ctx context.Context, page *Page, condition map[string]interface{}) ([]*T, int64, error)
	// CountByMap 统计记录数
	CountByMap(ctx context.Context, conditions map[string]interface{}) (int64, error)
	// ExistsByMap 判断记录是否存在
	ExistsByMap(ctx context.Context, conditions map[string]interface{}) (bool, error)
	// WithTx 使用事务创建临时实例
	WithTx(tx interface{}) IBaseDao[T]
}
