package mvc

import (
	"gorm.io/gorm"
)

const maxPageSize = 100

type Page struct {
	PageNum int         `json:"pageNum"`
	Size    int         `json:"size"`
	Sort    interface{} `json:"sort"`
}

// NewPage 按前端 page/limit 参数构建分页，size 上限 100
func NewPage(pageNum, size int, sort interface{}) *Page {
	p := &Page{PageNum: pageNum, Size: size, Sort: sort}
	p.normalize()
	return p
}

func (page *Page) normalize() {
	if page.PageNum <= 0 {
		page.PageNum = 1
	}
	if page.Size <= 0 {
		page.Size = 10
	}
	if page.Size > maxPageSize {
		page.Size = maxPageSize
	}
}

func Paginate(page *Page) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		offset, size := page.Paginate()
		return db.Offset(offset).Limit(size)
	}
}

func (page *Page) Paginate() (int, int) {
	page.normalize()
	offset := (page.PageNum - 1) * page.Size
	return offset, page.Size
}
