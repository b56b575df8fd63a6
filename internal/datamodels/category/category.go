package category

import (
	"context"
	"time"
)

// Category 商品分类
type Category struct {
	ID        int64     `gorm:"primaryKey"`
	Name      string    `gorm:"uniqueIndex;size:64;not null"`
	Slug      string    `gorm:"uniqueIndex;size:64;not null"`
	Sort      int       `gorm:"index"` // 展示顺序，小的在前
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Repository 分类仓储接口
type Repository interface {
	GetByID(ctx context.Context, id int64) (*Category, error)
	ListAll(ctx context.Context) ([]*Category, error)
	Create(ctx context.Context, c *Category) error
	Update(ctx context.Context, c *Category) error
	Delete(ctx context.Context, id int64) error
}
