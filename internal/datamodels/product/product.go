package product

import (
	"context"
	"time"
)

// Product 商品模型
type Product struct {
	ID          int64     `gorm:"primaryKey"`
	Name        string    `gorm:"size:128;not null"`
	Description string    `gorm:"size:512"`
	Price       int64     `gorm:"not null"` // 分
	Stock       int64     `gorm:"not null"`
	CategoryID  int64     `gorm:"index"`
	BrandID     int64     `gorm:"index"`
	Image       string    `gorm:"size:256"` // 主图地址（历史数据可能存在多种键名，入库前已归一）
	Status      int       `gorm:"index"`    // 0:下线 1:正常
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Repository 商品仓储接口
type Repository interface {
	GetByID(ctx context.Context, id int64) (*Product, error)
	ListAll(ctx context.Context) ([]*Product, error)
	ListOnline(ctx context.Context) ([]*Product, error)
	ListByCategory(ctx context.Context, categoryID int64) ([]*Product, error)
	Search(ctx context.Context, keyword string) ([]*Product, error)
	Count(ctx context.Context) (int64, error)
	Create(ctx context.Context, p *Product) error
	Update(ctx context.Context, p *Product) error
	Delete(ctx context.Context, id int64) error
}
