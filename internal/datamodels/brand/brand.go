package brand

import (
	"context"
	"time"
)

// Brand 品牌
type Brand struct {
	ID        int64     `gorm:"primaryKey"`
	Name      string    `gorm:"uniqueIndex;size:64;not null"`
	Logo      string    `gorm:"size:256"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Repository 品牌仓储接口
type Repository interface {
	GetByID(ctx context.Context, id int64) (*Brand, error)
	ListAll(ctx context.Context) ([]*Brand, error)
	Create(ctx context.Context, b *Brand) error
	Update(ctx context.Context, b *Brand) error
	Delete(ctx context.Context, id int64) error
}
