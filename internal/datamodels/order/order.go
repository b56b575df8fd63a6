package order

import (
	"context"
	"time"
)

// 订单状态
const (
	StatusCreated   = 0
	StatusPaid      = 1
	StatusCancelled = 2
)

// Order 订单模型
type Order struct {
	ID        int64     `gorm:"primaryKey"`
	UserID    int64     `gorm:"index;not null"`
	ProductID int64     `gorm:"index;not null"`
	Quantity  int64     `gorm:"not null"`
	Price     int64     `gorm:"not null"` // 分，下单时快照
	CouponID  int64     `gorm:"index"`    // 0 表示未用券
	Status    int       `gorm:"index;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Repository 订单仓储接口
type Repository interface {
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id int64) (*Order, error)
	ListByUser(ctx context.Context, userID int64) ([]*Order, error)
	ListRecent(ctx context.Context, limit int) ([]*Order, error)
	UpdateStatus(ctx context.Context, id int64, status int) error
}
