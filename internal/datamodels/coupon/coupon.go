package coupon

import (
	"context"
	"time"
)

// Coupon 优惠券
type Coupon struct {
	ID        int64     `gorm:"primaryKey"`
	Code      string    `gorm:"uniqueIndex;size:32;not null"`
	Discount  int64     `gorm:"not null"` // 减免金额（分）
	MinSpend  int64     `gorm:"not null"` // 使用门槛（分）
	Total     int64     `gorm:"not null"` // 发放总量
	Used      int64     `gorm:"not null"` // 已使用数量
	StartTime time.Time `gorm:"index"`
	EndTime   time.Time `gorm:"index"`
	Status    int       `gorm:"index"` // 0:停用 1:启用
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Usable 当前时间是否可用（未停用、在有效期内、还有余量）
func (c *Coupon) Usable(now time.Time) bool {
	return c.Status == 1 && now.After(c.StartTime) && now.Before(c.EndTime) && c.Used < c.Total
}

// Repository 优惠券仓储接口
type Repository interface {
	GetByID(ctx context.Context, id int64) (*Coupon, error)
	GetByCode(ctx context.Context, code string) (*Coupon, error)
	ListAll(ctx context.Context) ([]*Coupon, error)
	Create(ctx context.Context, c *Coupon) error
	Update(ctx context.Context, c *Coupon) error
	Delete(ctx context.Context, id int64) error
	// IncrUsed 原子增加已用数量，超量返回影响行数 0
	IncrUsed(ctx context.Context, id int64) (int64, error)
}
