package service

import (
	"context"
	"errors"
	"time"

	"github.com/khalildhmine/fmbq-sub002/internal/datamodels/coupon"
)

var ErrCouponUnusable = errors.New("coupon not usable")

type CouponService struct {
	repo coupon.Repository
}

func NewCouponService(repo coupon.Repository) *CouponService {
	return &CouponService{repo: repo}
}

func (s *CouponService) ListAll(ctx context.Context) ([]*coupon.Coupon, error) {
	return s.repo.ListAll(ctx)
}

func (s *CouponService) GetByID(ctx context.Context, id int64) (*coupon.Coupon, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *CouponService) Create(ctx context.Context, c *coupon.Coupon) error {
	return s.repo.Create(ctx, c)
}

func (s *CouponService) Update(ctx context.Context, c *coupon.Coupon) error {
	return s.repo.Update(ctx, c)
}

func (s *CouponService) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

// Redeem 按券码占用一张券，返回可抵扣金额（分）
func (s *CouponService) Redeem(ctx context.Context, code string, amount int64) (*coupon.Coupon, int64, error) {
	c, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		return nil, 0, err
	}
	if !c.Usable(time.Now()) || amount < c.MinSpend {
		return nil, 0, ErrCouponUnusable
	}
	n, err := s.repo.IncrUsed(ctx, c.ID)
	if err != nil {
		return nil, 0, err
	}
	if n == 0 {
		return nil, 0, ErrCouponUnusable
	}
	discount := c.Discount
	if discount > amount {
		discount = amount
	}
	return c, discount, nil
}
