package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/khalildhmine/fmbq-sub002/internal/datamodels/coupon"
)

type memCouponRepo struct {
	byID   map[int64]*coupon.Coupon
	byCode map[string]*coupon.Coupon
}

func newMemCouponRepo(cs ...*coupon.Coupon) *memCouponRepo {
	r := &memCouponRepo{byID: make(map[int64]*coupon.Coupon), byCode: make(map[string]*coupon.Coupon)}
	for _, c := range cs {
		r.byID[c.ID] = c
		r.byCode[c.Code] = c
	}
	return r
}

func (r *memCouponRepo) GetByID(_ context.Context, id int64) (*coupon.Coupon, error) {
	c, ok := r.byID[id]
	if !ok {
		return nil, errors.New("coupon not found")
	}
	return c, nil
}

func (r *memCouponRepo) GetByCode(_ context.Context, code string) (*coupon.Coupon, error) {
	c, ok := r.byCode[code]
	if !ok {
		return nil, errors.New("coupon not found")
	}
	return c, nil
}

func (r *memCouponRepo) ListAll(_ context.Context) ([]*coupon.Coupon, error) { return nil, nil }
func (r *memCouponRepo) Create(_ context.Context, _ *coupon.Coupon) error    { return nil }
func (r *memCouponRepo) Update(_ context.Context, _ *coupon.Coupon) error    { return nil }
func (r *memCouponRepo) Delete(_ context.Context, _ int64) error             { return nil }

func (r *memCouponRepo) IncrUsed(_ context.Context, id int64) (int64, error) {
	c, ok := r.byID[id]
	if !ok {
		return 0, errors.New("coupon not found")
	}
	if c.Used >= c.Total {
		return 0, nil
	}
	c.Used++
	return 1, nil
}

func validCoupon() *coupon.Coupon {
	now := time.Now()
	return &coupon.Coupon{
		ID:        1,
		Code:      "SAVE5",
		Discount:  500,
		MinSpend:  1000,
		Total:     2,
		Status:    1,
		StartTime: now.Add(-time.Hour),
		EndTime:   now.Add(time.Hour),
	}
}

func TestRedeemHappyPath(t *testing.T) {
	svc := NewCouponService(newMemCouponRepo(validCoupon()))
	c, discount, err := svc.Redeem(context.Background(), "SAVE5", 2000)
	if err != nil {
		t.Fatal(err)
	}
	if discount != 500 || c.ID != 1 {
		t.Fatalf("discount = %d coupon = %d", discount, c.ID)
	}
}

func TestRedeemBelowMinSpend(t *testing.T) {
	svc := NewCouponService(newMemCouponRepo(validCoupon()))
	if _, _, err := svc.Redeem(context.Background(), "SAVE5", 500); !errors.Is(err, ErrCouponUnusable) {
		t.Fatalf("err = %v, want ErrCouponUnusable", err)
	}
}

func TestRedeemExpired(t *testing.T) {
	c := validCoupon()
	c.EndTime = time.Now().Add(-time.Minute)
	svc := NewCouponService(newMemCouponRepo(c))
	if _, _, err := svc.Redeem(context.Background(), "SAVE5", 2000); !errors.Is(err, ErrCouponUnusable) {
		t.Fatalf("err = %v, want ErrCouponUnusable", err)
	}
}

func TestRedeemExhausted(t *testing.T) {
	svc := NewCouponService(newMemCouponRepo(validCoupon()))
	for i := 0; i < 2; i++ {
		if _, _, err := svc.Redeem(context.Background(), "SAVE5", 2000); err != nil {
			t.Fatalf("redeem %d failed: %v", i, err)
		}
	}
	if _, _, err := svc.Redeem(context.Background(), "SAVE5", 2000); !errors.Is(err, ErrCouponUnusable) {
		t.Fatalf("err = %v, want ErrCouponUnusable after the pool is drained", err)
	}
}

func TestRedeemDiscountCappedAtAmount(t *testing.T) {
	c := validCoupon()
	c.Discount = 5000
	c.MinSpend = 0
	svc := NewCouponService(newMemCouponRepo(c))
	_, discount, err := svc.Redeem(context.Background(), "SAVE5", 1200)
	if err != nil {
		t.Fatal(err)
	}
	if discount != 1200 {
		t.Fatalf("discount = %d, must not exceed the order amount", discount)
	}
}
