package service

import (
	"context"
	"errors"

	"github.com/khalildhmine/fmbq-sub002/internal/datamodels/order"
	"github.com/khalildhmine/fmbq-sub002/internal/datamodels/product"
)

type OrderService struct {
	repo     order.Repository
	products product.Repository
	coupons  *CouponService
}

func NewOrderService(repo order.Repository, products product.Repository, coupons *CouponService) *OrderService {
	return &OrderService{repo: repo, products: products, coupons: coupons}
}

// Place 下单：价格取商品当前价快照，可选用券抵扣
func (s *OrderService) Place(ctx context.Context, userID, productID, quantity int64, couponCode string) (*order.Order, error) {
	if quantity <= 0 {
		quantity = 1
	}
	p, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if p.Status != 1 {
		return nil, errors.New("product offline")
	}

	total := p.Price * quantity
	var couponID int64
	if couponCode != "" && s.coupons != nil {
		c, discount, err := s.coupons.Redeem(ctx, couponCode, total)
		if err != nil {
			return nil, err
		}
		total -= discount
		couponID = c.ID
	}

	o := &order.Order{
		UserID:    userID,
		ProductID: productID,
		Quantity:  quantity,
		Price:     total,
		CouponID:  couponID,
		Status:    order.StatusCreated,
	}
	if err := s.repo.Create(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

func (s *OrderService) GetByID(ctx context.Context, id int64) (*order.Order, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *OrderService) ListByUser(ctx context.Context, userID int64) ([]*order.Order, error) {
	return s.repo.ListByUser(ctx, userID)
}

func (s *OrderService) ListRecent(ctx context.Context, limit int) ([]*order.Order, error) {
	return s.repo.ListRecent(ctx, limit)
}

// MarkPaid 标记已支付
func (s *OrderService) MarkPaid(ctx context.Context, id int64) error {
	return s.repo.UpdateStatus(ctx, id, order.StatusPaid)
}

// Cancel 取消订单
func (s *OrderService) Cancel(ctx context.Context, id int64) error {
	return s.repo.UpdateStatus(ctx, id, order.StatusCancelled)
}
