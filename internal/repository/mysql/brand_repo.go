package mysql

import (
	"context"

	"gorm.io/gorm"

	"github.com/khalildhmine/fmbq-sub002/internal/datamodels/brand"
)

type brandRepo struct {
	db *gorm.DB
}

// NewBrandRepository 创建品牌仓储
func NewBrandRepository(db *gorm.DB) brand.Repository {
	return &brandRepo{db: db}
}

func (r *brandRepo) GetByID(ctx context.Context, id int64) (*brand.Brand, error) {
	var b brand.Brand
	if err := r.db.WithContext(ctx).First(&b, id).Error; err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *brandRepo) ListAll(ctx context.Context) ([]*brand.Brand, error) {
	var list []*brand.Brand
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *brandRepo) Create(ctx context.Context, b *brand.Brand) error {
	return r.db.WithContext(ctx).Create(b).Error
}

func (r *brandRepo) Update(ctx context.Context, b *brand.Brand) error {
	return r.db.WithContext(ctx).Save(b).Error
}

func (r *brandRepo) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&brand.Brand{}, id).Error
}
