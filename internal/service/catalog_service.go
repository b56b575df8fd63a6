package service

import (
	"context"

	"github.com/khalildhmine/fmbq-sub002/internal/datamodels/brand"
	"github.com/khalildhmine/fmbq-sub002/internal/datamodels/category"
)

// CatalogService 分类与品牌的薄封装，后台 CRUD 直接透传仓储
type CatalogService struct {
	categories category.Repository
	brands     brand.Repository
}

func NewCatalogService(categories category.Repository, brands brand.Repository) *CatalogService {
	return &CatalogService{categories: categories, brands: brands}
}

func (s *CatalogService) ListCategories(ctx context.Context) ([]*category.Category, error) {
	return s.categories.ListAll(ctx)
}

func (s *CatalogService) CreateCategory(ctx context.Context, c *category.Category) error {
	return s.categories.Create(ctx, c)
}

func (s *CatalogService) UpdateCategory(ctx context.Context, c *category.Category) error {
	return s.categories.Update(ctx, c)
}

func (s *CatalogService) GetCategory(ctx context.Context, id int64) (*category.Category, error) {
	return s.categories.GetByID(ctx, id)
}

func (s *CatalogService) DeleteCategory(ctx context.Context, id int64) error {
	return s.categories.Delete(ctx, id)
}

func (s *CatalogService) ListBrands(ctx context.Context) ([]*brand.Brand, error) {
	return s.brands.ListAll(ctx)
}

func (s *CatalogService) CreateBrand(ctx context.Context, b *brand.Brand) error {
	return s.brands.Create(ctx, b)
}

func (s *CatalogService) UpdateBrand(ctx context.Context, b *brand.Brand) error {
	return s.brands.Update(ctx, b)
}

func (s *CatalogService) GetBrand(ctx context.Context, id int64) (*brand.Brand, error) {
	return s.brands.GetByID(ctx, id)
}

func (s *CatalogService) DeleteBrand(ctx context.Context, id int64) error {
	return s.brands.Delete(ctx, id)
}
