package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/lovingyourskin/commerce-api/internal/model"
)

// BrandRepositoryInterface defines the interface for brand data access.
type BrandRepositoryInterface interface {
	Insert(ctx context.Context, b *model.Brand) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Brand, error)
	List(ctx context.Context) ([]model.Brand, error)
	Update(ctx context.Context, b *model.Brand) error
}

// ProductRepositoryInterface defines the interface for product data access.
type ProductRepositoryInterface interface {
	Insert(ctx context.Context, p *model.Product) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Product, error)
	ListByBrand(ctx context.Context, brandID uuid.UUID) ([]model.Product, error)
	List(ctx context.Context) ([]model.Product, error)
	Update(ctx context.Context, p *model.Product) error
}

// CatalogService provides business logic for brands and products.
type CatalogService struct {
	brands   BrandRepositoryInterface
	products ProductRepositoryInterface
}

// NewCatalogService creates a new CatalogService.
func NewCatalogService(brands BrandRepositoryInterface, products ProductRepositoryInterface) *CatalogService {
	return &CatalogService{brands: brands, products: products}
}

// CreateBrand adds a brand. Volume discount tiers are kept ordered ascending
// by threshold so tier selection can take the last matching entry.
func (s *CatalogService) CreateBrand(ctx context.Context, req *model.CreateBrandRequest) (*model.Brand, error) {
	if req == nil {
		return nil, ErrInvalidRequest
	}
	b := &model.Brand{
		ID:              uuid.New(),
		Name:            req.Name,
		Description:     req.Description,
		Country:         req.Country,
		MOA:             req.MOA,
		VolumeDiscounts: sortVolumeTiers(req.VolumeDiscounts),
		Active:          req.Active,
	}
	if err := s.brands.Insert(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

func sortVolumeTiers(tiers []model.VolumeDiscountTier) []model.VolumeDiscountTier {
	out := make([]model.VolumeDiscountTier, len(tiers))
	copy(out, tiers)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].Threshold < out[j-1].Threshold; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

// GetBrand retrieves a brand.
func (s *CatalogService) GetBrand(ctx context.Context, id uuid.UUID) (*model.Brand, error) {
	b, err := s.brands.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get brand: %w", err)
	}
	if b == nil {
		return nil, ErrBrandNotFound
	}
	return b, nil
}

// ListBrands returns all active brands.
func (s *CatalogService) ListBrands(ctx context.Context) ([]model.Brand, error) {
	return s.brands.List(ctx)
}

// UpdateBrand persists an edited brand.
func (s *CatalogService) UpdateBrand(ctx context.Context, b *model.Brand) error {
	b.VolumeDiscounts = sortVolumeTiers(b.VolumeDiscounts)
	return s.brands.Update(ctx, b)
}

// CreateProduct adds a product under an existing brand.
func (s *CatalogService) CreateProduct(ctx context.Context, req *model.CreateProductRequest) (*model.Product, error) {
	if req == nil {
		return nil, ErrInvalidRequest
	}
	brandID, err := uuid.Parse(req.BrandID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid brand id", ErrInvalidRequest)
	}
	if _, err := s.GetBrand(ctx, brandID); err != nil {
		return nil, err
	}

	p := &model.Product{
		ID:             uuid.New(),
		BrandID:        brandID,
		Name:           req.Name,
		Description:    req.Description,
		Category:       req.Category,
		RetailPrice:    req.RetailPrice,
		WholesalePrice: req.WholesalePrice,
		ItemsPerCarton: req.ItemsPerCarton,
		MOQ:            req.MOQ,
		Stock:          req.Stock,
		Preorder:       req.Preorder,
		Active:         req.Active,
	}
	if err := s.products.Insert(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// GetProduct retrieves a product.
func (s *CatalogService) GetProduct(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	p, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	if p == nil {
		return nil, ErrProductNotFound
	}
	return p, nil
}

// ListProducts returns active products, narrowed to one brand when brandID
// is non-nil.
func (s *CatalogService) ListProducts(ctx context.Context, brandID *uuid.UUID) ([]model.Product, error) {
	if brandID != nil {
		return s.products.ListByBrand(ctx, *brandID)
	}
	return s.products.List(ctx)
}

// UpdateProduct persists an edited product.
func (s *CatalogService) UpdateProduct(ctx context.Context, p *model.Product) error {
	return s.products.Update(ctx, p)
}

// VolumeDiscount returns the best tier a brand order total has reached, the
// savings at that tier, and the next tier worth surfacing to the buyer.
func (s *CatalogService) VolumeDiscount(ctx context.Context, brandID uuid.UUID, orderTotal float64) (*model.VolumeDiscountResult, error) {
	brand, err := s.GetBrand(ctx, brandID)
	if err != nil {
		return nil, err
	}
	return VolumeDiscountFor(brand, orderTotal), nil
}

// VolumeDiscountFor computes the volume discount outcome for a brand order
// total. Tiers are assumed sorted ascending by threshold.
func VolumeDiscountFor(brand *model.Brand, orderTotal float64) *model.VolumeDiscountResult {
	result := &model.VolumeDiscountResult{}
	for i := range brand.VolumeDiscounts {
		tier := brand.VolumeDiscounts[i]
		if orderTotal >= tier.Threshold {
			result.Tier = &brand.VolumeDiscounts[i]
		} else {
			result.NextTier = &brand.VolumeDiscounts[i]
			result.AmountNeeded = tier.Threshold - orderTotal
			break
		}
	}
	if result.Tier != nil {
		result.Savings = orderTotal * result.Tier.DiscountPercentage / 100
	}
	return result
}
