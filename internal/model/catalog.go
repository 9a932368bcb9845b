package model

import (
	"time"

	"github.com/google/uuid"
)

// VolumeDiscountTier is one threshold of a brand's volume discount ladder.
type VolumeDiscountTier struct {
	Threshold          float64 `json:"threshold"`
	DiscountPercentage float64 `json:"discountPercentage"`
}

// Brand is a K-beauty brand carried by the store. MOA is the minimum order
// amount above which per-product MOQ checks are waived for B2B carts.
type Brand struct {
	ID              uuid.UUID            `json:"id"`
	Name            string               `json:"name"`
	Description     string               `json:"description,omitempty"`
	Country         string               `json:"country,omitempty"`
	MOA             float64              `json:"moa"`
	VolumeDiscounts []VolumeDiscountTier `json:"volumeDiscounts,omitempty"`
	Active          bool                 `json:"active"`
	CreatedAt       time.Time            `json:"createdAt"`
	UpdatedAt       time.Time            `json:"updatedAt"`
}

// Product is one catalog item. Wholesale pricing and MOQ apply to B2B orders.
type Product struct {
	ID             uuid.UUID `json:"id"`
	BrandID        uuid.UUID `json:"brandId"`
	Name           string    `json:"name"`
	Description    string    `json:"description,omitempty"`
	Category       string    `json:"category,omitempty"`
	RetailPrice    float64   `json:"retailPrice"`
	WholesalePrice float64   `json:"wholesalePrice,omitempty"`
	ItemsPerCarton int       `json:"itemsPerCarton,omitempty"`
	MOQ            int       `json:"moq,omitempty"`
	Stock          int       `json:"stock"`
	Preorder       bool      `json:"preorder"`
	Active         bool      `json:"active"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// CreateBrandRequest is the admin DTO for adding a brand.
type CreateBrandRequest struct {
	Name            string               `json:"name" validate:"required,notblank,max=255"`
	Description     string               `json:"description" validate:"max=5000"`
	Country         string               `json:"country" validate:"max=64"`
	MOA             float64              `json:"moa" validate:"gte=0"`
	VolumeDiscounts []VolumeDiscountTier `json:"volumeDiscounts"`
	Active          bool                 `json:"active"`
}

// CreateProductRequest is the admin DTO for adding a product.
type CreateProductRequest struct {
	BrandID        string  `json:"brandId" validate:"required,uuid4"`
	Name           string  `json:"name" validate:"required,notblank,max=255"`
	Description    string  `json:"description" validate:"max=5000"`
	Category       string  `json:"category" validate:"max=128"`
	RetailPrice    float64 `json:"retailPrice" validate:"required,gt=0"`
	WholesalePrice float64 `json:"wholesalePrice" validate:"gte=0"`
	ItemsPerCarton int     `json:"itemsPerCarton" validate:"gte=0"`
	MOQ            int     `json:"moq" validate:"gte=0"`
	Stock          int     `json:"stock" validate:"gte=0"`
	Preorder       bool    `json:"preorder"`
	Active         bool    `json:"active"`
}

// VolumeDiscountResult describes the best applicable volume discount for a
// brand order total and the next tier worth surfacing to the buyer.
type VolumeDiscountResult struct {
	Tier         *VolumeDiscountTier `json:"tier,omitempty"`
	Savings      float64             `json:"savings"`
	NextTier     *VolumeDiscountTier `json:"nextTier,omitempty"`
	AmountNeeded float64             `json:"amountNeeded,omitempty"`
}
