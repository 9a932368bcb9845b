package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lovingyourskin/commerce-api/internal/model"
	"github.com/lovingyourskin/commerce-api/internal/service"
)

const brandColumns = `id, name, description, country, moa, volume_discounts, active, created_at, updated_at`

// BrandRepository provides data access for brands.
type BrandRepository struct {
	pool PoolInterface
}

// NewBrandRepository creates a new BrandRepository with the given pool.
func NewBrandRepository(pool *pgxpool.Pool) *BrandRepository {
	return &BrandRepository{pool: pool}
}

// NewBrandRepositoryWithPool creates a BrandRepository with a custom pool
// interface. Primarily used for testing.
func NewBrandRepositoryWithPool(pool PoolInterface) *BrandRepository {
	return &BrandRepository{pool: pool}
}

func scanBrand(row pgx.Row) (*model.Brand, error) {
	var b model.Brand
	err := row.Scan(&b.ID, &b.Name, &b.Description, &b.Country, &b.MOA,
		&b.VolumeDiscounts, &b.Active, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// Insert inserts a new brand.
func (r *BrandRepository) Insert(ctx context.Context, b *model.Brand) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO brands (id, name, description, country, moa, volume_discounts, active)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		b.ID, b.Name, b.Description, b.Country, b.MOA, b.VolumeDiscounts, b.Active)
	if err != nil {
		return fmt.Errorf("insert brand: %w", err)
	}
	return nil
}

// GetByID retrieves a brand. Returns nil, nil if not found.
func (r *BrandRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Brand, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+brandColumns+` FROM brands WHERE id = $1`, id)

	b, err := scanBrand(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get brand: %w", err)
	}
	return b, nil
}

// List returns all active brands.
func (r *BrandRepository) List(ctx context.Context) ([]model.Brand, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+brandColumns+` FROM brands WHERE active ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list brands: %w", err)
	}
	defer rows.Close()

	brands := []model.Brand{}
	for rows.Next() {
		b, err := scanBrand(rows)
		if err != nil {
			return nil, fmt.Errorf("scan brand: %w", err)
		}
		brands = append(brands, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate brands: %w", err)
	}
	return brands, nil
}

// Update persists the mutable fields of a brand.
func (r *BrandRepository) Update(ctx context.Context, b *model.Brand) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE brands SET name = $2, description = $3, country = $4, moa = $5,
			volume_discounts = $6, active = $7, updated_at = now()
		 WHERE id = $1`,
		b.ID, b.Name, b.Description, b.Country, b.MOA, b.VolumeDiscounts, b.Active)
	if err != nil {
		return fmt.Errorf("update brand: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return service.ErrBrandNotFound
	}
	return nil
}
