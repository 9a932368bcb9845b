package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lovingyourskin/commerce-api/internal/model"
	"github.com/lovingyourskin/commerce-api/internal/service"
	"github.com/lovingyourskin/commerce-api/pkg/database"
)

const productColumns = `id, brand_id, name, description, category, retail_price, wholesale_price,
	items_per_carton, moq, stock, preorder, active, created_at, updated_at`

// ProductRepository provides data access for catalog products.
type ProductRepository struct {
	pool PoolInterface
}

// NewProductRepository creates a new ProductRepository with the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// NewProductRepositoryWithPool creates a ProductRepository with a custom pool
// interface. Primarily used for testing.
func NewProductRepositoryWithPool(pool PoolInterface) *ProductRepository {
	return &ProductRepository{pool: pool}
}

func scanProduct(row pgx.Row) (*model.Product, error) {
	var p model.Product
	err := row.Scan(&p.ID, &p.BrandID, &p.Name, &p.Description, &p.Category,
		&p.RetailPrice, &p.WholesalePrice, &p.ItemsPerCarton, &p.MOQ, &p.Stock,
		&p.Preorder, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Insert inserts a new product.
func (r *ProductRepository) Insert(ctx context.Context, p *model.Product) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO products (id, brand_id, name, description, category, retail_price,
			wholesale_price, items_per_carton, moq, stock, preorder, active)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		p.ID, p.BrandID, p.Name, p.Description, p.Category, p.RetailPrice,
		p.WholesalePrice, p.ItemsPerCarton, p.MOQ, p.Stock, p.Preorder, p.Active)
	if err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

// GetByID retrieves a product. Returns nil, nil if not found.
func (r *ProductRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)

	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

// ListByBrand returns a brand's products.
func (r *ProductRepository) ListByBrand(ctx context.Context, brandID uuid.UUID) ([]model.Product, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+productColumns+` FROM products WHERE brand_id = $1 ORDER BY name`, brandID)
	if err != nil {
		return nil, fmt.Errorf("list products by brand: %w", err)
	}
	return collectProducts(rows)
}

// List returns all active products.
func (r *ProductRepository) List(ctx context.Context) ([]model.Product, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+productColumns+` FROM products WHERE active ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return collectProducts(rows)
}

func collectProducts(rows pgx.Rows) ([]model.Product, error) {
	defer rows.Close()

	products := []model.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}
	return products, nil
}

// Update persists the mutable fields of a product.
func (r *ProductRepository) Update(ctx context.Context, p *model.Product) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE products SET name = $2, description = $3, category = $4, retail_price = $5,
			wholesale_price = $6, items_per_carton = $7, moq = $8, stock = $9,
			preorder = $10, active = $11, updated_at = now()
		 WHERE id = $1`,
		p.ID, p.Name, p.Description, p.Category, p.RetailPrice,
		p.WholesalePrice, p.ItemsPerCarton, p.MOQ, p.Stock, p.Preorder, p.Active)
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return service.ErrProductNotFound
	}
	return nil
}

// DecrementStock reduces stock by the ordered quantity, clamped at zero.
// Called within the order materialization transaction.
func (r *ProductRepository) DecrementStock(ctx context.Context, tx database.TxQuerier, id uuid.UUID, quantity int, now time.Time) error {
	_, err := tx.Exec(ctx,
		`UPDATE products SET stock = greatest(stock - $2, 0), updated_at = $3 WHERE id = $1`,
		id, quantity, now)
	if err != nil {
		return fmt.Errorf("decrement stock for %s: %w", id, err)
	}
	return nil
}
