package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lovingyourskin/commerce-api/internal/model"
)

// AdminRepository provides data access for back-office operator accounts.
type AdminRepository struct {
	pool PoolInterface
}

// NewAdminRepository creates a new AdminRepository with the given pool.
func NewAdminRepository(pool *pgxpool.Pool) *AdminRepository {
	return &AdminRepository{pool: pool}
}

// NewAdminRepositoryWithPool creates an AdminRepository with a custom pool
// interface. Primarily used for testing.
func NewAdminRepositoryWithPool(pool PoolInterface) *AdminRepository {
	return &AdminRepository{pool: pool}
}

// GetByEmail retrieves an admin account. Returns nil, nil if not found.
func (r *AdminRepository) GetByEmail(ctx context.Context, email string) (*model.AdminUser, error) {
	var u model.AdminUser
	err := r.pool.QueryRow(ctx,
		`SELECT id, email, name, password_hash, role, created_at FROM admin_users WHERE email = $1`,
		email).Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.Role, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get admin by email: %w", err)
	}
	return &u, nil
}

// Insert inserts an admin account.
func (r *AdminRepository) Insert(ctx context.Context, u *model.AdminUser) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO admin_users (id, email, name, password_hash, role)
		 VALUES ($1, $2, $3, $4, $5)`,
		u.ID, u.Email, u.Name, u.PasswordHash, u.Role)
	if err != nil {
		return fmt.Errorf("insert admin user: %w", err)
	}
	return nil
}
