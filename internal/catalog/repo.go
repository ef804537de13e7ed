// Package catalog provides the repository interface and PostgreSQL
// implementation for products and their variants.
package catalog

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var (
	ErrNotFound = errors.New("product not found")
)

type Query struct {
	Q      string
	Limit  int
	Offset int
}

type Repository interface {
	List(ctx context.Context, q Query) ([]Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)
	ListVariants(ctx context.Context, productID string) ([]Variant, error)
	GetVariant(ctx context.Context, id string) (*Variant, error)
}

type PGRepo struct{ db *pgxpool.Pool }

func NewPGRepo(db *pgxpool.Pool) *PGRepo { return &PGRepo{db: db} }

func (r *PGRepo) List(ctx context.Context, q Query) ([]Product, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	limit := q.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	search := strings.TrimSpace(q.Q)

	rows, err := r.db.Query(ctx, `
		SELECT id, title, description, image_url, created_at, updated_at
		FROM products
		WHERE ($1 = '' OR title ILIKE '%'||$1||'%' OR description ILIKE '%'||$1||'%')
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, search, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Title, &p.Description, &p.ImageURL, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PGRepo) GetByID(ctx context.Context, id string) (*Product, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var p Product
	err := r.db.QueryRow(ctx, `
		SELECT id, title, description, image_url, created_at, updated_at
		FROM products WHERE id=$1
	`, id).Scan(&p.ID, &p.Title, &p.Description, &p.ImageURL, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (r *PGRepo) ListVariants(ctx context.Context, productID string) ([]Variant, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := r.db.Query(ctx, `
		SELECT id, product_id, title, price::text, inventory
		FROM product_variants WHERE product_id=$1
		ORDER BY title
	`, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Variant
	for rows.Next() {
		v, err := scanVariant(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
	return out, rows.Err()
}

func (r *PGRepo) GetVariant(ctx context.Context, id string) (*Variant, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	row := r.db.QueryRow(ctx, `
		SELECT id, product_id, title, price::text, inventory
		FROM product_variants WHERE id=$1
	`, id)
	v, err := scanVariant(row.Scan)
	if err != nil {
		return nil, ErrNotFound
	}
	return v, nil
}

func scanVariant(scan func(dest ...any) error) (*Variant, error) {
	var (
		v     Variant
		price string
	)
	if err := scan(&v.ID, &v.ProductID, &v.Title, &price, &v.Inventory); err != nil {
		return nil, err
	}
	var err error
	v.Price, err = decimal.NewFromString(price)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
