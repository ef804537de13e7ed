// Package cart holds the shopping cart domain, its PostgreSQL repository and
// the service-level rules (price snapshots, line merging, inventory guards).
package cart

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var (
	ErrNotFound     = errors.New("cart not found")
	ErrItemNotFound = errors.New("cart item not found")
)

type Repository interface {
	// GetByOwner returns the owner's cart with all items, or ErrNotFound if
	// the owner has never added anything.
	GetByOwner(ctx context.Context, owner Owner) (*Cart, error)
	// AddItem merges into an existing line for the same variant or appends a
	// new one, creating the cart row lazily.
	AddItem(ctx context.Context, owner Owner, item Item) error
	// SetItemQuantity overwrites a line's quantity; zero deletes the line.
	SetItemQuantity(ctx context.Context, owner Owner, itemID string, quantity int) error
	RemoveItem(ctx context.Context, owner Owner, itemID string) error
	Clear(ctx context.Context, owner Owner) error
}

type PGRepo struct{ db *pgxpool.Pool }

func NewPGRepo(db *pgxpool.Pool) *PGRepo { return &PGRepo{db: db} }

const ownerFilter = `(($1 <> '' AND user_id = $1) OR ($2 <> '' AND session_id = $2))`

func (r *PGRepo) GetByOwner(ctx context.Context, owner Owner) (*Cart, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var c Cart
	var userID, sessionID *string
	err := r.db.QueryRow(ctx, `
		SELECT id, user_id, session_id, created_at, updated_at
		FROM carts WHERE `+ownerFilter+`
	`, owner.UserID, owner.SessionID).Scan(&c.ID, &userID, &sessionID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, ErrNotFound
	}
	if userID != nil {
		c.UserID = *userID
	}
	if sessionID != nil {
		c.SessionID = *sessionID
	}

	rows, err := r.db.Query(ctx, `
		SELECT id, cart_id, product_id, variant_id, quantity, unit_price::text, added_at
		FROM cart_items WHERE cart_id=$1
		ORDER BY added_at
	`, c.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var it Item
		var price string
		if err := rows.Scan(&it.ID, &it.CartID, &it.ProductID, &it.VariantID, &it.Quantity, &price, &it.AddedAt); err != nil {
			return nil, err
		}
		if it.UnitPrice, err = decimal.NewFromString(price); err != nil {
			return nil, err
		}
		c.Items = append(c.Items, it)
	}
	return &c, rows.Err()
}

func (r *PGRepo) AddItem(ctx context.Context, owner Owner, item Item) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	cartID, err := r.getOrCreate(ctx, owner)
	if err != nil {
		return err
	}

	// Same variant already in the cart bumps the quantity instead of adding a
	// duplicate line; the price stays at the original snapshot.
	_, err = r.db.Exec(ctx, `
		INSERT INTO cart_items (id, cart_id, product_id, variant_id, quantity, unit_price, added_at)
		VALUES ($1,$2,$3,$4,$5,$6,NOW())
		ON CONFLICT (cart_id, variant_id)
		DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity
	`, uuid.NewString(), cartID, item.ProductID, item.VariantID, item.Quantity, item.UnitPrice.String())
	return err
}

func (r *PGRepo) SetItemQuantity(ctx context.Context, owner Owner, itemID string, quantity int) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if quantity == 0 {
		return r.RemoveItem(ctx, owner, itemID)
	}

	tag, err := r.db.Exec(ctx, `
		UPDATE cart_items SET quantity=$3
		WHERE id=$2 AND cart_id = (SELECT id FROM carts WHERE `+ownerFilter+`)
	`, owner.UserID, owner.SessionID, itemID, quantity)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrItemNotFound
	}
	return nil
}

func (r *PGRepo) RemoveItem(ctx context.Context, owner Owner, itemID string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tag, err := r.db.Exec(ctx, `
		DELETE FROM cart_items
		WHERE id=$2 AND cart_id = (SELECT id FROM carts WHERE `+ownerFilter+`)
	`, owner.UserID, owner.SessionID, itemID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrItemNotFound
	}
	return nil
}

func (r *PGRepo) Clear(ctx context.Context, owner Owner) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := r.db.Exec(ctx, `
		DELETE FROM cart_items
		WHERE cart_id = (SELECT id FROM carts WHERE `+ownerFilter+`)
	`, owner.UserID, owner.SessionID)
	return err
}

func (r *PGRepo) getOrCreate(ctx context.Context, owner Owner) (string, error) {
	var id string
	err := r.db.QueryRow(ctx, `SELECT id FROM carts WHERE `+ownerFilter,
		owner.UserID, owner.SessionID).Scan(&id)
	if err == nil {
		return id, nil
	}

	id = uuid.NewString()
	var userID, sessionID *string
	if owner.UserID != "" {
		userID = &owner.UserID
	}
	if owner.SessionID != "" {
		sessionID = &owner.SessionID
	}
	_, err = r.db.Exec(ctx, `
		INSERT INTO carts (id, user_id, session_id, created_at, updated_at)
		VALUES ($1,$2,$3,NOW(),NOW())
		ON CONFLICT DO NOTHING
	`, id, userID, sessionID)
	if err != nil {
		return "", err
	}
	// Re-read in case a concurrent insert won.
	err = r.db.QueryRow(ctx, `SELECT id FROM carts WHERE `+ownerFilter,
		owner.UserID, owner.SessionID).Scan(&id)
	return id, err
}
