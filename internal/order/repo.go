package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/MikeMC777/tienda-ecom/internal/catalog"
)

var (
	ErrNotFound = errors.New("order not found")
)

type Repository interface {
	// Create persists the order, its items and both address snapshots,
	// decrements variant inventory with a guarded update and clears the cart,
	// all inside one transaction. Any failure leaves no trace.
	Create(ctx context.Context, o *Order, items []Item, shipTo, billTo *Address, cartID string) error
	GetByID(ctx context.Context, id string) (*Order, []Item, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]Order, error)
	// SetPaymentStatus updates both payment and order status in one statement.
	// It is a plain overwrite, so replays are no-ops in effect.
	SetPaymentStatus(ctx context.Context, id string, ps PaymentStatus, st Status) error
	// SetPaymentStatusByRef locates the order through the stored gateway
	// payment reference, for events that do not carry the order id.
	SetPaymentStatusByRef(ctx context.Context, paymentRef string, ps PaymentStatus, st Status) error
	SetPaymentRef(ctx context.Context, id, paymentRef string) error
}

type PGRepo struct{ db *pgxpool.Pool }

func NewPGRepo(db *pgxpool.Pool) *PGRepo { return &PGRepo{db: db} }

func (r *PGRepo) Create(ctx context.Context, o *Order, items []Item, shipTo, billTo *Address, cartID string) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, addr := range []*Address{shipTo, billTo} {
		if addr.ID == "" {
			addr.ID = uuid.NewString()
		}
		if _, err := tx.Exec(ctx, `
      INSERT INTO addresses (id, name, line1, line2, city, state, postal_code, country, phone)
      VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
    `, addr.ID, addr.Name, addr.Line1, addr.Line2, addr.City, addr.State, addr.PostalCode, addr.Country, addr.Phone); err != nil {
			return err
		}
	}
	o.ShippingAddressID = shipTo.ID
	o.BillingAddressID = billTo.ID

	if _, err := tx.Exec(ctx, `
    INSERT INTO orders (id, order_number, user_id, email,
                        subtotal, tax, shipping, total,
                        status, payment_status, fulfillment_status,
                        shipping_address_id, billing_address_id,
                        shipping_method, payment_method, payment_ref,
                        created_at, updated_at)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,NOW(),NOW())
  `, o.ID, o.Number, nullable(o.UserID), o.Email,
		o.Subtotal.String(), o.Tax.String(), o.Shipping.String(), o.Total.String(),
		o.Status, o.PaymentStatus, o.FulfillmentStatus,
		o.ShippingAddressID, o.BillingAddressID,
		o.ShippingMethod, o.PaymentMethod, nullable(o.PaymentRef)); err != nil {
		return err
	}

	for i := range items {
		it := &items[i]
		if it.ID == "" {
			it.ID = uuid.NewString()
		}
		it.OrderID = o.ID
		if _, err := tx.Exec(ctx, `
      INSERT INTO order_items (id, order_id, product_id, variant_id,
                               product_title, variant_title, image_url,
                               quantity, unit_price)
      VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
    `, it.ID, it.OrderID, it.ProductID, it.VariantID,
			it.ProductTitle, it.VariantTitle, it.ImageURL,
			it.Quantity, it.UnitPrice.String()); err != nil {
			return err
		}

		// Conditional decrement closes the race between the advisory check and
		// commit. Zero rows means inventory dropped below the requested
		// quantity since then; the whole transaction rolls back.
		tag, err := tx.Exec(ctx, `
      UPDATE product_variants
      SET inventory = inventory - $2
      WHERE id = $1 AND inventory >= $2
    `, it.VariantID, it.Quantity)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			var available int
			if scanErr := tx.QueryRow(ctx,
				`SELECT inventory FROM product_variants WHERE id=$1`, it.VariantID,
			).Scan(&available); scanErr != nil {
				available = 0
			}
			return &catalog.InsufficientStockError{
				ProductID:    it.ProductID,
				ProductTitle: it.ProductTitle,
				Requested:    it.Quantity,
				Available:    available,
			}
		}
	}

	if _, err := tx.Exec(ctx, `DELETE FROM cart_items WHERE cart_id=$1`, cartID); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

const orderColumns = `id, order_number, COALESCE(user_id,''), email,
    subtotal::text, tax::text, shipping::text, total::text,
    status, payment_status, fulfillment_status,
    shipping_address_id, billing_address_id,
    shipping_method, payment_method, COALESCE(payment_ref,''),
    created_at, updated_at`

func (r *PGRepo) GetByID(ctx context.Context, id string) (*Order, []Item, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	o, err := scanOrder(r.db.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id=$1`, id))
	if err != nil {
		return nil, nil, ErrNotFound
	}

	rows, err := r.db.Query(ctx, `
    SELECT id, order_id, product_id, variant_id,
           product_title, variant_title, image_url, quantity, unit_price::text
    FROM order_items WHERE order_id=$1
  `, id)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var it Item
		var price string
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.VariantID,
			&it.ProductTitle, &it.VariantTitle, &it.ImageURL, &it.Quantity, &price); err != nil {
			return nil, nil, err
		}
		if it.UnitPrice, err = decimal.NewFromString(price); err != nil {
			return nil, nil, err
		}
		items = append(items, it)
	}
	return o, items, rows.Err()
}

func (r *PGRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Order, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := r.db.Query(ctx, `
    SELECT `+orderColumns+`
    FROM orders WHERE user_id=$1
    ORDER BY created_at DESC LIMIT $2 OFFSET $3
  `, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
	}
	return out, rows.Err()
}

func (r *PGRepo) SetPaymentStatus(ctx context.Context, id string, ps PaymentStatus, st Status) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tag, err := r.db.Exec(ctx, `
    UPDATE orders
    SET payment_status = $2, status = $3, updated_at = NOW()
    WHERE id = $1
  `, id, ps, st)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PGRepo) SetPaymentStatusByRef(ctx context.Context, paymentRef string, ps PaymentStatus, st Status) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tag, err := r.db.Exec(ctx, `
    UPDATE orders
    SET payment_status = $2, status = $3, updated_at = NOW()
    WHERE payment_ref = $1
  `, paymentRef, ps, st)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PGRepo) SetPaymentRef(ctx context.Context, id, paymentRef string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tag, err := r.db.Exec(ctx, `
    UPDATE orders SET payment_ref = $2, updated_at = NOW() WHERE id = $1
  `, id, paymentRef)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface{ Scan(dest ...any) error }

func scanOrder(row rowScanner) (*Order, error) {
	var (
		o                              Order
		subtotal, tax, shipping, total string
	)
	if err := row.Scan(&o.ID, &o.Number, &o.UserID, &o.Email,
		&subtotal, &tax, &shipping, &total,
		&o.Status, &o.PaymentStatus, &o.FulfillmentStatus,
		&o.ShippingAddressID, &o.BillingAddressID,
		&o.ShippingMethod, &o.PaymentMethod, &o.PaymentRef,
		&o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, err
	}
	var err error
	if o.Subtotal, err = decimal.NewFromString(subtotal); err != nil {
		return nil, fmt.Errorf("parse subtotal: %w", err)
	}
	if o.Tax, err = decimal.NewFromString(tax); err != nil {
		return nil, fmt.Errorf("parse tax: %w", err)
	}
	if o.Shipping, err = decimal.NewFromString(shipping); err != nil {
		return nil, fmt.Errorf("parse shipping: %w", err)
	}
	if o.Total, err = decimal.NewFromString(total); err != nil {
		return nil, fmt.Errorf("parse total: %w", err)
	}
	return &o, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
