// Package chainpay implements the blockchain payment rail: a payment record
// created at checkout, buyer-submitted transaction verification, and a
// detached monitor that polls the chain for finality.
package chainpay

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var (
	ErrNotFound = errors.New("blockchain payment not found")
)

type Repository interface {
	Create(ctx context.Context, p *Payment) error
	GetByOrderID(ctx context.Context, orderID string) (*Payment, error)
	SetStatus(ctx context.Context, id string, status Status) error
	// SetSubmitted records the buyer's transaction hash together with the
	// transition to confirming.
	SetSubmitted(ctx context.Context, id, txHash string, status Status) error
}

type PGRepo struct{ db *pgxpool.Pool }

func NewPGRepo(db *pgxpool.Pool) *PGRepo { return &PGRepo{db: db} }

func (r *PGRepo) Create(ctx context.Context, p *Payment) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := r.db.Exec(ctx, `
    INSERT INTO blockchain_payments (id, order_id, wallet_address, amount, currency, status, created_at, updated_at)
    VALUES ($1,$2,$3,$4,$5,$6,NOW(),NOW())
  `, p.ID, p.OrderID, p.WalletAddress, p.Amount.String(), p.Currency, p.Status)
	return err
}

func (r *PGRepo) GetByOrderID(ctx context.Context, orderID string) (*Payment, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var (
		p      Payment
		amount string
	)
	err := r.db.QueryRow(ctx, `
    SELECT id, order_id, wallet_address, amount::text, currency, status, COALESCE(tx_hash,''), created_at, updated_at
    FROM blockchain_payments WHERE order_id=$1
  `, orderID).Scan(&p.ID, &p.OrderID, &p.WalletAddress, &amount, &p.Currency, &p.Status, &p.TxHash, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, ErrNotFound
	}
	if p.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PGRepo) SetStatus(ctx context.Context, id string, status Status) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tag, err := r.db.Exec(ctx, `
    UPDATE blockchain_payments SET status=$2, updated_at=NOW() WHERE id=$1
  `, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PGRepo) SetSubmitted(ctx context.Context, id, txHash string, status Status) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tag, err := r.db.Exec(ctx, `
    UPDATE blockchain_payments SET tx_hash=$2, status=$3, updated_at=NOW() WHERE id=$1
  `, id, txHash, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
