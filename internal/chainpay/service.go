package chainpay

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MikeMC777/tienda-ecom/internal/order"
)

var (
	ErrInvalidTransaction = errors.New("transaction does not match the expected payment")
	ErrAlreadySubmitted   = errors.New("a transaction was already submitted for this payment")
)

const lamportsPerSol = 1_000_000_000

// OrderStore is the slice of the order repository this service needs.
type OrderStore interface {
	SetPaymentStatus(ctx context.Context, id string, ps order.PaymentStatus, st order.Status) error
}

// Service owns the blockchain payment lifecycle. Confirmation is deliberately
// optimistic: once a plausible transaction is submitted the order is marked
// paid, and the detached monitor reconciles against actual finality.
type Service struct {
	payments Repository
	orders   OrderStore
	rpc      RPC

	// Poll cadence; overridable so tests do not sleep for a minute.
	PollInterval time.Duration
	MaxAttempts  int
}

func NewService(payments Repository, orders OrderStore, rpc RPC) *Service {
	return &Service{
		payments:     payments,
		orders:       orders,
		rpc:          rpc,
		PollInterval: 2 * time.Second,
		MaxAttempts:  30,
	}
}

// CreatePayment opens a pending on-chain payment for an order at checkout.
func (s *Service) CreatePayment(ctx context.Context, orderID string, amount decimal.Decimal, currency, wallet string) (*Payment, error) {
	p := &Payment{
		ID:            uuid.NewString(),
		OrderID:       orderID,
		WalletAddress: wallet,
		Amount:        amount,
		Currency:      currency,
		Status:        StatusPending,
	}
	if err := s.payments.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("payments.Create: %w", err)
	}
	return p, nil
}

// SubmitTransaction handles the buyer-supplied transaction hash: basic
// validity against the expected amount and recipient, optimistic paid mark on
// the order, then a detached monitor goroutine. The caller is never blocked
// on finality.
func (s *Service) SubmitTransaction(ctx context.Context, orderID, txHash string) (*Payment, error) {
	p, err := s.payments.GetByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	switch p.Status {
	case StatusConfirming, StatusConfirmed:
		// Duplicate submit; report current state instead of double-applying.
		return p, nil
	case StatusFailed:
		return nil, ErrAlreadySubmitted
	}

	info, err := s.rpc.GetTransfer(ctx, txHash)
	if err != nil {
		return nil, fmt.Errorf("rpc.GetTransfer: %w", err)
	}
	if info.Failed || info.Destination != p.WalletAddress || info.Lamports < expectedLamports(p.Amount) {
		return nil, ErrInvalidTransaction
	}

	if err := s.payments.SetSubmitted(ctx, p.ID, txHash, StatusConfirming); err != nil {
		return nil, fmt.Errorf("payments.SetSubmitted: %w", err)
	}
	p.TxHash = txHash
	p.Status = StatusConfirming

	// Optimistic confirmation: settlement is reconciled by the monitor.
	if err := s.orders.SetPaymentStatus(ctx, p.OrderID, order.PaymentPaid, order.StatusConfirmed); err != nil {
		return nil, fmt.Errorf("orders.SetPaymentStatus: %w", err)
	}

	go s.monitor(p.ID, p.OrderID, txHash)

	return p, nil
}

// monitor polls for transaction finality at a fixed interval with a bounded
// number of attempts. It runs detached from any request; its outcome is only
// observable through subsequent state reads.
func (s *Service) monitor(paymentID, orderID, txHash string) {
	budget := time.Duration(s.MaxAttempts+5) * s.PollInterval
	ctx, cancel := context.WithTimeout(context.Background(), budget)
	defer cancel()

	ticker := time.NewTicker(s.PollInterval)
	defer ticker.Stop()

	for attempt := 1; attempt <= s.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			s.markFailed(paymentID, orderID, "poll budget exhausted")
			return
		case <-ticker.C:
		}

		st, err := s.rpc.GetSignatureStatus(ctx, txHash)
		if err != nil {
			// Indeterminate outcome must not corrupt state; try again.
			log.Printf("[chainpay] status poll %d/%d for %s failed: %v", attempt, s.MaxAttempts, txHash, err)
			continue
		}
		if st == nil {
			continue
		}
		if st.Failed {
			s.markFailed(paymentID, orderID, "transaction errored on chain")
			return
		}
		if st.ConfirmationStatus == "finalized" {
			if err := s.payments.SetStatus(ctx, paymentID, StatusConfirmed); err != nil {
				log.Printf("[chainpay] confirm %s: %v", paymentID, err)
			}
			log.Printf("[chainpay] payment %s finalized (%s)", paymentID, txHash)
			return
		}
	}

	s.markFailed(paymentID, orderID, "no finality after max attempts")
}

// markFailed fails the payment and reverts the optimistic paid mark so the
// buyer can retry without a duplicate order.
func (s *Service) markFailed(paymentID, orderID, reason string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	log.Printf("[chainpay] payment %s failed: %s", paymentID, reason)
	if err := s.payments.SetStatus(ctx, paymentID, StatusFailed); err != nil {
		log.Printf("[chainpay] mark failed %s: %v", paymentID, err)
	}
	if err := s.orders.SetPaymentStatus(ctx, orderID, order.PaymentPending, order.StatusPending); err != nil {
		log.Printf("[chainpay] revert order %s: %v", orderID, err)
	}
}

func expectedLamports(amount decimal.Decimal) uint64 {
	return uint64(amount.Mul(decimal.NewFromInt(lamportsPerSol)).IntPart())
}
