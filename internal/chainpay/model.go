package chainpay

import (
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusConfirming Status = "confirming"
	StatusConfirmed  Status = "confirmed"
	StatusFailed     Status = "failed"
)

// Payment tracks one on-chain settlement for an order. Together with the
// order's payment_status it encodes the two-phase confirmation: an order that
// is paid while its Payment is still confirming is paid-unconfirmed; once the
// monitor sees finality the pair becomes paid-confirmed.
type Payment struct {
	ID            string          `json:"id"`
	OrderID       string          `json:"order_id"`
	WalletAddress string          `json:"wallet_address"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	Status        Status          `json:"status"`
	TxHash        string          `json:"tx_hash,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}
