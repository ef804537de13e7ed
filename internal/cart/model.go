package cart

import (
	"time"

	"github.com/shopspring/decimal"
)

// Owner identifies who a cart belongs to: an authenticated user or an
// anonymous browser session. Exactly one of the two fields is set.
type Owner struct {
	UserID    string
	SessionID string
}

func (o Owner) Empty() bool { return o.UserID == "" && o.SessionID == "" }

// Key is the cache key component for this owner.
func (o Owner) Key() string {
	if o.UserID != "" {
		return "u:" + o.UserID
	}
	return "s:" + o.SessionID
}

type Cart struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id,omitempty"`
	SessionID string    `json:"session_id,omitempty"`
	Items     []Item    `json:"items"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Item is a cart line. UnitPrice is snapshotted when the line is added and is
// not re-derived from the catalog afterwards.
type Item struct {
	ID        string          `json:"id"`
	CartID    string          `json:"cart_id"`
	ProductID string          `json:"product_id"`
	VariantID string          `json:"variant_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	AddedAt   time.Time       `json:"added_at"`
}

// Subtotal is the sum of unit price times quantity over all lines.
func (c *Cart) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, it := range c.Items {
		total = total.Add(it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return total
}
