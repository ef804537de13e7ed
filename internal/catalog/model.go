package catalog

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	ImageURL    string    `json:"image_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Variant is the purchasable unit. Inventory is only ever decremented through
// the guarded update inside the order transaction.
type Variant struct {
	ID        string          `json:"id"`
	ProductID string          `json:"product_id"`
	Title     string          `json:"title"`
	Price     decimal.Decimal `json:"price"`
	Inventory int             `json:"inventory"`
}

// InsufficientStockError names the offending product so the UI can prompt a
// quantity fix instead of showing a generic failure.
type InsufficientStockError struct {
	ProductID    string
	ProductTitle string
	Requested    int
	Available    int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %q: requested %d, available %d",
		e.ProductTitle, e.Requested, e.Available)
}
