package order

import (
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusConfirmed  Status = "confirmed"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
	StatusRefunded   Status = "refunded"
)

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

type FulfillmentStatus string

const (
	FulfillmentUnfulfilled FulfillmentStatus = "unfulfilled"
	FulfillmentPartial     FulfillmentStatus = "partial"
	FulfillmentFulfilled   FulfillmentStatus = "fulfilled"
)

// Order is the immutable record of a completed checkout intent. Status fields
// are the only thing that changes after creation; orders are never deleted
// (cancellation is a status transition).
type Order struct {
	ID                string            `json:"id"`
	Number            string            `json:"order_number"`
	UserID            string            `json:"user_id,omitempty"`
	Email             string            `json:"email"`
	Subtotal          decimal.Decimal   `json:"subtotal"`
	Tax               decimal.Decimal   `json:"tax"`
	Shipping          decimal.Decimal   `json:"shipping"`
	Total             decimal.Decimal   `json:"total"`
	Status            Status            `json:"status"`
	PaymentStatus     PaymentStatus     `json:"payment_status"`
	FulfillmentStatus FulfillmentStatus `json:"fulfillment_status"`
	ShippingAddressID string            `json:"shipping_address_id"`
	BillingAddressID  string            `json:"billing_address_id"`
	ShippingMethod    string            `json:"shipping_method"`
	PaymentMethod     string            `json:"payment_method"`
	PaymentRef        string            `json:"payment_ref,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

// Item snapshots a purchased line with denormalized titles so historical
// orders stay accurate when the catalog changes later.
type Item struct {
	ID           string          `json:"id"`
	OrderID      string          `json:"order_id"`
	ProductID    string          `json:"product_id"`
	VariantID    string          `json:"variant_id"`
	ProductTitle string          `json:"product_title"`
	VariantTitle string          `json:"variant_title"`
	ImageURL     string          `json:"image_url,omitempty"`
	Quantity     int             `json:"quantity"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
}

// Address is a frozen snapshot taken at checkout, independent of any saved
// address book entry.
type Address struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
	Phone      string `json:"phone,omitempty"`
}
