package order

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MikeMC777/tienda-ecom/internal/cart"
	"github.com/MikeMC777/tienda-ecom/internal/catalog"
	"github.com/MikeMC777/tienda-ecom/internal/pricing"
)

var (
	ErrEmptyCart = errors.New("cart is empty, nothing to checkout")
)

// CheckoutInput carries everything the UI collects before finalization.
type CheckoutInput struct {
	Owner           cart.Owner
	Email           string
	ShippingAddress Address
	BillingAddress  Address
	ShippingMethod  string
	PaymentMethod   string
}

// Finalizer turns a cart into an order as one all-or-nothing unit of work:
// validate, verify inventory, price, then persist atomically through the
// repository transaction.
type Finalizer struct {
	orders  Repository
	carts   cart.Repository
	catalog catalog.Repository
	taxRate float64
}

func NewFinalizer(orders Repository, carts cart.Repository, cat catalog.Repository, taxRate float64) *Finalizer {
	if taxRate <= 0 {
		taxRate = pricing.DefaultTaxRate
	}
	return &Finalizer{orders: orders, carts: carts, catalog: cat, taxRate: taxRate}
}

func (f *Finalizer) Finalize(ctx context.Context, in CheckoutInput) (*Order, []Item, error) {
	if !pricing.ValidMethod(in.ShippingMethod) {
		return nil, nil, fmt.Errorf("invalid shipping method %q", in.ShippingMethod)
	}

	// Step 1: load the cart for the acting identity.
	c, err := f.carts.GetByOwner(ctx, in.Owner)
	if err == cart.ErrNotFound {
		return nil, nil, ErrEmptyCart
	}
	if err != nil {
		return nil, nil, fmt.Errorf("carts.GetByOwner: %w", err)
	}
	if len(c.Items) == 0 {
		return nil, nil, ErrEmptyCart
	}

	// Step 2: advisory inventory verification against current state, plus the
	// catalog reads needed to denormalize titles into order items. The
	// authoritative check is the guarded decrement inside the transaction.
	items := make([]Item, 0, len(c.Items))
	for _, line := range c.Items {
		v, err := f.catalog.GetVariant(ctx, line.VariantID)
		if err != nil {
			return nil, nil, err
		}
		p, err := f.catalog.GetByID(ctx, v.ProductID)
		if err != nil {
			return nil, nil, err
		}
		if v.Inventory < line.Quantity {
			return nil, nil, &catalog.InsufficientStockError{
				ProductID:    p.ID,
				ProductTitle: p.Title,
				Requested:    line.Quantity,
				Available:    v.Inventory,
			}
		}
		items = append(items, Item{
			ProductID:    p.ID,
			VariantID:    v.ID,
			ProductTitle: p.Title,
			VariantTitle: v.Title,
			ImageURL:     p.ImageURL,
			Quantity:     line.Quantity,
			UnitPrice:    line.UnitPrice,
		})
	}

	// Step 3: price from the cart's snapshotted line prices.
	subtotal := c.Subtotal().Round(2)
	tax := pricing.Tax(subtotal, f.taxRate)
	shipping, err := pricing.Shipping(subtotal, in.ShippingMethod)
	if err != nil {
		return nil, nil, err
	}
	total := decimal.Sum(subtotal, tax, shipping).Round(2)

	o := &Order{
		ID:                uuid.NewString(),
		Number:            NewNumber(),
		UserID:            in.Owner.UserID,
		Email:             in.Email,
		Subtotal:          subtotal,
		Tax:               tax,
		Shipping:          shipping,
		Total:             total,
		Status:            StatusPending,
		PaymentStatus:     PaymentPending,
		FulfillmentStatus: FulfillmentUnfulfilled,
		ShippingMethod:    in.ShippingMethod,
		PaymentMethod:     in.PaymentMethod,
	}

	// Step 4: persist atomically. The repository transaction covers address
	// snapshots, order, items, guarded decrements and the cart clear.
	shipTo := in.ShippingAddress
	billTo := in.BillingAddress
	if err := f.orders.Create(ctx, o, items, &shipTo, &billTo, c.ID); err != nil {
		return nil, nil, err
	}

	log.Printf("[order] finalized %s (%s): %d items, total %s",
		o.Number, o.ID, len(items), o.Total.StringFixed(2))
	return o, items, nil
}
