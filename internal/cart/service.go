package cart

import (
	"context"
	"fmt"

	"github.com/MikeMC777/tienda-ecom/internal/catalog"
)

// Service enforces the cart business rules on top of the repository: variant
// lookups, price snapshots and inventory checks. Mutations are
// last-writer-wins; a cart is effectively single-owner so no locking is done.
type Service struct {
	carts   Repository
	catalog catalog.Repository
	cache   *Cache // optional
}

func NewService(carts Repository, cat catalog.Repository, cache *Cache) *Service {
	return &Service{carts: carts, catalog: cat, cache: cache}
}

// Get returns the owner's cart, empty (not an error) when nothing was added yet.
func (s *Service) Get(ctx context.Context, owner Owner) (*Cart, error) {
	if s.cache != nil {
		if c, ok := s.cache.Get(ctx, owner); ok {
			return c, nil
		}
	}

	c, err := s.carts.GetByOwner(ctx, owner)
	if err == ErrNotFound {
		c = &Cart{UserID: owner.UserID, SessionID: owner.SessionID, Items: []Item{}}
	} else if err != nil {
		return nil, fmt.Errorf("carts.GetByOwner: %w", err)
	}
	if c.Items == nil {
		c.Items = []Item{}
	}

	if s.cache != nil {
		s.cache.Set(ctx, owner, c)
	}
	return c, nil
}

func (s *Service) AddItem(ctx context.Context, owner Owner, productID, variantID string, quantity int) error {
	if quantity < 1 {
		return fmt.Errorf("quantity must be at least 1")
	}

	v, err := s.catalog.GetVariant(ctx, variantID)
	if err != nil {
		return err
	}
	if v.ProductID != productID {
		return catalog.ErrNotFound
	}
	if quantity > v.Inventory {
		return s.stockError(ctx, v, quantity)
	}

	err = s.carts.AddItem(ctx, owner, Item{
		ProductID: productID,
		VariantID: variantID,
		Quantity:  quantity,
		UnitPrice: v.Price, // snapshot at add-time
	})
	if err != nil {
		return fmt.Errorf("carts.AddItem: %w", err)
	}
	s.invalidate(ctx, owner)
	return nil
}

func (s *Service) UpdateQuantity(ctx context.Context, owner Owner, itemID string, quantity int) error {
	if quantity < 0 {
		return fmt.Errorf("quantity must not be negative")
	}

	if quantity > 0 {
		c, err := s.carts.GetByOwner(ctx, owner)
		if err != nil {
			return err
		}
		var line *Item
		for i := range c.Items {
			if c.Items[i].ID == itemID {
				line = &c.Items[i]
				break
			}
		}
		if line == nil {
			return ErrItemNotFound
		}
		v, err := s.catalog.GetVariant(ctx, line.VariantID)
		if err != nil {
			return err
		}
		if quantity > v.Inventory {
			return s.stockError(ctx, v, quantity)
		}
	}

	if err := s.carts.SetItemQuantity(ctx, owner, itemID, quantity); err != nil {
		return err
	}
	s.invalidate(ctx, owner)
	return nil
}

func (s *Service) RemoveItem(ctx context.Context, owner Owner, itemID string) error {
	if err := s.carts.RemoveItem(ctx, owner, itemID); err != nil {
		return err
	}
	s.invalidate(ctx, owner)
	return nil
}

func (s *Service) Clear(ctx context.Context, owner Owner) error {
	if err := s.carts.Clear(ctx, owner); err != nil {
		return err
	}
	s.invalidate(ctx, owner)
	return nil
}

// InvalidateCache drops the cached view after out-of-band cart mutations,
// such as the clear performed inside order finalization.
func (s *Service) InvalidateCache(ctx context.Context, owner Owner) {
	s.invalidate(ctx, owner)
}

func (s *Service) invalidate(ctx context.Context, owner Owner) {
	if s.cache != nil {
		s.cache.Invalidate(ctx, owner)
	}
}

func (s *Service) stockError(ctx context.Context, v *catalog.Variant, requested int) error {
	title := v.Title
	if p, err := s.catalog.GetByID(ctx, v.ProductID); err == nil {
		title = p.Title
	}
	return &catalog.InsufficientStockError{
		ProductID:    v.ProductID,
		ProductTitle: title,
		Requested:    requested,
		Available:    v.Inventory,
	}
}
