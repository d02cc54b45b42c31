package cart

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound        = errors.New("cart: not found")
	ErrItemNotFound    = errors.New("cart: item not found")
	ErrInvalidQuantity = errors.New("cart: quantity must be greater than zero")
)

type Item struct {
	ProductID     string
	VariantID     string
	Quantity      int
	PriceSnapshot decimal.Decimal
}

type Cart struct {
	UserID    string
	Items     []Item
	CreatedAt time.Time
	UpdatedAt time.Time
}

func New(userID string) *Cart {
	now := time.Now().UTC()
	return &Cart{UserID: userID, Items: []Item{}, CreatedAt: now, UpdatedAt: now}
}

// Find returns the item for variantID, if present.
func (c *Cart) Find(variantID string) (Item, bool) {
	for _, it := range c.Items {
		if it.VariantID == variantID {
			return it, true
		}
	}
	return Item{}, false
}

// Add merges into the existing item for the variant (quantities sum, snapshot refreshed) or appends.
func (c *Cart) Add(productID, variantID string, quantity int, price decimal.Decimal) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	for i := range c.Items {
		if c.Items[i].VariantID == variantID {
			c.Items[i].Quantity += quantity
			c.Items[i].PriceSnapshot = price
			c.touch()
			return nil
		}
	}
	c.Items = append(c.Items, Item{
		ProductID:     productID,
		VariantID:     variantID,
		Quantity:      quantity,
		PriceSnapshot: price,
	})
	c.touch()
	return nil
}

// SetQuantity replaces the quantity of an existing item; quantity <= 0 removes it.
func (c *Cart) SetQuantity(variantID string, quantity int, price decimal.Decimal) error {
	for i := range c.Items {
		if c.Items[i].VariantID != variantID {
			continue
		}
		if quantity <= 0 {
			c.Remove(variantID)
			return nil
		}
		c.Items[i].Quantity = quantity
		c.Items[i].PriceSnapshot = price
		c.touch()
		return nil
	}
	return ErrItemNotFound
}

// Remove drops the item for variantID; absent items are ignored.
func (c *Cart) Remove(variantID string) {
	out := c.Items[:0]
	for _, it := range c.Items {
		if it.VariantID != variantID {
			out = append(out, it)
		}
	}
	c.Items = out
	c.touch()
}

func (c *Cart) Clear() {
	c.Items = []Item{}
	c.touch()
}

func (c *Cart) Clone() *Cart {
	if c == nil {
		return nil
	}
	clone := *c
	clone.Items = append([]Item(nil), c.Items...)
	if clone.Items == nil {
		clone.Items = []Item{}
	}
	return &clone
}

func (c *Cart) touch() {
	c.UpdatedAt = time.Now().UTC()
}

type Repository interface {
	Get(ctx context.Context, userID string) (*Cart, error)
	// Save upserts the cart for its user.
	Save(ctx context.Context, c *Cart) error
	// Clear empties the user's cart without deleting it; a missing cart is not an error.
	Clear(ctx context.Context, userID string) error
}
