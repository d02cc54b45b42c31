package variant

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound          = errors.New("variant: not found")
	ErrConflict          = errors.New("variant: duplicate sku or size/color")
	ErrInvalidQuantity   = errors.New("variant: quantity must be greater than zero")
	ErrInsufficientStock = errors.New("variant: insufficient stock")
	ErrInvalid           = errors.New("variant: invalid")
)

// DefaultSize names the implicit variant provisioned for products without explicit variants.
const DefaultSize = "One Size"

type Availability string

const (
	InStock    Availability = "InStock"
	OutOfStock Availability = "OutOfStock"
)

// AvailabilityFor derives the availability flag from a stock count.
func AvailabilityFor(stock int) Availability {
	if stock > 0 {
		return InStock
	}
	return OutOfStock
}

// InsufficientStockError names the variant that could not cover a requested quantity.
type InsufficientStockError struct {
	VariantID string
	SKU       string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	name := e.SKU
	if name == "" {
		name = e.VariantID
	}
	return fmt.Sprintf("variant: insufficient stock for %s: requested %d, available %d", name, e.Requested, e.Available)
}

func (e *InsufficientStockError) Is(target error) bool { return target == ErrInsufficientStock }

type Variant struct {
	ID           string
	ProductID    string
	Size         string
	Color        string
	SKU          string
	Price        decimal.Decimal
	Stock        int
	Availability Availability
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NormalizeSKU trims and upper-cases a SKU; uniqueness is checked on the normalised form.
func NormalizeSKU(sku string) string {
	return strings.ToUpper(strings.TrimSpace(sku))
}

func New(id, productID, size, color, sku string, price decimal.Decimal, stock int) (*Variant, error) {
	v := &Variant{
		ID:        id,
		ProductID: productID,
		Size:      strings.TrimSpace(size),
		Color:     strings.TrimSpace(color),
		SKU:       NormalizeSKU(sku),
		Price:     price,
		Stock:     stock,
	}
	if err := v.Validate(); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	v.CreatedAt = now
	v.UpdatedAt = now
	v.Availability = AvailabilityFor(v.Stock)
	return v, nil
}

func (v *Variant) Validate() error {
	switch {
	case v.ProductID == "":
		return fmt.Errorf("%w: product id is required", ErrInvalid)
	case v.Size == "":
		return fmt.Errorf("%w: size is required", ErrInvalid)
	case v.SKU == "":
		return fmt.Errorf("%w: sku is required", ErrInvalid)
	case v.Price.IsNegative():
		return fmt.Errorf("%w: price must be zero or greater", ErrInvalid)
	case v.Stock < 0:
		return fmt.Errorf("%w: stock must be zero or greater", ErrInvalid)
	}
	return nil
}

// Deduct removes quantity from stock, refusing to go below zero.
func (v *Variant) Deduct(quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	if quantity > v.Stock {
		return &InsufficientStockError{VariantID: v.ID, SKU: v.SKU, Requested: quantity, Available: v.Stock}
	}
	v.SetStock(v.Stock - quantity)
	return nil
}

// Restock returns quantity to stock.
func (v *Variant) Restock(quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	v.SetStock(v.Stock + quantity)
	return nil
}

// SetStock is the only way stock changes; availability follows it.
func (v *Variant) SetStock(stock int) {
	v.Stock = stock
	v.Availability = AvailabilityFor(stock)
	v.touch()
}

// CanCover reports whether the variant has at least quantity units.
func (v *Variant) CanCover(quantity int) bool {
	return v != nil && quantity > 0 && v.Stock >= quantity
}

func (v *Variant) Clone() *Variant {
	if v == nil {
		return nil
	}
	clone := *v
	return &clone
}

func (v *Variant) touch() {
	v.UpdatedAt = time.Now().UTC()
}
