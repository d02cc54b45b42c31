package product

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

var ErrNotFound = errors.New("product: not found")

type Status string

const (
	StatusActive   Status = "Active"
	StatusInactive Status = "Inactive"
)

// Product is the slice of the catalog record the checkout core reads.
type Product struct {
	ID     string
	Title  string
	Brand  string
	Price  decimal.Decimal
	Stock  int
	Status Status
}

func (p *Product) Clone() *Product {
	if p == nil {
		return nil
	}
	clone := *p
	return &clone
}

type Repository interface {
	Get(ctx context.Context, id string) (*Product, error)
	FindByIDs(ctx context.Context, ids []string) ([]*Product, error)
}
