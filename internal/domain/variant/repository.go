package variant

import "context"

type Repository interface {
	Get(ctx context.Context, id string) (*Variant, error)
	// FindByIDs returns the variants that exist among ids; inside a transaction the rows are locked.
	FindByIDs(ctx context.Context, ids []string) ([]*Variant, error)
	ListByProduct(ctx context.Context, productID string) ([]*Variant, error)
	Insert(ctx context.Context, v *Variant) error
	Update(ctx context.Context, v *Variant) error
	Delete(ctx context.Context, id string) error
	// DecrementStock subtracts quantity only if stock covers it and returns the updated variant.
	DecrementStock(ctx context.Context, id string, quantity int) (*Variant, error)
	IncrementStock(ctx context.Context, id string, quantity int) (*Variant, error)
}
