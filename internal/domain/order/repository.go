package order

import "context"

type Repository interface {
	Insert(ctx context.Context, order *Order) error
	Get(ctx context.Context, id string) (*Order, error)
	Update(ctx context.Context, order *Order) error
	// ListByUser returns the user's orders, newest first.
	ListByUser(ctx context.Context, userID string) ([]*Order, error)
	// ListForAdmin returns cash orders and settled gateway orders, newest first.
	ListForAdmin(ctx context.Context) ([]*Order, error)
}
