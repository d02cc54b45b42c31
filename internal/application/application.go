package application

import (
	"context"

	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/cart"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/order"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/payment"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/product"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/variant"
)

type UseCase[C any, R any] interface {
	Execute(ctx context.Context, cmd C) (R, error)
}

type IDGenerator interface {
	NewID() string
}

// Repositories is the set of repositories bound to one unit of work.
type Repositories struct {
	Variants variant.Repository
	Carts    cart.Repository
	Orders   order.Repository
	Payments payment.Repository
	Products product.Repository
}

// Store hands out repositories and runs units of work atomically.
type Store interface {
	// Repositories returns repositories that run outside any transaction.
	Repositories() Repositories
	// Atomic runs fn in one transaction; any returned error rolls every write back.
	Atomic(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
}
