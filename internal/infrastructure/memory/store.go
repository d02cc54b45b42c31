// Package memory is the in-process Store. A unit of work runs against a private copy of
// the state while holding the store lock; the copy replaces the live state only on success.
package memory

import (
	"context"
	"sync"

	"github.com/Zhima-Mochi/minishop-checkout/internal/application"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/cart"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/order"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/payment"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/product"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/variant"
)

// state is copy-on-write: entities are never mutated once stored, so copying the maps
// is enough to isolate a transaction.
type state struct {
	variants   map[string]*variant.Variant
	skuIndex   map[string]string
	tupleIndex map[string]string

	carts map[string]*cart.Cart

	orders     map[string]*order.Order
	orderIDs   []string
	payments   map[string]*payment.Payment
	payByOrder map[string]string
	payByGwOrd map[string]string
	payByGwPay map[string]string

	products map[string]*product.Product
}

func newState() *state {
	return &state{
		variants:   map[string]*variant.Variant{},
		skuIndex:   map[string]string{},
		tupleIndex: map[string]string{},
		carts:      map[string]*cart.Cart{},
		orders:     map[string]*order.Order{},
		payments:   map[string]*payment.Payment{},
		payByOrder: map[string]string{},
		payByGwOrd: map[string]string{},
		payByGwPay: map[string]string{},
		products:   map[string]*product.Product{},
	}
}

func (s *state) copy() *state {
	return &state{
		variants:   copyMap(s.variants),
		skuIndex:   copyMap(s.skuIndex),
		tupleIndex: copyMap(s.tupleIndex),
		carts:      copyMap(s.carts),
		orders:     copyMap(s.orders),
		orderIDs:   append([]string(nil), s.orderIDs...),
		payments:   copyMap(s.payments),
		payByOrder: copyMap(s.payByOrder),
		payByGwOrd: copyMap(s.payByGwOrd),
		payByGwPay: copyMap(s.payByGwPay),
		products:   copyMap(s.products),
	}
}

func copyMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// access runs repository bodies against either the live state (under the store lock)
// or a transaction's private copy (the caller already holds the lock).
type access interface {
	read(fn func(s *state) error) error
	write(fn func(s *state) error) error
}

type Store struct {
	mu sync.RWMutex
	st *state
}

var _ application.Store = (*Store)(nil)

func NewStore() *Store {
	return &Store{st: newState()}
}

func (s *Store) read(fn func(*state) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(s.st)
}

func (s *Store) write(fn func(*state) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.st)
}

func (s *Store) Repositories() application.Repositories {
	return reposFor(s)
}

// Atomic serializes units of work. fn must only use the repositories it is given.
func (s *Store) Atomic(ctx context.Context, fn func(ctx context.Context, repos application.Repositories) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &txAccess{st: s.st.copy()}
	if err := fn(ctx, reposFor(tx)); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.st = tx.st
	return nil
}

type txAccess struct{ st *state }

func (t *txAccess) read(fn func(*state) error) error  { return fn(t.st) }
func (t *txAccess) write(fn func(*state) error) error { return fn(t.st) }

func reposFor(a access) application.Repositories {
	return application.Repositories{
		Variants: &VariantRepository{a: a},
		Carts:    &CartRepository{a: a},
		Orders:   &OrderRepository{a: a},
		Payments: &PaymentRepository{a: a},
		Products: &ProductRepository{a: a},
	}
}

// SeedProducts loads catalog records, which this service only reads.
func (s *Store) SeedProducts(ps ...*product.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range ps {
		s.st.products[p.ID] = p.Clone()
	}
}
