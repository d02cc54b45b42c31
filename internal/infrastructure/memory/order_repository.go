package memory

import (
	"context"
	"fmt"
	"sort"

	domain "github.com/Zhima-Mochi/minishop-checkout/internal/domain/order"
)

type OrderRepository struct{ a access }

func (r *OrderRepository) Insert(ctx context.Context, o *domain.Order) error {
	_ = ctx
	if o == nil || o.ID == "" {
		return fmt.Errorf("order repository: id is required")
	}
	return r.a.write(func(s *state) error {
		if _, exists := s.orders[o.ID]; exists {
			return domain.ErrConflict
		}
		s.orders[o.ID] = o.Clone()
		s.orderIDs = append(s.orderIDs, o.ID)
		return nil
	})
}

func (r *OrderRepository) Get(ctx context.Context, id string) (*domain.Order, error) {
	_ = ctx
	var out *domain.Order
	err := r.a.read(func(s *state) error {
		o, ok := s.orders[id]
		if !ok {
			return domain.ErrNotFound
		}
		out = o.Clone()
		return nil
	})
	return out, err
}

func (r *OrderRepository) Update(ctx context.Context, o *domain.Order) error {
	_ = ctx
	if o == nil {
		return nil
	}
	return r.a.write(func(s *state) error {
		if _, exists := s.orders[o.ID]; !exists {
			return domain.ErrNotFound
		}
		s.orders[o.ID] = o.Clone()
		return nil
	})
}

func (r *OrderRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Order, error) {
	return r.list(ctx, func(o *domain.Order) bool { return o.UserID == userID })
}

func (r *OrderRepository) ListForAdmin(ctx context.Context) ([]*domain.Order, error) {
	return r.list(ctx, (*domain.Order).VisibleToAdmin)
}

// list returns matches newest first; insertion order breaks CreatedAt ties.
func (r *OrderRepository) list(ctx context.Context, keep func(*domain.Order) bool) ([]*domain.Order, error) {
	_ = ctx
	type ranked struct {
		o   *domain.Order
		seq int
	}
	var matches []ranked
	err := r.a.read(func(s *state) error {
		for i, id := range s.orderIDs {
			if o, ok := s.orders[id]; ok && keep(o) {
				matches = append(matches, ranked{o: o.Clone(), seq: i})
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if !a.o.CreatedAt.Equal(b.o.CreatedAt) {
			return a.o.CreatedAt.After(b.o.CreatedAt)
		}
		return a.seq > b.seq
	})
	out := make([]*domain.Order, 0, len(matches))
	for _, m := range matches {
		out = append(out, m.o)
	}
	return out, nil
}
