package memory

import (
	"context"

	domain "github.com/Zhima-Mochi/minishop-checkout/internal/domain/cart"
)

type CartRepository struct{ a access }

func (r *CartRepository) Get(ctx context.Context, userID string) (*domain.Cart, error) {
	_ = ctx
	var out *domain.Cart
	err := r.a.read(func(s *state) error {
		c, ok := s.carts[userID]
		if !ok {
			return domain.ErrNotFound
		}
		out = c.Clone()
		return nil
	})
	return out, err
}

func (r *CartRepository) Save(ctx context.Context, c *domain.Cart) error {
	_ = ctx
	if c == nil {
		return nil
	}
	return r.a.write(func(s *state) error {
		s.carts[c.UserID] = c.Clone()
		return nil
	})
}

func (r *CartRepository) Clear(ctx context.Context, userID string) error {
	_ = ctx
	return r.a.write(func(s *state) error {
		c, ok := s.carts[userID]
		if !ok {
			return nil
		}
		next := c.Clone()
		next.Clear()
		s.carts[userID] = next
		return nil
	})
}
