package memory

import (
	"context"

	domain "github.com/Zhima-Mochi/minishop-checkout/internal/domain/product"
)

// ProductRepository reads the catalog records loaded with Store.SeedProducts.
type ProductRepository struct{ a access }

func (r *ProductRepository) Get(ctx context.Context, id string) (*domain.Product, error) {
	_ = ctx
	var out *domain.Product
	err := r.a.read(func(s *state) error {
		p, ok := s.products[id]
		if !ok {
			return domain.ErrNotFound
		}
		out = p.Clone()
		return nil
	})
	return out, err
}

func (r *ProductRepository) FindByIDs(ctx context.Context, ids []string) ([]*domain.Product, error) {
	_ = ctx
	var out []*domain.Product
	err := r.a.read(func(s *state) error {
		for _, id := range ids {
			if p, ok := s.products[id]; ok {
				out = append(out, p.Clone())
			}
		}
		return nil
	})
	return out, err
}
