package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"

	domain "github.com/Zhima-Mochi/minishop-checkout/internal/domain/variant"
)

type VariantRepository struct{ a access }

func tupleKey(v *domain.Variant) string {
	return v.ProductID + "\x00" + strings.ToLower(v.Size) + "\x00" + strings.ToLower(v.Color)
}

func (r *VariantRepository) Get(ctx context.Context, id string) (*domain.Variant, error) {
	_ = ctx
	var out *domain.Variant
	err := r.a.read(func(s *state) error {
		v, ok := s.variants[id]
		if !ok {
			return domain.ErrNotFound
		}
		out = v.Clone()
		return nil
	})
	return out, err
}

func (r *VariantRepository) FindByIDs(ctx context.Context, ids []string) ([]*domain.Variant, error) {
	_ = ctx
	var out []*domain.Variant
	err := r.a.read(func(s *state) error {
		seen := make(map[string]struct{}, len(ids))
		for _, id := range ids {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			if v, ok := s.variants[id]; ok {
				out = append(out, v.Clone())
			}
		}
		return nil
	})
	return out, err
}

func (r *VariantRepository) ListByProduct(ctx context.Context, productID string) ([]*domain.Variant, error) {
	_ = ctx
	var out []*domain.Variant
	err := r.a.read(func(s *state) error {
		for _, v := range s.variants {
			if v.ProductID == productID {
				out = append(out, v.Clone())
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].Size != out[j].Size {
			return out[i].Size < out[j].Size
		}
		return out[i].Color < out[j].Color
	})
	return out, err
}

func (r *VariantRepository) Insert(ctx context.Context, v *domain.Variant) error {
	_ = ctx
	if v == nil || v.ID == "" {
		return fmt.Errorf("variant repository: id is required")
	}
	return r.a.write(func(s *state) error {
		if _, exists := s.variants[v.ID]; exists {
			return domain.ErrConflict
		}
		sku := domain.NormalizeSKU(v.SKU)
		if _, taken := s.skuIndex[sku]; taken {
			return fmt.Errorf("%w: sku %s", domain.ErrConflict, sku)
		}
		if _, taken := s.tupleIndex[tupleKey(v)]; taken {
			return fmt.Errorf("%w: %s/%s", domain.ErrConflict, v.Size, v.Color)
		}
		stored := v.Clone()
		stored.SKU = sku
		stored.Availability = domain.AvailabilityFor(stored.Stock)
		s.variants[stored.ID] = stored
		s.skuIndex[sku] = stored.ID
		s.tupleIndex[tupleKey(stored)] = stored.ID
		return nil
	})
}

func (r *VariantRepository) Update(ctx context.Context, v *domain.Variant) error {
	_ = ctx
	if v == nil {
		return nil
	}
	return r.a.write(func(s *state) error {
		current, ok := s.variants[v.ID]
		if !ok {
			return domain.ErrNotFound
		}
		stored := v.Clone()
		stored.SKU = domain.NormalizeSKU(stored.SKU)
		stored.Availability = domain.AvailabilityFor(stored.Stock)
		if owner, taken := s.skuIndex[stored.SKU]; taken && owner != stored.ID {
			return fmt.Errorf("%w: sku %s", domain.ErrConflict, stored.SKU)
		}
		if owner, taken := s.tupleIndex[tupleKey(stored)]; taken && owner != stored.ID {
			return fmt.Errorf("%w: %s/%s", domain.ErrConflict, stored.Size, stored.Color)
		}
		delete(s.skuIndex, current.SKU)
		delete(s.tupleIndex, tupleKey(current))
		s.variants[stored.ID] = stored
		s.skuIndex[stored.SKU] = stored.ID
		s.tupleIndex[tupleKey(stored)] = stored.ID
		return nil
	})
}

func (r *VariantRepository) Delete(ctx context.Context, id string) error {
	_ = ctx
	return r.a.write(func(s *state) error {
		current, ok := s.variants[id]
		if !ok {
			return domain.ErrNotFound
		}
		delete(s.skuIndex, current.SKU)
		delete(s.tupleIndex, tupleKey(current))
		delete(s.variants, id)
		return nil
	})
}

func (r *VariantRepository) DecrementStock(ctx context.Context, id string, quantity int) (*domain.Variant, error) {
	_ = ctx
	var out *domain.Variant
	err := r.a.write(func(s *state) error {
		current, ok := s.variants[id]
		if !ok {
			return domain.ErrNotFound
		}
		next := current.Clone()
		if err := next.Deduct(quantity); err != nil {
			return err
		}
		s.variants[id] = next
		out = next.Clone()
		return nil
	})
	return out, err
}

func (r *VariantRepository) IncrementStock(ctx context.Context, id string, quantity int) (*domain.Variant, error) {
	_ = ctx
	var out *domain.Variant
	err := r.a.write(func(s *state) error {
		current, ok := s.variants[id]
		if !ok {
			return domain.ErrNotFound
		}
		next := current.Clone()
		if err := next.Restock(quantity); err != nil {
			return err
		}
		s.variants[id] = next
		out = next.Clone()
		return nil
	})
	return out, err
}
