package postgres

import (
	"context"

	domain "github.com/Zhima-Mochi/minishop-checkout/internal/domain/product"
)

// ProductRepository reads the catalog table maintained by the catalog service.
type ProductRepository struct{ c conn }

func (r *ProductRepository) Get(ctx context.Context, id string) (*domain.Product, error) {
	var row productRow
	if err := r.c.q(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, translate(err, domain.ErrNotFound, domain.ErrNotFound)
	}
	return row.toDomain(), nil
}

func (r *ProductRepository) FindByIDs(ctx context.Context, ids []string) ([]*domain.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []productRow
	if err := r.c.q(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*domain.Product, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toDomain())
	}
	return out, nil
}
