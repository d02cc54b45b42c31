package postgres

import (
	"context"
	"time"

	"gorm.io/gorm"

	domain "github.com/Zhima-Mochi/minishop-checkout/internal/domain/variant"
)

type VariantRepository struct{ c conn }

func (r *VariantRepository) Get(ctx context.Context, id string) (*domain.Variant, error) {
	var row variantRow
	if err := r.c.q(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, translate(err, domain.ErrNotFound, domain.ErrConflict)
	}
	return row.toDomain(), nil
}

func (r *VariantRepository) FindByIDs(ctx context.Context, ids []string) ([]*domain.Variant, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []variantRow
	// Ordered by id so concurrent lockers acquire rows in the same order.
	if err := r.c.forUpdate(ctx).Where("id IN ?", ids).Order("id").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*domain.Variant, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toDomain())
	}
	return out, nil
}

func (r *VariantRepository) ListByProduct(ctx context.Context, productID string) ([]*domain.Variant, error) {
	var rows []variantRow
	if err := r.c.q(ctx).Where("product_id = ?", productID).Order("size, color").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*domain.Variant, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toDomain())
	}
	return out, nil
}

func (r *VariantRepository) Insert(ctx context.Context, v *domain.Variant) error {
	err := r.c.q(ctx).Create(variantToRow(v)).Error
	return translate(err, domain.ErrNotFound, domain.ErrConflict)
}

func (r *VariantRepository) Update(ctx context.Context, v *domain.Variant) error {
	row := variantToRow(v)
	row.UpdatedAt = time.Now().UTC()
	res := r.c.q(ctx).Model(&variantRow{}).Where("id = ?", v.ID).Updates(map[string]any{
		"size":         row.Size,
		"color":        row.Color,
		"sku":          row.SKU,
		"price":        row.Price,
		"stock":        row.Stock,
		"availability": row.Availability,
		"updated_at":   row.UpdatedAt,
	})
	if res.Error != nil {
		return translate(res.Error, domain.ErrNotFound, domain.ErrConflict)
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *VariantRepository) Delete(ctx context.Context, id string) error {
	res := r.c.q(ctx).Delete(&variantRow{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// DecrementStock relies on the WHERE clause, not on the earlier read, to refuse overselling.
// SET expressions see the pre-update stock value.
func (r *VariantRepository) DecrementStock(ctx context.Context, id string, quantity int) (*domain.Variant, error) {
	if quantity <= 0 {
		return nil, domain.ErrInvalidQuantity
	}
	res := r.c.q(ctx).Model(&variantRow{}).
		Where("id = ? AND stock >= ?", id, quantity).
		Updates(map[string]any{
			"stock": gorm.Expr("stock - ?", quantity),
			"availability": gorm.Expr("CASE WHEN stock - ? > 0 THEN ? ELSE ? END",
				quantity, string(domain.InStock), string(domain.OutOfStock)),
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		current, err := r.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		return nil, &domain.InsufficientStockError{
			VariantID: current.ID,
			SKU:       current.SKU,
			Requested: quantity,
			Available: current.Stock,
		}
	}
	return r.Get(ctx, id)
}

func (r *VariantRepository) IncrementStock(ctx context.Context, id string, quantity int) (*domain.Variant, error) {
	if quantity <= 0 {
		return nil, domain.ErrInvalidQuantity
	}
	res := r.c.q(ctx).Model(&variantRow{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"stock": gorm.Expr("stock + ?", quantity),
			"availability": gorm.Expr("CASE WHEN stock + ? > 0 THEN ? ELSE ? END",
				quantity, string(domain.InStock), string(domain.OutOfStock)),
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, domain.ErrNotFound
	}
	return r.Get(ctx, id)
}
