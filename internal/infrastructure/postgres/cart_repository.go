package postgres

import (
	"context"
	"time"

	"gorm.io/gorm/clause"

	domain "github.com/Zhima-Mochi/minishop-checkout/internal/domain/cart"
)

type CartRepository struct{ c conn }

func (r *CartRepository) Get(ctx context.Context, userID string) (*domain.Cart, error) {
	var row cartRow
	if err := r.c.forUpdate(ctx).First(&row, "user_id = ?", userID).Error; err != nil {
		return nil, translate(err, domain.ErrNotFound, domain.ErrNotFound)
	}
	return row.toDomain(), nil
}

func (r *CartRepository) Save(ctx context.Context, c *domain.Cart) error {
	return r.c.q(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"items", "updated_at"}),
	}).Create(cartToRow(c)).Error
}

func (r *CartRepository) Clear(ctx context.Context, userID string) error {
	return r.c.q(ctx).Model(&cartRow{}).Where("user_id = ?", userID).Updates(map[string]any{
		"items":      "[]",
		"updated_at": time.Now().UTC(),
	}).Error
}
