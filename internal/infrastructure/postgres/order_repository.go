package postgres

import (
	"context"

	domain "github.com/Zhima-Mochi/minishop-checkout/internal/domain/order"
)

type OrderRepository struct{ c conn }

func (r *OrderRepository) Insert(ctx context.Context, o *domain.Order) error {
	err := r.c.q(ctx).Create(orderToRow(o)).Error
	return translate(err, domain.ErrNotFound, domain.ErrConflict)
}

// Get locks the order row inside a transaction so status changes on one order serialize.
func (r *OrderRepository) Get(ctx context.Context, id string) (*domain.Order, error) {
	var row orderRow
	if err := r.c.forUpdate(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, translate(err, domain.ErrNotFound, domain.ErrConflict)
	}
	return row.toDomain(), nil
}

func (r *OrderRepository) Update(ctx context.Context, o *domain.Order) error {
	row := orderToRow(o)
	res := r.c.q(ctx).Model(&orderRow{}).Where("id = ?", o.ID).Updates(map[string]any{
		"status":           row.Status,
		"payment_status":   row.PaymentStatus,
		"gateway_order_id": row.GatewayOrderID,
		"updated_at":       row.UpdatedAt,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *OrderRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Order, error) {
	var rows []orderRow
	if err := r.c.q(ctx).Where("user_id = ?", userID).Order("created_at DESC, id DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return ordersToDomain(rows), nil
}

func (r *OrderRepository) ListForAdmin(ctx context.Context) ([]*domain.Order, error) {
	var rows []orderRow
	err := r.c.q(ctx).
		Where("payment_method = ? OR payment_status = ?", string(domain.MethodCOD), string(domain.PaymentPaid)).
		Order("created_at DESC, id DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return ordersToDomain(rows), nil
}

func ordersToDomain(rows []orderRow) []*domain.Order {
	out := make([]*domain.Order, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toDomain())
	}
	return out
}
