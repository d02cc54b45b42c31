package postgres

import (
	"context"

	domain "github.com/Zhima-Mochi/minishop-checkout/internal/domain/payment"
)

type PaymentRepository struct{ c conn }

func (r *PaymentRepository) Insert(ctx context.Context, p *domain.Payment) error {
	err := r.c.q(ctx).Create(paymentToRow(p)).Error
	return translate(err, domain.ErrNotFound, domain.ErrConflict)
}

func (r *PaymentRepository) GetByOrderID(ctx context.Context, orderID string) (*domain.Payment, error) {
	return r.first(ctx, "order_id = ?", orderID)
}

func (r *PaymentRepository) GetByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*domain.Payment, error) {
	if gatewayOrderID == "" {
		return nil, domain.ErrNotFound
	}
	return r.first(ctx, "gateway_order_id = ?", gatewayOrderID)
}

func (r *PaymentRepository) GetByGatewayPaymentID(ctx context.Context, gatewayPaymentID string) (*domain.Payment, error) {
	if gatewayPaymentID == "" {
		return nil, domain.ErrNotFound
	}
	return r.first(ctx, "gateway_payment_id = ?", gatewayPaymentID)
}

func (r *PaymentRepository) first(ctx context.Context, where string, arg any) (*domain.Payment, error) {
	var row paymentRow
	if err := r.c.forUpdate(ctx).Where(where, arg).First(&row).Error; err != nil {
		return nil, translate(err, domain.ErrNotFound, domain.ErrConflict)
	}
	return row.toDomain(), nil
}

func (r *PaymentRepository) Update(ctx context.Context, p *domain.Payment) error {
	row := paymentToRow(p)
	res := r.c.q(ctx).Model(&paymentRow{}).Where("id = ?", p.ID).Updates(map[string]any{
		"amount":             row.Amount,
		"currency":           row.Currency,
		"status":             row.Status,
		"gateway_order_id":   row.GatewayOrderID,
		"gateway_payment_id": row.GatewayPaymentID,
		"signature":          row.Signature,
		"raw_payload":        row.RawPayload,
		"updated_at":         row.UpdatedAt,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
