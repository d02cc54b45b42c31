package memory

import (
	"context"
	"fmt"

	domain "github.com/Zhima-Mochi/minishop-checkout/internal/domain/payment"
)

type PaymentRepository struct{ a access }

func (r *PaymentRepository) Insert(ctx context.Context, p *domain.Payment) error {
	_ = ctx
	if p == nil || p.ID == "" {
		return fmt.Errorf("payment repository: id is required")
	}
	return r.a.write(func(s *state) error {
		if _, exists := s.payments[p.ID]; exists {
			return domain.ErrConflict
		}
		if _, exists := s.payByOrder[p.OrderID]; exists {
			return domain.ErrConflict
		}
		s.payments[p.ID] = p.Clone()
		s.payByOrder[p.OrderID] = p.ID
		index(s, p)
		return nil
	})
}

func (r *PaymentRepository) Update(ctx context.Context, p *domain.Payment) error {
	_ = ctx
	if p == nil {
		return nil
	}
	return r.a.write(func(s *state) error {
		current, ok := s.payments[p.ID]
		if !ok {
			return domain.ErrNotFound
		}
		if current.GatewayOrderID != "" {
			delete(s.payByGwOrd, current.GatewayOrderID)
		}
		if current.GatewayPaymentID != "" {
			delete(s.payByGwPay, current.GatewayPaymentID)
		}
		s.payments[p.ID] = p.Clone()
		index(s, p)
		return nil
	})
}

func index(s *state, p *domain.Payment) {
	if p.GatewayOrderID != "" {
		s.payByGwOrd[p.GatewayOrderID] = p.ID
	}
	if p.GatewayPaymentID != "" {
		s.payByGwPay[p.GatewayPaymentID] = p.ID
	}
}

func (r *PaymentRepository) GetByOrderID(ctx context.Context, orderID string) (*domain.Payment, error) {
	return r.lookup(ctx, func(s *state) map[string]string { return s.payByOrder }, orderID)
}

func (r *PaymentRepository) GetByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*domain.Payment, error) {
	return r.lookup(ctx, func(s *state) map[string]string { return s.payByGwOrd }, gatewayOrderID)
}

func (r *PaymentRepository) GetByGatewayPaymentID(ctx context.Context, gatewayPaymentID string) (*domain.Payment, error) {
	return r.lookup(ctx, func(s *state) map[string]string { return s.payByGwPay }, gatewayPaymentID)
}

func (r *PaymentRepository) lookup(ctx context.Context, idx func(*state) map[string]string, key string) (*domain.Payment, error) {
	_ = ctx
	var out *domain.Payment
	err := r.a.read(func(s *state) error {
		id, ok := idx(s)[key]
		if !ok || key == "" {
			return domain.ErrNotFound
		}
		p, ok := s.payments[id]
		if !ok {
			return domain.ErrNotFound
		}
		out = p.Clone()
		return nil
	})
	return out, err
}
