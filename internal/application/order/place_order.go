package order

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Zhima-Mochi/minishop-checkout/internal/application"
	"github.com/Zhima-Mochi/minishop-checkout/internal/application/apperr"
	"github.com/Zhima-Mochi/minishop-checkout/internal/application/inventory"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/auth"
	domain "github.com/Zhima-Mochi/minishop-checkout/internal/domain/order"
	domoutbox "github.com/Zhima-Mochi/minishop-checkout/internal/domain/outbox"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/payment"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/variant"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability"
)

const (
	orderService      = "order-service"
	useCasePlaceOrder = "order.place"
)

type LineInput struct {
	VariantID string
	Quantity  int
}

type PlaceOrderInput struct {
	// Buyer is nil for guest checkout.
	Buyer         *auth.Identity
	Guest         *domain.GuestContact
	Items         []LineInput
	Address       domain.Address
	ShippingFee   *decimal.Decimal
	Tax           *decimal.Decimal
	PaymentMethod string
}

type PlaceOrderResult struct {
	Order   *domain.Order
	Payment *payment.Payment
}

// PlaceOrderUseCase turns a line list into a committed order, its pending payment and the
// stock reservation, all in one unit of work. Notifications go out only after commit.
type PlaceOrderUseCase struct {
	store     application.Store
	ids       application.IDGenerator
	publisher domoutbox.Publisher
	currency  string
	inst      *application.Instrument
}

func NewPlaceOrderUseCase(
	store application.Store,
	ids application.IDGenerator,
	publisher domoutbox.Publisher,
	currency string,
	tel observability.Observability,
) *PlaceOrderUseCase {
	if currency == "" {
		currency = "INR"
	}
	return &PlaceOrderUseCase{
		store:     store,
		ids:       ids,
		publisher: publisher,
		currency:  currency,
		inst:      application.NewInstrument(tel, orderService),
	}
}

func (uc *PlaceOrderUseCase) Execute(ctx context.Context, cmd PlaceOrderInput) (_ *PlaceOrderResult, err error) {
	buyerID := ""
	if cmd.Buyer != nil {
		buyerID = cmd.Buyer.UserID
	}
	ctx, call := uc.inst.Begin(ctx, useCasePlaceOrder, "PlaceOrder",
		attribute.String("order.user_id", buyerID),
		attribute.Bool("order.guest", cmd.Buyer == nil),
		attribute.Int("order.lines", len(cmd.Items)),
	)
	defer func() { call.End(err) }()

	params, lines, verr := uc.validate(cmd)
	if verr != nil {
		call.Fail("VALIDATION_FAILED")
		return nil, verr
	}
	if err := ctx.Err(); err != nil {
		call.Fail("CONTEXT_CANCELED")
		return nil, err
	}

	var (
		placed  *domain.Order
		pay     *payment.Payment
		changed map[string]*variant.Variant
	)
	err = uc.store.Atomic(ctx, func(ctx context.Context, repos application.Repositories) error {
		var err error
		changed, err = inventory.ReserveStock(ctx, repos, lines)
		if err != nil {
			if errors.Is(err, variant.ErrInsufficientStock) {
				call.Fail("INSUFFICIENT_STOCK")
			} else {
				call.Fail("STOCK_RESERVE_FAILED")
			}
			return err
		}

		items := make([]domain.Item, 0, len(lines))
		for _, l := range lines {
			v := changed[l.VariantID]
			items = append(items, domain.Item{
				ProductID:     v.ProductID,
				VariantID:     v.ID,
				Quantity:      l.Quantity,
				PriceSnapshot: v.Price,
			})
		}
		params.ID = uc.ids.NewID()
		params.Items = items

		o, err := domain.New(params)
		if err != nil {
			call.Fail("DOMAIN_CONSTRUCTION_FAILED")
			return apperr.Wrap(apperr.KindValidation, "order", err)
		}
		if err := repos.Orders.Insert(ctx, o); err != nil {
			call.Fail("REPO_INSERT_FAILED")
			return wrapRepositoryError(err)
		}

		p := payment.New(uc.ids.NewID(), o.ID, string(o.PaymentMethod), o.Total, uc.currency)
		if err := repos.Payments.Insert(ctx, p); err != nil {
			call.Fail("PAYMENT_INSERT_FAILED")
			return wrapRepositoryError(err)
		}

		if o.UserID != "" {
			if err := repos.Carts.Clear(ctx, o.UserID); err != nil {
				call.Fail("CART_CLEAR_FAILED")
				return wrapRepositoryError(err)
			}
		}
		placed, pay = o, p
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("place order: %w", err)
	}

	call.Field("order_id", placed.ID)
	call.Field("total", placed.Total.String())
	call.Field("payment_method", string(placed.PaymentMethod))
	call.Span().SetAttributes(
		attribute.String("order.id", placed.ID),
		attribute.String("order.total", placed.Total.String()),
	)
	call.Span().AddEvent("order.placed", trace.WithAttributes(attribute.String("order.id", placed.ID)))

	events := []domoutbox.Event{domain.NewOrderUpdatedEvent(placed)}
	for _, l := range lines {
		events = append(events, variant.NewStockChangedEvent(changed[l.VariantID]))
	}
	if placed.PaymentMethod == domain.MethodCOD {
		events = append(events, domain.NewInvoiceRequestedEvent(placed))
	}
	if perr := uc.inst.Publish(ctx, uc.publisher, events...); perr != nil {
		call.Status = "EVENT_PUBLISH_FAILED"
	}

	return &PlaceOrderResult{Order: placed.Clone(), Payment: pay.Clone()}, nil
}

// validate checks everything that can be checked without touching storage.
func (uc *PlaceOrderUseCase) validate(cmd PlaceOrderInput) (domain.NewOrderParams, []inventory.Line, error) {
	var params domain.NewOrderParams

	if len(cmd.Items) == 0 {
		return params, nil, apperr.Validation("items are required", "items")
	}
	lines := make([]inventory.Line, 0, len(cmd.Items))
	seen := make(map[string]struct{}, len(cmd.Items))
	for i, it := range cmd.Items {
		id := strings.TrimSpace(it.VariantID)
		if id == "" {
			return params, nil, apperr.Validation("variant id is required", fmt.Sprintf("items[%d].variantId", i))
		}
		if it.Quantity < 1 {
			return params, nil, apperr.Validation("quantity must be at least 1", fmt.Sprintf("items[%d].quantity", i))
		}
		if _, dup := seen[id]; dup {
			return params, nil, apperr.Validation("duplicate variant in items", fmt.Sprintf("items[%d].variantId", i))
		}
		seen[id] = struct{}{}
		lines = append(lines, inventory.Line{VariantID: id, Quantity: it.Quantity})
	}

	if cmd.Buyer != nil && cmd.Buyer.UserID != "" {
		params.UserID = cmd.Buyer.UserID
		params.ContactEmail = strings.TrimSpace(cmd.Buyer.Email)
	} else {
		if cmd.Guest == nil || strings.TrimSpace(cmd.Guest.Email) == "" {
			return params, nil, apperr.Validation("guest email is required", "guestEmail")
		}
		email := strings.TrimSpace(cmd.Guest.Email)
		if err := domain.ValidateEmail(email); err != nil {
			return params, nil, apperr.Validation("guest email is invalid", "guestEmail")
		}
		params.Guest = &domain.GuestContact{
			Email: email,
			Name:  strings.TrimSpace(cmd.Guest.Name),
			Phone: strings.TrimSpace(cmd.Guest.Phone),
		}
		params.ContactEmail = email
	}

	if missing := cmd.Address.Missing(); len(missing) > 0 {
		return params, nil, apperr.Validation("address is incomplete", missing...)
	}
	params.Address = cmd.Address

	params.ShippingFee, params.Tax = decimal.Zero, decimal.Zero
	if cmd.ShippingFee != nil {
		if cmd.ShippingFee.IsNegative() {
			return params, nil, apperr.Validation("shipping fee must be zero or greater", "shippingFee")
		}
		params.ShippingFee = *cmd.ShippingFee
	}
	if cmd.Tax != nil {
		if cmd.Tax.IsNegative() {
			return params, nil, apperr.Validation("tax must be zero or greater", "tax")
		}
		params.Tax = *cmd.Tax
	}

	method, err := domain.ParsePaymentMethod(cmd.PaymentMethod)
	if err != nil {
		return params, nil, apperr.Validation("unsupported payment method", "paymentMethod")
	}
	params.PaymentMethod = method

	return params, lines, nil
}

func wrapRepositoryError(err error) error {
	if err == nil {
		return nil
	}
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return apperr.NotFound("order not found", err)
	case errors.Is(err, domain.ErrConflict), errors.Is(err, payment.ErrConflict):
		return apperr.Conflict("order already exists", err)
	default:
		return apperr.Internal("order repository failure", err)
	}
}
