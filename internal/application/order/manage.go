package order

import (
	"context"
	"errors"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/Zhima-Mochi/minishop-checkout/internal/application"
	"github.com/Zhima-Mochi/minishop-checkout/internal/application/apperr"
	"github.com/Zhima-Mochi/minishop-checkout/internal/application/inventory"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/auth"
	domain "github.com/Zhima-Mochi/minishop-checkout/internal/domain/order"
	domoutbox "github.com/Zhima-Mochi/minishop-checkout/internal/domain/outbox"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/variant"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability"
)

const (
	useCaseUpdateStatus = "order.update_status"
	useCaseTrack        = "order.track_guest"
	useCaseListMine     = "order.list_mine"
	useCaseListAdmin    = "order.list_admin"
	useCaseGet          = "order.get"
)

// QueryUseCases serve the read side of orders and the admin status changes.
type QueryUseCases struct {
	store     application.Store
	publisher domoutbox.Publisher
	inst      *application.Instrument
}

func NewQueryUseCases(store application.Store, publisher domoutbox.Publisher, tel observability.Observability) *QueryUseCases {
	return &QueryUseCases{
		store:     store,
		publisher: publisher,
		inst:      application.NewInstrument(tel, orderService),
	}
}

type UpdateStatusInput struct {
	Actor   *auth.Identity
	OrderID string
	Status  string
}

// UpdateStatus applies an admin status change. Cancelling before shipment returns the
// reserved stock in the same unit of work.
func (uc *QueryUseCases) UpdateStatus(ctx context.Context, cmd UpdateStatusInput) (_ *domain.Order, err error) {
	ctx, call := uc.inst.Begin(ctx, useCaseUpdateStatus, "UpdateOrderStatus",
		attribute.String("order.id", cmd.OrderID),
		attribute.String("order.target_status", cmd.Status),
	)
	defer func() { call.End(err) }()
	call.Field("order_id", cmd.OrderID)

	if !cmd.Actor.IsAdmin() {
		call.Fail("FORBIDDEN")
		return nil, apperr.Forbidden("admin role required")
	}
	target, perr := domain.ParseStatus(cmd.Status)
	if perr != nil {
		call.Fail("STATUS_INVALID")
		return nil, apperr.Validation("unknown order status", "status")
	}

	var (
		updated  *domain.Order
		restock  []*variant.Variant
		noChange bool
	)
	err = uc.store.Atomic(ctx, func(ctx context.Context, repos application.Repositories) error {
		o, err := repos.Orders.Get(ctx, cmd.OrderID)
		if err != nil {
			call.Fail("ORDER_LOAD_FAILED")
			return wrapRepositoryError(err)
		}
		if o.Status == target {
			updated, noChange = o, true
			return nil
		}
		release := target == domain.StatusCancelled && o.ReleasesStockOnCancel()
		if err := o.TransitionTo(target); err != nil {
			call.Fail("STATE_TRANSITION_FAILED")
			return apperr.Conflict("cannot move order from "+string(o.Status)+" to "+string(target), err)
		}
		if err := repos.Orders.Update(ctx, o); err != nil {
			call.Fail("REPO_UPDATE_FAILED")
			return wrapRepositoryError(err)
		}
		if release {
			lines := make([]inventory.Line, 0, len(o.Items))
			for _, it := range o.Items {
				lines = append(lines, inventory.Line{VariantID: it.VariantID, Quantity: it.Quantity})
			}
			restock, err = inventory.ReleaseStock(ctx, repos, lines)
			if err != nil {
				call.Fail("STOCK_RELEASE_FAILED")
				return err
			}
		}
		updated = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	if noChange {
		call.Status = "NO_CHANGE"
		return updated, nil
	}

	events := []domoutbox.Event{domain.NewOrderUpdatedEvent(updated)}
	for _, v := range restock {
		events = append(events, variant.NewStockChangedEvent(v))
	}
	call.Field("restocked_variants", len(restock))
	if perr := uc.inst.Publish(ctx, uc.publisher, events...); perr != nil {
		call.Status = "EVENT_PUBLISH_FAILED"
	}
	return updated, nil
}

type TrackInput struct {
	OrderID string
	Email   string
}

// TrackGuestOrder returns a guest order to whoever knows its id and contact email.
// Any mismatch looks exactly like a missing order. Contact details are not returned.
func (uc *QueryUseCases) TrackGuestOrder(ctx context.Context, cmd TrackInput) (_ *OrderView, err error) {
	ctx, call := uc.inst.Begin(ctx, useCaseTrack, "TrackGuestOrder",
		attribute.String("order.id", cmd.OrderID),
	)
	defer func() { call.End(err) }()

	if strings.TrimSpace(cmd.OrderID) == "" || strings.TrimSpace(cmd.Email) == "" {
		call.Fail("VALIDATION_FAILED")
		var fields []string
		if strings.TrimSpace(cmd.OrderID) == "" {
			fields = append(fields, "orderId")
		}
		if strings.TrimSpace(cmd.Email) == "" {
			fields = append(fields, "email")
		}
		return nil, apperr.Validation("order id and email are required", fields...)
	}

	repos := uc.store.Repositories()
	o, gerr := repos.Orders.Get(ctx, cmd.OrderID)
	if gerr != nil && !errors.Is(gerr, domain.ErrNotFound) {
		call.Fail("ORDER_LOAD_FAILED")
		return nil, wrapRepositoryError(gerr)
	}
	if gerr != nil || !o.MatchesGuestEmail(cmd.Email) {
		call.Fail("ORDER_NOT_FOUND")
		return nil, apperr.NotFound("order not found", domain.ErrNotFound)
	}
	o = o.Clone()
	o.Guest = nil
	o.ContactEmail = ""

	views, perr := populate(ctx, repos, []*domain.Order{o})
	if perr != nil {
		call.Fail("POPULATE_FAILED")
		return nil, apperr.Internal("populate order", perr)
	}
	return &views[0], nil
}

func (uc *QueryUseCases) ListMine(ctx context.Context, actor *auth.Identity) (_ []OrderView, err error) {
	ctx, call := uc.inst.Begin(ctx, useCaseListMine, "ListMyOrders")
	defer func() { call.End(err) }()

	if actor == nil || actor.UserID == "" {
		call.Fail("UNAUTHENTICATED")
		return nil, apperr.Unauthorized("authentication required")
	}
	repos := uc.store.Repositories()
	orders, lerr := repos.Orders.ListByUser(ctx, actor.UserID)
	if lerr != nil {
		call.Fail("REPO_LIST_FAILED")
		return nil, wrapRepositoryError(lerr)
	}
	views, perr := populate(ctx, repos, orders)
	if perr != nil {
		call.Fail("POPULATE_FAILED")
		return nil, apperr.Internal("populate orders", perr)
	}
	call.Field("count", len(views))
	return views, nil
}

func (uc *QueryUseCases) ListAdmin(ctx context.Context, actor *auth.Identity) (_ []OrderView, err error) {
	ctx, call := uc.inst.Begin(ctx, useCaseListAdmin, "ListAdminOrders")
	defer func() { call.End(err) }()

	if !actor.IsAdmin() {
		call.Fail("FORBIDDEN")
		return nil, apperr.Forbidden("admin role required")
	}
	repos := uc.store.Repositories()
	orders, lerr := repos.Orders.ListForAdmin(ctx)
	if lerr != nil {
		call.Fail("REPO_LIST_FAILED")
		return nil, wrapRepositoryError(lerr)
	}
	views, perr := populate(ctx, repos, orders)
	if perr != nil {
		call.Fail("POPULATE_FAILED")
		return nil, apperr.Internal("populate orders", perr)
	}
	call.Field("count", len(views))
	return views, nil
}

// Get returns an order to its owner or an admin; anyone else sees NotFound.
func (uc *QueryUseCases) Get(ctx context.Context, actor *auth.Identity, orderID string) (_ *OrderView, err error) {
	ctx, call := uc.inst.Begin(ctx, useCaseGet, "GetOrder", attribute.String("order.id", orderID))
	defer func() { call.End(err) }()

	if actor == nil {
		call.Fail("UNAUTHENTICATED")
		return nil, apperr.Unauthorized("authentication required")
	}
	repos := uc.store.Repositories()
	o, gerr := repos.Orders.Get(ctx, orderID)
	if gerr != nil {
		call.Fail("ORDER_LOAD_FAILED")
		return nil, wrapRepositoryError(gerr)
	}
	if !o.VisibleTo(actor.UserID) && !actor.IsAdmin() {
		call.Fail("ORDER_NOT_VISIBLE")
		return nil, apperr.NotFound("order not found", domain.ErrNotFound)
	}
	views, perr := populate(ctx, repos, []*domain.Order{o})
	if perr != nil {
		call.Fail("POPULATE_FAILED")
		return nil, apperr.Internal("populate order", perr)
	}
	return &views[0], nil
}
