package order

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zhima-Mochi/minishop-checkout/internal/application/apperr"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/auth"
	domain "github.com/Zhima-Mochi/minishop-checkout/internal/domain/order"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability"
)

var (
	admin    = &auth.Identity{UserID: "admin-1", Role: auth.RoleAdmin}
	customer = &auth.Identity{UserID: "u1", Email: "u1@example.com", Role: auth.RoleCustomer}
	stranger = &auth.Identity{UserID: "u2", Role: auth.RoleCustomer}
)

func TestUpdateStatusCancelRestocks(t *testing.T) {
	store := newStore(t, mustVariant(t, "v1", 100, 5))
	placed, err := newPlaceOrder(store, nil).Execute(context.Background(), guestInput(LineInput{VariantID: "v1", Quantity: 2}))
	require.NoError(t, err)
	require.Equal(t, 3, stockOf(t, store, "v1"))

	pub := &recordingPublisher{}
	uc := NewQueryUseCases(store, pub, observability.Nop())

	_, err = uc.UpdateStatus(context.Background(), UpdateStatusInput{Actor: customer, OrderID: placed.Order.ID, Status: "Cancelled"})
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))

	_, err = uc.UpdateStatus(context.Background(), UpdateStatusInput{Actor: admin, OrderID: placed.Order.ID, Status: "Lost"})
	assert.Equal(t, []string{"status"}, apperr.FieldsOf(err))

	o, err := uc.UpdateStatus(context.Background(), UpdateStatusInput{Actor: admin, OrderID: placed.Order.ID, Status: "Cancelled"})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, o.Status)
	assert.Equal(t, 5, stockOf(t, store, "v1"))
	assert.Equal(t, []string{"order.updated", "variant.stock_changed"}, pub.names())

	_, err = uc.UpdateStatus(context.Background(), UpdateStatusInput{Actor: admin, OrderID: placed.Order.ID, Status: "Cancelled"})
	require.NoError(t, err)
	assert.Equal(t, 5, stockOf(t, store, "v1"))
	assert.Len(t, pub.names(), 2)

	_, err = uc.UpdateStatus(context.Background(), UpdateStatusInput{Actor: admin, OrderID: placed.Order.ID, Status: "Packed"})
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
}

func TestUpdateStatusAfterShipmentKeepsStock(t *testing.T) {
	store := newStore(t, mustVariant(t, "v1", 100, 5))
	placed, err := newPlaceOrder(store, nil).Execute(context.Background(), guestInput(LineInput{VariantID: "v1", Quantity: 2}))
	require.NoError(t, err)
	uc := NewQueryUseCases(store, nil, observability.Nop())

	_, err = uc.UpdateStatus(context.Background(), UpdateStatusInput{Actor: admin, OrderID: placed.Order.ID, Status: "Shipped"})
	require.NoError(t, err)
	o, err := uc.UpdateStatus(context.Background(), UpdateStatusInput{Actor: admin, OrderID: placed.Order.ID, Status: "Cancelled"})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, o.Status)
	assert.Equal(t, 3, stockOf(t, store, "v1"))
}

func TestTrackGuestOrder(t *testing.T) {
	store := newStore(t, mustVariant(t, "v1", 100, 5))
	placed, err := newPlaceOrder(store, nil).Execute(context.Background(), guestInput(LineInput{VariantID: "v1", Quantity: 1}))
	require.NoError(t, err)
	uc := NewQueryUseCases(store, nil, observability.Nop())

	_, err = uc.TrackGuestOrder(context.Background(), TrackInput{OrderID: placed.Order.ID, Email: "other@example.com"})
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	_, err = uc.TrackGuestOrder(context.Background(), TrackInput{OrderID: "nope", Email: "guest@example.com"})
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	_, err = uc.TrackGuestOrder(context.Background(), TrackInput{OrderID: placed.Order.ID})
	assert.Equal(t, []string{"email"}, apperr.FieldsOf(err))

	view, err := uc.TrackGuestOrder(context.Background(), TrackInput{OrderID: placed.Order.ID, Email: "GUEST@example.com"})
	require.NoError(t, err)
	assert.Equal(t, placed.Order.ID, view.Order.ID)
	assert.Nil(t, view.Order.Guest)
	assert.Empty(t, view.Order.ContactEmail)
	require.Len(t, view.Items, 1)
	require.NotNil(t, view.Items[0].Variant)
	assert.Equal(t, "SKU-V1", view.Items[0].Variant.SKU)
	require.NotNil(t, view.Items[0].Product)
	assert.Equal(t, "Tee", view.Items[0].Product.Title)
}

func TestOrderVisibility(t *testing.T) {
	store := newStore(t, mustVariant(t, "v1", 100, 5))
	in := guestInput(LineInput{VariantID: "v1", Quantity: 1})
	in.Guest, in.Buyer = nil, customer
	mine, err := newPlaceOrder(store, nil).Execute(context.Background(), in)
	require.NoError(t, err)

	uc := NewQueryUseCases(store, nil, observability.Nop())

	views, err := uc.ListMine(context.Background(), customer)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, mine.Order.ID, views[0].Order.ID)

	views, err = uc.ListMine(context.Background(), stranger)
	require.NoError(t, err)
	assert.Empty(t, views)

	_, err = uc.ListMine(context.Background(), nil)
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))

	_, err = uc.Get(context.Background(), stranger, mine.Order.ID)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	_, err = uc.Get(context.Background(), admin, mine.Order.ID)
	assert.NoError(t, err)

	_, err = uc.ListAdmin(context.Background(), customer)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
	all, err := uc.ListAdmin(context.Background(), admin)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestAdminListingHidesUnsettledGatewayOrders(t *testing.T) {
	store := newStore(t, mustVariant(t, "v1", 100, 5))
	place := newPlaceOrder(store, nil)

	_, err := place.Execute(context.Background(), guestInput(LineInput{VariantID: "v1", Quantity: 1}))
	require.NoError(t, err)
	in := guestInput(LineInput{VariantID: "v1", Quantity: 1})
	in.PaymentMethod = "Razorpay"
	_, err = place.Execute(context.Background(), in)
	require.NoError(t, err)

	all, err := NewQueryUseCases(store, nil, observability.Nop()).ListAdmin(context.Background(), admin)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, domain.MethodCOD, all[0].Order.PaymentMethod)
}
