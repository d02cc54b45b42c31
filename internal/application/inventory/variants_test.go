package inventory

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zhima-Mochi/minishop-checkout/internal/application"
	"github.com/Zhima-Mochi/minishop-checkout/internal/application/apperr"
	domoutbox "github.com/Zhima-Mochi/minishop-checkout/internal/domain/outbox"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/product"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/variant"
	"github.com/Zhima-Mochi/minishop-checkout/internal/infrastructure/id"
	"github.com/Zhima-Mochi/minishop-checkout/internal/infrastructure/memory"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability"
)

type capturePublisher struct {
	mu     sync.Mutex
	events []variant.StockChangedEvent
}

func (p *capturePublisher) Publish(_ context.Context, e domoutbox.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if evt, ok := e.(variant.StockChangedEvent); ok {
		p.events = append(p.events, evt)
	}
	return nil
}

func newVariantUseCases(t *testing.T) (*VariantUseCases, *memory.Store, *capturePublisher) {
	t.Helper()
	store := memory.NewStore()
	store.SeedProducts(&product.Product{ID: "p1", Title: "Tee", Price: decimal.NewFromInt(100), Status: product.StatusActive})
	pub := &capturePublisher{}
	return NewVariantUseCases(store, id.NewUUIDGenerator(), pub, observability.Nop()), store, pub
}

func ptr[T any](v T) *T { return &v }

func TestCreateVariant(t *testing.T) {
	uc, _, pub := newVariantUseCases(t)
	ctx := context.Background()

	v, err := uc.Create(ctx, CreateVariantInput{ProductID: "p1", Size: " M ", Color: "Black", SKU: " tee-m-blk ", Price: decimal.NewFromInt(100), Stock: 4})
	require.NoError(t, err)
	assert.NotEmpty(t, v.ID)
	assert.Equal(t, "M", v.Size)
	assert.Equal(t, "TEE-M-BLK", v.SKU)
	require.Len(t, pub.events, 1)
	assert.Equal(t, v.ID, pub.events[0].VariantID)
	assert.Equal(t, 4, pub.events[0].Variant.Stock)

	oneSize, err := uc.Create(ctx, CreateVariantInput{ProductID: "p1", SKU: "tee-os", Price: decimal.NewFromInt(90)})
	require.NoError(t, err)
	assert.Equal(t, variant.DefaultSize, oneSize.Size)

	_, err = uc.Create(ctx, CreateVariantInput{ProductID: "p1", Size: "L", SKU: "TEE-M-BLK", Price: decimal.NewFromInt(100)})
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
	_, err = uc.Create(ctx, CreateVariantInput{ProductID: "p1", Size: "m", Color: "black", SKU: "other", Price: decimal.NewFromInt(100)})
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	_, err = uc.Create(ctx, CreateVariantInput{ProductID: "ghost", SKU: "x", Price: decimal.NewFromInt(1)})
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	_, err = uc.Create(ctx, CreateVariantInput{SKU: "x"})
	assert.Equal(t, []string{"productId"}, apperr.FieldsOf(err))
	_, err = uc.Create(ctx, CreateVariantInput{ProductID: "p1", SKU: "neg", Price: decimal.NewFromInt(1), Stock: -1})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	vs, err := uc.ListByProduct(ctx, "p1")
	require.NoError(t, err)
	assert.Len(t, vs, 2)
}

func TestUpdateVariantChangesOnlySetFields(t *testing.T) {
	uc, _, pub := newVariantUseCases(t)
	ctx := context.Background()
	v, err := uc.Create(ctx, CreateVariantInput{ProductID: "p1", Size: "M", SKU: "tee-m", Price: decimal.NewFromInt(100), Stock: 4})
	require.NoError(t, err)

	updated, err := uc.Update(ctx, UpdateVariantInput{ID: v.ID, Stock: ptr(0), SKU: ptr("tee-m-2")})
	require.NoError(t, err)
	assert.Equal(t, 0, updated.Stock)
	assert.Equal(t, variant.OutOfStock, updated.Availability)
	assert.Equal(t, "TEE-M-2", updated.SKU)
	assert.Equal(t, "M", updated.Size)
	assert.True(t, decimal.NewFromInt(100).Equal(updated.Price))
	assert.Len(t, pub.events, 2)

	_, err = uc.Update(ctx, UpdateVariantInput{ID: v.ID, Size: ptr("  ")})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	_, err = uc.Update(ctx, UpdateVariantInput{ID: "ghost", Stock: ptr(1)})
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	assert.Len(t, pub.events, 2)
}

func TestDeleteVariant(t *testing.T) {
	uc, _, pub := newVariantUseCases(t)
	ctx := context.Background()
	v, err := uc.Create(ctx, CreateVariantInput{ProductID: "p1", Size: "M", SKU: "tee-m", Price: decimal.NewFromInt(100), Stock: 4})
	require.NoError(t, err)

	require.NoError(t, uc.Delete(ctx, v.ID))
	last := pub.events[len(pub.events)-1]
	assert.True(t, last.Deleted)
	assert.Equal(t, v.ID, last.VariantID)
	assert.Nil(t, last.Variant)

	err = uc.Delete(ctx, v.ID)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	again, err := uc.Create(ctx, CreateVariantInput{ProductID: "p1", Size: "M", SKU: "tee-m", Price: decimal.NewFromInt(100)})
	require.NoError(t, err)
	assert.NotEqual(t, v.ID, again.ID)
}

func TestReleaseStockSkipsDeletedVariants(t *testing.T) {
	uc, store, _ := newVariantUseCases(t)
	ctx := context.Background()
	kept, err := uc.Create(ctx, CreateVariantInput{ProductID: "p1", Size: "M", SKU: "a", Price: decimal.NewFromInt(10), Stock: 1})
	require.NoError(t, err)

	var changed []*variant.Variant
	err = store.Atomic(ctx, func(ctx context.Context, repos application.Repositories) error {
		var err error
		changed, err = ReleaseStock(ctx, repos, []Line{
			{VariantID: kept.ID, Quantity: 2},
			{VariantID: "gone", Quantity: 1},
			{VariantID: kept.ID, Quantity: 0},
		})
		return err
	})
	require.NoError(t, err)
	require.Len(t, changed, 1)
	assert.Equal(t, 3, changed[0].Stock)
}
