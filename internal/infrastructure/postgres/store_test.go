package postgres

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Zhima-Mochi/minishop-checkout/internal/application"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/order"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/variant"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability"
)

func TestTranslate(t *testing.T) {
	notFound, conflict := errors.New("nf"), errors.New("dup")

	assert.NoError(t, translate(nil, notFound, conflict))
	assert.Equal(t, notFound, translate(gorm.ErrRecordNotFound, notFound, conflict))
	assert.ErrorIs(t, translate(gorm.ErrDuplicatedKey, notFound, conflict), conflict)
	other := errors.New("conn reset")
	assert.Equal(t, other, translate(other, notFound, conflict))
}

// openTestStore connects to TEST_DATABASE_DSN and migrates; the test is skipped without it.
func openTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skip("TEST_DATABASE_DSN not set")
	}
	s, err := Open(dsn, observability.NopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func insertVariant(t *testing.T, s *Store, stock int) *variant.Variant {
	t.Helper()
	suffix := uuid.NewString()
	v, err := variant.New(uuid.NewString(), "p-"+suffix, "M", "", "sku-"+suffix, decimal.NewFromInt(100), stock)
	require.NoError(t, err)
	require.NoError(t, s.Repositories().Variants.Insert(context.Background(), v))
	return v
}

func TestPostgresConditionalDecrement(t *testing.T) {
	s := openTestStore(t)
	v := insertVariant(t, s, 1)
	ctx := context.Background()

	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = s.Atomic(ctx, func(ctx context.Context, repos application.Repositories) error {
				if _, err := repos.Variants.FindByIDs(ctx, []string{v.ID}); err != nil {
					return err
				}
				_, err := repos.Variants.DecrementStock(ctx, v.ID, 1)
				return err
			})
		}(i)
	}
	wg.Wait()

	failures := 0
	for _, err := range errs {
		if err != nil {
			assert.ErrorIs(t, err, variant.ErrInsufficientStock)
			failures++
		}
	}
	assert.Equal(t, 1, failures)
	got, err := s.Repositories().Variants.Get(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Stock)
}

func TestPostgresRollback(t *testing.T) {
	s := openTestStore(t)
	v := insertVariant(t, s, 3)
	ctx := context.Background()
	orderID := uuid.NewString()

	err := s.Atomic(ctx, func(ctx context.Context, repos application.Repositories) error {
		if _, err := repos.Variants.DecrementStock(ctx, v.ID, 2); err != nil {
			return err
		}
		if err := repos.Orders.Insert(ctx, &order.Order{
			ID:            orderID,
			Status:        order.StatusCreated,
			PaymentMethod: order.MethodCOD,
			PaymentStatus: order.PaymentPending,
		}); err != nil {
			return err
		}
		return errors.New("abort")
	})
	require.EqualError(t, err, "abort")

	got, err := s.Repositories().Variants.Get(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Stock)
	_, err = s.Repositories().Orders.Get(ctx, orderID)
	assert.ErrorIs(t, err, order.ErrNotFound)
}

func TestPostgresUniqueSKU(t *testing.T) {
	s := openTestStore(t)
	v := insertVariant(t, s, 1)

	dup, err := variant.New(uuid.NewString(), v.ProductID, "L", "", v.SKU, decimal.NewFromInt(1), 1)
	require.NoError(t, err)
	assert.ErrorIs(t, s.Repositories().Variants.Insert(context.Background(), dup), variant.ErrConflict)
}
