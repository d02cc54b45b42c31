package outbox

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domoutbox "github.com/Zhima-Mochi/minishop-checkout/internal/domain/outbox"
)

type namedEvent string

func (e namedEvent) EventName() string { return string(e) }

func TestBusFansOutToEverySubscriber(t *testing.T) {
	bus := NewBus(nil, Options{Concurrency: 2})
	var wg sync.WaitGroup
	var got atomic.Int32
	handler := func(context.Context, domoutbox.Event) error {
		got.Add(1)
		wg.Done()
		return nil
	}
	bus.Subscribe("order.updated", handler)
	bus.Subscribe("order.updated", handler)
	bus.Subscribe("other", func(context.Context, domoutbox.Event) error {
		t.Error("unexpected delivery")
		return nil
	})

	ctx := context.Background()
	bus.Start(ctx)
	wg.Add(4)
	require.NoError(t, bus.Publish(ctx, namedEvent("order.updated")))
	require.NoError(t, bus.Publish(ctx, namedEvent("order.updated")))
	require.NoError(t, bus.Publish(ctx, namedEvent("unrouted")))
	wg.Wait()

	stopCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	bus.Stop(stopCtx)
	assert.Equal(t, int32(4), got.Load())
}

func TestBusSurvivesHandlerFailures(t *testing.T) {
	bus := NewBus(nil, Options{})
	done := make(chan struct{})
	bus.Subscribe("e", func(context.Context, domoutbox.Event) error { panic("boom") })
	bus.Subscribe("e", func(context.Context, domoutbox.Event) error { return errors.New("fail") })
	bus.Subscribe("e", func(context.Context, domoutbox.Event) error {
		close(done)
		return nil
	})

	ctx := context.Background()
	bus.Start(ctx)
	require.NoError(t, bus.Publish(ctx, namedEvent("e")))
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("healthy handler was not called")
	}
	bus.Stop(ctx)
}

func TestBusRejectsAfterStop(t *testing.T) {
	bus := NewBus(nil, Options{})
	bus.Start(context.Background())
	bus.Stop(context.Background())
	bus.Stop(context.Background())

	assert.ErrorIs(t, bus.Publish(context.Background(), namedEvent("e")), ErrClosed)
	assert.NoError(t, bus.Publish(context.Background(), nil))
}

func TestBusDrainsQueueOnStop(t *testing.T) {
	bus := NewBus(nil, Options{QueueSize: 8})
	var got atomic.Int32
	bus.Subscribe("e", func(context.Context, domoutbox.Event) error {
		got.Add(1)
		return nil
	})
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		require.NoError(t, bus.Publish(ctx, namedEvent("e")))
	}
	bus.Start(ctx)

	stopCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	bus.Stop(stopCtx)
	assert.Equal(t, int32(5), got.Load())
}
