package workerpresentation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domoutbox "github.com/Zhima-Mochi/minishop-checkout/internal/domain/outbox"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability/logctx"
)

type subscriberFunc map[string]domoutbox.Handler

func (s subscriberFunc) Subscribe(name string, h domoutbox.Handler) { s[name] = h }

type ping struct{}

func (ping) EventName() string { return "ping" }

func TestSubscribeInjectsEventLogger(t *testing.T) {
	sub := subscriberFunc{}
	var sawLogger bool
	Subscribe(sub, observability.Nop(), "notification", map[string]domoutbox.Handler{
		"ping": func(ctx context.Context, e domoutbox.Event) error {
			sawLogger = logctx.From(ctx) != nil
			assert.Equal(t, "ping", e.EventName())
			return nil
		},
	})

	require.Contains(t, sub, "ping")
	require.NoError(t, sub["ping"](context.Background(), ping{}))
	assert.True(t, sawLogger)
}

func TestSubscribeNilSubscriber(t *testing.T) {
	assert.NotPanics(t, func() {
		Subscribe(nil, nil, "w", map[string]domoutbox.Handler{"ping": nil})
	})
}
