package websocket

import (
	"encoding/json"
	"testing"

	"github.com/UthayakumarDevon/livechatapp/internal/events"
	"github.com/UthayakumarDevon/livechatapp/internal/keylock"
	"github.com/UthayakumarDevon/livechatapp/internal/repository"
	"github.com/UthayakumarDevon/livechatapp/internal/services"
	"github.com/UthayakumarDevon/livechatapp/internal/session"

	"github.com/stretchr/testify/require"
)

// stack wires the real hub, sessions and services over a store.
type stack struct {
	store      repository.Store
	hub        *Hub
	sessions   *session.Registry
	dispatcher *Dispatcher
	limiter    EventLimiter
}

func newStack(store repository.Store, limiter EventLimiter) *stack {
	hub := NewHub(nil, nil)
	sessions := session.NewRegistry()
	locks := keylock.New()
	pub := services.NewEventPublisher(hub, nil, nil)
	d := NewDispatcher(DispatcherDeps{
		Join:      services.NewJoinService(store, sessions, hub, pub, nil, nil),
		Receipts:  services.NewReceiptService(store, sessions, pub, locks, nil, nil),
		Reactions: services.NewReactionService(store, sessions, pub, locks, nil, nil),
		Custom:    services.NewCustomizationService(store, sessions, pub, nil),
		Publisher: pub,
		Sessions:  sessions,
		Limiter:   limiter,
	})
	return &stack{store: store, hub: hub, sessions: sessions, dispatcher: d, limiter: limiter}
}

// connect registers a connection without a socket; frames stay in Send.
func (s *stack) connect(buffer int) *Client {
	c := NewClient(nil, buffer)
	s.sessions.Open(c.ID)
	s.hub.Register(c)
	return c
}

func frame(t *testing.T, eventType string, data any) []byte {
	t.Helper()
	raw, err := events.Encode(eventType, data)
	require.NoError(t, err)
	return raw
}

// drain returns every frame queued for c.
func drain(t *testing.T, c *Client) []events.Envelope {
	t.Helper()
	var out []events.Envelope
	for {
		select {
		case f, ok := <-c.Send:
			if !ok {
				return out
			}
			env, err := events.Decode(f)
			require.NoError(t, err)
			out = append(out, env)
		default:
			return out
		}
	}
}

func eventTypes(envs []events.Envelope) []string {
	out := make([]string, len(envs))
	for i, e := range envs {
		out[i] = e.Type
	}
	return out
}

func decode[T any](t *testing.T, env events.Envelope) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(env.Data, &v))
	return v
}
