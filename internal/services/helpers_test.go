package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/UthayakumarDevon/livechatapp/internal/events"
	"github.com/UthayakumarDevon/livechatapp/internal/keylock"
	"github.com/UthayakumarDevon/livechatapp/internal/repository"
	"github.com/UthayakumarDevon/livechatapp/internal/session"

	"github.com/stretchr/testify/require"
)

var errOffline = errors.New("connection offline")

// fakeHub records every frame per connection.
type fakeHub struct {
	mu     sync.Mutex
	rooms  map[string]map[string]bool
	inbox  map[string][][]byte
	online map[string]bool
}

func newFakeHub(conns ...string) *fakeHub {
	h := &fakeHub{
		rooms:  make(map[string]map[string]bool),
		inbox:  make(map[string][][]byte),
		online: make(map[string]bool),
	}
	for _, c := range conns {
		h.online[c] = true
	}
	return h
}

func (h *fakeHub) SendTo(connID string, frame []byte) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.online[connID] {
		return false
	}
	h.inbox[connID] = append(h.inbox[connID], frame)
	return true
}

func (h *fakeHub) SendToWait(ctx context.Context, connID string, frame []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !h.SendTo(connID, frame) {
		return errOffline
	}
	return nil
}

func (h *fakeHub) BroadcastRoom(room string, frame []byte) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for c := range h.rooms[room] {
		h.inbox[c] = append(h.inbox[c], frame)
		n++
	}
	return n
}

func (h *fakeHub) BroadcastAll(frame []byte) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.online {
		h.inbox[c] = append(h.inbox[c], frame)
	}
	return len(h.online)
}

func (h *fakeHub) JoinRoom(connID, room string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[string]bool)
	}
	h.rooms[room][connID] = true
	return true
}

// take returns and clears the frames queued for connID.
func (h *fakeHub) take(t *testing.T, connID string) []events.Envelope {
	t.Helper()
	h.mu.Lock()
	frames := h.inbox[connID]
	h.inbox[connID] = nil
	h.mu.Unlock()

	out := make([]events.Envelope, 0, len(frames))
	for _, f := range frames {
		env, err := events.Decode(f)
		require.NoError(t, err)
		out = append(out, env)
	}
	return out
}

func types(envs []events.Envelope) []string {
	out := make([]string, len(envs))
	for i, e := range envs {
		out[i] = e.Type
	}
	return out
}

func data[T any](t *testing.T, env events.Envelope) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(env.Data, &v))
	return v
}

// chatFixture wires every service over one store and fake hub.
type chatFixture struct {
	store     repository.Store
	hub       *fakeHub
	sessions  *session.Registry
	join      *JoinService
	receipts  *ReceiptService
	reactions *ReactionService
	custom    *CustomizationService
	clock     int64
}

func newChatFixture(store repository.Store, conns ...string) *chatFixture {
	hub := newFakeHub(conns...)
	sessions := session.NewRegistry()
	for _, c := range conns {
		sessions.Open(c)
	}
	pub := NewEventPublisher(hub, nil, nil)
	locks := keylock.New()
	f := &chatFixture{
		store:     store,
		hub:       hub,
		sessions:  sessions,
		join:      NewJoinService(store, sessions, hub, pub, nil, nil),
		receipts:  NewReceiptService(store, sessions, pub, locks, nil, nil),
		reactions: NewReactionService(store, sessions, pub, locks, nil, nil),
		custom:    NewCustomizationService(store, sessions, pub, nil),
		clock:     1_700_000_000_000,
	}
	f.receipts.now = func() time.Time {
		f.clock++
		return time.UnixMilli(f.clock)
	}
	return f
}
