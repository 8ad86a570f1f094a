package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/UthayakumarDevon/livechatapp/config"
	"github.com/UthayakumarDevon/livechatapp/internal/domain/message"
	"github.com/UthayakumarDevon/livechatapp/internal/events"
	"github.com/UthayakumarDevon/livechatapp/internal/handler"
	"github.com/UthayakumarDevon/livechatapp/internal/keylock"
	"github.com/UthayakumarDevon/livechatapp/internal/metrics"
	"github.com/UthayakumarDevon/livechatapp/internal/repository"
	"github.com/UthayakumarDevon/livechatapp/internal/services"
	"github.com/UthayakumarDevon/livechatapp/internal/session"
	"github.com/UthayakumarDevon/livechatapp/internal/storage"
	"github.com/UthayakumarDevon/livechatapp/internal/websocket"
	"github.com/UthayakumarDevon/livechatapp/pkg/chatclient"
	"github.com/UthayakumarDevon/livechatapp/pkg/logger"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	*httptest.Server
	hub   *websocket.Hub
	store repository.Store
}

func newTestServer(t *testing.T, opts ...func(*config.Config)) *testServer {
	t.Helper()
	cfg := config.Default()
	cfg.Server.GinMode = TestMode
	cfg.Blob.MaxBytes = 1 << 20
	for _, opt := range opts {
		opt(cfg)
	}

	store, err := repository.NewPebbleStore(t.TempDir(), nil)
	require.NoError(t, err)
	blobs, err := storage.NewLocalStore(t.TempDir(), "/uploads")
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	wsLog := websocket.NewWebSocketLogger(nil)
	hub := websocket.NewHub(wsLog, m)
	sessions := session.NewRegistry()
	locks := keylock.New()
	limiter := websocket.NewLocalLimiter(cfg.WebSocket.EventRPS, cfg.WebSocket.EventBurst)
	pub := services.NewEventPublisher(hub, nil, m)
	dispatcher := websocket.NewDispatcher(websocket.DispatcherDeps{
		Join:      services.NewJoinService(store, sessions, hub, pub, nil, m),
		Receipts:  services.NewReceiptService(store, sessions, pub, locks, nil, m),
		Reactions: services.NewReactionService(store, sessions, pub, locks, nil, m),
		Custom:    services.NewCustomizationService(store, sessions, pub, m),
		Publisher: pub,
		Sessions:  sessions,
		Limiter:   limiter,
		Log:       wsLog,
		Metrics:   m,
	})

	srv := New(cfg, logger.NewNop())
	srv.SetupRoutes(&Handlers{
		WebSocket:     websocket.NewHandler(hub, sessions, dispatcher, limiter, wsLog, cfg.WebSocket.SendBuffer, nil),
		Upload:        handler.NewUploadHandler(blobs, cfg.Blob.MaxBytes, nil),
		Health:        handler.NewHealthHandler(store, hub),
		UploadDir:     blobs.Dir(),
		UploadLimiter: limiter,
		Gatherer:      reg,
	})

	ts := httptest.NewServer(srv.Engine())
	t.Cleanup(func() {
		hub.CloseAll()
		ts.Close()
		_ = store.Close()
	})
	return &testServer{Server: ts, hub: hub, store: store}
}

func (s *testServer) connect(t *testing.T, ctx context.Context) *chatclient.Client {
	t.Helper()
	cfg := chatclient.DefaultConfig()
	cfg.URL = "ws" + strings.TrimPrefix(s.URL, "http") + "/ws"
	c, err := chatclient.Dial(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func (s *testServer) dial(t *testing.T, ctx context.Context, room, name string) *chatclient.Client {
	t.Helper()
	c := s.connect(t, ctx)
	require.NoError(t, c.Join(ctx, room, name))
	_, err := c.WaitFor(ctx, events.EventTypeJoined)
	require.NoError(t, err)
	return c
}

func payload[T any](t *testing.T, env events.Envelope) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(env.Data, &v))
	return v
}

func TestGateway_JoinReplayLargerThanSendBuffer(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	const sendBuffer, tallies = 8, 300
	ts := newTestServer(t, func(cfg *config.Config) { cfg.WebSocket.SendBuffer = sendBuffer })

	for i := 0; i < tallies; i++ {
		_, _, err := ts.store.ToggleReaction(ctx, message.Reaction{
			MessageID: fmt.Sprintf("m%03d", i), Room: "big", User: "bob", Emoji: "👍",
		})
		require.NoError(t, err)
	}
	require.NoError(t, ts.store.SetRoomBackground(ctx, "big", "/uploads/bg.jpg"))
	require.NoError(t, ts.store.SetUserAvatar(ctx, "alice", "/uploads/alice.png"))

	c := ts.connect(t, ctx)
	require.NoError(t, c.Join(ctx, "big", "alice"))

	var got []string
	reactions := map[string]int{}
	for {
		env, err := c.Next(ctx)
		require.NoError(t, err, "received %d frames before failing", len(got))
		got = append(got, env.Type)
		if env.Type == events.EventTypeReaction {
			r := payload[events.ReactionOut](t, env)
			reactions[r.ID] = r.Count
		}
		if env.Type == events.EventTypeJoined {
			break
		}
	}

	require.Len(t, got, tallies+5)
	assert.Equal(t, events.EventTypeLastSeenID, got[0])
	assert.Equal(t, events.EventTypeHistory, got[1])
	assert.Len(t, reactions, tallies)
	for id, count := range reactions {
		assert.Equal(t, 1, count, id)
	}
	assert.Equal(t, []string{
		events.EventTypeBackgroundChange,
		events.EventTypeAvatarChange,
		events.EventTypeJoined,
	}, got[len(got)-3:])
}

func TestGateway_AliceBobCarol(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	ts := newTestServer(t)

	alice := ts.dial(t, ctx, "lobby", "alice")
	bob := ts.dial(t, ctx, "lobby", "bob")

	require.NoError(t, alice.SendText(ctx, "lobby", "m1", "hello bob"))
	env, err := bob.WaitFor(ctx, events.EventTypeMessage)
	require.NoError(t, err)
	msg := payload[events.MessageOut](t, env)
	assert.Equal(t, "m1", msg.ID)
	assert.Equal(t, "alice", msg.Sender)
	assert.Equal(t, "hello bob", msg.Text)

	env, err = bob.WaitFor(ctx, events.EventTypeDelivered)
	require.NoError(t, err)
	assert.Equal(t, "m1", payload[events.DeliveredPayload](t, env).ID)

	require.NoError(t, bob.Seen(ctx, "lobby", "m1"))
	env, err = alice.WaitFor(ctx, events.EventTypeSeen)
	require.NoError(t, err)
	assert.Equal(t, events.SeenOut{ID: "m1", Names: []string{"bob", "alice"}}, payload[events.SeenOut](t, env))

	require.NoError(t, bob.React(ctx, "lobby", "m1", "👍"))
	env, err = alice.WaitFor(ctx, events.EventTypeReaction)
	require.NoError(t, err)
	assert.Equal(t, events.ReactionOut{ID: "m1", Emoji: "👍", Count: 1}, payload[events.ReactionOut](t, env))

	require.NoError(t, bob.UpdateLastSeen(ctx, "lobby", "bob", "m1"))
	require.NoError(t, bob.SetBackground(ctx, "lobby", "/uploads/bg.png"))
	_, err = alice.WaitFor(ctx, events.EventTypeBackgroundChange)
	require.NoError(t, err)

	cfg := chatclient.DefaultConfig()
	cfg.URL = "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	carol, err := chatclient.Dial(ctx, cfg)
	require.NoError(t, err)
	defer carol.Close()
	require.NoError(t, carol.Join(ctx, "lobby", "carol"))

	var got []string
	var history []events.MessageOut
	for {
		env, err := carol.Next(ctx)
		require.NoError(t, err)
		got = append(got, env.Type)
		if env.Type == events.EventTypeHistory {
			history = payload[[]events.MessageOut](t, env)
		}
		if env.Type == events.EventTypeJoined {
			break
		}
	}
	assert.Equal(t, []string{
		events.EventTypeLastSeenID,
		events.EventTypeHistory,
		events.EventTypeReaction,
		events.EventTypeBackgroundChange,
		events.EventTypeJoined,
	}, got)
	require.Len(t, history, 1)
	assert.Equal(t, "m1", history[0].ID)
	assert.Equal(t, "hello bob", history[0].Text)

	id, err := ts.store.GetLastSeen(ctx, "lobby", "bob")
	require.NoError(t, err)
	assert.Equal(t, "m1", id)
}

func TestGateway_FileMessageRoundTrip(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	ts := newTestServer(t)

	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	part, err := w.CreateFormFile("file", "photo.jpg")
	require.NoError(t, err)
	_, _ = part.Write([]byte("jpeg"))
	require.NoError(t, w.Close())

	resp, err := http.Post(ts.URL+"/upload", w.FormDataContentType(), body)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var up struct {
		URL string `json:"url"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&up))
	require.True(t, strings.HasPrefix(up.URL, "/uploads/"))

	served, err := http.Get(ts.URL + up.URL)
	require.NoError(t, err)
	raw, _ := io.ReadAll(served.Body)
	served.Body.Close()
	assert.Equal(t, "jpeg", string(raw))

	alice := ts.dial(t, ctx, "lobby", "alice")
	require.NoError(t, alice.SendFile(ctx, "lobby", "f1", up.URL, message.FileTypeImage))
	env, err := alice.WaitFor(ctx, events.EventTypeMessage)
	require.NoError(t, err)
	m := payload[events.MessageOut](t, env)
	assert.Equal(t, up.URL, m.FileURL)
	assert.Equal(t, message.FileTypeImage, m.FileType)
}

func TestGateway_HealthAndMetrics(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-Id"))

	resp, err = http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	raw, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(raw), "livechat_connections")
}
