// Package chatclient is a small websocket client for the chat protocol. It
// is used by the terminal client and by end-to-end tests.
package chatclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/UthayakumarDevon/livechatapp/internal/domain/message"
	"github.com/UthayakumarDevon/livechatapp/internal/events"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

type Config struct {
	URL              string
	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
}

func DefaultConfig() Config {
	return Config{
		URL:              "ws://localhost:3000/ws",
		HandshakeTimeout: 10 * time.Second,
		WriteTimeout:     5 * time.Second,
	}
}

// Client is not safe for concurrent reads; one goroutine should call Next.
// Writes may come from any goroutine.
type Client struct {
	cfg Config
	ws  *websocket.Conn
}

// Dial connects to cfg.URL.
func Dial(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, errors.New("empty URL")
	}
	dialCtx := ctx
	if cfg.HandshakeTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, cfg.HandshakeTimeout)
		defer cancel()
	}
	ws, _, err := websocket.Dial(dialCtx, cfg.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", cfg.URL, err)
	}
	ws.SetReadLimit(4 << 20)
	return &Client{cfg: cfg, ws: ws}, nil
}

// Emit sends one event.
func (c *Client) Emit(ctx context.Context, eventType string, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	if c.cfg.WriteTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.WriteTimeout)
		defer cancel()
	}
	return wsjson.Write(ctx, c.ws, events.Envelope{Type: eventType, Data: raw})
}

// Next blocks until the next event arrives.
func (c *Client) Next(ctx context.Context) (events.Envelope, error) {
	var env events.Envelope
	if err := wsjson.Read(ctx, c.ws, &env); err != nil {
		return events.Envelope{}, err
	}
	return env, nil
}

// WaitFor reads until an event of eventType arrives, discarding others.
func (c *Client) WaitFor(ctx context.Context, eventType string) (events.Envelope, error) {
	for {
		env, err := c.Next(ctx)
		if err != nil {
			return events.Envelope{}, err
		}
		if env.Type == eventType {
			return env, nil
		}
	}
}

func (c *Client) Join(ctx context.Context, room, name string) error {
	return c.Emit(ctx, events.EventTypeJoin, events.JoinPayload{Room: room, Name: name})
}

func (c *Client) SendText(ctx context.Context, room, id, text string) error {
	return c.Emit(ctx, events.EventTypeMessage, events.MessagePayload{Room: room, ID: id, Text: text})
}

func (c *Client) SendFile(ctx context.Context, room, id, url string, ft message.FileType) error {
	return c.Emit(ctx, events.EventTypeFileMessage, events.FileMessagePayload{Room: room, ID: id, FileURL: url, FileType: ft})
}

func (c *Client) Seen(ctx context.Context, room, id string) error {
	return c.Emit(ctx, events.EventTypeSeen, events.SeenPayload{Room: room, ID: id})
}

func (c *Client) UpdateLastSeen(ctx context.Context, room, user, id string) error {
	return c.Emit(ctx, events.EventTypeUpdateLastSeen, events.UpdateLastSeenPayload{Room: room, User: user, ID: id})
}

func (c *Client) Typing(ctx context.Context, room, name string, typing bool) error {
	return c.Emit(ctx, events.EventTypeTyping, events.TypingPayload{Room: room, Name: name, Typing: typing})
}

func (c *Client) React(ctx context.Context, room, id, emoji string) error {
	return c.Emit(ctx, events.EventTypeReaction, events.ReactionPayload{Room: room, ID: id, Emoji: emoji})
}

func (c *Client) SetBackground(ctx context.Context, room, url string) error {
	return c.Emit(ctx, events.EventTypeBackgroundChange, events.BackgroundPayload{Room: room, URL: url})
}

func (c *Client) SetAvatar(ctx context.Context, name, url string) error {
	return c.Emit(ctx, events.EventTypeAvatarChange, events.AvatarPayload{Name: name, URL: url})
}

// Close sends a normal closure.
func (c *Client) Close() error {
	return c.ws.Close(websocket.StatusNormalClosure, "client close")
}

// IsClosed reports whether err means the connection went away normally.
func IsClosed(ctx context.Context, err error) bool {
	if err == nil {
		return false
	}
	if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
		return true
	}
	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		return true
	}
	return false
}
