package websocket

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/UthayakumarDevon/livechatapp/internal/events"
	"github.com/UthayakumarDevon/livechatapp/internal/metrics"
	"github.com/UthayakumarDevon/livechatapp/internal/services"
	"github.com/UthayakumarDevon/livechatapp/internal/session"
	chat_errors "github.com/UthayakumarDevon/livechatapp/pkg/errors"

	"go.uber.org/zap"
)

// storeTimeout bounds every handler. The handler context is detached from
// the connection so a disconnect does not abort a write half way.
const storeTimeout = 10 * time.Second

// Dispatcher decodes inbound frames and routes them to the services.
type Dispatcher struct {
	join      *services.JoinService
	receipts  *services.ReceiptService
	reactions *services.ReactionService
	custom    *services.CustomizationService
	publisher *services.EventPublisher
	sessions  *session.Registry
	limiter   EventLimiter
	log       *WebSocketLogger
	metrics   *metrics.Metrics
}

type DispatcherDeps struct {
	Join      *services.JoinService
	Receipts  *services.ReceiptService
	Reactions *services.ReactionService
	Custom    *services.CustomizationService
	Publisher *services.EventPublisher
	Sessions  *session.Registry
	Limiter   EventLimiter
	Log       *WebSocketLogger
	Metrics   *metrics.Metrics
}

func NewDispatcher(d DispatcherDeps) *Dispatcher {
	if d.Log == nil {
		d.Log = NewWebSocketLogger(nil)
	}
	return &Dispatcher{
		join:      d.Join,
		receipts:  d.Receipts,
		reactions: d.Reactions,
		custom:    d.Custom,
		publisher: d.Publisher,
		sessions:  d.Sessions,
		limiter:   d.Limiter,
		log:       d.Log,
		metrics:   d.Metrics,
	}
}

// Dispatch handles one frame from connID to completion. Malformed or
// rate-limited frames are dropped with a warning; handler failures go back
// to the caller as an error event.
func (d *Dispatcher) Dispatch(ctx context.Context, connID string, frame []byte) {
	env, err := events.Decode(frame)
	if err != nil {
		d.drop(connID, "", metrics.DropMalformed, err)
		return
	}

	if limitedEvents[env.Type] && d.limiter != nil && !d.limiter.Allow(ctx, connID, env.Type) {
		d.metrics.Dropped(metrics.DropRateLimit)
		d.log.Warn("rate limit exceeded", connID, d.sessions.Name(connID), zap.String("msg_type", env.Type))
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), storeTimeout)
	defer cancel()

	if err := d.route(ctx, connID, env); err != nil {
		if errors.Is(err, chat_errors.ErrInvalidInput) {
			d.drop(connID, env.Type, metrics.DropMalformed, err)
			return
		}
		d.log.Error("handle_event_failed", connID, d.sessions.Name(connID), err, zap.String("msg_type", env.Type))
		d.publisher.Error(connID, env.Type, chat_errors.Code(err), err.Error())
		return
	}
	d.metrics.EventIn(env.Type)
}

func (d *Dispatcher) route(ctx context.Context, connID string, env events.Envelope) error {
	switch env.Type {
	case events.EventTypeJoin:
		var p events.JoinPayload
		if err := env.Bind(&p); err != nil {
			return err
		}
		return d.join.Join(ctx, connID, p.Room, p.Name)

	case events.EventTypeMessage:
		var p events.MessagePayload
		if err := env.Bind(&p); err != nil {
			return err
		}
		return d.receipts.SendText(ctx, connID, p)

	case events.EventTypeFileMessage:
		var p events.FileMessagePayload
		if err := env.Bind(&p); err != nil {
			return err
		}
		return d.receipts.SendFile(ctx, connID, p)

	case events.EventTypeSeen:
		var p events.SeenPayload
		if err := env.Bind(&p); err != nil {
			return err
		}
		return d.receipts.Seen(ctx, connID, p.Room, p.ID)

	case events.EventTypeUpdateLastSeen:
		var p events.UpdateLastSeenPayload
		if err := env.Bind(&p); err != nil {
			return err
		}
		return d.receipts.UpdateLastSeen(ctx, p.Room, p.User, p.ID)

	case events.EventTypeTyping:
		var p events.TypingPayload
		if err := env.Bind(&p); err != nil {
			return err
		}
		d.custom.Typing(connID, p.Room, p.Name, p.Typing)
		return nil

	case events.EventTypeReaction:
		var p events.ReactionPayload
		if err := env.Bind(&p); err != nil {
			return err
		}
		return d.reactions.Toggle(ctx, connID, p.Room, p.ID, p.Emoji)

	case events.EventTypeBackgroundChange:
		var p events.BackgroundPayload
		if err := env.Bind(&p); err != nil {
			return err
		}
		return d.custom.SetBackground(ctx, p.Room, p.URL)

	case events.EventTypeAvatarChange:
		var p events.AvatarPayload
		if err := env.Bind(&p); err != nil {
			return err
		}
		return d.custom.SetAvatar(ctx, p.Name, p.URL)

	default:
		return fmt.Errorf("unknown event type %q: %w", env.Type, chat_errors.ErrInvalidInput)
	}
}

func (d *Dispatcher) drop(connID, eventType, reason string, err error) {
	d.metrics.Dropped(reason)
	d.log.Warn("event dropped", connID, d.sessions.Name(connID),
		zap.String("msg_type", eventType),
		zap.String("reason", reason),
		zap.Error(err),
	)
}
