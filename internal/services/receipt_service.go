package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/UthayakumarDevon/livechatapp/internal/domain/message"
	"github.com/UthayakumarDevon/livechatapp/internal/events"
	"github.com/UthayakumarDevon/livechatapp/internal/keylock"
	"github.com/UthayakumarDevon/livechatapp/internal/metrics"
	"github.com/UthayakumarDevon/livechatapp/internal/repository"
	"github.com/UthayakumarDevon/livechatapp/internal/session"
	chat_errors "github.com/UthayakumarDevon/livechatapp/pkg/errors"
	"github.com/UthayakumarDevon/livechatapp/pkg/logger"

	"go.uber.org/zap"
)

// ReceiptService drives a message through Sent, Delivered and Seen, and
// keeps the per-user last-seen pointers.
type ReceiptService struct {
	store     repository.Store
	sessions  *session.Registry
	publisher *EventPublisher
	locks     *keylock.Locker
	log       *zap.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
}

func NewReceiptService(store repository.Store, sessions *session.Registry, publisher *EventPublisher, locks *keylock.Locker, log *zap.Logger, m *metrics.Metrics) *ReceiptService {
	if log == nil {
		log = zap.NewNop()
	}
	if locks == nil {
		locks = keylock.New()
	}
	return &ReceiptService{
		store:     store,
		sessions:  sessions,
		publisher: publisher,
		locks:     locks,
		log:       log,
		metrics:   m,
		now:       time.Now,
	}
}

// SendText stores a text message from connID and announces it.
func (s *ReceiptService) SendText(ctx context.Context, connID string, p events.MessagePayload) error {
	return s.send(ctx, connID, message.Message{ID: p.ID, Room: p.Room, Text: p.Text})
}

// SendFile stores a file message from connID and announces it.
func (s *ReceiptService) SendFile(ctx context.Context, connID string, p events.FileMessagePayload) error {
	return s.send(ctx, connID, message.Message{ID: p.ID, Room: p.Room, FileURL: p.FileURL, FileType: p.FileType})
}

// send persists m and, only once that succeeds, broadcasts message and then
// delivered to the room.
func (s *ReceiptService) send(ctx context.Context, connID string, m message.Message) error {
	m.Sender = s.sessions.Name(connID)
	m.Timestamp = s.now().UnixMilli()

	avatar, err := optional(s.store.GetUserAvatar(ctx, m.Sender))
	if err != nil {
		s.log.Warn("sender_avatar_lookup_failed", append(logger.ContextFields(ctx),
			zap.String("sender", m.Sender), zap.Error(err))...)
		avatar = ""
	}

	if err := s.store.CreateMessage(ctx, m); err != nil {
		if !errors.Is(err, chat_errors.ErrAlreadyExists) && !errors.Is(err, chat_errors.ErrInvalidInput) {
			s.metrics.StoreError("create_message")
		}
		return fmt.Errorf("store message %s: %w", m.ID, err)
	}

	s.publisher.ToRoom(m.Room, events.EventTypeMessage, events.NewMessageOut(m, avatar))
	s.publisher.ToRoom(m.Room, events.EventTypeDelivered, events.DeliveredPayload{ID: m.ID})
	return nil
}

// Seen announces that the viewer on connID has seen message id. Unknown
// messages and a sender viewing their own message produce nothing.
func (s *ReceiptService) Seen(ctx context.Context, connID, room, id string) error {
	viewer := s.sessions.Name(connID)

	m, err := s.store.GetMessage(ctx, room, id)
	if errors.Is(err, chat_errors.ErrNotFound) {
		return nil
	}
	if err != nil {
		s.metrics.StoreError("get_message")
		return fmt.Errorf("lookup seen message %s: %w", id, err)
	}
	if m.Sender == "" || viewer == m.Sender {
		return nil
	}

	s.publisher.ToRoom(room, events.EventTypeSeen, events.SeenOut{ID: id, Names: []string{viewer, m.Sender}})
	return nil
}

// UpdateLastSeen moves the pointer of (room, user). Writes for the same pair
// are serialized; the last one wins.
func (s *ReceiptService) UpdateLastSeen(ctx context.Context, room, user, id string) error {
	return s.locks.Do(message.LastSeenKey(room, user), func() error {
		if err := s.store.SetLastSeen(ctx, room, user, id); err != nil {
			s.metrics.StoreError("set_last_seen")
			return fmt.Errorf("set last seen: %w", err)
		}
		return nil
	})
}
