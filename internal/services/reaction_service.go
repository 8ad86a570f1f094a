package services

import (
	"context"
	"fmt"

	"github.com/UthayakumarDevon/livechatapp/internal/domain/message"
	"github.com/UthayakumarDevon/livechatapp/internal/events"
	"github.com/UthayakumarDevon/livechatapp/internal/keylock"
	"github.com/UthayakumarDevon/livechatapp/internal/metrics"
	"github.com/UthayakumarDevon/livechatapp/internal/repository"
	"github.com/UthayakumarDevon/livechatapp/internal/session"
	"github.com/UthayakumarDevon/livechatapp/pkg/logger"

	"go.uber.org/zap"
)

type ReactionService struct {
	store     repository.ReactionRepository
	sessions  *session.Registry
	publisher *EventPublisher
	locks     *keylock.Locker
	log       *zap.Logger
	metrics   *metrics.Metrics
}

func NewReactionService(store repository.ReactionRepository, sessions *session.Registry, publisher *EventPublisher, locks *keylock.Locker, log *zap.Logger, m *metrics.Metrics) *ReactionService {
	if log == nil {
		log = zap.NewNop()
	}
	if locks == nil {
		locks = keylock.New()
	}
	return &ReactionService{store: store, sessions: sessions, publisher: publisher, locks: locks, log: log, metrics: m}
}

// Toggle flips the reaction of the user on connID and broadcasts the new
// count, which may be zero. The broadcast happens under the key lock so the
// room sees counts in toggle order.
func (s *ReactionService) Toggle(ctx context.Context, connID, room, id, emoji string) error {
	r := message.Reaction{MessageID: id, Room: room, User: s.sessions.Name(connID), Emoji: emoji}

	return s.locks.Do(r.Key(), func() error {
		present, count, err := s.store.ToggleReaction(ctx, r)
		if err != nil {
			s.metrics.StoreError("toggle_reaction")
			return fmt.Errorf("toggle reaction: %w", err)
		}
		s.log.Debug("reaction_toggled", append(logger.ContextFields(ctx),
			zap.String("room", room),
			zap.String("msg_id", id),
			zap.String("user", r.User),
			zap.Bool("present", present),
			zap.Int("count", count),
		)...)
		s.publisher.ToRoom(room, events.EventTypeReaction, events.ReactionOut{ID: id, Emoji: emoji, Count: count})
		return nil
	})
}
