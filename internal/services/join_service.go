package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/UthayakumarDevon/livechatapp/internal/domain/message"
	"github.com/UthayakumarDevon/livechatapp/internal/events"
	"github.com/UthayakumarDevon/livechatapp/internal/metrics"
	"github.com/UthayakumarDevon/livechatapp/internal/repository"
	"github.com/UthayakumarDevon/livechatapp/internal/session"
	chat_errors "github.com/UthayakumarDevon/livechatapp/pkg/errors"
	"github.com/UthayakumarDevon/livechatapp/pkg/logger"

	"go.uber.org/zap"
)

// JoinService binds a connection to a room and replays the room state to
// that connection only.
type JoinService struct {
	store     repository.Store
	sessions  *session.Registry
	hub       Broadcaster
	publisher *EventPublisher
	log       *zap.Logger
	metrics   *metrics.Metrics
}

func NewJoinService(store repository.Store, sessions *session.Registry, hub Broadcaster, publisher *EventPublisher, log *zap.Logger, m *metrics.Metrics) *JoinService {
	if log == nil {
		log = zap.NewNop()
	}
	return &JoinService{store: store, sessions: sessions, hub: hub, publisher: publisher, log: log, metrics: m}
}

// replay is everything read from the store before the first frame is sent.
type replay struct {
	lastSeen   *string
	history    []events.MessageOut
	tallies    []message.ReactionTally
	background string
	avatar     string
}

// Join records membership first so no live event published after this point
// is missed, then replays: lastSeenId, history, reaction tallies,
// backgroundChange, avatarChange and finally joined. If any read fails the
// caller gets an error event in place of the replay. Replay frames wait for
// send buffer space, bounded by ctx, so joined always arrives last.
func (s *JoinService) Join(ctx context.Context, connID, room, name string) error {
	s.sessions.Join(connID, room, name)
	s.hub.JoinRoom(connID, room)

	r, err := s.load(ctx, room, name)
	if err != nil {
		return err
	}

	for _, f := range r.frames(room, name) {
		if err := s.publisher.Replay(ctx, connID, f.eventType, f.data); err != nil {
			return fmt.Errorf("join replay %s: %w", f.eventType, err)
		}
	}

	s.log.Debug("room_joined", append(logger.ContextFields(ctx),
		zap.String("room", room),
		zap.String("name", name),
		zap.Int("history", len(r.history)),
		zap.Int("tallies", len(r.tallies)),
	)...)
	return nil
}

type replayFrame struct {
	eventType string
	data      any
}

// frames lists the replay in send order.
func (r *replay) frames(room, name string) []replayFrame {
	out := make([]replayFrame, 0, len(r.tallies)+5)
	out = append(out,
		replayFrame{events.EventTypeLastSeenID, r.lastSeen},
		replayFrame{events.EventTypeHistory, r.history},
	)
	for _, t := range r.tallies {
		if t.Count > 0 {
			out = append(out, replayFrame{events.EventTypeReaction, events.ReactionOut{ID: t.MessageID, Emoji: t.Emoji, Count: t.Count}})
		}
	}
	if r.background != "" {
		out = append(out, replayFrame{events.EventTypeBackgroundChange, events.BackgroundOut{URL: r.background}})
	}
	if r.avatar != "" {
		out = append(out, replayFrame{events.EventTypeAvatarChange, events.AvatarPayload{Name: name, URL: r.avatar}})
	}
	return append(out, replayFrame{events.EventTypeJoined, events.JoinedPayload{Room: room, Name: name}})
}

func (s *JoinService) load(ctx context.Context, room, name string) (*replay, error) {
	r := &replay{}

	id, err := s.store.GetLastSeen(ctx, room, name)
	switch {
	case err == nil:
		r.lastSeen = &id
	case !errors.Is(err, chat_errors.ErrNotFound):
		return nil, s.readFailed("get_last_seen", err)
	}

	msgs, err := s.store.ListMessagesByRoom(ctx, room)
	if err != nil {
		return nil, s.readFailed("list_messages", err)
	}
	senders := make([]string, 0, len(msgs))
	for _, m := range msgs {
		senders = append(senders, m.Sender)
	}
	avatars, err := s.store.GetUserAvatars(ctx, senders)
	if err != nil {
		return nil, s.readFailed("get_user_avatars", err)
	}
	r.history = make([]events.MessageOut, 0, len(msgs))
	for _, m := range msgs {
		r.history = append(r.history, events.NewHistoryItem(message.HistoryEntry{Message: m, AvatarURL: avatars[m.Sender]}))
	}

	if r.tallies, err = s.store.ListReactionTallies(ctx, room); err != nil {
		return nil, s.readFailed("list_reaction_tallies", err)
	}

	if r.background, err = optional(s.store.GetRoomBackground(ctx, room)); err != nil {
		return nil, s.readFailed("get_room_background", err)
	}
	if r.avatar, err = optional(s.store.GetUserAvatar(ctx, name)); err != nil {
		return nil, s.readFailed("get_user_avatar", err)
	}
	return r, nil
}

func (s *JoinService) readFailed(op string, err error) error {
	s.metrics.StoreError(op)
	return fmt.Errorf("join replay %s: %w", op, err)
}

// optional maps ErrNotFound to the zero value.
func optional(v string, err error) (string, error) {
	if errors.Is(err, chat_errors.ErrNotFound) {
		return "", nil
	}
	return v, err
}
