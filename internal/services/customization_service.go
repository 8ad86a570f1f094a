package services

import (
	"context"
	"fmt"

	"github.com/UthayakumarDevon/livechatapp/internal/events"
	"github.com/UthayakumarDevon/livechatapp/internal/metrics"
	"github.com/UthayakumarDevon/livechatapp/internal/repository"
	"github.com/UthayakumarDevon/livechatapp/internal/session"
)

// CustomizationService handles room backgrounds, user avatars and the
// typing indicator; none of them touch message state.
type CustomizationService struct {
	store     repository.CustomizationRepository
	sessions  *session.Registry
	publisher *EventPublisher
	metrics   *metrics.Metrics
}

func NewCustomizationService(store repository.CustomizationRepository, sessions *session.Registry, publisher *EventPublisher, m *metrics.Metrics) *CustomizationService {
	return &CustomizationService{store: store, sessions: sessions, publisher: publisher, metrics: m}
}

func (s *CustomizationService) SetBackground(ctx context.Context, room, url string) error {
	if err := s.store.SetRoomBackground(ctx, room, url); err != nil {
		s.metrics.StoreError("set_room_background")
		return fmt.Errorf("set background: %w", err)
	}
	s.publisher.ToRoom(room, events.EventTypeBackgroundChange, events.BackgroundOut{URL: url})
	return nil
}

// SetAvatar is global: every connection hears about it, joined or not.
func (s *CustomizationService) SetAvatar(ctx context.Context, name, url string) error {
	if err := s.store.SetUserAvatar(ctx, name, url); err != nil {
		s.metrics.StoreError("set_user_avatar")
		return fmt.Errorf("set avatar: %w", err)
	}
	s.publisher.ToAll(events.EventTypeAvatarChange, events.AvatarPayload{Name: name, URL: url})
	return nil
}

// Typing relays the indicator to the room. Nothing is stored. An empty name
// falls back to the session's display name.
func (s *CustomizationService) Typing(connID, room, name string, typing bool) {
	if name == "" {
		name = s.sessions.Name(connID)
	}
	s.publisher.ToRoom(room, events.EventTypeTyping, events.TypingOut{Name: name, Typing: typing})
}
