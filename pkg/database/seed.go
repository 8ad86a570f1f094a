package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/UthayakumarDevon/livechatapp/internal/domain/message"
	"github.com/UthayakumarDevon/livechatapp/internal/repository"
	chat_errors "github.com/UthayakumarDevon/livechatapp/pkg/errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SeedConfig holds configuration for seeding a demo room
type SeedConfig struct {
	Room            string
	Users           []string
	MessagesPerUser int
	Background      string
}

// DefaultSeedConfig returns default seed configuration
func DefaultSeedConfig() *SeedConfig {
	return &SeedConfig{
		Room:            "lobby",
		Users:           []string{"alice", "bob", "carol"},
		MessagesPerUser: 3,
	}
}

// SeedResult holds the result of the seeding operation
type SeedResult struct {
	Messages  []message.Message
	Reactions int
}

// Seed writes a short conversation into cfg.Room. Every seeded user reacts
// with a thumbs up to the first message.
func Seed(ctx context.Context, store repository.Store, cfg *SeedConfig, log *zap.Logger) (*SeedResult, error) {
	if cfg == nil {
		cfg = DefaultSeedConfig()
	}
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Room == "" || len(cfg.Users) == 0 {
		return nil, fmt.Errorf("seed needs a room and users: %w", chat_errors.ErrInvalidInput)
	}

	result := &SeedResult{}
	base := time.Now().Add(-time.Hour).UnixMilli()

	for i := 0; i < cfg.MessagesPerUser; i++ {
		for j, name := range cfg.Users {
			m := message.Message{
				ID:        uuid.NewString(),
				Room:      cfg.Room,
				Sender:    name,
				Text:      fmt.Sprintf("hello #%d from %s", i+1, name),
				Timestamp: base + int64(i*len(cfg.Users)+j)*1000,
			}
			if err := store.CreateMessage(ctx, m); err != nil {
				return nil, fmt.Errorf("failed to seed message: %w", err)
			}
			result.Messages = append(result.Messages, m)
		}
	}

	if len(result.Messages) > 0 {
		first := result.Messages[0]
		for _, name := range cfg.Users {
			r := message.Reaction{MessageID: first.ID, Room: cfg.Room, User: name, Emoji: "👍"}
			present, _, err := store.ToggleReaction(ctx, r)
			if err != nil {
				return nil, fmt.Errorf("failed to seed reaction: %w", err)
			}
			if present {
				result.Reactions++
			}
		}
	}

	if cfg.Background != "" {
		if err := store.SetRoomBackground(ctx, cfg.Room, cfg.Background); err != nil {
			return nil, fmt.Errorf("failed to seed background: %w", err)
		}
	}

	log.Info("Seeded room",
		zap.String("room", cfg.Room),
		zap.Int("messages", len(result.Messages)),
		zap.Int("reactions", result.Reactions),
	)
	return result, nil
}

// HasHistory reports whether room already holds messages.
func HasHistory(ctx context.Context, store repository.Store, room string) (bool, error) {
	msgs, err := store.ListMessagesByRoom(ctx, room)
	if errors.Is(err, chat_errors.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return len(msgs) > 0, nil
}
