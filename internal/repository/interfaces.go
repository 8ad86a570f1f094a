package repository

import (
	"context"

	"github.com/UthayakumarDevon/livechatapp/internal/domain/message"
)

// Absent rows are reported as chat_errors.ErrNotFound by every getter.

type MessageRepository interface {
	// CreateMessage inserts m. A second message with the same id is rejected
	// with ErrAlreadyExists; stored messages are never replaced.
	CreateMessage(ctx context.Context, m message.Message) error
	GetMessage(ctx context.Context, room, id string) (message.Message, error)
	// ListMessagesByRoom returns the room history ordered by timestamp,
	// ties broken by insertion order.
	ListMessagesByRoom(ctx context.Context, room string) ([]message.Message, error)
}

type LastSeenRepository interface {
	SetLastSeen(ctx context.Context, room, user, messageID string) error
	GetLastSeen(ctx context.Context, room, user string) (string, error)
}

type ReactionRepository interface {
	// ToggleReaction deletes the row when present and inserts it otherwise,
	// returning whether it is present afterwards and the recomputed count for
	// (room, message, emoji).
	ToggleReaction(ctx context.Context, r message.Reaction) (present bool, count int, err error)
	CountReactions(ctx context.Context, room, messageID, emoji string) (int, error)
	// ListReactionTallies returns every (message, emoji) pair of the room with
	// a positive count.
	ListReactionTallies(ctx context.Context, room string) ([]message.ReactionTally, error)
}

type CustomizationRepository interface {
	SetRoomBackground(ctx context.Context, room, url string) error
	GetRoomBackground(ctx context.Context, room string) (string, error)
	SetUserAvatar(ctx context.Context, name, url string) error
	GetUserAvatar(ctx context.Context, name string) (string, error)
	// GetUserAvatars returns the avatars known for names; names without one
	// are omitted from the map.
	GetUserAvatars(ctx context.Context, names []string) (map[string]string, error)
}

// Store is the full set of durable tables behind the chat server.
type Store interface {
	MessageRepository
	LastSeenRepository
	ReactionRepository
	CustomizationRepository

	Ping(ctx context.Context) error
	Close() error
}
