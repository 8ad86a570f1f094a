package message

import (
	"fmt"
	"strings"

	chat_errors "github.com/UthayakumarDevon/livechatapp/pkg/errors"
)

// FileType classifies the attachment of a file message.
type FileType string

const (
	FileTypeImage FileType = "image"
	FileTypeVideo FileType = "video"
	FileTypeFile  FileType = "file"
)

func (f FileType) Valid() bool {
	switch f {
	case FileTypeImage, FileTypeVideo, FileTypeFile:
		return true
	}
	return false
}

// DefaultSender is recorded when a connection sends before joining.
const DefaultSender = "Anon"

// Message represents the messages table. Immutable once stored.
type Message struct {
	ID        string
	Room      string
	Sender    string
	Text      string
	Timestamp int64 // unix milliseconds
	FileURL   string
	FileType  FileType
}

func (m Message) HasFile() bool {
	return m.FileURL != ""
}

// Validate checks the fields every stored message needs.
func (m Message) Validate() error {
	if strings.TrimSpace(m.ID) == "" {
		return fmt.Errorf("message id is required: %w", chat_errors.ErrInvalidInput)
	}
	if strings.TrimSpace(m.Room) == "" {
		return fmt.Errorf("message room is required: %w", chat_errors.ErrInvalidInput)
	}
	if m.HasFile() && !m.FileType.Valid() {
		return fmt.Errorf("unknown file type %q: %w", m.FileType, chat_errors.ErrInvalidInput)
	}
	return nil
}

// HistoryEntry is a stored message joined with the sender's current avatar.
type HistoryEntry struct {
	Message
	AvatarURL string
}

// Reaction represents one membership row of the reactions table.
type Reaction struct {
	MessageID string
	Room      string
	User      string
	Emoji     string
}

// Key identifies the reaction row; toggles on the same key are serialized.
func (r Reaction) Key() string {
	return "reaction\x00" + r.MessageID + "\x00" + r.Room + "\x00" + r.User + "\x00" + r.Emoji
}

// ReactionTally is the aggregate count for one (message, emoji) pair.
type ReactionTally struct {
	MessageID string
	Emoji     string
	Count     int
}

// LastSeenKey identifies the last-seen pointer of a user in a room.
func LastSeenKey(room, user string) string {
	return "last_seen\x00" + room + "\x00" + user
}
