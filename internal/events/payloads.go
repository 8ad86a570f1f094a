package events

import (
	"fmt"
	"strings"

	"github.com/UthayakumarDevon/livechatapp/internal/domain/message"
	chat_errors "github.com/UthayakumarDevon/livechatapp/pkg/errors"
)

type Validator interface {
	Validate() error
}

func required(event string, fields map[string]string) error {
	for name, v := range fields {
		if strings.TrimSpace(v) == "" {
			return fmt.Errorf("%s: %s is required: %w", event, name, chat_errors.ErrInvalidInput)
		}
		if strings.ContainsRune(v, 0) {
			return fmt.Errorf("%s: %s contains NUL: %w", event, name, chat_errors.ErrInvalidInput)
		}
	}
	return nil
}

// ---- inbound ----

type JoinPayload struct {
	Room string `json:"room"`
	Name string `json:"name"`
}

func (p *JoinPayload) Validate() error {
	return required(EventTypeJoin, map[string]string{"room": p.Room, "name": p.Name})
}

type MessagePayload struct {
	Room string `json:"room"`
	ID   string `json:"id"`
	Text string `json:"text"`
}

func (p *MessagePayload) Validate() error {
	return required(EventTypeMessage, map[string]string{"room": p.Room, "id": p.ID})
}

type FileMessagePayload struct {
	Room     string           `json:"room"`
	ID       string           `json:"id"`
	FileURL  string           `json:"fileUrl"`
	FileType message.FileType `json:"fileType"`
}

func (p *FileMessagePayload) Validate() error {
	if err := required(EventTypeFileMessage, map[string]string{"room": p.Room, "id": p.ID, "fileUrl": p.FileURL}); err != nil {
		return err
	}
	if !p.FileType.Valid() {
		return fmt.Errorf("%s: unknown fileType %q: %w", EventTypeFileMessage, p.FileType, chat_errors.ErrInvalidInput)
	}
	return nil
}

type SeenPayload struct {
	Room string `json:"room"`
	ID   string `json:"id"`
}

func (p *SeenPayload) Validate() error {
	return required(EventTypeSeen, map[string]string{"room": p.Room, "id": p.ID})
}

type UpdateLastSeenPayload struct {
	Room string `json:"room"`
	User string `json:"user"`
	ID   string `json:"id"`
}

func (p *UpdateLastSeenPayload) Validate() error {
	return required(EventTypeUpdateLastSeen, map[string]string{"room": p.Room, "user": p.User, "id": p.ID})
}

type TypingPayload struct {
	Room   string `json:"room"`
	Name   string `json:"name"`
	Typing bool   `json:"typing"`
}

func (p *TypingPayload) Validate() error {
	return required(EventTypeTyping, map[string]string{"room": p.Room})
}

type ReactionPayload struct {
	Room  string `json:"room"`
	ID    string `json:"id"`
	Emoji string `json:"emoji"`
}

func (p *ReactionPayload) Validate() error {
	return required(EventTypeReaction, map[string]string{"room": p.Room, "id": p.ID, "emoji": p.Emoji})
}

type BackgroundPayload struct {
	Room string `json:"room"`
	URL  string `json:"url"`
}

func (p *BackgroundPayload) Validate() error {
	return required(EventTypeBackgroundChange, map[string]string{"room": p.Room, "url": p.URL})
}

// AvatarPayload is both the inbound request and the global broadcast.
type AvatarPayload struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

func (p *AvatarPayload) Validate() error {
	return required(EventTypeAvatarChange, map[string]string{"name": p.Name, "url": p.URL})
}

// ---- outbound ----

type JoinedPayload struct {
	Room string `json:"room"`
	Name string `json:"name"`
}

// MessageOut is a chat message as clients see it, in the live broadcast and
// in history. AvatarURL is null when the sender has none.
type MessageOut struct {
	ID        string           `json:"id"`
	Room      string           `json:"room,omitempty"`
	Sender    string           `json:"sender"`
	Text      string           `json:"text"`
	TS        int64            `json:"ts"`
	FileURL   string           `json:"fileUrl,omitempty"`
	FileType  message.FileType `json:"fileType,omitempty"`
	AvatarURL *string          `json:"avatarUrl"`
}

func NewMessageOut(m message.Message, avatarURL string) MessageOut {
	out := MessageOut{
		ID:       m.ID,
		Sender:   m.Sender,
		Text:     m.Text,
		TS:       m.Timestamp,
		FileURL:  m.FileURL,
		FileType: m.FileType,
	}
	if avatarURL != "" {
		out.AvatarURL = &avatarURL
	}
	return out
}

// NewHistoryItem is NewMessageOut with the room column kept.
func NewHistoryItem(e message.HistoryEntry) MessageOut {
	out := NewMessageOut(e.Message, e.AvatarURL)
	out.Room = e.Room
	return out
}

type DeliveredPayload struct {
	ID string `json:"id"`
}

type SeenOut struct {
	ID    string   `json:"id"`
	Names []string `json:"names"`
}

type TypingOut struct {
	Name   string `json:"name"`
	Typing bool   `json:"typing"`
}

type ReactionOut struct {
	ID    string `json:"id"`
	Emoji string `json:"emoji"`
	Count int    `json:"count"`
}

type BackgroundOut struct {
	URL string `json:"url"`
}

type ErrorPayload struct {
	Event   string `json:"event"`
	Code    string `json:"code"`
	Message string `json:"message"`
}
