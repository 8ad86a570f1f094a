package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/UthayakumarDevon/livechatapp/internal/domain/message"
	chat_errors "github.com/UthayakumarDevon/livechatapp/pkg/errors"
)

type storedMessage struct {
	msg message.Message
	seq uint64
}

// MemoryStore keeps every table in process memory. Nothing survives a
// restart; it backs tests and STORE_DRIVER=memory.
type MemoryStore struct {
	mu sync.RWMutex

	seq         uint64
	messages    map[string]storedMessage
	roomIndex   map[string][]string
	lastSeen    map[string]string
	reactions   map[message.Reaction]struct{}
	backgrounds map[string]string
	avatars     map[string]string
	closed      bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		messages:    make(map[string]storedMessage),
		roomIndex:   make(map[string][]string),
		lastSeen:    make(map[string]string),
		reactions:   make(map[message.Reaction]struct{}),
		backgrounds: make(map[string]string),
		avatars:     make(map[string]string),
	}
}

func (s *MemoryStore) CreateMessage(ctx context.Context, m message.Message) error {
	if err := m.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return chat_errors.ErrStoreClosed
	}
	if _, ok := s.messages[m.ID]; ok {
		return fmt.Errorf("message %s: %w", m.ID, chat_errors.ErrAlreadyExists)
	}
	s.seq++
	s.messages[m.ID] = storedMessage{msg: m, seq: s.seq}
	s.roomIndex[m.Room] = append(s.roomIndex[m.Room], m.ID)
	return nil
}

func (s *MemoryStore) GetMessage(ctx context.Context, room, id string) (message.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return message.Message{}, chat_errors.ErrStoreClosed
	}
	sm, ok := s.messages[id]
	if !ok || sm.msg.Room != room {
		return message.Message{}, chat_errors.ErrNotFound
	}
	return sm.msg, nil
}

func (s *MemoryStore) ListMessagesByRoom(ctx context.Context, room string) ([]message.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, chat_errors.ErrStoreClosed
	}
	ids := s.roomIndex[room]
	stored := make([]storedMessage, 0, len(ids))
	for _, id := range ids {
		stored = append(stored, s.messages[id])
	}
	sort.SliceStable(stored, func(i, j int) bool {
		if stored[i].msg.Timestamp != stored[j].msg.Timestamp {
			return stored[i].msg.Timestamp < stored[j].msg.Timestamp
		}
		return stored[i].seq < stored[j].seq
	})
	out := make([]message.Message, len(stored))
	for i, sm := range stored {
		out[i] = sm.msg
	}
	return out, nil
}

func (s *MemoryStore) SetLastSeen(ctx context.Context, room, user, messageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return chat_errors.ErrStoreClosed
	}
	s.lastSeen[message.LastSeenKey(room, user)] = messageID
	return nil
}

func (s *MemoryStore) GetLastSeen(ctx context.Context, room, user string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return "", chat_errors.ErrStoreClosed
	}
	id, ok := s.lastSeen[message.LastSeenKey(room, user)]
	if !ok {
		return "", chat_errors.ErrNotFound
	}
	return id, nil
}

func (s *MemoryStore) ToggleReaction(ctx context.Context, r message.Reaction) (bool, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, 0, chat_errors.ErrStoreClosed
	}
	_, present := s.reactions[r]
	if present {
		delete(s.reactions, r)
	} else {
		s.reactions[r] = struct{}{}
	}
	return !present, s.countLocked(r.Room, r.MessageID, r.Emoji), nil
}

func (s *MemoryStore) CountReactions(ctx context.Context, room, messageID, emoji string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0, chat_errors.ErrStoreClosed
	}
	return s.countLocked(room, messageID, emoji), nil
}

func (s *MemoryStore) countLocked(room, messageID, emoji string) int {
	count := 0
	for r := range s.reactions {
		if r.Room == room && r.MessageID == messageID && r.Emoji == emoji {
			count++
		}
	}
	return count
}

func (s *MemoryStore) ListReactionTallies(ctx context.Context, room string) ([]message.ReactionTally, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, chat_errors.ErrStoreClosed
	}
	type pair struct{ id, emoji string }
	counts := make(map[pair]int)
	for r := range s.reactions {
		if r.Room == room {
			counts[pair{r.MessageID, r.Emoji}]++
		}
	}
	tallies := make([]message.ReactionTally, 0, len(counts))
	for p, c := range counts {
		tallies = append(tallies, message.ReactionTally{MessageID: p.id, Emoji: p.emoji, Count: c})
	}
	sortTallies(tallies)
	return tallies, nil
}

func (s *MemoryStore) SetRoomBackground(ctx context.Context, room, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return chat_errors.ErrStoreClosed
	}
	s.backgrounds[room] = url
	return nil
}

func (s *MemoryStore) GetRoomBackground(ctx context.Context, room string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return "", chat_errors.ErrStoreClosed
	}
	url, ok := s.backgrounds[room]
	if !ok || url == "" {
		return "", chat_errors.ErrNotFound
	}
	return url, nil
}

func (s *MemoryStore) SetUserAvatar(ctx context.Context, name, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return chat_errors.ErrStoreClosed
	}
	s.avatars[name] = url
	return nil
}

func (s *MemoryStore) GetUserAvatar(ctx context.Context, name string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return "", chat_errors.ErrStoreClosed
	}
	url, ok := s.avatars[name]
	if !ok || url == "" {
		return "", chat_errors.ErrNotFound
	}
	return url, nil
}

func (s *MemoryStore) GetUserAvatars(ctx context.Context, names []string) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, chat_errors.ErrStoreClosed
	}
	out := make(map[string]string, len(names))
	for _, name := range names {
		if url, ok := s.avatars[name]; ok && url != "" {
			out[name] = url
		}
	}
	return out, nil
}

func (s *MemoryStore) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return chat_errors.ErrStoreClosed
	}
	return nil
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}
