package repository

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/UthayakumarDevon/livechatapp/internal/domain/message"
	"github.com/UthayakumarDevon/livechatapp/internal/keylock"
	chat_errors "github.com/UthayakumarDevon/livechatapp/pkg/errors"

	"github.com/cockroachdb/pebble"
	"go.uber.org/zap"
)

// Key layout:
//
//	msg/<id>                                 -> message record (json)
//	room/<room>\x00<ts>-<seq>                -> message id, ordered history index
//	seen/<room>\x00<user>                    -> message id
//	react/<room>\x00<msgID>\x00<emoji>\x00<user> -> empty
//	bg/<room>                                -> url
//	avatar/<name>                            -> url
//	meta/seq                                 -> uint64 insertion counter
const (
	prefixMessage    = "msg/"
	prefixRoom       = "room/"
	prefixLastSeen   = "seen/"
	prefixReaction   = "react/"
	prefixBackground = "bg/"
	prefixAvatar     = "avatar/"
	keySeq           = "meta/seq"
	keySep           = "\x00"
)

type pebbleMessage struct {
	ID       string `json:"id"`
	Room     string `json:"room"`
	Sender   string `json:"sender"`
	Text     string `json:"text"`
	TS       int64  `json:"ts"`
	FileURL  string `json:"file_url,omitempty"`
	FileType string `json:"file_type,omitempty"`
	Seq      uint64 `json:"seq"`
}

// PebbleStore keeps the chat tables in an embedded Pebble database.
type PebbleStore struct {
	mu     sync.RWMutex // held for reading around every use of db
	db     *pebble.DB
	log    *zap.Logger
	locks  *keylock.Locker
	create sync.Mutex
	seq    uint64
}

func NewPebbleStore(path string, log *zap.Logger) (*PebbleStore, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log.Info("opening_pebble_db", zap.String("path", path))
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		log.Error("pebble_open_failed", zap.String("path", path), zap.Error(err))
		return nil, fmt.Errorf("open pebble at %s: %w", path, err)
	}

	s := &PebbleStore{db: db, log: log, locks: keylock.New()}
	raw, err := s.get([]byte(keySeq))
	switch {
	case err == nil && len(raw) == 8:
		s.seq = binary.BigEndian.Uint64(raw)
	case err != nil && !errors.Is(err, chat_errors.ErrNotFound):
		_ = db.Close()
		return nil, err
	}
	log.Info("pebble_opened", zap.String("path", path), zap.Uint64("seq", s.seq))
	return s, nil
}

func (s *PebbleStore) CreateMessage(ctx context.Context, m message.Message) error {
	if err := m.Validate(); err != nil {
		return err
	}
	if err := checkKeyParts(m.ID, m.Room); err != nil {
		return err
	}

	s.create.Lock()
	defer s.create.Unlock()

	msgKey := []byte(prefixMessage + m.ID)
	if _, err := s.get(msgKey); err == nil {
		return fmt.Errorf("message %s: %w", m.ID, chat_errors.ErrAlreadyExists)
	} else if !errors.Is(err, chat_errors.ErrNotFound) {
		return err
	}

	seq := s.seq + 1
	data, err := json.Marshal(pebbleMessage{
		ID:       m.ID,
		Room:     m.Room,
		Sender:   m.Sender,
		Text:     m.Text,
		TS:       m.Timestamp,
		FileURL:  m.FileURL,
		FileType: string(m.FileType),
		Seq:      seq,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	seqBuf := make([]byte, 8)
	binary.BigEndian.PutUint64(seqBuf, seq)

	db, release, err := s.acquire()
	if err != nil {
		return err
	}
	defer release()
	b := db.NewBatch()
	defer b.Close()
	_ = b.Set(msgKey, data, nil)
	_ = b.Set(roomIndexKey(m.Room, m.Timestamp, seq), []byte(m.ID), nil)
	_ = b.Set([]byte(keySeq), seqBuf, nil)
	if err := b.Commit(pebble.Sync); err != nil {
		s.log.Error("save_message_failed", zap.String("room", m.Room), zap.String("msg_id", m.ID), zap.Error(err))
		return err
	}
	s.seq = seq
	return nil
}

func (s *PebbleStore) GetMessage(ctx context.Context, room, id string) (message.Message, error) {
	raw, err := s.get([]byte(prefixMessage + id))
	if err != nil {
		return message.Message{}, err
	}
	m, err := decodeMessage(raw)
	if err != nil {
		return message.Message{}, err
	}
	if m.Room != room {
		return message.Message{}, chat_errors.ErrNotFound
	}
	return m, nil
}

func (s *PebbleStore) ListMessagesByRoom(ctx context.Context, room string) ([]message.Message, error) {
	var ids []string
	err := s.scan([]byte(prefixRoom+room+keySep), func(_, value []byte) error {
		ids = append(ids, string(value))
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := make([]message.Message, 0, len(ids))
	for _, id := range ids {
		raw, err := s.get([]byte(prefixMessage + id))
		if errors.Is(err, chat_errors.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		m, err := decodeMessage(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

func (s *PebbleStore) SetLastSeen(ctx context.Context, room, user, messageID string) error {
	if err := checkKeyParts(room, user); err != nil {
		return err
	}
	return s.set([]byte(prefixLastSeen+room+keySep+user), []byte(messageID))
}

func (s *PebbleStore) GetLastSeen(ctx context.Context, room, user string) (string, error) {
	raw, err := s.get([]byte(prefixLastSeen + room + keySep + user))
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func (s *PebbleStore) ToggleReaction(ctx context.Context, r message.Reaction) (bool, int, error) {
	if err := checkKeyParts(r.Room, r.MessageID, r.Emoji, r.User); err != nil {
		return false, 0, err
	}
	unlock := s.locks.Lock(r.Key())
	defer unlock()

	key := reactionKey(r)
	_, err := s.get(key)
	present := err == nil
	if err != nil && !errors.Is(err, chat_errors.ErrNotFound) {
		return false, 0, err
	}

	if present {
		err = s.delete(key)
	} else {
		err = s.set(key, nil)
	}
	if err != nil {
		s.log.Error("toggle_reaction_failed", zap.String("room", r.Room), zap.String("msg_id", r.MessageID), zap.Error(err))
		return false, 0, err
	}

	count, err := s.CountReactions(ctx, r.Room, r.MessageID, r.Emoji)
	if err != nil {
		return false, 0, err
	}
	return !present, count, nil
}

func (s *PebbleStore) CountReactions(ctx context.Context, room, messageID, emoji string) (int, error) {
	count := 0
	prefix := []byte(prefixReaction + room + keySep + messageID + keySep + emoji + keySep)
	err := s.scan(prefix, func(_, _ []byte) error {
		count++
		return nil
	})
	return count, err
}

func (s *PebbleStore) ListReactionTallies(ctx context.Context, room string) ([]message.ReactionTally, error) {
	prefix := prefixReaction + room + keySep
	type pair struct{ id, emoji string }
	counts := make(map[pair]int)
	err := s.scan([]byte(prefix), func(key, _ []byte) error {
		parts := strings.Split(strings.TrimPrefix(string(key), prefix), keySep)
		if len(parts) != 3 {
			return nil
		}
		counts[pair{parts[0], parts[1]}]++
		return nil
	})
	if err != nil {
		return nil, err
	}
	tallies := make([]message.ReactionTally, 0, len(counts))
	for p, c := range counts {
		tallies = append(tallies, message.ReactionTally{MessageID: p.id, Emoji: p.emoji, Count: c})
	}
	sortTallies(tallies)
	return tallies, nil
}

func (s *PebbleStore) SetRoomBackground(ctx context.Context, room, url string) error {
	return s.set([]byte(prefixBackground+room), []byte(url))
}

func (s *PebbleStore) GetRoomBackground(ctx context.Context, room string) (string, error) {
	return s.getURL([]byte(prefixBackground + room))
}

func (s *PebbleStore) SetUserAvatar(ctx context.Context, name, url string) error {
	return s.set([]byte(prefixAvatar+name), []byte(url))
}

func (s *PebbleStore) GetUserAvatar(ctx context.Context, name string) (string, error) {
	return s.getURL([]byte(prefixAvatar + name))
}

func (s *PebbleStore) GetUserAvatars(ctx context.Context, names []string) (map[string]string, error) {
	out := make(map[string]string, len(names))
	for _, name := range uniqueNames(names) {
		url, err := s.GetUserAvatar(ctx, name)
		if errors.Is(err, chat_errors.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out[name] = url
	}
	return out, nil
}

func (s *PebbleStore) Ping(ctx context.Context) error {
	_, release, err := s.acquire()
	if err != nil {
		return err
	}
	release()
	return nil
}

// Close waits for in-flight operations, then closes the database. Later
// calls fail with ErrStoreClosed.
func (s *PebbleStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	if err := s.db.Close(); err != nil {
		return err
	}
	s.db = nil
	s.log.Info("pebble_closed")
	return nil
}

// acquire read-locks the database for one operation. The caller must call
// release exactly once and must not acquire again before that.
func (s *PebbleStore) acquire() (db *pebble.DB, release func(), err error) {
	s.mu.RLock()
	if s.db == nil {
		s.mu.RUnlock()
		return nil, nil, chat_errors.ErrStoreClosed
	}
	return s.db, s.mu.RUnlock, nil
}

func (s *PebbleStore) set(key, value []byte) error {
	db, release, err := s.acquire()
	if err != nil {
		return err
	}
	defer release()
	return db.Set(key, value, pebble.Sync)
}

func (s *PebbleStore) delete(key []byte) error {
	db, release, err := s.acquire()
	if err != nil {
		return err
	}
	defer release()
	return db.Delete(key, pebble.Sync)
}

func (s *PebbleStore) get(key []byte) ([]byte, error) {
	db, release, err := s.acquire()
	if err != nil {
		return nil, err
	}
	defer release()
	val, closer, err := db.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, chat_errors.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	out := append([]byte(nil), val...)
	_ = closer.Close()
	return out, nil
}

func (s *PebbleStore) getURL(key []byte) (string, error) {
	raw, err := s.get(key)
	if err != nil {
		return "", err
	}
	if len(raw) == 0 {
		return "", chat_errors.ErrNotFound
	}
	return string(raw), nil
}

// scan visits every key with the given prefix in key order.
func (s *PebbleStore) scan(prefix []byte, fn func(key, value []byte) error) error {
	db, release, err := s.acquire()
	if err != nil {
		return err
	}
	defer release()
	iter, err := db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: upperBound(prefix),
	})
	if err != nil {
		return err
	}
	for iter.First(); iter.Valid(); iter.Next() {
		if err := fn(iter.Key(), iter.Value()); err != nil {
			_ = iter.Close()
			return err
		}
	}
	return iter.Close()
}

func decodeMessage(raw []byte) (message.Message, error) {
	var pm pebbleMessage
	if err := json.Unmarshal(raw, &pm); err != nil {
		return message.Message{}, fmt.Errorf("invalid message record: %w", err)
	}
	return message.Message{
		ID:        pm.ID,
		Room:      pm.Room,
		Sender:    pm.Sender,
		Text:      pm.Text,
		Timestamp: pm.TS,
		FileURL:   pm.FileURL,
		FileType:  message.FileType(pm.FileType),
	}, nil
}

func roomIndexKey(room string, ts int64, seq uint64) []byte {
	if ts < 0 {
		ts = 0
	}
	return []byte(fmt.Sprintf("%s%s%s%020d-%020d", prefixRoom, room, keySep, ts, seq))
}

func reactionKey(r message.Reaction) []byte {
	return []byte(prefixReaction + r.Room + keySep + r.MessageID + keySep + r.Emoji + keySep + r.User)
}

// upperBound returns the smallest key greater than every key with prefix.
func upperBound(prefix []byte) []byte {
	end := append([]byte(nil), prefix...)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}

// checkKeyParts rejects values that would corrupt the separator-based keys.
func checkKeyParts(parts ...string) error {
	for _, p := range parts {
		if strings.Contains(p, keySep) {
			return fmt.Errorf("value contains NUL byte: %w", chat_errors.ErrInvalidInput)
		}
	}
	return nil
}
