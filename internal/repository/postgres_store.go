package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/UthayakumarDevon/livechatapp/internal/domain/message"
	chat_errors "github.com/UthayakumarDevon/livechatapp/pkg/errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PostgresStore struct {
	db *gorm.DB
}

func NewPostgresStore(db *gorm.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) CreateMessage(ctx context.Context, m message.Message) error {
	if err := m.Validate(); err != nil {
		return err
	}
	row := newMessageRow(m)
	res := s.db.WithContext(ctx).Create(&row)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) || isUniqueViolation(res.Error) {
			return fmt.Errorf("message %s: %w", m.ID, chat_errors.ErrAlreadyExists)
		}
		return res.Error
	}
	return nil
}

func (s *PostgresStore) GetMessage(ctx context.Context, room, id string) (message.Message, error) {
	var row messageRow
	err := s.db.WithContext(ctx).Where("id = ? AND room = ?", id, room).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return message.Message{}, chat_errors.ErrNotFound
		}
		return message.Message{}, err
	}
	return row.toMessage(), nil
}

func (s *PostgresStore) ListMessagesByRoom(ctx context.Context, room string) ([]message.Message, error) {
	var rows []messageRow
	err := s.db.WithContext(ctx).
		Where("room = ?", room).
		Order("ts ASC").
		Order("seq ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]message.Message, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toMessage())
	}
	return out, nil
}

func (s *PostgresStore) SetLastSeen(ctx context.Context, room, user, messageID string) error {
	row := lastSeenRow{Room: room, UserName: user, MsgID: messageID}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&row).Error
}

func (s *PostgresStore) GetLastSeen(ctx context.Context, room, user string) (string, error) {
	var row lastSeenRow
	err := s.db.WithContext(ctx).Where("room = ? AND user_name = ?", room, user).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", chat_errors.ErrNotFound
		}
		return "", err
	}
	return row.MsgID, nil
}

func (s *PostgresStore) ToggleReaction(ctx context.Context, r message.Reaction) (bool, int, error) {
	var present bool
	var count int
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("msg_id = ? AND room = ? AND user_name = ? AND emoji = ?",
			r.MessageID, r.Room, r.User, r.Emoji).
			Delete(&reactionRow{})
		if res.Error != nil {
			return res.Error
		}
		present = false
		if res.RowsAffected == 0 {
			row := reactionRow{MsgID: r.MessageID, Room: r.Room, UserName: r.User, Emoji: r.Emoji}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error; err != nil {
				return err
			}
			present = true
		}

		n, err := countReactions(tx, r.Room, r.MessageID, r.Emoji)
		if err != nil {
			return err
		}
		count = n
		return nil
	})
	if err != nil {
		return false, 0, err
	}
	return present, count, nil
}

func (s *PostgresStore) CountReactions(ctx context.Context, room, messageID, emoji string) (int, error) {
	return countReactions(s.db.WithContext(ctx), room, messageID, emoji)
}

func countReactions(db *gorm.DB, room, messageID, emoji string) (int, error) {
	var count int64
	err := db.Model(&reactionRow{}).
		Where("room = ? AND msg_id = ? AND emoji = ?", room, messageID, emoji).
		Count(&count).Error
	return int(count), err
}

type tallyRow struct {
	MsgID string
	Emoji string
	Count int
}

func (s *PostgresStore) ListReactionTallies(ctx context.Context, room string) ([]message.ReactionTally, error) {
	var rows []tallyRow
	err := s.db.WithContext(ctx).
		Model(&reactionRow{}).
		Select("msg_id, emoji, COUNT(*) AS count").
		Where("room = ?", room).
		Group("msg_id, emoji").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	tallies := make([]message.ReactionTally, 0, len(rows))
	for _, r := range rows {
		tallies = append(tallies, message.ReactionTally{MessageID: r.MsgID, Emoji: r.Emoji, Count: r.Count})
	}
	sortTallies(tallies)
	return tallies, nil
}

func (s *PostgresStore) SetRoomBackground(ctx context.Context, room, url string) error {
	row := roomBackgroundRow{Room: room, URL: url}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&row).Error
}

func (s *PostgresStore) GetRoomBackground(ctx context.Context, room string) (string, error) {
	var row roomBackgroundRow
	err := s.db.WithContext(ctx).Where("room = ?", room).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", chat_errors.ErrNotFound
		}
		return "", err
	}
	if row.URL == "" {
		return "", chat_errors.ErrNotFound
	}
	return row.URL, nil
}

func (s *PostgresStore) SetUserAvatar(ctx context.Context, name, url string) error {
	row := userRow{Name: name, AvatarURL: url}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&row).Error
}

func (s *PostgresStore) GetUserAvatar(ctx context.Context, name string) (string, error) {
	var row userRow
	err := s.db.WithContext(ctx).Where("name = ?", name).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", chat_errors.ErrNotFound
		}
		return "", err
	}
	if row.AvatarURL == "" {
		return "", chat_errors.ErrNotFound
	}
	return row.AvatarURL, nil
}

func (s *PostgresStore) GetUserAvatars(ctx context.Context, names []string) (map[string]string, error) {
	out := make(map[string]string, len(names))
	if len(names) == 0 {
		return out, nil
	}
	var rows []userRow
	err := s.db.WithContext(ctx).
		Where("name IN ? AND avatar_url <> ''", uniqueNames(names)).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		out[r.Name] = r.AvatarURL
	}
	return out, nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *PostgresStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
