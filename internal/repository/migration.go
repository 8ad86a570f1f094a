package repository

import (
	"context"
	"fmt"

	"github.com/UthayakumarDevon/livechatapp/internal/domain/message"

	"gorm.io/gorm"
)

// messageRow maps the messages table. Seq records insertion order so equal
// timestamps replay in the order they were stored.
type messageRow struct {
	Seq      int64  `gorm:"column:seq;autoIncrement;not null;index:idx_messages_room_ts,priority:3"`
	ID       string `gorm:"column:id;primaryKey"`
	Room     string `gorm:"column:room;not null;index:idx_messages_room_ts,priority:1"`
	Sender   string `gorm:"column:sender;not null"`
	Text     string `gorm:"column:text;not null;default:''"`
	TS       int64  `gorm:"column:ts;not null;index:idx_messages_room_ts,priority:2"`
	FileURL  string `gorm:"column:file_url;not null;default:''"`
	FileType string `gorm:"column:file_type;not null;default:''"`
}

func (messageRow) TableName() string { return "messages" }

func newMessageRow(m message.Message) messageRow {
	return messageRow{
		ID:       m.ID,
		Room:     m.Room,
		Sender:   m.Sender,
		Text:     m.Text,
		TS:       m.Timestamp,
		FileURL:  m.FileURL,
		FileType: string(m.FileType),
	}
}

func (r messageRow) toMessage() message.Message {
	return message.Message{
		ID:        r.ID,
		Room:      r.Room,
		Sender:    r.Sender,
		Text:      r.Text,
		Timestamp: r.TS,
		FileURL:   r.FileURL,
		FileType:  message.FileType(r.FileType),
	}
}

type lastSeenRow struct {
	Room     string `gorm:"column:room;primaryKey"`
	UserName string `gorm:"column:user_name;primaryKey"`
	MsgID    string `gorm:"column:msg_id;not null"`
}

func (lastSeenRow) TableName() string { return "last_seen" }

type reactionRow struct {
	MsgID    string `gorm:"column:msg_id;primaryKey;index:idx_reactions_room_msg,priority:2"`
	Room     string `gorm:"column:room;primaryKey;index:idx_reactions_room_msg,priority:1"`
	UserName string `gorm:"column:user_name;primaryKey"`
	Emoji    string `gorm:"column:emoji;primaryKey;index:idx_reactions_room_msg,priority:3"`
}

func (reactionRow) TableName() string { return "reactions" }

type roomBackgroundRow struct {
	Room string `gorm:"column:room;primaryKey"`
	URL  string `gorm:"column:url;not null"`
}

func (roomBackgroundRow) TableName() string { return "room_backgrounds" }

type userRow struct {
	Name      string `gorm:"column:name;primaryKey"`
	AvatarURL string `gorm:"column:avatar_url;not null;default:''"`
}

func (userRow) TableName() string { return "users" }

// Tables lists the chat tables in creation order.
var Tables = []string{"messages", "last_seen", "reactions", "room_backgrounds", "users"}

func models() []interface{} {
	return []interface{}{
		&messageRow{},
		&lastSeenRow{},
		&reactionRow{},
		&roomBackgroundRow{},
		&userRow{},
	}
}

// InitSchema creates or updates the chat tables.
func InitSchema(ctx context.Context, db *gorm.DB) error {
	if err := db.WithContext(ctx).AutoMigrate(models()...); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

func DropSchema(ctx context.Context, db *gorm.DB) error {
	all := models()
	migrator := db.WithContext(ctx).Migrator()
	for i := len(all) - 1; i >= 0; i-- {
		if err := migrator.DropTable(all[i]); err != nil {
			return fmt.Errorf("failed to drop %s: %w", Tables[i], err)
		}
	}
	return nil
}

// TruncateAll deletes every row while keeping the tables.
func TruncateAll(ctx context.Context, db *gorm.DB) error {
	tx := db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true})
	for i, m := range models() {
		if err := tx.Delete(m).Error; err != nil {
			return fmt.Errorf("failed to truncate %s: %w", Tables[i], err)
		}
	}
	return nil
}
