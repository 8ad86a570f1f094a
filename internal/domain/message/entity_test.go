package message

import (
	"errors"
	"testing"

	chat_errors "github.com/UthayakumarDevon/livechatapp/pkg/errors"

	"github.com/stretchr/testify/assert"
)

func TestMessageValidate(t *testing.T) {
	tests := []struct {
		name    string
		msg     Message
		wantErr bool
	}{
		{name: "text", msg: Message{ID: "m1", Room: "r1", Text: "hi"}},
		{name: "file", msg: Message{ID: "m1", Room: "r1", FileURL: "/uploads/a.png", FileType: FileTypeImage}},
		{name: "missing id", msg: Message{Room: "r1"}, wantErr: true},
		{name: "missing room", msg: Message{ID: "m1"}, wantErr: true},
		{name: "bad file type", msg: Message{ID: "m1", Room: "r1", FileURL: "/x", FileType: "audio"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.msg.Validate()
			if tt.wantErr {
				assert.True(t, errors.Is(err, chat_errors.ErrInvalidInput))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestReactionKeyDistinguishesEmoji(t *testing.T) {
	a := Reaction{MessageID: "m1", Room: "r1", User: "alice", Emoji: "👍"}
	b := Reaction{MessageID: "m1", Room: "r1", User: "alice", Emoji: "❤️"}

	assert.NotEqual(t, a.Key(), b.Key())
	assert.Equal(t, a.Key(), a.Key())
	assert.NotEqual(t, LastSeenKey("r1", "alice"), LastSeenKey("r1", "bob"))
}
