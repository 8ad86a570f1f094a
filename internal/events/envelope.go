package events

import (
	"encoding/json"
	"fmt"
	"strings"

	chat_errors "github.com/UthayakumarDevon/livechatapp/pkg/errors"
)

// Envelope is the frame carried by every websocket message.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Encode builds a frame of the given type around data.
func Encode(eventType string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", eventType, err)
	}
	return json.Marshal(Envelope{Type: eventType, Data: raw})
}

// Decode parses a frame. A frame without a type is rejected.
func Decode(frame []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return Envelope{}, fmt.Errorf("malformed frame: %w", chat_errors.ErrInvalidInput)
	}
	if strings.TrimSpace(env.Type) == "" {
		return Envelope{}, fmt.Errorf("frame without type: %w", chat_errors.ErrInvalidInput)
	}
	return env, nil
}

// Bind unmarshals the payload into dst and runs its validation.
func (e Envelope) Bind(dst Validator) error {
	if len(e.Data) == 0 || string(e.Data) == "null" {
		return fmt.Errorf("%s: missing payload: %w", e.Type, chat_errors.ErrInvalidInput)
	}
	if err := json.Unmarshal(e.Data, dst); err != nil {
		return fmt.Errorf("%s: bad payload: %w", e.Type, chat_errors.ErrInvalidInput)
	}
	return dst.Validate()
}
