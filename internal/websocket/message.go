package websocket

import (
	"encoding/json"

	"github.com/rs/zerolog/log"
)

// Message defines the structure for websocket messages.
type Message struct {
	Action  string `json:"action"`
	Payload any    `json:"payload"`
}

// NewMessage encodes a message for sending to clients.
func NewMessage(action string, payload any) []byte {
	b, err := json.Marshal(Message{Action: action, Payload: payload})
	if err != nil {
		log.Error().Err(err).Str("action", action).Msg("Failed to encode websocket message")
		return nil
	}
	return b
}

// NewErrorMessage builds an "error" message with a human-readable text.
func NewErrorMessage(text string) []byte {
	return NewMessage("error", map[string]string{"message": text})
}
