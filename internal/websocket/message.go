package websocket

import (
	"encoding/json"

	"github.com/rs/zerolog/log"
)

// Message defines the structure for websocket messages.
type Message struct {
	Action  string      `json:"action"`
	Payload interface{} `json:"payload"`
}

// Encode marshals a message, falling back to an error frame.
func Encode(action string, payload interface{}) []byte {
	data, err := json.Marshal(Message{Action: action, Payload: payload})
	if err != nil {
		log.Error().Err(err).Str("action", action).Msg("Failed to encode websocket message")
		return NewErrorMessage("internal error")
	}
	return data
}

// NewErrorMessage builds an error frame for a client.
func NewErrorMessage(msg string) []byte {
	data, _ := json.Marshal(Message{Action: "error", Payload: map[string]string{"message": msg}})
	return data
}
