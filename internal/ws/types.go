package ws

import (
	"encoding/json"
)

// MessageType represents the different kinds of messages our system can handle
type MessageType string

const (
	MessageTypeMove       MessageType = "move"
	MessageTypeGameState  MessageType = "gameState"
	MessageTypeSearchInfo MessageType = "searchInfo"
	MessageTypeResign     MessageType = "resign"
	MessageTypeError      MessageType = "error"
)

// Message represents a WebSocket message in our system
type Message struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// NewMessage marshals payload into a message of type t.
func NewMessage(t MessageType, payload any) (Message, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Message{}, err
	}
	return Message{Type: t, Payload: data}, nil
}

// SearchInfo is sent to the players while the engine is thinking.
type SearchInfo struct {
	Depth     int      `json:"depth"`
	Score     int      `json:"score"`
	Mate      bool     `json:"mate"`
	Nodes     int64    `json:"nodes"`
	ElapsedMs int64    `json:"elapsedMs"`
	PV        []string `json:"pv"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}
