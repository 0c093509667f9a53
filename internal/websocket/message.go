package websocket

import (
	"encoding/json"
	"time"
)

type MessageType string

const (
	// Server to Client
	MessageTypeConnected    MessageType = "CONNECTED"
	MessageTypeAccountEvent MessageType = "ACCOUNT_EVENT"
)

type Message struct {
	Type      MessageType     `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp int64           `json:"timestamp"`
}

func NewMessage(msgType MessageType, payload interface{}) (*Message, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Message{
		Type:      msgType,
		Payload:   payloadBytes,
		Timestamp: time.Now().UnixMilli(),
	}, nil
}

type ConnectedPayload struct {
	UserID      string `json:"userId"`
	Subscribers int    `json:"subscribers"`
}
