package websocket

import (
	"encoding/json"
	"time"
)

type MessageType string

const (
	TypeTaskChanged      MessageType = "task_changed"
	TypeKnowledgeChanged MessageType = "knowledge_changed"
	TypeSprintChanged    MessageType = "sprint_changed"
	TypeWelcome          MessageType = "welcome"
	TypePing             MessageType = "ping"
	TypePong             MessageType = "pong"
	TypeError            MessageType = "error"
)

// Operations carried by change messages.
const (
	OpCreated = "created"
	OpUpdated = "updated"
	OpDeleted = "deleted"
)

type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// ChangePayload tells a user's other connections that an entity changed.
// Data holds the entity after the change and is empty for deletes.
type ChangePayload struct {
	ID        string          `json:"id"`
	Operation string          `json:"operation"`
	Data      json.RawMessage `json:"data,omitempty"`
}

type WelcomePayload struct {
	ClientID string `json:"client_id"`
	DeviceID string `json:"device_id"`
}

type ErrorPayload struct {
	Error string `json:"error"`
}

func NewMessage(msgType MessageType, payload interface{}) (*Message, error) {
	var payloadBytes json.RawMessage
	if payload != nil {
		bytes, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		payloadBytes = bytes
	}

	return &Message{
		Type:      msgType,
		Timestamp: time.Now().UTC(),
		Payload:   payloadBytes,
	}, nil
}

// NewChangeMessage builds a change notification for entity data.
func NewChangeMessage(msgType MessageType, op, id string, data interface{}) (*Message, error) {
	payload := ChangePayload{ID: id, Operation: op}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}
		payload.Data = raw
	}
	return NewMessage(msgType, payload)
}

func (m *Message) UnmarshalPayload(v interface{}) error {
	if m.Payload == nil {
		return nil
	}
	return json.Unmarshal(m.Payload, v)
}
