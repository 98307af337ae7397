package service

import (
	"log"

	"taskdeck/internal/websocket"
)

// Notifier pushes change events to a user's live connections.
type Notifier interface {
	Notify(userID string, kind websocket.MessageType, op, id string, data interface{})
}

type nopNotifier struct{}

func (nopNotifier) Notify(string, websocket.MessageType, string, string, interface{}) {}

func orNop(n Notifier) Notifier {
	if n == nil {
		return nopNotifier{}
	}
	return n
}

// ChangeNotifier broadcasts changes through the websocket manager.
type ChangeNotifier struct {
	wsManager *websocket.Manager
}

func NewChangeNotifier(wsManager *websocket.Manager) *ChangeNotifier {
	return &ChangeNotifier{wsManager: wsManager}
}

func (n *ChangeNotifier) Notify(userID string, kind websocket.MessageType, op, id string, data interface{}) {
	msg, err := websocket.NewChangeMessage(kind, op, id, data)
	if err != nil {
		log.Printf("[Notify] failed to encode %s %s: %v", kind, id, err)
		return
	}

	if err := n.wsManager.BroadcastToUser(userID, msg, ""); err != nil {
		log.Printf("[Notify] failed to broadcast %s %s: %v", kind, id, err)
	}
}
