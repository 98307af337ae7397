package handler

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"taskdeck/internal/websocket"
	"taskdeck/pkg/jwt"

	"github.com/google/uuid"
	ws "github.com/gorilla/websocket"
)

type WebSocketHandler struct {
	manager   *websocket.Manager
	jwtSecret string
	upgrader  ws.Upgrader
}

func NewWebSocketHandler(manager *websocket.Manager, jwtSecret string, readBufferSize, writeBufferSize int) *WebSocketHandler {
	return &WebSocketHandler{
		manager:   manager,
		jwtSecret: jwtSecret,
		upgrader: ws.Upgrader{
			ReadBufferSize:  readBufferSize,
			WriteBufferSize: writeBufferSize,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// HandleConnection authenticates with ?token= or a Bearer header, then
// hands the connection to the manager and greets it.
func (h *WebSocketHandler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		token = strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	}

	if token == "" {
		log.Printf("[WebSocket] missing authorization token")
		http.Error(w, "missing authorization token", http.StatusUnauthorized)
		return
	}

	claims, err := jwt.ValidateToken(token, h.jwtSecret)
	if err != nil {
		log.Printf("[WebSocket] token validation failed: %v", err)
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	deviceID := r.URL.Query().Get("device_id")
	if deviceID == "" {
		deviceID = "default"
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[WebSocket] failed to upgrade connection: %v", err)
		return
	}

	clientID := uuid.New().String()
	client := websocket.NewClient(clientID, claims.UserID, deviceID, conn, h.manager)

	// Queued before registration so it is the first frame the client sees.
	if greeting, err := encode(websocket.TypeWelcome, &websocket.WelcomePayload{
		ClientID: clientID,
		DeviceID: deviceID,
	}); err == nil {
		client.Send <- greeting
	}

	h.manager.Register <- client

	go client.WritePump()
	go client.ReadPump()
}

// WebSocketMessageHandler answers the few messages clients send. Changes
// flow server to client only.
type WebSocketMessageHandler struct{}

func NewWebSocketMessageHandler() *WebSocketMessageHandler {
	return &WebSocketMessageHandler{}
}

func (h *WebSocketMessageHandler) HandleWebSocketMessage(client *websocket.Client, msg *websocket.Message) error {
	switch msg.Type {
	case websocket.TypePing:
		return reply(client, websocket.TypePong, nil)

	default:
		log.Printf("[WebSocket] unknown message type from %s: %s", client.ID, msg.Type)
		return reply(client, websocket.TypeError, &websocket.ErrorPayload{
			Error: "unsupported message type: " + string(msg.Type),
		})
	}
}

func reply(client *websocket.Client, msgType websocket.MessageType, payload interface{}) error {
	msg, err := websocket.NewMessage(msgType, payload)
	if err != nil {
		return err
	}
	return client.Manager.SendToClient(client.ID, msg)
}

func encode(msgType websocket.MessageType, payload interface{}) ([]byte, error) {
	msg, err := websocket.NewMessage(msgType, payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(msg)
}
