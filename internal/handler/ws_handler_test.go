package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"taskdeck/internal/websocket"
	"taskdeck/pkg/jwt"

	ws "github.com/gorilla/websocket"
)

const wsTestSecret = "ws-test-secret"

func startWebSocketServer(t *testing.T) (*websocket.Manager, string) {
	t.Helper()
	manager := websocket.NewManager(5, time.Second, time.Minute, 54*time.Second)
	manager.SetMessageHandler(NewWebSocketMessageHandler())

	ctx, cancel := context.WithCancel(context.Background())
	go manager.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(NewWebSocketHandler(manager, wsTestSecret, 1024, 1024).HandleConnection))
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return manager, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func readMessage(t *testing.T, conn *ws.Conn) websocket.Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg websocket.Message
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	return msg
}

func TestWebSocketHandler_RejectsMissingOrBadToken(t *testing.T) {
	_, base := startWebSocketServer(t)

	for _, url := range []string{base, base + "?token=garbage"} {
		_, resp, err := ws.DefaultDialer.Dial(url, nil)
		if err == nil {
			t.Fatalf("Dial(%s) succeeded, want handshake failure", url)
		}
		if resp == nil || resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("Dial(%s) response = %v, want 401", url, resp)
		}
	}
}

func TestWebSocketHandler_WelcomePingAndBroadcast(t *testing.T) {
	manager, base := startWebSocketServer(t)

	token, err := jwt.GenerateToken("user-1", time.Hour, wsTestSecret)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	header := http.Header{"Authorization": {"Bearer " + token}}
	conn, _, err := ws.DefaultDialer.Dial(base+"?device_id=laptop", header)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()

	welcome := readMessage(t, conn)
	if welcome.Type != websocket.TypeWelcome {
		t.Fatalf("first message = %q, want %q", welcome.Type, websocket.TypeWelcome)
	}
	var payload websocket.WelcomePayload
	if err := welcome.UnmarshalPayload(&payload); err != nil || payload.DeviceID != "laptop" || payload.ClientID == "" {
		t.Errorf("welcome payload = %+v, err = %v", payload, err)
	}

	if err := conn.WriteJSON(map[string]string{"type": string(websocket.TypePing)}); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}
	if got := readMessage(t, conn).Type; got != websocket.TypePong {
		t.Errorf("reply to ping = %q, want %q", got, websocket.TypePong)
	}

	if err := conn.WriteJSON(map[string]string{"type": "subscribe"}); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}
	if got := readMessage(t, conn).Type; got != websocket.TypeError {
		t.Errorf("reply to unknown type = %q, want %q", got, websocket.TypeError)
	}

	change, _ := websocket.NewChangeMessage(websocket.TypeKnowledgeChanged, websocket.OpDeleted, "kb-1", nil)
	if err := manager.BroadcastToUser("user-1", change, ""); err != nil {
		t.Fatalf("BroadcastToUser() error = %v", err)
	}
	msg := readMessage(t, conn)
	var got websocket.ChangePayload
	if err := msg.UnmarshalPayload(&got); err != nil {
		t.Fatalf("UnmarshalPayload() error = %v", err)
	}
	if msg.Type != websocket.TypeKnowledgeChanged || got.ID != "kb-1" || got.Operation != websocket.OpDeleted {
		t.Errorf("change = %q %+v", msg.Type, got)
	}
}
