package apiclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"taskdeck/internal/websocket"

	ws "github.com/gorilla/websocket"
)

// ChangeHandler receives every message pushed on the change stream.
type ChangeHandler func(msg *websocket.Message)

// Changes opens the server's websocket change stream as deviceID and
// calls fn for each message until ctx is done or the connection drops.
// It answers server pings and returns ctx.Err() on cancellation.
func (c *Client) Changes(ctx context.Context, deviceID string, fn ChangeHandler) error {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme == "https" {
		u.Scheme = "wss"
	} else {
		u.Scheme = "ws"
	}
	u.Path += "/ws"
	u.RawQuery = url.Values{"device_id": {deviceID}}.Encode()

	header := http.Header{}
	if token := c.Token(); token != "" {
		header.Set("Authorization", "Bearer "+token)
	}

	conn, resp, err := ws.DefaultDialer.DialContext(ctx, u.String(), header)
	if err != nil {
		if resp != nil {
			return &Error{
				StatusCode: resp.StatusCode,
				Method:     http.MethodGet,
				Path:       "/ws",
				Message:    http.StatusText(resp.StatusCode),
			}
		}
		return fmt.Errorf("dial change stream: %w", err)
	}
	defer conn.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		var msg websocket.Message
		if err := conn.ReadJSON(&msg); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("read change stream: %w", err)
		}
		fn(&msg)
	}
}
