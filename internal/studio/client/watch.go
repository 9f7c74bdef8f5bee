package client

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"product-studio/internal/studio/shell"

	"github.com/fasthttp/websocket"
)

// feedMessage mirrors the live feed wire format
type feedMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

const (
	feedTypeHello = "hello"
	feedTypeSaved = "settings.saved"
)

// FeedPath is the live feed location below the API root
const FeedPath = "/ws/settings"

// Watch streams saved snapshots to fn until ctx is cancelled or the connection drops.
// It returns ctx.Err() after a cancellation.
func (c *Client) Watch(ctx context.Context, fn func(shell.SettingsPayload)) error {
	url := feedURL(c.baseURL)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", url, err)
	}

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			_ = conn.Close()
		case <-stop:
			_ = conn.Close()
		}
	}()

	for {
		var msg feedMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("read live feed: %w", err)
		}

		switch msg.Type {
		case feedTypeHello:
			var hello struct {
				SubscriberID string `json:"subscriberId"`
			}
			_ = json.Unmarshal(msg.Data, &hello)
			c.log.Debugf("Subscribed to live feed as %s", hello.SubscriberID)
		case feedTypeSaved:
			var payload shell.SettingsPayload
			if err := json.Unmarshal(msg.Data, &payload); err != nil {
				return fmt.Errorf("decode live feed message: %w", err)
			}
			fn(payload)
		default:
			c.log.Debugf("Ignoring live feed message of type %q", msg.Type)
		}
	}
}

func feedURL(baseURL string) string {
	switch {
	case strings.HasPrefix(baseURL, "https://"):
		return "wss://" + strings.TrimPrefix(baseURL, "https://") + FeedPath
	default:
		return "ws://" + strings.TrimPrefix(baseURL, "http://") + FeedPath
	}
}
