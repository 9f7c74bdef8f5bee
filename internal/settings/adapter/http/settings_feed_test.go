package http

import (
	"context"
	"encoding/json"
	"net"
	"net/http/httptest"
	"testing"
	"time"

	"product-studio/internal/settings/domain/model"
	"product-studio/internal/shared/eventbus"
	"product-studio/internal/shared/logger"

	fastws "github.com/fasthttp/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startFeedServer(t *testing.T, feed *SettingsFeed) string {
	t.Helper()
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	feed.RegisterRoutes(app.Group("/api"), "/ws/settings")

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = app.Listener(ln) }()
	t.Cleanup(func() { _ = app.Shutdown() })

	return "ws://" + ln.Addr().String() + "/api/ws/settings"
}

func readFeedMessage(t *testing.T, conn *fastws.Conn) FeedMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg FeedMessage
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func TestSettingsFeed_BroadcastsSavedSnapshots(t *testing.T) {
	bus := eventbus.NewEventBus(logger.NewNopLogger())
	feed := NewSettingsFeed(4, logger.NewNopLogger())
	detach := feed.Attach(bus)
	defer detach()

	url := startFeedServer(t, feed)
	conn, _, err := fastws.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	hello := readFeedMessage(t, conn)
	assert.Equal(t, FeedMessageHello, hello.Type)
	assert.NotEmpty(t, hello.Data.(map[string]interface{})["subscriberId"])

	require.Eventually(t, func() bool { return feed.SubscriberCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	snapshot := model.NewConfigurationSnapshot("data:a;base64,AA==", "#ff0000", true)
	snapshot.CreatedAt = time.Now()
	require.NoError(t, bus.Publish(context.Background(), eventbus.NewBasicEvent(eventbus.EventTypeSettingsSaved, snapshot, "test")))

	saved := readFeedMessage(t, conn)
	assert.Equal(t, FeedMessageSaved, saved.Type)
	assert.Equal(t, map[string]interface{}{
		"modelUrl":        "data:a;base64,AA==",
		"backgroundColor": "#ff0000",
		"isWireframe":     true,
	}, saved.Data)
}

func TestSettingsFeed_RejectsPlainHTTP(t *testing.T) {
	feed := NewSettingsFeed(1, logger.NewNopLogger())
	app := fiber.New()
	feed.RegisterRoutes(app, "/ws/settings")

	resp, err := app.Test(httptest.NewRequest("GET", "/ws/settings", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUpgradeRequired, resp.StatusCode)
}

func TestSettingsFeed_DropsWhenQueueFull(t *testing.T) {
	feed := NewSettingsFeed(1, logger.NewNopLogger())
	sub := feed.subscribe()

	feed.Broadcast([]byte("one"))
	feed.Broadcast([]byte("two"))

	assert.Contains(t, string(<-sub.send), FeedMessageHello)
	assert.Equal(t, []byte("one"), <-sub.send)
	select {
	case extra := <-sub.send:
		t.Fatalf("unexpected queued message %q", extra)
	default:
	}

	feed.unregister(sub)
	feed.unregister(sub)
	assert.Equal(t, 0, feed.SubscriberCount())
}

func TestSettingsFeed_IgnoresForeignPayloads(t *testing.T) {
	feed := NewSettingsFeed(1, logger.NewNopLogger())
	sub := feed.subscribe()
	defer feed.unregister(sub)
	<-sub.send

	err := feed.handleSaved(context.Background(), eventbus.NewBasicEvent(eventbus.EventTypeSettingsSaved, "not a snapshot", "test"))
	assert.NoError(t, err)
	assert.Len(t, sub.send, 0)
}

func TestSettingsFeed_HelloIsAlwaysFirst(t *testing.T) {
	feed := NewSettingsFeed(2, logger.NewNopLogger())

	stop := make(chan struct{})
	broadcasting := make(chan struct{})
	go func() {
		defer close(broadcasting)
		for {
			select {
			case <-stop:
				return
			default:
				feed.Broadcast([]byte(`{"type":"settings.saved"}`))
			}
		}
	}()
	defer func() {
		close(stop)
		<-broadcasting
	}()

	for i := 0; i < 200; i++ {
		sub := feed.subscribe()
		var first FeedMessage
		require.NoError(t, json.Unmarshal(<-sub.send, &first))
		assert.Equal(t, FeedMessageHello, first.Type)
		feed.unregister(sub)
	}
}

func TestSettingsFeed_SkipsStaleSnapshots(t *testing.T) {
	feed := NewSettingsFeed(4, logger.NewNopLogger())
	sub := feed.subscribe()
	defer feed.unregister(sub)
	<-sub.send

	now := time.Now()
	newer := model.NewConfigurationSnapshot("data:new;base64,AA==", "#000000", false)
	newer.CreatedAt = now
	older := model.NewConfigurationSnapshot("data:old;base64,AA==", "#ffffff", false)
	older.CreatedAt = now.Add(-time.Millisecond)

	ctx := context.Background()
	require.NoError(t, feed.handleSaved(ctx, eventbus.NewBasicEvent(eventbus.EventTypeSettingsSaved, newer, "test")))
	require.NoError(t, feed.handleSaved(ctx, eventbus.NewBasicEvent(eventbus.EventTypeSettingsSaved, older, "test")))
	require.NoError(t, feed.handleSaved(ctx, eventbus.NewBasicEvent(eventbus.EventTypeSettingsSaved, newer, "test")))

	require.Len(t, sub.send, 1)
	var msg FeedMessage
	require.NoError(t, json.Unmarshal(<-sub.send, &msg))
	assert.Equal(t, "data:new;base64,AA==", msg.Data.(map[string]interface{})["modelUrl"])
}
