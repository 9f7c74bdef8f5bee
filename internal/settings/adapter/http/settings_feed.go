package http

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"product-studio/internal/settings/domain/model"
	"product-studio/internal/shared/eventbus"
	"product-studio/internal/shared/logger"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Feed message types
const (
	FeedMessageHello = "hello"
	FeedMessageSaved = eventbus.EventTypeSettingsSaved
)

const (
	feedWriteWait = 10 * time.Second
	feedPongWait  = 60 * time.Second
	feedPingEvery = feedPongWait * 9 / 10
)

// FeedMessage is a message pushed to live feed subscribers
type FeedMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// HelloData is the payload of the first message on every connection
type HelloData struct {
	SubscriberID string `json:"subscriberId"`
}

type feedSubscriber struct {
	id   string
	send chan []byte
}

// SettingsFeed fans out saved snapshots to connected WebSocket clients.
// A snapshot no newer than the last one broadcast is never sent.
type SettingsFeed struct {
	mu          sync.RWMutex
	subscribers map[string]*feedSubscriber
	buffer      int
	log         logger.Logger

	savedMu   sync.Mutex
	lastSaved time.Time
}

// NewSettingsFeed creates a feed whose subscribers queue up to buffer messages
func NewSettingsFeed(buffer int, log logger.Logger) *SettingsFeed {
	if buffer <= 0 {
		buffer = 16
	}
	return &SettingsFeed{
		subscribers: make(map[string]*feedSubscriber),
		buffer:      buffer,
		log:         log.WithComponent("settings-feed"),
	}
}

// Attach subscribes the feed to settings.saved events on the bus
func (f *SettingsFeed) Attach(bus *eventbus.EventBus) (detach func()) {
	return bus.Subscribe(eventbus.EventTypeSettingsSaved, f.handleSaved)
}

func (f *SettingsFeed) handleSaved(ctx context.Context, event eventbus.Event) error {
	snapshot, ok := event.Data().(*model.ConfigurationSnapshot)
	if !ok || snapshot == nil {
		return nil
	}
	payload, err := json.Marshal(FeedMessage{Type: FeedMessageSaved, Data: snapshot.ToView()})
	if err != nil {
		return err
	}

	f.savedMu.Lock()
	defer f.savedMu.Unlock()
	if !snapshot.CreatedAt.After(f.lastSaved) {
		f.log.Debug("Skipping stale snapshot on live feed",
			zap.String("id", snapshot.ID.Hex()), zap.Time("createdAt", snapshot.CreatedAt))
		return nil
	}
	f.lastSaved = snapshot.CreatedAt
	f.Broadcast(payload)
	return nil
}

// Broadcast queues payload for every subscriber without blocking.
// Subscribers with a full queue miss the message.
func (f *SettingsFeed) Broadcast(payload []byte) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	for _, sub := range f.subscribers {
		select {
		case sub.send <- payload:
		default:
			f.log.Warn("Dropping feed message for slow subscriber", zap.String("subscriberID", sub.id))
		}
	}
}

// SubscriberCount returns the number of connected clients
func (f *SettingsFeed) SubscriberCount() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.subscribers)
}

// subscribe queues the hello message before the subscriber becomes visible to
// Broadcast, so hello is always the first frame and never competes for the buffer.
func (f *SettingsFeed) subscribe() *feedSubscriber {
	sub := &feedSubscriber{
		id:   uuid.NewString(),
		send: make(chan []byte, f.buffer+1),
	}
	hello, _ := json.Marshal(FeedMessage{Type: FeedMessageHello, Data: HelloData{SubscriberID: sub.id}})
	sub.send <- hello

	f.mu.Lock()
	f.subscribers[sub.id] = sub
	f.mu.Unlock()
	return sub
}

func (f *SettingsFeed) unregister(sub *feedSubscriber) {
	f.mu.Lock()
	if _, ok := f.subscribers[sub.id]; ok {
		delete(f.subscribers, sub.id)
		close(sub.send)
	}
	f.mu.Unlock()
}

// RegisterRoutes mounts the WebSocket endpoint at path
func (f *SettingsFeed) RegisterRoutes(router fiber.Router, path string) {
	router.Use(path, func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("allowed", true)
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	router.Get(path, websocket.New(f.handleConnection))
}

func (f *SettingsFeed) handleConnection(conn *websocket.Conn) {
	sub := f.subscribe()
	f.log.Info("Live feed subscriber connected", zap.String("subscriberID", sub.id))

	done := make(chan struct{})
	go f.writePump(conn, sub, done)

	conn.SetReadLimit(4096)
	_ = conn.SetReadDeadline(time.Now().Add(feedPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(feedPongWait))
	})

	// Clients never send anything meaningful; reading only detects disconnects
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				f.log.Warn("Live feed read error", zap.String("subscriberID", sub.id), zap.Error(err))
			}
			break
		}
	}

	f.unregister(sub)
	<-done
	f.log.Info("Live feed subscriber disconnected", zap.String("subscriberID", sub.id))
}

func (f *SettingsFeed) writePump(conn *websocket.Conn, sub *feedSubscriber, done chan<- struct{}) {
	ticker := time.NewTicker(feedPingEvery)
	defer func() {
		ticker.Stop()
		close(done)
	}()

	for {
		select {
		case payload, ok := <-sub.send:
			_ = conn.SetWriteDeadline(time.Now().Add(feedWriteWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				f.log.Warn("Live feed write failed", zap.String("subscriberID", sub.id), zap.Error(err))
				_ = conn.Close()
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(feedWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				_ = conn.Close()
				return
			}
		}
	}
}
