package realtime

import (
	"context"
	"encoding/json"
	"expvar"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Topic prefixes clients subscribe to. Each topic carries full snapshots
// of one record after every committed change.
const (
	walletPrefix = "wallet:"
	roomPrefix   = "room:"
	agencyPrefix = "agency:"

	redisChannelPrefix = "rt:"
)

var (
	wsConnectionsGauge   = expvar.NewInt("realtime_connections")
	wsEventsSentTotal    = expvar.NewInt("realtime_events_sent_total")
	wsEventsDroppedTotal = expvar.NewInt("realtime_events_dropped_total")
)

func WalletTopic(userID string) string { return walletPrefix + userID }
func RoomTopic(roomID string) string   { return roomPrefix + roomID }
func AgencyTopic(userID string) string { return agencyPrefix + userID }

// CanSubscribe reports whether userID may follow topic. Wallets and agency
// nodes are private to their owner; room state is public.
func CanSubscribe(userID, topic string) bool {
	switch {
	case strings.HasPrefix(topic, walletPrefix):
		return topic == WalletTopic(userID)
	case strings.HasPrefix(topic, agencyPrefix):
		return topic == AgencyTopic(userID)
	case strings.HasPrefix(topic, roomPrefix):
		return len(topic) > len(roomPrefix)
	}
	return false
}

// Publisher pushes record snapshots to subscribers. Engines call it only
// after their transaction committed.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any)
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, string, any) {}

// Event is the frame written to subscribers.
type Event struct {
	Topic string          `json:"topic"`
	Data  json.RawMessage `json:"data"`
}

// Connection represents a WebSocket connection
type Connection struct {
	UserID string
	Conn   *websocket.Conn
	Send   chan []byte
}

// Hub fans record updates out to WebSocket subscribers. With Redis every
// event goes through Pub/Sub so all API instances deliver it; without
// Redis delivery is local to this process.
type Hub struct {
	connections map[*Connection]bool
	topics      map[string]map[*Connection]bool

	redis  *redis.Client
	pubsub *redis.PubSub

	mu sync.RWMutex

	register   chan *Connection
	unregister chan *Connection

	ctx    context.Context
	cancel context.CancelFunc
}

// NewHub creates a hub; redisClient may be nil
func NewHub(redisClient *redis.Client) *Hub {
	ctx, cancel := context.WithCancel(context.Background())

	h := &Hub{
		connections: make(map[*Connection]bool),
		topics:      make(map[string]map[*Connection]bool),
		redis:       redisClient,
		register:    make(chan *Connection),
		unregister:  make(chan *Connection),
		ctx:         ctx,
		cancel:      cancel,
	}

	if redisClient != nil {
		h.pubsub = redisClient.PSubscribe(ctx, redisChannelPrefix+"*")
	}
	return h
}

// Run starts the hub (call in goroutine)
func (h *Hub) Run() {
	if h.pubsub != nil {
		go h.runRedisSubscriber()
	}

	for {
		select {
		case <-h.ctx.Done():
			return

		case conn := <-h.register:
			h.mu.Lock()
			h.connections[conn] = true
			h.mu.Unlock()
			wsConnectionsGauge.Add(1)
			log.Debug().Str("user_id", conn.UserID).Msg("Realtime client connected")

		case conn := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.connections[conn]; ok {
				delete(h.connections, conn)
				close(conn.Send)
				wsConnectionsGauge.Add(-1)
			}
			for topic, subs := range h.topics {
				delete(subs, conn)
				if len(subs) == 0 {
					delete(h.topics, topic)
				}
			}
			h.mu.Unlock()
			log.Debug().Str("user_id", conn.UserID).Msg("Realtime client disconnected")
		}
	}
}

func (h *Hub) runRedisSubscriber() {
	ch := h.pubsub.Channel()

	for {
		select {
		case <-h.ctx.Done():
			return

		case msg, ok := <-ch:
			if !ok {
				return
			}
			if !strings.HasPrefix(msg.Channel, redisChannelPrefix) {
				continue
			}
			topic := msg.Channel[len(redisChannelPrefix):]
			h.deliverLocal(topic, []byte(msg.Payload))
		}
	}
}

// Register adds a connection
func (h *Hub) Register(conn *Connection) {
	h.register <- conn
}

// Unregister removes a connection
func (h *Hub) Unregister(conn *Connection) {
	h.unregister <- conn
}

// Subscribe adds conn to topic
func (h *Hub) Subscribe(conn *Connection, topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.topics[topic] == nil {
		h.topics[topic] = make(map[*Connection]bool)
	}
	h.topics[topic][conn] = true
}

// Unsubscribe removes conn from topic
func (h *Hub) Unsubscribe(conn *Connection, topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if subs := h.topics[topic]; subs != nil {
		delete(subs, conn)
		if len(subs) == 0 {
			delete(h.topics, topic)
		}
	}
}

// Publish implements Publisher
func (h *Hub) Publish(ctx context.Context, topic string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Str("topic", topic).Msg("Failed to marshal realtime payload")
		return
	}
	frame, err := json.Marshal(Event{Topic: topic, Data: data})
	if err != nil {
		return
	}

	if h.redis == nil {
		h.deliverLocal(topic, frame)
		return
	}
	if err := h.redis.Publish(ctx, redisChannelPrefix+topic, frame).Err(); err != nil {
		log.Error().Err(err).Str("topic", topic).Msg("Redis publish failed")
		h.deliverLocal(topic, frame)
	}
}

func (h *Hub) deliverLocal(topic string, frame []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for conn := range h.topics[topic] {
		select {
		case conn.Send <- frame:
			wsEventsSentTotal.Add(1)
		default:
			// Slow consumer; the next snapshot supersedes this one anyway.
			wsEventsDroppedTotal.Add(1)
			log.Warn().Str("user_id", conn.UserID).Str("topic", topic).Msg("Realtime send buffer full")
		}
	}
}

// SubscriberCount returns the number of local subscribers of topic
func (h *Hub) SubscriberCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}

// Shutdown stops the hub
func (h *Hub) Shutdown() {
	h.cancel()
	if h.pubsub != nil {
		h.pubsub.Close()
	}
}
