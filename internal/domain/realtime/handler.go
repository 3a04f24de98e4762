package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/voxroom/voxroom-api/internal/middleware"
	"github.com/voxroom/voxroom-api/internal/pkg/ratelimit"
	"github.com/voxroom/voxroom-api/internal/pkg/response"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 * 1024
	maxTopics      = 32
)

// clientMessage is what a subscriber sends over the socket
type clientMessage struct {
	Action string `json:"action"` // subscribe | unsubscribe
	Topic  string `json:"topic"`
}

type ackMessage struct {
	Action string `json:"action"`
	Topic  string `json:"topic"`
	OK     bool   `json:"ok"`
	Error  string `json:"error,omitempty"`
}

type Handler struct {
	hub      *Hub
	limiter  *ratelimit.Limiter
	upgrader websocket.Upgrader
}

func NewHandler(hub *Hub, limiter *ratelimit.Limiter, allowedOrigins []string) *Handler {
	return &Handler{
		hub:     hub,
		limiter: limiter,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if len(allowedOrigins) == 0 || origin == "" {
					return true
				}
				for _, allowed := range allowedOrigins {
					if origin == allowed {
						return true
					}
				}
				log.Warn().Str("origin", origin).Msg("WebSocket origin rejected")
				return false
			},
		},
	}
}

// WebSocket handles GET /ws
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		response.Unauthorized(w, "Unauthorized")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	client := &Connection{
		UserID: userID,
		Conn:   conn,
		Send:   make(chan []byte, 64),
	}
	h.hub.Register(client)

	go h.wsReader(client)
	go h.wsWriter(client)
}

func (h *Handler) wsReader(client *Connection) {
	defer func() {
		h.hub.Unregister(client)
		client.Conn.Close()
	}()

	client.Conn.SetReadLimit(maxMessageSize)
	client.Conn.SetReadDeadline(time.Now().Add(pongWait))
	client.Conn.SetPongHandler(func(string) error {
		client.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	subscribed := make(map[string]bool)
	for {
		_, message, err := client.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().Err(err).Str("user_id", client.UserID).Msg("WebSocket read error")
			}
			return
		}

		if ok, _ := h.limiter.Allow(context.Background(), client.UserID); !ok {
			continue
		}

		var msg clientMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			continue
		}
		h.reply(client, h.apply(client, subscribed, msg))
	}
}

func (h *Handler) apply(client *Connection, subscribed map[string]bool, msg clientMessage) ackMessage {
	ack := ackMessage{Action: msg.Action, Topic: msg.Topic}

	switch msg.Action {
	case "subscribe":
		if !CanSubscribe(client.UserID, msg.Topic) {
			ack.Error = "Unauthorized"
			return ack
		}
		if !subscribed[msg.Topic] && len(subscribed) >= maxTopics {
			ack.Error = "Too many subscriptions"
			return ack
		}
		subscribed[msg.Topic] = true
		h.hub.Subscribe(client, msg.Topic)
	case "unsubscribe":
		delete(subscribed, msg.Topic)
		h.hub.Unsubscribe(client, msg.Topic)
	default:
		ack.Error = "Unknown action"
		return ack
	}

	ack.OK = true
	return ack
}

func (h *Handler) reply(client *Connection, ack ackMessage) {
	data, err := json.Marshal(ack)
	if err != nil {
		return
	}
	select {
	case client.Send <- data:
	default:
	}
}

func (h *Handler) wsWriter(client *Connection) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		client.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-client.Send:
			client.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				client.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			client.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
