package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"oddclimb-backend/internal/models"
	"oddclimb-backend/internal/services"
)

var _ services.Broadcaster = (*WebSocketHandler)(nil)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WebSocketHandler pushes session events (move results, terminal
// transitions, claim settlements) to the owning player's connection. It
// implements services.Broadcaster.
type WebSocketHandler struct {
	hub *WebSocketHub
}

type WebSocketHub struct {
	clients    map[string]*websocket.Conn
	register   chan *Client
	unregister chan *Client
	broadcast  chan *Message
}

type Client struct {
	Address string
	Conn    *websocket.Conn
}

type Message struct {
	Type    string      `json:"type"`
	Address string      `json:"-"`
	Data    interface{} `json:"data"`
}

func NewWebSocketHandler() *WebSocketHandler {
	hub := &WebSocketHub{
		clients:    make(map[string]*websocket.Conn),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *Message, 100),
	}
	go hub.run()

	return &WebSocketHandler{hub: hub}
}

func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	address := c.GetString("address")

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Msg("failed to upgrade to websocket")
		return
	}

	client := &Client{
		Address: address,
		Conn:    conn,
	}

	h.hub.register <- client

	defer func() {
		h.hub.unregister <- client
		conn.Close()
	}()

	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().Err(err).Str("address", address).Msg("websocket read error")
			}
			break
		}

		if msg.Type == "PING" {
			client.Conn.WriteJSON(Message{
				Type: "PONG",
				Data: gin.H{"timestamp": time.Now().Unix()},
			})
		}
	}
}

func (hub *WebSocketHub) run() {
	for {
		select {
		case client := <-hub.register:
			hub.clients[client.Address] = client.Conn
			log.Debug().Str("address", client.Address).Msg("websocket client registered")

		case client := <-hub.unregister:
			if _, ok := hub.clients[client.Address]; ok {
				delete(hub.clients, client.Address)
				log.Debug().Str("address", client.Address).Msg("websocket client unregistered")
			}

		case message := <-hub.broadcast:
			hub.deliver(message)
		}
	}
}

func (hub *WebSocketHub) deliver(message *Message) {
	if message.Address != "" {
		if conn, ok := hub.clients[message.Address]; ok {
			conn.WriteJSON(message)
		}
		return
	}
	for _, conn := range hub.clients {
		conn.WriteJSON(message)
	}
}

func (h *WebSocketHandler) BroadcastMoveResult(address string, result *models.MoveResult) {
	h.hub.broadcast <- &Message{
		Type:    "MOVE_RESULT",
		Address: address,
		Data: gin.H{
			"session_id":       result.Session.ID,
			"landed_cell":      result.LandedCell,
			"position":         result.Session.Position,
			"multiplier":       result.Multiplier,
			"potential_payout": result.PotentialPayout,
			"status":           result.Session.Status,
			"timestamp":        time.Now().Unix(),
		},
	}
}

func (h *WebSocketHandler) BroadcastSessionEnded(address string, session *models.GameSession) {
	h.hub.broadcast <- &Message{
		Type:    "SESSION_ENDED",
		Address: address,
		Data: gin.H{
			"session_id": session.ID,
			"status":     session.Status,
			"payout":     session.Payout,
			"multiplier": session.Multiplier,
			"seed":       session.Seed,
			"seed_hash":  session.SeedHash,
			"timestamp":  time.Now().Unix(),
		},
	}
}

func (h *WebSocketHandler) BroadcastClaimSettled(address, sessionID, transferRef string) {
	h.hub.broadcast <- &Message{
		Type:    "CLAIM_SETTLED",
		Address: address,
		Data: gin.H{
			"session_id":   sessionID,
			"transfer_ref": transferRef,
			"timestamp":    time.Now().Unix(),
		},
	}
}
