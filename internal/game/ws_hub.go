// WebSocket hub for real-time game feeds.

package game

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sipmarket/market-engine/internal/metrics"
)

// Feed message types.
const (
	MsgNewGame         = "new_game"
	MsgPlayerJoined    = "player_joined"
	MsgBetPlaced       = "bet_placed"
	MsgGameState       = "game_state"
	MsgNewMarketDay    = "new_market_day"
	MsgMarketEvent     = "market_event"
	MsgCallOptionOpen  = "call_option_open"
	MsgCallOptionUsed  = "call_option_used"
	MsgPutOptionOpen   = "put_option_open"
	MsgPutOptionPlayer = "put_option_player"
	MsgSipsTaken       = "sips_taken"
	MsgGameFinished    = "game_finished"
)

// WSMessage is a JSON message sent to the clients watching a game.
type WSMessage struct {
	Type     string    `json:"type"`
	GameID   string    `json:"game_id"`
	PlayerID string    `json:"player_id,omitempty"`
	Nickname string    `json:"nickname,omitempty"`
	Text     string    `json:"text"`
	Datetime time.Time `json:"datetime"`
	Payload  any       `json:"payload,omitempty"`
}

type envelope struct {
	gameID string
	data   []byte
}

type subscription struct {
	conn   *websocket.Conn
	gameID string
}

// WSHub manages WebSocket connections grouped by game and fans out each
// game's feed to the clients subscribed to it.
type WSHub struct {
	clients    map[*websocket.Conn]string // conn -> game ID
	broadcast  chan envelope
	register   chan subscription
	unregister chan *websocket.Conn
	mu         sync.RWMutex
}

// NewWSHub creates a new WebSocket hub.
func NewWSHub() *WSHub {
	return &WSHub{
		clients:    make(map[*websocket.Conn]string),
		broadcast:  make(chan envelope, 256),
		register:   make(chan subscription),
		unregister: make(chan *websocket.Conn),
	}
}

// Run starts the hub's main event loop. Must be called in a goroutine.
func (h *WSHub) Run() {
	for {
		select {
		case sub := <-h.register:
			h.mu.Lock()
			h.clients[sub.conn] = sub.gameID
			total := len(h.clients)
			h.mu.Unlock()
			metrics.WebSocketClients.Set(float64(total))
			slog.Info("ws client connected", "game", sub.gameID, "total", total)

		case conn := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[conn]; ok {
				delete(h.clients, conn)
				conn.Close()
			}
			total := len(h.clients)
			h.mu.Unlock()
			metrics.WebSocketClients.Set(float64(total))

		case msg := <-h.broadcast:
			h.mu.Lock()
			for conn, gameID := range h.clients {
				if gameID != msg.gameID {
					continue
				}
				if err := conn.WriteMessage(websocket.TextMessage, msg.data); err != nil {
					conn.Close()
					delete(h.clients, conn)
				}
			}
			total := len(h.clients)
			h.mu.Unlock()
			metrics.WebSocketClients.Set(float64(total))
		}
	}
}

// Broadcast sends a message to every client watching msg.GameID.
func (h *WSHub) Broadcast(msg WSMessage) {
	if msg.Datetime.IsZero() {
		msg.Datetime = time.Now().UTC()
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	select {
	case h.broadcast <- envelope{gameID: msg.GameID, data: data}:
	default:
		// Drop if buffer full to avoid blocking round processing.
		slog.Warn("ws broadcast dropped", "game", msg.GameID, "type", msg.Type)
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true // Allow all origins during development.
	},
}

// HandleWS handles WebSocket upgrade requests at GET /api/v1/ws?game_id=.
func (h *WSHub) HandleWS(w http.ResponseWriter, r *http.Request) {
	gameID := r.URL.Query().Get("game_id")
	if gameID == "" {
		writeError(w, "game_id is required", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("ws upgrade failed", "err", err)
		return
	}

	h.register <- subscription{conn: conn, gameID: gameID}

	// Read pump: keep connection alive and detect disconnects.
	go func() {
		defer func() { h.unregister <- conn }()
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		conn.SetPongHandler(func(string) error {
			conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			return nil
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}()

	// Ping ticker to keep connection alive through proxies. WriteControl
	// is safe to call alongside the hub's writes.
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			h.mu.RLock()
			_, ok := h.clients[conn]
			h.mu.RUnlock()
			if !ok {
				return
			}
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(10*time.Second)); err != nil {
				return
			}
		}
	}()
}
