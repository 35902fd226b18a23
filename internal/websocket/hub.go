package websocket

import (
	"net/http"
	"sync"
	"time"

	"hrportal/internal/auth"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Allow all origins for dev simplicity
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Client represents a single connected WebSocket session of one user
type Client struct {
	Hub    *Hub
	Conn   *websocket.Conn
	UserID string
	Send   chan []byte
}

type userMessage struct {
	userID  string
	payload []byte
}

// Hub tracks live sessions per user and routes notification pushes to them
type Hub struct {
	clients    map[string]map[*Client]bool
	direct     chan userMessage
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.RWMutex
	log        *zap.Logger
}

// NewHub initializes a new WS Hub instance
func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]bool),
		direct:     make(chan userMessage, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		log:        log,
	}
}

// Run starts the core dispatch loop for WebSocket events. It returns after Close.
func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			h.mu.Lock()
			for userID, set := range h.clients {
				for client := range set {
					close(client.Send)
				}
				delete(h.clients, userID)
			}
			h.mu.Unlock()
			return
		case client := <-h.register:
			h.mu.Lock()
			set, ok := h.clients[client.UserID]
			if !ok {
				set = make(map[*Client]bool)
				h.clients[client.UserID] = set
			}
			set[client] = true
			h.mu.Unlock()
			h.log.Debug("WebSocket client connected", zap.String("user_id", client.UserID))
		case client := <-h.unregister:
			h.mu.Lock()
			h.remove(client)
			h.mu.Unlock()
			h.log.Debug("WebSocket client disconnected", zap.String("user_id", client.UserID))
		case msg := <-h.direct:
			h.mu.Lock()
			for client := range h.clients[msg.userID] {
				select {
				case client.Send <- msg.payload:
				default:
					// slow consumer, drop the session
					h.remove(client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// remove must be called with h.mu held
func (h *Hub) remove(client *Client) {
	set, ok := h.clients[client.UserID]
	if !ok || !set[client] {
		return
	}
	delete(set, client)
	close(client.Send)
	if len(set) == 0 {
		delete(h.clients, client.UserID)
	}
}

// Close stops Run and closes every session's send channel
func (h *Hub) Close() {
	select {
	case <-h.done:
	default:
		close(h.done)
	}
}

// SendToUser queues payload for every open session of userID. It never blocks the caller.
func (h *Hub) SendToUser(userID string, payload []byte) {
	select {
	case h.direct <- userMessage{userID: userID, payload: payload}:
	default:
		h.log.Warn("WebSocket push queue full, dropping message", zap.String("user_id", userID))
	}
}

// Connected returns how many sessions userID has open
func (h *Hub) Connected(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

// writePump handles writing messages from the Hub to the WebSocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump keeps the connection alive and notices when the peer goes away
func (c *Client) readPump() {
	defer func() {
		select {
		case c.Hub.unregister <- c:
		case <-c.Hub.done:
		}
		_ = c.Conn.Close()
	}()
	c.Conn.SetReadLimit(512)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Hub.log.Warn("WebSocket read error", zap.String("user_id", c.UserID), zap.Error(err))
			}
			return
		}
	}
}

// ServeWs authenticates the token query parameter and upgrades the request
func ServeWs(hub *Hub, tokens *auth.Tokens) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := c.Query("token")
		if tokenString == "" {
			hub.log.Info("WebSocket connection rejected: missing token")
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}

		identity, err := tokens.Parse(tokenString)
		if err != nil {
			hub.log.Info("WebSocket connection rejected: invalid token", zap.Error(err))
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			hub.log.Warn("WebSocket upgrade failed", zap.Error(err))
			return
		}
		client := &Client{Hub: hub, Conn: conn, UserID: identity.UserID.String(), Send: make(chan []byte, sendBuffer)}
		select {
		case hub.register <- client:
		case <-hub.done:
			_ = conn.Close()
			return
		}

		go client.writePump()
		go client.readPump()
	}
}
