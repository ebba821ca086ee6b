package api

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tutu-network/battguard/internal/app/confirm"
	"github.com/tutu-network/battguard/internal/domain"
)

const (
	clientBuffer = 64
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingPeriod   = 30 * time.Second
)

// Stream message types.
const (
	MsgStatus            = "status"
	MsgConfig            = "config"
	MsgShutdownRequested = "shutdown_requested"
	MsgTick              = "tick"
	MsgResolved          = "resolved"
)

// Message is one frame on /api/stream.
type Message struct {
	Type    string      `json:"type"`
	At      time.Time   `json:"at"`
	Payload interface{} `json:"payload"`
}

// Hub fans messages out to every connected WebSocket client. Publish
// never blocks; a client that falls behind loses messages.
type Hub struct {
	upgrader websocket.Upgrader
	hello    func() StatusResponse

	mu      sync.RWMutex
	clients map[*wsClient]struct{}
	closed  bool
}

type wsClient struct {
	conn *websocket.Conn
	send chan Message
	done chan struct{}
	once sync.Once
}

func (c *wsClient) close() {
	c.once.Do(func() { close(c.done) })
}

// NewHub creates a hub. hello builds the status frame sent to each new
// client.
func NewHub(hello func() StatusResponse) *Hub {
	return &Hub{
		hello:   hello,
		clients: make(map[*wsClient]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The API binds to loopback; any local page may subscribe.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Publish queues msg for every client.
func (h *Hub) Publish(msgType string, payload interface{}) {
	msg := Message{Type: msgType, At: time.Now(), Payload: payload}

	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return
	}
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			log.Printf("[api] stream client behind, dropping %s", msgType)
		}
	}
}

// PublishUpdate maps a confirmation update onto the stream.
func (h *Hub) PublishUpdate(u confirm.Update) {
	switch u.Kind {
	case confirm.UpdateOpened:
		h.Publish(MsgShutdownRequested, u.Session)
	case confirm.UpdateTick:
		h.Publish(MsgTick, u.Session)
	case confirm.UpdateResolved:
		h.Publish(MsgResolved, u.Session)
	}
}

// PublishConfig announces a configuration change.
func (h *Hub) PublishConfig(cfg domain.Config) {
	h.Publish(MsgConfig, cfg)
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client and rejects new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		c.close()
	}
	h.clients = make(map[*wsClient]struct{})
}

// ServeWS upgrades the request and streams messages until the client
// goes away.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[api] websocket upgrade failed: %v", err)
		return
	}

	c := &wsClient{
		conn: conn,
		send: make(chan Message, clientBuffer),
		done: make(chan struct{}),
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	go h.writePump(c)

	// Registered before the snapshot so nothing published after it is missed.
	c.send <- Message{Type: MsgStatus, At: time.Now(), Payload: h.hello()}
	h.readPump(c)
}

func (h *Hub) writePump(c *wsClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case msg := <-c.send:
			data, err := json.Marshal(msg)
			if err != nil {
				log.Printf("[api] marshal %s: %v", msg.Type, err)
				continue
			}
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump discards client frames; it exists to process pongs and
// notice disconnects.
func (h *Hub) readPump(c *wsClient) {
	defer func() {
		h.mu.Lock()
		delete(h.clients, c)
		h.mu.Unlock()
		c.close()
	}()

	c.conn.SetReadLimit(4096)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[api] stream read: %v", err)
			}
			return
		}
	}
}
