package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"socialfeed/errs"
	"socialfeed/feed"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
	sendBuffer = 256
)

// Message is the frame written to clients.
type Message struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type delivery struct {
	recipients []primitive.ObjectID
	only       *Client
	data       []byte
}

// Manager tracks connected clients by user id and delivers feed events to
// the users named as recipients. All client bookkeeping happens on the Run
// goroutine.
type Manager struct {
	clients    map[primitive.ObjectID]map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	deliver    chan delivery
	done       chan struct{}
	connected  atomic.Int64
	log        *zap.Logger
}

type Client struct {
	conn    *websocket.Conn
	userID  primitive.ObjectID
	send    chan []byte
	manager *Manager
}

var _ feed.Notifier = (*Manager)(nil)

func NewManager(log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		clients:    make(map[primitive.ObjectID]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		deliver:    make(chan delivery, sendBuffer),
		done:       make(chan struct{}),
		log:        log,
	}
}

// Run owns the client set until ctx is cancelled, then closes every client.
func (m *Manager) Run(ctx context.Context) {
	defer close(m.done)
	for {
		select {
		case <-ctx.Done():
			for _, set := range m.clients {
				for client := range set {
					m.remove(client)
				}
			}
			return

		case client := <-m.register:
			set, ok := m.clients[client.userID]
			if !ok {
				set = make(map[*Client]struct{})
				m.clients[client.userID] = set
			}
			set[client] = struct{}{}
			m.connected.Add(1)
			m.log.Debug("websocket client registered",
				zap.String("user", client.userID.Hex()),
				zap.Int64("clients", m.connected.Load()))

		case client := <-m.unregister:
			m.remove(client)

		case d := <-m.deliver:
			if d.only != nil {
				if _, ok := m.clients[d.only.userID][d.only]; ok {
					m.send(d.only, d.data)
				}
				continue
			}
			for _, id := range d.recipients {
				for client := range m.clients[id] {
					m.send(client, d.data)
				}
			}
		}
	}
}

// send never blocks; a client whose buffer is full is dropped.
func (m *Manager) send(client *Client, data []byte) {
	select {
	case client.send <- data:
	default:
		m.remove(client)
	}
}

func (m *Manager) remove(client *Client) {
	set, ok := m.clients[client.userID]
	if !ok {
		return
	}
	if _, ok := set[client]; !ok {
		return
	}
	delete(set, client)
	if len(set) == 0 {
		delete(m.clients, client.userID)
	}
	close(client.send)
	m.connected.Add(-1)
}

// Notify queues ev for its recipients. A full queue drops the event.
func (m *Manager) Notify(ev feed.Event) {
	if len(ev.Recipients) == 0 {
		return
	}
	data, err := json.Marshal(Message{
		Type: ev.Type,
		Payload: map[string]any{
			"postId": ev.PostID.Hex(),
			"actor":  ev.Actor,
		},
	})
	if err != nil {
		m.log.Error("marshal websocket event", zap.Error(err))
		return
	}

	select {
	case m.deliver <- delivery{recipients: ev.Recipients, data: data}:
	case <-m.done:
	default:
		m.log.Warn("websocket queue full, dropping event", zap.String("type", ev.Type))
	}
}

// Connected returns the number of open client connections.
func (m *Manager) Connected() int {
	return int(m.connected.Load())
}

// Handler upgrades authenticated requests. The token comes from the "token"
// query parameter since browsers cannot set headers on websocket requests.
func Handler(m *Manager, parseToken func(string) (primitive.ObjectID, error), allowedOrigins []string) gin.HandlerFunc {
	upgrader := websocket.Upgrader{
		CheckOrigin:     originChecker(allowedOrigins),
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}

	return func(c *gin.Context) {
		userID, err := parseToken(c.Query("token"))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"msg": "Invalid Authentication.", "kind": errs.Unauthorized})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			m.log.Warn("websocket upgrade failed", zap.Error(err))
			return
		}

		client := &Client{
			conn:    conn,
			userID:  userID,
			send:    make(chan []byte, sendBuffer),
			manager: m,
		}
		welcome, _ := json.Marshal(Message{
			Type: "connected",
			Payload: map[string]any{
				"userId": userID.Hex(),
				"time":   time.Now().Unix(),
			},
		})
		client.send <- welcome

		select {
		case m.register <- client:
		case <-m.done:
			conn.Close()
			return
		}

		go client.writePump()
		go client.readPump()
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}

func (c *Client) readPump() {
	defer func() {
		select {
		case c.manager.unregister <- c:
		case <-c.manager.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.manager.log.Debug("websocket read error", zap.Error(err))
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			continue
		}
		if msg.Type == "ping" {
			c.manager.pong(c)
		}
	}
}

// pong goes through the delivery queue so only Run sends on a registered client.
func (m *Manager) pong(c *Client) {
	data, _ := json.Marshal(Message{Type: "pong", Payload: map[string]any{"time": time.Now().Unix()}})
	select {
	case m.deliver <- delivery{only: c, data: data}:
	default:
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
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
