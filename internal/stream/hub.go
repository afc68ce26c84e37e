// Package stream broadcasts tracking results to websocket clients.
package stream

import (
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"

	"github.com/dudu/gazetrack/internal/log"
)

// ErrClosed is returned by Publish after Close
var ErrClosed = errors.New("hub is closed")

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Envelope wraps every broadcast message
type Envelope struct {
	Type string      `json:"type"`
	Seq  uint64      `json:"seq"`
	Time time.Time   `json:"time"`
	Data interface{} `json:"data"`
}

type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

// Hub fans messages out to every connected websocket client. Slow clients
// drop messages instead of blocking the publisher.
type Hub struct {
	upgrader     websocket.Upgrader
	log          *logrus.Entry
	writeTimeout time.Duration
	pingInterval time.Duration
	bufferSize   int

	mu      sync.Mutex
	clients map[string]*client
	closed  bool
	seq     atomic.Uint64
}

// NewHub creates a hub accepting connections from any origin
func NewHub(logger *logrus.Entry) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		log:          log.OrDiscard(logger),
		writeTimeout: 5 * time.Second,
		pingInterval: 30 * time.Second,
		bufferSize:   16,
		clients:      make(map[string]*client),
	}
}

// ServeHTTP upgrades the request and registers the client
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("websocket upgrade failed")
		return
	}

	c := &client{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, h.bufferSize),
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.clients[c.id] = c
	count := len(h.clients)
	h.mu.Unlock()

	h.log.WithFields(logrus.Fields{
		"client":  c.id,
		"remote":  r.RemoteAddr,
		"clients": count,
	}).Info("stream client connected")

	go h.writeLoop(c)
	go h.readLoop(c)
}

// readLoop discards inbound messages and unregisters the client on error
func (h *Hub) readLoop(c *client) {
	defer h.remove(c)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writeLoop(c *client) {
	ticker := time.NewTicker(h.pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				h.log.WithField("client", c.id).WithError(err).Debug("stream write failed")
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(h.writeTimeout)); err != nil {
				return
			}
		}
	}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c.id]; ok {
		delete(h.clients, c.id)
		close(c.send)
	}
	count := len(h.clients)
	h.mu.Unlock()

	h.log.WithFields(logrus.Fields{"client": c.id, "clients": count}).Info("stream client disconnected")
}

// Publish encodes data in an envelope of the given type and queues it for
// every client
func (h *Hub) Publish(msgType string, data interface{}) error {
	msg, err := json.Marshal(Envelope{
		Type: msgType,
		Seq:  h.seq.Add(1),
		Time: time.Now().UTC(),
		Data: data,
	})
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrClosed
	}

	for _, c := range h.clients {
		select {
		case c.send <- msg:
		default:
			h.log.WithField("client", c.id).Debug("stream client lagging, message dropped")
		}
	}
	return nil
}

// Clients returns the number of connected clients
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client. Later connections are refused.
func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	for id, c := range h.clients {
		delete(h.clients, id)
		close(c.send)
	}
	return nil
}
