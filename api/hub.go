package api

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	pingPeriod = 54 * time.Second
	sendBuffer = 256
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Hub fans server events out to every connected websocket client.
type Hub struct {
	clients    map[*WSClient]bool
	broadcast  chan WSMessage
	register   chan *WSClient
	unregister chan *WSClient
	done       chan struct{}
	handlers   map[MessageType]MessageHandler

	count atomic.Int32
	log   *logrus.Entry
}

// WSClient is one websocket connection.
type WSClient struct {
	conn WSConnection
	send chan WSMessage
	hub  *Hub
	id   string

	mu     sync.Mutex
	closed bool
}

// WSConnection is the part of *websocket.Conn the pumps use.
type WSConnection interface {
	ReadJSON(v any) error
	WriteJSON(v any) error
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// MessageHandler answers one incoming message type.
type MessageHandler func(*WSClient, WSMessage) error

// NewHub creates a hub. Call Run to start it.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*WSClient]bool),
		broadcast:  make(chan WSMessage, sendBuffer),
		register:   make(chan *WSClient),
		unregister: make(chan *WSClient),
		done:       make(chan struct{}),
		handlers:   make(map[MessageType]MessageHandler),
		log:        logrus.WithField("component", "ws"),
	}
}

// Handle registers a handler for an incoming message type. It must be called before Run.
func (h *Hub) Handle(t MessageType, handler MessageHandler) {
	h.handlers[t] = handler
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	return int(h.count.Load())
}

// Run handles registration and broadcast until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	defer func() {
		close(h.done)
		for client := range h.clients {
			h.drop(client)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.clients[client] = true
			h.count.Store(int32(len(h.clients)))

			ack := WSMessage{
				Type:      MessageTypeAck,
				Data:      "Connected to Asgaria",
				Timestamp: time.Now(),
			}
			select {
			case client.send <- ack:
			default:
				h.drop(client)
			}
			h.log.WithField("client", client.id).Info("client connected")

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				h.drop(client)
				h.log.WithField("client", client.id).Info("client disconnected")
			}

		case message := <-h.broadcast:
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					h.log.WithField("client", client.id).Warn("send buffer full, dropping client")
					h.drop(client)
				}
			}
		}
	}
}

func (h *Hub) drop(client *WSClient) {
	delete(h.clients, client)
	client.closeSend()
	h.count.Store(int32(len(h.clients)))
}

// Publish queues an event for every client. Events are dropped when the queue is full.
func (h *Hub) Publish(t MessageType, data any) {
	message := WSMessage{Type: t, Data: data, Timestamp: time.Now()}
	select {
	case h.broadcast <- message:
	default:
		h.log.WithField("type", t).Warn("broadcast queue full, event dropped")
	}
}

// ServeWS upgrades the request and starts the client pumps.
func (h *Hub) ServeWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.WithError(err).Warn("websocket upgrade failed")
		return
	}

	id := c.GetHeader(ClientHeader)
	if id == "" {
		id = fmt.Sprintf("%d", time.Now().UnixNano())
	}
	client := &WSClient{
		conn: conn,
		send: make(chan WSMessage, sendBuffer),
		hub:  h,
		id:   id,
	}

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// writePump pumps messages from the hub to the websocket connection
func (c *WSClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(message); err != nil {
				c.hub.log.WithError(err).WithField("client", c.id).Warn("write failed")
				return
			}

		case <-ticker.C:
			if err := c.conn.WriteJSON(WSMessage{Type: MessageTypePing, Timestamp: time.Now()}); err != nil {
				return
			}
		}
	}
}

// readPump pumps messages from the websocket connection to the handlers
func (c *WSClient) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	for {
		var message WSMessage
		if err := c.conn.ReadJSON(&message); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.WithError(err).WithField("client", c.id).Warn("websocket error")
			}
			return
		}

		if err := c.handleMessage(message); err != nil {
			c.reply(WSMessage{
				Type:      MessageTypeError,
				RequestID: message.RequestID,
				Error:     err.Error(),
				Timestamp: time.Now(),
			})
		}
	}
}

func (c *WSClient) handleMessage(message WSMessage) error {
	handler, exists := c.hub.handlers[message.Type]
	if !exists {
		return fmt.Errorf("unknown message type: %s", message.Type)
	}
	return handler(c, message)
}

// closeSend closes the send channel once. The write pump exits when it drains.
func (c *WSClient) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// reply sends a message to this client only. It is a no-op once the hub dropped the client.
func (c *WSClient) reply(message WSMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- message:
	default:
	}
}
