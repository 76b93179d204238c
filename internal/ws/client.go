package ws

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"swapdeck/internal/metrics"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 90 * time.Second
	pingPeriod     = 54 * time.Second
	maxMessageSize = 4096
)

// Client represents one transport connection on the server side.
type Client struct {
	ID   string
	Conn *websocket.Conn
	Hub  *Hub
	Send chan []byte

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
}

// NewClient wraps an upgraded websocket connection.
func NewClient(conn *websocket.Conn, hub *Hub, id string) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		ID:     id,
		Conn:   conn,
		Hub:    hub,
		Send:   make(chan []byte, 256),
		ctx:    ctx,
		cancel: cancel,
	}
}

// ReadPump pumps messages from the transport into the hub. It exits on
// any read error, unregistering the client on the way out.
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.UnregisterClient(c)
		c.Conn.Close()
		c.cancel()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		c.Hub.touch(c)
		return nil
	})

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
			_, message, err := c.Conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
					logrus.WithError(err).WithField("client", c.ID).Warn("Channel read error")
				}
				return
			}
			c.handleMessage(message)
		}
	}
}

// WritePump pumps enqueued messages to the transport and keeps the
// connection alive with protocol-level pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
		c.cancel()
	}()

	for {
		select {
		case <-c.ctx.Done():
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage decodes one inbound frame and dispatches it. A frame
// that is not valid JSON is dropped with an error reply; it must never
// escape the handler.
func (c *Client) handleMessage(message []byte) {
	metrics.MessagesReceived.Inc()

	var env Envelope
	if err := json.Unmarshal(message, &env); err != nil {
		logrus.WithError(err).WithField("client", c.ID).Debug("Dropping malformed channel message")
		c.sendError("invalid message format")
		return
	}

	switch env.Type {
	case MessageTypeSubscribe:
		var filter SubscribeFilter
		if err := env.Decode(&filter); err != nil {
			c.sendError("invalid subscribe filter")
			return
		}
		c.Hub.HandleSubscribe(c, filter)
	case MessageTypeUnsubscribe:
		var filter SubscribeFilter
		if err := env.Decode(&filter); err != nil {
			c.sendError("invalid unsubscribe filter")
			return
		}
		c.Hub.HandleUnsubscribe(c, filter)
	case MessageTypePing, MessageTypePong:
		c.Hub.HandlePing(c)
	default:
		c.sendError("unknown message type: " + string(env.Type))
	}
}

func (c *Client) sendError(msg string) {
	env, err := NewEnvelope(MessageTypeError, ErrorPayload{Message: msg})
	if err != nil {
		return
	}
	data, err := env.Encode()
	if err != nil {
		return
	}
	c.Enqueue(data)
}

// Enqueue offers a frame to the client's send buffer without
// blocking. Returns false when the client is closed or its buffer is
// full, in which case the caller should treat the connection as dead.
func (c *Client) Enqueue(data []byte) bool {
	select {
	case <-c.ctx.Done():
		return false
	default:
	}

	select {
	case c.Send <- data:
		return true
	default:
		return false
	}
}

// Closed reports whether the client has been shut down.
func (c *Client) Closed() bool {
	select {
	case <-c.ctx.Done():
		return true
	default:
		return false
	}
}

// Close shuts the client down. WritePump sends the close frame once
// the context is cancelled. Safe to call more than once.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		c.cancel()
	})
}
