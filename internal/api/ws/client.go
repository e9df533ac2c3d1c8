package ws

import (
	"errors"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/codecanvas/internal/infrastructure/monitoring"
)

var errClientGone = errors.New("websocket client gone")

const (
	roleEditor  = "editor"
	rolePreview = "preview"
)

// client owns one socket. Only writePump writes to conn; everything else
// goes through the send queue.
type client struct {
	id   string
	role string
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once

	config  Config
	logger  *zap.Logger
	metrics *monitoring.Metrics
}

func newClient(conn *websocket.Conn, role string, config Config, logger *zap.Logger, metrics *monitoring.Metrics) *client {
	cid := uuid.NewString()
	return &client{
		id:      cid,
		role:    role,
		conn:    conn,
		send:    make(chan []byte, config.SendBuffer),
		done:    make(chan struct{}),
		config:  config,
		logger:  logger.With(zap.String("conn", cid), zap.String("role", role)),
		metrics: metrics,
	}
}

// enqueue queues a frame without blocking. A client whose queue is full
// is too slow to keep up and gets disconnected.
func (c *client) enqueue(frame []byte) error {
	select {
	case <-c.done:
		return errClientGone
	default:
	}

	select {
	case c.send <- frame:
		return nil
	case <-c.done:
		return errClientGone
	default:
		c.logger.Warn("Send queue full, dropping connection")
		c.close()
		return errClientGone
	}
}

func (c *client) sendJSON(msg map[string]interface{}) error {
	frame, err := encode(msg)
	if err != nil {
		return err
	}
	if err := c.enqueue(frame); err != nil {
		return err
	}
	c.record("out", msg["type"])
	return nil
}

func (c *client) sendError(msg string) error {
	return c.sendJSON(map[string]interface{}{
		"type":      "error",
		"message":   msg,
		"timestamp": time.Now().Unix(),
	})
}

func (c *client) close() {
	c.once.Do(func() { close(c.done) })
}

func (c *client) closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// writePump drains the send queue and keeps the connection alive with
// pings. It closes conn on exit, which also ends readLoop.
func (c *client) writePump() {
	ticker := time.NewTicker(c.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.logger.Debug("Write failed", zap.Error(err))
				c.close()
				return
			}
		case <-ticker.C:
			deadline := time.Now().Add(c.config.WriteTimeout)
			if err := c.conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				c.close()
				return
			}
		case <-c.done:
			c.flush()
			deadline := time.Now().Add(c.config.WriteTimeout)
			msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
			_ = c.conn.WriteControl(websocket.CloseMessage, msg, deadline)
			return
		}
	}
}

// flush writes whatever is still queued, best effort
func (c *client) flush() {
	for {
		select {
		case frame := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		default:
			return
		}
	}
}

// readLoop hands every text frame to handle until the socket fails
func (c *client) readLoop(handle func(data []byte)) {
	pongWait := 2 * c.config.PingInterval
	c.conn.SetReadLimit(c.config.MaxMessageBytes)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug("WebSocket read error", zap.Error(err))
			}
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		handle(data)
	}
}

func (c *client) record(direction string, msgType interface{}) {
	if c.metrics == nil {
		return
	}
	if s, ok := msgType.(string); ok {
		c.metrics.RecordWSMessage(direction, s)
	}
}

func encode(msg map[string]interface{}) ([]byte, error) {
	return sonic.Marshal(msg)
}
