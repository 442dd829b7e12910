package notify

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// ConnConfig tunes a websocket channel.
type ConnConfig struct {
	SendBuffer   int
	PingInterval time.Duration
	WriteTimeout time.Duration
}

func (c ConnConfig) withDefaults() ConnConfig {
	if c.SendBuffer <= 0 {
		c.SendBuffer = 32
	}
	if c.PingInterval <= 0 {
		c.PingInterval = 30 * time.Second
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 10 * time.Second
	}
	return c
}

// Conn is a Channel backed by a gorilla websocket. One goroutine writes,
// one reads; Send only ever touches the buffered queue.
type Conn struct {
	id     string
	ws     *websocket.Conn
	cfg    ConnConfig
	logger zerolog.Logger

	send chan []byte
	done chan struct{}
	once sync.Once
}

func NewConn(id string, ws *websocket.Conn, cfg ConnConfig, logger zerolog.Logger) *Conn {
	cfg = cfg.withDefaults()
	return &Conn{
		id:     id,
		ws:     ws,
		cfg:    cfg,
		logger: logger.With().Str("conn_id", id).Logger(),
		send:   make(chan []byte, cfg.SendBuffer),
		done:   make(chan struct{}),
	}
}

func (c *Conn) ID() string { return c.id }

func (c *Conn) Send(data []byte) error {
	select {
	case <-c.done:
		return ErrChannelClosed
	default:
	}

	select {
	case c.send <- data:
		return nil
	case <-c.done:
		return ErrChannelClosed
	default:
		return ErrSlowConsumer
	}
}

func (c *Conn) Close(code int, reason string) {
	c.once.Do(func() {
		msg := websocket.FormatCloseMessage(code, reason)
		_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(c.cfg.WriteTimeout))
		close(c.done)
		_ = c.ws.Close()
		c.logger.Debug().Int("code", code).Str("reason", reason).Msg("channel closed")
	})
}

func (c *Conn) Closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// Serve runs the pumps until the peer goes away, then removes the channel
// from registry. It blocks.
func (c *Conn) Serve(registry *Registry, userID int64) {
	go c.writePump()
	c.readPump()

	registry.Unregister(userID, c)
	c.Close(websocket.CloseNormalClosure, "")
}

// readPump discards inbound frames; it exists to process control frames and
// to notice when the peer disconnects.
func (c *Conn) readPump() {
	pongWait := 2 * c.cfg.PingInterval
	c.ws.SetReadLimit(4096)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.ws.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, CloseSuperseded) {
				c.logger.Debug().Err(err).Msg("read error")
			}
			return
		}
	}
}

func (c *Conn) writePump() {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case data := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				c.logger.Debug().Err(err).Msg("write failed")
				c.Close(websocket.CloseInternalServerErr, "write failed")
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Close(websocket.CloseGoingAway, "ping failed")
				return
			}
		}
	}
}
