package hub

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxFrameSize   = 4096
	sendBufferSize = 64
)

// Conn wraps one websocket attached to the hub. Reads are discarded (the
// socket is push-only), writes are funneled through a buffered channel so the
// hub never blocks on a single connection.
type Conn struct {
	hub       *Hub
	userID    string
	ws        *websocket.Conn
	log       zerolog.Logger
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

// Attach registers a freshly upgraded socket and starts its pumps.
func (h *Hub) Attach(userID string, ws *websocket.Conn) *Conn {
	c := &Conn{
		hub:    h,
		userID: userID,
		ws:     ws,
		log:    h.log.With().Str("user_id", userID).Logger(),
		send:   make(chan []byte, sendBufferSize),
		done:   make(chan struct{}),
	}
	h.register(c)
	go c.writePump()
	go c.readPump()
	return c
}

func (c *Conn) close() {
	c.closeOnce.Do(func() {
		c.hub.unregister(c)
		close(c.done)
		c.ws.Close()
	})
}

// Done is closed once the connection is gone.
func (c *Conn) Done() <-chan struct{} { return c.done }

func (c *Conn) readPump() {
	defer c.close()
	c.ws.SetReadLimit(maxFrameSize)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.ws.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.log.Debug().Err(err).Msg("Socket read ended")
			}
			return
		}
		// Inbound frames are ignored; the socket is push-only.
	}
}

func (c *Conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()
	for {
		select {
		case data := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}
