package client

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// DefaultReconnectDelay is the fixed wait between reconnect attempts. The
// retry interval is deliberately constant, not exponential: the hub is a
// first-party service and a missed notification stream should recover fast.
const DefaultReconnectDelay = 3 * time.Second

// Transport maintains the single persistent socket to the hub. It hands every
// inbound frame to the handler in delivery order and reconnects after a fixed
// delay on any unclean close. A clean close (codes 1000/1001) or a local
// Close() ends the connection for good.
type Transport struct {
	url     string
	log     zerolog.Logger
	dialer  *websocket.Dialer
	delay   time.Duration
	handler func(data []byte)
	onState func(connected bool)

	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool
}

func NewTransport(url string, delay time.Duration, handler func([]byte), onState func(bool), logger zerolog.Logger) *Transport {
	if delay <= 0 {
		delay = DefaultReconnectDelay
	}
	return &Transport{
		url:     url,
		log:     logger,
		dialer:  websocket.DefaultDialer,
		delay:   delay,
		handler: handler,
		onState: onState,
	}
}

// Run dials and reads until Close is called, a clean close arrives, or the
// context is canceled. It never returns an error to the caller: transport
// failure is non-fatal and handled by retrying.
func (t *Transport) Run(ctx context.Context) {
	for {
		if t.isClosed() || ctx.Err() != nil {
			return
		}
		conn, resp, err := t.dialer.DialContext(ctx, t.url, nil)
		if resp != nil && resp.Body != nil {
			resp.Body.Close()
		}
		if err != nil {
			t.log.Debug().Err(err).Str("url", t.url).Msg("Socket dial failed")
			if !t.wait(ctx) {
				return
			}
			continue
		}

		t.mu.Lock()
		if t.closed {
			t.mu.Unlock()
			conn.Close()
			return
		}
		t.conn = conn
		t.mu.Unlock()
		t.setState(true)

		clean := t.readLoop(conn)
		t.setState(false)
		if clean || t.isClosed() {
			return
		}
		if !t.wait(ctx) {
			return
		}
	}
}

// readLoop reads frames until the connection dies. It reports whether the
// close was clean (no reconnect wanted).
func (t *Transport) readLoop(conn *websocket.Conn) bool {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			conn.Close()
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return true
			}
			if !t.isClosed() {
				t.log.Debug().Err(err).Msg("Socket closed uncleanly")
			}
			return false
		}
		t.handler(data)
	}
}

// wait sleeps for the reconnect delay. It returns false if the transport was
// closed or the context canceled while waiting.
func (t *Transport) wait(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(t.delay):
		return !t.isClosed()
	}
}

func (t *Transport) setState(connected bool) {
	if t.onState != nil {
		t.onState(connected)
	}
}

func (t *Transport) isClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

// Close shuts the transport down for good, sending a clean close frame so the
// hub doesn't treat the departure as a failure.
func (t *Transport) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	t.closed = true
	if t.conn != nil {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		t.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		t.conn.Close()
	}
}
