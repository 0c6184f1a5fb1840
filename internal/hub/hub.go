package hub

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"
	"github.com/snoopyylion/hojo-radio-sub001/internal/models"
)

// Hub is the server-side fan-out point: it tracks every open socket per user
// and pushes frames to all of a user's connections. A user with no open
// sockets simply misses the frame; delivery is at-most-once and the client
// backfills over REST after connecting.
type Hub struct {
	log   zerolog.Logger
	mu    sync.RWMutex
	conns map[string]map[*Conn]struct{}
}

func New(logger zerolog.Logger) *Hub {
	return &Hub{
		log:   logger,
		conns: make(map[string]map[*Conn]struct{}),
	}
}

func (h *Hub) register(c *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.conns[c.userID] == nil {
		h.conns[c.userID] = make(map[*Conn]struct{})
	}
	h.conns[c.userID][c] = struct{}{}
}

func (h *Hub) unregister(c *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set := h.conns[c.userID]; set != nil {
		delete(set, c)
		if len(set) == 0 {
			delete(h.conns, c.userID)
		}
	}
}

// ConnCount reports how many sockets a user currently has open.
func (h *Hub) ConnCount(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns[userID])
}

// SendToUser pushes a frame to every open socket of a user. Slow consumers
// whose buffers are full drop the frame rather than stalling the hub.
func (h *Hub) SendToUser(userID string, frame models.WireFrame) {
	data, err := json.Marshal(frame)
	if err != nil {
		h.log.Error().Err(err).Str("type", frame.Type).Msg("Marshaling frame")
		return
	}

	h.mu.RLock()
	conns := make([]*Conn, 0, len(h.conns[userID]))
	for c := range h.conns[userID] {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	for _, c := range conns {
		select {
		case c.send <- data:
		case <-c.done:
		default:
			h.log.Warn().Str("user_id", userID).Msg("Dropping frame for slow consumer")
		}
	}
}
