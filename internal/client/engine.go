package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/snoopyylion/hojo-radio-sub001/internal/models"
)

type Config struct {
	// HubURL is the websocket origin, e.g. ws://localhost:8711.
	HubURL string
	// APIBaseURL is the REST origin for backfill and cleanup. Optional.
	APIBaseURL string
	UserID     string
	Token      string
	// ReconnectDelay defaults to DefaultReconnectDelay.
	ReconnectDelay time.Duration
	// SweepInterval defaults to SweepInterval.
	SweepInterval time.Duration
}

// Engine is the notification core: it owns the transport, routes inbound
// frames, applies the suppression policy and fans surfaced events out to the
// store and the system notifier. One engine per signed-in user.
type Engine struct {
	cfg      Config
	log      zerolog.Logger
	store    *Store
	presence Presence
	notifier Notifier
	api      *APIClient

	transport *Transport

	mu        sync.Mutex
	processed map[string]struct{}
	connected bool
}

func NewEngine(cfg Config, store *Store, presence Presence, notifier Notifier, logger zerolog.Logger) *Engine {
	if store == nil {
		store = NewStore(nil)
	}
	if presence == nil {
		presence = NoPresence
	}
	if notifier == nil {
		notifier = NoopNotifier{}
	}
	e := &Engine{
		cfg:       cfg,
		log:       logger,
		store:     store,
		presence:  presence,
		notifier:  notifier,
		processed: map[string]struct{}{},
	}
	if cfg.APIBaseURL != "" {
		e.api = NewAPIClient(cfg.APIBaseURL, cfg.Token)
	}
	return e
}

func (e *Engine) Store() *Store { return e.store }

func (e *Engine) Connected() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.connected
}

func (e *Engine) socketURL() string {
	return fmt.Sprintf("%s/global?userId=%s", e.cfg.HubURL, url.QueryEscape(e.cfg.UserID))
}

// Run connects to the hub and processes frames until the context is
// canceled. The socket is closed cleanly on the way out so the hub doesn't
// see the departure as a failure.
func (e *Engine) Run(ctx context.Context) {
	e.transport = NewTransport(e.socketURL(), e.cfg.ReconnectDelay, e.handleFrame, e.setConnected, e.log)

	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			e.transport.Close()
		case <-done:
		}
	}()
	go e.sweepLoop(ctx)

	e.transport.Run(ctx)
	close(done)
}

func (e *Engine) sweepLoop(ctx context.Context) {
	interval := e.cfg.SweepInterval
	if interval <= 0 {
		interval = SweepInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.store.Sweep(e.store.now())
		}
	}
}

func (e *Engine) setConnected(connected bool) {
	e.mu.Lock()
	e.connected = connected
	e.mu.Unlock()
	if connected {
		e.log.Info().Str("user_id", e.cfg.UserID).Msg("Connected to hub")
		go e.backfill()
	} else {
		e.log.Info().Str("user_id", e.cfg.UserID).Msg("Disconnected from hub")
	}
}

// backfill reconciles local read/unread state with the server after every
// (re)connect. Best effort: a failure leaves the local state as is.
func (e *Engine) backfill() {
	if e.api == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	notifs, err := e.api.List(ctx, e.cfg.UserID)
	if err != nil {
		e.log.Warn().Err(err).Msg("Backfill failed")
		return
	}
	e.mu.Lock()
	for _, n := range notifs {
		e.processed[n.ID] = struct{}{}
	}
	e.mu.Unlock()
	e.store.Reconcile(notifs)
}

// handleFrame is the event router: decode, dispatch on the type
// discriminator, drop anything unknown or malformed.
func (e *Engine) handleFrame(data []byte) {
	var frame models.WireFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		e.log.Debug().Err(err).Msg("Dropping malformed frame")
		return
	}
	switch frame.Type {
	case models.FrameNewMessage:
		if frame.Message != nil {
			e.handleMessage(*frame.Message)
		}
	case models.FrameTypingUpdate:
		if frame.Typing != nil {
			e.handleTyping(*frame.Typing)
		}
	case models.FrameConversationsUpdate:
		e.store.SetConversations(frame.Conversations)
	default:
		e.log.Debug().Str("type", frame.Type).Msg("Dropping unknown frame type")
	}
}

// markProcessed records a message id in the replay guard. It reports false if
// the id was already seen.
func (e *Engine) markProcessed(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, dup := e.processed[id]; dup {
		return false
	}
	e.processed[id] = struct{}{}
	return true
}

// handleMessage applies the suppression policy: self echoes and replays are
// dropped outright; messages for the conversation the user is already viewing
// update the underlying record set but surface nothing.
func (e *Engine) handleMessage(m models.MessageEvent) {
	if m.SenderID == e.cfg.UserID {
		return
	}
	if !e.markProcessed(m.ID) {
		return
	}

	n := models.Notification{
		ID:     m.ID,
		UserID: e.cfg.UserID,
		Type:   models.NotifTypeMessage,
		Title:  fmt.Sprintf("New message from %s", senderName(m)),
		Text:   m.Text,
		Actor: models.Actor{
			ID:     m.SenderID,
			Name:   m.SenderName,
			Avatar: m.SenderAvatar,
		},
		ConversationID: m.ConversationID,
		CreatedAt:      m.CreatedAt,
	}
	e.store.Add(n)

	if e.presence.CurrentlyViewing(m.ConversationID) {
		return
	}

	e.store.AddToast(n)
	if e.notifier.Permission() == PermissionGranted {
		e.notifier.Notify(n.Title, n.Text)
	}
}

func senderName(m models.MessageEvent) string {
	if m.SenderName != "" {
		return m.SenderName
	}
	return "Someone"
}

// handleTyping updates per-conversation presence, filtering the user's own
// echo. Typing never produces a discrete notification.
func (e *Engine) handleTyping(t models.TypingEvent) {
	if t.UserID == e.cfg.UserID {
		return
	}
	e.store.ApplyTyping(t.ConversationID, models.TypingUser{
		UserID:    t.UserID,
		Username:  t.Username,
		LastTyped: e.store.now(),
	}, t.IsTyping)
}

// Open handles a click on a notification: mark it read, resolve where to
// navigate, and fire the server-side cleanup without blocking on it.
func (e *Engine) Open(id string) string {
	n, ok := e.store.Get(id)
	if !ok {
		return "/notifications"
	}
	e.store.MarkRead(id)
	if e.api != nil {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := e.api.Delete(ctx, e.cfg.UserID, id); err != nil {
				e.log.Debug().Err(err).Str("id", id).Msg("Notification cleanup failed")
			}
		}()
	}
	return Destination(n)
}

// Destination resolves the navigation target for a record from its refs.
func Destination(n models.Notification) string {
	switch {
	case n.ConversationID != "":
		return "/messages/" + n.ConversationID
	case n.PostID != "":
		return "/post/" + n.PostID
	case n.Actor.ID != "":
		return "/user/" + n.Actor.ID
	}
	return "/notifications"
}
