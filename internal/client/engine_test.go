package client

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/snoopyylion/hojo-radio-sub001/internal/models"
)

type recordingNotifier struct {
	mu         sync.Mutex
	permission Permission
	delivered  []string
}

func (n *recordingNotifier) Permission() Permission { return n.permission }
func (n *recordingNotifier) Notify(title, body string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.delivered = append(n.delivered, title)
}
func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.delivered)
}

func newTestEngine(presence Presence, notifier Notifier) *Engine {
	store := NewStore(newFakeClock(base))
	return NewEngine(Config{UserID: "me"}, store, presence, notifier, zerolog.Nop())
}

func messageFrame(t *testing.T, id, sender, conv string, at time.Time) []byte {
	t.Helper()
	data, err := json.Marshal(models.WireFrame{
		Type: models.FrameNewMessage,
		Message: &models.MessageEvent{
			ID:             id,
			ConversationID: conv,
			SenderID:       sender,
			SenderName:     sender,
			Text:           "hey",
			CreatedAt:      at,
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func typingFrame(t *testing.T, conv, userID, username string, isTyping bool) []byte {
	t.Helper()
	data, err := json.Marshal(models.WireFrame{
		Type: models.FrameTypingUpdate,
		Typing: &models.TypingEvent{
			ConversationID: conv,
			UserID:         userID,
			Username:       username,
			IsTyping:       isTyping,
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func TestSelfMessagesAreSuppressed(t *testing.T) {
	notifier := &recordingNotifier{permission: PermissionGranted}
	engine := newTestEngine(nil, notifier)

	engine.handleFrame(messageFrame(t, "m1", "me", "c1", base))

	if got := len(engine.Store().Records()); got != 0 {
		t.Fatalf("len(Records()) = %d, want 0 for self echo", got)
	}
	if notifier.count() != 0 {
		t.Fatalf("notifier fired %d times for self echo, want 0", notifier.count())
	}
}

func TestDuplicateFramesAreIdempotent(t *testing.T) {
	engine := newTestEngine(nil, nil)
	frame := messageFrame(t, "m1", "alice", "c1", base)

	engine.handleFrame(frame)
	engine.handleFrame(frame)

	if got := len(engine.Store().Records()); got != 1 {
		t.Fatalf("len(Records()) after replay = %d, want 1", got)
	}
	if got := engine.Store().UnreadCount(); got != 1 {
		t.Fatalf("UnreadCount() after replay = %d, want 1", got)
	}
	if got := len(engine.Store().Grouped()); got != 1 {
		t.Fatalf("len(Grouped()) after replay = %d, want 1", got)
	}
}

func TestViewedConversationSuppressesSurfacing(t *testing.T) {
	notifier := &recordingNotifier{permission: PermissionGranted}
	viewing := PresenceFunc(func(conv string) bool { return conv == "c1" })
	engine := newTestEngine(viewing, notifier)

	engine.handleFrame(messageFrame(t, "m1", "alice", "c1", base))

	// Underlying state still updates.
	if got := len(engine.Store().Records()); got != 1 {
		t.Fatalf("len(Records()) = %d, want 1 (state update not suppressed)", got)
	}
	// Surfacing is suppressed.
	if got := len(engine.Store().Toasts()); got != 0 {
		t.Fatalf("len(Toasts()) = %d, want 0 while viewing the conversation", got)
	}
	if notifier.count() != 0 {
		t.Fatalf("notifier fired %d times while viewing the conversation, want 0", notifier.count())
	}

	// A message in another conversation surfaces normally.
	engine.handleFrame(messageFrame(t, "m2", "alice", "c2", base))
	if got := len(engine.Store().Toasts()); got != 1 {
		t.Fatalf("len(Toasts()) = %d, want 1 for other conversation", got)
	}
	if notifier.count() != 1 {
		t.Fatalf("notifier fired %d times for other conversation, want 1", notifier.count())
	}
}

func TestPermissionDeniedDegradesToInApp(t *testing.T) {
	notifier := &recordingNotifier{permission: PermissionDenied}
	engine := newTestEngine(nil, notifier)

	engine.handleFrame(messageFrame(t, "m1", "alice", "c1", base))

	if got := len(engine.Store().Toasts()); got != 1 {
		t.Fatalf("len(Toasts()) = %d, want 1", got)
	}
	if notifier.count() != 0 {
		t.Fatalf("notifier fired %d times without permission, want 0", notifier.count())
	}
}

func TestMalformedAndUnknownFramesAreDropped(t *testing.T) {
	engine := newTestEngine(nil, nil)

	engine.handleFrame([]byte(`{"type": "new_message", "message":`))
	engine.handleFrame([]byte(`{"type": "mystery_event", "payload": 42}`))
	engine.handleFrame([]byte(`{"type": "new_message"}`))

	if got := len(engine.Store().Records()); got != 0 {
		t.Fatalf("len(Records()) = %d, want 0", got)
	}
}

func TestTypingEchoIsFiltered(t *testing.T) {
	engine := newTestEngine(nil, nil)

	engine.handleFrame(typingFrame(t, "c1", "me", "me", true))
	if got := len(engine.Store().Typing("c1")); got != 0 {
		t.Fatalf("own typing echo registered, want 0 typers")
	}

	engine.handleFrame(typingFrame(t, "c1", "u2", "bob", true))
	typers := engine.Store().Typing("c1")
	if len(typers) != 1 || typers[0].Username != "bob" {
		t.Fatalf("Typing(c1) = %+v, want bob", typers)
	}

	engine.handleFrame(typingFrame(t, "c1", "u2", "bob", false))
	if got := len(engine.Store().Typing("c1")); got != 0 {
		t.Fatalf("typers after stop = %d, want 0", got)
	}
}

func TestConversationsUpdate(t *testing.T) {
	engine := newTestEngine(nil, nil)
	data, err := json.Marshal(models.WireFrame{
		Type: models.FrameConversationsUpdate,
		Conversations: []models.ConversationSummary{
			{ID: "c1", UnreadCount: 3, UpdatedAt: base},
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	engine.handleFrame(data)

	convs := engine.Store().Conversations()
	if len(convs) != 1 || convs[0].UnreadCount != 3 {
		t.Fatalf("Conversations() = %+v, want c1 with 3 unread", convs)
	}
}

func TestOpenMarksReadAndResolvesDestination(t *testing.T) {
	engine := newTestEngine(nil, nil)
	engine.handleFrame(messageFrame(t, "m1", "alice", "c1", base))

	dest := engine.Open("m1")
	if dest != "/messages/c1" {
		t.Fatalf("Open(m1) = %s, want /messages/c1", dest)
	}
	n, _ := engine.Store().Get("m1")
	if !n.Read {
		t.Fatalf("m1.Read = false after Open, want true")
	}
	if got := engine.Store().UnreadCount(); got != 0 {
		t.Fatalf("UnreadCount() after Open = %d, want 0", got)
	}

	if dest := engine.Open("missing"); dest != "/notifications" {
		t.Fatalf("Open(missing) = %s, want /notifications", dest)
	}
}

func TestMessageTitleFallsBackForAnonymousSender(t *testing.T) {
	engine := newTestEngine(nil, nil)
	data, _ := json.Marshal(models.WireFrame{
		Type: models.FrameNewMessage,
		Message: &models.MessageEvent{
			ID:             "m1",
			ConversationID: "c1",
			SenderID:       "u9",
			Text:           "hi",
			CreatedAt:      base.Add(time.Minute),
		},
	})
	engine.handleFrame(data)

	n, ok := engine.Store().Get("m1")
	if !ok {
		t.Fatalf("record m1 missing")
	}
	if n.Title != "New message from Someone" {
		t.Fatalf("Title = %q, want fallback sender name", n.Title)
	}
}
