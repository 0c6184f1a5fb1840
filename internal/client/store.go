package client

import (
	"sync"
	"time"

	"github.com/snoopyylion/hojo-radio-sub001/internal/models"
)

const (
	// ToastTTL bounds the lifetime of an in-app message toast.
	ToastTTL = 30 * time.Second
	// TypingTTL is how long a typing entry stays alive without a fresh
	// typing frame.
	TypingTTL = 5 * time.Second
	// SweepInterval is the production period of the expiry sweep.
	SweepInterval = time.Second
)

type ToastKind string

const (
	ToastMessage ToastKind = "message"
	ToastTyping  ToastKind = "typing"
)

// Toast is a bounded-lifetime entry in the ephemeral in-app list.
type Toast struct {
	ID             string
	Kind           ToastKind
	Notification   models.Notification // message toasts
	ConversationID string              // typing toasts
	TypingUsers    []models.TypingUser // typing toasts
	CreatedAt      time.Time
}

// Store owns all client-side notification state: the persisted record list,
// per-conversation typing presence, conversation summaries and ephemeral
// toasts. Every mutation goes through the store's mutex, so callers on the
// transport goroutine, the sweep ticker and user interaction paths are
// serialized. Grouped views are pure projections of the record set.
type Store struct {
	mu            sync.Mutex
	clock         Clock
	records       []models.Notification
	ids           map[string]struct{}
	typing        map[string][]models.TypingUser
	conversations []models.ConversationSummary
	toasts        []Toast
	filter        ListFilter
	page          int
}

func NewStore(clock Clock) *Store {
	if clock == nil {
		clock = systemClock{}
	}
	return &Store{
		clock:  clock,
		ids:    map[string]struct{}{},
		typing: map[string][]models.TypingUser{},
		page:   1,
	}
}

func (s *Store) now() time.Time {
	return s.clock.Now()
}

// Add appends a record to the set. Records with an already-known ID are
// ignored; the bool reports whether the record was actually added.
func (s *Store) Add(n models.Notification) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ids[n.ID]; ok {
		return false
	}
	s.ids[n.ID] = struct{}{}
	s.records = append(s.records, n)
	return true
}

// Reconcile merges the server-side record list into the local set: missing
// records are added and read flags adopt the server's truth.
func (s *Store) Reconcile(records []models.Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range records {
		if _, ok := s.ids[n.ID]; ok {
			for i := range s.records {
				if s.records[i].ID == n.ID {
					s.records[i].Read = n.Read
					break
				}
			}
			continue
		}
		s.ids[n.ID] = struct{}{}
		s.records = append(s.records, n)
	}
}

func (s *Store) Get(id string) (models.Notification, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range s.records {
		if n.ID == id {
			return n, true
		}
	}
	return models.Notification{}, false
}

func (s *Store) MarkRead(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.records {
		if s.records[i].ID == id {
			s.records[i].Read = true
			return true
		}
	}
	return false
}

func (s *Store) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.records {
		if s.records[i].ID == id {
			s.records = append(s.records[:i], s.records[i+1:]...)
			delete(s.ids, id)
			return true
		}
	}
	return false
}

func (s *Store) Records() []models.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Notification, len(s.records))
	copy(out, s.records)
	return out
}

func (s *Store) UnreadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, n := range s.records {
		if !n.Read {
			count++
		}
	}
	return count
}

// Grouped recomputes the grouped projection of the current record set.
func (s *Store) Grouped() []models.GroupedNotification {
	return GroupNotifications(s.Records())
}

// SetFilter replaces the list filter. Any change resets pagination to the
// first page.
func (s *Store) SetFilter(f ListFilter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f != s.filter {
		s.page = 1
	}
	s.filter = f
}

func (s *Store) SetPage(page int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if page < 1 {
		page = 1
	}
	s.page = page
}

// View returns the current page of the filtered, grouped list along with the
// total page count and the effective page number.
func (s *Store) View() ([]models.GroupedNotification, int, int) {
	groups := s.Grouped()
	s.mu.Lock()
	filter := s.filter
	page := s.page
	s.mu.Unlock()
	filtered := FilterGroups(groups, filter)
	items, totalPages := Paginate(filtered, page)
	if totalPages > 0 && page > totalPages {
		page = totalPages
	}
	return items, totalPages, page
}

// AddToast pushes a message record onto the ephemeral in-app list.
func (s *Store) AddToast(n models.Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.toasts = append(s.toasts, Toast{
		ID:           n.ID,
		Kind:         ToastMessage,
		Notification: n,
		CreatedAt:    s.clock.Now(),
	})
}

// ApplyTyping upserts or removes a user in a conversation's typing set.
// Typing is presence, not a notification: it is always applied.
func (s *Store) ApplyTyping(conversationID string, user models.TypingUser, isTyping bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	users := s.typing[conversationID]
	if !isTyping {
		s.typing[conversationID] = removeTypingUser(users, user.UserID)
		return
	}
	if user.LastTyped.IsZero() {
		user.LastTyped = s.clock.Now()
	}
	for i := range users {
		if users[i].UserID == user.UserID {
			users[i] = user
			s.typing[conversationID] = users
			return
		}
	}
	s.typing[conversationID] = append(users, user)
}

func removeTypingUser(users []models.TypingUser, userID string) []models.TypingUser {
	out := users[:0]
	for _, u := range users {
		if u.UserID != userID {
			out = append(out, u)
		}
	}
	return out
}

func (s *Store) Typing(conversationID string) []models.TypingUser {
	s.mu.Lock()
	defer s.mu.Unlock()
	users := s.typing[conversationID]
	out := make([]models.TypingUser, len(users))
	copy(out, users)
	return out
}

func (s *Store) SetConversations(convs []models.ConversationSummary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversations = convs
}

func (s *Store) Conversations() []models.ConversationSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.ConversationSummary, len(s.conversations))
	copy(out, s.conversations)
	return out
}

// Toasts returns the live ephemeral list: message toasts plus one synthesized
// typing entry per conversation with active typers.
func (s *Store) Toasts() []Toast {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Toast, 0, len(s.toasts)+len(s.typing))
	out = append(out, s.toasts...)
	for conv, users := range s.typing {
		if len(users) == 0 {
			continue
		}
		snapshot := make([]models.TypingUser, len(users))
		copy(snapshot, users)
		latest := users[0].LastTyped
		for _, u := range users[1:] {
			if u.LastTyped.After(latest) {
				latest = u.LastTyped
			}
		}
		out = append(out, Toast{
			ID:             "typing:" + conv,
			Kind:           ToastTyping,
			ConversationID: conv,
			TypingUsers:    snapshot,
			CreatedAt:      latest,
		})
	}
	return out
}

// Sweep drops expired toasts and stale typing entries. Visible expiry is
// only as granular as the sweep period.
func (s *Store) Sweep(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.toasts[:0]
	for _, t := range s.toasts {
		if now.Sub(t.CreatedAt) < ToastTTL {
			kept = append(kept, t)
		}
	}
	s.toasts = kept

	for conv, users := range s.typing {
		live := users[:0]
		for _, u := range users {
			if now.Sub(u.LastTyped) < TypingTTL {
				live = append(live, u)
			}
		}
		if len(live) == 0 {
			delete(s.typing, conv)
		} else {
			s.typing[conv] = live
		}
	}
}
