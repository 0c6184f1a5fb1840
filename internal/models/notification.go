package models

import "time"

type NotifType string

const (
	NotifTypeMessage     NotifType = "message"
	NotifTypeLike        NotifType = "like"
	NotifTypeComment     NotifType = "comment"
	NotifTypeFollow      NotifType = "follow"
	NotifTypeMention     NotifType = "mention"
	NotifTypeAchievement NotifType = "achievement"
	NotifTypeSystem      NotifType = "system"
)

type Actor struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`
}

// Notification is a single unit of inbound activity. IDs are unique within a
// user's stream; consumers must treat a duplicate ID as a replay and ignore it.
type Notification struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	Type           NotifType `json:"type" db:"notif_type"`
	Title          string    `json:"title"`
	Text           string    `json:"text"`
	Actor          Actor     `json:"actor,omitempty"`
	ConversationID string    `json:"conversation_id,omitempty"`
	PostID         string    `json:"post_id,omitempty"`
	Read           bool      `json:"read"`
	CreatedAt      time.Time `json:"created_at"`
}

// GroupedNotification is a derived view-model bundling related records for
// compact display. It is recomputed from the record set and never persisted.
type GroupedNotification struct {
	GroupKey    string         `json:"group_key"`
	Members     []Notification `json:"members"` // newest first
	UnreadCount int            `json:"unread_count"`
	IsGrouped   bool           `json:"is_grouped"`
	Summary     string         `json:"summary"`
	LatestAt    time.Time      `json:"latest_at"`
}

type TypingUser struct {
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	LastTyped time.Time `json:"timestamp"`
}

type ConversationSummary struct {
	ID          string    `json:"id" db:"conversation_id"`
	LastMessage string    `json:"last_message,omitempty"`
	UnreadCount int       `json:"unread_count"`
	UpdatedAt   time.Time `json:"updated_at"`
}
