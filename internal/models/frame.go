package models

import "time"

// Wire frame discriminators pushed over the /global socket.
const (
	FrameNewMessage          = "new_message"
	FrameTypingUpdate        = "typing_update"
	FrameConversationsUpdate = "conversations_update"
)

type MessageEvent struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	SenderID       string    `json:"sender_id"`
	SenderName     string    `json:"sender_name"`
	SenderAvatar   string    `json:"sender_avatar,omitempty"`
	Text           string    `json:"text"`
	CreatedAt      time.Time `json:"created_at"`
}

type TypingEvent struct {
	ConversationID string `json:"conversation_id"`
	UserID         string `json:"user_id"`
	Username       string `json:"username"`
	IsTyping       bool   `json:"is_typing"`
}

// WireFrame is the envelope for every frame on the socket. Only the field
// matching Type is populated.
type WireFrame struct {
	Type          string                `json:"type"`
	Message       *MessageEvent         `json:"message,omitempty"`
	Typing        *TypingEvent          `json:"typing,omitempty"`
	Conversations []ConversationSummary `json:"conversations,omitempty"`
}
