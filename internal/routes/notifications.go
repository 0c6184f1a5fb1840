package routes

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/snoopyylion/hojo-radio-sub001/internal/models"
)

var validNotifTypes = map[models.NotifType]bool{
	models.NotifTypeMessage:     true,
	models.NotifTypeLike:        true,
	models.NotifTypeComment:     true,
	models.NotifTypeFollow:      true,
	models.NotifTypeMention:     true,
	models.NotifTypeAchievement: true,
	models.NotifTypeSystem:      true,
}

// PostNotification is the producer ingest path: persist the record, then push
// realtime frames to the target user's open sockets.
func (routes *Routes) PostNotification(w http.ResponseWriter, r *http.Request) AppError {
	var notif models.Notification
	if err := json.NewDecoder(r.Body).Decode(&notif); err != nil {
		return &ErrBadRequest{Message: "Malformed notification", Cause: err}
	}
	if notif.UserID == "" {
		return &ErrBadRequest{Message: "Missing user_id"}
	}
	if !validNotifTypes[notif.Type] {
		return &ErrBadRequest{Message: "Unknown notification type"}
	}
	if !routes.limiter(notif.UserID).Allow() {
		return &ErrRateLimited{}
	}

	if notif.ID == "" {
		notif.ID = uuid.NewString()
	}
	if notif.CreatedAt.IsZero() {
		notif.CreatedAt = time.Now().UTC()
	}
	notif.Read = false

	if err := routes.store.Send(r.Context(), &notif); err != nil {
		return &ErrInternal{Message: "Error storing notification", Cause: err}
	}

	if notif.Type == models.NotifTypeMessage {
		routes.hub.SendToUser(notif.UserID, models.WireFrame{
			Type: models.FrameNewMessage,
			Message: &models.MessageEvent{
				ID:             notif.ID,
				ConversationID: notif.ConversationID,
				SenderID:       notif.Actor.ID,
				SenderName:     notif.Actor.Name,
				SenderAvatar:   notif.Actor.Avatar,
				Text:           notif.Text,
				CreatedAt:      notif.CreatedAt,
			},
		})
		routes.pushConversations(r, notif.UserID)
	}

	renderJSON(w, http.StatusCreated, notif)
	return nil
}

func (routes *Routes) pushConversations(r *http.Request, userID string) {
	convs, err := routes.store.Conversations(r.Context(), userID)
	if err != nil {
		routes.logger.Warn().Err(err).Str("user_id", userID).Msg("Listing conversations")
		return
	}
	routes.hub.SendToUser(userID, models.WireFrame{
		Type:          models.FrameConversationsUpdate,
		Conversations: convs,
	})
}

func (routes *Routes) GetNotifications(w http.ResponseWriter, r *http.Request) AppError {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		return &ErrBadRequest{Message: "Missing userId"}
	}
	notifs, err := routes.store.List(r.Context(), userID)
	if err != nil {
		return &ErrInternal{Message: "Error listing notifications", Cause: err}
	}
	renderJSON(w, http.StatusOK, notifs)
	return nil
}

func (routes *Routes) PostNotificationRead(w http.ResponseWriter, r *http.Request) AppError {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		return &ErrBadRequest{Message: "Missing userId"}
	}
	notifID := chi.URLParam(r, "notifID")
	err := routes.store.MarkRead(r.Context(), userID, notifID)
	if err != nil {
		return &ErrNotFound{Thing: "notification", Cause: err}
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

// DeleteNotification is the client's best-effort delete-on-read cleanup.
func (routes *Routes) DeleteNotification(w http.ResponseWriter, r *http.Request) AppError {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		return &ErrBadRequest{Message: "Missing userId"}
	}
	notifID := chi.URLParam(r, "notifID")
	err := routes.store.Delete(r.Context(), userID, notifID)
	if err != nil {
		return &ErrNotFound{Thing: "notification", Cause: err}
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

type typingRequest struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	ToUserID string `json:"to_user_id"`
	IsTyping bool   `json:"is_typing"`
}

// PostTyping relays a typing signal to the recipient's sockets. Typing is
// presence: it is never persisted.
func (routes *Routes) PostTyping(w http.ResponseWriter, r *http.Request) AppError {
	conversationID := chi.URLParam(r, "conversationID")
	var req typingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return &ErrBadRequest{Message: "Malformed typing update", Cause: err}
	}
	if req.UserID == "" || req.ToUserID == "" {
		return &ErrBadRequest{Message: "Missing user_id or to_user_id"}
	}
	routes.hub.SendToUser(req.ToUserID, models.WireFrame{
		Type: models.FrameTypingUpdate,
		Typing: &models.TypingEvent{
			ConversationID: conversationID,
			UserID:         req.UserID,
			Username:       req.Username,
			IsTyping:       req.IsTyping,
		},
	})
	w.WriteHeader(http.StatusAccepted)
	return nil
}
