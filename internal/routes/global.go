package routes

import (
	"net/http"

	"github.com/snoopyylion/hojo-radio-sub001/internal/models"
)

// GetGlobal upgrades to the per-user push socket and attaches it to the hub.
// A conversations snapshot is pushed right after attach so a reconnecting
// client starts from current state.
func (routes *Routes) GetGlobal(w http.ResponseWriter, r *http.Request) AppError {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		return &ErrBadRequest{Message: "Missing userId"}
	}

	ws, err := routes.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response.
		routes.logger.Debug().Err(err).Msg("Socket upgrade failed")
		return nil
	}
	routes.hub.Attach(userID, ws)
	routes.logger.Debug().Str("user_id", userID).Msg("Socket attached")

	convs, err := routes.store.Conversations(r.Context(), userID)
	if err == nil {
		routes.hub.SendToUser(userID, models.WireFrame{
			Type:          models.FrameConversationsUpdate,
			Conversations: convs,
		})
	}
	return nil
}
