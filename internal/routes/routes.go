package routes

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
	"golang.org/x/time/rate"

	"github.com/snoopyylion/hojo-radio-sub001/internal/hub"
	"github.com/snoopyylion/hojo-radio-sub001/internal/models"
)

// NotificationStore is the persistence surface the routes need. Implemented
// by db.NotificationService; tests use an in-memory fake.
type NotificationStore interface {
	Send(ctx context.Context, notif *models.Notification) error
	List(ctx context.Context, userID string) ([]models.Notification, error)
	MarkRead(ctx context.Context, userID string, notifID string) error
	Delete(ctx context.Context, userID string, notifID string) error
	Conversations(ctx context.Context, userID string) ([]models.ConversationSummary, error)
}

type Routes struct {
	cfg      *models.EnvConfig
	store    NotificationStore
	hub      *hub.Hub
	logger   zerolog.Logger
	upgrader websocket.Upgrader

	limitersMu sync.Mutex
	limiters   map[string]*rate.Limiter
}

func NewRouter(cfg *models.EnvConfig, store NotificationStore, h *hub.Hub, logger zerolog.Logger) chi.Router {
	routes := &Routes{
		cfg:    cfg,
		store:  store,
		hub:    h,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		limiters: map[string]*rate.Limiter{},
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(hlog.NewHandler(logger))

	r.Get("/global", routes.AppHandler(routes.GetGlobal))
	r.Route("/api", func(r chi.Router) {
		r.Route("/notifications", func(r chi.Router) {
			r.With(routes.RequireToken).Post("/", routes.AppHandler(routes.PostNotification))
			r.Get("/", routes.AppHandler(routes.GetNotifications))
			r.Post("/{notifID}/read", routes.AppHandler(routes.PostNotificationRead))
			r.Delete("/{notifID}", routes.AppHandler(routes.DeleteNotification))
		})
		r.With(routes.RequireToken).
			Post("/conversations/{conversationID}/typing", routes.AppHandler(routes.PostTyping))
	})
	return r
}

type AppError interface {
	error
	StatusCode() int
	UserMessage() string
}

type ErrInternal struct {
	Message string
	Cause   error
}

func (e *ErrInternal) Error() string {
	if e.Cause != nil {
		return e.Cause.Error()
	}
	return e.Message
}
func (e *ErrInternal) StatusCode() int { return http.StatusInternalServerError }
func (e *ErrInternal) UserMessage() string {
	if e.Message != "" {
		return e.Message
	}
	return "Internal server error"
}

type ErrNotFound struct {
	Thing string
	Cause error
}

func (e *ErrNotFound) Error() string {
	if e.Cause != nil {
		return e.Cause.Error()
	}
	return "not found: " + e.Thing
}
func (e *ErrNotFound) StatusCode() int     { return http.StatusNotFound }
func (e *ErrNotFound) UserMessage() string { return "Not found: " + e.Thing }

type ErrBadRequest struct {
	Message string
	Cause   error
}

func (e *ErrBadRequest) Error() string {
	if e.Cause != nil {
		return e.Cause.Error()
	}
	return e.Message
}
func (e *ErrBadRequest) StatusCode() int     { return http.StatusBadRequest }
func (e *ErrBadRequest) UserMessage() string { return e.Message }

type ErrUnauthorized struct{}

func (e *ErrUnauthorized) Error() string       { return "unauthorized" }
func (e *ErrUnauthorized) StatusCode() int     { return http.StatusUnauthorized }
func (e *ErrUnauthorized) UserMessage() string { return "Unauthorized" }

type ErrRateLimited struct{}

func (e *ErrRateLimited) Error() string       { return "rate limited" }
func (e *ErrRateLimited) StatusCode() int     { return http.StatusTooManyRequests }
func (e *ErrRateLimited) UserMessage() string { return "Too many requests" }

func (routes *Routes) AppHandler(handler func(w http.ResponseWriter, r *http.Request) AppError) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := handler(w, r)
		if err == nil {
			return
		}
		http.Error(w, err.UserMessage(), err.StatusCode())
		hlog.FromRequest(r).
			Error().
			Str("request_id", middleware.GetReqID(r.Context())).
			Err(err).
			Msg(err.UserMessage())
	}
}

// RequireToken guards producer endpoints with the static ingest token. An
// empty configured token leaves the endpoint open (local development).
func (routes *Routes) RequireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if routes.cfg.IngestToken != "" {
			got := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			if subtle.ConstantTimeCompare([]byte(got), []byte(routes.cfg.IngestToken)) != 1 {
				routes.AppHandler(func(http.ResponseWriter, *http.Request) AppError {
					return &ErrUnauthorized{}
				})(w, r)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// limiter returns the per-user ingest limiter, creating it on first use.
func (routes *Routes) limiter(userID string) *rate.Limiter {
	routes.limitersMu.Lock()
	defer routes.limitersMu.Unlock()
	l, ok := routes.limiters[userID]
	if !ok {
		perSecond := rate.Limit(float64(routes.cfg.NotifsPerMinute) / 60.0)
		l = rate.NewLimiter(perSecond, routes.cfg.NotifsPerMinute)
		routes.limiters[userID] = l
	}
	return l
}

func renderJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
