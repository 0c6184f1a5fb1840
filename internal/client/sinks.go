package client

import "github.com/rs/zerolog"

// Presence answers whether the user is currently looking at a conversation.
// In the web app this is the route observer; embedders supply their own.
type Presence interface {
	CurrentlyViewing(conversationID string) bool
}

type PresenceFunc func(conversationID string) bool

func (f PresenceFunc) CurrentlyViewing(conversationID string) bool { return f(conversationID) }

// NoPresence reports the user as never viewing any conversation, so nothing
// is route-suppressed.
var NoPresence = PresenceFunc(func(string) bool { return false })

type Permission int

const (
	PermissionDefault Permission = iota
	PermissionGranted
	PermissionDenied
)

// Notifier is the system-notification sink (the browser Notification API
// analog). Delivery only happens when permission is granted; denial degrades
// silently to the in-app list.
type Notifier interface {
	Permission() Permission
	Notify(title, body string)
}

type NoopNotifier struct{}

func (NoopNotifier) Permission() Permission { return PermissionDenied }
func (NoopNotifier) Notify(string, string)  {}

// LogNotifier writes notifications to the log. Used by the `listen` command
// as a terminal stand-in for a desktop notifier.
type LogNotifier struct {
	Log zerolog.Logger
}

func (n LogNotifier) Permission() Permission { return PermissionGranted }
func (n LogNotifier) Notify(title, body string) {
	n.Log.Info().Str("title", title).Str("body", body).Msg("Notification")
}
