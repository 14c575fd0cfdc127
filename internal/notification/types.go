// Package notification delivers operator alerts about sync cycles through
// shoutrrr-compatible push services.
package notification

import (
	"time"

	"github.com/google/uuid"
)

// Type represents the category of a notification
type Type string

const (
	// TypeError reports a failed cycle
	TypeError Type = "error"
	// TypeWarning reports a cycle that finished with skipped files
	TypeWarning Type = "warning"
	// TypeInfo reports a recovered scope
	TypeInfo Type = "info"
)

// Notification is one message handed to the providers.
type Notification struct {
	ID        string
	Type      Type
	Title     string
	Message   string
	Scope     string
	Timestamp time.Time
}

// NewNotification creates a notification with a fresh ID.
func NewNotification(notifType Type, scope, title, message string) *Notification {
	return &Notification{
		ID:        uuid.NewString(),
		Type:      notifType,
		Title:     title,
		Message:   message,
		Scope:     scope,
		Timestamp: time.Now(),
	}
}

// dedupKey identifies repeats of the same alert for the same scope.
func (n *Notification) dedupKey() string {
	return string(n.Type) + "|" + n.Scope + "|" + n.Title + "|" + n.Message
}
