package models

import "time"

// ToastEntry is a time-boxed projection of a Notification shown as a
// transient toast. It never owns notification identity; dismissing a toast
// leaves the underlying notification in the store untouched.
type ToastEntry struct {
	NotificationID string           `json:"notification_id"`
	Type           NotificationType `json:"type"`
	Title          string           `json:"title"`
	Message        string           `json:"message"`
	Severity       string           `json:"severity"`
	Data           map[string]any   `json:"data,omitempty"`
	ShownAt        time.Time        `json:"shown_at"`

	// Duration is the auto-dismiss window. Zero means the toast stays until a
	// terminal event or an explicit dismissal.
	Duration time.Duration `json:"duration"`
}
