package models

import "time"

// NotificationType tags a notification with the domain event that produced it.
type NotificationType string

const (
	NotificationSwapProposal NotificationType = "swap_proposal"
	NotificationSwapAccepted NotificationType = "swap_accepted"
	NotificationSwapRejected NotificationType = "swap_rejected"
	NotificationSwapCancelled NotificationType = "swap_cancelled"
	NotificationSwapExpired  NotificationType = "swap_expired"

	NotificationBookingVerified NotificationType = "booking_verified"
	NotificationBookingExpired  NotificationType = "booking_expired"

	NotificationProposalAccepted NotificationType = "proposal_accepted"
	NotificationProposalRejected NotificationType = "proposal_rejected"

	NotificationProposalPaymentCompleted NotificationType = "proposal_payment_completed"
	NotificationProposalPaymentFailed    NotificationType = "proposal_payment_failed"

	NotificationPaymentProcessing NotificationType = "payment_processing"
	NotificationPaymentCompleted  NotificationType = "payment_completed"
	NotificationPaymentFailed     NotificationType = "payment_failed"

	// NotificationUpdate is the fallthrough for event types the dispatcher does
	// not recognise; unknown events are surfaced, never dropped.
	NotificationUpdate NotificationType = "update"
)

// NotificationStatus tracks delivery/read state.
type NotificationStatus string

const (
	NotificationDelivered NotificationStatus = "delivered"
	NotificationRead      NotificationStatus = "read"
)

// NotificationChannel identifies the delivery channel.
type NotificationChannel string

const ChannelInApp NotificationChannel = "in_app"

// Notification represents an in-app notification for the local user.
// Immutable once created except Status and ReadAt, which are owned by the
// notification store.
type Notification struct {
	ID        string              `json:"id"`
	UserID    string              `json:"user_id"`
	Type      NotificationType    `json:"type"`
	Title     string              `json:"title"`
	Message   string              `json:"message"`
	Severity  string              `json:"severity"`
	Data      map[string]any      `json:"data,omitempty"`
	Channel   NotificationChannel `json:"channel"`
	Status    NotificationStatus  `json:"status"`
	CreatedAt time.Time           `json:"created_at"`
	ReadAt    *time.Time          `json:"read_at,omitempty"`
}

// IsRead reports whether the notification has been read.
func (n Notification) IsRead() bool {
	return n.Status == NotificationRead
}

// Severity levels used by presentation adapters.
const (
	SeverityInfo    = "info"
	SeveritySuccess = "success"
	SeverityWarning = "warning"
	SeverityError   = "error"
)
