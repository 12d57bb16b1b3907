package dispatch

import (
	"strings"

	"github.com/swapstay/swapsync/internal/models"
)

// rawTypeMap translates short lifecycle event names from the stream into
// notification types. Events that already carry a full notification type name
// pass through untouched.
var rawTypeMap = map[string]models.NotificationType{
	"proposed":  models.NotificationSwapProposal,
	"accepted":  models.NotificationSwapAccepted,
	"rejected":  models.NotificationSwapRejected,
	"cancelled": models.NotificationSwapCancelled,
	"expired":   models.NotificationSwapExpired,
}

var knownTypes = map[models.NotificationType]struct{}{
	models.NotificationSwapProposal:             {},
	models.NotificationSwapAccepted:             {},
	models.NotificationSwapRejected:             {},
	models.NotificationSwapCancelled:            {},
	models.NotificationSwapExpired:              {},
	models.NotificationBookingVerified:          {},
	models.NotificationBookingExpired:           {},
	models.NotificationProposalAccepted:         {},
	models.NotificationProposalRejected:         {},
	models.NotificationProposalPaymentCompleted: {},
	models.NotificationProposalPaymentFailed:    {},
	models.NotificationPaymentProcessing:        {},
	models.NotificationPaymentCompleted:         {},
	models.NotificationPaymentFailed:            {},
}

// Classify maps a raw event type to a notification type. The mapping is total:
// unknown types fall through to the generic update notification so no inbound
// event is silently lost.
func Classify(eventType string) models.NotificationType {
	eventType = strings.TrimSpace(strings.ToLower(eventType))
	if mapped, ok := rawTypeMap[eventType]; ok {
		return mapped
	}
	if _, ok := knownTypes[models.NotificationType(eventType)]; ok {
		return models.NotificationType(eventType)
	}
	return models.NotificationUpdate
}

type template struct {
	title    string
	message  string
	severity string
}

var templates = map[models.NotificationType]template{
	models.NotificationSwapProposal: {
		title:    "New Swap Proposal",
		message:  "You received a new swap proposal.",
		severity: models.SeverityInfo,
	},
	models.NotificationSwapAccepted: {
		title:    "Swap Accepted",
		message:  "Your swap proposal was accepted.",
		severity: models.SeveritySuccess,
	},
	models.NotificationSwapRejected: {
		title:    "Swap Rejected",
		message:  "Your swap proposal was rejected",
		severity: models.SeverityWarning,
	},
	models.NotificationSwapCancelled: {
		title:    "Swap Cancelled",
		message:  "A swap you are part of was cancelled.",
		severity: models.SeverityWarning,
	},
	models.NotificationSwapExpired: {
		title:    "Swap Expired",
		message:  "A swap proposal expired before completion.",
		severity: models.SeverityWarning,
	},
	models.NotificationBookingVerified: {
		title:    "Booking Verified",
		message:  "Your booking was verified.",
		severity: models.SeveritySuccess,
	},
	models.NotificationBookingExpired: {
		title:    "Booking Expired",
		message:  "Your booking verification window expired.",
		severity: models.SeverityWarning,
	},
	models.NotificationProposalAccepted: {
		title:    "Proposal Accepted",
		message:  "Your proposal was accepted. Payment can now proceed.",
		severity: models.SeveritySuccess,
	},
	models.NotificationProposalRejected: {
		title:    "Proposal Rejected",
		message:  "Your proposal was rejected",
		severity: models.SeverityWarning,
	},
	models.NotificationProposalPaymentCompleted: {
		title:    "Payment Received",
		message:  "Payment for your proposal completed.",
		severity: models.SeveritySuccess,
	},
	models.NotificationProposalPaymentFailed: {
		title:    "Payment Failed",
		message:  "Payment for your proposal failed",
		severity: models.SeverityError,
	},
	models.NotificationPaymentProcessing: {
		title:    "Payment Processing",
		message:  "Your payment is being processed.",
		severity: models.SeverityInfo,
	},
	models.NotificationPaymentCompleted: {
		title:    "Payment Completed",
		message:  "Your payment completed successfully.",
		severity: models.SeveritySuccess,
	},
	models.NotificationPaymentFailed: {
		title:    "Payment Failed",
		message:  "Your payment could not be processed",
		severity: models.SeverityError,
	},
	models.NotificationUpdate: {
		title:    "Account Update",
		message:  "Something changed on your account.",
		severity: models.SeverityInfo,
	},
}

// reasonSuffixTypes name the types whose message takes a contextual suffix
// derived from the event's reason payload.
var reasonSuffixTypes = map[models.NotificationType]struct{}{
	models.NotificationSwapRejected:          {},
	models.NotificationProposalRejected:      {},
	models.NotificationProposalPaymentFailed: {},
	models.NotificationPaymentFailed:         {},
}

// render derives title, message, and severity for the classified event. Text
// is deterministic for a given (type, reason) pair.
func render(notificationType models.NotificationType, event models.StreamEvent) (string, string, string) {
	tpl, ok := templates[notificationType]
	if !ok {
		tpl = templates[models.NotificationUpdate]
	}

	message := tpl.message
	if _, wantsReason := reasonSuffixTypes[notificationType]; wantsReason {
		if reason := strings.TrimSpace(event.DataString("reason")); reason != "" {
			message = message + ": " + reason
		} else {
			message = message + "."
		}
	}
	return tpl.title, message, tpl.severity
}
