package dispatch

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/swapstay/swapsync/internal/models"
	"github.com/swapstay/swapsync/internal/monitoring"
	"github.com/swapstay/swapsync/pkg/logger"
)

// Sink receives the notification produced for an inbound event.
type Sink interface {
	Add(notification models.Notification) bool
}

// RefreshScope identifies which authoritative entity a refresh targets.
type RefreshScope string

const (
	RefreshProposal   RefreshScope = "proposal"
	RefreshCompletion RefreshScope = "completion"
)

// Refresher receives refresh requests for the entity an event references.
type Refresher interface {
	RequestRefresh(scope RefreshScope, entityID string)
}

// Dispatcher translates raw stream events into notifications and refresh
// requests. Events are handled strictly in the order they are delivered.
type Dispatcher struct {
	userID    string
	sink      Sink
	refresher Refresher
	log       *zap.Logger
}

// NewDispatcher constructs a dispatcher delivering to the supplied sink and
// refresher. Either dependency may be nil, in which case that side effect is
// skipped.
func NewDispatcher(userID string, sink Sink, refresher Refresher) *Dispatcher {
	return &Dispatcher{
		userID:    userID,
		sink:      sink,
		refresher: refresher,
		log:       logger.WithModule("dispatch"),
	}
}

// Handle translates one inbound event. Every event yields exactly one
// notification and one refresh request; nothing is dropped.
func (d *Dispatcher) Handle(event models.StreamEvent) {
	if d == nil {
		return
	}

	notificationType := Classify(event.Type)
	title, message, severity := render(notificationType, event)
	monitoring.RecordEventDispatched(string(notificationType))

	notification := models.Notification{
		ID:        event.ID,
		UserID:    d.userID,
		Type:      notificationType,
		Title:     title,
		Message:   message,
		Severity:  severity,
		Data:      correlationData(event),
		Channel:   models.ChannelInApp,
		Status:    models.NotificationDelivered,
		CreatedAt: event.OccurredAt,
	}
	if notification.ID == "" {
		// derived events carry no server id; synthesize one for dedup
		notification.ID = uuid.NewString()
	}
	if notification.CreatedAt.IsZero() {
		notification.CreatedAt = time.Now()
	}

	if d.sink != nil {
		d.sink.Add(notification)
	}

	d.requestRefresh(notificationType, event)
	d.log.Debug("event dispatched",
		zap.String("event_type", event.Type),
		zap.String("notification_type", string(notificationType)),
		zap.String("entity_id", event.EntityID))
}

// requestRefresh asks the optimistic layer to reload the referenced entity.
// The dispatcher never trusts the event payload to be complete.
func (d *Dispatcher) requestRefresh(notificationType models.NotificationType, event models.StreamEvent) {
	if d.refresher == nil {
		return
	}
	entityID := event.EntityID
	if entityID == "" {
		entityID = event.DataString("swap_id")
	}
	if entityID == "" {
		return
	}

	scope := RefreshProposal
	switch notificationType {
	case models.NotificationPaymentProcessing,
		models.NotificationPaymentCompleted,
		models.NotificationPaymentFailed,
		models.NotificationProposalPaymentCompleted,
		models.NotificationProposalPaymentFailed:
		scope = RefreshCompletion
	}

	monitoring.RecordRefreshRequest(string(scope))
	d.refresher.RequestRefresh(scope, entityID)
}

func correlationData(event models.StreamEvent) map[string]any {
	data := map[string]any{}
	if event.EntityID != "" {
		data["swap_id"] = event.EntityID
	}
	for _, key := range []string{"swap_id", "proposal_id", "transaction_id", "reason"} {
		if value := event.DataString(key); value != "" {
			data[key] = value
		}
	}
	if len(data) == 0 {
		return nil
	}
	return data
}
