package models

import "time"

// StreamEvent is a raw inbound event from the marketplace event stream. The
// same shape arrives over the live channel and from fallback polling.
type StreamEvent struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	EntityID   string         `json:"entity_id"`
	Data       map[string]any `json:"data,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// DataString extracts a string field from the event payload.
func (e StreamEvent) DataString(key string) string {
	if e.Data == nil {
		return ""
	}
	value, _ := e.Data[key].(string)
	return value
}
