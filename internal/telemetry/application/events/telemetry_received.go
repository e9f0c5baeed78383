package events

import "time"

// TelemetryReceived is raised after a wearable event has been accepted.
type TelemetryReceived struct {
	EventID    string    `json:"event_id"`
	WearableID string    `json:"wearable_id"`
	DisplayID  string    `json:"display_id"`
	EventType  string    `json:"event_type"`
	Duration   int       `json:"duration"`
	Pending    bool      `json:"pending"`
	OccurredAt time.Time `json:"occurred_at"`
}
