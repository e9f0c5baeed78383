package events

import "time"

// GroupingRequested asks for the pending HAV samples of one wearable to be grouped.
type GroupingRequested struct {
	DisplayID   string    `json:"display_id"`
	Reason      string    `json:"reason"`
	RequestedAt time.Time `json:"requested_at"`
}

// Grouping request reasons.
const (
	ReasonFirstRequest = "first_request"
	ReasonDevice       = "device_request"
	ReasonSweep        = "sweep"
	ReasonManual       = "manual"
)
