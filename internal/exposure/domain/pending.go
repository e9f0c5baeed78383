package exposure

import (
	"context"
	"time"
)

// SampleStatus tracks whether a stored HAV sample has been grouped yet.
type SampleStatus string

const (
	StatusPending SampleStatus = "pending"
	StatusDone    SampleStatus = "done"
)

// PendingSample is a raw HAV reading persisted until the next grouping run.
type PendingSample struct {
	ID             string
	WearableID     string
	OrganizationID string
	UserID         string
	Severity       Severity
	Timestamp      time.Time
	Duration       int
	Status         SampleStatus
}

// Sample converts the stored row into processor input. The user is the subject.
func (p PendingSample) Sample() Sample {
	return Sample{
		Severity:  p.Severity,
		Timestamp: p.Timestamp,
		Duration:  p.Duration,
		SubjectID: p.UserID,
	}
}

// Event is a reallocated HAV record persisted to the events table.
type Event struct {
	ID             string    `json:"id"`
	WearableID     string    `json:"wearable_id"`
	OrganizationID string    `json:"organization_id"`
	UserID         string    `json:"user_id,omitempty"`
	Severity       Severity  `json:"severity"`
	Timestamp      time.Time `json:"timestamp"`
	Duration       int       `json:"duration"`
}

// PendingSampleRepository stores raw HAV readings.
type PendingSampleRepository interface {
	Exists(ctx context.Context, wearableID string, ts time.Time, duration int) (bool, error)
	Insert(ctx context.Context, sample *PendingSample) error
	ListPending(ctx context.Context, organizationID, wearableID string) ([]PendingSample, error)
	ListWearablesWithPending(ctx context.Context) ([]string, error)
}

// ResultWriter persists the outcome of a grouping run atomically: events are
// inserted and exactly the consumed samples are marked done.
type ResultWriter interface {
	SaveProcessed(ctx context.Context, events []Event, consumedIDs []string) error
}

// EventReader loads persisted HAV events for reporting.
type EventReader interface {
	ListEvents(ctx context.Context, wearableID string, from, to time.Time) ([]Event, error)
}
