package masterdata

import (
	"context"
	"errors"
	"time"
)

// Wearable is a worn safety band. DisplayID is the id the device reports.
type Wearable struct {
	ID             string
	DisplayID      string
	OrganizationID string
	UserID         string
	Version        string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Validate checks wearable invariants.
func (w Wearable) Validate() error {
	if w.ID == "" {
		return errors.New("wearable: empty id")
	}
	if w.DisplayID == "" {
		return errors.New("wearable: empty display id")
	}
	if w.OrganizationID == "" {
		return errors.New("wearable: empty organization id")
	}
	return nil
}

// WearableRepository manages wearable persistence.
type WearableRepository interface {
	GetByDisplayID(ctx context.Context, displayID string) (*Wearable, error)
	Create(ctx context.Context, wearable *Wearable) error
	Touch(ctx context.Context, id, version string) error
}
