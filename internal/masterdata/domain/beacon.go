package masterdata

import (
	"context"
	"time"
)

// Beacon is a fixed BLE beacon marking a hazard zone.
type Beacon struct {
	ID             string
	DisplayID      string
	OrganizationID string
	BeaconTypeID   string
	Battery        int
	UpdatedAt      time.Time
}

// BeaconRepository manages beacon persistence.
type BeaconRepository interface {
	GetByDisplayID(ctx context.Context, displayID string) (*Beacon, error)
	// UpdateBattery stores battery; zero only refreshes updated_at.
	UpdateBattery(ctx context.Context, id string, battery int) error
}
