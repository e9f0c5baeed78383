package masterdata

import (
	"context"
	"time"
)

// ChargingStation docks wearables and relays their messages.
type ChargingStation struct {
	ID             string
	DisplayID      string
	OrganizationID string
	Timezone       string
	Version        string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// ChargerRepository manages charging station persistence.
type ChargerRepository interface {
	GetByDisplayID(ctx context.Context, displayID string) (*ChargingStation, error)
	Touch(ctx context.Context, id, version string) error
}
