package masterdata

import (
	"context"
	"errors"
	"time"
)

// Organization owns wearables, beacons and chargers.
type Organization struct {
	ID          string
	Name        string
	BeaconTypes []BeaconType
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// BeaconType groups beacons of one kind and size inside an organization.
// AllowList holds the display ids of wearables exempt from alerts for this type.
type BeaconType struct {
	ID             string
	OrganizationID string
	Descriptor     string
	AllowList      []string
}

// Allows reports whether the wearable display id is on the allow-list.
func (b BeaconType) Allows(displayID string) bool {
	for _, id := range b.AllowList {
		if id == displayID {
			return true
		}
	}
	return false
}

// Validate checks organization invariants.
func (o Organization) Validate() error {
	if o.ID == "" {
		return errors.New("organization: empty id")
	}
	if o.Name == "" {
		return errors.New("organization: empty name")
	}
	return nil
}

// OrganizationRepository loads organizations with their beacon types.
type OrganizationRepository interface {
	Get(ctx context.Context, id string) (*Organization, error)
}
