package application

import (
	"context"
	"errors"
	"time"
	_ "time/tzdata"

	masterdata "safetyband-cloud/internal/masterdata/domain"
)

const (
	defaultFallbackZone = "Europe/London"
	unsetTimezone       = "GMT-0"
)

// Clock provides the current time.
type Clock interface {
	Now() time.Time
}

// TimezoneService answers charger timezone requests.
type TimezoneService struct {
	chargers masterdata.ChargerRepository
	clock    Clock
	fallback *time.Location
}

// NewTimezoneService constructs the service. fallbackZone defaults to Europe/London.
func NewTimezoneService(chargers masterdata.ChargerRepository, clock Clock, fallbackZone string) (*TimezoneService, error) {
	if chargers == nil {
		return nil, errors.New("timezone service: nil charger repository")
	}
	if clock == nil {
		return nil, errors.New("timezone service: nil clock")
	}
	if fallbackZone == "" {
		fallbackZone = defaultFallbackZone
	}
	loc, err := time.LoadLocation(fallbackZone)
	if err != nil {
		return nil, err
	}
	return &TimezoneService{chargers: chargers, clock: clock, fallback: loc}, nil
}

// ResolveChargerTimezone returns the charger's configured zone label, or GMT+1/GMT+0
// depending on whether the fallback zone currently observes summer time.
func (s *TimezoneService) ResolveChargerTimezone(ctx context.Context, chargerDisplayID string) (string, error) {
	if chargerDisplayID != "" {
		charger, err := s.chargers.GetByDisplayID(ctx, chargerDisplayID)
		if err != nil {
			return "", err
		}
		if charger != nil && charger.Timezone != "" && charger.Timezone != unsetTimezone {
			return charger.Timezone, nil
		}
	}
	return FallbackTimezone(s.clock.Now(), s.fallback), nil
}

// FallbackTimezone labels now in loc as GMT+1 during summer time and GMT+0 otherwise.
func FallbackTimezone(now time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	if now.In(loc).IsDST() {
		return "GMT+1"
	}
	return "GMT+0"
}
