package application

import (
	"context"
	"testing"
	"time"

	masterdata "safetyband-cloud/internal/masterdata/domain"
)

type stubChargerRepo struct {
	charger *masterdata.ChargingStation
}

func (s stubChargerRepo) GetByDisplayID(_ context.Context, _ string) (*masterdata.ChargingStation, error) {
	return s.charger, nil
}

func (s stubChargerRepo) Touch(_ context.Context, _, _ string) error {
	return nil
}

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time { return c.now }

func TestResolveChargerTimezone(t *testing.T) {
	summer := time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC)
	winter := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name    string
		charger *masterdata.ChargingStation
		now     time.Time
		want    string
	}{
		{name: "configured", charger: &masterdata.ChargingStation{Timezone: "GMT+3"}, now: winter, want: "GMT+3"},
		{name: "unset label summer", charger: &masterdata.ChargingStation{Timezone: "GMT-0"}, now: summer, want: "GMT+1"},
		{name: "empty winter", charger: &masterdata.ChargingStation{}, now: winter, want: "GMT+0"},
		{name: "unknown charger summer", charger: nil, now: summer, want: "GMT+1"},
	}
	for _, tc := range cases {
		svc, err := NewTimezoneService(stubChargerRepo{charger: tc.charger}, fixedClock{now: tc.now}, "")
		if err != nil {
			t.Fatalf("%s: new service: %v", tc.name, err)
		}
		got, err := svc.ResolveChargerTimezone(context.Background(), "C001")
		if err != nil {
			t.Fatalf("%s: resolve: %v", tc.name, err)
		}
		if got != tc.want {
			t.Fatalf("%s: expected %s, got %s", tc.name, tc.want, got)
		}
	}
}
