package telemetry

import (
	"encoding/json"
	"testing"
	"time"

	exposure "safetyband-cloud/internal/exposure/domain"
)

func TestClassifyEvent(t *testing.T) {
	cases := []struct {
		eventType int
		beacon    string
		want      EventType
	}{
		{1, "", EventHandArmVibration},
		{3, "712", EventLoudNoise},
		{2, "", EventProtectiveEquip},
		{2, "201", EventProtectiveEquip},
		{2, "512", EventUnauthorisedAccess},
		{2, "903", EventMovingMachinery},
		{2, "0", EventMovingMachinery},
	}
	for _, tc := range cases {
		if got := ClassifyEvent(tc.eventType, tc.beacon); got != tc.want {
			t.Fatalf("classify(%d,%q): expected %s, got %s", tc.eventType, tc.beacon, tc.want, got)
		}
	}
}

func TestProximityFor(t *testing.T) {
	cases := map[string]Proximity{
		"":    {EventProtectiveEquip, SizeSmall},
		"1":   {EventProtectiveEquip, SizeSmall},
		"25":  {EventProtectiveEquip, SizeMedium},
		"36":  {EventProtectiveEquip, SizeLarge},
		"4":   {EventUnauthorisedAccess, SizeSmall},
		"5":   {EventUnauthorisedAccess, SizeMedium},
		"6":   {EventUnauthorisedAccess, SizeLarge},
		"7":   {EventMovingMachinery, SizeSmall},
		"8":   {EventMovingMachinery, SizeMedium},
		"9":   {EventMovingMachinery, SizeLarge},
		"x12": {EventMovingMachinery, SizeLarge},
	}
	for beacon, want := range cases {
		if got := ProximityFor(beacon); got != want {
			t.Fatalf("proximity(%q): expected %+v, got %+v", beacon, want, got)
		}
	}
}

func TestMillisToSecondsRoundsUp(t *testing.T) {
	cases := map[int]int{0: 0, -20: 0, 1: 1, 999: 1, 1000: 1, 1001: 2, 12500: 13}
	for ms, want := range cases {
		if got := MillisToSeconds(ms); got != want {
			t.Fatalf("%dms: expected %d, got %d", ms, want, got)
		}
	}
}

func TestParseIMULevel(t *testing.T) {
	if ParseIMULevel("") != nil || ParseIMULevel("  ") != nil {
		t.Fatalf("empty level should be nil")
	}
	if got := ParseIMULevel(" Ex treme "); got == nil || *got != exposure.SeverityExtreme {
		t.Fatalf("expected extreme, got %v", got)
	}
	if got := ParseIMULevel("bogus"); got == nil || *got != exposure.SeverityLow {
		t.Fatalf("unknown level should fall back to low, got %v", got)
	}
}

func TestEventDate(t *testing.T) {
	now := time.Date(2024, 6, 10, 15, 0, 0, 0, time.UTC)
	at := EventTime{Hour: Int(9), Minute: Int(30), Second: Int(5)}

	if got := EventDate(at, now); !got.Equal(time.Date(2024, 6, 10, 9, 30, 5, 0, time.UTC)) {
		t.Fatalf("missing date should use today, got %v", got)
	}

	dated := at
	dated.Year, dated.Month, dated.Day = Int(2024), Int(6), Int(8)
	if got := EventDate(dated, now); !got.Equal(time.Date(2024, 6, 8, 9, 30, 5, 0, time.UTC)) {
		t.Fatalf("expected reported date, got %v", got)
	}

	stale := at
	stale.Year, stale.Month, stale.Day = Int(2000), Int(1), Int(1)
	if got := EventDate(stale, now); !got.Equal(time.Date(2024, 6, 10, 9, 30, 5, 0, time.UTC)) {
		t.Fatalf("other year should use today, got %v", got)
	}
}

func TestNormalizeFromJSON(t *testing.T) {
	payload := `{
		"request_type": 0,
		"device_id": "0811",
		"event_type": "2",
		"beacon_minor": 0,
		"beacon_battery": 80,
		"duration": 15200,
		"imu_level": "",
		"charger_id": "CHG C042",
		"event_time": {"hour": "10", "minute": 4, "second": 0, "year": 2024, "month": 6, "day": 9}
	}`
	var msg DeviceMessage
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if msg.ChargerDisplayID() != "C042" {
		t.Fatalf("unexpected charger display id %q", msg.ChargerDisplayID())
	}

	evt := Normalize(msg, time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC))
	if !evt.IsBeacon || evt.BeaconID != "" {
		t.Fatalf("beacon 0 should be a beacon event without beacon id: %+v", evt)
	}
	if evt.Type != EventMovingMachinery || evt.Duration != 16 || evt.IMULevel != nil {
		t.Fatalf("unexpected normalized event: %+v", evt)
	}
	if !evt.OccurredAt.Equal(time.Date(2024, 6, 9, 10, 4, 0, 0, time.UTC)) {
		t.Fatalf("unexpected timestamp %v", evt.OccurredAt)
	}
	if evt.BeaconBattery != 80 {
		t.Fatalf("unexpected battery %d", evt.BeaconBattery)
	}
}

func TestSettingsVersionDefault(t *testing.T) {
	if got := (DeviceMessage{}).SettingsVersion(); got != DefaultWearableVersion {
		t.Fatalf("expected default version, got %s", got)
	}
	if got := (DeviceMessage{Version: "3.0.1"}).SettingsVersion(); got != "3.0.1" {
		t.Fatalf("expected reported version, got %s", got)
	}
}
