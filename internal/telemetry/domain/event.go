package telemetry

import (
	"context"
	"strings"
	"time"

	exposure "safetyband-cloud/internal/exposure/domain"
)

// EventType is the kind of safety event stored for a wearable.
type EventType string

const (
	EventHandArmVibration   EventType = "HandArmVibration"
	EventMovingMachinery    EventType = "MovingMachinery"
	EventLoudNoise          EventType = "LoudNoise"
	EventProtectiveEquip    EventType = "PreventativeProtectiveEquipment"
	EventUnauthorisedAccess EventType = "UnauthorisedAccess"
)

// Wire event_type codes.
const (
	wireHaptic = 1
	wireBeacon = 2
	wireNoise  = 3
)

// ProximitySize is the zone size encoded in the beacon minor.
type ProximitySize string

const (
	SizeSmall  ProximitySize = "small"
	SizeMedium ProximitySize = "medium"
	SizeLarge  ProximitySize = "large"
)

// Proximity is the hazard kind and zone size a beacon announces.
type Proximity struct {
	Type EventType
	Size ProximitySize
}

// WearableEvent is a normalized request_type 0 message.
type WearableEvent struct {
	OccurredAt    time.Time
	Type          EventType
	DisplayID     string
	BeaconID      string
	IsBeacon      bool
	Duration      int
	Proximity     *Proximity
	IMULevel      *exposure.Severity
	BeaconBattery int
	ChargerID     string
	Version       string
}

// StoredEvent is a non-HAV event row.
type StoredEvent struct {
	ID             string
	Timestamp      time.Time
	Type           EventType
	WearableID     string
	BeaconID       string
	OrganizationID string
	UserID         string
	Duration       int
}

// EventRepository persists beacon and noise events.
type EventRepository interface {
	Exists(ctx context.Context, wearableID string, eventType EventType, ts time.Time, duration int) (bool, error)
	Insert(ctx context.Context, event *StoredEvent) error
}

// Normalize converts a raw event message into a WearableEvent relative to now.
func Normalize(msg DeviceMessage, now time.Time) WearableEvent {
	beacon := string(msg.BeaconMinor)
	event := WearableEvent{
		OccurredAt:    EventDate(msg.EventTime, now),
		Type:          ClassifyEvent(msg.EventType.Int(), beacon),
		DisplayID:     msg.DeviceID,
		IsBeacon:      msg.EventType.Int() == wireBeacon,
		Duration:      MillisToSeconds(msg.Duration.Int()),
		IMULevel:      ParseIMULevel(msg.IMULevel),
		BeaconBattery: msg.BeaconBattery.Int(),
		ChargerID:     msg.ChargerID,
		Version:       msg.Version,
	}
	if beacon != "0" {
		event.BeaconID = beacon
	}
	if beacon != "" {
		prox := ProximityFor(beacon)
		event.Proximity = &prox
	}
	return event
}

// ClassifyEvent maps the wire event_type and beacon minor onto an EventType.
func ClassifyEvent(eventType int, beaconMinor string) EventType {
	switch eventType {
	case wireHaptic:
		return EventHandArmVibration
	case wireNoise:
		return EventLoudNoise
	}
	if beaconMinor == "" {
		return EventProtectiveEquip
	}
	switch beaconMinor[0] {
	case '1', '2', '3':
		return EventProtectiveEquip
	case '4', '5', '6':
		return EventUnauthorisedAccess
	default:
		return EventMovingMachinery
	}
}

// ProximityFor decodes the zone from the first digit of the beacon minor.
func ProximityFor(beaconMinor string) Proximity {
	if beaconMinor == "" {
		return Proximity{Type: EventProtectiveEquip, Size: SizeSmall}
	}
	switch beaconMinor[0] {
	case '1':
		return Proximity{Type: EventProtectiveEquip, Size: SizeSmall}
	case '2':
		return Proximity{Type: EventProtectiveEquip, Size: SizeMedium}
	case '3':
		return Proximity{Type: EventProtectiveEquip, Size: SizeLarge}
	case '4':
		return Proximity{Type: EventUnauthorisedAccess, Size: SizeSmall}
	case '5':
		return Proximity{Type: EventUnauthorisedAccess, Size: SizeMedium}
	case '6':
		return Proximity{Type: EventUnauthorisedAccess, Size: SizeLarge}
	case '7':
		return Proximity{Type: EventMovingMachinery, Size: SizeSmall}
	case '8':
		return Proximity{Type: EventMovingMachinery, Size: SizeMedium}
	default:
		return Proximity{Type: EventMovingMachinery, Size: SizeLarge}
	}
}

// MillisToSeconds converts milliseconds to whole seconds, rounding up.
func MillisToSeconds(ms int) int {
	if ms <= 0 {
		return 0
	}
	return (ms + 999) / 1000
}

// ParseIMULevel lower-cases and strips whitespace. Empty input means no level;
// unknown labels fall back to low.
func ParseIMULevel(value string) *exposure.Severity {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	level, ok := exposure.ParseSeverity(value)
	if !ok {
		level = exposure.SeverityLow
	}
	return &level
}

// EventDate builds the UTC event timestamp. A missing date, or one that lands in a
// different year than now, is replaced by today's date.
func EventDate(t EventTime, now time.Time) time.Time {
	now = now.UTC()
	hour, minute, second := t.Hour.Int(), t.Minute.Int(), t.Second.Int()
	today := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, second, 0, time.UTC)

	if !t.Year.Valid || !t.Month.Valid || !t.Day.Valid {
		return today
	}
	reported := time.Date(t.Year.Value, time.Month(t.Month.Value), t.Day.Value, hour, minute, second, 0, time.UTC)
	if reported.Year() != today.Year() {
		return today
	}
	return reported
}
