package telemetry

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// RequestType selects how a device message is handled.
type RequestType int

const (
	RequestEvent           RequestType = 0
	RequestSettings        RequestType = 1
	RequestChargerVersion  RequestType = 2
	RequestTimezone        RequestType = 3
	RequestFirmwareVersion RequestType = 4
	RequestHAVGrouping     RequestType = 5
)

// String returns the metric label for the request type.
func (r RequestType) String() string {
	switch r {
	case RequestEvent:
		return "event"
	case RequestSettings:
		return "settings"
	case RequestChargerVersion:
		return "charger_version"
	case RequestTimezone:
		return "timezone"
	case RequestFirmwareVersion:
		return "firmware_version"
	case RequestHAVGrouping:
		return "hav_grouping"
	default:
		return "unknown"
	}
}

// DefaultWearableVersion is assumed when a settings request carries no version.
const DefaultWearableVersion = "2.4.0"

// DeviceMessage is the JSON object sent by wearables through their charger.
// Devices are loose about types, so numeric fields accept strings and vice versa.
type DeviceMessage struct {
	RequestType     RequestType `json:"request_type"`
	DeviceID        string      `json:"device_id"`
	ChargerID       string      `json:"charger_id"`
	Version         string      `json:"version"`
	EventTime       EventTime   `json:"event_time"`
	EventType       OptionalInt `json:"event_type"`
	IMULevel        string      `json:"imu_level"`
	BeaconMinor     LooseString `json:"beacon_minor"`
	BeaconBattery   OptionalInt `json:"beacon_battery"`
	Duration        OptionalInt `json:"duration"`
	FirstRequest    OptionalInt `json:"first_request"`
	FirmwareVersion string      `json:"firmware_version"`
	RequestTimezone string      `json:"request_timezone"`
}

// EventTime is the UTC wall-clock time reported with an event. The date part is optional.
type EventTime struct {
	Year   OptionalInt `json:"year"`
	Month  OptionalInt `json:"month"`
	Day    OptionalInt `json:"day"`
	Hour   OptionalInt `json:"hour"`
	Minute OptionalInt `json:"minute"`
	Second OptionalInt `json:"second"`
}

// ChargerDisplayID returns the second whitespace-separated token of charger_id.
func (m DeviceMessage) ChargerDisplayID() string {
	fields := strings.Fields(m.ChargerID)
	if len(fields) < 2 {
		return ""
	}
	return fields[1]
}

// SettingsVersion returns the reported version or the default.
func (m DeviceMessage) SettingsVersion() string {
	if m.Version == "" {
		return DefaultWearableVersion
	}
	return m.Version
}

// OptionalInt decodes a JSON number or numeric string. Valid is false when the
// field is absent, null or not numeric.
type OptionalInt struct {
	Value int
	Valid bool
}

// Int returns the value, or zero when invalid.
func (o OptionalInt) Int() int {
	if !o.Valid {
		return 0
	}
	return o.Value
}

// UnmarshalJSON implements json.Unmarshaler.
func (o *OptionalInt) UnmarshalJSON(data []byte) error {
	*o = OptionalInt{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	var raw string
	if data[0] == '"' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
	} else {
		raw = string(data)
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return nil
	}
	*o = OptionalInt{Value: int(value), Valid: true}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (o OptionalInt) MarshalJSON() ([]byte, error) {
	if !o.Valid {
		return []byte("null"), nil
	}
	return []byte(strconv.Itoa(o.Value)), nil
}

// Int builds a valid OptionalInt.
func Int(v int) OptionalInt {
	return OptionalInt{Value: v, Valid: true}
}

// LooseString decodes a JSON string or number into its string form.
type LooseString string

// UnmarshalJSON implements json.Unmarshaler.
func (s *LooseString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	if data[0] == '"' {
		var raw string
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		*s = LooseString(raw)
		return nil
	}
	*s = LooseString(string(data))
	return nil
}
