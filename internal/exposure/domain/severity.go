package exposure

import (
	"strings"
)

// Severity is the vibration band reported by a wearable IMU.
// The zero value is SeverityLow; the ordering Low < Medium < High < Extreme is fixed.
type Severity int

const (
	SeverityLow Severity = iota
	SeverityMedium
	SeverityHigh
	SeverityExtreme
)

// SeverityCount is the number of severity bands.
const SeverityCount = 4

// Severities lists every band in ascending order.
var Severities = [SeverityCount]Severity{SeverityLow, SeverityMedium, SeverityHigh, SeverityExtreme}

var severityNames = [SeverityCount]string{"low", "medium", "high", "extreme"}

var severityTitles = [SeverityCount]string{"Low", "Medium", "High", "Extreme"}

// IsValid reports whether s is one of the four bands.
func (s Severity) IsValid() bool {
	return s >= SeverityLow && s <= SeverityExtreme
}

// String returns the lower-case wire name.
func (s Severity) String() string {
	if !s.IsValid() {
		return "unknown"
	}
	return severityNames[s]
}

// Title returns the capitalised name used in reports.
func (s Severity) Title() string {
	if !s.IsValid() {
		return severityTitles[SeverityLow]
	}
	return severityTitles[s]
}

// ParseSeverity maps a wire or storage label onto a band.
// Matching ignores case and whitespace; ok is false for unknown labels.
func ParseSeverity(value string) (Severity, bool) {
	normalized := strings.ToLower(strings.Join(strings.Fields(value), ""))
	for i, name := range severityNames {
		if normalized == name {
			return Severity(i), true
		}
	}
	return SeverityLow, false
}

// MarshalText encodes the wire name.
func (s Severity) MarshalText() ([]byte, error) {
	if !s.IsValid() {
		return nil, ErrInvalidSeverity
	}
	return []byte(s.String()), nil
}

// UnmarshalText decodes a name in any case.
func (s *Severity) UnmarshalText(text []byte) error {
	parsed, ok := ParseSeverity(string(text))
	if !ok {
		return ErrInvalidSeverity
	}
	*s = parsed
	return nil
}
