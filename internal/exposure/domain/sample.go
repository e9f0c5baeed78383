package exposure

import "time"

// Sample is one raw exposure reading as reported by a wearable.
// Duration is in seconds and cumulative from below: a reading at High also
// counts the time spent at Extreme during the same trigger.
type Sample struct {
	Severity  Severity  `json:"severity"`
	Timestamp time.Time `json:"timestamp"`
	Duration  int       `json:"duration"`
	SubjectID string    `json:"subject_id,omitempty"`
}

// Window is a non-empty, time-ordered run of samples within one clock hour.
type Window []Sample

// Start returns the timestamp of the earliest sample.
func (w Window) Start() time.Time {
	if len(w) == 0 {
		return time.Time{}
	}
	return w[0].Timestamp
}

// SubjectID returns the subject of the earliest sample.
func (w Window) SubjectID() string {
	if len(w) == 0 {
		return ""
	}
	return w[0].SubjectID
}

// Record is the per-window, per-severity result of aggregation and reallocation.
// Placeholder marks a band with no samples in its window; its Timestamp is the
// window start and its Duration is always zero after aggregation.
type Record struct {
	Severity    Severity  `json:"severity"`
	Timestamp   time.Time `json:"timestamp"`
	Duration    int       `json:"duration"`
	SubjectID   string    `json:"subject_id,omitempty"`
	Placeholder bool      `json:"-"`
}

// Group is the fixed set of four records for one window, indexed by Severity.
type Group [SeverityCount]Record
