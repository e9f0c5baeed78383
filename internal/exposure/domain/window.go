package exposure

import (
	"sort"
	"time"
)

// GroupByWindow sorts a copy of samples by timestamp and splits it into windows.
// A window closes as soon as two adjacent samples fall into different UTC clock
// hours, so 12:59:59 and 13:00:00 never share a window. Timestamps are normalized
// to UTC and negative durations are clamped to zero on the copy; the caller's slice
// is left untouched.
func GroupByWindow(samples []Sample) []Window {
	if len(samples) == 0 {
		return []Window{}
	}

	sorted := make([]Sample, len(samples))
	for i, sample := range samples {
		sample.Timestamp = sample.Timestamp.UTC()
		if sample.Duration < 0 {
			sample.Duration = 0
		}
		sorted[i] = sample
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	windows := make([]Window, 0, 1)
	current := Window{sorted[0]}
	for i := 1; i < len(sorted); i++ {
		if SameHour(sorted[i-1].Timestamp, sorted[i].Timestamp) {
			current = append(current, sorted[i])
			continue
		}
		windows = append(windows, current)
		current = Window{sorted[i]}
	}
	windows = append(windows, current)
	return windows
}

// SameHour reports whether a and b fall into the same UTC clock hour.
func SameHour(a, b time.Time) bool {
	return HourBucket(a).Equal(HourBucket(b))
}

// HourBucket truncates t to the start of its UTC clock hour.
func HourBucket(t time.Time) time.Time {
	return t.UTC().Truncate(time.Hour)
}
