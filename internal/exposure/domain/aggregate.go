package exposure

// Aggregate collapses every window into exactly one record per severity.
// Present bands sum their durations and keep the earliest sample's timestamp and
// subject; the first sample wins on timestamp ties. Absent bands get a zero-duration
// placeholder stamped with the window start and the window's subject.
func Aggregate(windows []Window) []Group {
	groups := make([]Group, 0, len(windows))
	for _, window := range windows {
		groups = append(groups, aggregateWindow(window))
	}
	return groups
}

func aggregateWindow(window Window) Group {
	var group Group
	var seen [SeverityCount]bool

	for _, sample := range window {
		if !sample.Severity.IsValid() {
			continue
		}
		idx := sample.Severity
		rec := &group[idx]
		if !seen[idx] {
			seen[idx] = true
			*rec = Record{
				Severity:  sample.Severity,
				Timestamp: sample.Timestamp,
				SubjectID: sample.SubjectID,
			}
		} else if sample.Timestamp.Before(rec.Timestamp) {
			rec.Timestamp = sample.Timestamp
			rec.SubjectID = sample.SubjectID
		}
		rec.Duration += sample.Duration
	}

	for _, severity := range Severities {
		if seen[severity] {
			continue
		}
		group[severity] = Record{
			Severity:    severity,
			Timestamp:   window.Start(),
			SubjectID:   window.SubjectID(),
			Placeholder: true,
		}
	}
	return group
}
