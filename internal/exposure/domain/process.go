package exposure

// Process runs the full pipeline: GroupByWindow, Aggregate, Reallocate, then drops
// every zero-duration record. The result is ready to be persisted as HAV events.
func Process(samples []Sample) []Record {
	reallocated := Reallocate(Aggregate(GroupByWindow(samples)))

	result := make([]Record, 0, len(reallocated))
	for _, rec := range reallocated {
		if rec.Duration <= 0 {
			continue
		}
		result = append(result, rec)
	}
	return result
}

// TotalsBySeverity sums record durations per band.
func TotalsBySeverity(records []Record) [SeverityCount]int {
	var totals [SeverityCount]int
	for _, rec := range records {
		if !rec.Severity.IsValid() {
			continue
		}
		totals[rec.Severity] += rec.Duration
	}
	return totals
}
