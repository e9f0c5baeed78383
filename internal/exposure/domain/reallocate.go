package exposure

// Reallocate converts cumulative-from-below durations into exclusive ones and
// flattens the groups, four records per group in Low..Extreme order.
//
// Each band keeps only the time not already claimed by the band directly above:
//
//	extreme = rawExtreme
//	high    = max(rawHigh-rawExtreme, 0)
//	medium  = max(rawMedium-rawHigh, 0)
//	low     = max(rawLow-rawMedium, 0)
//
// Readings that are not perfectly nested (Low 10, Medium 50) keep this arithmetic
// unchanged.
func Reallocate(groups []Group) []Record {
	out := make([]Record, 0, len(groups)*SeverityCount)
	for _, group := range groups {
		exclusive := exclusiveDurations(group)
		for _, severity := range Severities {
			rec := group[severity]
			rec.Severity = severity
			rec.Duration = exclusive[severity]
			out = append(out, rec)
		}
	}
	return out
}

func exclusiveDurations(group Group) [SeverityCount]int {
	var result [SeverityCount]int
	top := SeverityExtreme
	result[top] = nonNegative(group[top].Duration)
	for s := top - 1; s >= SeverityLow; s-- {
		result[s] = nonNegative(group[s].Duration - group[s+1].Duration)
	}
	return result
}

func nonNegative(v int) int {
	if v < 0 {
		return 0
	}
	return v
}
