// Package timebucket splits time ranges into calendar-day-aligned sub-ranges.
// The date index partitions events by UTC day; a cross-day scan without
// bucketing forces a slow cross-partition filter instead of parallel
// single-partition scans.
package timebucket

import "time"

// Range is a half-open time range [Start, End).
type Range struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls within the range.
func (r Range) Contains(t time.Time) bool {
	return !t.Before(r.Start) && t.Before(r.End)
}

// Split divides [start, end) into sub-ranges that each lie within a single
// UTC calendar day, covering the input exactly with no gaps or overlaps.
// If start and end fall on the same day the original range is returned as-is.
// desc controls only the order of the output: chronological when false,
// reverse-chronological when true. The order must match the consumer's
// scan-order assumptions when bucket results are concatenated.
func Split(start, end time.Time, desc bool) []Range {
	start, end = start.UTC(), end.UTC()
	if !start.Before(end) {
		return nil
	}

	var buckets []Range
	cur := start
	for {
		boundary := nextMidnight(cur)
		if !boundary.Before(end) {
			buckets = append(buckets, Range{Start: cur, End: end})
			break
		}
		buckets = append(buckets, Range{Start: cur, End: boundary})
		cur = boundary
	}

	if desc {
		for i, j := 0, len(buckets)-1; i < j; i, j = i+1, j-1 {
			buckets[i], buckets[j] = buckets[j], buckets[i]
		}
	}
	return buckets
}

func nextMidnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
}
