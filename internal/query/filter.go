package query

import (
	"time"

	"github.com/eventrail/eventrail/internal/keys"
	"github.com/eventrail/eventrail/internal/store"
	"github.com/eventrail/eventrail/internal/timebucket"
	"github.com/eventrail/eventrail/pkg/types"
)

// FilterPlan is the output of the filter builder: one or more store filters
// plus the facts the runner needs to merge their results correctly.
type FilterPlan struct {
	// Filters in emission order. For a bucketed time query the order follows
	// the requested result order (newest day first for descending).
	Filters []store.Filter

	// Bucketed is true when Filters were split per calendar day and bucket
	// concatenation order is meaningful.
	Bucketed bool

	// TimeCheck, when non-nil, is the [start, end) interval every matched
	// row's creation time must satisfy. Guards against filter imprecision at
	// non-midnight boundaries.
	TimeCheck *timebucket.Range
}

// BuildPlan turns a logical query plus pagination and bucketing policy into
// store-level range filters.
func BuildPlan(q Query, opts types.QueryOptions) (*FilterPlan, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	switch q.Mode {
	case ModeByID:
		pk, err := keys.PartitionKeyForID(q.ID)
		if err != nil {
			return nil, err
		}
		f := store.Filter{}.Where(store.FieldPartitionKey, store.OpEq, pk)
		return &FilterPlan{Filters: []store.Filter{f}}, nil

	case ModeByKey:
		f := store.Filter{}.
			Where(store.FieldPartitionKey, store.OpEq, q.PartitionKey).
			Where(store.FieldRowKey, store.OpEq, q.RowKey)
		return &FilterPlan{Filters: []store.Filter{f}}, nil

	case ModeByTimeRange:
		return buildTimePlan(q, opts), nil
	}
	return nil, types.NewValidationError("unknown query mode")
}

// buildTimePlan splits an eligible time query into per-day bucket filters.
// Top and skip disable bucketing: per-bucket parallel fetches cannot enforce
// a global skip/top without first collecting everything.
func buildTimePlan(q Query, opts types.QueryOptions) *FilterPlan {
	plan := &FilterPlan{
		TimeCheck: &timebucket.Range{Start: q.From, End: q.To},
	}

	bucketable := opts.Top == 0 && opts.Skip == 0 && !opts.NoBuckets
	if !bucketable {
		plan.Filters = []store.Filter{intervalFilter(q.From, q.To)}
		return plan
	}

	desc := opts.Ordering() == types.OrderDescending
	for _, r := range timebucket.Split(q.From, q.To, desc) {
		plan.Filters = append(plan.Filters, intervalFilter(r.Start, r.End))
	}
	plan.Bucketed = true
	return plan
}

// intervalFilter builds the store filter for the half-open interval
// [startTime, endTime) over the date index.
//
// Row keys are reverse chronological, so time bounds invert: the lower bound
// in time becomes an upper-bound (<) row-key constraint and the upper bound
// in time becomes a lower-bound (>) row-key constraint. The upper bound uses
// keys.RowKeyUpperBound rather than the start's own base: a row created at
// the exact start instant extends the base with a suffix and sorts after it,
// so comparing against the bare base would drop the boundary row. Row-key
// refinements apply only at non-midnight boundaries; a midnight boundary is
// already exact at partition granularity.
func intervalFilter(startTime, endTime time.Time) store.Filter {
	startPK := keys.PartitionKeyForDate(startTime)

	endRef := endTime
	if isMidnight(endTime) {
		endRef = endTime.AddDate(0, 0, -1)
	}
	endPK := keys.PartitionKeyForDate(endRef)

	var f store.Filter
	if startPK == endPK {
		f = f.Where(store.FieldPartitionKey, store.OpEq, startPK)
	} else {
		f = f.Where(store.FieldPartitionKey, store.OpGe, startPK).
			Where(store.FieldPartitionKey, store.OpLe, endPK)
	}

	if !isMidnight(startTime) {
		f = f.Where(store.FieldRowKey, store.OpLt, keys.RowKeyUpperBound(startTime))
	}
	if !isMidnight(endTime) {
		f = f.Where(store.FieldRowKey, store.OpGt, keys.RowKeyBase(endTime))
	}
	return f
}

func isMidnight(t time.Time) bool {
	u := t.UTC()
	h, m, s := u.Clock()
	return h == 0 && m == 0 && s == 0 && u.Nanosecond() == 0
}
