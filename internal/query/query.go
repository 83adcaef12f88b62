// Package query implements the read side of the event journal: building
// store filters from logical queries, fetching matching rows shard by shard,
// and merging results into ordered, paginated records.
package query

import (
	"time"

	"github.com/eventrail/eventrail/pkg/types"
)

// Mode discriminates the closed set of query forms.
type Mode int

const (
	// ModeByID looks up events by identifier via the identity index.
	ModeByID Mode = iota

	// ModeByTimeRange scans the date index over [From, To).
	ModeByTimeRange

	// ModeByKey addresses one exact (partition key, row key) pair.
	ModeByKey
)

// Query is a tagged variant over the three query modes. Construct values with
// ByID, ByTimeRange, or ByKey; the filter builder switches on Mode
// exhaustively.
type Query struct {
	Mode Mode

	// ID is set for ModeByID.
	ID string

	// From and To bound ModeByTimeRange as a half-open interval [From, To).
	From time.Time
	To   time.Time

	// PartitionKey and RowKey are set for ModeByKey.
	PartitionKey string
	RowKey       string
}

// String names the mode for diagnostics and statistics.
func (m Mode) String() string {
	switch m {
	case ModeByID:
		return "id"
	case ModeByTimeRange:
		return "time_range"
	case ModeByKey:
		return "key"
	}
	return "unknown"
}

// ByID builds an identifier query.
func ByID(id string) Query {
	return Query{Mode: ModeByID, ID: id}
}

// ByTimeRange builds a time-range query over [from, to).
func ByTimeRange(from, to time.Time) Query {
	return Query{Mode: ModeByTimeRange, From: from.UTC(), To: to.UTC()}
}

// ByKey builds an exact-key query.
func ByKey(partitionKey, rowKey string) Query {
	return Query{Mode: ModeByKey, PartitionKey: partitionKey, RowKey: rowKey}
}

// Validate checks the query's inputs for its mode.
func (q Query) Validate() error {
	switch q.Mode {
	case ModeByID:
		if q.ID == "" {
			return types.NewValidationError("identifier is required")
		}
	case ModeByTimeRange:
		if q.From.IsZero() || q.To.IsZero() {
			return types.NewValidationError("time range requires both bounds")
		}
		if !q.From.Before(q.To) {
			return types.NewValidationError("time range start must precede end")
		}
	case ModeByKey:
		if q.PartitionKey == "" || q.RowKey == "" {
			return types.NewValidationError("partition key and row key are required")
		}
	default:
		return types.NewValidationError("unknown query mode")
	}
	return nil
}
