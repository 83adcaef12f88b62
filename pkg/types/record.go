package types

import "time"

// Order is the requested result ordering by event creation timestamp.
type Order string

const (
	// OrderDescending returns newest events first. This matches the store's
	// native reverse-chronological row-key order and is the default.
	OrderDescending Order = "desc"

	// OrderAscending returns oldest events first.
	OrderAscending Order = "asc"
)

// QueryOptions carries pagination, ordering, and suppression settings for a
// journal query. The zero value means: no limit, no skip, descending order,
// content included, full records, bucketing enabled.
type QueryOptions struct {
	// Top limits the number of returned records. Zero means no limit.
	Top int `json:"top,omitempty"`

	// Skip discards the first N matched rows in scan order.
	Skip int `json:"skip,omitempty"`

	// Order selects ascending or descending creation-time order.
	Order Order `json:"order,omitempty"`

	// NoContent suppresses content hydration in returned records.
	NoContent bool `json:"no_content,omitempty"`

	// OnlyCount returns a row count instead of record bodies. The count is
	// unaffected by Top and Skip.
	OnlyCount bool `json:"only_count,omitempty"`

	// NoBuckets forces a single whole-range scan even when the query would
	// otherwise be split into per-day buckets.
	NoBuckets bool `json:"no_buckets,omitempty"`
}

// Ordering returns the effective order, defaulting to descending.
func (o QueryOptions) Ordering() Order {
	if o.Order == OrderAscending {
		return OrderAscending
	}
	return OrderDescending
}

// Record is one materialized query result. Optional fields are included only
// when non-empty; the key fields and creation timestamp are always present.
type Record struct {
	ID          string `json:"id"`
	ProgramID   string `json:"program_id,omitempty"`
	CarrierID   string `json:"carrier_id,omitempty"`
	ServiceName string `json:"service_name,omitempty"`
	Description string `json:"description,omitempty"`

	CreatedAt time.Time `json:"created_at"`

	// PartitionKey is the derived identity partition key of the event.
	PartitionKey string `json:"partition_key"`

	// DatePartitionKey is the derived date partition key of the event.
	DatePartitionKey string `json:"date_partition_key"`

	// RowKey is the raw row key shared by both index rows.
	RowKey string `json:"row_key"`

	// Shard names the source shard. Set only on multi-shard listings.
	Shard string `json:"shard,omitempty"`

	// Content is the hydrated payload: parsed JSON when the decompressed
	// text is valid JSON, otherwise the raw text. Nil when suppressed.
	Content interface{} `json:"content,omitempty"`
}

// CountResult is the output of a count-only query.
type CountResult struct {
	Count int64 `json:"count"`
}
