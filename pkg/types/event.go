// Package types provides core data types for the Eventrail journal.
package types

import "time"

// EventRecord is the logical event a caller submits for ingestion.
type EventRecord struct {
	// ID tags the event; it forms the identity partition key after
	// normalization (lower-case, hyphens stripped).
	ID string `json:"id"`

	// ProgramID is an optional secondary identifier.
	ProgramID string `json:"program_id,omitempty"`

	// CarrierID is an optional secondary identifier.
	CarrierID string `json:"carrier_id,omitempty"`

	// ServiceName is an optional secondary identifier.
	ServiceName string `json:"service_name,omitempty"`

	// Description is free text attached to the event.
	Description string `json:"description,omitempty"`

	// CreatedAt is the event creation timestamp. Stored and compared in UTC.
	CreatedAt time.Time `json:"created_at"`

	// Content is the event payload. Compressed before storage; payloads at
	// or above the inline threshold overflow to the blob store.
	Content string `json:"content"`
}

// EventRow is one physical row of the dual index. Every logical event is
// stored as exactly two rows sharing the same RowKey: an identity row
// (partition "id:<normalized-id>", full metadata plus inline content) and a
// date row (partition "date:YYYYMMDD", lightweight metadata, no content).
type EventRow struct {
	PartitionKey string
	RowKey       string

	ID          string
	ProgramID   string
	CarrierID   string
	ServiceName string
	Description string
	CreatedAt   time.Time

	// Content holds the compressed payload for identity rows whose payload
	// fits inline. Nil for date rows and for overflowed identity rows.
	Content []byte
}
