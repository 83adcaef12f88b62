// Package ingest implements the write side of the event journal: validation,
// content compression and placement, and maintenance of the dual index.
package ingest

import (
	"context"
	"fmt"

	"github.com/eventrail/eventrail/internal/blob"
	"github.com/eventrail/eventrail/internal/codec"
	"github.com/eventrail/eventrail/internal/keys"
	"github.com/eventrail/eventrail/internal/metrics"
	"github.com/eventrail/eventrail/internal/store"
	"github.com/eventrail/eventrail/pkg/types"
)

// DefaultInlineThreshold is the compressed-content size at or above which the
// payload overflows to the blob store instead of living inline in the
// identity row.
const DefaultInlineThreshold = 32 * 1024

// Writer ingests events: it normalizes them, decides content placement, and
// writes the identity and date rows of the dual index.
type Writer struct {
	store           store.TableStore
	blob            blob.BlobStore
	inlineThreshold int
}

// NewWriter creates an event writer. inlineThreshold caps inline compressed
// content size; zero selects DefaultInlineThreshold.
func NewWriter(s store.TableStore, b blob.BlobStore, inlineThreshold int) *Writer {
	if inlineThreshold <= 0 {
		inlineThreshold = DefaultInlineThreshold
	}
	return &Writer{store: s, blob: b, inlineThreshold: inlineThreshold}
}

// Ingest records one event in the given shard. The identity row is inserted
// first, then the date row; both must succeed for the event to be durably
// recorded. A partial pair is surfaced as a store error naming the failed
// row; there is no compensating delete, so the event may remain locatable
// through one index path only.
func (w *Writer) Ingest(ctx context.Context, shard string, event *types.EventRecord) error {
	if err := w.validate(event); err != nil {
		metrics.IngestFailuresTotal.Inc()
		return err
	}
	ok, err := w.store.ShardExists(ctx, shard)
	if err != nil {
		metrics.IngestFailuresTotal.Inc()
		return &types.StoreError{Op: "shard lookup", Err: err}
	}
	if !ok {
		metrics.IngestFailuresTotal.Inc()
		return fmt.Errorf("shard %q: %w", shard, types.ErrShardNotFound)
	}

	created := event.CreatedAt.UTC()
	rowKey := keys.RowKey(created)
	identityPK, err := keys.PartitionKeyForID(event.ID)
	if err != nil {
		metrics.IngestFailuresTotal.Inc()
		return err
	}

	compressed := codec.Compress(event.Content)

	// Content placement: overflow to the blob store at the threshold, else
	// inline in the identity row.
	var inline []byte
	if len(compressed) >= w.inlineThreshold {
		contentID, err := keys.ContentID(event.ID, rowKey)
		if err != nil {
			metrics.IngestFailuresTotal.Inc()
			return err
		}
		if err := w.blob.Put(ctx, shard, contentID, compressed); err != nil {
			metrics.IngestFailuresTotal.Inc()
			return &types.StoreError{Op: "content overflow " + contentID, Err: err}
		}
		metrics.ContentOverflowsTotal.Inc()
	} else {
		inline = compressed
	}

	identityRow := &types.EventRow{
		PartitionKey: identityPK,
		RowKey:       rowKey,
		ID:           event.ID,
		ProgramID:    event.ProgramID,
		CarrierID:    event.CarrierID,
		ServiceName:  event.ServiceName,
		Description:  event.Description,
		CreatedAt:    created,
		Content:      inline,
	}
	if err := w.store.Insert(ctx, shard, identityRow); err != nil {
		metrics.IngestFailuresTotal.Inc()
		return &types.StoreError{Op: "identity row insert", Err: err}
	}

	dateRow := &types.EventRow{
		PartitionKey: keys.PartitionKeyForDate(created),
		RowKey:       rowKey,
		ID:           event.ID,
		Description:  event.Description,
		CreatedAt:    created,
	}
	if err := w.store.Insert(ctx, shard, dateRow); err != nil {
		metrics.IngestFailuresTotal.Inc()
		return &types.StoreError{Op: "date row insert", Err: err}
	}

	metrics.EventsIngestedTotal.Inc()
	return nil
}

// validate rejects malformed events before any key construction.
func (w *Writer) validate(event *types.EventRecord) error {
	if event == nil {
		return types.NewValidationError("event is required")
	}
	if err := keys.ValidateID(event.ID); err != nil {
		return err
	}
	if event.Content == "" {
		return types.NewValidationError("content is required")
	}
	if event.CreatedAt.IsZero() {
		return types.NewValidationError("creation timestamp is required")
	}
	return nil
}
