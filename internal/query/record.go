package query

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/eventrail/eventrail/internal/codec"
	"github.com/eventrail/eventrail/internal/keys"
	"github.com/eventrail/eventrail/internal/store"
	"github.com/eventrail/eventrail/pkg/types"
)

// toRecord materializes an output record from a physical row. Optional
// fields carry through only when non-empty; both derived partition keys and
// the raw row key are always included. Content is hydrated unless
// suppressed.
func (r *Runner) toRecord(ctx context.Context, shard string, row types.EventRow, tagShard, noContent bool) (types.Record, error) {
	identityPK, err := keys.PartitionKeyForID(row.ID)
	if err != nil {
		return types.Record{}, fmt.Errorf("materialize row %q: %w", row.RowKey, err)
	}

	rec := types.Record{
		ID:               row.ID,
		ProgramID:        row.ProgramID,
		CarrierID:        row.CarrierID,
		ServiceName:      row.ServiceName,
		Description:      row.Description,
		CreatedAt:        row.CreatedAt,
		PartitionKey:     identityPK,
		DatePartitionKey: keys.PartitionKeyForDate(row.CreatedAt),
		RowKey:           row.RowKey,
	}
	if tagShard {
		rec.Shard = shard
	}

	if !noContent {
		content, err := r.hydrateContent(ctx, shard, row, identityPK)
		if err != nil {
			return types.Record{}, err
		}
		rec.Content = content
	}
	return rec, nil
}

// hydrateContent resolves an event's payload bytes, decompresses them, and
// parses them as JSON. A parse failure is not an error; the decompressed raw
// text becomes the value.
//
// Content lives in exactly one place: inline in the identity row, or in the
// blob store under the content id. A date row carries no content, so its
// identity row is located first via the content id.
func (r *Runner) hydrateContent(ctx context.Context, shard string, row types.EventRow, identityPK string) (interface{}, error) {
	compressed := row.Content

	if len(compressed) == 0 && strings.HasPrefix(row.PartitionKey, keys.DatePrefix) {
		identityRow, err := r.lookupIdentityRow(ctx, shard, identityPK, row.RowKey)
		if err != nil {
			return nil, err
		}
		if identityRow != nil {
			compressed = identityRow.Content
		}
	}

	if len(compressed) == 0 {
		contentID, err := keys.ContentID(row.ID, row.RowKey)
		if err != nil {
			return nil, err
		}
		data, err := r.blob.Get(ctx, shard, contentID)
		if err != nil {
			return nil, &types.StoreError{Op: "content fetch " + contentID, Err: err}
		}
		compressed = data
	}

	text, err := codec.Decompress(compressed)
	if err != nil {
		return nil, &types.StoreError{Op: "content decompress", Err: err}
	}

	var parsed interface{}
	if json.Unmarshal([]byte(text), &parsed) == nil {
		return parsed, nil
	}
	return text, nil
}

// lookupIdentityRow fetches the identity row sharing the date row's row key.
func (r *Runner) lookupIdentityRow(ctx context.Context, shard, identityPK, rowKey string) (*types.EventRow, error) {
	filter := store.Filter{}.
		Where(store.FieldPartitionKey, store.OpEq, identityPK).
		Where(store.FieldRowKey, store.OpEq, rowKey)

	page, err := r.store.Scan(ctx, shard, filter, "")
	if err != nil {
		return nil, &types.StoreError{Op: "identity row lookup", Err: err}
	}
	if len(page.Rows) == 0 {
		return nil, nil
	}
	return &page.Rows[0], nil
}
