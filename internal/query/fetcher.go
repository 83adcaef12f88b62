package query

import (
	"context"
	"fmt"

	"github.com/eventrail/eventrail/internal/store"
	"github.com/eventrail/eventrail/internal/timebucket"
	"github.com/eventrail/eventrail/pkg/types"
)

// FetchRequest describes one filter executed against one shard.
type FetchRequest struct {
	Shard  string
	Filter store.Filter

	// TimeCheck, when non-nil, discards rows outside [Start, End) even if
	// the filter admitted them.
	TimeCheck *timebucket.Range

	Order types.Order

	// Skip and Top apply in scan order and are honored only when that order
	// matches the requested result order: a descending request whose filter
	// pins a single partition. Otherwise every matched row is kept and
	// paging is the caller's responsibility after the global sort.
	Skip int
	Top  int

	OnlyCount bool
}

// FetchResult holds the rows one fetch kept, in store-native order
// (partition key ascending, row key ascending, which is reverse chronological
// within a partition), plus the total matched-row count.
type FetchResult struct {
	Shard string
	Rows  []types.EventRow

	// RowCount counts every matched row, including rows discarded by skip
	// and rows never kept because only a count was requested.
	RowCount int64
}

// Fetcher executes a single filter against a single shard, consuming the
// store's segmented scan protocol.
type Fetcher struct {
	store store.TableStore
}

// NewFetcher creates a fetcher over the given table store.
func NewFetcher(s store.TableStore) *Fetcher {
	return &Fetcher{store: s}
}

// Fetch runs the scan to completion or until the early-stop rule applies.
//
// Early stop once Top rows are kept is allowed only when the scan's natural
// order coincides with the requested order: descending, with a filter pinned
// to a single partition. A multi-partition filter visits partitions oldest
// day first, so stopping early would keep the newest rows of the earliest
// day and miss later days entirely. An ascending request with a Top limit
// must likewise scan to exhaustion: the earliest N rows sit at the tail of a
// descending-ordered partition. Skip honors the same gate; a count always
// scans everything.
func (f *Fetcher) Fetch(ctx context.Context, req FetchRequest) (*FetchResult, error) {
	result := &FetchResult{Shard: req.Shard}
	inScanPaging := req.Order != types.OrderAscending && req.Filter.PinsPartition()

	token := ""
	for {
		page, err := f.store.Scan(ctx, req.Shard, req.Filter, token)
		if err != nil {
			return nil, fmt.Errorf("fetch shard %q: %w", req.Shard, err)
		}

		for i := range page.Rows {
			row := page.Rows[i]
			if req.TimeCheck != nil && !req.TimeCheck.Contains(row.CreatedAt) {
				continue
			}

			result.RowCount++
			if inScanPaging && result.RowCount <= int64(req.Skip) {
				continue
			}
			if req.OnlyCount {
				continue
			}

			result.Rows = append(result.Rows, row)
			if inScanPaging && req.Top > 0 && len(result.Rows) >= req.Top {
				return result, nil
			}
		}

		if page.NextToken == "" {
			return result, nil
		}
		token = page.NextToken
	}
}
