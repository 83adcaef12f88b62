package query

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/eventrail/eventrail/internal/blob"
	"github.com/eventrail/eventrail/internal/store"
	"github.com/eventrail/eventrail/pkg/types"
)

// Runner orchestrates fetches across shards and buckets, merges their rows
// into the requested order, and materializes output records.
type Runner struct {
	store       store.TableStore
	blob        blob.BlobStore
	fetcher     *Fetcher
	concurrency int
}

// NewRunner creates a query runner. concurrency bounds the parallel
// shard×bucket fetches per logical query; zero selects a default of 10.
func NewRunner(s store.TableStore, b blob.BlobStore, concurrency int) *Runner {
	if concurrency <= 0 {
		concurrency = 10
	}
	return &Runner{
		store:       s,
		blob:        b,
		fetcher:     NewFetcher(s),
		concurrency: concurrency,
	}
}

// Lookup returns the first row matching a by-id or by-key query on one shard,
// or the zero record if nothing matched.
func (r *Runner) Lookup(ctx context.Context, shard string, q Query, opts types.QueryOptions) (types.Record, error) {
	if err := r.checkShards(ctx, []string{shard}); err != nil {
		return types.Record{}, err
	}
	plan, err := BuildPlan(q, opts)
	if err != nil {
		return types.Record{}, err
	}

	res, err := r.fetcher.Fetch(ctx, FetchRequest{
		Shard:     shard,
		Filter:    plan.Filters[0],
		TimeCheck: plan.TimeCheck,
		Order:     types.OrderDescending,
		Top:       1,
	})
	if err != nil {
		return types.Record{}, err
	}
	if len(res.Rows) == 0 {
		return types.Record{}, nil
	}
	return r.toRecord(ctx, shard, res.Rows[0], false, opts.NoContent)
}

// Count returns the number of rows matching the query across all shards.
// Top and skip do not affect the count; no records are materialized and no
// content is loaded.
func (r *Runner) Count(ctx context.Context, shards []string, q Query, opts types.QueryOptions) (int64, error) {
	if err := r.checkShards(ctx, shards); err != nil {
		return 0, err
	}
	plan, err := BuildPlan(q, opts)
	if err != nil {
		return 0, err
	}

	results, err := r.fanOut(ctx, shards, plan, types.QueryOptions{OnlyCount: true, Order: opts.Order})
	if err != nil {
		return 0, err
	}

	var total int64
	for _, res := range results {
		total += res.RowCount
	}
	return total, nil
}

// List returns all records matching the query across the given shards,
// ordered by creation timestamp per the requested order and truncated to the
// top limit.
func (r *Runner) List(ctx context.Context, shards []string, q Query, opts types.QueryOptions) ([]types.Record, error) {
	if err := r.checkShards(ctx, shards); err != nil {
		return nil, err
	}
	plan, err := BuildPlan(q, opts)
	if err != nil {
		return nil, err
	}

	// Skip and top are pushed into the fetch only when that single fetch is
	// the whole query and its scan order matches the result order; then the
	// fetcher's early stop applies. Every other shape pages globally after
	// the sort.
	pageAtFetch := opts.Ordering() == types.OrderDescending &&
		len(shards) == 1 && len(plan.Filters) == 1 && plan.Filters[0].PinsPartition()

	fanOpts := opts
	if !pageAtFetch {
		fanOpts.Skip, fanOpts.Top = 0, 0
	}
	results, err := r.fanOut(ctx, shards, plan, fanOpts)
	if err != nil {
		return nil, err
	}

	if plan.Bucketed && len(shards) == 1 {
		return r.mergeBuckets(ctx, shards[0], results, opts)
	}
	return r.mergeSorted(ctx, results, len(shards) > 1, opts, pageAtFetch)
}

// checkShards validates the shard list: no duplicates, every shard's
// collection must exist.
func (r *Runner) checkShards(ctx context.Context, shards []string) error {
	if len(shards) == 0 {
		return types.NewValidationError("at least one shard is required")
	}
	seen := make(map[string]struct{}, len(shards))
	for _, shard := range shards {
		if _, dup := seen[shard]; dup {
			return types.NewValidationError("shard %q referenced twice", shard)
		}
		seen[shard] = struct{}{}

		ok, err := r.store.ShardExists(ctx, shard)
		if err != nil {
			return &types.StoreError{Op: "shard lookup", Err: err}
		}
		if !ok {
			return fmt.Errorf("shard %q: %w", shard, types.ErrShardNotFound)
		}
	}
	return nil
}

// fanOut launches one fetch per shard×filter concurrently and joins on all
// of them. Any fetch failure fails the whole query; partial shard results
// would violate the count and result-set contract.
//
// The returned slice is indexed shard-major: results for shards[i] occupy
// positions [i*len(filters), (i+1)*len(filters)) in filter emission order.
func (r *Runner) fanOut(ctx context.Context, shards []string, plan *FilterPlan, opts types.QueryOptions) ([]*FetchResult, error) {
	type partial struct {
		res *FetchResult
		err error
	}

	n := len(shards) * len(plan.Filters)
	partials := make([]partial, n)
	sem := make(chan struct{}, r.concurrency)
	var wg sync.WaitGroup

	for si, shard := range shards {
		for fi, filter := range plan.Filters {
			wg.Add(1)
			go func(idx int, shard string, filter store.Filter) {
				defer wg.Done()

				select {
				case sem <- struct{}{}:
					defer func() { <-sem }()
				case <-ctx.Done():
					partials[idx] = partial{err: ctx.Err()}
					return
				}

				res, err := r.fetcher.Fetch(ctx, FetchRequest{
					Shard:     shard,
					Filter:    filter,
					TimeCheck: plan.TimeCheck,
					Order:     opts.Ordering(),
					Skip:      opts.Skip,
					Top:       opts.Top,
					OnlyCount: opts.OnlyCount,
				})
				partials[idx] = partial{res: res, err: err}
			}(si*len(plan.Filters)+fi, shard, filter)
		}
	}
	wg.Wait()

	results := make([]*FetchResult, n)
	for i, p := range partials {
		if p.err != nil {
			return nil, p.err
		}
		results[i] = p.res
	}
	return results, nil
}

// mergeBuckets concatenates per-bucket results from a single shard. Buckets
// were emitted in the direction matching the requested order and each
// bucket's rows are in store-native descending order, so descending requests
// concatenate unchanged. Ascending requests reverse each bucket in place
// first; the bucket emission order already matches the final concatenation
// order, so the top limit can be applied incrementally.
func (r *Runner) mergeBuckets(ctx context.Context, shard string, results []*FetchResult, opts types.QueryOptions) ([]types.Record, error) {
	var rows []types.EventRow
	if opts.Ordering() == types.OrderDescending {
		for _, res := range results {
			rows = append(rows, res.Rows...)
		}
	} else {
	outer:
		for _, res := range results {
			for i, j := 0, len(res.Rows)-1; i < j; i, j = i+1, j-1 {
				res.Rows[i], res.Rows[j] = res.Rows[j], res.Rows[i]
			}
			for _, row := range res.Rows {
				rows = append(rows, row)
				if opts.Top > 0 && len(rows) >= opts.Top {
					break outer
				}
			}
		}
	}
	if opts.Top > 0 && len(rows) > opts.Top {
		rows = rows[:opts.Top]
	}

	records := make([]types.Record, 0, len(rows))
	for _, row := range rows {
		rec, err := r.toRecord(ctx, shard, row, false, opts.NoContent)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// mergeSorted handles the multi-shard and non-bucketed cases: no per-bucket
// ordering shortcut is valid, so all matched rows are collected and stably
// sorted by creation timestamp before paging. pagedAtFetch marks the one
// shape where skip and top were already applied inside the single fetch.
func (r *Runner) mergeSorted(ctx context.Context, results []*FetchResult, tagShard bool, opts types.QueryOptions, pagedAtFetch bool) ([]types.Record, error) {
	type taggedRow struct {
		shard string
		row   types.EventRow
	}
	var rows []taggedRow
	for _, res := range results {
		for _, row := range res.Rows {
			rows = append(rows, taggedRow{shard: res.Shard, row: row})
		}
	}

	asc := opts.Ordering() == types.OrderAscending
	sort.SliceStable(rows, func(i, j int) bool {
		if asc {
			return rows[i].row.CreatedAt.Before(rows[j].row.CreatedAt)
		}
		return rows[i].row.CreatedAt.After(rows[j].row.CreatedAt)
	})

	if !pagedAtFetch {
		if opts.Skip > 0 {
			if opts.Skip >= len(rows) {
				rows = nil
			} else {
				rows = rows[opts.Skip:]
			}
		}
		if opts.Top > 0 && len(rows) > opts.Top {
			rows = rows[:opts.Top]
		}
	}

	records := make([]types.Record, 0, len(rows))
	for _, tr := range rows {
		rec, err := r.toRecord(ctx, tr.shard, tr.row, tagShard, opts.NoContent)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}
