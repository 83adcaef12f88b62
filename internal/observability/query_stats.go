// Package observability provides in-process query statistics: which shards a
// journal instance serves, through which query modes, and how many rows each
// returns. Complements the aggregate Prometheus counters with per-shard
// detail.
package observability

import (
	"sort"
	"sync"
	"time"
)

// QueryStats tracks per-shard query activity over a sliding window.
type QueryStats struct {
	mu     sync.RWMutex
	shards map[string]*ShardStats
	window time.Duration
}

// ShardStats holds accumulated statistics for one shard.
type ShardStats struct {
	Shard    string    `json:"shard"`
	Queries  int64     `json:"queries"`
	Rows     int64     `json:"rows"`
	LastSeen time.Time `json:"last_seen"`

	// Modes counts queries per query mode (id, time_range, key).
	Modes map[string]int64 `json:"modes"`
}

// NewQueryStats creates a statistics tracker. Shards idle for longer than
// window are dropped on Prune; zero disables pruning.
func NewQueryStats(window time.Duration) *QueryStats {
	return &QueryStats{
		shards: make(map[string]*ShardStats),
		window: window,
	}
}

// Record notes one query against a shard. rows is the number of records the
// shard contributed to the response.
func (q *QueryStats) Record(shard, mode string, rows int) {
	q.mu.Lock()
	defer q.mu.Unlock()

	stats, ok := q.shards[shard]
	if !ok {
		stats = &ShardStats{
			Shard: shard,
			Modes: make(map[string]int64),
		}
		q.shards[shard] = stats
	}

	stats.Queries++
	stats.Rows += int64(rows)
	stats.LastSeen = time.Now()
	stats.Modes[mode]++
}

// TopShards returns the n busiest shards by query count, busiest first. The
// returned values are copies.
func (q *QueryStats) TopShards(n int) []ShardStats {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if n <= 0 || len(q.shards) == 0 {
		return []ShardStats{}
	}

	stats := make([]ShardStats, 0, len(q.shards))
	for _, s := range q.shards {
		cp := ShardStats{
			Shard:    s.Shard,
			Queries:  s.Queries,
			Rows:     s.Rows,
			LastSeen: s.LastSeen,
			Modes:    make(map[string]int64, len(s.Modes)),
		}
		for mode, count := range s.Modes {
			cp.Modes[mode] = count
		}
		stats = append(stats, cp)
	}

	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Queries != stats[j].Queries {
			return stats[i].Queries > stats[j].Queries
		}
		return stats[i].Shard < stats[j].Shard
	})

	if n > len(stats) {
		n = len(stats)
	}
	return stats[:n]
}

// Prune drops shards whose last query is older than the window.
func (q *QueryStats) Prune() {
	if q.window <= 0 {
		return
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	cutoff := time.Now().Add(-q.window)
	for shard, stats := range q.shards {
		if stats.LastSeen.Before(cutoff) {
			delete(q.shards, shard)
		}
	}
}
