package observability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryStats_RecordAndTopShards(t *testing.T) {
	qs := NewQueryStats(0)

	qs.Record("orders", "id", 2)
	qs.Record("orders", "time_range", 10)
	qs.Record("orders", "id", 1)
	qs.Record("shipments", "time_range", 5)

	top := qs.TopShards(10)
	require.Len(t, top, 2)

	assert.Equal(t, "orders", top[0].Shard)
	assert.Equal(t, int64(3), top[0].Queries)
	assert.Equal(t, int64(13), top[0].Rows)
	assert.Equal(t, int64(2), top[0].Modes["id"])
	assert.Equal(t, int64(1), top[0].Modes["time_range"])

	assert.Equal(t, "shipments", top[1].Shard)
	assert.Equal(t, int64(1), top[1].Queries)
}

func TestQueryStats_TopShardsLimit(t *testing.T) {
	qs := NewQueryStats(0)
	qs.Record("a", "id", 1)
	qs.Record("b", "id", 1)
	qs.Record("b", "id", 1)
	qs.Record("c", "id", 1)

	top := qs.TopShards(1)
	require.Len(t, top, 1)
	assert.Equal(t, "b", top[0].Shard)

	assert.Empty(t, qs.TopShards(0))
}

func TestQueryStats_CopiesAreIsolated(t *testing.T) {
	qs := NewQueryStats(0)
	qs.Record("a", "id", 1)

	top := qs.TopShards(1)
	top[0].Modes["id"] = 99
	top[0].Queries = 99

	again := qs.TopShards(1)
	assert.Equal(t, int64(1), again[0].Queries)
	assert.Equal(t, int64(1), again[0].Modes["id"])
}

func TestQueryStats_Prune(t *testing.T) {
	qs := NewQueryStats(time.Millisecond)
	qs.Record("stale", "id", 1)

	time.Sleep(5 * time.Millisecond)
	qs.Record("fresh", "id", 1)
	qs.Prune()

	top := qs.TopShards(10)
	require.Len(t, top, 1)
	assert.Equal(t, "fresh", top[0].Shard)
}

func TestQueryStats_PruneDisabled(t *testing.T) {
	qs := NewQueryStats(0)
	qs.Record("a", "id", 1)
	qs.Prune()
	assert.Len(t, qs.TopShards(10), 1)
}
