package store

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eventrail/eventrail/pkg/types"
)

func newTestSQLiteStore(t *testing.T, pageSize int) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "journal.db"), pageSize)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteStore_InsertAndScan(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLiteStore(t, 0)
	require.NoError(t, s.EnsureShard(ctx, "events"))

	created := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	row := &types.EventRow{
		PartitionKey: "id:abc123",
		RowKey:       "0000000000000000001-x",
		ID:           "ABC-123",
		ProgramID:    "p1",
		CarrierID:    "c1",
		ServiceName:  "svc",
		Description:  "created",
		CreatedAt:    created,
		Content:      []byte("payload"),
	}
	require.NoError(t, s.Insert(ctx, "events", row))

	page, err := s.Scan(ctx, "events", Filter{}, "")
	require.NoError(t, err)
	require.Len(t, page.Rows, 1)
	got := page.Rows[0]
	assert.Equal(t, row.PartitionKey, got.PartitionKey)
	assert.Equal(t, row.RowKey, got.RowKey)
	assert.Equal(t, row.ID, got.ID)
	assert.Equal(t, row.ProgramID, got.ProgramID)
	assert.Equal(t, row.Description, got.Description)
	assert.True(t, created.Equal(got.CreatedAt))
	assert.Equal(t, row.Content, got.Content)
}

func TestSQLiteStore_ShardLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLiteStore(t, 0)

	ok, err := s.ShardExists(ctx, "events")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.EnsureShard(ctx, "events"))
	require.NoError(t, s.EnsureShard(ctx, "events"))

	ok, err = s.ShardExists(ctx, "events")
	require.NoError(t, err)
	assert.True(t, ok)

	err = s.Insert(ctx, "missing", &types.EventRow{PartitionKey: "id:a", RowKey: "1"})
	assert.ErrorIs(t, err, types.ErrShardNotFound)
}

func TestSQLiteStore_RejectsBadShardName(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLiteStore(t, 0)

	// Uppercase and underscore are rejected alongside injection attempts:
	// SQLite folds identifier case, so "Shard-A", "shard-a", and "shard_a"
	// would otherwise share one table.
	for _, shard := range []string{"", "evil;drop", "a b", "x'y", "Shard-A", "shard_a"} {
		err := s.EnsureShard(ctx, shard)
		assert.True(t, types.IsValidation(err), "shard %q", shard)
	}

	require.NoError(t, s.EnsureShard(ctx, "shard-a"))
}

func TestSQLiteStore_NativeOrderAndFilter(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLiteStore(t, 0)
	require.NoError(t, s.EnsureShard(ctx, "events"))

	keys := [][2]string{
		{"date:20240102", "200"},
		{"date:20240101", "900"},
		{"date:20240102", "100"},
		{"date:20240101", "100"},
	}
	for i, k := range keys {
		require.NoError(t, s.Insert(ctx, "events", &types.EventRow{
			PartitionKey: k[0], RowKey: k[1], ID: fmt.Sprintf("e%d", i),
			CreatedAt: time.Now(),
		}))
	}

	page, err := s.Scan(ctx, "events", Filter{}, "")
	require.NoError(t, err)
	require.Len(t, page.Rows, 4)
	want := []string{"date:20240101/100", "date:20240101/900", "date:20240102/100", "date:20240102/200"}
	for i, row := range page.Rows {
		assert.Equal(t, want[i], row.PartitionKey+"/"+row.RowKey)
	}

	f := Filter{}.
		Where(FieldPartitionKey, OpEq, "date:20240101").
		Where(FieldRowKey, OpGt, "100")
	page, err = s.Scan(ctx, "events", f, "")
	require.NoError(t, err)
	require.Len(t, page.Rows, 1)
	assert.Equal(t, "900", page.Rows[0].RowKey)
}

func TestSQLiteStore_ScanPaging(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLiteStore(t, 3)
	require.NoError(t, s.EnsureShard(ctx, "events"))

	for i := 0; i < 7; i++ {
		require.NoError(t, s.Insert(ctx, "events", &types.EventRow{
			PartitionKey: "id:a", RowKey: fmt.Sprintf("%03d", i),
			ID: fmt.Sprintf("e%d", i), CreatedAt: time.Now(),
		}))
	}

	var all []string
	token := ""
	pages := 0
	for {
		page, err := s.Scan(ctx, "events", Filter{}, token)
		require.NoError(t, err)
		for _, row := range page.Rows {
			all = append(all, row.RowKey)
		}
		pages++
		if page.NextToken == "" {
			break
		}
		token = page.NextToken
	}
	assert.Equal(t, 3, pages)
	require.Len(t, all, 7)
	for i, rk := range all {
		assert.Equal(t, fmt.Sprintf("%03d", i), rk)
	}
}

func TestSQLiteStore_TokenBoundToScan(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLiteStore(t, 2)
	require.NoError(t, s.EnsureShard(ctx, "events"))
	require.NoError(t, s.EnsureShard(ctx, "other"))

	for i := 0; i < 5; i++ {
		require.NoError(t, s.Insert(ctx, "events", &types.EventRow{
			PartitionKey: "id:a", RowKey: fmt.Sprintf("%03d", i), CreatedAt: time.Now(),
		}))
	}

	page, err := s.Scan(ctx, "events", Filter{}, "")
	require.NoError(t, err)
	require.NotEmpty(t, page.NextToken)

	// Same token replayed against a different shard or filter must fail.
	_, err = s.Scan(ctx, "other", Filter{}, page.NextToken)
	assert.ErrorIs(t, err, ErrInvalidToken)

	f := Filter{}.Where(FieldPartitionKey, OpEq, "id:a")
	_, err = s.Scan(ctx, "events", f, page.NextToken)
	assert.ErrorIs(t, err, ErrInvalidToken)

	for _, bad := range []string{
		"garbage",
		"id:a\x00001",
		"id:a\x00001\x00zzzz",
		"id:a\x00001\x000000000000000000",
	} {
		_, err = s.Scan(ctx, "events", Filter{}, bad)
		assert.ErrorIs(t, err, ErrInvalidToken, "token %q", bad)
	}
}

func TestSQLiteStore_ScanResumeSurvivesInsert(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLiteStore(t, 3)
	require.NoError(t, s.EnsureShard(ctx, "events"))

	for i := 0; i < 6; i++ {
		require.NoError(t, s.Insert(ctx, "events", &types.EventRow{
			PartitionKey: "id:a", RowKey: fmt.Sprintf("%03d", i*2),
			CreatedAt: time.Now(),
		}))
	}

	page, err := s.Scan(ctx, "events", Filter{}, "")
	require.NoError(t, err)
	require.NotEmpty(t, page.NextToken)
	require.Len(t, page.Rows, 3)

	// Fresh events carry smaller reversed-ticks row keys and sort before
	// the cursor. They must not shift the resumed segment.
	for _, rk := range []string{"001", "003"} {
		require.NoError(t, s.Insert(ctx, "events", &types.EventRow{
			PartitionKey: "id:a", RowKey: rk, CreatedAt: time.Now(),
		}))
	}

	page, err = s.Scan(ctx, "events", Filter{}, page.NextToken)
	require.NoError(t, err)
	assert.Empty(t, page.NextToken)
	require.Len(t, page.Rows, 3)
	for i, row := range page.Rows {
		assert.Equal(t, fmt.Sprintf("%03d", (i+3)*2), row.RowKey)
	}
}

func TestSQLiteStore_ReopenSeesData(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "journal.db")

	s, err := NewSQLiteStore(path, 0)
	require.NoError(t, err)
	require.NoError(t, s.EnsureShard(ctx, "events"))
	require.NoError(t, s.Insert(ctx, "events", &types.EventRow{
		PartitionKey: "id:a", RowKey: "1", ID: "e1", CreatedAt: time.Now(),
	}))
	require.NoError(t, s.Close())

	s2, err := NewSQLiteStore(path, 0)
	require.NoError(t, err)
	defer s2.Close()

	ok, err := s2.ShardExists(ctx, "events")
	require.NoError(t, err)
	assert.True(t, ok)

	page, err := s2.Scan(ctx, "events", Filter{}, "")
	require.NoError(t, err)
	assert.Len(t, page.Rows, 1)
}
