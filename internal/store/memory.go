package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/eventrail/eventrail/pkg/types"
)

// DefaultSegmentSize is the number of rows returned per scan segment when no
// size is configured.
const DefaultSegmentSize = 1000

// MemoryStore is an in-memory TableStore. Rows are kept sorted by
// (partition_key, row_key) per shard. Intended for tests and local
// development.
type MemoryStore struct {
	mu          sync.RWMutex
	shards      map[string][]types.EventRow
	segmentSize int
	closed      bool
}

// NewMemoryStore creates an empty in-memory store. segmentSize caps rows per
// scan segment; zero selects DefaultSegmentSize.
func NewMemoryStore(segmentSize int) *MemoryStore {
	if segmentSize <= 0 {
		segmentSize = DefaultSegmentSize
	}
	return &MemoryStore{
		shards:      make(map[string][]types.EventRow),
		segmentSize: segmentSize,
	}
}

// EnsureShard creates the shard collection if missing.
func (m *MemoryStore) EnsureShard(_ context.Context, shard string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	if _, ok := m.shards[shard]; !ok {
		m.shards[shard] = nil
	}
	return nil
}

// ShardExists reports whether the shard collection exists.
func (m *MemoryStore) ShardExists(_ context.Context, shard string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return false, ErrClosed
	}
	_, ok := m.shards[shard]
	return ok, nil
}

// Insert adds a row, keeping the shard sorted by (partition_key, row_key).
func (m *MemoryStore) Insert(_ context.Context, shard string, row *types.EventRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	rows, ok := m.shards[shard]
	if !ok {
		return fmt.Errorf("memory store: insert into %q: %w", shard, types.ErrShardNotFound)
	}
	i := sort.Search(len(rows), func(i int) bool {
		return compareKeys(rows[i].PartitionKey, rows[i].RowKey, row.PartitionKey, row.RowKey) >= 0
	})
	if i < len(rows) && rows[i].PartitionKey == row.PartitionKey && rows[i].RowKey == row.RowKey {
		return fmt.Errorf("memory store: duplicate key (%s, %s) in %q", row.PartitionKey, row.RowKey, shard)
	}
	rows = append(rows, types.EventRow{})
	copy(rows[i+1:], rows[i:])
	rows[i] = *row
	m.shards[shard] = rows
	return nil
}

// Scan returns the next segment of rows matching the filter in native order.
// The continuation token encodes the last key of the previous segment, so a
// scan stays correct even if rows are inserted between segments.
func (m *MemoryStore) Scan(_ context.Context, shard string, filter Filter, token string) (*Page, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	rows, ok := m.shards[shard]
	if !ok {
		return nil, fmt.Errorf("memory store: scan %q: %w", shard, types.ErrShardNotFound)
	}

	start := 0
	if token != "" {
		pk, rk, err := decodeMemToken(token)
		if err != nil {
			return nil, err
		}
		start = sort.Search(len(rows), func(i int) bool {
			return compareKeys(rows[i].PartitionKey, rows[i].RowKey, pk, rk) > 0
		})
	}

	page := &Page{}
	for i := start; i < len(rows); i++ {
		if !filter.Matches(rows[i].PartitionKey, rows[i].RowKey) {
			continue
		}
		page.Rows = append(page.Rows, rows[i])
		if len(page.Rows) == m.segmentSize {
			if i+1 < len(rows) {
				page.NextToken = encodeMemToken(rows[i].PartitionKey, rows[i].RowKey)
			}
			break
		}
	}
	return page, nil
}

// Close marks the store closed.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func compareKeys(apk, ark, bpk, brk string) int {
	if c := strings.Compare(apk, bpk); c != 0 {
		return c
	}
	return strings.Compare(ark, brk)
}

func encodeMemToken(pk, rk string) string {
	return pk + "\x00" + rk
}

func decodeMemToken(token string) (pk, rk string, err error) {
	i := strings.IndexByte(token, 0)
	if i < 0 {
		return "", "", ErrInvalidToken
	}
	return token[:i], token[i+1:], nil
}
