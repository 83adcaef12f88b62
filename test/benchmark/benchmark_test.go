// Package benchmark provides throughput benchmarks for the journal's write
// and read paths.
package benchmark

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/eventrail/eventrail/internal/blob"
	"github.com/eventrail/eventrail/internal/ingest"
	"github.com/eventrail/eventrail/internal/query"
	"github.com/eventrail/eventrail/internal/store"
	"github.com/eventrail/eventrail/pkg/types"
)

func newMemoryJournal(b *testing.B) (*ingest.Writer, *query.Runner) {
	b.Helper()
	ctx := context.Background()
	s := store.NewMemoryStore(0)
	lb, err := blob.NewLocalBlob(b.TempDir())
	if err != nil {
		b.Fatalf("failed to create blob store: %v", err)
	}
	if err := s.EnsureShard(ctx, "events"); err != nil {
		b.Fatalf("failed to ensure shard: %v", err)
	}
	if err := lb.EnsureShard(ctx, "events"); err != nil {
		b.Fatalf("failed to ensure blob shard: %v", err)
	}
	return ingest.NewWriter(s, lb, 0), query.NewRunner(s, lb, 0)
}

func seed(b *testing.B, w *ingest.Writer, n int) time.Time {
	b.Helper()
	ctx := context.Background()
	base := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		err := w.Ingest(ctx, "events", &types.EventRecord{
			ID:        fmt.Sprintf("evt-%d", i%100),
			CreatedAt: base.Add(time.Duration(i) * time.Second),
			Content:   `{"seq":1,"state":"recorded"}`,
		})
		if err != nil {
			b.Fatalf("seed ingest failed: %v", err)
		}
	}
	return base
}

func BenchmarkIngestMemory(b *testing.B) {
	w, _ := newMemoryJournal(b)
	ctx := context.Background()
	base := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		err := w.Ingest(ctx, "events", &types.EventRecord{
			ID:        fmt.Sprintf("evt-%d", i),
			CreatedAt: base.Add(time.Duration(i) * time.Millisecond),
			Content:   `{"seq":1,"state":"recorded"}`,
		})
		if err != nil {
			b.Fatalf("ingest failed: %v", err)
		}
	}
}

func BenchmarkIngestSQLite(b *testing.B) {
	ctx := context.Background()
	s, err := store.NewSQLiteStore(filepath.Join(b.TempDir(), "journal.db"), 0)
	if err != nil {
		b.Fatalf("failed to create store: %v", err)
	}
	defer s.Close()
	lb, err := blob.NewLocalBlob(b.TempDir())
	if err != nil {
		b.Fatalf("failed to create blob store: %v", err)
	}
	if err := s.EnsureShard(ctx, "events"); err != nil {
		b.Fatalf("failed to ensure shard: %v", err)
	}
	w := ingest.NewWriter(s, lb, 0)
	base := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		err := w.Ingest(ctx, "events", &types.EventRecord{
			ID:        fmt.Sprintf("evt-%d", i),
			CreatedAt: base.Add(time.Duration(i) * time.Millisecond),
			Content:   `{"seq":1,"state":"recorded"}`,
		})
		if err != nil {
			b.Fatalf("ingest failed: %v", err)
		}
	}
}

func BenchmarkQueryByID(b *testing.B) {
	w, r := newMemoryJournal(b)
	seed(b, w, 5000)
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, err := r.List(ctx, []string{"events"}, query.ByID(fmt.Sprintf("evt-%d", i%100)), types.QueryOptions{NoContent: true})
		if err != nil {
			b.Fatalf("query failed: %v", err)
		}
	}
}

func BenchmarkTimeRangeQuery(b *testing.B) {
	w, r := newMemoryJournal(b)
	base := seed(b, w, 5000)
	ctx := context.Background()
	from := base
	to := base.Add(5000 * time.Second)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, err := r.List(ctx, []string{"events"}, query.ByTimeRange(from, to), types.QueryOptions{NoContent: true})
		if err != nil {
			b.Fatalf("query failed: %v", err)
		}
	}
}

func BenchmarkTimeRangeCount(b *testing.B) {
	w, r := newMemoryJournal(b)
	base := seed(b, w, 5000)
	ctx := context.Background()
	from := base
	to := base.Add(5000 * time.Second)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, err := r.Count(ctx, []string{"events"}, query.ByTimeRange(from, to), types.QueryOptions{OnlyCount: true})
		if err != nil {
			b.Fatalf("count failed: %v", err)
		}
	}
}
