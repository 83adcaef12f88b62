// Package app provides the unified application lifecycle for Eventrail.
package app

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	httpapi "github.com/eventrail/eventrail/internal/api/http"
	"github.com/eventrail/eventrail/internal/blob"
	"github.com/eventrail/eventrail/internal/config"
	"github.com/eventrail/eventrail/internal/ingest"
	"github.com/eventrail/eventrail/internal/metrics"
	"github.com/eventrail/eventrail/internal/observability"
	"github.com/eventrail/eventrail/internal/query"
	"github.com/eventrail/eventrail/internal/server"
	"github.com/eventrail/eventrail/internal/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// statsWindow bounds how long an idle shard stays in the query statistics.
const statsWindow = time.Hour

// App wires the journal's components and manages their lifecycle.
type App struct {
	cfg *config.Config

	tableStore store.TableStore
	blobStore  blob.BlobStore
	writer     *ingest.Writer
	runner     *query.Runner
	shutdown   *server.ShutdownManager
	httpServer *http.Server
}

// New creates an App with the given configuration.
func New(cfg *config.Config) (*App, error) {
	cfg.Resolve()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to create directories: %w", err)
	}
	return &App{cfg: cfg}, nil
}

// Run initializes all components, starts the HTTP server, and blocks until
// shutdown.
func (a *App) Run(ctx context.Context) error {
	if err := a.initStores(ctx); err != nil {
		return err
	}

	a.writer = ingest.NewWriter(a.tableStore, a.blobStore, a.cfg.Journal.InlineThresholdBytes)
	a.runner = query.NewRunner(a.tableStore, a.blobStore, a.cfg.Journal.QueryConcurrency)

	registry := prometheus.NewRegistry()
	metrics.Register(registry)
	queryStats := observability.NewQueryStats(statsWindow)

	mux := http.NewServeMux()
	chain := httpapi.DefaultMiddleware()
	mux.Handle("/v1/shards/", chain(httpapi.NewIngestHandler(a.writer)))
	mux.Handle("/v1/events", chain(httpapi.NewQueryHandler(a.runner, queryStats)))
	mux.Handle("/v1/stats", chain(httpapi.NewStatsHandler(queryStats)))
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})

	a.shutdown = server.NewShutdownManager(0)
	a.shutdown.RegisterCloser(server.CloserFunc(a.tableStore.Close))

	go func() {
		ticker := time.NewTicker(statsWindow / 2)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				queryStats.Prune()
			case <-a.shutdown.ShutdownCh():
				return
			}
		}
	}()

	a.httpServer = &http.Server{
		Addr:         a.cfg.HTTP.Addr,
		Handler:      mux,
		ReadTimeout:  a.cfg.HTTP.ReadTimeout,
		WriteTimeout: a.cfg.HTTP.WriteTimeout,
		IdleTimeout:  a.cfg.HTTP.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("app: http listening on %s", a.cfg.HTTP.Addr)
		errCh <- server.NewGracefulHTTPServer(a.httpServer, a.shutdown).ListenAndServe()
	}()

	go func() {
		if err := a.shutdown.ListenForSignals(ctx); err != nil {
			log.Printf("app: shutdown: %v", err)
		}
	}()

	return <-errCh
}

// initStores builds the configured store and blob backends and ensures the
// configured shards exist in both.
func (a *App) initStores(ctx context.Context) error {
	switch a.cfg.Store.Type {
	case "memory":
		a.tableStore = store.NewMemoryStore(a.cfg.Store.SegmentSize)
	case "sqlite":
		s, err := store.NewSQLiteStore(a.cfg.Store.Path, a.cfg.Store.SegmentSize)
		if err != nil {
			return err
		}
		a.tableStore = s
	default:
		return fmt.Errorf("unknown store type %q", a.cfg.Store.Type)
	}

	switch a.cfg.Blob.Type {
	case "local":
		b, err := blob.NewLocalBlob(a.cfg.Blob.Path)
		if err != nil {
			return err
		}
		a.blobStore = b
	case "s3":
		b, err := blob.NewS3Blob(ctx, a.cfg.Blob.S3.Bucket, blob.S3Config{
			Region:       a.cfg.Blob.S3.Region,
			Endpoint:     a.cfg.Blob.S3.Endpoint,
			UsePathStyle: a.cfg.Blob.S3.UsePathStyle,
		})
		if err != nil {
			return err
		}
		a.blobStore = b
	default:
		return fmt.Errorf("unknown blob type %q", a.cfg.Blob.Type)
	}

	for _, shard := range a.cfg.Journal.Shards {
		if err := a.tableStore.EnsureShard(ctx, shard); err != nil {
			return fmt.Errorf("ensure shard %q: %w", shard, err)
		}
		if err := a.blobStore.EnsureShard(ctx, shard); err != nil {
			return fmt.Errorf("ensure blob shard %q: %w", shard, err)
		}
	}
	return nil
}
