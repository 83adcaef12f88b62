package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/eventrail/eventrail/internal/metrics"
	"github.com/eventrail/eventrail/internal/observability"
	"github.com/eventrail/eventrail/internal/query"
	"github.com/eventrail/eventrail/pkg/types"
)

// QueryHandler handles GET /v1/events requests.
type QueryHandler struct {
	runner *query.Runner
	stats  *observability.QueryStats
}

// NewQueryHandler creates a new query handler. stats may be nil to disable
// per-shard statistics tracking.
func NewQueryHandler(runner *query.Runner, stats *observability.QueryStats) *QueryHandler {
	return &QueryHandler{runner: runner, stats: stats}
}

// ServeHTTP handles the query HTTP request. Query modes, mutually exclusive:
// id=<identifier>, from=<RFC3339>&to=<RFC3339>, or pk=<key>&rk=<key>.
// Options: shard (repeatable), top, skip, order, noContent, onlyCount,
// noBuckets.
func (h *QueryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestID := GetRequestID(r.Context())

	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", requestID)
		return
	}

	q, opts, shards, err := parseQuery(r)
	if err != nil {
		writeError(w, statusFor(err), err.Error(), requestID)
		return
	}

	metrics.QueriesTotal.Inc()

	if opts.OnlyCount {
		count, err := h.runner.Count(r.Context(), shards, q, opts)
		if err != nil {
			metrics.QueryFailuresTotal.Inc()
			writeError(w, statusFor(err), err.Error(), requestID)
			return
		}
		if h.stats != nil {
			for _, shard := range shards {
				h.stats.Record(shard, q.Mode.String(), 0)
			}
		}
		writeJSON(w, http.StatusOK, types.CountResult{Count: count})
		return
	}

	// An exact-key query on a single shard addresses at most one row.
	if q.Mode == query.ModeByKey && len(shards) == 1 {
		rec, err := h.runner.Lookup(r.Context(), shards[0], q, opts)
		if err != nil {
			metrics.QueryFailuresTotal.Inc()
			writeError(w, statusFor(err), err.Error(), requestID)
			return
		}
		if h.stats != nil {
			rows := 0
			if rec.RowKey != "" {
				rows = 1
			}
			h.stats.Record(shards[0], q.Mode.String(), rows)
		}
		writeJSON(w, http.StatusOK, rec)
		return
	}

	records, err := h.runner.List(r.Context(), shards, q, opts)
	if err != nil {
		metrics.QueryFailuresTotal.Inc()
		writeError(w, statusFor(err), err.Error(), requestID)
		return
	}

	metrics.QueryRowsReturned.Observe(float64(len(records)))
	h.recordStats(shards, q, records)
	if records == nil {
		records = []types.Record{}
	}
	writeJSON(w, http.StatusOK, records)
}

// recordStats attributes returned records to their source shards.
func (h *QueryHandler) recordStats(shards []string, q query.Query, records []types.Record) {
	if h.stats == nil {
		return
	}
	mode := q.Mode.String()
	if len(shards) == 1 {
		h.stats.Record(shards[0], mode, len(records))
		return
	}
	perShard := make(map[string]int, len(shards))
	for _, rec := range records {
		perShard[rec.Shard]++
	}
	for _, shard := range shards {
		h.stats.Record(shard, mode, perShard[shard])
	}
}

// parseQuery extracts the query mode, options, and shard list from request
// parameters.
func parseQuery(r *http.Request) (query.Query, types.QueryOptions, []string, error) {
	params := r.URL.Query()

	shards := params["shard"]
	if len(shards) == 0 {
		return query.Query{}, types.QueryOptions{}, nil, types.NewValidationError("at least one shard parameter is required")
	}

	var q query.Query
	switch {
	case params.Get("id") != "":
		q = query.ByID(params.Get("id"))
	case params.Get("pk") != "" || params.Get("rk") != "":
		q = query.ByKey(params.Get("pk"), params.Get("rk"))
	case params.Get("from") != "" || params.Get("to") != "":
		from, err := time.Parse(time.RFC3339, params.Get("from"))
		if err != nil {
			return q, types.QueryOptions{}, nil, types.NewValidationError("invalid from timestamp: %v", err)
		}
		to, err := time.Parse(time.RFC3339, params.Get("to"))
		if err != nil {
			return q, types.QueryOptions{}, nil, types.NewValidationError("invalid to timestamp: %v", err)
		}
		q = query.ByTimeRange(from, to)
	default:
		return q, types.QueryOptions{}, nil, types.NewValidationError("one of id, from/to, or pk/rk is required")
	}

	opts, err := parseOptions(params)
	if err != nil {
		return q, opts, nil, err
	}
	return q, opts, shards, nil
}

func parseOptions(params map[string][]string) (types.QueryOptions, error) {
	get := func(key string) string {
		if vs := params[key]; len(vs) > 0 {
			return vs[0]
		}
		return ""
	}

	var opts types.QueryOptions
	var err error

	if v := get("top"); v != "" {
		if opts.Top, err = strconv.Atoi(v); err != nil || opts.Top <= 0 {
			return opts, types.NewValidationError("top must be a positive integer")
		}
	}
	if v := get("skip"); v != "" {
		if opts.Skip, err = strconv.Atoi(v); err != nil || opts.Skip < 0 {
			return opts, types.NewValidationError("skip must be a non-negative integer")
		}
	}
	switch v := get("order"); v {
	case "", "desc", "descending":
		opts.Order = types.OrderDescending
	case "asc", "ascending":
		opts.Order = types.OrderAscending
	default:
		return opts, types.NewValidationError("order must be asc or desc")
	}

	opts.NoContent = boolParam(get("noContent"))
	opts.OnlyCount = boolParam(get("onlyCount"))
	opts.NoBuckets = boolParam(get("noBuckets"))
	return opts, nil
}

func boolParam(v string) bool {
	return v == "1" || v == "true"
}
