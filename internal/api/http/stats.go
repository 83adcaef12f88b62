package http

import (
	"net/http"
	"strconv"

	"github.com/eventrail/eventrail/internal/observability"
)

// defaultStatsLimit caps the shard list when no top parameter is given.
const defaultStatsLimit = 25

// StatsResponse represents the query statistics response.
type StatsResponse struct {
	Shards []observability.ShardStats `json:"shards"`
}

// StatsHandler handles GET /v1/stats requests, reporting per-shard query
// activity for this instance.
type StatsHandler struct {
	stats *observability.QueryStats
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(stats *observability.QueryStats) *StatsHandler {
	return &StatsHandler{stats: stats}
}

// ServeHTTP handles the stats HTTP request. An optional top parameter limits
// the number of shards reported.
func (h *StatsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestID := GetRequestID(r.Context())

	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", requestID)
		return
	}

	limit := defaultStatsLimit
	if v := r.URL.Query().Get("top"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "top must be a positive integer", requestID)
			return
		}
		limit = n
	}

	writeJSON(w, http.StatusOK, StatsResponse{Shards: h.stats.TopShards(limit)})
}
