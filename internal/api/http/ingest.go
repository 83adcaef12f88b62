package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/eventrail/eventrail/internal/ingest"
	"github.com/eventrail/eventrail/pkg/types"
)

// IngestResponse represents the ingest response.
type IngestResponse struct {
	ID        string `json:"id"`
	Shard     string `json:"shard"`
	RequestID string `json:"request_id"`
}

// IngestHandler handles POST /v1/shards/{shard}/events requests.
type IngestHandler struct {
	writer *ingest.Writer
}

// NewIngestHandler creates a new ingest handler.
func NewIngestHandler(writer *ingest.Writer) *IngestHandler {
	return &IngestHandler{writer: writer}
}

// ServeHTTP handles the ingest HTTP request.
func (h *IngestHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestID := GetRequestID(r.Context())

	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", requestID)
		return
	}

	shard := shardFromPath(r.URL.Path)
	if shard == "" {
		writeError(w, http.StatusBadRequest, "shard is required", requestID)
		return
	}

	var event types.EventRecord
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error(), requestID)
		return
	}

	if err := h.writer.Ingest(r.Context(), shard, &event); err != nil {
		writeError(w, statusFor(err), err.Error(), requestID)
		return
	}

	writeJSON(w, http.StatusCreated, IngestResponse{
		ID:        event.ID,
		Shard:     shard,
		RequestID: requestID,
	})
}

// shardFromPath extracts the shard segment from /v1/shards/{shard}/events.
func shardFromPath(path string) string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 4 || parts[0] != "v1" || parts[1] != "shards" || parts[3] != "events" {
		return ""
	}
	return parts[2]
}
