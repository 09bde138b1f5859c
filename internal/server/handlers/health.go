package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"git.home.luguber.info/inful/resourcesync/internal/state"
)

// HealthResponse is the payload of the health endpoint.
type HealthResponse struct {
	Status           string    `json:"status"`
	Timestamp        time.Time `json:"timestamp"`
	Uptime           float64   `json:"uptime_seconds"`
	Initialized      bool      `json:"initialized"`
	LatestChangeList string    `json:"latest_changelist,omitempty"`
}

// HealthHandlers reports liveness and whether the output directory is initialized.
type HealthHandlers struct {
	store   *state.Store
	started time.Time
}

func NewHealthHandlers(store *state.Store) *HealthHandlers {
	return &HealthHandlers{store: store, started: time.Now()}
}

// HandleHealthCheck answers 200 when the output directory is readable.
func (h *HealthHandlers) HandleHealthCheck(w http.ResponseWriter, _ *http.Request) {
	resp := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Uptime:    time.Since(h.started).Seconds(),
	}
	status := http.StatusOK
	latest, ok, err := h.store.Latest()
	switch {
	case err != nil:
		resp.Status = "unhealthy"
		status = http.StatusServiceUnavailable
	case ok:
		resp.Initialized = true
		resp.LatestChangeList = latest.Name
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(resp)
}
