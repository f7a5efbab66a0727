package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/isdelr/shelf-api/internal/database"
	"github.com/isdelr/shelf-api/internal/monitoring"
	"github.com/rs/zerolog/log"
)

// HealthHandler reports whether the service can reach its store.
type HealthHandler struct {
	store database.Store
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(store database.Store) *HealthHandler {
	return &HealthHandler{store: store}
}

type healthResponse struct {
	Status string                `json:"status"`
	Store  string                `json:"store"`
	Host   *monitoring.HostStats `json:"host,omitempty"`
}

// Get answers 200 when the store responds to a ping and 503 otherwise.
func (h *HealthHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := healthResponse{Status: "ok", Store: "ok"}
	status := http.StatusOK
	if err := h.store.Ping(ctx); err != nil {
		log.Error().Err(err).Msg("Health check: store unreachable")
		resp.Status, resp.Store = "degraded", "unavailable"
		status = http.StatusServiceUnavailable
	}

	if stats, err := monitoring.CollectHostStats(ctx); err != nil {
		log.Debug().Err(err).Msg("Health check: host stats unavailable")
	} else {
		resp.Host = &stats
	}

	writeJSON(w, status, resp)
}
