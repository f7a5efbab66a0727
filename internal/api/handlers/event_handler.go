package handlers

import (
	"net/http"
	"strconv"

	"github.com/isdelr/shelf-api/internal/services"
)

const defaultEventLimit = 20

// EventHandler handles HTTP requests related to book activity.
type EventHandler struct {
	service services.EventServiceProvider
}

// NewEventHandler creates a new EventHandler.
func NewEventHandler(service services.EventServiceProvider) *EventHandler {
	return &EventHandler{service: service}
}

// GetRecent handles the request to get recent book activity.
func (h *EventHandler) GetRecent(w http.ResponseWriter, r *http.Request) {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		limit = defaultEventLimit
	}
	writeJSON(w, http.StatusOK, h.service.GetRecentEvents(limit))
}
