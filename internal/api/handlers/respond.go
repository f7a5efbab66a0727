package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/isdelr/shelf-api/internal/database"
	"github.com/isdelr/shelf-api/internal/models"
	"github.com/isdelr/shelf-api/internal/services"
	"github.com/rs/zerolog/log"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

var (
	errBadBody    = errors.New("invalid request body")
	errBadRequest = errors.New("invalid request")
)

// APIFunc is a handler that reports failures instead of writing them.
type APIFunc func(w http.ResponseWriter, r *http.Request) error

// routeError names what a handler was doing when err happened, so the
// client message can be built without leaking err itself.
type routeError struct {
	action   string // e.g. "fetching"
	resource string // e.g. "book"
	err      error
}

func (e *routeError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.action, e.resource, e.err)
}

func (e *routeError) Unwrap() error { return e.err }

func failed(err error, action, resource string) error {
	return &routeError{action: action, resource: resource, err: err}
}

// Handle adapts an APIFunc to http.HandlerFunc, mapping the error kind to a
// status code and a short message. Every route is registered through it.
func Handle(fn APIFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := fn(w, r); err != nil {
			writeError(w, r, err)
		}
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	action, resource := "handling", "request"
	var re *routeError
	if errors.As(err, &re) {
		action, resource = re.action, re.resource
	}

	status, message := http.StatusInternalServerError, fmt.Sprintf("Error %s %s", action, resource)
	switch {
	case errors.Is(err, database.ErrNotFound):
		status, message = http.StatusNotFound, capitalize(resource)+" not found"
	case errors.Is(err, database.ErrInvalidID):
		status, message = http.StatusBadRequest, fmt.Sprintf("Invalid %s ID format", resource)
	case errors.Is(err, errBadBody):
		status, message = http.StatusBadRequest, "Invalid request body"
	case errors.Is(err, errBadRequest):
		status, message = http.StatusBadRequest, "Invalid request"
	case errors.Is(err, services.ErrMissingEmail):
		status, message = http.StatusBadRequest, "Email is required"
	}

	event := log.Warn()
	if status == http.StatusInternalServerError {
		event = log.Error()
	}
	event.Err(err).
		Str("request_id", middleware.GetReqID(r.Context())).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Int("status", status).
		Msg("Request failed")

	writeJSON(w, status, map[string]string{"message": message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

// decodeBody reads a JSON object of at most maxBodyBytes from the request body.
func decodeBody(w http.ResponseWriter, r *http.Request) (models.Document, error) {
	doc, err := models.DecodeDocument(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errBadBody, err)
	}
	return doc, nil
}

// pathParam returns a decoded URL parameter. chi matches against the escaped
// path whenever the request carried one, leaving escapes such as %40 in place.
func pathParam(r *http.Request, key string) (string, error) {
	value := chi.URLParam(r, key)
	if r.URL.RawPath == "" {
		return value, nil
	}
	unescaped, err := url.PathUnescape(value)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", errBadRequest, key, err)
	}
	return unescaped, nil
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
