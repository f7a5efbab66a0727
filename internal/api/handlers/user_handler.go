package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/isdelr/shelf-api/internal/database"
	"github.com/isdelr/shelf-api/internal/services"
	"github.com/rs/zerolog/log"
)

// UserHandler handles HTTP requests for user management.
type UserHandler struct {
	service services.UserServiceProvider
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(service services.UserServiceProvider) *UserHandler {
	return &UserHandler{service: service}
}

// Signup creates a user for a new email, or logs in an existing one.
// Both paths return a fresh token.
func (h *UserHandler) Signup(w http.ResponseWriter, r *http.Request) error {
	user, err := decodeBody(w, r)
	if err != nil {
		return failed(err, "inserting", "user")
	}

	res, err := h.service.Signup(r.Context(), user)
	if err != nil {
		return failed(err, "inserting", "user")
	}

	if !res.Created {
		log.Debug().Str("user_id", res.UserID).Msg("Existing user logged in")
		writeJSON(w, http.StatusOK, map[string]string{
			"status":  "success",
			"message": "Login success",
			"token":   res.Token,
		})
		return nil
	}
	writeJSON(w, http.StatusCreated, map[string]string{"token": res.Token})
	return nil
}

// Get handles retrieving a user by their ID.
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) error {
	user, err := h.service.GetUserByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		return failed(err, "fetching", "user")
	}
	writeJSON(w, http.StatusOK, user)
	return nil
}

// GetByEmail handles retrieving a user by their email.
func (h *UserHandler) GetByEmail(w http.ResponseWriter, r *http.Request) error {
	email, err := pathParam(r, "authInfo")
	if err != nil {
		return failed(err, "fetching", "user")
	}

	user, err := h.service.GetUserByEmail(r.Context(), email)
	if err != nil {
		return failed(err, "fetching", "user")
	}
	writeJSON(w, http.StatusOK, user)
	return nil
}

// Update handles updating a user's profile fields.
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) error {
	id := chi.URLParam(r, "id")
	if _, err := database.ParseID(id); err != nil {
		return failed(err, "updating", "user")
	}
	fields, err := decodeBody(w, r)
	if err != nil {
		return failed(err, "updating", "user")
	}

	if err := h.service.UpdateUser(r.Context(), id, fields); err != nil {
		return failed(err, "updating", "user")
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "user updated successfully"})
	return nil
}
