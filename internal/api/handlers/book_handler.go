package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/isdelr/shelf-api/internal/auth"
	"github.com/isdelr/shelf-api/internal/database"
	"github.com/isdelr/shelf-api/internal/services"
)

// BookHandler handles HTTP requests related to books.
type BookHandler struct {
	service services.BookServiceProvider
}

// NewBookHandler creates a new BookHandler.
func NewBookHandler(service services.BookServiceProvider) *BookHandler {
	return &BookHandler{service: service}
}

// GetAll handles the request to get all books.
func (h *BookHandler) GetAll(w http.ResponseWriter, r *http.Request) error {
	books, err := h.service.GetAllBooks(r.Context())
	if err != nil {
		return failed(err, "fetching", "books")
	}
	writeJSON(w, http.StatusOK, books)
	return nil
}

// Get handles the request to get a single book by its ID.
func (h *BookHandler) Get(w http.ResponseWriter, r *http.Request) error {
	book, err := h.service.GetBookByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		return failed(err, "fetching", "book")
	}
	writeJSON(w, http.StatusOK, book)
	return nil
}

// Create handles the request to create a new book.
func (h *BookHandler) Create(w http.ResponseWriter, r *http.Request) error {
	book, err := decodeBody(w, r)
	if err != nil {
		return failed(err, "inserting", "book")
	}
	actor, _ := auth.EmailFromContext(r.Context())

	id, err := h.service.CreateBook(r.Context(), book, actor)
	if err != nil {
		return failed(err, "inserting", "book")
	}
	writeJSON(w, http.StatusCreated, map[string]string{
		"message": "Book inserted",
		"bookId":  id,
	})
	return nil
}

// Update handles the request to set fields on an existing book.
func (h *BookHandler) Update(w http.ResponseWriter, r *http.Request) error {
	id := chi.URLParam(r, "id")
	if _, err := database.ParseID(id); err != nil {
		return failed(err, "updating", "book")
	}
	fields, err := decodeBody(w, r)
	if err != nil {
		return failed(err, "updating", "book")
	}
	actor, _ := auth.EmailFromContext(r.Context())

	if err := h.service.UpdateBook(r.Context(), id, fields, actor); err != nil {
		return failed(err, "updating", "book")
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Book updated successfully"})
	return nil
}

// Delete handles the request to delete a book.
func (h *BookHandler) Delete(w http.ResponseWriter, r *http.Request) error {
	actor, _ := auth.EmailFromContext(r.Context())

	if err := h.service.DeleteBook(r.Context(), chi.URLParam(r, "id"), actor); err != nil {
		return failed(err, "deleting", "book")
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Book deleted successfully"})
	return nil
}

// Categories handles the categories listing, which currently returns every book.
func (h *BookHandler) Categories(w http.ResponseWriter, r *http.Request) error {
	categories, err := h.service.GetCategories(r.Context())
	if err != nil {
		return failed(err, "fetching", "categories")
	}
	writeJSON(w, http.StatusOK, categories)
	return nil
}
