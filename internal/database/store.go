package database

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/google/uuid"
	"github.com/isdelr/shelf-api/internal/models"
)

var (
	// ErrNotFound is returned when no document matches an identifier or filter.
	ErrNotFound = errors.New("document not found")
	// ErrInvalidID is returned for identifiers that are not in the store's encoding.
	ErrInvalidID = errors.New("invalid document identifier")
	// ErrInvalidField is returned for lookup field names the store refuses to query.
	ErrInvalidField = errors.New("invalid field name")
	// ErrUnknownCollection is returned for collections outside the fixed set.
	ErrUnknownCollection = errors.New("unknown collection")
)

// Collection names a document namespace.
type Collection string

const (
	Users Collection = "users"
	Books Collection = "books"
)

// Collections lists every namespace the store manages.
var Collections = []Collection{Users, Books}

func (c Collection) valid() bool {
	return c == Users || c == Books
}

// Store is a schemaless document store. Implementations must be safe for
// concurrent use; concurrent updates to the same document are last-write-wins.
type Store interface {
	// FindByID returns the document with the given identifier.
	FindByID(ctx context.Context, c Collection, id string) (models.Document, error)
	// FindOne returns the first document whose string field equals value.
	FindOne(ctx context.Context, c Collection, field, value string) (models.Document, error)
	// FindAll returns every document of the collection in insertion order.
	FindAll(ctx context.Context, c Collection) ([]models.Document, error)
	// Insert stores a new document and returns its assigned identifier.
	Insert(ctx context.Context, c Collection, doc models.Document) (string, error)
	// Update sets the given top-level fields on an existing document.
	Update(ctx context.Context, c Collection, id string, set models.Document) error
	// Delete removes a document.
	Delete(ctx context.Context, c Collection, id string) error
	// Ping checks that the store is reachable.
	Ping(ctx context.Context) error
	// Close releases the underlying connection.
	Close() error
}

// Maintainer is implemented by stores that have periodic housekeeping to run.
type Maintainer interface {
	Maintain(ctx context.Context) error
}

// NewID returns a fresh document identifier.
func NewID() string {
	return uuid.New().String()
}

// ParseID validates an identifier and returns its canonical form.
func ParseID(id string) (string, error) {
	// uuid.Parse also accepts braced and urn forms; only the canonical
	// 36-character form is a valid document identifier.
	if len(id) != 36 {
		return "", fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return parsed.String(), nil
}

var fieldPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func checkField(field string) error {
	if field == models.IDField || !fieldPattern.MatchString(field) {
		return fmt.Errorf("%w: %q", ErrInvalidField, field)
	}
	return nil
}

func checkCollection(c Collection) error {
	if !c.valid() {
		return fmt.Errorf("%w: %q", ErrUnknownCollection, string(c))
	}
	return nil
}
