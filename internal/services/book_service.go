package services

import (
	"context"
	"time"

	"github.com/isdelr/shelf-api/internal/database"
	"github.com/isdelr/shelf-api/internal/models"
	"github.com/isdelr/shelf-api/internal/websocket"
)

// Publisher delivers encoded messages to live-feed subscribers of a topic.
type Publisher interface {
	Publish(topic string, message []byte)
}

// BookServiceProvider defines the interface for book services.
type BookServiceProvider interface {
	GetAllBooks(ctx context.Context) ([]models.Document, error)
	GetBookByID(ctx context.Context, id string) (models.Document, error)
	CreateBook(ctx context.Context, book models.Document, actor string) (string, error)
	UpdateBook(ctx context.Context, id string, fields models.Document, actor string) error
	DeleteBook(ctx context.Context, id string, actor string) error
	GetCategories(ctx context.Context) ([]models.Document, error)
}

// BookService provides business logic for book management.
type BookService struct {
	store     database.Store
	publisher Publisher
	events    EventRecorder
	now       func() time.Time
}

// NewBookService creates a new BookService. publisher and events may be nil.
func NewBookService(store database.Store, publisher Publisher, events EventRecorder) *BookService {
	return &BookService{store: store, publisher: publisher, events: events, now: time.Now}
}

// GetAllBooks retrieves every book in insertion order.
func (s *BookService) GetAllBooks(ctx context.Context) ([]models.Document, error) {
	return s.store.FindAll(ctx, database.Books)
}

// GetBookByID retrieves a single book by its ID.
func (s *BookService) GetBookByID(ctx context.Context, id string) (models.Document, error) {
	id, err := database.ParseID(id)
	if err != nil {
		return nil, err
	}
	return s.store.FindByID(ctx, database.Books, id)
}

// CreateBook inserts a book and returns its identifier.
func (s *BookService) CreateBook(ctx context.Context, book models.Document, actor string) (string, error) {
	book = book.WithoutID()
	id, err := s.store.Insert(ctx, database.Books, book)
	if err != nil {
		return "", err
	}
	s.notify(models.EventBookCreated, id, book, actor)
	return id, nil
}

// UpdateBook sets the given fields on an existing book.
func (s *BookService) UpdateBook(ctx context.Context, id string, fields models.Document, actor string) error {
	id, err := database.ParseID(id)
	if err != nil {
		return err
	}
	fields = fields.WithoutID()
	if err := s.store.Update(ctx, database.Books, id, fields); err != nil {
		return err
	}
	s.notify(models.EventBookUpdated, id, fields, actor)
	return nil
}

// DeleteBook removes a book.
func (s *BookService) DeleteBook(ctx context.Context, id string, actor string) error {
	id, err := database.ParseID(id)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, database.Books, id); err != nil {
		return err
	}
	s.notify(models.EventBookDeleted, id, nil, actor)
	return nil
}

// GetCategories returns the whole book collection.
//
// Category grouping was never implemented; clients rely on receiving every
// book here, so the route stays an alias of GetAllBooks until a category
// field is agreed on.
func (s *BookService) GetCategories(ctx context.Context) ([]models.Document, error) {
	return s.GetAllBooks(ctx)
}

func (s *BookService) notify(eventType, id string, fields models.Document, actor string) {
	event := models.Event{
		Type:      eventType,
		BookID:    id,
		Fields:    fields,
		Actor:     actor,
		CreatedAt: s.now().UTC(),
	}
	if s.events != nil {
		s.events.Record(event)
	}
	if s.publisher != nil {
		s.publisher.Publish(websocket.TopicBooks, websocket.NewMessage(eventType, event))
	}
}
