package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/isdelr/shelf-api/internal/auth"
	"github.com/isdelr/shelf-api/internal/database"
	"github.com/isdelr/shelf-api/internal/models"
	"github.com/isdelr/shelf-api/internal/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingStore wraps a Store and records how many calls reached it.
type countingStore struct {
	database.Store
	mu    sync.Mutex
	calls int
}

func (s *countingStore) hit() {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
}

func (s *countingStore) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *countingStore) FindByID(ctx context.Context, c database.Collection, id string) (models.Document, error) {
	s.hit()
	return s.Store.FindByID(ctx, c, id)
}

func (s *countingStore) Update(ctx context.Context, c database.Collection, id string, set models.Document) error {
	s.hit()
	return s.Store.Update(ctx, c, id, set)
}

func (s *countingStore) Delete(ctx context.Context, c database.Collection, id string) error {
	s.hit()
	return s.Store.Delete(ctx, c, id)
}

func (s *countingStore) Insert(ctx context.Context, c database.Collection, doc models.Document) (string, error) {
	s.hit()
	return s.Store.Insert(ctx, c, doc)
}

// failingStore fails every call.
type failingStore struct {
	database.Store
}

var errStoreDown = errors.New("store down")

func (failingStore) FindOne(context.Context, database.Collection, string, string) (models.Document, error) {
	return nil, errStoreDown
}

type recordingPublisher struct {
	mu       sync.Mutex
	messages []websocket.Message
	topics   []string
}

func (p *recordingPublisher) Publish(topic string, message []byte) {
	var msg websocket.Message
	if err := json.Unmarshal(message, &msg); err != nil {
		panic(err)
	}
	p.mu.Lock()
	p.messages = append(p.messages, msg)
	p.topics = append(p.topics, topic)
	p.mu.Unlock()
}

func newTokens(t *testing.T) *auth.TokenService {
	t.Helper()
	tokens, err := auth.NewTokenService("service-test-secret")
	require.NoError(t, err)
	return tokens
}

func TestUserService_SignupThenLogin(t *testing.T) {
	ctx := context.Background()
	store := database.NewMemoryStore()
	tokens := newTokens(t)
	svc := NewUserService(store, tokens)

	first, err := svc.Signup(ctx, models.Document{"email": "reader@example.com", "name": "Reader"})
	require.NoError(t, err)
	assert.True(t, first.Created)
	claims, err := tokens.Verify(first.Token)
	require.NoError(t, err)
	assert.Equal(t, "reader@example.com", claims.Email)

	second, err := svc.Signup(ctx, models.Document{"email": "reader@example.com", "name": "Ignored"})
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.Equal(t, first.UserID, second.UserID)
	_, err = tokens.Verify(second.Token)
	require.NoError(t, err)

	users, err := store.FindAll(ctx, database.Users)
	require.NoError(t, err)
	require.Len(t, users, 1, "a repeat signup must not insert")
	assert.Equal(t, "Reader", users[0].String("name"))
}

func TestUserService_SignupRequiresEmail(t *testing.T) {
	svc := NewUserService(database.NewMemoryStore(), newTokens(t))

	for _, doc := range []models.Document{{}, {"email": ""}, {"email": 42}} {
		_, err := svc.Signup(context.Background(), doc)
		assert.ErrorIs(t, err, ErrMissingEmail)
	}
}

func TestUserService_SignupStoreFailure(t *testing.T) {
	svc := NewUserService(failingStore{}, newTokens(t))

	_, err := svc.Signup(context.Background(), models.Document{"email": "reader@example.com"})
	assert.ErrorIs(t, err, errStoreDown)
}

func TestUserService_LookupsAndUpdate(t *testing.T) {
	ctx := context.Background()
	store := &countingStore{Store: database.NewMemoryStore()}
	svc := NewUserService(store, newTokens(t))

	res, err := svc.Signup(ctx, models.Document{"email": "reader@example.com"})
	require.NoError(t, err)

	byID, err := svc.GetUserByID(ctx, res.UserID)
	require.NoError(t, err)
	assert.Equal(t, "reader@example.com", byID.String(EmailField))

	byEmail, err := svc.GetUserByEmail(ctx, "reader@example.com")
	require.NoError(t, err)
	assert.Equal(t, res.UserID, byEmail.ID())

	require.NoError(t, svc.UpdateUser(ctx, res.UserID, models.Document{"name": "R", "_id": database.NewID()}))
	updated, err := svc.GetUserByID(ctx, res.UserID)
	require.NoError(t, err)
	assert.Equal(t, "R", updated.String("name"))
	assert.Equal(t, res.UserID, updated.ID())

	assert.ErrorIs(t, svc.UpdateUser(ctx, database.NewID(), models.Document{"name": "x"}), database.ErrNotFound)

	before := store.Calls()
	_, err = svc.GetUserByID(ctx, "not-an-id")
	assert.ErrorIs(t, err, database.ErrInvalidID)
	assert.ErrorIs(t, svc.UpdateUser(ctx, "not-an-id", models.Document{}), database.ErrInvalidID)
	assert.Equal(t, before, store.Calls(), "malformed identifiers must not reach the store")
}

func TestBookService_Lifecycle(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{}
	svc := NewBookService(database.NewMemoryStore(), pub, nil)

	id, err := svc.CreateBook(ctx, models.Document{"title": "A"}, "reader@example.com")
	require.NoError(t, err)

	book, err := svc.GetBookByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.Document{"title": "A", "_id": id}, book)

	require.NoError(t, svc.UpdateBook(ctx, id, models.Document{"title": "B"}, "reader@example.com"))
	book, err = svc.GetBookByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "B", book.String("title"))

	all, err := svc.GetAllBooks(ctx)
	require.NoError(t, err)
	categories, err := svc.GetCategories(ctx)
	require.NoError(t, err)
	assert.Equal(t, all, categories)

	require.NoError(t, svc.DeleteBook(ctx, id, "reader@example.com"))
	_, err = svc.GetBookByID(ctx, id)
	assert.ErrorIs(t, err, database.ErrNotFound)

	require.Len(t, pub.messages, 3)
	assert.Equal(t, []string{models.EventBookCreated, models.EventBookUpdated, models.EventBookDeleted},
		[]string{pub.messages[0].Action, pub.messages[1].Action, pub.messages[2].Action})
	for _, topic := range pub.topics {
		assert.Equal(t, websocket.TopicBooks, topic)
	}
	payload, ok := pub.messages[0].Payload.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, id, payload["bookId"])
	assert.Equal(t, "reader@example.com", payload["actor"])
}

func TestBookService_NoEventOnFailure(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{}
	store := &countingStore{Store: database.NewMemoryStore()}
	svc := NewBookService(store, pub, nil)

	missing := database.NewID()
	assert.ErrorIs(t, svc.UpdateBook(ctx, missing, models.Document{"title": "B"}, ""), database.ErrNotFound)
	assert.ErrorIs(t, svc.DeleteBook(ctx, missing, ""), database.ErrNotFound)

	calls := store.Calls()
	assert.ErrorIs(t, svc.UpdateBook(ctx, "bad", models.Document{}, ""), database.ErrInvalidID)
	assert.ErrorIs(t, svc.DeleteBook(ctx, "bad", ""), database.ErrInvalidID)
	_, err := svc.GetBookByID(ctx, "bad")
	assert.ErrorIs(t, err, database.ErrInvalidID)
	assert.Equal(t, calls, store.Calls())

	assert.Empty(t, pub.messages)
}

func TestBookService_NilPublisher(t *testing.T) {
	svc := NewBookService(database.NewMemoryStore(), nil, nil)
	_, err := svc.CreateBook(context.Background(), models.Document{"title": "A"}, "")
	require.NoError(t, err)
}

func TestBookService_RecordsEvents(t *testing.T) {
	ctx := context.Background()
	events := NewEventService(10)
	svc := NewBookService(database.NewMemoryStore(), nil, events)

	id, err := svc.CreateBook(ctx, models.Document{"title": "A"}, "reader@example.com")
	require.NoError(t, err)
	require.NoError(t, svc.UpdateBook(ctx, id, models.Document{"title": "B"}, "reader@example.com"))
	assert.ErrorIs(t, svc.DeleteBook(ctx, database.NewID(), ""), database.ErrNotFound)

	recent := events.GetRecentEvents(0)
	require.Len(t, recent, 2)
	assert.Equal(t, models.EventBookUpdated, recent[0].Type)
	assert.Equal(t, models.EventBookCreated, recent[1].Type)
	assert.Equal(t, id, recent[0].BookID)
	assert.Equal(t, "B", recent[0].Fields.String("title"))
}

func TestEventService_KeepsNewestWithinCapacity(t *testing.T) {
	events := NewEventService(3)
	assert.Empty(t, events.GetRecentEvents(10))

	for i := 0; i < 5; i++ {
		events.Record(models.Event{BookID: string(rune('a' + i))})
	}

	ids := func(es []models.Event) []string {
		out := make([]string, 0, len(es))
		for _, e := range es {
			out = append(out, e.BookID)
		}
		return out
	}
	assert.Equal(t, []string{"e", "d", "c"}, ids(events.GetRecentEvents(10)))
	assert.Equal(t, []string{"e", "d"}, ids(events.GetRecentEvents(2)))
	assert.Len(t, NewEventService(0).events, DefaultEventCapacity)
}
