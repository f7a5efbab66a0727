package database

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/isdelr/shelf-api/internal/models"
)

type memCollection struct {
	order []string
	docs  map[string][]byte
}

// MemoryStore keeps documents in process memory. Documents are held as
// encoded JSON so callers never share maps with the store.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[Collection]*memCollection
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{collections: make(map[Collection]*memCollection)}
	for _, c := range Collections {
		s.collections[c] = &memCollection{docs: make(map[string][]byte)}
	}
	return s
}

func (s *MemoryStore) FindByID(_ context.Context, c Collection, id string) (models.Document, error) {
	if err := checkCollection(c); err != nil {
		return nil, err
	}
	id, err := ParseID(id)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	raw, ok := s.collections[c].docs[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return decodeStored(id, raw)
}

func (s *MemoryStore) FindOne(_ context.Context, c Collection, field, value string) (models.Document, error) {
	if err := checkCollection(c); err != nil {
		return nil, err
	}
	if err := checkField(field); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	coll := s.collections[c]
	for _, id := range coll.order {
		doc, err := decodeStored(id, coll.docs[id])
		if err != nil {
			return nil, err
		}
		if v, ok := doc[field].(string); ok && v == value {
			return doc, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) FindAll(_ context.Context, c Collection) ([]models.Document, error) {
	if err := checkCollection(c); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	coll := s.collections[c]
	docs := make([]models.Document, 0, len(coll.order))
	for _, id := range coll.order {
		doc, err := decodeStored(id, coll.docs[id])
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func (s *MemoryStore) Insert(_ context.Context, c Collection, doc models.Document) (string, error) {
	if err := checkCollection(c); err != nil {
		return "", err
	}
	raw, err := json.Marshal(doc.WithoutID())
	if err != nil {
		return "", err
	}

	id := NewID()
	s.mu.Lock()
	coll := s.collections[c]
	coll.docs[id] = raw
	coll.order = append(coll.order, id)
	s.mu.Unlock()
	return id, nil
}

func (s *MemoryStore) Update(_ context.Context, c Collection, id string, set models.Document) error {
	if err := checkCollection(c); err != nil {
		return err
	}
	id, err := ParseID(id)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	coll := s.collections[c]
	raw, ok := coll.docs[id]
	if !ok {
		return ErrNotFound
	}
	merged, err := mergeFields(raw, set)
	if err != nil {
		return err
	}
	coll.docs[id] = merged
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, c Collection, id string) error {
	if err := checkCollection(c); err != nil {
		return err
	}
	id, err := ParseID(id)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	coll := s.collections[c]
	if _, ok := coll.docs[id]; !ok {
		return ErrNotFound
	}
	delete(coll.docs, id)
	for i, existing := range coll.order {
		if existing == id {
			coll.order = append(coll.order[:i], coll.order[i+1:]...)
			break
		}
	}
	return nil
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }

// decodeStored turns a stored body back into a document carrying its identifier.
func decodeStored(id string, raw []byte) (models.Document, error) {
	doc, err := models.UnmarshalDocument(raw)
	if err != nil {
		return nil, err
	}
	doc[models.IDField] = id
	return doc, nil
}

// mergeFields applies a top-level field set to a stored body. Nested objects
// in set replace the stored value rather than being merged into it.
func mergeFields(raw []byte, set models.Document) ([]byte, error) {
	doc, err := models.UnmarshalDocument(raw)
	if err != nil {
		return nil, err
	}
	for k, v := range set.WithoutID() {
		doc[k] = v
	}
	return json.Marshal(doc)
}
