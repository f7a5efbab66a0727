package services

import (
	"sync"

	"github.com/isdelr/shelf-api/internal/models"
)

// DefaultEventCapacity is how many book events the activity log keeps.
const DefaultEventCapacity = 100

// EventRecorder receives every book change after it was stored.
type EventRecorder interface {
	Record(event models.Event)
}

// EventServiceProvider defines the interface for event services.
type EventServiceProvider interface {
	EventRecorder
	GetRecentEvents(limit int) []models.Event
}

// EventService keeps the most recent book events in memory. Older events are
// overwritten once capacity is reached.
type EventService struct {
	mu     sync.Mutex
	events []models.Event
	next   int
	full   bool
}

// NewEventService creates a new EventService holding up to capacity events.
func NewEventService(capacity int) *EventService {
	if capacity <= 0 {
		capacity = DefaultEventCapacity
	}
	return &EventService{events: make([]models.Event, capacity)}
}

// Record appends an event to the log.
func (s *EventService) Record(event models.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.events[s.next] = event
	s.next = (s.next + 1) % len(s.events)
	if s.next == 0 {
		s.full = true
	}
}

// GetRecentEvents returns up to limit events, newest first.
func (s *EventService) GetRecentEvents(limit int) []models.Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	size := s.next
	if s.full {
		size = len(s.events)
	}
	if limit <= 0 || limit > size {
		limit = size
	}

	out := make([]models.Event, 0, limit)
	for i := 1; i <= limit; i++ {
		idx := (s.next - i + len(s.events)) % len(s.events)
		out = append(out, s.events[idx])
	}
	return out
}
