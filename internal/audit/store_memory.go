package audit

import (
	"context"
	"sync"

	id "streetwatch/pkg/domain"
)

// InMemoryStore keeps the trail in process memory, append-only.
type InMemoryStore struct {
	mu     sync.Mutex
	events []Event
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Append(_ context.Context, e Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return nil
}

// ListByIncident returns the incident's events in append order.
func (s *InMemoryStore) ListByIncident(_ context.Context, incidentID id.IncidentID) ([]Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Event
	for _, e := range s.events {
		if e.IncidentID == incidentID {
			out = append(out, e)
		}
	}
	return out, nil
}
