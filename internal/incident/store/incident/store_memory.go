// Package incident provides the incident persistence layer: an in-memory
// store for tests and small deployments, and a PostgreSQL store for real
// ones. Both expose the same atomic Execute callback and a single
// scope+filter composition shared by list, count and stats.
package incident

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"streetwatch/internal/incident/models"
	"streetwatch/internal/location"
	id "streetwatch/pkg/domain"
	"streetwatch/pkg/platform/sentinel"
)

// LocationResolver is the slice of the location store the filter path
// needs to match region names against an incident's location id.
type LocationResolver interface {
	FindByID(ctx context.Context, locationID id.LocationID) (*location.Location, error)
}

// InMemoryStore keeps incidents in process memory. The store mutex is the
// synchronization point: Execute runs its whole read-validate-mutate cycle
// under it, so two concurrent transitions on one incident serialize.
type InMemoryStore struct {
	mu        sync.Mutex
	incidents map[id.IncidentID]models.Incident
	locations LocationResolver
}

func NewInMemory(locations LocationResolver) *InMemoryStore {
	return &InMemoryStore{
		incidents: make(map[id.IncidentID]models.Incident),
		locations: locations,
	}
}

func (s *InMemoryStore) Create(_ context.Context, inc *models.Incident) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if inc.ID.IsZero() {
		inc.ID = id.IncidentID(uuid.New())
	}
	if _, exists := s.incidents[inc.ID]; exists {
		return sentinel.ErrConflict
	}
	s.incidents[inc.ID] = clone(inc)
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, incidentID id.IncidentID) (*models.Incident, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.find(incidentID)
}

// Execute runs fn against the current state of one incident and persists
// the mutation atomically. fn returning an error leaves the incident
// untouched.
func (s *InMemoryStore) Execute(_ context.Context, incidentID id.IncidentID, fn func(inc *models.Incident) error) (*models.Incident, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.find(incidentID)
	if err != nil {
		return nil, err
	}
	if err := fn(current); err != nil {
		return nil, err
	}
	s.incidents[current.ID] = clone(current)
	return current, nil
}

func (s *InMemoryStore) Delete(_ context.Context, incidentID id.IncidentID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.incidents[incidentID]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.incidents, incidentID)
	return nil
}

// List returns one page of the scope+filter composition.
func (s *InMemoryStore) List(ctx context.Context, scope models.Scope, filters models.Filters, page models.PageRequest) (*models.Page, error) {
	matched, err := s.matching(ctx, scope, filters)
	if err != nil {
		return nil, err
	}
	page = page.Normalize()
	sortIncidents(matched, page.SortBy, page.Dir)

	total := int64(len(matched))
	start := page.Page * page.PageSize
	if start > len(matched) {
		start = len(matched)
	}
	end := start + page.PageSize
	if end > len(matched) {
		end = len(matched)
	}

	totalPages := int(total) / page.PageSize
	if int(total)%page.PageSize != 0 || total == 0 {
		totalPages++
	}

	return &models.Page{
		Items:      matched[start:end],
		Page:       page.Page,
		PageSize:   page.PageSize,
		TotalItems: total,
		TotalPages: totalPages,
	}, nil
}

// Count returns the total size of the scope+filter composition.
func (s *InMemoryStore) Count(ctx context.Context, scope models.Scope, filters models.Filters) (int64, error) {
	matched, err := s.matching(ctx, scope, filters)
	if err != nil {
		return 0, err
	}
	return int64(len(matched)), nil
}

// Stats derives the aggregate counters from the same composition List
// reads, so the numbers always agree with the paginated result.
func (s *InMemoryStore) Stats(ctx context.Context, scope models.Scope, filters models.Filters) (*models.Stats, error) {
	matched, err := s.matching(ctx, scope, filters)
	if err != nil {
		return nil, err
	}

	stats := models.NewStats()
	for _, inc := range matched {
		stats.Total++
		stats.PerStatus[inc.Status]++
		stats.PerPriority[inc.Priority]++
		if !inc.Assigned() {
			stats.Unassigned++
		}
	}
	return stats, nil
}

func (s *InMemoryStore) find(incidentID id.IncidentID) (*models.Incident, error) {
	inc, ok := s.incidents[incidentID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := clone(&inc)
	return &out, nil
}

func (s *InMemoryStore) matching(ctx context.Context, scope models.Scope, filters models.Filters) ([]*models.Incident, error) {
	s.mu.Lock()
	all := make([]models.Incident, 0, len(s.incidents))
	for _, inc := range s.incidents {
		all = append(all, clone(&inc))
	}
	s.mu.Unlock()

	var matched []*models.Incident
	for i := range all {
		inc := &all[i]
		if !scope.Contains(inc) {
			continue
		}
		ok, err := s.matchesFilters(ctx, inc, filters)
		if err != nil {
			return nil, err
		}
		if ok {
			matched = append(matched, inc)
		}
	}
	return matched, nil
}

func (s *InMemoryStore) matchesFilters(ctx context.Context, inc *models.Incident, f models.Filters) (bool, error) {
	if f.Status != nil && inc.Status != *f.Status {
		return false, nil
	}
	if f.Category != nil && inc.Category != *f.Category {
		return false, nil
	}
	if !f.AgentID.IsZero() && !inc.AssignedTo(f.AgentID) {
		return false, nil
	}
	if f.From != nil && inc.CreatedAt.Before(*f.From) {
		return false, nil
	}
	if f.To != nil && inc.CreatedAt.After(*f.To) {
		return false, nil
	}
	if f.Region != "" || f.SubRegion != "" {
		if inc.LocationID.IsZero() {
			return false, nil
		}
		loc, err := s.locations.FindByID(ctx, inc.LocationID)
		if err != nil {
			return false, nil
		}
		if f.Region != "" && loc.Region != f.Region {
			return false, nil
		}
		if f.SubRegion != "" && loc.SubRegion != f.SubRegion {
			return false, nil
		}
	}
	return true, nil
}

func sortIncidents(incidents []*models.Incident, field models.SortField, dir models.SortDir) {
	priorityRank := map[models.Priority]int{
		models.PriorityLow:      0,
		models.PriorityMedium:   1,
		models.PriorityHigh:     2,
		models.PriorityCritical: 3,
	}
	statusRank := map[models.Status]int{
		models.StatusReported:     0,
		models.StatusAcknowledged: 1,
		models.StatusInProgress:   2,
		models.StatusResolved:     3,
		models.StatusClosed:       4,
	}

	less := func(a, b *models.Incident) bool {
		switch field {
		case models.SortByPriority:
			if priorityRank[a.Priority] != priorityRank[b.Priority] {
				return priorityRank[a.Priority] < priorityRank[b.Priority]
			}
		case models.SortByStatus:
			if statusRank[a.Status] != statusRank[b.Status] {
				return statusRank[a.Status] < statusRank[b.Status]
			}
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID.String() < b.ID.String()
	}

	sort.SliceStable(incidents, func(i, j int) bool {
		if dir == models.SortDesc {
			return less(incidents[j], incidents[i])
		}
		return less(incidents[i], incidents[j])
	})
}

func clone(inc *models.Incident) models.Incident {
	out := *inc
	if inc.Coordinates != nil {
		coords := *inc.Coordinates
		out.Coordinates = &coords
	}
	if inc.ResolvedAt != nil {
		ts := *inc.ResolvedAt
		out.ResolvedAt = &ts
	}
	if inc.PhotoRefs != nil {
		out.PhotoRefs = append([]string(nil), inc.PhotoRefs...)
	}
	return out
}
