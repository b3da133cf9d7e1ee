package location

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	id "streetwatch/pkg/domain"
	"streetwatch/pkg/platform/sentinel"
)

type pairKey struct {
	region    string
	subRegion string
}

// InMemoryStore keeps locations in process memory, keyed both by ID and by
// pair so FindOrCreate stays O(1).
type InMemoryStore struct {
	mu     sync.Mutex
	byID   map[id.LocationID]Location
	byPair map[pairKey]id.LocationID
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		byID:   make(map[id.LocationID]Location),
		byPair: make(map[pairKey]id.LocationID),
	}
}

func (s *InMemoryStore) FindOrCreate(_ context.Context, loc *Location) (*Location, error) {
	key := pairKey{region: loc.Region, subRegion: loc.SubRegion}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existingID, ok := s.byPair[key]; ok {
		existing := s.byID[existingID]
		return &existing, nil
	}

	created := *loc
	created.ID = id.LocationID(uuid.New())
	s.byID[created.ID] = created
	s.byPair[key] = created.ID
	return &created, nil
}

func (s *InMemoryStore) FindByID(_ context.Context, locationID id.LocationID) (*Location, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	loc, ok := s.byID[locationID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &loc, nil
}

func (s *InMemoryStore) Regions(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]struct{})
	for key := range s.byPair {
		seen[key.region] = struct{}{}
	}
	regions := make([]string, 0, len(seen))
	for region := range seen {
		regions = append(regions, region)
	}
	sort.Strings(regions)
	return regions, nil
}

func (s *InMemoryStore) SubRegions(_ context.Context, region string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]struct{})
	for key := range s.byPair {
		if key.region == region {
			seen[key.subRegion] = struct{}{}
		}
	}
	subRegions := make([]string, 0, len(seen))
	for sub := range seen {
		subRegions = append(subRegions, sub)
	}
	sort.Strings(subRegions)
	return subRegions, nil
}
