package user

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"streetwatch/internal/identity/models"
	id "streetwatch/pkg/domain"
	"streetwatch/pkg/platform/sentinel"
)

// InMemoryUserStore keeps users in process memory. Used in tests and when no
// DATABASE_URL is configured.
type InMemoryUserStore struct {
	mu      sync.RWMutex
	byID    map[id.UserID]models.User
	byEmail map[string]id.UserID
}

func NewInMemory() *InMemoryUserStore {
	return &InMemoryUserStore{
		byID:    make(map[id.UserID]models.User),
		byEmail: make(map[string]id.UserID),
	}
}

// Create persists a new user, assigning an ID when the caller left it zero
// and failing with sentinel.ErrConflict when the email is already taken.
// Email matching is exact and case-sensitive.
func (s *InMemoryUserStore) Create(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.byEmail[u.Email]; taken {
		return sentinel.ErrConflict
	}
	if u.ID.IsZero() {
		u.ID = id.UserID(uuid.New())
	}
	s.byID[u.ID] = *u
	s.byEmail[u.Email] = u.ID
	return nil
}

// Update overwrites an existing user. A changed email that collides with a
// different user fails with sentinel.ErrConflict.
func (s *InMemoryUserStore) Update(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.byID[u.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if other, taken := s.byEmail[u.Email]; taken && other != u.ID {
		return sentinel.ErrConflict
	}
	if prev.Email != u.Email {
		delete(s.byEmail, prev.Email)
	}
	s.byID[u.ID] = *u
	s.byEmail[u.Email] = u.ID
	return nil
}

func (s *InMemoryUserStore) Delete(_ context.Context, userID id.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byID[userID]
	if !ok {
		return sentinel.ErrNotFound
	}
	delete(s.byEmail, u.Email)
	delete(s.byID, userID)
	return nil
}

func (s *InMemoryUserStore) FindByID(_ context.Context, userID id.UserID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.byID[userID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &u, nil
}

func (s *InMemoryUserStore) FindByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	userID, ok := s.byEmail[email]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	u := s.byID[userID]
	return &u, nil
}

func (s *InMemoryUserStore) FindByVerificationCode(_ context.Context, code string) (*models.User, error) {
	return s.findBy(func(u *models.User) bool { return code != "" && u.VerificationCode == code })
}

func (s *InMemoryUserStore) FindByResetToken(_ context.Context, token string) (*models.User, error) {
	return s.findBy(func(u *models.User) bool { return token != "" && u.ResetToken == token })
}

func (s *InMemoryUserStore) ListByRole(_ context.Context, role models.Role) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.User
	for _, u := range s.byID {
		if u.Role == role {
			out = append(out, u)
		}
	}
	return out, nil
}

func (s *InMemoryUserStore) findBy(match func(*models.User) bool) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.byID {
		if match(&u) {
			return &u, nil
		}
	}
	return nil, sentinel.ErrNotFound
}
