package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ambulance-api/internal/domain"
)

// UserStore is a map-backed account store with the same lookups as the
// DynamoDB user repo. Email lookups are case-insensitive.
type UserStore struct {
	mu    sync.RWMutex
	users map[string]domain.User
}

func NewUserStore() *UserStore {
	return &UserStore{users: make(map[string]domain.User)}
}

func (s *UserStore) Put(_ context.Context, u *domain.User) error {
	s.mu.Lock()
	s.users[u.UserID] = *u
	s.mu.Unlock()
	return nil
}

func (s *UserStore) Get(_ context.Context, userID string) (*domain.User, error) {
	s.mu.RLock()
	u, ok := s.users[userID]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("user %s: %w", userID, domain.ErrNotFound)
	}
	return &u, nil
}

func (s *UserStore) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	return s.find(func(u *domain.User) bool { return u.Username == username })
}

func (s *UserStore) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	return s.find(func(u *domain.User) bool {
		return u.Email != "" && strings.EqualFold(u.Email, email)
	})
}

func (s *UserStore) GetByPhone(_ context.Context, phone string) (*domain.User, error) {
	return s.find(func(u *domain.User) bool { return u.Phone != nil && *u.Phone == phone })
}

// Update applies field updates keyed by DynamoDB attribute name.
func (s *UserStore) Update(_ context.Context, userID string, updates map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return fmt.Errorf("user %s: %w", userID, domain.ErrNotFound)
	}
	for field, v := range updates {
		switch field {
		case "verified":
			b, _ := v.(bool)
			u.Verified = b
		case "verified_at":
			if t, ok := v.(time.Time); ok {
				u.VerifiedAt = &t
			}
		case "password_hash":
			u.PasswordHash, _ = v.(string)
		case "phone":
			if p, ok := v.(string); ok {
				u.Phone = &p
			}
		case "role":
			u.Role, _ = v.(string)
		default:
			return fmt.Errorf("unsupported field %q: %w", field, domain.ErrBadRequest)
		}
	}
	u.UpdatedAt = time.Now().UTC()
	s.users[userID] = u
	return nil
}

// List returns all users ordered by id.
func (s *UserStore) List(_ context.Context) ([]domain.User, error) {
	s.mu.RLock()
	out := make([]domain.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func (s *UserStore) find(match func(*domain.User) bool) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if match(&u) {
			found := u
			return &found, nil
		}
	}
	return nil, fmt.Errorf("user: %w", domain.ErrNotFound)
}
