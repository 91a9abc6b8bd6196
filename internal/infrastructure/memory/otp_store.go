// Package memory holds process-local stores used in development, tests and
// single-instance deployments.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ambulance-api/internal/domain"
)

// OTPStore keeps challenge records in a map keyed by OTPKey.String().
type OTPStore struct {
	mu      sync.RWMutex
	records map[string]domain.OTPRecord
}

func NewOTPStore() *OTPStore {
	return &OTPStore{records: make(map[string]domain.OTPRecord)}
}

func (s *OTPStore) Put(_ context.Context, rec *domain.OTPRecord) error {
	s.mu.Lock()
	s.records[rec.Key().String()] = *rec
	s.mu.Unlock()
	return nil
}

// Get returns a copy of the stored record.
func (s *OTPStore) Get(_ context.Context, key domain.OTPKey) (*domain.OTPRecord, error) {
	s.mu.RLock()
	rec, ok := s.records[key.String()]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("otp %s: %w", key, domain.ErrNotFound)
	}
	return &rec, nil
}

func (s *OTPStore) Delete(_ context.Context, key domain.OTPKey) error {
	s.mu.Lock()
	delete(s.records, key.String())
	s.mu.Unlock()
	return nil
}

func (s *OTPStore) ListExpired(_ context.Context, now time.Time) ([]domain.OTPKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var keys []domain.OTPKey
	for _, rec := range s.records {
		if rec.Expired(now) {
			keys = append(keys, rec.Key())
		}
	}
	return keys, nil
}

// Len returns the number of stored records.
func (s *OTPStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
