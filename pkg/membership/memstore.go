package membership

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

type memStore struct {
	mu     sync.RWMutex
	byUser map[uuid.UUID]*Record
}

// NewMemoryStore returns an in-memory Store suitable for tests and
// single-process deployments. Records are deep-copied on the way in and out
// so callers can never alias the store's internal state.
func NewMemoryStore() Store {
	return &memStore{byUser: make(map[uuid.UUID]*Record)}
}

func (s *memStore) ByUser(_ context.Context, userID uuid.UUID) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.byUser[userID]
	if !ok {
		return nil, ErrRecordNotFound
	}
	return rec.clone(), nil
}

func (s *memStore) ByProviderSubscription(_ context.Context, providerSubID string) (*Record, error) {
	if providerSubID == "" {
		return nil, ErrRecordNotFound
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, rec := range s.byUser {
		if rec.ProviderSubscriptionID == providerSubID {
			return rec.clone(), nil
		}
	}
	return nil, ErrRecordNotFound
}

func (s *memStore) ByProviderCustomer(_ context.Context, providerCustomerID string) (*Record, error) {
	if providerCustomerID == "" {
		return nil, ErrRecordNotFound
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, rec := range s.byUser {
		if rec.ProviderCustomerID == providerCustomerID {
			return rec.clone(), nil
		}
	}
	return nil, ErrRecordNotFound
}

func (s *memStore) Upsert(_ context.Context, rec *Record) error {
	if rec == nil || rec.UserID == uuid.Nil {
		return ErrMissingUserID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.byUser[rec.UserID] = rec.clone()
	return nil
}

func (s *memStore) List(_ context.Context) ([]*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Record, 0, len(s.byUser))
	for _, rec := range s.byUser {
		out = append(out, rec.clone())
	}
	return out, nil
}
