package offers

import (
	"context"
	"sync"
	"time"

	"parkslot/pkg/model"
)

type InMemoryStore struct {
	mu     sync.Mutex
	offers map[string]model.Offer
	now    func() time.Time
}

func NewInMemoryStore(now func() time.Time) *InMemoryStore {
	if now == nil {
		now = time.Now
	}
	return &InMemoryStore{
		offers: make(map[string]model.Offer),
		now:    now,
	}
}

func (s *InMemoryStore) Put(_ context.Context, userID string, offer *model.Offer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.offers[key(userID, offer.Token)] = *offer
	return nil
}

func (s *InMemoryStore) Take(_ context.Context, userID, token string) (*model.Offer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := key(userID, token)
	offer, ok := s.offers[k]
	if !ok {
		return nil, ErrNotFound
	}
	delete(s.offers, k)

	if offer.Expired(s.now()) {
		return nil, ErrNotFound
	}
	return &offer, nil
}

func (s *InMemoryStore) Delete(_ context.Context, userID, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := key(userID, token)
	offer, ok := s.offers[k]
	if !ok {
		return ErrNotFound
	}
	delete(s.offers, k)

	if offer.Expired(s.now()) {
		return ErrNotFound
	}
	return nil
}

func (s *InMemoryStore) Sweep(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for k, offer := range s.offers {
		if offer.Expired(now) {
			delete(s.offers, k)
			removed++
		}
	}
	return removed, nil
}

func (s *InMemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.offers)
}
