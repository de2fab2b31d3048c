package fraud

import (
	"container/list"
	"context"
	"sync"
	"time"
)

type seenEntry struct {
	fingerprint string
	documentID  string
	expiresAt   time.Time
}

// InMemoryStore keeps fingerprints for a single process. At capacity the
// oldest fingerprint is evicted; with a fixed TTL that is also the one
// closest to expiry.
type InMemoryStore struct {
	mu         sync.Mutex
	entries    map[string]*list.Element
	order      *list.List
	ttl        time.Duration
	maxEntries int
	now        func() time.Time
}

func NewInMemoryStore(ttl time.Duration, maxEntries int, now func() time.Time) *InMemoryStore {
	if now == nil {
		now = time.Now
	}
	return &InMemoryStore{
		entries:    make(map[string]*list.Element),
		order:      list.New(),
		ttl:        ttl,
		maxEntries: maxEntries,
		now:        now,
	}
}

func (s *InMemoryStore) Remember(ctx context.Context, fingerprint, documentID string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.expireLocked(now)
	if el, ok := s.entries[fingerprint]; ok {
		return el.Value.(*seenEntry).documentID, nil
	}
	for s.maxEntries > 0 && len(s.entries) >= s.maxEntries {
		s.removeLocked(s.order.Front())
	}
	s.entries[fingerprint] = s.order.PushBack(&seenEntry{
		fingerprint: fingerprint,
		documentID:  documentID,
		expiresAt:   now.Add(s.ttl),
	})
	return documentID, nil
}

// Len reports the number of fingerprints currently held.
func (s *InMemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// expireLocked drops expired entries from the front of the insertion order.
func (s *InMemoryStore) expireLocked(now time.Time) {
	if s.ttl <= 0 {
		return
	}
	for el := s.order.Front(); el != nil; el = s.order.Front() {
		if now.Before(el.Value.(*seenEntry).expiresAt) {
			return
		}
		s.removeLocked(el)
	}
}

func (s *InMemoryStore) removeLocked(el *list.Element) {
	e := s.order.Remove(el).(*seenEntry)
	delete(s.entries, e.fingerprint)
}
