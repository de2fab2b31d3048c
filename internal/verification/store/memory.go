package store

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"docverify/internal/verification/models"
	"docverify/pkg/platform/sentinel"
)

// InMemoryStore keeps trails in process. Used for local runs and tests.
type InMemoryStore struct {
	mu     sync.RWMutex
	trails map[string]*models.AuditTrail
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{trails: make(map[string]*models.AuditTrail)}
}

func (s *InMemoryStore) Append(_ context.Context, trail *models.AuditTrail) error {
	if err := checkSealed(trail); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.trails[trail.VerificationID]; ok {
		return fmt.Errorf("trail %s: %w", trail.VerificationID, sentinel.ErrConflict)
	}
	s.trails[trail.VerificationID] = trail
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, verificationID string) (*models.AuditTrail, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	trail, ok := s.trails[verificationID]
	if !ok {
		return nil, fmt.Errorf("trail %s: %w", verificationID, sentinel.ErrNotFound)
	}
	return trail, nil
}

// ListBySubmitter returns the trails initiated by submitterID, oldest first.
func (s *InMemoryStore) ListBySubmitter(_ context.Context, submitterID string) ([]*models.AuditTrail, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.AuditTrail
	for _, t := range s.trails {
		if t.InitiatedBy == submitterID {
			out = append(out, t)
		}
	}
	sortByStart(out)
	return out, nil
}

// ListFailedAt returns the ids of verifications whose named step failed,
// oldest first.
func (s *InMemoryStore) ListFailedAt(_ context.Context, step string) ([]string, error) {
	s.mu.RLock()
	var matched []*models.AuditTrail
	for _, t := range s.trails {
		if st, ok := t.Step(step); ok && st.Status == models.StepFailed {
			matched = append(matched, t)
		}
	}
	s.mu.RUnlock()

	sortByStart(matched)
	ids := make([]string, len(matched))
	for i, t := range matched {
		ids[i] = t.VerificationID
	}
	return ids, nil
}

func sortByStart(trails []*models.AuditTrail) {
	slices.SortFunc(trails, func(a, b *models.AuditTrail) int {
		return a.StartedAt.Compare(b.StartedAt)
	})
}
