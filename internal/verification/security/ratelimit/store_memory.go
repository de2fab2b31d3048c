package ratelimit

import (
	"context"
	"errors"
	"sync"
	"time"
)

// InMemoryBackend keeps fixed-window counters in process. It is not shared
// between replicas; use RedisBackend for distributed deployments.
type InMemoryBackend struct {
	mu      sync.Mutex
	now     func() time.Time
	buckets map[string]*bucket
	maxKeys int
}

type bucket struct {
	count     int
	windowEnd time.Time
}

// NewInMemoryBackend creates a backend bounded to maxKeys live buckets.
func NewInMemoryBackend(now func() time.Time, maxKeys int) *InMemoryBackend {
	if now == nil {
		now = time.Now
	}
	if maxKeys <= 0 {
		maxKeys = 10000
	}
	return &InMemoryBackend{
		now:     now,
		buckets: make(map[string]*bucket),
		maxKeys: maxKeys,
	}
}

func (m *InMemoryBackend) Allow(_ context.Context, key string, limit int, window time.Duration) (Decision, error) {
	if limit <= 0 {
		return Decision{Allowed: true, Limit: limit, Remaining: limit}, nil
	}
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.buckets[key]
	if !ok || !now.Before(b.windowEnd) {
		if !ok && len(m.buckets) >= m.maxKeys {
			m.gc(now)
			if len(m.buckets) >= m.maxKeys {
				return Decision{}, errors.New("rate limiter capacity exceeded")
			}
		}
		b = &bucket{windowEnd: now.Add(window)}
		m.buckets[key] = b
	}

	if b.count >= limit {
		return Decision{Allowed: false, Limit: limit, ResetAt: b.windowEnd}, nil
	}
	b.count++
	return Decision{
		Allowed:   true,
		Limit:     limit,
		Remaining: limit - b.count,
		ResetAt:   b.windowEnd,
	}, nil
}

func (m *InMemoryBackend) gc(now time.Time) {
	for key, b := range m.buckets {
		if !now.Before(b.windowEnd) {
			delete(m.buckets, key)
		}
	}
}
