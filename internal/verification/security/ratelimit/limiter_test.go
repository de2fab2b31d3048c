package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

func TestLimiter(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Date(2026, 1, 2, 3, 0, 0, 0, time.UTC)}

	newLimiter := func() *Limiter {
		return New(NewInMemoryBackend(clock.Now, 0), Config{SubmitterLimit: 2, AddressLimit: 3, Window: time.Minute})
	}

	t.Run("allows uploads within the submitter budget", func(t *testing.T) {
		l := newLimiter()
		for range 2 {
			dec, err := l.Check(ctx, "buyer-1", "203.0.113.1")
			require.NoError(t, err)
			assert.False(t, dec.Exceeded)
		}
	})

	t.Run("rejects the submitter once the budget is spent", func(t *testing.T) {
		l := newLimiter()
		for range 2 {
			_, err := l.Check(ctx, "buyer-2", "203.0.113.2")
			require.NoError(t, err)
		}
		dec, err := l.Check(ctx, "buyer-2", "203.0.113.2")
		require.NoError(t, err)
		assert.True(t, dec.Exceeded)
		assert.Contains(t, dec.Detail, "submitter exceeded 2 uploads")
	})

	t.Run("meters the client address across submitters", func(t *testing.T) {
		l := newLimiter()
		for _, submitter := range []string{"a", "b", "c"} {
			dec, err := l.Check(ctx, submitter, "198.51.100.9")
			require.NoError(t, err)
			assert.False(t, dec.Exceeded)
		}
		dec, err := l.Check(ctx, "d", "198.51.100.9")
		require.NoError(t, err)
		assert.True(t, dec.Exceeded)
		assert.Contains(t, dec.Detail, "client address")
	})

	t.Run("window expiry resets the counter", func(t *testing.T) {
		l := newLimiter()
		for range 3 {
			_, _ = l.Check(ctx, "buyer-3", "")
		}
		clock.now = clock.now.Add(2 * time.Minute)
		dec, err := l.Check(ctx, "buyer-3", "")
		require.NoError(t, err)
		assert.False(t, dec.Exceeded)
	})
}

func TestInMemoryBackendCapacity(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 0, 0, 0, time.UTC)
	backend := NewInMemoryBackend(func() time.Time { return now }, 1)

	_, err := backend.Allow(context.Background(), "k1", 5, time.Minute)
	require.NoError(t, err)

	_, err = backend.Allow(context.Background(), "k2", 5, time.Minute)
	assert.ErrorContains(t, err, "capacity exceeded")
}
