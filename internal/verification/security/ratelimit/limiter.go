// Package ratelimit meters uploads per submitter and client address using a
// fixed window counter, in memory or in Redis.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"docverify/internal/verification/security"
)

// Decision is the raw counter verdict of a backend.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// Backend counts hits for a key within a window.
type Backend interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (Decision, error)
}

// Limiter adapts a Backend to security.RateLimiter. The submitter and the
// client address are metered independently; either one exceeding its budget
// rejects the upload.
type Limiter struct {
	backend        Backend
	submitterLimit int
	addressLimit   int
	window         time.Duration
}

// Config sets per-window budgets.
type Config struct {
	SubmitterLimit int
	AddressLimit   int
	Window         time.Duration
}

// DefaultConfig allows 20 uploads per submitter and 60 per address per hour.
func DefaultConfig() Config {
	return Config{SubmitterLimit: 20, AddressLimit: 60, Window: time.Hour}
}

func New(backend Backend, cfg Config) *Limiter {
	def := DefaultConfig()
	if cfg.SubmitterLimit <= 0 {
		cfg.SubmitterLimit = def.SubmitterLimit
	}
	if cfg.AddressLimit <= 0 {
		cfg.AddressLimit = def.AddressLimit
	}
	if cfg.Window <= 0 {
		cfg.Window = def.Window
	}
	return &Limiter{
		backend:        backend,
		submitterLimit: cfg.SubmitterLimit,
		addressLimit:   cfg.AddressLimit,
		window:         cfg.Window,
	}
}

var _ security.RateLimiter = (*Limiter)(nil)

func (l *Limiter) Check(ctx context.Context, submitterID, clientAddress string) (security.RateDecision, error) {
	dec, err := l.backend.Allow(ctx, submitterKey(submitterID), l.submitterLimit, l.window)
	if err != nil {
		return security.RateDecision{}, fmt.Errorf("submitter rate limit: %w", err)
	}
	if !dec.Allowed {
		return security.RateDecision{
			Exceeded: true,
			Detail:   fmt.Sprintf("submitter exceeded %d uploads per %s, resets at %s", dec.Limit, l.window, dec.ResetAt.UTC().Format(time.RFC3339)),
		}, nil
	}
	if clientAddress != "" {
		dec, err = l.backend.Allow(ctx, addressKey(clientAddress), l.addressLimit, l.window)
		if err != nil {
			return security.RateDecision{}, fmt.Errorf("address rate limit: %w", err)
		}
		if !dec.Allowed {
			return security.RateDecision{
				Exceeded: true,
				Detail:   fmt.Sprintf("client address exceeded %d uploads per %s", dec.Limit, l.window),
			}, nil
		}
	}
	return security.RateDecision{Detail: fmt.Sprintf("%d uploads remaining", dec.Remaining)}, nil
}

func submitterKey(id string) string { return "docverify:rl:submitter:" + id }
func addressKey(addr string) string { return "docverify:rl:addr:" + addr }
