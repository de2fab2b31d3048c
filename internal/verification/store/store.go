// Package store persists sealed audit trails. Every store is append-only:
// a trail is written once and never updated.
package store

import (
	"context"
	"errors"
	"log/slog"

	"docverify/internal/verification/models"
)

// ErrUnsealed is returned when a caller tries to persist a trail that has not
// been sealed.
var ErrUnsealed = errors.New("audit trail is not sealed")

// Appender is the write side shared by every trail sink.
type Appender interface {
	Append(ctx context.Context, trail *models.AuditTrail) error
}

// Reader is the query side of the trail stores.
type Reader interface {
	Get(ctx context.Context, verificationID string) (*models.AuditTrail, error)
	ListBySubmitter(ctx context.Context, submitterID string) ([]*models.AuditTrail, error)
	ListFailedAt(ctx context.Context, step string) ([]string, error)
}

// Store is a primary trail store: it accepts trails and answers queries.
type Store interface {
	Appender
	Reader
}

// Fanout writes to a primary store and mirrors the trail to secondary sinks.
// Only the primary decides success; mirror failures are logged.
type Fanout struct {
	primary Appender
	mirrors []Appender
	logger  *slog.Logger
}

func NewFanout(logger *slog.Logger, primary Appender, mirrors ...Appender) *Fanout {
	return &Fanout{primary: primary, mirrors: mirrors, logger: logger}
}

func (f *Fanout) Append(ctx context.Context, trail *models.AuditTrail) error {
	if err := f.primary.Append(ctx, trail); err != nil {
		return err
	}
	for _, m := range f.mirrors {
		if err := m.Append(ctx, trail); err != nil && f.logger != nil {
			f.logger.WarnContext(ctx, "failed to mirror audit trail",
				"verification_id", trail.VerificationID,
				"error", err,
			)
		}
	}
	return nil
}

func checkSealed(trail *models.AuditTrail) error {
	if trail == nil || !trail.Sealed() {
		return ErrUnsealed
	}
	return nil
}
