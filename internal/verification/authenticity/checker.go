// Package authenticity runs independent document authenticity checks.
package authenticity

import (
	"context"
	"log/slog"
	"math"

	"golang.org/x/sync/errgroup"

	"docverify/internal/verification/models"
)

// Func evaluates one authenticity check. An error marks the check failed
// with zero confidence; it never aborts the verification.
type Func func(ctx context.Context, ev models.Evidence) (models.AuthenticityCheck, error)

type check struct {
	kind models.AuthenticityCheckKind
	run  Func
}

// Checker runs a fixed, ordered list of checks.
type Checker struct {
	checks []check
	logger *slog.Logger
}

// Option configures the Checker.
type Option func(*Checker)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Checker) {
		c.logger = logger
	}
}

// WithFontAnalysis appends the font consistency check.
func WithFontAnalysis() Option {
	return WithCheck(models.CheckFontAnalysis, FontAnalysis)
}

// WithLayoutAnalysis appends the layout check.
func WithLayoutAnalysis() Option {
	return WithCheck(models.CheckLayout, Layout)
}

// WithCheck replaces the check of the given kind, or appends it when the
// kind is not yet present.
func WithCheck(kind models.AuthenticityCheckKind, fn Func) Option {
	return func(c *Checker) {
		for i := range c.checks {
			if c.checks[i].kind == kind {
				c.checks[i].run = fn
				return
			}
		}
		c.checks = append(c.checks, check{kind: kind, run: fn})
	}
}

func New(opts ...Option) *Checker {
	c := &Checker{
		checks: []check{
			{kind: models.CheckDigitalSignature, run: DigitalSignature},
			{kind: models.CheckWatermark, run: Watermark},
			{kind: models.CheckMetadata, run: Metadata},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Kinds lists the configured checks in evaluation order.
func (c *Checker) Kinds() []models.AuthenticityCheckKind {
	kinds := make([]models.AuthenticityCheckKind, len(c.checks))
	for i, ch := range c.checks {
		kinds[i] = ch.kind
	}
	return kinds
}

// Check runs every check concurrently and returns the results in configured
// order once all have finished.
func (c *Checker) Check(ctx context.Context, ev models.Evidence) []models.AuthenticityCheck {
	results := make([]models.AuthenticityCheck, len(c.checks))

	var g errgroup.Group
	for i, ch := range c.checks {
		g.Go(func() error {
			results[i] = c.run(ctx, ch, ev)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (c *Checker) run(ctx context.Context, ch check, ev models.Evidence) (res models.AuthenticityCheck) {
	defer func() {
		if r := recover(); r != nil {
			res = failed(ch.kind, "check panicked")
			if c.logger != nil {
				c.logger.ErrorContext(ctx, "authenticity check panicked",
					"check", ch.kind,
					"panic", r,
				)
			}
		}
	}()

	res, err := ch.run(ctx, ev)
	if err != nil {
		if c.logger != nil {
			c.logger.WarnContext(ctx, "authenticity check failed to run",
				"check", ch.kind,
				"document_id", ev.Request.DocumentID,
				"error", err,
			)
		}
		return failed(ch.kind, "check unavailable: "+err.Error())
	}
	res.Kind = ch.kind
	res.Confidence = clamp(res.Confidence)
	return res
}

func failed(kind models.AuthenticityCheckKind, details string) models.AuthenticityCheck {
	return models.AuthenticityCheck{Kind: kind, Passed: false, Confidence: 0, Details: details}
}

func clamp(v float64) float64 {
	switch {
	case v < 0 || math.IsNaN(v):
		return 0
	case v > 1:
		return 1
	}
	return v
}
