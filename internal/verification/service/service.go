// Package service orchestrates one document verification from consent check
// to sealed audit trail.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"docverify/internal/verification/authenticity"
	"docverify/internal/verification/consent"
	"docverify/internal/verification/encryption"
	"docverify/internal/verification/fraud"
	"docverify/internal/verification/metrics"
	"docverify/internal/verification/models"
	"docverify/internal/verification/providers"
	"docverify/internal/verification/security"
)

// Processing step names, in pipeline order.
const (
	StageStarted         = "verification_started"
	StageConsent         = "consent_validation"
	StageSecurity        = "security_screening"
	StageEncryption      = "payload_encryption"
	StageExtraction      = "provider_extraction"
	StageAuthenticity    = "authenticity_checks"
	StageFraud           = "fraud_detection"
	StageDataValidation  = "data_validation"
	StageReview          = "review_gate"
	StageAggregation     = "score_aggregation"
	StageCompliance      = "compliance_snapshot"
	StageConsentSnapshot = "consent_snapshot"
)

const (
	// DefaultRetentionDays is the audit retention period (seven years).
	DefaultRetentionDays = 7 * 365
	DefaultJurisdiction  = "IE"

	persistTimeout = 5 * time.Second
)

// Encryptor seals payload bytes before they are handed to a provider.
type Encryptor interface {
	Encrypt(ctx context.Context, documentID string, plaintext []byte) (encryption.Envelope, error)
}

// TrailStore is the append-only audit sink. Each trail is written once.
type TrailStore interface {
	Append(ctx context.Context, trail *models.AuditTrail) error
}

// Service runs verifications. It holds only read-only configuration and is
// safe for concurrent Verify calls; every call owns its own trail.
type Service struct {
	screener  *security.Screener
	router    *providers.Router
	checker   *authenticity.Checker
	detector  *fraud.Detector
	encryptor Encryptor
	trails    TrailStore

	consent        *consent.Validator
	requiredFields map[models.DocumentClass][]string
	jurisdiction   string
	retentionDays  int

	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
	now     func() time.Time
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(s *Service) {
		if t != nil {
			s.tracer = t
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func WithConsentValidator(v *consent.Validator) Option {
	return func(s *Service) {
		if v != nil {
			s.consent = v
		}
	}
}

// WithJurisdiction sets the jurisdiction stamped on compliance snapshots.
func WithJurisdiction(code string) Option {
	return func(s *Service) {
		if code != "" {
			s.jurisdiction = code
		}
	}
}

func WithRetentionDays(days int) Option {
	return func(s *Service) {
		if days > 0 {
			s.retentionDays = days
		}
	}
}

// WithRequiredFields replaces the per-class extracted field requirements.
func WithRequiredFields(fields map[models.DocumentClass][]string) Option {
	return func(s *Service) {
		s.requiredFields = fields
	}
}

func New(
	screener *security.Screener,
	router *providers.Router,
	checker *authenticity.Checker,
	detector *fraud.Detector,
	encryptor Encryptor,
	trails TrailStore,
	opts ...Option,
) (*Service, error) {
	switch {
	case screener == nil:
		return nil, errors.New("security screener is required")
	case router == nil:
		return nil, errors.New("provider router is required")
	case checker == nil:
		return nil, errors.New("authenticity checker is required")
	case detector == nil:
		return nil, errors.New("fraud detector is required")
	case encryptor == nil:
		return nil, errors.New("encryptor is required")
	case trails == nil:
		return nil, errors.New("trail store is required")
	}
	s := &Service{
		screener:       screener,
		router:         router,
		checker:        checker,
		detector:       detector,
		encryptor:      encryptor,
		trails:         trails,
		consent:        consent.NewValidator(),
		requiredFields: DefaultRequiredFields(),
		jurisdiction:   DefaultJurisdiction,
		retentionDays:  DefaultRetentionDays,
		tracer:         otel.Tracer("docverify/verification"),
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}
