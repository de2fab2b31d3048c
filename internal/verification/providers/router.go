package providers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"docverify/internal/verification/models"
	"docverify/pkg/platform/circuit"
)

// DefaultTimeout bounds a single provider call.
const DefaultTimeout = 30 * time.Second

// Provider IDs used by the default routing table.
const (
	ProviderOcrolus         = "ocrolus"
	ProviderOnfido          = "onfido"
	ProviderDocusignInsight = "docusign_insight"
	ProviderGovGateway      = "gov_gateway"
)

// RouterConfig is the routing table handed to NewRouter.
type RouterConfig struct {
	// Routes maps a document class to a provider ID.
	Routes map[models.DocumentClass]string
	// FallbackClass is the class whose provider serves unmapped classes.
	// Empty disables the fallback.
	FallbackClass models.DocumentClass
	Timeout       time.Duration
}

// DefaultRouterConfig returns the production routing table. Utility bills are
// deliberately unmapped and fall back to the bank statement provider.
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		Routes: map[models.DocumentClass]string{
			models.ClassBankStatement:    ProviderOcrolus,
			models.ClassPayslip:          ProviderOcrolus,
			models.ClassTaxReturn:        ProviderOcrolus,
			models.ClassProofOfFunds:     ProviderOcrolus,
			models.ClassPassport:         ProviderOnfido,
			models.ClassDrivingLicence:   ProviderOnfido,
			models.ClassMortgageApproval: ProviderDocusignInsight,
			models.ClassPropertyContract: ProviderDocusignInsight,
			models.ClassHTBApplication:   ProviderGovGateway,
		},
		FallbackClass: models.ClassBankStatement,
		Timeout:       DefaultTimeout,
	}
}

// Router selects exactly one provider per document class and invokes it.
type Router struct {
	registry *Registry
	cfg      RouterConfig
	logger   *slog.Logger
	now      func() time.Time

	breakerOpts []circuit.Option
	breakers    map[string]*circuit.Breaker
}

// RouterOption configures the Router.
type RouterOption func(*Router)

func WithLogger(logger *slog.Logger) RouterOption {
	return func(r *Router) {
		r.logger = logger
	}
}

func WithClock(now func() time.Time) RouterOption {
	return func(r *Router) {
		if now != nil {
			r.now = now
		}
	}
}

// WithBreakerOptions tunes the per-provider circuit breakers.
func WithBreakerOptions(opts ...circuit.Option) RouterOption {
	return func(r *Router) {
		r.breakerOpts = append(r.breakerOpts, opts...)
	}
}

// NewRouter validates that every route names a registered provider.
func NewRouter(registry *Registry, cfg RouterConfig, opts ...RouterOption) (*Router, error) {
	if registry == nil {
		return nil, errors.New("provider registry is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	for class, id := range cfg.Routes {
		if _, ok := registry.Get(id); !ok {
			return nil, fmt.Errorf("route %s -> %s: %w", class, id, ErrProviderNotFound)
		}
	}
	if cfg.FallbackClass != "" {
		if _, ok := cfg.Routes[cfg.FallbackClass]; !ok {
			return nil, fmt.Errorf("fallback class %s has no route", cfg.FallbackClass)
		}
	}
	r := &Router{
		registry: registry,
		cfg:      cfg,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	providers := registry.All()
	r.breakers = make(map[string]*circuit.Breaker, len(providers))
	for _, p := range providers {
		r.breakers[p.ID()] = circuit.New(p.ID(), append([]circuit.Option{circuit.WithClock(r.now)}, r.breakerOpts...)...)
	}
	return r, nil
}

// Resolve returns the provider for class, falling back to the provider of
// the fallback class when the class is unmapped.
func (r *Router) Resolve(class models.DocumentClass) (Provider, error) {
	id, ok := r.cfg.Routes[class]
	if !ok && r.cfg.FallbackClass != "" {
		id, ok = r.cfg.Routes[r.cfg.FallbackClass]
		if ok && r.logger != nil {
			r.logger.Debug("document class routed to fallback provider",
				"document_class", class,
				"provider_id", id,
			)
		}
	}
	if !ok {
		return nil, &models.ValidationError{
			Field:  "document_class",
			Reason: fmt.Sprintf("no provider routable for class %q", class),
		}
	}
	p, found := r.registry.Get(id)
	if !found {
		return nil, fmt.Errorf("provider %s: %w", id, ErrProviderNotFound)
	}
	return p, nil
}

// Extract resolves the provider for req.Class and performs one bounded call.
// Every failure is returned as a *ProviderError, except routing failures
// which are validation errors. A provider whose breaker is open is not
// called at all.
func (r *Router) Extract(ctx context.Context, req ExtractionRequest) (*models.Extraction, error) {
	p, err := r.Resolve(req.Class)
	if err != nil {
		return nil, err
	}

	breaker := r.breakers[p.ID()]
	if breaker != nil && !breaker.Allow() {
		return nil, NewProviderError(ErrorProviderOutage, p.ID(), "circuit open", nil)
	}

	callCtx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	ext, err := p.Extract(callCtx, req)
	if err != nil {
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) && !errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("%w: %v", context.DeadlineExceeded, err)
		}
		pe := Classify(p.ID(), err)
		r.record(breaker, pe)
		return nil, pe
	}
	r.record(breaker, nil)
	if err := validateExtraction(ext); err != nil {
		return nil, NewProviderError(ErrorBadData, p.ID(), "invalid extraction result", err)
	}

	if ext.ProviderID == "" {
		ext.ProviderID = p.ID()
	}
	if ext.ExtractedAt.IsZero() {
		ext.ExtractedAt = r.now()
	}
	if ext.Fields == nil {
		ext.Fields = map[string]any{}
	}
	return ext, nil
}

// record feeds the call outcome to the breaker. Only availability failures
// count against the provider; rejected or malformed documents do not.
func (r *Router) record(b *circuit.Breaker, pe *ProviderError) {
	if b == nil {
		return
	}
	var change circuit.StateChange
	if pe != nil && pe.Retryable {
		_, change = b.RecordFailure()
	} else {
		_, change = b.RecordSuccess()
	}
	if r.logger == nil {
		return
	}
	switch {
	case change.Opened:
		r.logger.Warn("provider circuit opened", "provider_id", b.Name())
	case change.Closed:
		r.logger.Info("provider circuit closed", "provider_id", b.Name())
	}
}

func validateExtraction(ext *models.Extraction) error {
	if ext == nil {
		return errors.New("empty extraction")
	}
	if math.IsNaN(ext.Confidence) || ext.Confidence < 0 || ext.Confidence > 1 {
		return fmt.Errorf("confidence %v outside [0, 1]", ext.Confidence)
	}
	return nil
}
