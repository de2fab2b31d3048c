package service

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"docverify/internal/verification/audit"
	"docverify/internal/verification/models"
	"docverify/internal/verification/providers"
	"docverify/internal/verification/review"
	"docverify/internal/verification/scoring"
	"docverify/internal/verification/security"
	dErrors "docverify/pkg/domain-errors"
)

const accessPurpose = "document_verification"

// run is the state of one verification. It is never shared.
type run struct {
	id  string
	req models.VerificationRequest
	rec *audit.Recorder

	report      security.Report
	envelopeKey string
	sealed      []byte
	extraction  *models.Extraction
	evidence    models.Evidence
	checks      []models.AuthenticityCheck
	indicators  []models.FraudIndicator
	decision    review.Decision
	qualified   bool
	scores      scoring.Scores
	compliance  models.ComplianceStatus
	consent     models.ConsentRecord
	persisted   bool
}

// Verify runs the full pipeline for req. Any fatal stage error aborts the
// remaining stages and is returned wrapped with a domain error code; the
// sealed trail of an aborted run is still persisted on a best-effort basis.
func (s *Service) Verify(ctx context.Context, req models.VerificationRequest) (*models.VerificationResult, error) {
	started := time.Now()
	r := &run{
		id:  uuid.NewString(),
		req: req,
	}
	r.rec = audit.NewRecorder(r.id, req.SubmitterID, req.Class, s.now)

	ctx, span := s.tracer.Start(ctx, "verification.verify", trace.WithAttributes(
		attribute.String("verification.id", r.id),
		attribute.String("document.class", string(req.Class)),
	))
	defer span.End()

	result, err := s.execute(ctx, r)
	s.metrics.ObserveVerify(time.Since(started))
	if err != nil {
		s.abort(ctx, r, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, string(dErrors.CodeOf(err)))
		return nil, err
	}

	s.metrics.IncrementOutcome(classLabel(req.Class), string(result.Certification))
	if s.logger != nil {
		s.logger.InfoContext(ctx, "verification completed",
			"verification_id", r.id,
			"document_class", req.Class,
			"submitter_id", req.SubmitterID,
			"certification", result.Certification,
			"requires_human_review", result.RequiresHumanReview,
		)
	}
	return result, nil
}

func (s *Service) execute(ctx context.Context, r *run) (*models.VerificationResult, error) {
	stages := []struct {
		name string
		fn   func(context.Context, *run) (string, error)
	}{
		{StageStarted, s.start},
		{StageConsent, s.recordConsent},
		{StageSecurity, s.screen},
		{StageEncryption, s.encrypt},
		{StageExtraction, s.extract},
		{StageAuthenticity, s.checkAuthenticity},
		{StageFraud, s.detectFraud},
		{StageDataValidation, s.validateData},
		{StageReview, s.evaluateReview},
		{StageAggregation, s.aggregate},
		{StageCompliance, s.snapshotCompliance},
		{StageConsentSnapshot, s.snapshotConsent},
	}
	for _, st := range stages {
		if err := s.stage(ctx, r, st.name, st.fn); err != nil {
			return nil, err
		}
	}

	trail, err := r.rec.Seal()
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to seal audit trail")
	}
	r.persisted = true
	if err := s.persist(ctx, trail); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist audit trail")
	}

	return &models.VerificationResult{
		VerificationID:            r.id,
		DocumentID:                r.req.DocumentID,
		DocumentClass:             r.req.Class,
		ProviderName:              r.extraction.ProviderID,
		Success:                   r.scores.Success,
		Confidence:                r.scores.Confidence,
		Risk:                      r.scores.Risk,
		Certification:             r.scores.Certification,
		AuthenticityChecks:        r.checks,
		FraudIndicators:           nonNil(r.indicators),
		ExtractedData:             maps.Clone(r.extraction.Fields),
		Compliance:                r.compliance,
		Consent:                   r.consent,
		Audit:                     trail,
		RequiresHumanReview:       r.decision.Required,
		HumanReviewReason:         string(r.decision.Reason),
		QualifiedReviewerRequired: r.qualified,
		ProcessedAt:               trail.CompletedAt,
	}, nil
}

// stage wraps fn in a processing step.
func (s *Service) stage(ctx context.Context, r *run, name string, fn func(context.Context, *run) (string, error)) error {
	step, err := r.rec.StartStep(name)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record processing step")
	}
	started := time.Now()
	details, err := fn(ctx, r)
	s.metrics.ObserveStage(name, time.Since(started))
	if err != nil {
		step.Fail(err)
		return err
	}
	step.Complete(details)
	return nil
}

func (s *Service) start(_ context.Context, r *run) (string, error) {
	if err := r.req.Validate(); err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeBadRequest, err.Error())
	}
	if !r.req.Class.IsValid() {
		err := &models.ValidationError{Field: "document_class", Reason: fmt.Sprintf("unsupported document class %q", r.req.Class)}
		return "", dErrors.Wrap(err, dErrors.CodeBadRequest, err.Error())
	}
	if err := s.consent.Validate(r.req.ConsentAt, s.now()); err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeMissingConsent, err.Error())
	}
	return fmt.Sprintf("document %s submitted as %s", r.req.DocumentID, r.req.Class), nil
}

func (s *Service) recordConsent(_ context.Context, r *run) (string, error) {
	return fmt.Sprintf("consent recorded at %s", r.req.ConsentAt.UTC().Format(time.RFC3339)), nil
}

func (s *Service) screen(ctx context.Context, r *run) (string, error) {
	r.report = s.screener.Screen(ctx, security.Upload{
		Payload:       r.req.Payload,
		MIMEType:      r.req.MIMEType,
		Filename:      r.req.Filename,
		SubmitterID:   r.req.SubmitterID,
		ClientAddress: r.req.ClientAddress,
	})
	if err := r.report.Err(); err != nil {
		var secErr *models.SecurityError
		if errors.As(err, &secErr) && secErr.RateLimited {
			return "", dErrors.Wrap(err, dErrors.CodeRateLimited, err.Error())
		}
		return "", dErrors.Wrap(err, dErrors.CodeSecurityRejected, err.Error())
	}
	if err := r.rec.LogDataAccess(s.access(r, "security_screener", "scan")); err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to log data access")
	}
	return fmt.Sprintf("%d checks passed, content type %s", len(r.report.Checks), r.report.ContentType), nil
}

func (s *Service) encrypt(ctx context.Context, r *run) (string, error) {
	env, err := s.encryptor.Encrypt(ctx, r.req.DocumentID, r.req.Payload)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to encrypt payload")
	}
	r.envelopeKey = env.KeyID
	r.sealed = env.Ciphertext
	return "payload sealed with key " + env.KeyID, nil
}

func (s *Service) extract(ctx context.Context, r *run) (string, error) {
	p, err := s.router.Resolve(r.req.Class)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeBadRequest, err.Error())
	}

	ctx, span := s.tracer.Start(ctx, "verification.extract", trace.WithAttributes(
		attribute.String("provider.id", p.ID()),
	))
	defer span.End()

	started := time.Now()
	ext, err := s.router.Extract(ctx, providers.ExtractionRequest{
		DocumentID:  r.req.DocumentID,
		Class:       r.req.Class,
		Payload:     r.sealed,
		KeyID:       r.envelopeKey,
		ContentType: r.report.ContentType,
		Filename:    r.req.Filename,
	})
	if err != nil {
		s.metrics.ObserveProvider(p.ID(), string(providers.GetCategory(err)), time.Since(started))
		span.RecordError(err)
		span.SetStatus(codes.Error, "extraction failed")
		var vErr *models.ValidationError
		if errors.As(err, &vErr) {
			return "", dErrors.Wrap(err, dErrors.CodeBadRequest, err.Error())
		}
		return "", dErrors.Wrap(err, dErrors.CodeProviderUnavailable, "document extraction failed")
	}
	s.metrics.ObserveProvider(p.ID(), "ok", time.Since(started))

	r.extraction = ext
	r.evidence = models.Evidence{Request: r.req, Extraction: ext, ContentType: r.report.ContentType}
	if err := r.rec.LogDataAccess(s.access(r, ext.ProviderID, "extract")); err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to log data access")
	}
	return fmt.Sprintf("provider %s confidence %.2f", ext.ProviderID, ext.Confidence), nil
}

func (s *Service) checkAuthenticity(ctx context.Context, r *run) (string, error) {
	r.checks = s.checker.Check(ctx, r.evidence)
	passed := 0
	for _, c := range r.checks {
		if c.Passed {
			passed++
		}
	}
	return fmt.Sprintf("%d of %d checks passed", passed, len(r.checks)), nil
}

func (s *Service) detectFraud(ctx context.Context, r *run) (string, error) {
	indicators, err := s.detector.Detect(ctx, r.evidence)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "fraud detection failed")
	}
	r.indicators = indicators
	for _, ind := range indicators {
		s.metrics.IncrementFraudIndicator(string(ind.Kind), string(ind.Severity))
	}
	return fmt.Sprintf("%d indicators", len(indicators)), nil
}

func (s *Service) validateData(_ context.Context, r *run) (string, error) {
	missing := missingFields(r.extraction, s.requiredFields[r.req.Class])
	check := models.ComplianceCheck{Type: "data_validation", Outcome: models.CompliancePass, Details: "all required fields extracted"}
	if len(missing) > 0 {
		check.Outcome = models.ComplianceWarning
		check.Details = "missing fields: " + joinFields(missing)
	}
	if err := r.rec.RecordCompliance(check); err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to record compliance check")
	}
	return check.Details, nil
}

func (s *Service) evaluateReview(_ context.Context, r *run) (string, error) {
	r.decision = review.Evaluate(r.req.Class, r.extraction.Confidence, r.indicators)
	// A HIGH indicator always needs a qualified reviewer, even when the low
	// confidence rule matched first.
	r.qualified = r.decision.Qualified || (r.decision.Required && models.HasHighSeverity(r.indicators))

	outcome := "not_required"
	if r.decision.Required {
		outcome = "required"
		s.metrics.IncrementHumanReview(string(r.decision.Reason))
	}
	err := r.rec.LogDecision(models.DecisionLog{
		Type:                models.DecisionHumanReview,
		Outcome:             outcome,
		Confidence:          r.extraction.Confidence,
		Reasoning:           r.decision.Reasoning,
		Automated:           true,
		HumanReviewRequired: r.decision.Required,
	})
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to log review decision")
	}
	return r.decision.Reasoning, nil
}

func (s *Service) aggregate(_ context.Context, r *run) (string, error) {
	r.scores = scoring.Aggregate(r.extraction.Confidence, r.checks, r.indicators)
	reasoning := fmt.Sprintf("confidence %.3f, risk %.3f, success %t",
		r.scores.Confidence, r.scores.Risk, r.scores.Success)
	err := r.rec.LogDecision(models.DecisionLog{
		Type:                models.DecisionCertification,
		Outcome:             string(r.scores.Certification),
		Confidence:          r.scores.Confidence,
		Reasoning:           reasoning,
		Automated:           true,
		HumanReviewRequired: r.decision.Required,
	})
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to log certification decision")
	}
	return reasoning, nil
}

func (s *Service) snapshotCompliance(_ context.Context, r *run) (string, error) {
	gdpr := len(r.sealed) > 0
	aml := !models.HasHighSeverity(r.indicators)
	kyc := r.scores.Certification != models.CertificationFailed

	for _, c := range []models.ComplianceCheck{
		complianceCheck("gdpr", gdpr, "consent verified and payload encrypted in transit", "payload not encrypted"),
		complianceCheck("aml", aml, "no high severity fraud indicators", "high severity fraud indicator present"),
		complianceCheck("kyc", kyc, "certification "+string(r.scores.Certification), "certification failed"),
	} {
		if err := r.rec.RecordCompliance(c); err != nil {
			return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to record compliance check")
		}
	}

	r.compliance = models.ComplianceStatus{
		GDPRCompliant: gdpr,
		AMLCompliant:  aml,
		KYCCompliant:  kyc,
		RetentionDays: s.retentionDays,
		Jurisdiction:  s.jurisdiction,
		Checks:        append([]models.ComplianceCheck(nil), r.rec.Trail().ComplianceChecks...),
	}
	return fmt.Sprintf("gdpr=%t aml=%t kyc=%t", gdpr, aml, kyc), nil
}

func (s *Service) snapshotConsent(_ context.Context, r *run) (string, error) {
	r.consent = s.consent.Snapshot(r.req, s.now())
	return "consent valid until " + r.consent.ValidUntil.UTC().Format(time.RFC3339), nil
}

// abort logs the failure and persists the sealed trail unless a write was
// already attempted. Persistence errors are logged; the original error is
// what the caller sees.
func (s *Service) abort(ctx context.Context, r *run, err error) {
	s.metrics.IncrementFailure(classLabel(r.req.Class), string(dErrors.CodeOf(err)))
	if s.logger != nil {
		s.logger.ErrorContext(ctx, "verification failed",
			"verification_id", r.id,
			"document_class", r.req.Class,
			"submitter_id", r.req.SubmitterID,
			"error", err,
		)
	}

	if r.persisted {
		return
	}
	trail := r.rec.Trail()
	if !trail.Sealed() {
		sealed, sealErr := r.rec.Seal()
		if sealErr != nil {
			return
		}
		trail = sealed
	}

	if perr := s.persist(ctx, trail); perr != nil && s.logger != nil {
		s.logger.ErrorContext(ctx, "failed to persist aborted audit trail",
			"verification_id", r.id,
			"error", perr,
		)
	}
}

// persist writes trail on a context that outlives the caller's cancellation
// but is still bounded by persistTimeout.
func (s *Service) persist(ctx context.Context, trail *models.AuditTrail) error {
	persistCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()
	return s.trails.Append(persistCtx, trail)
}

// classLabel keeps metric label values within the known document classes.
func classLabel(c models.DocumentClass) string {
	if !c.IsValid() {
		return "unknown"
	}
	return string(c)
}

func (s *Service) access(r *run, accessor, action string) models.DataAccessLog {
	return models.DataAccessLog{
		Accessor:      accessor,
		Resource:      "document:" + r.req.DocumentID,
		Action:        action,
		Purpose:       accessPurpose,
		ClientAddress: r.req.ClientAddress,
		ClientAgent:   r.req.ClientAgent,
	}
}

func complianceCheck(kind string, ok bool, passDetail, failDetail string) models.ComplianceCheck {
	if ok {
		return models.ComplianceCheck{Type: kind, Outcome: models.CompliancePass, Details: passDetail}
	}
	return models.ComplianceCheck{Type: kind, Outcome: models.ComplianceFail, Details: failDetail}
}

func nonNil(indicators []models.FraudIndicator) []models.FraudIndicator {
	if indicators == nil {
		return []models.FraudIndicator{}
	}
	return indicators
}
