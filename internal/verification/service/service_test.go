package service_test

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"docverify/internal/verification/authenticity"
	"docverify/internal/verification/encryption"
	"docverify/internal/verification/fraud"
	fraudmocks "docverify/internal/verification/fraud/mocks"
	"docverify/internal/verification/metrics"
	"docverify/internal/verification/models"
	"docverify/internal/verification/providers"
	providermocks "docverify/internal/verification/providers/mocks"
	"docverify/internal/verification/review"
	"docverify/internal/verification/security"
	"docverify/internal/verification/security/scanner"
	securitymocks "docverify/internal/verification/security/mocks"
	"docverify/internal/verification/service"
	"docverify/internal/verification/service/mocks"
	dErrors "docverify/pkg/domain-errors"
)

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Encryptor,TrailStore

const stubProvider = "stub"

var samplePDF = []byte("%PDF-1.7\n1 0 obj << /Type /Catalog >> endobj\ntrailer << /Root 1 0 R >>\n%%EOF\n")

type ServiceSuite struct {
	suite.Suite
	ctx      context.Context
	ctrl     *gomock.Controller
	now      time.Time
	limiter  *securitymocks.MockRateLimiter
	trails   *mocks.MockTrailStore
	metrics  *metrics.Metrics
	sealer   *encryption.Sealer
	provider providers.Provider
	stored   []*models.AuditTrail

	fingerprints fraud.FingerprintStore
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.ctrl = gomock.NewController(s.T())
	s.now = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	s.limiter = securitymocks.NewMockRateLimiter(s.ctrl)
	s.limiter.EXPECT().Check(gomock.Any(), gomock.Any(), gomock.Any()).Return(security.RateDecision{}, nil).AnyTimes()
	s.trails = mocks.NewMockTrailStore(s.ctrl)
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.stored = nil
	s.fingerprints = fraud.NewInMemoryStore(time.Hour, 0, nil)

	sealer, err := encryption.NewSealer(bytes.Repeat([]byte{7}, encryption.KeySize))
	s.Require().NoError(err)
	s.sealer = sealer
}

func (s *ServiceSuite) expectPersist() {
	s.trails.EXPECT().Append(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, trail *models.AuditTrail) error {
			s.stored = append(s.stored, trail)
			return nil
		})
}

func passing(kind models.AuthenticityCheckKind) authenticity.Option {
	return authenticity.WithCheck(kind, func(context.Context, models.Evidence) (models.AuthenticityCheck, error) {
		return models.AuthenticityCheck{Kind: kind, Passed: true, Confidence: 0.9, Details: "ok"}, nil
	})
}

func (s *ServiceSuite) newService(encryptor service.Encryptor) *service.Service {
	screener, err := security.New(scanner.NewSignatureScanner(scanner.DefaultSignatures()...), s.limiter)
	s.Require().NoError(err)

	registry, err := providers.NewRegistry(s.provider)
	s.Require().NoError(err)
	routes := map[models.DocumentClass]string{}
	for _, c := range []models.DocumentClass{
		models.ClassBankStatement, models.ClassPayslip, models.ClassHTBApplication, models.ClassPassport,
	} {
		routes[c] = stubProvider
	}
	router, err := providers.NewRouter(registry, providers.RouterConfig{Routes: routes, Timeout: time.Second})
	s.Require().NoError(err)

	checker := authenticity.New(
		passing(models.CheckDigitalSignature),
		passing(models.CheckWatermark),
		passing(models.CheckMetadata),
	)
	detector, err := fraud.New(s.fingerprints)
	s.Require().NoError(err)

	if encryptor == nil {
		encryptor = s.sealer
	}
	svc, err := service.New(screener, router, checker, detector, encryptor, s.trails,
		service.WithMetrics(s.metrics),
		service.WithClock(func() time.Time { return s.now }),
	)
	s.Require().NoError(err)
	return svc
}

func (s *ServiceSuite) request(class models.DocumentClass) models.VerificationRequest {
	return models.VerificationRequest{
		DocumentID:    "doc-1",
		Class:         class,
		Payload:       samplePDF,
		Filename:      "statement.pdf",
		MIMEType:      "application/pdf",
		SubmitterID:   "sub-1",
		SessionID:     "sess-1",
		ClientAddress: "203.0.113.7",
		ConsentAt:     s.now.Add(-time.Hour),
	}
}

func stepNames(trail *models.AuditTrail) []string {
	names := make([]string, len(trail.Steps))
	for i, st := range trail.Steps {
		names[i] = st.Name
	}
	return names
}

func (s *ServiceSuite) TestCleanBankStatement() {
	s.provider = providers.NewStaticProvider(stubProvider, 0.92, map[string]any{
		"account_holder":   "A. Byrne",
		"statement_period": "2026-01",
	})
	svc := s.newService(nil)
	s.expectPersist()

	result, err := svc.Verify(s.ctx, s.request(models.ClassBankStatement))
	s.Require().NoError(err)

	s.InDelta(0.914, result.Confidence, 1e-9)
	s.Zero(result.Risk)
	// 0.914 is below the HIGH tier's 0.95 floor.
	s.Equal(models.CertificationMedium, result.Certification)
	s.True(result.Success)
	s.False(result.RequiresHumanReview)
	s.False(result.QualifiedReviewerRequired)
	s.Empty(result.FraudIndicators)
	s.NotNil(result.FraudIndicators)
	s.Len(result.AuthenticityChecks, 3)
	s.Equal(stubProvider, result.ProviderName)
	s.Equal("A. Byrne", result.ExtractedData["account_holder"])

	s.True(result.Compliance.GDPRCompliant)
	s.True(result.Compliance.AMLCompliant)
	s.True(result.Compliance.KYCCompliant)
	s.Equal(service.DefaultRetentionDays, result.Compliance.RetentionDays)
	s.Equal(service.DefaultJurisdiction, result.Compliance.Jurisdiction)

	s.Equal(s.now.Add(23*time.Hour), result.Consent.ValidUntil)
	s.NotEmpty(result.Consent.ClientIPHash)
	s.NotContains(result.Consent.ClientIPHash, "203.0.113.7")

	s.Require().Len(s.stored, 1)
	trail := s.stored[0]
	s.Same(trail, result.Audit)
	s.True(trail.Sealed())
	s.Equal(result.VerificationID, trail.VerificationID)
	s.Equal([]string{
		service.StageStarted,
		service.StageConsent,
		service.StageSecurity,
		service.StageEncryption,
		service.StageExtraction,
		service.StageAuthenticity,
		service.StageFraud,
		service.StageDataValidation,
		service.StageReview,
		service.StageAggregation,
		service.StageCompliance,
		service.StageConsentSnapshot,
	}, stepNames(trail))
	for _, st := range trail.Steps {
		s.Equal(models.StepCompleted, st.Status, st.Name)
	}
	s.Require().Len(trail.Decisions, 2)
	s.Equal(models.DecisionHumanReview, trail.Decisions[0].Type)
	s.Equal("not_required", trail.Decisions[0].Outcome)
	s.Equal(models.DecisionCertification, trail.Decisions[1].Type)
	s.Equal(string(models.CertificationMedium), trail.Decisions[1].Outcome)
	s.Len(trail.DataAccess, 2)
	s.Equal("document:doc-1", trail.DataAccess[1].Resource)
	s.Equal(stubProvider, trail.DataAccess[1].Accessor)

	s.Equal(1.0, testutil.ToFloat64(s.metrics.Outcomes.WithLabelValues("bank_statement", "MEDIUM")))
}

func (s *ServiceSuite) TestHighRiskClassAlwaysReviewed() {
	s.provider = providers.NewStaticProvider(stubProvider, 0.97, nil)
	svc := s.newService(nil)
	s.expectPersist()

	req := s.request(models.ClassHTBApplication)
	req.Filename = "htb.pdf"
	result, err := svc.Verify(s.ctx, req)
	s.Require().NoError(err)

	s.True(result.RequiresHumanReview)
	s.True(result.QualifiedReviewerRequired)
	s.Equal(string(review.ReasonHighRiskClass), result.HumanReviewReason)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.HumanReviews.WithLabelValues(string(review.ReasonHighRiskClass))))
}

func (s *ServiceSuite) TestHighSeverityFraudWithLowConfidence() {
	s.provider = providers.NewStaticProvider(stubProvider, 0.80, map[string]any{
		fraud.FieldTamperingScore: 0.85,
	})
	svc := s.newService(nil)
	s.expectPersist()

	result, err := svc.Verify(s.ctx, s.request(models.ClassPayslip))
	s.Require().NoError(err)

	s.Require().Len(result.FraudIndicators, 1)
	s.Equal(models.SeverityHigh, result.FraudIndicators[0].Severity)
	s.GreaterOrEqual(result.Risk, 0.4)
	s.NotEqual(models.CertificationHigh, result.Certification)
	s.NotEqual(models.CertificationMedium, result.Certification)
	s.False(result.Success)
	s.False(result.Compliance.AMLCompliant)

	s.True(result.RequiresHumanReview)
	s.Equal(string(review.ReasonLowConfidence), result.HumanReviewReason)
	s.True(result.QualifiedReviewerRequired)
}

func (s *ServiceSuite) TestExpiredConsent() {
	ctrl := gomock.NewController(s.T())
	p := providermocks.NewMockProvider(ctrl)
	p.EXPECT().ID().Return(stubProvider).AnyTimes()
	p.EXPECT().Extract(gomock.Any(), gomock.Any()).Times(0)
	s.provider = p
	svc := s.newService(nil)
	s.expectPersist()

	req := s.request(models.ClassBankStatement)
	req.ConsentAt = s.now.Add(-25 * time.Hour)
	result, err := svc.Verify(s.ctx, req)

	s.Require().Error(err)
	s.Nil(result)
	s.True(dErrors.HasCode(err, dErrors.CodeMissingConsent))
	var consentErr *models.ConsentError
	s.Require().ErrorAs(err, &consentErr)

	s.Require().Len(s.stored, 1)
	trail := s.stored[0]
	s.True(trail.Sealed())
	s.Require().Len(trail.Steps, 1)
	s.Equal(service.StageStarted, trail.Steps[0].Name)
	s.Equal(models.StepFailed, trail.Steps[0].Status)
	s.Empty(trail.Decisions)
	s.Empty(trail.DataAccess)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.Failures.WithLabelValues("bank_statement", string(dErrors.CodeMissingConsent))))
}

func (s *ServiceSuite) TestProviderFailure() {
	ctrl := gomock.NewController(s.T())
	p := providermocks.NewMockProvider(ctrl)
	p.EXPECT().ID().Return(stubProvider).AnyTimes()
	p.EXPECT().Extract(gomock.Any(), gomock.Any()).Return(nil,
		providers.NewProviderError(providers.ErrorProviderOutage, stubProvider, "upstream down", nil))
	s.provider = p
	svc := s.newService(nil)
	s.expectPersist()

	_, err := svc.Verify(s.ctx, s.request(models.ClassBankStatement))

	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeProviderUnavailable))
	s.Equal(providers.ErrorProviderOutage, providers.GetCategory(err))

	trail := s.stored[0]
	last := trail.Steps[len(trail.Steps)-1]
	s.Equal(service.StageExtraction, last.Name)
	s.Equal(models.StepFailed, last.Status)
	_, ok := trail.Step(service.StageAuthenticity)
	s.False(ok)
}

func (s *ServiceSuite) TestSecurityRejection() {
	s.provider = providers.NewStaticProvider(stubProvider, 0.9, nil)
	svc := s.newService(nil)
	s.expectPersist()

	req := s.request(models.ClassBankStatement)
	req.MIMEType = "image/png"
	_, err := svc.Verify(s.ctx, req)

	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeSecurityRejected))
	var secErr *models.SecurityError
	s.Require().ErrorAs(err, &secErr)
	s.Contains(secErr.Failed, string(security.CheckContentType))
	s.False(secErr.RateLimited)
}

func (s *ServiceSuite) TestRateLimited() {
	s.limiter = securitymocks.NewMockRateLimiter(s.ctrl)
	s.limiter.EXPECT().Check(gomock.Any(), "sub-1", "203.0.113.7").Return(security.RateDecision{Exceeded: true, Detail: "10 per hour"}, nil)
	s.provider = providers.NewStaticProvider(stubProvider, 0.9, nil)
	svc := s.newService(nil)
	s.expectPersist()

	_, err := svc.Verify(s.ctx, s.request(models.ClassBankStatement))

	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeRateLimited))
}

func (s *ServiceSuite) TestEncryptionFailure() {
	s.provider = providers.NewStaticProvider(stubProvider, 0.9, nil)
	enc := mocks.NewMockEncryptor(s.ctrl)
	enc.EXPECT().Encrypt(gomock.Any(), "doc-1", samplePDF).Return(encryption.Envelope{}, errors.New("kms offline"))
	svc := s.newService(enc)
	s.expectPersist()

	_, err := svc.Verify(s.ctx, s.request(models.ClassBankStatement))

	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	_, ok := s.stored[0].Step(service.StageExtraction)
	s.False(ok)
}

func (s *ServiceSuite) TestPayloadReachesProviderEncrypted() {
	ctrl := gomock.NewController(s.T())
	p := providermocks.NewMockProvider(ctrl)
	p.EXPECT().ID().Return(stubProvider).AnyTimes()
	p.EXPECT().Extract(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, req providers.ExtractionRequest) (*models.Extraction, error) {
			s.NotEqual(samplePDF, req.Payload)
			s.Equal(s.sealer.KeyID(), req.KeyID)
			plain, err := s.sealer.Decrypt(req.DocumentID, encryption.Envelope{KeyID: req.KeyID, Ciphertext: req.Payload})
			s.Require().NoError(err)
			s.Equal(samplePDF, plain)
			return &models.Extraction{Confidence: 0.9, Fields: map[string]any{}}, nil
		})
	s.provider = p
	svc := s.newService(nil)
	s.expectPersist()

	_, err := svc.Verify(s.ctx, s.request(models.ClassBankStatement))
	s.Require().NoError(err)
}

func (s *ServiceSuite) TestMissingFieldsAreWarnings() {
	s.provider = providers.NewStaticProvider(stubProvider, 0.9, map[string]any{"account_holder": " "})
	svc := s.newService(nil)
	s.expectPersist()

	result, err := svc.Verify(s.ctx, s.request(models.ClassBankStatement))
	s.Require().NoError(err)

	s.Require().NotEmpty(result.Compliance.Checks)
	check := result.Compliance.Checks[0]
	s.Equal("data_validation", check.Type)
	s.Equal(models.ComplianceWarning, check.Outcome)
	s.Contains(check.Details, "account_holder")
	s.Contains(check.Details, "statement_period")
}

func (s *ServiceSuite) TestPersistFailureFailsClosed() {
	s.provider = providers.NewStaticProvider(stubProvider, 0.9, nil)
	svc := s.newService(nil)
	s.trails.EXPECT().Append(gomock.Any(), gomock.Any()).Return(errors.New("disk full")).Times(1)

	result, err := svc.Verify(s.ctx, s.request(models.ClassBankStatement))

	s.Require().Error(err)
	s.Nil(result)
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
}

func (s *ServiceSuite) TestAbortedTrailPersistIgnoresCancellation() {
	ctx, cancel := context.WithCancel(s.ctx)
	defer cancel()

	ctrl := gomock.NewController(s.T())
	p := providermocks.NewMockProvider(ctrl)
	p.EXPECT().ID().Return(stubProvider).AnyTimes()
	p.EXPECT().Extract(gomock.Any(), gomock.Any()).DoAndReturn(
		func(context.Context, providers.ExtractionRequest) (*models.Extraction, error) {
			cancel()
			return nil, context.Canceled
		})
	s.provider = p
	svc := s.newService(nil)
	s.trails.EXPECT().Append(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, trail *models.AuditTrail) error {
			s.NoError(ctx.Err())
			s.True(trail.Sealed())
			return nil
		})

	_, err := svc.Verify(ctx, s.request(models.ClassBankStatement))
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeProviderUnavailable))
}

func (s *ServiceSuite) TestCompletedTrailPersistIgnoresCancellation() {
	ctx, cancel := context.WithCancel(s.ctx)
	defer cancel()

	s.provider = providers.NewStaticProvider(stubProvider, 0.92, map[string]any{
		"account_holder":   "A. Byrne",
		"statement_period": "2026-01",
	})
	fingerprints := fraudmocks.NewMockFingerprintStore(s.ctrl)
	fingerprints.EXPECT().Remember(gomock.Any(), gomock.Any(), "doc-1").DoAndReturn(
		func(_ context.Context, _, documentID string) (string, error) {
			cancel()
			return documentID, nil
		})
	s.fingerprints = fingerprints
	svc := s.newService(nil)
	s.trails.EXPECT().Append(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, trail *models.AuditTrail) error {
			s.NoError(ctx.Err())
			_, hasDeadline := ctx.Deadline()
			s.True(hasDeadline)
			s.stored = append(s.stored, trail)
			return nil
		}).Times(1)

	result, err := svc.Verify(ctx, s.request(models.ClassBankStatement))

	s.Require().NoError(err)
	s.Equal(models.CertificationMedium, result.Certification)
	s.Require().Len(s.stored, 1)
	s.True(s.stored[0].Sealed())
	s.Same(result.Audit, s.stored[0])
}

func (s *ServiceSuite) TestInvalidClassFailureMetricLabel() {
	s.provider = providers.NewStaticProvider(stubProvider, 0.9, nil)
	svc := s.newService(nil)
	s.expectPersist()

	_, err := svc.Verify(s.ctx, s.request(models.DocumentClass("not-a-class-7f3a")))

	s.Require().Error(err)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.Failures.WithLabelValues("unknown", string(dErrors.CodeBadRequest))))
}

func TestNewRequiresCollaborators(t *testing.T) {
	_, err := service.New(nil, nil, nil, nil, nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required")
}

func TestDefaultRequiredFieldsCoverEveryRoutedClass(t *testing.T) {
	fields := service.DefaultRequiredFields()
	for class := range providers.DefaultRouterConfig().Routes {
		assert.NotEmpty(t, fields[class], class)
	}
}
