package models

import "time"

// CertificationLevel grades a completed verification.
type CertificationLevel string

const (
	CertificationHigh   CertificationLevel = "HIGH"
	CertificationMedium CertificationLevel = "MEDIUM"
	CertificationLow    CertificationLevel = "LOW"
	CertificationFailed CertificationLevel = "FAILED"
)

// ConsentRecord snapshots the consent the verification relied on.
type ConsentRecord struct {
	ConsentedAt  time.Time `json:"consented_at"`
	VerifiedAt   time.Time `json:"verified_at"`
	Purpose      string    `json:"purpose"`
	LawfulBasis  string    `json:"lawful_basis"`
	ValidUntil   time.Time `json:"valid_until"`
	SubmitterID  string    `json:"submitter_id"`
	SessionID    string    `json:"session_id,omitempty"`
	ClientIPHash string    `json:"client_ip_hash,omitempty"`
}

// ComplianceStatus snapshots regulatory checks at the end of processing.
type ComplianceStatus struct {
	GDPRCompliant bool              `json:"gdpr_compliant"`
	AMLCompliant  bool              `json:"aml_compliant"`
	KYCCompliant  bool              `json:"kyc_compliant"`
	RetentionDays int               `json:"retention_days"`
	Jurisdiction  string            `json:"jurisdiction"`
	Checks        []ComplianceCheck `json:"checks"`
}

// VerificationResult is the sealed output of one verification. It is built
// once and never mutated after being returned.
type VerificationResult struct {
	VerificationID            string              `json:"verification_id"`
	DocumentID                string              `json:"document_id"`
	DocumentClass             DocumentClass       `json:"document_class"`
	ProviderName              string              `json:"provider_name"`
	Success                   bool                `json:"success"`
	Confidence                float64             `json:"confidence"`
	Risk                      float64             `json:"risk"`
	Certification             CertificationLevel  `json:"certification_level"`
	AuthenticityChecks        []AuthenticityCheck `json:"authenticity_checks"`
	FraudIndicators           []FraudIndicator    `json:"fraud_indicators"`
	ExtractedData             map[string]any      `json:"extracted_data"`
	Compliance                ComplianceStatus    `json:"compliance"`
	Consent                   ConsentRecord       `json:"consent"`
	Audit                     *AuditTrail         `json:"audit_trail"`
	RequiresHumanReview       bool                `json:"requires_human_review"`
	HumanReviewReason         string              `json:"human_review_reason,omitempty"`
	QualifiedReviewerRequired bool                `json:"qualified_reviewer_required"`
	ProcessedAt               time.Time           `json:"processed_at"`
}
