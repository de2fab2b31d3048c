package handler

import (
	"time"

	"docverify/internal/verification/models"
)

// VerificationResponse is the HTTP response for POST /verifications. The
// audit trail is summarised; the full trail stays in the audit store.
type VerificationResponse struct {
	VerificationID            string                     `json:"verification_id"`
	DocumentID                string                     `json:"document_id"`
	DocumentClass             string                     `json:"document_class"`
	Provider                  string                     `json:"provider"`
	Success                   bool                       `json:"success"`
	Confidence                float64                    `json:"confidence"`
	Risk                      float64                    `json:"risk"`
	CertificationLevel        string                     `json:"certification_level"`
	AuthenticityChecks        []models.AuthenticityCheck `json:"authenticity_checks"`
	FraudIndicators           []models.FraudIndicator    `json:"fraud_indicators"`
	ExtractedData             map[string]any             `json:"extracted_data"`
	Compliance                models.ComplianceStatus    `json:"compliance"`
	Consent                   ConsentResponse            `json:"consent"`
	RequiresHumanReview       bool                       `json:"requires_human_review"`
	HumanReviewReason         string                     `json:"human_review_reason,omitempty"`
	QualifiedReviewerRequired bool                       `json:"qualified_reviewer_required"`
	Steps                     []StepResponse             `json:"steps"`
	ProcessedAt               time.Time                  `json:"processed_at"`
}

type ConsentResponse struct {
	ConsentedAt time.Time `json:"consented_at"`
	Purpose     string    `json:"purpose"`
	LawfulBasis string    `json:"lawful_basis"`
	ValidUntil  time.Time `json:"valid_until"`
}

type StepResponse struct {
	Name       string `json:"name"`
	Status     string `json:"status"`
	DurationMS int64  `json:"duration_ms"`
}

// FromResult converts a domain result to an HTTP response.
func FromResult(result *models.VerificationResult) *VerificationResponse {
	resp := &VerificationResponse{
		VerificationID:            result.VerificationID,
		DocumentID:                result.DocumentID,
		DocumentClass:             string(result.DocumentClass),
		Provider:                  result.ProviderName,
		Success:                   result.Success,
		Confidence:                result.Confidence,
		Risk:                      result.Risk,
		CertificationLevel:        string(result.Certification),
		AuthenticityChecks:        result.AuthenticityChecks,
		FraudIndicators:           result.FraudIndicators,
		ExtractedData:             result.ExtractedData,
		Compliance:                result.Compliance,
		RequiresHumanReview:       result.RequiresHumanReview,
		HumanReviewReason:         result.HumanReviewReason,
		QualifiedReviewerRequired: result.QualifiedReviewerRequired,
		ProcessedAt:               result.ProcessedAt,
		Consent: ConsentResponse{
			ConsentedAt: result.Consent.ConsentedAt,
			Purpose:     result.Consent.Purpose,
			LawfulBasis: result.Consent.LawfulBasis,
			ValidUntil:  result.Consent.ValidUntil,
		},
	}
	if result.Audit != nil {
		resp.Steps = make([]StepResponse, len(result.Audit.Steps))
		for i, st := range result.Audit.Steps {
			resp.Steps[i] = StepResponse{
				Name:       st.Name,
				Status:     string(st.Status),
				DurationMS: st.Duration.Milliseconds(),
			}
		}
	}
	return resp
}
