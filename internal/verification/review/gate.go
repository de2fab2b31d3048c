// Package review decides whether a verification needs a human reviewer.
package review

import (
	"fmt"

	"docverify/internal/verification/models"
)

// MinProviderConfidence is the provider confidence below which a human must
// confirm the extraction.
const MinProviderConfidence = 0.85

// Reason explains why review is required.
type Reason string

const (
	ReasonNone              Reason = ""
	ReasonHighRiskClass     Reason = "high_risk_document_class"
	ReasonLowConfidence     Reason = "low_ai_confidence"
	ReasonHighSeverityFraud Reason = "high_severity_fraud_signal"
)

// Decision is the outcome of Evaluate.
type Decision struct {
	Required  bool
	Reason    Reason
	Qualified bool
	// Reasoning is a human readable explanation for the audit trail.
	Reasoning string
}

var highRiskClasses = map[models.DocumentClass]struct{}{
	models.ClassMortgageApproval: {},
	models.ClassPropertyContract: {},
	models.ClassHTBApplication:   {},
}

// IsHighRiskClass reports whether documents of class c always need a
// qualified reviewer.
func IsHighRiskClass(c models.DocumentClass) bool {
	_, ok := highRiskClasses[c]
	return ok
}

// Evaluate applies the review rules in order; the first match wins.
// It looks at the raw provider confidence, never at aggregated scores.
//  1. High-risk document class: qualified review.
//  2. Provider confidence below MinProviderConfidence: review.
//  3. Any HIGH severity fraud indicator: qualified review.
func Evaluate(class models.DocumentClass, providerConfidence float64, indicators []models.FraudIndicator) Decision {
	if IsHighRiskClass(class) {
		return Decision{
			Required:  true,
			Reason:    ReasonHighRiskClass,
			Qualified: true,
			Reasoning: fmt.Sprintf("document class %s always requires a qualified reviewer", class),
		}
	}

	if providerConfidence < MinProviderConfidence {
		return Decision{
			Required:  true,
			Reason:    ReasonLowConfidence,
			Qualified: false,
			Reasoning: fmt.Sprintf("provider confidence %.2f below %.2f", providerConfidence, MinProviderConfidence),
		}
	}

	if models.HasHighSeverity(indicators) {
		return Decision{
			Required:  true,
			Reason:    ReasonHighSeverityFraud,
			Qualified: true,
			Reasoning: "high severity fraud indicator detected",
		}
	}

	return Decision{
		Required:  false,
		Reason:    ReasonNone,
		Reasoning: fmt.Sprintf("provider confidence %.2f and no high severity fraud", providerConfidence),
	}
}
