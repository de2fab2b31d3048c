// Package scoring aggregates authenticity checks and fraud indicators into
// the confidence, risk and certification of a verification.
// Everything here is pure: no I/O, no clock, no randomness.
package scoring

import (
	"math"

	"docverify/internal/verification/models"
)

const (
	providerWeight     = 0.7
	authenticityWeight = 0.3

	successConfidence = 0.8
	successRisk       = 0.3
)

// Severity weights summed into the risk score.
var severityWeight = map[models.Severity]float64{
	models.SeverityHigh:   0.4,
	models.SeverityMedium: 0.2,
	models.SeverityLow:    0.1,
}

type tier struct {
	level         models.CertificationLevel
	minConfidence float64
	maxRisk       float64
}

// Certification tiers, strictest first.
var tiers = []tier{
	{models.CertificationHigh, 0.95, 0.1},
	{models.CertificationMedium, 0.85, 0.3},
	{models.CertificationLow, 0.70, 0.5},
}

// Scores bundles the aggregated outcome.
type Scores struct {
	Confidence    float64
	Risk          float64
	Certification models.CertificationLevel
	Success       bool
}

// Confidence weights provider confidence against the authenticity average.
// A failed check contributes zero to the average; no checks averages to zero.
func Confidence(providerConfidence float64, checks []models.AuthenticityCheck) float64 {
	var sum float64
	for _, c := range checks {
		if c.Passed {
			sum += clamp(c.Confidence)
		}
	}
	var avg float64
	if len(checks) > 0 {
		avg = sum / float64(len(checks))
	}
	return clamp(providerWeight*clamp(providerConfidence) + authenticityWeight*avg)
}

// Risk sums severity weights, capped at 1.
func Risk(indicators []models.FraudIndicator) float64 {
	var risk float64
	for _, ind := range indicators {
		risk += severityWeight[ind.Severity]
	}
	return math.Min(1, risk)
}

// Certification returns the first tier whose thresholds are met.
func Certification(confidence, risk float64) models.CertificationLevel {
	for _, t := range tiers {
		if confidence >= t.minConfidence && risk < t.maxRisk {
			return t.level
		}
	}
	return models.CertificationFailed
}

// Success uses its own thresholds, which overlap but do not coincide with
// the certification tiers.
func Success(confidence, risk float64) bool {
	return confidence >= successConfidence && risk < successRisk
}

// Aggregate computes every score for one verification.
func Aggregate(providerConfidence float64, checks []models.AuthenticityCheck, indicators []models.FraudIndicator) Scores {
	conf := Confidence(providerConfidence, checks)
	risk := Risk(indicators)
	return Scores{
		Confidence:    conf,
		Risk:          risk,
		Certification: Certification(conf, risk),
		Success:       Success(conf, risk),
	}
}

func clamp(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	return math.Min(1, v)
}
