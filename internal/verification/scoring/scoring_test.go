package scoring

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"docverify/internal/verification/models"
)

func passing(conf float64, n int) []models.AuthenticityCheck {
	checks := make([]models.AuthenticityCheck, n)
	for i := range checks {
		checks[i] = models.AuthenticityCheck{Passed: true, Confidence: conf}
	}
	return checks
}

func severities(levels ...models.Severity) []models.FraudIndicator {
	out := make([]models.FraudIndicator, len(levels))
	for i, l := range levels {
		out[i] = models.FraudIndicator{Severity: l}
	}
	return out
}

func TestConfidence(t *testing.T) {
	t.Run("weights provider and authenticity", func(t *testing.T) {
		assert.InDelta(t, 0.914, Confidence(0.92, passing(0.9, 3)), 1e-9)
	})

	t.Run("failed checks contribute zero", func(t *testing.T) {
		checks := []models.AuthenticityCheck{
			{Passed: true, Confidence: 0.9},
			{Passed: false, Confidence: 0.95},
			{Passed: true, Confidence: 0.6},
		}
		assert.InDelta(t, 0.7*0.8+0.3*0.5, Confidence(0.8, checks), 1e-9)
	})

	t.Run("no checks averages to zero", func(t *testing.T) {
		assert.InDelta(t, 0.7, Confidence(1, nil), 1e-9)
	})

	t.Run("stays within unit interval", func(t *testing.T) {
		assert.InDelta(t, 1.0, Confidence(3, passing(7, 2)), 1e-9)
		assert.Equal(t, 0.0, Confidence(math.NaN(), nil))
	})
}

func TestRisk(t *testing.T) {
	assert.Equal(t, 0.0, Risk(nil))
	assert.InDelta(t, 0.4, Risk(severities(models.SeverityMedium, models.SeverityMedium)), 1e-9)
	assert.InDelta(t, 0.7, Risk(severities(models.SeverityHigh, models.SeverityMedium, models.SeverityLow)), 1e-9)
	assert.Equal(t, 1.0, Risk(severities(
		models.SeverityHigh, models.SeverityHigh, models.SeverityHigh, models.SeverityHigh, models.SeverityHigh,
	)))
}

func TestCertification(t *testing.T) {
	cases := []struct {
		name       string
		confidence float64
		risk       float64
		want       models.CertificationLevel
	}{
		{"high", 0.95, 0.0, models.CertificationHigh},
		{"high confidence but risk at high limit", 0.99, 0.1, models.CertificationMedium},
		{"medium", 0.85, 0.29, models.CertificationMedium},
		{"medium confidence but risk at medium limit", 0.9, 0.3, models.CertificationLow},
		{"low", 0.70, 0.49, models.CertificationLow},
		{"risk too high for any tier", 1.0, 0.5, models.CertificationFailed},
		{"confidence too low for any tier", 0.69, 0.0, models.CertificationFailed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Certification(tc.confidence, tc.risk))
		})
	}
}

func TestCertificationIsTotal(t *testing.T) {
	valid := map[models.CertificationLevel]bool{
		models.CertificationHigh:   true,
		models.CertificationMedium: true,
		models.CertificationLow:    true,
		models.CertificationFailed: true,
	}
	for c := 0.0; c <= 1.0; c += 0.01 {
		for r := 0.0; r <= 1.0; r += 0.01 {
			assert.True(t, valid[Certification(c, r)])
		}
	}
}

func TestSuccessIsExactlyTheConjunction(t *testing.T) {
	for c := 0.0; c <= 1.0; c += 0.01 {
		for r := 0.0; r <= 1.0; r += 0.01 {
			assert.Equal(t, c >= 0.8 && r < 0.3, Success(c, r))
		}
	}
}

func TestSuccessAndCertificationDiverge(t *testing.T) {
	assert.True(t, Success(0.82, 0.2))
	assert.Equal(t, models.CertificationLow, Certification(0.82, 0.2))
}

func TestAggregate(t *testing.T) {
	t.Run("clean bank statement", func(t *testing.T) {
		s := Aggregate(0.92, passing(0.9, 3), nil)
		assert.InDelta(t, 0.914, s.Confidence, 1e-9)
		assert.Zero(t, s.Risk)
		assert.Equal(t, models.CertificationMedium, s.Certification)
		assert.True(t, s.Success)
	})

	t.Run("high severity fraud", func(t *testing.T) {
		s := Aggregate(0.80, passing(0.9, 3), severities(models.SeverityHigh))
		assert.InDelta(t, 0.4, s.Risk, 1e-9)
		assert.NotEqual(t, models.CertificationHigh, s.Certification)
		assert.NotEqual(t, models.CertificationMedium, s.Certification)
		assert.False(t, s.Success)
	})
}
