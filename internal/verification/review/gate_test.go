package review

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"docverify/internal/verification/models"
)

var high = []models.FraudIndicator{{Kind: models.IndicatorTampering, Severity: models.SeverityHigh}}

func TestEvaluate(t *testing.T) {
	cases := []struct {
		name       string
		class      models.DocumentClass
		confidence float64
		indicators []models.FraudIndicator
		want       Decision
	}{
		{
			name:       "high risk class regardless of confidence",
			class:      models.ClassHTBApplication,
			confidence: 0.97,
			want:       Decision{Required: true, Reason: ReasonHighRiskClass, Qualified: true},
		},
		{
			name:       "high risk class wins over fraud and low confidence",
			class:      models.ClassMortgageApproval,
			confidence: 0.1,
			indicators: high,
			want:       Decision{Required: true, Reason: ReasonHighRiskClass, Qualified: true},
		},
		{
			name:       "low provider confidence",
			class:      models.ClassBankStatement,
			confidence: 0.84,
			want:       Decision{Required: true, Reason: ReasonLowConfidence, Qualified: false},
		},
		{
			name:       "low confidence fires before high fraud",
			class:      models.ClassPayslip,
			confidence: 0.80,
			indicators: high,
			want:       Decision{Required: true, Reason: ReasonLowConfidence, Qualified: false},
		},
		{
			name:       "high severity fraud",
			class:      models.ClassPassport,
			confidence: 0.85,
			indicators: high,
			want:       Decision{Required: true, Reason: ReasonHighSeverityFraud, Qualified: true},
		},
		{
			name:       "medium fraud does not require review",
			class:      models.ClassPassport,
			confidence: 0.9,
			indicators: []models.FraudIndicator{{Severity: models.SeverityMedium}},
			want:       Decision{Required: false},
		},
		{
			name:       "no review",
			class:      models.ClassBankStatement,
			confidence: 0.92,
			want:       Decision{Required: false},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Evaluate(tc.class, tc.confidence, tc.indicators)
			assert.Equal(t, tc.want.Required, got.Required)
			assert.Equal(t, tc.want.Reason, got.Reason)
			assert.Equal(t, tc.want.Qualified, got.Qualified)
			assert.NotEmpty(t, got.Reasoning)
			if got.Required {
				assert.NotEmpty(t, got.Reason)
			}
		})
	}
}

func TestHighRiskClassesAlwaysNeedQualifiedReview(t *testing.T) {
	for _, class := range []models.DocumentClass{models.ClassMortgageApproval, models.ClassPropertyContract, models.ClassHTBApplication} {
		for _, conf := range []float64{0, 0.5, 0.85, 1} {
			d := Evaluate(class, conf, nil)
			assert.True(t, d.Required, class)
			assert.True(t, d.Qualified, class)
		}
	}
}

func TestEvaluateIsDeterministic(t *testing.T) {
	first := Evaluate(models.ClassPayslip, 0.9, high)
	for range 10 {
		assert.Equal(t, first, Evaluate(models.ClassPayslip, 0.9, high))
	}
}
