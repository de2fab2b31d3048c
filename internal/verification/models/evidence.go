package models

import "time"

// AuthenticityCheckKind names one authenticity check.
type AuthenticityCheckKind string

const (
	CheckDigitalSignature AuthenticityCheckKind = "digital_signature"
	CheckWatermark        AuthenticityCheckKind = "watermark"
	CheckMetadata         AuthenticityCheckKind = "metadata"
	CheckFontAnalysis     AuthenticityCheckKind = "font_analysis"
	CheckLayout           AuthenticityCheckKind = "layout"
)

// AuthenticityCheck is the outcome of one check. A failed check is data, not
// an error.
type AuthenticityCheck struct {
	Kind       AuthenticityCheckKind `json:"kind"`
	Passed     bool                  `json:"passed"`
	Confidence float64               `json:"confidence"`
	Details    string                `json:"details"`
	Evidence   []byte                `json:"evidence,omitempty"`
}

// FraudIndicatorKind names a class of fraud signal.
type FraudIndicatorKind string

const (
	IndicatorTampering         FraudIndicatorKind = "document_tampering"
	IndicatorSyntheticData     FraudIndicatorKind = "synthetic_data"
	IndicatorCopyPaste         FraudIndicatorKind = "copy_paste"
	IndicatorResubmission      FraudIndicatorKind = "resubmission"
	IndicatorSuspiciousPattern FraudIndicatorKind = "suspicious_pattern"
)

// Severity grades a fraud indicator.
type Severity string

const (
	SeverityHigh   Severity = "HIGH"
	SeverityMedium Severity = "MEDIUM"
	SeverityLow    Severity = "LOW"
)

// SeverityFor grades a detector score in [0,1].
func SeverityFor(score float64) Severity {
	switch {
	case score >= 0.8:
		return SeverityHigh
	case score >= 0.6:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// FraudIndicator is one detected fraud signal. Several may fire for the same
// document.
type FraudIndicator struct {
	Kind            FraudIndicatorKind `json:"kind"`
	Severity        Severity           `json:"severity"`
	Confidence      float64            `json:"confidence"`
	Description     string             `json:"description"`
	Recommendations []string           `json:"recommendations"`
}

// HasHighSeverity reports whether any indicator is HIGH.
func HasHighSeverity(indicators []FraudIndicator) bool {
	for _, ind := range indicators {
		if ind.Severity == SeverityHigh {
			return true
		}
	}
	return false
}

// Extraction is the normalized output of an extraction provider.
type Extraction struct {
	ProviderID  string            `json:"provider_id"`
	Confidence  float64           `json:"confidence"`
	Fields      map[string]any    `json:"fields"`
	ExtractedAt time.Time         `json:"extracted_at"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// Float returns a numeric provider field.
func (e *Extraction) Float(key string) (float64, bool) {
	if e == nil {
		return 0, false
	}
	switch v := e.Fields[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}

// Bool returns a boolean provider field.
func (e *Extraction) Bool(key string) (bool, bool) {
	if e == nil {
		return false, false
	}
	v, ok := e.Fields[key].(bool)
	return v, ok
}

// String returns a string provider field.
func (e *Extraction) String(key string) (string, bool) {
	if e == nil {
		return "", false
	}
	v, ok := e.Fields[key].(string)
	return v, ok
}

// Evidence bundles what the authenticity checker and fraud detector inspect:
// the original request, the provider output and the sniffed content type.
type Evidence struct {
	Request     VerificationRequest
	Extraction  *Extraction
	ContentType string
}
