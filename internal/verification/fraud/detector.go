// Package fraud scans provider output and submission metadata for fraud
// indicators.
package fraud

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mssola/useragent"

	"docverify/internal/verification/models"
)

// Provider fields read by the detector.
const (
	FieldTamperingScore   = "tampering_score"
	FieldSyntheticScore   = "synthetic_score"
	FieldDuplicateRegions = "duplicate_regions"
	FieldCopyPasteScore   = "copy_paste_score"
)

const (
	scoreThreshold          = 0.5
	resubmissionConfidence  = 0.95
	incrementalUpdateScore  = 0.6
	automatedClientScore    = 0.6
	doubleExtensionScore    = 0.7
	copyPasteBaseScore      = 0.6
	copyPastePerRegionScore = 0.1
	copyPasteMaxScore       = 0.95
)

// FingerprintStore remembers payload fingerprints across verifications.
type FingerprintStore interface {
	// Remember records fingerprint for documentID unless it is already
	// known, and returns the document ID it was first seen with.
	Remember(ctx context.Context, fingerprint, documentID string) (string, error)
}

// Detector evaluates every indicator class for one document. Indicators are
// additive; a clean document yields none.
type Detector struct {
	store  FingerprintStore
	logger *slog.Logger
}

// Option configures the Detector.
type Option func(*Detector)

func WithLogger(logger *slog.Logger) Option {
	return func(d *Detector) {
		d.logger = logger
	}
}

func New(store FingerprintStore, opts ...Option) (*Detector, error) {
	if store == nil {
		return nil, errors.New("fingerprint store is required")
	}
	d := &Detector{store: store}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Fingerprint returns the hex SHA-256 of the payload.
func Fingerprint(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

// Detect returns the fraud indicators for ev. Only a fingerprint store
// failure is returned as an error.
func (d *Detector) Detect(ctx context.Context, ev models.Evidence) ([]models.FraudIndicator, error) {
	var indicators []models.FraudIndicator

	indicators = append(indicators, tampering(ev)...)
	if ind, ok := scored(ev.Extraction, FieldSyntheticScore, models.IndicatorSyntheticData,
		"document content appears synthetically generated",
		"request original document from issuing institution"); ok {
		indicators = append(indicators, ind)
	}
	if ind, ok := copyPaste(ev.Extraction); ok {
		indicators = append(indicators, ind)
	}

	resub, err := d.resubmission(ctx, ev.Request)
	if err != nil {
		return nil, err
	}
	if resub != nil {
		indicators = append(indicators, *resub)
	}

	indicators = append(indicators, suspiciousPatterns(ev.Request)...)

	if len(indicators) > 0 && d.logger != nil {
		d.logger.InfoContext(ctx, "fraud indicators detected",
			"document_id", ev.Request.DocumentID,
			"count", len(indicators),
			"high_severity", models.HasHighSeverity(indicators),
		)
	}
	return indicators, nil
}

func tampering(ev models.Evidence) []models.FraudIndicator {
	var out []models.FraudIndicator
	if ind, ok := scored(ev.Extraction, FieldTamperingScore, models.IndicatorTampering,
		"provider detected signs of document manipulation",
		"request original document", "verify with issuing institution"); ok {
		out = append(out, ind)
	}
	if updates := pdfIncrementalUpdates(ev.Request.Payload); updates >= 2 {
		out = append(out, indicator(models.IndicatorTampering, incrementalUpdateScore,
			fmt.Sprintf("PDF was modified after creation (%d incremental updates)", updates),
			"request original document"))
	}
	return out
}

func copyPaste(ext *models.Extraction) (models.FraudIndicator, bool) {
	regions, ok := ext.Float(FieldDuplicateRegions)
	if !ok || regions <= 0 {
		return models.FraudIndicator{}, false
	}
	score, ok := ext.Float(FieldCopyPasteScore)
	if !ok {
		score = min(copyPasteMaxScore, copyPasteBaseScore+copyPastePerRegionScore*(regions-1))
	}
	return indicator(models.IndicatorCopyPaste, score,
		fmt.Sprintf("%d duplicated regions detected", int(regions)),
		"inspect duplicated regions manually"), true
}

func (d *Detector) resubmission(ctx context.Context, req models.VerificationRequest) (*models.FraudIndicator, error) {
	if len(req.Payload) == 0 {
		return nil, nil
	}
	first, err := d.store.Remember(ctx, Fingerprint(req.Payload), req.DocumentID)
	if err != nil {
		return nil, fmt.Errorf("remember document fingerprint: %w", err)
	}
	if first == "" || first == req.DocumentID {
		return nil, nil
	}
	ind := indicator(models.IndicatorResubmission, resubmissionConfidence,
		fmt.Sprintf("identical document previously submitted as %s", first),
		"compare with earlier submission", "confirm submitter identity")
	return &ind, nil
}

func suspiciousPatterns(req models.VerificationRequest) []models.FraudIndicator {
	var out []models.FraudIndicator
	if name, ok := automatedClient(req.ClientAgent); ok {
		out = append(out, indicator(models.IndicatorSuspiciousPattern, automatedClientScore,
			fmt.Sprintf("submitted by automated client %s", name),
			"confirm submission was made by the applicant"))
	}
	if inner, ok := doubleExtension(req.Filename); ok {
		out = append(out, indicator(models.IndicatorSuspiciousPattern, doubleExtensionScore,
			fmt.Sprintf("filename carries hidden extension .%s", inner),
			"request document re-upload"))
	}
	return out
}

func scored(ext *models.Extraction, field string, kind models.FraudIndicatorKind, description string, recommendations ...string) (models.FraudIndicator, bool) {
	score, ok := ext.Float(field)
	if !ok || score < scoreThreshold {
		return models.FraudIndicator{}, false
	}
	return indicator(kind, score, fmt.Sprintf("%s (score %.2f)", description, score), recommendations...), true
}

func indicator(kind models.FraudIndicatorKind, score float64, description string, recommendations ...string) models.FraudIndicator {
	return models.FraudIndicator{
		Kind:            kind,
		Severity:        models.SeverityFor(score),
		Confidence:      score,
		Description:     description,
		Recommendations: recommendations,
	}
}

var automationClients = map[string]struct{}{
	"curl":            {},
	"wget":            {},
	"python-requests": {},
	"python-urllib":   {},
	"go-http-client":  {},
	"okhttp":          {},
	"java":            {},
	"httpie":          {},
	"postmanruntime":  {},
	"headlesschrome":  {},
}

func automatedClient(agent string) (string, bool) {
	agent = strings.TrimSpace(agent)
	if agent == "" {
		return "", false
	}
	ua := useragent.New(agent)
	name, _ := ua.Browser()
	if ua.Bot() {
		return name, true
	}
	if _, ok := automationClients[strings.ToLower(name)]; ok {
		return name, true
	}
	if strings.Contains(strings.ToLower(agent), "headless") {
		return "headless browser", true
	}
	return "", false
}

var knownExtensions = map[string]struct{}{
	"pdf": {}, "jpg": {}, "jpeg": {}, "png": {}, "tif": {}, "tiff": {}, "doc": {}, "docx": {},
	"exe": {}, "scr": {}, "bat": {}, "cmd": {}, "js": {}, "vbs": {}, "ps1": {}, "sh": {}, "jar": {}, "com": {}, "zip": {},
}

// doubleExtension reports an inner extension hidden before the final one,
// as in "payslip.pdf.exe".
func doubleExtension(filename string) (string, bool) {
	parts := strings.Split(strings.ToLower(strings.TrimSpace(filename)), ".")
	if len(parts) < 3 {
		return "", false
	}
	for _, p := range parts[1 : len(parts)-1] {
		if _, ok := knownExtensions[p]; ok {
			return p, true
		}
	}
	return "", false
}
