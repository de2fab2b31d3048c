package authenticity

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"docverify/internal/verification/models"
	"docverify/internal/verification/security"
)

// Provider fields read by the default checks.
const (
	FieldSignatureValid      = "signature_valid"
	FieldSignatureConfidence = "signature_confidence"
	FieldWatermarkDetected   = "watermark_detected"
	FieldWatermarkConfidence = "watermark_confidence"
	FieldDocumentClass       = "document_class"
	FieldFontConsistency     = "font_consistency"
	FieldLayoutScore         = "layout_score"
)

const (
	defaultProviderConfidence = 0.9
	embeddedSignatureScore    = 0.75
	metadataConsistentScore   = 0.9
	metadataIssuePenalty      = 0.3
	analysisPassThreshold     = 0.7
)

// DigitalSignature trusts the provider verdict when present. Otherwise a PDF
// carrying a signature dictionary counts as signed with reduced confidence.
func DigitalSignature(_ context.Context, ev models.Evidence) (models.AuthenticityCheck, error) {
	res := models.AuthenticityCheck{Kind: models.CheckDigitalSignature}
	if valid, ok := ev.Extraction.Bool(FieldSignatureValid); ok {
		res.Passed = valid
		res.Confidence = floatOr(ev.Extraction, FieldSignatureConfidence, defaultProviderConfidence)
		if valid {
			res.Details = "provider verified digital signature"
		} else {
			res.Details = "provider reported invalid digital signature"
		}
		return res, nil
	}
	if hasPDFSignature(ev.Request.Payload) {
		res.Passed = true
		res.Confidence = embeddedSignatureScore
		res.Details = "embedded PDF signature dictionary present"
		return res, nil
	}
	res.Details = "no digital signature found"
	return res, nil
}

// Watermark relies on provider watermark detection.
func Watermark(_ context.Context, ev models.Evidence) (models.AuthenticityCheck, error) {
	res := models.AuthenticityCheck{Kind: models.CheckWatermark}
	detected, ok := ev.Extraction.Bool(FieldWatermarkDetected)
	if !ok {
		res.Details = "watermark not assessed by provider"
		return res, nil
	}
	res.Passed = detected
	res.Confidence = floatOr(ev.Extraction, FieldWatermarkConfidence, defaultProviderConfidence)
	if detected {
		res.Details = "expected watermark detected"
	} else {
		res.Details = "expected watermark missing"
	}
	return res, nil
}

// Metadata cross-checks the declared type, the sniffed content, the filename
// extension and the class the provider recognised.
func Metadata(_ context.Context, ev models.Evidence) (models.AuthenticityCheck, error) {
	var issues []string
	declared := strings.ToLower(strings.TrimSpace(ev.Request.MIMEType))

	if ev.ContentType != "" && declared != "" && !sameType(declared, ev.ContentType) {
		issues = append(issues, fmt.Sprintf("declared type %s but content is %s", declared, ev.ContentType))
	}
	if ext := strings.ToLower(filepath.Ext(ev.Request.Filename)); ext != "" && declared != "" {
		if !extensionMatches(declared, ext) {
			issues = append(issues, fmt.Sprintf("extension %s does not match type %s", ext, declared))
		}
	}
	if reported, ok := ev.Extraction.String(FieldDocumentClass); ok && reported != "" {
		if !strings.EqualFold(reported, string(ev.Request.Class)) {
			issues = append(issues, fmt.Sprintf("provider recognised %s, submitted as %s", reported, ev.Request.Class))
		}
	}

	if len(issues) == 0 {
		return models.AuthenticityCheck{
			Kind:       models.CheckMetadata,
			Passed:     true,
			Confidence: metadataConsistentScore,
			Details:    "metadata consistent",
		}, nil
	}
	return models.AuthenticityCheck{
		Kind:       models.CheckMetadata,
		Passed:     false,
		Confidence: max(0, metadataConsistentScore-metadataIssuePenalty*float64(len(issues))),
		Details:    strings.Join(issues, "; "),
	}, nil
}

// FontAnalysis passes when the provider font consistency score clears the
// threshold.
func FontAnalysis(_ context.Context, ev models.Evidence) (models.AuthenticityCheck, error) {
	return scoreCheck(ev, models.CheckFontAnalysis, FieldFontConsistency, "font consistency")
}

// Layout passes when the provider layout score clears the threshold.
func Layout(_ context.Context, ev models.Evidence) (models.AuthenticityCheck, error) {
	return scoreCheck(ev, models.CheckLayout, FieldLayoutScore, "layout match")
}

func scoreCheck(ev models.Evidence, kind models.AuthenticityCheckKind, field, label string) (models.AuthenticityCheck, error) {
	score, ok := ev.Extraction.Float(field)
	if !ok {
		return models.AuthenticityCheck{Kind: kind, Details: label + " not assessed by provider"}, nil
	}
	return models.AuthenticityCheck{
		Kind:       kind,
		Passed:     score >= analysisPassThreshold,
		Confidence: score,
		Details:    fmt.Sprintf("%s score %.2f", label, score),
	}, nil
}

func hasPDFSignature(payload []byte) bool {
	return bytes.HasPrefix(payload, []byte("%PDF-")) &&
		bytes.Contains(payload, []byte("/ByteRange")) &&
		bytes.Contains(payload, []byte("/Sig"))
}

func sameType(declared, sniffed string) bool {
	if declared == sniffed {
		return true
	}
	return security.CompatibleContent(declared, mimetype.Lookup(sniffed))
}

var extensionAliases = map[string][]string{
	"image/jpeg":         {".jpg", ".jpeg"},
	"image/tiff":         {".tif", ".tiff"},
	"application/msword": {".doc"},
}

func extensionMatches(declared, ext string) bool {
	if aliases, ok := extensionAliases[declared]; ok {
		for _, a := range aliases {
			if a == ext {
				return true
			}
		}
		return false
	}
	if m := mimetype.Lookup(declared); m != nil {
		return m.Extension() == ext
	}
	return true
}

func floatOr(ext *models.Extraction, key string, fallback float64) float64 {
	if v, ok := ext.Float(key); ok {
		return v
	}
	return fallback
}
