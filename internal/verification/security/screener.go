// Package security screens raw uploads before any extraction happens.
package security

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"docverify/internal/verification/models"
	pstrings "docverify/pkg/platform/strings"
)

// MaxPayloadSize is the largest accepted upload.
const MaxPayloadSize = 50 << 20

// DefaultAllowedMIMETypes lists the accepted declared content types.
var DefaultAllowedMIMETypes = []string{
	"application/pdf",
	"image/jpeg",
	"image/png",
	"image/tiff",
	"application/msword",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
}

// CheckName identifies one screening check.
type CheckName string

const (
	CheckSize        CheckName = "size"
	CheckMIMEType    CheckName = "mime_type"
	CheckContentType CheckName = "content_type"
	CheckMalware     CheckName = "malware"
	CheckRateLimit   CheckName = "rate_limit"
)

// ScanResult is the verdict of a malware scanner.
type ScanResult struct {
	Clean  bool
	Detail string
}

// MalwareScanner inspects payload bytes.
type MalwareScanner interface {
	Scan(ctx context.Context, payload []byte) (ScanResult, error)
}

// RateDecision is the verdict of a rate limiter.
type RateDecision struct {
	Exceeded bool
	Detail   string
}

// RateLimiter meters uploads per submitter and client address.
type RateLimiter interface {
	Check(ctx context.Context, submitterID, clientAddress string) (RateDecision, error)
}

// Upload is the raw material screened before processing.
type Upload struct {
	Payload       []byte
	MIMEType      string
	Filename      string
	SubmitterID   string
	ClientAddress string
}

// CheckResult is the outcome of one screening check.
type CheckResult struct {
	Name   CheckName
	Passed bool
	Detail string
}

// Report lists every screening check in evaluation order.
type Report struct {
	Checks      []CheckResult
	ContentType string
}

// Passed reports whether every check passed.
func (r Report) Passed() bool {
	for _, c := range r.Checks {
		if !c.Passed {
			return false
		}
	}
	return true
}

// Err returns a SecurityError listing every failed check, or nil.
func (r Report) Err() error {
	var secErr *models.SecurityError
	for _, c := range r.Checks {
		if c.Passed {
			continue
		}
		if secErr == nil {
			secErr = &models.SecurityError{}
		}
		secErr.Failed = append(secErr.Failed, string(c.Name))
		secErr.Details = append(secErr.Details, c.Detail)
		if c.Name == CheckRateLimit {
			secErr.RateLimited = true
		}
	}
	if secErr == nil {
		return nil
	}
	return secErr
}

// Screener runs the upload checks. Every check runs regardless of earlier
// failures so the report is complete.
type Screener struct {
	scanner MalwareScanner
	limiter RateLimiter
	logger  *slog.Logger
	maxSize int
	allowed map[string]struct{}
}

// Option configures the Screener.
type Option func(*Screener)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Screener) {
		s.logger = logger
	}
}

// WithMaxSize overrides MaxPayloadSize.
func WithMaxSize(n int) Option {
	return func(s *Screener) {
		if n > 0 {
			s.maxSize = n
		}
	}
}

// WithAllowedMIMETypes replaces the allow-list.
func WithAllowedMIMETypes(types []string) Option {
	return func(s *Screener) {
		types = pstrings.DedupeFold(types)
		if len(types) == 0 {
			return
		}
		s.allowed = toSet(types)
	}
}

func New(scanner MalwareScanner, limiter RateLimiter, opts ...Option) (*Screener, error) {
	if scanner == nil {
		return nil, errors.New("malware scanner is required")
	}
	if limiter == nil {
		return nil, errors.New("rate limiter is required")
	}
	s := &Screener{
		scanner: scanner,
		limiter: limiter,
		maxSize: MaxPayloadSize,
		allowed: toSet(DefaultAllowedMIMETypes),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Screen evaluates the upload. Collaborator failures are reported as failed
// checks, never as errors.
func (s *Screener) Screen(ctx context.Context, u Upload) Report {
	declared := normalizeMIME(u.MIMEType)
	sniffed := mimetype.Detect(u.Payload)
	report := Report{ContentType: normalizeMIME(sniffed.String())}

	report.Checks = append(report.Checks,
		s.checkSize(u),
		s.checkMIMEType(declared),
		checkContentType(declared, sniffed),
		s.checkMalware(ctx, u),
		s.checkRateLimit(ctx, u),
	)

	if !report.Passed() && s.logger != nil {
		s.logger.WarnContext(ctx, "upload rejected by security screening",
			"submitter_id", u.SubmitterID,
			"filename", u.Filename,
			"error", report.Err(),
		)
	}
	return report
}

func (s *Screener) checkSize(u Upload) CheckResult {
	if len(u.Payload) > s.maxSize {
		return CheckResult{Name: CheckSize, Detail: fmt.Sprintf("file size %d bytes exceeds limit of %d bytes", len(u.Payload), s.maxSize)}
	}
	return CheckResult{Name: CheckSize, Passed: true, Detail: fmt.Sprintf("file size %d bytes within limit", len(u.Payload))}
}

func (s *Screener) checkMIMEType(declared string) CheckResult {
	if _, ok := s.allowed[declared]; !ok {
		return CheckResult{Name: CheckMIMEType, Detail: fmt.Sprintf("file type %q is not allowed", declared)}
	}
	return CheckResult{Name: CheckMIMEType, Passed: true, Detail: fmt.Sprintf("file type %s allowed", declared)}
}

func checkContentType(declared string, sniffed *mimetype.MIME) CheckResult {
	if CompatibleContent(declared, sniffed) {
		return CheckResult{Name: CheckContentType, Passed: true, Detail: "content compatible with declared type"}
	}
	return CheckResult{Name: CheckContentType, Detail: fmt.Sprintf("declared type %s does not match detected content %s", declared, sniffed.String())}
}

// CompatibleContent reports whether sniffed content can carry the declared
// type. Office formats share container signatures, so an ancestor match or a
// known container counts.
func CompatibleContent(declared string, sniffed *mimetype.MIME) bool {
	if sniffed == nil {
		return false
	}
	for m := sniffed; m != nil; m = m.Parent() {
		if m.Is(declared) {
			return true
		}
	}
	switch declared {
	case "application/msword":
		return sniffed.Is("application/x-ole-storage")
	case "application/vnd.openxmlformats-officedocument.wordprocessingml.document":
		return sniffed.Is("application/zip")
	}
	return false
}

func (s *Screener) checkMalware(ctx context.Context, u Upload) CheckResult {
	res, err := s.scanner.Scan(ctx, u.Payload)
	if err != nil {
		return CheckResult{Name: CheckMalware, Detail: "malware scan unavailable: " + err.Error()}
	}
	if !res.Clean {
		return CheckResult{Name: CheckMalware, Detail: "malware detected: " + res.Detail}
	}
	return CheckResult{Name: CheckMalware, Passed: true, Detail: nonEmpty(res.Detail, "no threats detected")}
}

func (s *Screener) checkRateLimit(ctx context.Context, u Upload) CheckResult {
	dec, err := s.limiter.Check(ctx, u.SubmitterID, u.ClientAddress)
	if err != nil {
		return CheckResult{Name: CheckRateLimit, Detail: "rate limit check unavailable: " + err.Error()}
	}
	if dec.Exceeded {
		return CheckResult{Name: CheckRateLimit, Detail: "rate limit exceeded: " + dec.Detail}
	}
	return CheckResult{Name: CheckRateLimit, Passed: true, Detail: nonEmpty(dec.Detail, "within rate limit")}
}

func normalizeMIME(v string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	if mt, _, err := mime.ParseMediaType(v); err == nil {
		return mt
	}
	return v
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}

func nonEmpty(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
