// Package consent validates the consent a submitter recorded before upload.
package consent

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"docverify/internal/verification/models"
)

const (
	// DefaultMaxAge is how long recorded consent stays usable.
	DefaultMaxAge = 24 * time.Hour
	// DefaultClockSkew tolerates consent stamped slightly ahead of the server clock.
	DefaultClockSkew = 5 * time.Minute

	defaultPurpose     = "document_verification"
	defaultLawfulBasis = "consent"
)

// Validator enforces consent freshness.
type Validator struct {
	maxAge      time.Duration
	skew        time.Duration
	purpose     string
	lawfulBasis string
}

// Option configures the Validator.
type Option func(*Validator)

// WithMaxAge overrides DefaultMaxAge.
func WithMaxAge(d time.Duration) Option {
	return func(v *Validator) {
		if d > 0 {
			v.maxAge = d
		}
	}
}

// WithClockSkew overrides DefaultClockSkew.
func WithClockSkew(d time.Duration) Option {
	return func(v *Validator) {
		if d >= 0 {
			v.skew = d
		}
	}
}

// WithPurpose sets the processing purpose stamped on consent records.
func WithPurpose(purpose string) Option {
	return func(v *Validator) {
		if purpose != "" {
			v.purpose = purpose
		}
	}
}

func NewValidator(opts ...Option) *Validator {
	v := &Validator{
		maxAge:      DefaultMaxAge,
		skew:        DefaultClockSkew,
		purpose:     defaultPurpose,
		lawfulBasis: defaultLawfulBasis,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Validate returns a ConsentError when consent is missing, stamped in the
// future beyond the skew tolerance, or older than the maximum age.
func (v *Validator) Validate(consentAt, now time.Time) error {
	if consentAt.IsZero() {
		return &models.ConsentError{Reason: "consent has not been recorded"}
	}
	if consentAt.After(now.Add(v.skew)) {
		return &models.ConsentError{Reason: "consent timestamp is in the future", ConsentAt: consentAt}
	}
	if age := now.Sub(consentAt); age > v.maxAge {
		return &models.ConsentError{
			Reason:    fmt.Sprintf("consent expired: recorded %s ago, maximum %s", age.Truncate(time.Minute), v.maxAge),
			ConsentAt: consentAt,
		}
	}
	return nil
}

// Snapshot builds the consent record attached to a result. The client address
// is stored as a hash only.
func (v *Validator) Snapshot(req models.VerificationRequest, verifiedAt time.Time) models.ConsentRecord {
	record := models.ConsentRecord{
		ConsentedAt: req.ConsentAt,
		VerifiedAt:  verifiedAt,
		Purpose:     v.purpose,
		LawfulBasis: v.lawfulBasis,
		ValidUntil:  req.ConsentAt.Add(v.maxAge),
		SubmitterID: req.SubmitterID,
		SessionID:   req.SessionID,
	}
	if req.ClientAddress != "" {
		sum := sha256.Sum256([]byte(req.ClientAddress))
		record.ClientIPHash = hex.EncodeToString(sum[:])
	}
	return record
}
