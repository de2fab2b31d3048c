package providers

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrorCategory normalizes why an extraction call failed.
type ErrorCategory string

const (
	ErrorTimeout        ErrorCategory = "timeout"
	ErrorBadData        ErrorCategory = "bad_data"
	ErrorAuthentication ErrorCategory = "authentication"
	ErrorProviderOutage ErrorCategory = "provider_outage"
	// ErrorRejected means the provider refused this document, for example
	// because it is unreadable.
	ErrorRejected    ErrorCategory = "rejected"
	ErrorRateLimited ErrorCategory = "rate_limited"
	ErrorInternal    ErrorCategory = "internal"
)

// transient categories describe provider availability, not the document.
var transient = map[ErrorCategory]bool{
	ErrorTimeout:        true,
	ErrorProviderOutage: true,
	ErrorRateLimited:    true,
}

// ErrProviderNotFound reports a routing entry naming an unregistered provider.
var ErrProviderNotFound = errors.New("provider not found")

// ProviderError is the only error shape a failed extraction produces.
// Retryable is advisory: nothing in the pipeline retries, but the circuit
// breaker counts retryable failures against the provider.
type ProviderError struct {
	Category   ErrorCategory
	ProviderID string
	Message    string
	Underlying error
	Retryable  bool
}

func NewProviderError(category ErrorCategory, providerID, message string, underlying error) *ProviderError {
	return &ProviderError{
		Category:   category,
		ProviderID: providerID,
		Message:    message,
		Underlying: underlying,
		Retryable:  transient[category],
	}
}

func (e *ProviderError) Error() string {
	msg := fmt.Sprintf("provider %s [%s]: %s", e.ProviderID, e.Category, e.Message)
	if e.Underlying != nil {
		msg += ": " + e.Underlying.Error()
	}
	return msg
}

func (e *ProviderError) Unwrap() error {
	return e.Underlying
}

// Classify turns any provider call failure into a *ProviderError. Errors that
// already are one keep their category and gain the provider ID if missing.
func Classify(providerID string, err error) *ProviderError {
	if err == nil {
		return nil
	}
	if pe := asProviderError(err); pe != nil {
		if pe.ProviderID == "" {
			pe.ProviderID = providerID
		}
		return pe
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return NewProviderError(ErrorTimeout, providerID, "extraction timed out", err)
	}
	var netErr net.Error
	if !errors.As(err, &netErr) {
		return NewProviderError(ErrorInternal, providerID, "extraction failed", err)
	}
	if netErr.Timeout() {
		return NewProviderError(ErrorTimeout, providerID, "extraction timed out", err)
	}
	return NewProviderError(ErrorProviderOutage, providerID, "provider unreachable", err)
}

// IsRetryable reports whether err is a transient provider failure.
func IsRetryable(err error) bool {
	pe := asProviderError(err)
	return pe != nil && pe.Retryable
}

// GetCategory returns the category of err, or ErrorInternal when err is not
// a provider error.
func GetCategory(err error) ErrorCategory {
	if pe := asProviderError(err); pe != nil {
		return pe.Category
	}
	return ErrorInternal
}

func asProviderError(err error) *ProviderError {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe
	}
	return nil
}
