package models

import (
	"fmt"
	"strings"
	"time"
)

// ConsentError aborts a verification before any data leaves the boundary.
type ConsentError struct {
	Reason    string
	ConsentAt time.Time
}

func (e *ConsentError) Error() string {
	return "consent rejected: " + e.Reason
}

// SecurityError aborts a verification before provider invocation. Details
// holds the detail of every failed check.
type SecurityError struct {
	Failed      []string
	Details     []string
	RateLimited bool
}

func (e *SecurityError) Error() string {
	return "security screening failed: " + strings.Join(e.Details, "; ")
}

// ValidationError reports a request that cannot be processed as submitted.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Reason
	}
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Reason)
}
