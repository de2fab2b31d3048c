// Package audit records the processing trail of a single verification.
//
// A Recorder owns exactly one trail and is not safe for use by more than one
// pipeline. Entries are append-only; Seal stamps CompletedAt exactly once and
// rejects every append afterwards.
package audit

import (
	"errors"
	"fmt"
	"time"

	"docverify/internal/verification/models"
	"docverify/pkg/platform/sentinel"
)

// ErrSealed is returned for appends or a second Seal on a completed trail.
var ErrSealed = fmt.Errorf("audit trail sealed: %w", sentinel.ErrAlreadyUsed)

// Recorder appends entries to one AuditTrail.
type Recorder struct {
	trail *models.AuditTrail
	clock func() time.Time
}

// NewRecorder starts a trail for verificationID initiated by initiator.
func NewRecorder(verificationID, initiator string, class models.DocumentClass, clock func() time.Time) *Recorder {
	if clock == nil {
		clock = time.Now
	}
	return &Recorder{
		trail: &models.AuditTrail{
			VerificationID:   verificationID,
			InitiatedBy:      initiator,
			DocumentClass:    class,
			StartedAt:        clock(),
			Steps:            []models.ProcessingStep{},
			DataAccess:       []models.DataAccessLog{},
			Decisions:        []models.DecisionLog{},
			ComplianceChecks: []models.ComplianceCheck{},
		},
		clock: clock,
	}
}

// Step is a handle on a running processing step.
type Step struct {
	r   *Recorder
	idx int
}

// StartStep appends a running step.
func (r *Recorder) StartStep(name string) (*Step, error) {
	if r.trail.Sealed() {
		return nil, ErrSealed
	}
	r.trail.Steps = append(r.trail.Steps, models.ProcessingStep{
		Name:      name,
		StartedAt: r.clock(),
		Status:    models.StepRunning,
	})
	return &Step{r: r, idx: len(r.trail.Steps) - 1}, nil
}

// Complete marks the step completed.
func (s *Step) Complete(details string) {
	s.finish(models.StepCompleted, details)
}

// Fail marks the step failed with the error text as detail.
func (s *Step) Fail(err error) {
	details := ""
	if err != nil {
		details = err.Error()
	}
	s.finish(models.StepFailed, details)
}

func (s *Step) finish(status models.StepStatus, details string) {
	step := &s.r.trail.Steps[s.idx]
	if step.Status != models.StepRunning {
		return
	}
	step.EndedAt = s.r.clock()
	step.Duration = step.EndedAt.Sub(step.StartedAt)
	step.Status = status
	step.Details = details
}

// LogDataAccess appends a data access entry.
func (r *Recorder) LogDataAccess(entry models.DataAccessLog) error {
	if r.trail.Sealed() {
		return ErrSealed
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = r.clock()
	}
	r.trail.DataAccess = append(r.trail.DataAccess, entry)
	return nil
}

// LogDecision appends a decision entry.
func (r *Recorder) LogDecision(entry models.DecisionLog) error {
	if r.trail.Sealed() {
		return ErrSealed
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = r.clock()
	}
	r.trail.Decisions = append(r.trail.Decisions, entry)
	return nil
}

// RecordCompliance appends a compliance check.
func (r *Recorder) RecordCompliance(check models.ComplianceCheck) error {
	if r.trail.Sealed() {
		return ErrSealed
	}
	if check.Timestamp.IsZero() {
		check.Timestamp = r.clock()
	}
	r.trail.ComplianceChecks = append(r.trail.ComplianceChecks, check)
	return nil
}

// Seal stamps CompletedAt. Steps still running are marked aborted.
func (r *Recorder) Seal() (*models.AuditTrail, error) {
	if r.trail.Sealed() {
		return nil, ErrSealed
	}
	now := r.clock()
	for i := range r.trail.Steps {
		if r.trail.Steps[i].Status == models.StepRunning {
			r.trail.Steps[i].Status = models.StepAborted
			r.trail.Steps[i].EndedAt = now
			r.trail.Steps[i].Duration = now.Sub(r.trail.Steps[i].StartedAt)
		}
	}
	r.trail.CompletedAt = now
	return r.trail, nil
}

// Trail returns the trail being recorded. Callers must not mutate it.
func (r *Recorder) Trail() *models.AuditTrail {
	return r.trail
}

// IsSealed reports whether err came from an append on a sealed trail.
func IsSealed(err error) bool {
	return errors.Is(err, ErrSealed)
}
