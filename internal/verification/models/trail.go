package models

import "time"

// StepStatus is the lifecycle state of a processing step.
type StepStatus string

const (
	StepRunning   StepStatus = "running"
	StepCompleted StepStatus = "completed"
	StepFailed    StepStatus = "failed"
	StepAborted   StepStatus = "aborted"
)

// ProcessingStep records one pipeline stage.
type ProcessingStep struct {
	Name      string        `json:"name"`
	StartedAt time.Time     `json:"started_at"`
	EndedAt   time.Time     `json:"ended_at"`
	Status    StepStatus    `json:"status"`
	Details   string        `json:"details,omitempty"`
	Duration  time.Duration `json:"duration"`
}

// DataAccessLog records who touched the document and why.
type DataAccessLog struct {
	Timestamp     time.Time `json:"timestamp"`
	Accessor      string    `json:"accessor"`
	Resource      string    `json:"resource"`
	Action        string    `json:"action"`
	Purpose       string    `json:"purpose"`
	ClientAddress string    `json:"client_address,omitempty"`
	ClientAgent   string    `json:"client_agent,omitempty"`
}

// DecisionType names an automated determination logged to the trail.
type DecisionType string

const (
	DecisionHumanReview   DecisionType = "human_review"
	DecisionCertification DecisionType = "certification"
)

// DecisionLog records an automated determination and its reasoning.
type DecisionLog struct {
	Timestamp           time.Time    `json:"timestamp"`
	Type                DecisionType `json:"type"`
	Outcome             string       `json:"outcome"`
	Confidence          float64      `json:"confidence"`
	Reasoning           string       `json:"reasoning"`
	Automated           bool         `json:"automated"`
	HumanReviewRequired bool         `json:"human_review_required"`
}

// ComplianceOutcome grades a compliance check.
type ComplianceOutcome string

const (
	CompliancePass    ComplianceOutcome = "pass"
	ComplianceFail    ComplianceOutcome = "fail"
	ComplianceWarning ComplianceOutcome = "warning"
)

// ComplianceCheck records one regulatory check.
type ComplianceCheck struct {
	Type      string            `json:"type"`
	Outcome   ComplianceOutcome `json:"outcome"`
	Details   string            `json:"details"`
	Timestamp time.Time         `json:"timestamp"`
}

// AuditTrail is the append-only record of one verification. CompletedAt is
// zero until the trail is sealed.
type AuditTrail struct {
	VerificationID   string            `json:"verification_id"`
	InitiatedBy      string            `json:"initiated_by"`
	DocumentClass    DocumentClass     `json:"document_class"`
	StartedAt        time.Time         `json:"started_at"`
	Steps            []ProcessingStep  `json:"steps"`
	DataAccess       []DataAccessLog   `json:"data_access"`
	Decisions        []DecisionLog     `json:"decisions"`
	ComplianceChecks []ComplianceCheck `json:"compliance_checks"`
	CompletedAt      time.Time         `json:"completed_at"`
}

// Sealed reports whether the trail has been completed.
func (t *AuditTrail) Sealed() bool {
	return !t.CompletedAt.IsZero()
}

// Step returns the first step with the given name.
func (t *AuditTrail) Step(name string) (ProcessingStep, bool) {
	for _, s := range t.Steps {
		if s.Name == name {
			return s, true
		}
	}
	return ProcessingStep{}, false
}
