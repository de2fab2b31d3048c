package models

import "time"

// VerificationRequest identifies one document submission. It is built by the
// caller and consumed once by the pipeline; nothing downstream mutates it.
type VerificationRequest struct {
	DocumentID    string
	Class         DocumentClass
	Payload       []byte
	Filename      string
	MIMEType      string
	SubmitterID   string
	SessionID     string
	ClientAddress string
	ClientAgent   string
	ConsentAt     time.Time
}

// Validate checks the fields every verification needs before any stage runs.
func (r VerificationRequest) Validate() error {
	switch {
	case r.DocumentID == "":
		return &ValidationError{Field: "document_id", Reason: "document id is required"}
	case r.SubmitterID == "":
		return &ValidationError{Field: "submitter_id", Reason: "submitter id is required"}
	case len(r.Payload) == 0:
		return &ValidationError{Field: "payload", Reason: "document payload is empty"}
	case r.Class == "":
		return &ValidationError{Field: "document_class", Reason: "document class is required"}
	}
	return nil
}
