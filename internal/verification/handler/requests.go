package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"docverify/internal/verification/models"
	"docverify/internal/verification/security"
	dErrors "docverify/pkg/domain-errors"
	"docverify/pkg/requestcontext"
)

const (
	formFile       = "file"
	formDocumentID = "document_id"
	formClass      = "document_class"
	formSessionID  = "session_id"
	formConsentAt  = "consent_at"

	// multipartOverhead covers form fields and part headers on top of the
	// file itself.
	multipartOverhead = 1 << 20
	maxFieldLength    = 256
)

// verifyForm is the parsed multipart body of POST /verifications.
type verifyForm struct {
	documentID string
	class      models.DocumentClass
	sessionID  string
	consentRaw string
	consentAt  time.Time
	filename   string
	mimeType   string
	payload    []byte
}

// parseVerifyForm reads at most maxUpload+1 payload bytes so oversized files
// reach security screening and are rejected there with a size failure. A body
// past the hard cap is rejected here with the same size failure.
func parseVerifyForm(w http.ResponseWriter, r *http.Request, maxUpload int64) (*verifyForm, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUpload+multipartOverhead)
	mr, err := r.MultipartReader()
	if err != nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "request must be multipart/form-data")
	}

	form := &verifyForm{}
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, bodyError(err, maxUpload, "malformed multipart body")
		}
		err = form.readPart(part, maxUpload)
		_ = part.Close()
		if err != nil {
			return nil, bodyError(err, maxUpload, "failed to read multipart body")
		}
	}
	return form.finish()
}

// readPart stores one multipart part. The caller closes the part.
func (f *verifyForm) readPart(part *multipart.Part, maxUpload int64) error {
	var err error
	switch part.FormName() {
	case formFile:
		if f.payload != nil {
			return dErrors.New(dErrors.CodeBadRequest, "exactly one file is allowed")
		}
		f.filename = part.FileName()
		f.mimeType = partMIMEType(part.Header.Get("Content-Type"))
		f.payload, err = io.ReadAll(io.LimitReader(part, maxUpload+1))
	case formDocumentID:
		f.documentID, err = readField(part)
	case formClass:
		var raw string
		if raw, err = readField(part); err == nil {
			if f.class, err = models.ParseDocumentClass(raw); err != nil {
				return dErrors.Wrap(err, dErrors.CodeBadRequest, err.Error())
			}
		}
	case formSessionID:
		f.sessionID, err = readField(part)
	case formConsentAt:
		f.consentRaw, err = readField(part)
	}
	return err
}

// bodyError maps a body read failure. Hitting the body cap means the upload
// is far past the size limit, which is a security rejection like any other
// oversize file.
func bodyError(err error, maxUpload int64, msg string) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		secErr := &models.SecurityError{
			Failed:  []string{string(security.CheckSize)},
			Details: []string{fmt.Sprintf("request body exceeds limit of %d bytes", maxUpload)},
		}
		return dErrors.Wrap(secErr, dErrors.CodeSecurityRejected, secErr.Error())
	}
	var de *dErrors.Error
	if errors.As(err, &de) {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeBadRequest, msg)
}

func (f *verifyForm) finish() (*verifyForm, error) {
	var err error
	switch {
	case len(f.payload) == 0:
		return nil, dErrors.New(dErrors.CodeBadRequest, "file is required")
	case f.class == "":
		return nil, dErrors.New(dErrors.CodeBadRequest, "document_class is required")
	case f.consentRaw == "":
		return nil, dErrors.New(dErrors.CodeMissingConsent, "consent_at is required")
	}
	f.consentAt, err = time.Parse(time.RFC3339, f.consentRaw)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "consent_at must be an RFC3339 timestamp")
	}
	if f.documentID == "" {
		f.documentID = uuid.NewString()
	}
	return f, nil
}

func (f *verifyForm) toRequest(ctx context.Context, submitterID string) models.VerificationRequest {
	session := f.sessionID
	if session == "" {
		session = requestcontext.SessionID(ctx)
	}
	return models.VerificationRequest{
		DocumentID:    f.documentID,
		Class:         f.class,
		Payload:       f.payload,
		Filename:      f.filename,
		MIMEType:      f.mimeType,
		SubmitterID:   submitterID,
		SessionID:     session,
		ClientAddress: requestcontext.ClientIP(ctx),
		ClientAgent:   requestcontext.UserAgent(ctx),
		ConsentAt:     f.consentAt,
	}
}

func readField(r io.Reader) (string, error) {
	b, err := io.ReadAll(io.LimitReader(r, maxFieldLength+1))
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeBadRequest, "failed to read form field")
	}
	if len(b) > maxFieldLength {
		return "", dErrors.New(dErrors.CodeBadRequest, fmt.Sprintf("form fields must be at most %d bytes", maxFieldLength))
	}
	return strings.TrimSpace(string(b)), nil
}

func partMIMEType(header string) string {
	if header == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(header)
	if err != nil {
		return header
	}
	return mt
}
