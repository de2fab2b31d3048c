// Package handler exposes document verification over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"docverify/internal/verification/models"
	dErrors "docverify/pkg/domain-errors"
	"docverify/pkg/platform/httputil"
	"docverify/pkg/requestcontext"
)

// Verifier runs one verification.
type Verifier interface {
	Verify(ctx context.Context, req models.VerificationRequest) (*models.VerificationResult, error)
}

// Handler wires verification endpoints to the service.
type Handler struct {
	verifier  Verifier
	logger    *slog.Logger
	maxUpload int64
}

func New(verifier Verifier, logger *slog.Logger, maxUpload int64) *Handler {
	return &Handler{
		verifier:  verifier,
		logger:    logger,
		maxUpload: maxUpload,
	}
}

// Register mounts verification endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/verifications", h.HandleVerify)
}

// HandleVerify handles POST /verifications.
func (h *Handler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	submitterID := requestcontext.SubmitterID(ctx)
	if submitterID == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	form, err := parseVerifyForm(w, r, h.maxUpload)
	if err != nil {
		h.logger.WarnContext(ctx, "invalid verification request",
			"request_id", requestID,
			"submitter_id", submitterID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	req := form.toRequest(ctx, submitterID)
	result, err := h.verifier.Verify(ctx, req)
	if err != nil {
		// the service already logged the failure with its verification id
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "verification served",
		"request_id", requestID,
		"verification_id", result.VerificationID,
		"submitter_id", submitterID,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, FromResult(result))
}
