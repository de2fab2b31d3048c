package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"docverify/internal/verification/models"
	dErrors "docverify/pkg/domain-errors"
	"docverify/pkg/platform/httputil"
	"docverify/pkg/platform/sentinel"
	"docverify/pkg/requestcontext"
)

// TrailReader answers audit trail queries.
type TrailReader interface {
	Get(ctx context.Context, verificationID string) (*models.AuditTrail, error)
	ListBySubmitter(ctx context.Context, submitterID string) ([]*models.AuditTrail, error)
	ListFailedAt(ctx context.Context, step string) ([]string, error)
}

// TrailHandler serves sealed audit trails to operators.
type TrailHandler struct {
	trails TrailReader
	logger *slog.Logger
}

func NewTrailHandler(trails TrailReader, logger *slog.Logger) *TrailHandler {
	return &TrailHandler{trails: trails, logger: logger}
}

// Register mounts the trail endpoints. Callers guard them with admin auth.
func (h *TrailHandler) Register(r chi.Router) {
	r.Get("/admin/trails/{verificationID}", h.HandleGetTrail)
	r.Get("/admin/submitters/{submitterID}/trails", h.HandleListTrails)
	r.Get("/admin/steps/{step}/failures", h.HandleListFailures)
}

type trailListResponse struct {
	Trails []*models.AuditTrail `json:"trails"`
	Total  int                  `json:"total"`
}

type failureListResponse struct {
	Step            string   `json:"step"`
	VerificationIDs []string `json:"verification_ids"`
	Total           int      `json:"total"`
}

// HandleGetTrail handles GET /admin/trails/{verificationID}.
func (h *TrailHandler) HandleGetTrail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "verificationID")

	trail, err := h.trails.Get(ctx, id)
	if err != nil {
		h.writeStoreError(ctx, w, err, "verification_id", id)
		return
	}
	h.logger.InfoContext(ctx, "audit trail read",
		"request_id", requestcontext.RequestID(ctx),
		"verification_id", id,
	)
	httputil.WriteJSON(w, http.StatusOK, trail)
}

// HandleListTrails handles GET /admin/submitters/{submitterID}/trails.
func (h *TrailHandler) HandleListTrails(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	submitterID := chi.URLParam(r, "submitterID")

	trails, err := h.trails.ListBySubmitter(ctx, submitterID)
	if err != nil {
		h.writeStoreError(ctx, w, err, "submitter_id", submitterID)
		return
	}
	if trails == nil {
		trails = []*models.AuditTrail{}
	}
	h.logger.InfoContext(ctx, "audit trails listed",
		"request_id", requestcontext.RequestID(ctx),
		"submitter_id", submitterID,
		"count", len(trails),
	)
	httputil.WriteJSON(w, http.StatusOK, trailListResponse{Trails: trails, Total: len(trails)})
}

// HandleListFailures handles GET /admin/steps/{step}/failures: the
// verifications that failed at a given processing step.
func (h *TrailHandler) HandleListFailures(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	step := chi.URLParam(r, "step")

	ids, err := h.trails.ListFailedAt(ctx, step)
	if err != nil {
		h.writeStoreError(ctx, w, err, "step", step)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	h.logger.InfoContext(ctx, "failed verifications listed",
		"request_id", requestcontext.RequestID(ctx),
		"step", step,
		"count", len(ids),
	)
	httputil.WriteJSON(w, http.StatusOK, failureListResponse{Step: step, VerificationIDs: ids, Total: len(ids)})
}

func (h *TrailHandler) writeStoreError(ctx context.Context, w http.ResponseWriter, err error, key, value string) {
	if errors.Is(err, sentinel.ErrNotFound) {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeNotFound, "audit trail not found"))
		return
	}
	h.logger.ErrorContext(ctx, "audit trail query failed",
		"request_id", requestcontext.RequestID(ctx),
		key, value,
		"error", err,
	)
	httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "audit trail query failed"))
}
