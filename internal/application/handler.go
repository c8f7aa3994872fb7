package application

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"admitto/internal/authz"
	"admitto/internal/institution"
	"admitto/internal/platform/metrics"
	id "admitto/pkg/domain"
	dErrors "admitto/pkg/domain-errors"
	"admitto/pkg/platform/audit"
	"admitto/pkg/platform/sentinel"
	"admitto/pkg/requestcontext"
)

// listRoles is the permitted set for listing applications. Plain members can
// belong to an institution without seeing its applicant pipeline.
var listRoles = []institution.Role{institution.RoleAdmin, institution.RoleReviewer}

// InstitutionReader resolves institution rows for existence checks.
type InstitutionReader interface {
	FindByID(ctx context.Context, institutionID id.InstitutionID) (institution.Institution, error)
}

// Handler serves the gated application query endpoints.
type Handler struct {
	gate         *authz.Gate
	apps         *Service
	institutions InstitutionReader
	logger       *slog.Logger
	metrics      *metrics.Metrics
	auditor      *audit.Publisher
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithMetrics attaches denial metrics.
func WithMetrics(m *metrics.Metrics) HandlerOption {
	return func(h *Handler) { h.metrics = m }
}

// WithHandlerAuditor attaches an audit publisher.
func WithHandlerAuditor(a *audit.Publisher) HandlerOption {
	return func(h *Handler) { h.auditor = a }
}

func NewHandler(gate *authz.Gate, apps *Service, institutions InstitutionReader, logger *slog.Logger, opts ...HandlerOption) *Handler {
	h := &Handler{
		gate:         gate,
		apps:         apps,
		institutions: institutions,
		logger:       logger,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

// Register registers the application routes with the chi router. Callers
// must mount these behind the session middleware.
func (h *Handler) Register(r chi.Router) {
	r.Get("/institutions/{institutionID}/courses/{courseID}/applications", h.handleList)
}

type listResponse struct {
	Applications []Application `json:"applications"`
	Count        int           `json:"count"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	institutionID, err := id.ParseInstitutionID(chi.URLParam(r, "institutionID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid institution id")
		return
	}
	courseID, err := id.ParseCourseID(chi.URLParam(r, "courseID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid course id")
		return
	}

	if _, err := h.institutions.FindByID(ctx, institutionID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			writeError(w, http.StatusNotFound, "institution not found")
			return
		}
		h.logger.ErrorContext(ctx, "failed to resolve institution",
			"institution_id", institutionID.String(),
			"request_id", requestID,
			"error", err,
		)
		writeError(w, http.StatusInternalServerError, "Failed to fetch applications")
		return
	}

	access, err := h.gate.ResolveAccess(ctx, requestcontext.ExternalID(ctx), institutionID)
	if err != nil {
		h.writeGateError(w, r, err)
		return
	}
	if err := access.RequireRole(listRoles...); err != nil {
		h.logger.WarnContext(ctx, "insufficient role for listing",
			"user_id", access.UserID.String(),
			"role", string(access.Role),
			"institution_id", institutionID.String(),
			"request_id", requestID,
		)
		h.metrics.RecordAccessDenied("insufficient_role")
		h.emit(ctx, audit.Event{
			Category: audit.CategorySecurity,
			Action:   audit.ActionInsufficientRole,
			UserID:   access.UserID,
			Subject:  institutionID.String(),
			Reason:   string(access.Role),
		})
		writeError(w, http.StatusForbidden, dErrors.MessageOf(err))
		return
	}

	scope := Scope{InstitutionID: institutionID, CourseID: courseID}
	apps, err := h.apps.List(ctx, access.UserID, scope, parseListFilter(r))
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to fetch applications",
			"institution_id", institutionID.String(),
			"course_id", courseID.String(),
			"request_id", requestID,
			"error", err,
		)
		writeError(w, http.StatusInternalServerError, "Failed to fetch applications")
		return
	}

	writeJSON(w, http.StatusOK, listResponse{Applications: apps, Count: len(apps)})
}

// parseListFilter reads the optional query parameters. Unparseable or
// out-of-range values are ignored rather than rejected, so a mangled query
// string degrades to a broader listing instead of an error.
func parseListFilter(r *http.Request) ListFilter {
	var filter ListFilter
	q := r.URL.Query()

	if raw := q.Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			filter.Limit = n
		}
	}
	if raw := q.Get("offset"); raw != "" {
		// Offset keeps the supplied/absent distinction: offset=0 without a
		// limit still pins the default window.
		if n, err := strconv.Atoi(raw); err == nil && n >= 0 {
			filter.Offset = &n
		}
	}
	if raw := q.Get("status"); raw != "" {
		if status := Status(raw); status.Valid() {
			filter.Status = &status
		}
	}
	return filter
}

func (h *Handler) writeGateError(w http.ResponseWriter, r *http.Request, err error) {
	status := dErrors.ToHTTPStatus(dErrors.CodeOf(err))
	if status >= http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), "failed to resolve access",
			"request_id", requestcontext.RequestID(r.Context()),
			"error", err,
		)
		writeError(w, status, "Failed to fetch applications")
		return
	}
	writeError(w, status, dErrors.MessageOf(err))
}

func (h *Handler) emit(ctx context.Context, event audit.Event) {
	if h.auditor == nil {
		return
	}
	if err := h.auditor.Emit(ctx, event); err != nil {
		h.logger.WarnContext(ctx, "failed to emit audit event",
			"action", event.Action,
			"error", err,
		)
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
