package webhook

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"admitto/internal/identity"
	"admitto/internal/platform/metrics"
	dErrors "admitto/pkg/domain-errors"
	"admitto/pkg/platform/audit"
	"admitto/pkg/requestcontext"
)

// maxBodyBytes caps webhook payload reads. Provider payloads are small; the
// cap guards against misdirected uploads.
const maxBodyBytes = 1 << 20

// Handler is the identity-event ingestion endpoint. Responses are plain text
// and the status codes steer provider-side retry: 4xx means "do not retry"
// (untrusted or malformed), 5xx means "redeliver later" (persistence
// failure).
type Handler struct {
	verifier   *Verifier
	sync       *identity.Service
	deliveries DeliveryLog
	logger     *slog.Logger
	metrics    *metrics.Metrics
	auditor    *audit.Publisher
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithDeliveryLog attaches a best-effort delivery replay log.
func WithDeliveryLog(log DeliveryLog) HandlerOption {
	return func(h *Handler) { h.deliveries = log }
}

// WithMetrics attaches ingestion metrics.
func WithMetrics(m *metrics.Metrics) HandlerOption {
	return func(h *Handler) { h.metrics = m }
}

// WithAuditor attaches an audit publisher.
func WithAuditor(a *audit.Publisher) HandlerOption {
	return func(h *Handler) { h.auditor = a }
}

func New(verifier *Verifier, sync *identity.Service, logger *slog.Logger, opts ...HandlerOption) *Handler {
	h := &Handler{
		verifier: verifier,
		sync:     sync,
		logger:   logger,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

// Register registers the ingestion route with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/webhooks/identity", h.handleDelivery)
}

func (h *Handler) handleDelivery(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		h.logger.WarnContext(ctx, "failed to read webhook body",
			"request_id", requestID,
			"error", err,
		)
		h.reject(ctx, w, "unreadable_body", "Error occurred -- could not read request body")
		return
	}

	headers := Headers{
		DeliveryID: r.Header.Get(HeaderDeliveryID),
		Timestamp:  r.Header.Get(HeaderTimestamp),
		Signature:  r.Header.Get(HeaderSignature),
	}

	envelope, err := h.verifier.Verify(headers, body)
	if err != nil {
		h.logger.WarnContext(ctx, "webhook verification failed",
			"delivery_id", headers.DeliveryID,
			"request_id", requestID,
			"error", err,
		)
		h.reject(ctx, w, "verification_failed", "Error occurred -- could not verify webhook signature")
		return
	}

	h.metrics.RecordWebhookReceived(envelope.Type)
	h.recordDelivery(ctx, envelope.DeliveryID)

	event, err := Normalize(envelope)
	if err != nil {
		h.logger.WarnContext(ctx, "webhook normalization failed",
			"delivery_id", envelope.DeliveryID,
			"type", envelope.Type,
			"request_id", requestID,
			"error", err,
		)
		if dErrors.HasCode(err, dErrors.CodeBadRequest) {
			h.reject(ctx, w, "missing_required_field", "Error occurred -- missing required event data")
			return
		}
		// Deletions without an attributable identity stay on the redelivery
		// path; 400 would tell the provider to stop retrying.
		writePlain(w, http.StatusInternalServerError, "Error occurred")
		return
	}

	if _, err := h.sync.Apply(ctx, event); err != nil {
		// Persistence failure: 500 so the provider redelivers. Idempotent
		// transitions make the redelivery safe.
		h.logger.ErrorContext(ctx, "failed to apply identity event",
			"delivery_id", envelope.DeliveryID,
			"type", envelope.Type,
			"request_id", requestID,
			"error", err,
		)
		writePlain(w, http.StatusInternalServerError, "Error occurred")
		return
	}

	writePlain(w, http.StatusOK, "Webhook processed successfully")
}

// reject maps verification and validation failures to 400. The provider does
// not retry 4xx, which is exactly right for untrusted or malformed input.
func (h *Handler) reject(ctx context.Context, w http.ResponseWriter, reason, message string) {
	h.metrics.RecordWebhookRejected(reason)
	h.emit(ctx, audit.Event{
		Category: audit.CategorySecurity,
		Action:   audit.ActionWebhookRejected,
		Reason:   reason,
	})
	writePlain(w, http.StatusBadRequest, message)
}

// recordDelivery marks the delivery ID as seen, surfacing replays in
// telemetry. Best effort: the replay log failing never fails ingestion.
func (h *Handler) recordDelivery(ctx context.Context, deliveryID string) {
	if h.deliveries == nil {
		return
	}
	seen, err := h.deliveries.MarkSeen(ctx, deliveryID, 2*DefaultTolerance)
	if err != nil {
		h.logger.WarnContext(ctx, "delivery replay log unavailable",
			"delivery_id", deliveryID,
			"error", err,
		)
		return
	}
	if seen {
		h.logger.InfoContext(ctx, "delivery replayed",
			"delivery_id", deliveryID,
		)
		h.emit(ctx, audit.Event{
			Category:   audit.CategorySecurity,
			Action:     audit.ActionDeliveryReplayed,
			DeliveryID: deliveryID,
		})
	}
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

func writePlain(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(message))
}
