// Package httptransport is the thin HTTP layer: decode, authenticate,
// delegate to the protocol service, encode. No business logic lives here.
package httptransport

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"auditescrow/internal/platform/middleware"
	"auditescrow/internal/protocol"
	dErrors "auditescrow/pkg/domain-errors"
)

type Handler struct {
	svc       *protocol.Service
	log       *slog.Logger
	validator *middleware.JWTValidator
	health    func() error
	metricsH  http.Handler
}

type HandlerConfig struct {
	Service   *protocol.Service
	Logger    *slog.Logger
	Validator *middleware.JWTValidator
	// Health is consulted by /healthz; nil means always healthy.
	Health func() error
	// Metrics serves /metrics; nil disables the endpoint.
	Metrics http.Handler
}

func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{
		svc:       cfg.Service,
		log:       cfg.Logger,
		validator: cfg.Validator,
		health:    cfg.Health,
		metricsH:  cfg.Metrics,
	}
}

// NewRouter wires the public surface. Mutating routes require a bearer token;
// read models are open.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(h.log))
	r.Use(middleware.Logger(h.log))
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", h.handleHealth)
	if h.metricsH != nil {
		r.Method(http.MethodGet, "/metrics", h.metricsH)
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.ContentTypeJSON)

		r.Get("/audits/{auditID}", h.handleGetAudit)
		r.Get("/audits/{auditID}/schedules", h.handleListSchedules)
		r.Get("/audits/{auditID}/frozen", h.handleFrozen)
		r.Get("/schedules/{scheduleID}/releasable", h.handleReleasable)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(h.validator))

			r.Post("/audits", h.handlePrepare)
			r.Post("/audits/{auditID}/reveal", h.handleReveal)
			r.Post("/audits/{auditID}/invalidation", h.handlePropose)
			r.Delete("/audits/{auditID}/invalidation", h.handleCancel)
			r.Post("/audits/{auditID}/invalidation/finalize", h.handleFinalize)
			r.Post("/schedules/{scheduleID}/withdraw", h.handleWithdraw)
		})
	})
	return r
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if h.health != nil {
		if err := h.health(); err != nil {
			h.log.WarnContext(r.Context(), "health check failed", "error", err)
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
}

func respond(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// writeError translates domain errors to the JSON error envelope. Unknown
// errors become opaque 500s; their detail belongs in logs, not responses.
func writeError(w http.ResponseWriter, err error) {
	code := dErrors.CodeFor(err)
	body := map[string]string{"error": string(code)}
	var de *dErrors.Error
	if errors.As(err, &de) {
		body["message"] = de.Message
	}
	respond(w, dErrors.ToHTTPStatus(code), body)
}

func writeBadRequest(w http.ResponseWriter, message string) {
	respond(w, http.StatusBadRequest, map[string]string{
		"error":   string(dErrors.CodeBadRequest),
		"message": message,
	})
}
