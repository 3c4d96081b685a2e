// Package httphandler is the HTTP driving adapter serving the poller status API.
package httphandler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ericfisherdev/prpoller/internal/application"
	"github.com/ericfisherdev/prpoller/internal/domain/port/driven"
)

// Limits for GET /api/v1/changes.
const (
	defaultChangesLimit = 50
	maxChangesLimit     = 500
)

// DefaultPollTimeout bounds how long POST /api/v1/poll waits for its cycle.
// The cycle itself keeps running when the wait gives up.
const DefaultPollTimeout = 2 * time.Minute

// Poller is the part of the poll service the API drives.
type Poller interface {
	Status() application.PollStatus
	PollNow(ctx context.Context) error
}

// Handler is the HTTP driving adapter that serves the REST API.
type Handler struct {
	poller      Poller
	changes     driven.ChangeStore
	logger      *slog.Logger
	pollTimeout time.Duration
}

// NewHandler creates a Handler with all required dependencies.
func NewHandler(poller Poller, changes driven.ChangeStore, logger *slog.Logger) *Handler {
	return &Handler{
		poller:      poller,
		changes:     changes,
		logger:      logger,
		pollTimeout: DefaultPollTimeout,
	}
}

// WithPollTimeout sets how long a manual poll request waits for its cycle.
func (h *Handler) WithPollTimeout(d time.Duration) *Handler {
	h.pollTimeout = d
	return h
}

// NewRouter creates an http.Handler with all routes registered and wrapped
// with logging and recovery middleware.
func NewRouter(h *Handler, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	// Recovery innermost so panics are caught before logging.
	r.Use(loggingMiddleware(logger))
	r.Use(recoveryMiddleware(logger))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", h.Health)
		r.Get("/poller", h.GetPoller)
		r.Get("/changes", h.ListChanges)
		r.Post("/poll", h.TriggerPoll)
	})

	return r
}

// Health returns a simple health check response.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Time:   time.Now().UTC().Format(time.RFC3339),
	})
}

// GetPoller returns the poller configuration summary and counters.
func (h *Handler) GetPoller(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, toPollerResponse(h.poller.Status()))
}

// ListChanges returns the most recently recorded changes, newest first.
func (h *Handler) ListChanges(w http.ResponseWriter, r *http.Request) {
	limit := defaultChangesLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxChangesLimit)
	}

	changes, err := h.changes.ListRecent(r.Context(), limit)
	if err != nil {
		h.logger.Error("failed to list changes", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]ChangeResponse, 0, len(changes))
	for _, c := range changes {
		resp = append(resp, toChangeResponse(c))
	}

	writeJSON(w, http.StatusOK, resp)
}

// TriggerPoll runs an immediate poll cycle, queued behind any cycle in
// flight, and reports its outcome. A cycle that does not finish within the
// poll timeout is reported as 504; it still completes in the background.
func (h *Handler) TriggerPoll(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.pollTimeout)
	defer cancel()

	err := h.poller.PollNow(ctx)
	switch {
	case err == nil:
	case errors.Is(err, context.DeadlineExceeded):
		h.logger.Warn("manual poll still running", "timeout", h.pollTimeout)
		writeError(w, http.StatusGatewayTimeout, fmt.Sprintf("poll did not finish within %s", h.pollTimeout))
		return
	case errors.Is(err, application.ErrPollerStopped):
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	default:
		h.logger.Error("manual poll failed", "error", err)
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	writeJSON(w, http.StatusAccepted, PollResponse{Status: "polled"})
}
