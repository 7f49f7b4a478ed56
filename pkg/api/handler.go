package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/smith3v/tg-habit-tracker/pkg/jobs"
	"github.com/smith3v/tg-habit-tracker/pkg/logger"
)

type JobTrigger interface {
	Names() []string
	Schedule() map[string]string
	RunNow(ctx context.Context, name string) (jobs.Summary, error)
}

type TestNotifier interface {
	TestNotification(ctx context.Context, userID *uint, message string) (jobs.Summary, error)
}

type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	jobs     JobTrigger
	notifier TestNotifier
	db       Pinger
}

func NewHandler(trigger JobTrigger, notifier TestNotifier, pinger Pinger) *Handler {
	return &Handler{jobs: trigger, notifier: notifier, db: pinger}
}

// TestNotificationRequest targets one user, or every staff user when UserID
// is omitted.
type TestNotificationRequest struct {
	UserID  *uint  `json:"user_id"`
	Message string `json:"message"`
}

type JobInfo struct {
	Name     string `json:"name"`
	Schedule string `json:"schedule,omitempty"`
}

func (h *Handler) ready(w http.ResponseWriter, r *http.Request) {
	if err := h.db.Ping(r.Context()); err != nil {
		logger.Warn("readiness check failed", "request_id", requestIDFromContext(r.Context()), "error", err)
		writeError(w, http.StatusServiceUnavailable, "not_ready", err.Error(), requestIDFromContext(r.Context()))
		return
	}
	writeSuccess(w, http.StatusOK, "ready", nil)
}

func (h *Handler) listJobs(w http.ResponseWriter, _ *http.Request) {
	schedule := h.jobs.Schedule()
	infos := make([]JobInfo, 0, len(schedule))
	for _, name := range h.jobs.Names() {
		infos = append(infos, JobInfo{Name: name, Schedule: schedule[name]})
	}
	writeSuccess(w, http.StatusOK, "", infos)
}

func (h *Handler) runJob(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	summary, err := h.jobs.RunNow(r.Context(), name)
	if err != nil {
		status, code := mapError(err)
		writeError(w, status, code, err.Error(), requestIDFromContext(r.Context()))
		return
	}
	writeSuccess(w, http.StatusOK, "", jobRunResponse(name, summary))
}

func (h *Handler) testNotification(w http.ResponseWriter, r *http.Request) {
	var req TestNotificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error(), requestIDFromContext(r.Context()))
		return
	}
	summary, err := h.notifier.TestNotification(r.Context(), req.UserID, req.Message)
	if err != nil {
		status, code := mapError(err)
		writeError(w, status, code, err.Error(), requestIDFromContext(r.Context()))
		return
	}
	writeSuccess(w, http.StatusOK, "", jobRunResponse(summary.Job, summary))
}
