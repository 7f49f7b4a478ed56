package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/smith3v/tg-habit-tracker/pkg/db"
	"github.com/smith3v/tg-habit-tracker/pkg/jobs"
)

type SuccessResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

type ErrorPayload struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

type ErrorResponse struct {
	Status string       `json:"status"`
	Error  ErrorPayload `json:"error"`
}

// JobRunResponse reports one on-demand job run.
type JobRunResponse struct {
	Job       string    `json:"job"`
	Summary   string    `json:"summary"`
	Scanned   int       `json:"scanned"`
	Reminded  int       `json:"reminded"`
	Delivered int       `json:"delivered"`
	Deleted   int64     `json:"deleted"`
	Stats     *db.Stats `json:"stats,omitempty"`
	Note      string    `json:"note,omitempty"`
}

func jobRunResponse(name string, s jobs.Summary) JobRunResponse {
	return JobRunResponse{
		Job:       name,
		Summary:   s.String(),
		Scanned:   s.Scanned,
		Reminded:  s.Reminded,
		Delivered: s.Delivered,
		Deleted:   s.Deleted,
		Stats:     s.Stats,
		Note:      s.Note,
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeSuccess(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, SuccessResponse{Status: "success", Message: message, Data: data})
}

func writeError(w http.ResponseWriter, status int, code, message, requestID string) {
	writeJSON(w, status, ErrorResponse{Status: "error", Error: ErrorPayload{Code: code, Message: message, RequestID: requestID}})
}

func mapError(err error) (int, string) {
	var unknown jobs.UnknownJobError
	switch {
	case errors.As(err, &unknown):
		return http.StatusNotFound, "unknown_job"
	case errors.Is(err, db.ErrNotFound):
		return http.StatusNotFound, "not_found"
	default:
		return http.StatusInternalServerError, "job_failed"
	}
}
