package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/kidventure/kidventure/internal/progress"
)

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("write response failed", "error", err)
	}
}

// statusFor maps domain error kinds to HTTP statuses.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, progress.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, progress.ErrLockedUnit):
		return http.StatusConflict, "locked_unit"
	case errors.Is(err, progress.ErrInvalidArgument):
		return http.StatusBadRequest, "invalid_argument"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed",
			"request_id", RequestID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		msg = "internal error"
	}
	writeJSON(w, status, errorBody{Error: msg, Code: code})
}
