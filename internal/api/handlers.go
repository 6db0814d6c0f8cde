package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/kidventure/kidventure/internal/progress"
	"github.com/kidventure/kidventure/internal/report"
)

const maxBodyBytes = 1 << 16

func handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	failed := map[string]string{}
	for name, check := range s.checks {
		if err := check(ctx); err != nil {
			failed[name] = err.Error()
		}
	}
	if len(failed) > 0 {
		s.logger.Warn("readiness check failed", "failed", failed)
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "unavailable", "failed": failed})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ready"}`))
}

func (s *Server) handleCurriculum(w http.ResponseWriter, r *http.Request) {
	cur := s.svc.Curriculum()
	type track struct {
		Name  string `json:"name"`
		Units any    `json:"units"`
	}
	tracks := make([]track, 0, len(cur.Tracks()))
	for _, name := range cur.Tracks() {
		tracks = append(tracks, track{Name: name, Units: cur.Track(name)})
	}
	writeJSON(w, http.StatusOK, map[string]any{"tracks": tracks})
}

func (s *Server) handleBadges(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"badges": s.svc.Badges()})
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit, err := queryLimit(r, 10)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	board, err := s.svc.Leaderboard(r.Context(), limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"standings": board})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	rec, err := s.svc.Register(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := s.svc.Snapshot(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleActivity(w http.ResponseWriter, r *http.Request) {
	if s.activity == nil {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "activity log is disabled", Code: "disabled"})
		return
	}
	limit, err := queryLimit(r, 50)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	rec, err := s.svc.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	events, err := s.activity.Recent(r.Context(), rec.StudentID, limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}

func (s *Server) handleComplete(w http.ResponseWriter, r *http.Request) {
	out, err := s.svc.Complete(r.Context(), r.PathValue("id"), r.PathValue("unit"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

type awardRequest struct {
	UnitID string `json:"unitId"`
	Points *int64 `json:"points"`
}

func (s *Server) handleAward(w http.ResponseWriter, r *http.Request) {
	var req awardRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.Points == nil {
		s.writeError(w, r, progress.InvalidArgument("points", "is required"))
		return
	}

	award, err := s.svc.AwardBonus(r.Context(), r.PathValue("id"), req.UnitID, *req.Points)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, award)
}

func (s *Server) handleListStudents(w http.ResponseWriter, r *http.Request) {
	recs, err := s.svc.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"students": recs})
}

func (s *Server) handleDeleteStudent(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Delete(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	recs, err := s.svc.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="progress-report.xlsx"`)
	if err := report.WriteWorkbook(w, s.svc.Curriculum(), recs); err != nil {
		// Headers are already sent; the client sees a truncated file.
		s.logger.Error("write report failed", "request_id", RequestID(r.Context()), "error", err)
	}
}

func queryLimit(r *http.Request, fallback int) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, progress.InvalidArgument("limit", "must be a non-negative integer")
	}
	return n, nil
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return progress.InvalidArgument("body", fmt.Sprintf("invalid JSON: %v", err))
	}
	return nil
}
