// Package api exposes progression operations over HTTP.
package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/kidventure/kidventure/internal/activity"
	"github.com/kidventure/kidventure/internal/live"
	"github.com/kidventure/kidventure/internal/progression"
)

// ReadyCheck reports whether a dependency is usable.
type ReadyCheck func(ctx context.Context) error

// Options configures a Server.
type Options struct {
	Service *progression.Service
	// Hub enables the live endpoint when set.
	Hub live.Hub
	// Activity enables the activity endpoint when set.
	Activity activity.Reader
	// AdminKeyHash is the bcrypt hash of the admin API key. Admin routes are
	// disabled when empty.
	AdminKeyHash string
	ReadyChecks  map[string]ReadyCheck
	Logger       *slog.Logger
}

// Server holds the HTTP handlers.
type Server struct {
	svc       *progression.Service
	hub       live.Hub
	activity  activity.Reader
	adminHash []byte
	checks    map[string]ReadyCheck
	logger    *slog.Logger
}

// New creates a Server.
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	var hash []byte
	if opts.AdminKeyHash != "" {
		hash = []byte(opts.AdminKeyHash)
	}
	return &Server{
		svc:       opts.Service,
		hub:       opts.Hub,
		activity:  opts.Activity,
		adminHash: hash,
		checks:    opts.ReadyChecks,
		logger:    logger,
	}
}

// Handler returns the routed handler wrapped in request ID and access log
// middleware.
func (s *Server) Handler() http.Handler {
	return s.requestID(s.accessLog(s.newMux()))
}

func (s *Server) newMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealthz)
	mux.HandleFunc("GET /readyz", s.handleReadyz)

	mux.HandleFunc("GET /v1/curriculum", s.handleCurriculum)
	mux.HandleFunc("GET /v1/badges", s.handleBadges)
	mux.HandleFunc("GET /v1/leaderboard", s.handleLeaderboard)

	mux.HandleFunc("PUT /v1/students/{id}", s.handleRegister)
	mux.HandleFunc("GET /v1/students/{id}", s.handleSnapshot)
	mux.HandleFunc("GET /v1/students/{id}/activity", s.handleActivity)
	mux.HandleFunc("GET /v1/students/{id}/live", s.handleLive)
	mux.HandleFunc("POST /v1/students/{id}/units/{unit}/complete", s.handleComplete)
	mux.HandleFunc("POST /v1/students/{id}/rewards", s.requireAdmin(s.handleAward))

	mux.HandleFunc("GET /v1/admin/students", s.requireAdmin(s.handleListStudents))
	mux.HandleFunc("DELETE /v1/admin/students/{id}", s.requireAdmin(s.handleDeleteStudent))
	mux.HandleFunc("GET /v1/admin/report.xlsx", s.requireAdmin(s.handleReport))
	return mux
}
