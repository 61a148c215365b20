// Package api serves the tracker over HTTP.
package api

import (
	"net/http"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/C-BIAS/ECO-FMM-FASTAPI/internal/audit"
	"github.com/C-BIAS/ECO-FMM-FASTAPI/internal/auth"
	"github.com/C-BIAS/ECO-FMM-FASTAPI/internal/config"
	"github.com/C-BIAS/ECO-FMM-FASTAPI/internal/store"
	"github.com/C-BIAS/ECO-FMM-FASTAPI/internal/tracker"
)

// ServerParams holds the dependencies needed for the API server.
type ServerParams struct {
	fx.In

	Config  config.Config
	Logger  *zap.Logger
	Tracker *tracker.Tracker
	Gate    *auth.Gate
	Audit   *audit.Log
	Stores  *store.Registry

	IDs IDGenerator `optional:"true"`
}

// Server holds the HTTP handlers.
type Server struct {
	version string
	logger  *zap.Logger
	tracker *tracker.Tracker
	gate    *auth.Gate
	audit   *audit.Log
	stores  *store.Registry
	ids     IDGenerator
}

// NewServer creates a Server.
func NewServer(p ServerParams) *Server {
	ids := p.IDs
	if ids == nil {
		ids = UUIDv7Generator{}
	}
	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Server{
		version: p.Config.Version,
		logger:  logger,
		tracker: p.Tracker,
		gate:    p.Gate,
		audit:   p.Audit,
		stores:  p.Stores,
		ids:     ids,
	}
}

// Handler returns the routed, instrumented handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleRoot)

	// tasks
	mux.Handle("GET /tasks", s.guard(s.handleListTasks))
	mux.Handle("GET /tasks/{id}", s.guard(s.handleGetTask))
	mux.Handle("POST /tasks", s.guard(s.handleUpsertTask))

	// append-only records
	mux.Handle("POST /feedback", s.guard(s.handleSubmitFeedback))
	mux.Handle("POST /behaviors", s.guard(s.handleAddBehavior))
	mux.Handle("GET /behaviors", s.guard(s.handleListBehaviors))
	mux.Handle("POST /chatHistory", s.guard(s.handleAddChatSummary))
	mux.Handle("GET /chatHistory", s.guard(s.handleListChatSummaries))
	mux.Handle("POST /chat_history", s.guard(s.handleAddChatSummary))
	mux.Handle("GET /chat_history", s.guard(s.handleListChatSummaries))

	// operations
	mux.HandleFunc("GET /logs", s.handleLogs)
	mux.HandleFunc("GET /download-logs", s.handleDownloadLogs)
	mux.HandleFunc("GET /backup-dbs", s.handleBackup)

	return s.requestID(s.instrument(mux))
}
