package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/raaihank/pii-sentinel/internal/config"
	"github.com/raaihank/pii-sentinel/internal/job"
	"github.com/raaihank/pii-sentinel/internal/logger"
	"github.com/raaihank/pii-sentinel/internal/pipeline"
	"github.com/raaihank/pii-sentinel/internal/stats"
	"github.com/raaihank/pii-sentinel/internal/web"
	"github.com/raaihank/pii-sentinel/internal/websocket"
)

// Server exposes the redaction pipeline over HTTP
type Server struct {
	config  *config.Config
	logger  *logger.Logger
	orch    *pipeline.Orchestrator
	jobs    *job.Manager
	agg     *stats.Aggregator
	router  *mux.Router
	server  *http.Server
	wsHub   *websocket.Hub
	limiter *rateLimiter
	started time.Time
	done    chan struct{}
}

// New creates the HTTP server over an already-wired pipeline
func New(cfg *config.Config, orch *pipeline.Orchestrator, jobs *job.Manager, agg *stats.Aggregator, wsHub *websocket.Hub, log *logger.Logger) *Server {
	s := &Server{
		config:  cfg,
		logger:  log.WithComponent("server"),
		orch:    orch,
		jobs:    jobs,
		agg:     agg,
		router:  mux.NewRouter(),
		wsHub:   wsHub,
		limiter: newRateLimiter(cfg.Security.RateLimit),
		done:    make(chan struct{}),
	}

	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      s.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	return s
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
	s.router.HandleFunc("/dashboard", web.ServeDashboard).Methods("GET")

	if s.wsHub != nil && s.config.WebSocket.Enabled {
		path := s.config.WebSocket.Path
		if path == "" {
			path = "/ws"
		}
		s.router.HandleFunc(path, s.wsHub.HandleWebSocket).Methods("GET")
	}

	api := s.router.PathPrefix("/api/v1").Subrouter()
	api.Use(s.loggingMiddleware)
	api.Use(s.rateLimitMiddleware)

	api.HandleFunc("/detect", s.handleDetect).Methods("POST")
	api.HandleFunc("/redact/text", s.handleRedactText).Methods("POST")
	api.HandleFunc("/redact/batch", s.handleRedactBatch).Methods("POST")
	api.HandleFunc("/redact/file", s.handleRedactFile).Methods("POST")
	api.HandleFunc("/redact/audio", s.handleRedactAudio).Methods("POST")
	api.HandleFunc("/redact/video", s.handleRedactVideo).Methods("POST")

	api.HandleFunc("/jobs/{id}", s.handleGetJob).Methods("GET")
	api.HandleFunc("/jobs/{id}", s.handleDeleteJob).Methods("DELETE")
	api.HandleFunc("/jobs/{id}/cancel", s.handleCancelJob).Methods("POST")
	api.HandleFunc("/download/{id}", s.handleDownload).Methods("GET")

	api.HandleFunc("/strategies", s.handleStrategies).Methods("GET")
	api.HandleFunc("/entity-types", s.handleEntityTypes).Methods("GET")
	api.HandleFunc("/stats", s.handleStats).Methods("GET")
	api.HandleFunc("/engines", s.handleEngines).Methods("GET")
}

// Start starts the HTTP server; blocks until it exits
func (s *Server) Start() error {
	s.logger.Info("Starting PII-Sentinel server",
		zap.Int("port", s.config.Server.Port),
		zap.Bool("websocket", s.config.WebSocket.Enabled))

	s.started = time.Now()
	if s.wsHub != nil && s.config.WebSocket.Enabled {
		go s.wsHub.Run()
		if s.config.WebSocket.Events.BroadcastSystem {
			go s.statusLoop()
		}
	}
	return s.server.ListenAndServe()
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping PII-Sentinel server")
	close(s.done)
	if s.wsHub != nil && s.config.WebSocket.Enabled {
		s.wsHub.Stop()
	}
	return s.server.Shutdown(ctx)
}

// statusLoop periodically broadcasts aggregate counters to WebSocket
// clients subscribed to system status.
func (s *Server) statusLoop() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			snap := s.agg.Snapshot()
			s.wsHub.Broadcast(websocket.Event{
				Type:      websocket.EventTypeSystemStatus,
				Timestamp: time.Now(),
				Data: websocket.SystemStatusEvent{
					Status:           "healthy",
					Uptime:           time.Since(s.started).Round(time.Second).String(),
					TotalRequests:    snap.TotalRequests,
					TotalEntities:    snap.TotalEntitiesDetected,
					AvgProcessingMS:  snap.AvgProcessingTimeMS,
					ConnectedClients: int(s.wsHub.GetStats().ActiveConnections),
				},
			})
		case <-s.done:
			return
		}
	}
}

// Router exposes the handler tree for tests
func (s *Server) Router() http.Handler {
	return s.router
}
