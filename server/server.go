// Package server exposes the kiosk HTTP API and the WebSocket push channel
// the kiosk frontend renders from.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/teranos/floorcheck/catalog"
	"github.com/teranos/floorcheck/config"
	"github.com/teranos/floorcheck/db"
	"github.com/teranos/floorcheck/directory"
	"github.com/teranos/floorcheck/errors"
	"github.com/teranos/floorcheck/maint"
	"github.com/teranos/floorcheck/session"
)

// Server is the kiosk-facing HTTP and WebSocket surface.
type Server struct {
	cfg    *config.Config
	db     *sql.DB
	logger *zap.SugaredLogger

	catalog     *catalog.Store
	kiosks      *catalog.KioskStore
	assignments *maint.AssignmentStore
	executions  *maint.ExecutionStore
	resolver    *maint.Resolver
	recorder    *maint.Recorder
	generator   *maint.Generator
	ticker      *maint.Ticker    // may be nil (tests, generate-only runs)
	sessions    *session.Manager // may be nil when no reader is attached
	directory   *directory.Service

	httpServer *http.Server
	upgrader   websocket.Upgrader

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.RWMutex
	clients map[*Client]bool

	// change-detection cache for the db status broadcast
	lastDBUp *bool
}

// Options carries the optional collaborators a Server can run without.
type Options struct {
	Ticker   *maint.Ticker
	Sessions *session.Manager
}

// NewServer creates the kiosk server around an open database.
func NewServer(cfg *config.Config, database *sql.DB, dir *directory.Service, log *zap.SugaredLogger, opts Options) *Server {
	ctx, cancel := context.WithCancel(context.Background())

	s := &Server{
		cfg:         cfg,
		db:          database,
		logger:      log,
		catalog:     catalog.NewStore(database),
		kiosks:      catalog.NewKioskStore(database),
		assignments: maint.NewAssignmentStore(database),
		executions:  maint.NewExecutionStore(database),
		resolver:    maint.NewResolver(database),
		recorder:    maint.NewRecorder(database),
		generator:   maint.NewGenerator(database),
		ticker:      opts.Ticker,
		sessions:    opts.Sessions,
		directory:   dir,
		ctx:         ctx,
		cancel:      cancel,
		clients:     make(map[*Client]bool),
	}

	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}

	return s
}

// Routes builds the HTTP handler.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/tasks", s.handleListTasks)
	mux.HandleFunc("POST /api/tasks/{id}/complete", s.handleCompleteTask)
	mux.HandleFunc("POST /api/tasks/{id}/fail", s.handleFailTask)

	mux.HandleFunc("POST /api/generate", s.handleGenerate)

	mux.HandleFunc("POST /api/works", s.handleCreateWork)
	mux.HandleFunc("DELETE /api/works/{id}", s.handleDeleteWork)
	mux.HandleFunc("GET /api/works", s.handleListWorks)

	mux.HandleFunc("POST /api/assignments", s.handleCreateAssignment)
	mux.HandleFunc("POST /api/assignments/{id}/cancel", s.handleCancelAssignment)
	mux.HandleFunc("GET /api/assignments", s.handleListAssignments)

	mux.HandleFunc("GET /api/employees/{card}", s.handleGetEmployee)

	mux.HandleFunc("GET /api/reports", s.handleReports)
	mux.HandleFunc("GET /api/sectors", s.handleListSectors)
	mux.HandleFunc("GET /api/session", s.handleGetSession)

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /ws", s.handleWebSocket)

	return mux
}

// Start runs the HTTP server and the status broadcasters. Blocks until the
// listener fails or Shutdown is called.
func (s *Server) Start() error {
	port := config.DefaultServerPort
	if s.cfg.Server.Port != nil {
		port = *s.cfg.Server.Port
	}

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	s.startDBStatusBroadcaster()
	s.startDaemonStatusBroadcaster()

	s.logger.Infow("Kiosk server listening", "port", port, "kiosk", s.cfg.Kiosk.Name)

	err := s.httpServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return errors.Wrap(err, "http server failed")
	}
	return nil
}

// Shutdown stops the server and disconnects all WebSocket clients.
func (s *Server) Shutdown(ctx context.Context) error {
	s.cancel()

	s.mu.Lock()
	for client := range s.clients {
		client.close()
	}
	s.clients = make(map[*Client]bool)
	s.mu.Unlock()

	var err error
	if s.httpServer != nil {
		err = s.httpServer.Shutdown(ctx)
	}
	s.wg.Wait()
	return errors.Wrap(err, "http shutdown failed")
}

func (s *Server) checkOrigin(r *http.Request) bool {
	if len(s.cfg.Server.AllowedOrigins) == 0 {
		// Kiosks are single-host appliances behind a plant firewall
		return true
	}
	origin := r.Header.Get("Origin")
	for _, allowed := range s.cfg.Server.AllowedOrigins {
		if origin == allowed || allowed == "*" {
			return true
		}
	}
	return false
}

// dbUp reports database reachability for health and status broadcasts.
func (s *Server) dbUp() bool {
	return db.Ping(s.db)
}
