package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/go-pkgz/lgr"
	"github.com/go-pkgz/rest"
	"github.com/go-pkgz/rest/logger"
	"github.com/go-pkgz/routegroup"

	"github.com/clipfeed/newsbrief/pkg/chat"
	"github.com/clipfeed/newsbrief/pkg/domain"
)

// Server represents HTTP server instance
type Server struct {
	config    ConfigProvider
	assistant Assistant
	scheduler Scheduler
	execLog   ExecLog
	publisher Publisher
	version   string
	debug     bool

	lock       sync.Mutex
	httpServer *http.Server
	router     *routegroup.Bundle
}

// Assistant handles user chat messages
type Assistant interface {
	Handle(ctx context.Context, text string) (chat.Response, error)
}

// Scheduler manages recurring keyword scrapes
type Scheduler interface {
	Add(keyword string, hour, minute int, daysOfWeek []string) (domain.ScheduleEntry, error)
	Remove(id string) bool
	List() ([]domain.ScheduleEntry, error)
}

// ExecLog exposes the scheduled run history
type ExecLog interface {
	Recent(limit int) ([]domain.ExecutionLogEntry, error)
}

// Publisher exposes the in-session publish diagnostics
type Publisher interface {
	Enabled() bool
	Logs() []string
}

// ConfigProvider provides server configuration
type ConfigProvider interface {
	GetServerConfig() (listen string, timeout time.Duration)
}

// New initializes a new server instance
func New(cfg ConfigProvider, assistant Assistant, scheduler Scheduler, execLog ExecLog, publisher Publisher, version string, debug bool) *Server {
	s := &Server{
		config:    cfg,
		assistant: assistant,
		scheduler: scheduler,
		execLog:   execLog,
		publisher: publisher,
		version:   version,
		debug:     debug,
		router:    routegroup.New(http.NewServeMux()),
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// Run starts the HTTP server and handles graceful shutdown
func (s *Server) Run(ctx context.Context) error {
	listen, timeout := s.config.GetServerConfig()
	log.Printf("[INFO] starting server on %s", listen)

	s.lock.Lock()
	s.httpServer = &http.Server{
		Addr:         listen,
		Handler:      s.router,
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
	}
	s.lock.Unlock()

	go func() {
		<-ctx.Done()
		log.Printf("[INFO] shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("[WARN] server shutdown error: %v", err)
		}
	}()

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server error: %w", err)
	}

	return nil
}

// setupMiddleware configures standard middleware for the server
func (s *Server) setupMiddleware() {
	s.router.Use(rest.AppInfo("newsbrief", "clipfeed", s.version))
	s.router.Use(rest.Ping)

	if s.debug {
		s.router.Use(logger.New(logger.Log(lgr.Default()), logger.Prefix("[DEBUG]")).Handler)
	}

	s.router.Use(rest.Recoverer(lgr.Default()))
	s.router.Use(rest.Throttle(100))
	s.router.Use(rest.SizeLimit(1024 * 1024)) // 1MB
}

// setupRoutes configures application routes
func (s *Server) setupRoutes() {
	s.router.Mount("/api/v1").Route(func(r *routegroup.Bundle) {
		r.HandleFunc("GET /status", s.statusHandler)
		r.HandleFunc("POST /message", s.messageHandler)
		r.HandleFunc("GET /schedules", s.listSchedulesHandler)
		r.HandleFunc("POST /schedules", s.addScheduleHandler)
		r.HandleFunc("DELETE /schedules/{id}", s.removeScheduleHandler)
		r.HandleFunc("GET /logs", s.logsHandler)
		r.HandleFunc("GET /diagnostics", s.diagnosticsHandler)
	})
}

// statusHandler returns server status
func (s *Server) statusHandler(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"status":            "ok",
		"version":           s.version,
		"publisher_enabled": s.publisher.Enabled(),
		"time":              time.Now().UTC(),
	}
	RenderJSON(w, r, http.StatusOK, status)
}

// RenderJSON sends JSON response
func RenderJSON(w http.ResponseWriter, _ *http.Request, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			log.Printf("[ERROR] can't encode response to JSON: %v", err)
		}
	}
}

// RenderError sends error response as JSON
func RenderError(w http.ResponseWriter, r *http.Request, err error, code int) {
	errMsg := "unknown error"
	if err != nil {
		errMsg = err.Error()
	}
	RenderJSON(w, r, code, map[string]string{"error": errMsg})
}
