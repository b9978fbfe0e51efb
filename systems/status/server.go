// Package status serves the engine's health, subsystem list, metrics and a
// remote shutdown trigger over HTTP.
package status

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/GoCodeAlone/gogine"
	"github.com/GoCodeAlone/gogine/registry"
	"github.com/GoCodeAlone/gogine/shutdown"
)

// Name is the name the status server registers under
const Name = "status"

// Status server errors
var (
	ErrAlreadyStarted = errors.New("status server already started")
	ErrEmptyAddr      = errors.New("status server address is empty")
)

// SystemsResponse is the body of GET /systems
type SystemsResponse struct {
	Count   int                  `json:"count"`
	Systems []registry.EntryInfo `json:"systems"`
}

// HealthResponse is the body of GET /healthz
type HealthResponse struct {
	Status string `json:"status"`
}

// Server is an HTTP subsystem exposing engine status
type Server struct {
	addr   string
	state  *gogine.State
	logger gogine.Logger
	router chi.Router

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
	served   chan struct{}

	receiver atomic.Pointer[shutdown.Receiver]
}

// New creates a status server for state. gatherer backs GET /metrics and
// may be nil to leave the route out.
func New(addr string, state *gogine.State, gatherer prometheus.Gatherer) *Server {
	s := &Server{
		addr:   addr,
		state:  state,
		logger: state.Logger(),
	}
	s.router = s.routes(gatherer)
	return s
}

func (s *Server) routes(gatherer prometheus.Gatherer) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Get("/systems", s.handleSystems)
	r.Post("/shutdown", s.handleShutdown)
	if gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

// Handler returns the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Addr returns the bound address once started, else the configured one
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// Startup binds the listener synchronously so address errors fail startup,
// then serves in the background.
func (s *Server) Startup(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server != nil {
		return ErrAlreadyStarted
	}
	if s.addr == "" {
		return ErrEmptyAddr
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.addr)
	if err != nil {
		return fmt.Errorf("status server listen on %s: %w", s.addr, err)
	}

	s.listener = ln
	s.receiver.Store(s.state.Shutdown().Subscribe())
	s.server = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.served = make(chan struct{})

	go func(srv *http.Server, done chan struct{}) {
		defer close(done)
		s.logger.Info("Starting status server", "address", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Status server failed", "error", err)
		}
	}(s.server, s.served)

	return nil
}

// Shutdown drains in-flight requests until ctx is done
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server == nil {
		return nil
	}

	s.logger.Info("Stopping status server")
	err := s.server.Shutdown(ctx)
	if err != nil {
		s.logger.Warn("Status server did not drain in time, closing connections", "error", err)
		_ = s.server.Close()
	}
	<-s.served
	if rx := s.receiver.Swap(nil); rx != nil {
		rx.Close()
	}
	s.server = nil
	s.listener = nil
	if err != nil {
		return fmt.Errorf("error shutting down status server: %w", err)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	switch {
	case s.state.Registry().Poisoned():
		writeJSON(w, http.StatusInternalServerError, HealthResponse{Status: "poisoned"})
	case s.shutdownRequested():
		writeJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "stopping"})
	default:
		writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
	}
}

func (s *Server) handleSystems(w http.ResponseWriter, r *http.Request) {
	entries, err := s.state.Registry().TryEntries()
	switch {
	case errors.Is(err, registry.ErrRegistryBusy):
		w.Header().Set("Retry-After", "1")
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	case err != nil:
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, SystemsResponse{Count: len(entries), Systems: entries})
}

func (s *Server) handleShutdown(w http.ResponseWriter, r *http.Request) {
	s.logger.Info("Shutdown requested over HTTP", "remote", r.RemoteAddr)
	s.state.Shutdown().Trigger()
	writeJSON(w, http.StatusAccepted, HealthResponse{Status: "stopping"})
}

func (s *Server) shutdownRequested() bool {
	rx := s.receiver.Load()
	return rx != nil && rx.Fired()
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
