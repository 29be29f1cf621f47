package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/onvifd/camera-onvif-daemon/internal/logging"
)

// Config configures the health HTTP server. It is intentionally
// separate from the daemon's main onvifd.ini config: health probing is
// an operational add-on, not an ONVIF service surface.
type Config struct {
	Enabled      bool
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

func DefaultConfig() Config {
	return Config{
		Enabled:      true,
		Host:         "127.0.0.1",
		Port:         8003,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
		IdleTimeout:  30 * time.Second,
	}
}

// Server implements the HTTP endpoints, delegating all status logic to
// an API. It holds no component knowledge of its own.
type Server struct {
	cfg       Config
	logger    *logging.Logger
	api       API
	server    *http.Server
	startTime time.Time
}

func NewServer(cfg Config, api API, logger *logging.Logger) (*Server, error) {
	if api == nil {
		return nil, fmt.Errorf("health API cannot be nil")
	}

	s := &Server{cfg: cfg, logger: logger, api: api, startTime: time.Now()}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/health/detailed", s.handleDetailed)
	mux.HandleFunc("/ready", s.handleReady)
	mux.HandleFunc("/alive", s.handleAlive)

	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      mux,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return s, nil
}

// Serve blocks until ctx is cancelled, then shuts the server down. A
// no-op if the server is disabled.
func (s *Server) Serve(ctx context.Context) error {
	if !s.cfg.Enabled {
		return nil
	}

	s.logger.WithFields(logging.Fields{"address": s.server.Addr}).Info("starting health server")

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(shutdownCtx)
}

func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

// Stop implements common.Stoppable.
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp, err := s.api.GetHealth(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDetailed(w http.ResponseWriter, r *http.Request) {
	resp, err := s.api.GetDetailedHealth(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	resp, err := s.api.IsReady(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	status := http.StatusOK
	if !resp.Ready {
		status = http.StatusServiceUnavailable
	}
	s.writeJSON(w, status, resp)
}

func (s *Server) handleAlive(w http.ResponseWriter, r *http.Request) {
	resp, err := s.api.IsAlive(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	status := http.StatusOK
	if !resp.Alive {
		status = http.StatusServiceUnavailable
	}
	s.writeJSON(w, status, resp)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil && s.logger != nil {
		s.logger.WithError(err).Error("failed to encode health response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]interface{}{"error": message, "timestamp": time.Now().Format(time.RFC3339)})
}
