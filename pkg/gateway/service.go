package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"rtmbot/pkg/config"
	"rtmbot/pkg/rtm"
)

const (
	defaultHealthHost = "0.0.0.0"
	defaultHealthPort = 18790
)

// SessionRunner is the session surface the service drives and reports on.
// *rtm.Session satisfies it.
type SessionRunner interface {
	Run(ctx context.Context) error
	Ready() bool
	Stats() rtm.Stats
}

// Service runs one session and, when enabled, a status server reporting on it.
type Service struct {
	cfg     config.GatewayConfig
	log     *slog.Logger
	session SessionRunner

	mu         sync.RWMutex
	startedAt  time.Time
	running    bool
	sessionErr string
}

type statusResponse struct {
	Status        string    `json:"status"`
	UptimeSeconds int64     `json:"uptime_seconds"`
	Running       bool      `json:"running"`
	SessionError  string    `json:"session_error,omitempty"`
	Session       rtm.Stats `json:"session"`
}

func NewService(cfg config.GatewayConfig, session SessionRunner, log *slog.Logger) (*Service, error) {
	if session == nil {
		return nil, errors.New("session is required")
	}
	if log == nil {
		log = slog.Default()
	}

	return &Service{
		cfg:     cfg,
		log:     log.With("component", "gateway.service"),
		session: session,
	}, nil
}

// Run blocks until the session ends, the status server fails, or ctx ends.
// The session's own result is returned; a status server failure stops the
// session and is returned instead.
func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.mu.Lock()
	s.startedAt = time.Now().UTC()
	s.running = true
	s.sessionErr = ""
	s.mu.Unlock()

	serverErrors := make(chan error, 1)
	if s.cfg.Enabled {
		go s.runStatusServer(ctx, serverErrors)
	}

	sessionDone := make(chan error, 1)
	go func() {
		err := s.session.Run(ctx)
		s.setSessionResult(err)
		sessionDone <- err
	}()

	select {
	case err := <-sessionDone:
		if err != nil {
			return fmt.Errorf("run session: %w", err)
		}
		return nil
	case err := <-serverErrors:
		cancel()
		<-sessionDone
		return err
	}
}

// Handler serves /healthz and /readyz.
func (s *Service) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)
	return mux
}

func (s *Service) runStatusServer(ctx context.Context, errCh chan<- error) {
	host := strings.TrimSpace(s.cfg.Host)
	if host == "" {
		host = defaultHealthHost
	}

	port := s.cfg.Port
	if port <= 0 {
		port = defaultHealthPort
	}

	addr := host + ":" + strconv.Itoa(port)
	server := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	s.log.Info("Gateway status server started", "address", addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		errCh <- fmt.Errorf("start status server: %w", err)
	}
}

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.respondStatus(w, http.StatusOK, "ok")
}

func (s *Service) handleReady(w http.ResponseWriter, _ *http.Request) {
	statusCode := http.StatusOK
	status := "ready"
	if !s.isReady() {
		statusCode = http.StatusServiceUnavailable
		status = "not_ready"
	}

	s.respondStatus(w, statusCode, status)
}

func (s *Service) respondStatus(w http.ResponseWriter, statusCode int, status string) {
	payload := s.currentStatus(status)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log.Error("Failed to write status response", "error", err)
	}
}

func (s *Service) currentStatus(status string) statusResponse {
	stats := s.session.Stats()

	s.mu.RLock()
	defer s.mu.RUnlock()

	uptime := int64(0)
	if !s.startedAt.IsZero() {
		uptime = int64(time.Since(s.startedAt).Seconds())
	}

	return statusResponse{
		Status:        status,
		UptimeSeconds: uptime,
		Running:       s.running,
		SessionError:  s.sessionErr,
		Session:       stats,
	}
}

// isReady requires a running session that has received its hello frame.
func (s *Service) isReady() bool {
	s.mu.RLock()
	running := s.running
	s.mu.RUnlock()

	return running && s.session.Ready()
}

func (s *Service) setSessionResult(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.running = false
	s.sessionErr = errorString(err)
	if err != nil {
		s.log.Error("Session ended", "error", err)
		return
	}
	s.log.Info("Session ended")
}

func errorString(err error) string {
	if err == nil {
		return ""
	}

	return err.Error()
}
