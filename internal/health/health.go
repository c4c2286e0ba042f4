// Package health serves the liveness endpoint and the Prometheus
// metrics handler.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PollReporter reports the scheduler's last tick. Implemented by the
// scheduler.
type PollReporter interface {
	Status() (lastPoll time.Time, lastStatus string)
}

// Budget reports the daily API budget. Implemented by the rate governor.
type Budget interface {
	CallsToday() int
	Remaining() int
}

// CredentialStatus reports the credential pool's shape. Implemented by
// the credential pool.
type CredentialStatus interface {
	Status() (total, usable, cooling int)
}

// Server is the health HTTP server.
type Server struct {
	httpSrv      *http.Server
	start        time.Time
	poll         PollReporter
	budget       Budget
	credentials  CredentialStatus
	log          *slog.Logger
	shuttingDown atomic.Bool
	now          func() time.Time
}

func NewServer(port int, poll PollReporter, budget Budget, credentials CredentialStatus, log *slog.Logger) *Server {
	s := &Server{
		start:       time.Now().UTC(),
		poll:        poll,
		budget:      budget,
		credentials: credentials,
		log:         log.With("component", "health"),
		now:         time.Now,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())
	s.httpSrv = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Start serves until Shutdown. Blocks.
func (s *Server) Start() error {
	s.log.Info("health endpoint listening", "addr", s.httpSrv.Addr)
	if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("health: serve: %w", err)
	}
	return nil
}

// Shutdown flips the reported status to shutting_down and stops the
// listener.
func (s *Server) Shutdown(ctx context.Context) error {
	s.shuttingDown.Store(true)
	return s.httpSrv.Shutdown(ctx)
}

type healthResponse struct {
	Status             string `json:"status"`
	Uptime             string `json:"uptime"`
	LastPoll           string `json:"lastPoll"`
	LastPollStatus     string `json:"lastPollStatus"`
	APICallsToday      int    `json:"apiCallsToday"`
	APICallsRemaining  int    `json:"apiCallsRemaining"`
	CredentialsTotal   int    `json:"credentialsTotal"`
	CredentialsUsable  int    `json:"credentialsUsable"`
	CredentialsCooling int    `json:"credentialsCooling"`
	Timestamp          string `json:"timestamp"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	now := s.now().UTC()
	status := "healthy"
	if s.shuttingDown.Load() {
		status = "shutting_down"
	}
	lastPoll, lastStatus := s.poll.Status()
	resp := healthResponse{
		Status:            status,
		Uptime:            now.Sub(s.start).Truncate(time.Second).String(),
		LastPollStatus:    lastStatus,
		APICallsToday:     s.budget.CallsToday(),
		APICallsRemaining: s.budget.Remaining(),
		Timestamp:         now.Format(time.RFC3339),
	}
	if !lastPoll.IsZero() {
		resp.LastPoll = lastPoll.Format(time.RFC3339)
	}
	if s.credentials != nil {
		resp.CredentialsTotal, resp.CredentialsUsable, resp.CredentialsCooling = s.credentials.Status()
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.log.Warn("encode health response", "error", err)
	}
}
