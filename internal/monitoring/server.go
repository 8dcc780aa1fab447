package monitoring

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/guided-traffic/license-seal/internal/license"
	"github.com/guided-traffic/license-seal/pkg/licensetoken"
)

// StatusProvider exposes the latest license snapshot, e.g. *license.Monitor.
type StatusProvider interface {
	Snapshot() (license.Snapshot, bool)
}

// Server represents the monitoring server
type Server struct {
	httpServer *http.Server
	logger     *logrus.Entry
	status     StatusProvider
}

// Config holds monitoring server configuration
type Config struct {
	BindAddress string
	MetricsPath string
	Version     string
}

type licenseStatus struct {
	Product       string     `json:"product"`
	Found         bool       `json:"found"`
	Result        string     `json:"result"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
	DaysRemaining *int       `json:"days_remaining,omitempty"`
	Error         string     `json:"error,omitempty"`
}

type statusResponse struct {
	Result    string          `json:"result"`
	CheckedAt *time.Time      `json:"checked_at,omitempty"`
	Licenses  []licenseStatus `json:"licenses,omitempty"`
}

// NewServer creates a new monitoring server. status may be nil, in which
// case /status always reports that no check has run.
func NewServer(cfg *Config, status StatusProvider) *Server {
	s := &Server{
		logger: logrus.WithField("component", "monitoring-server"),
		status: status,
	}

	metricsPath := cfg.MetricsPath
	if metricsPath == "" {
		metricsPath = "/metrics"
	}

	router := mux.NewRouter()
	router.Use(HTTPMiddleware)

	// Prometheus metrics endpoint
	router.Handle(metricsPath, promhttp.HandlerFor(registry, promhttp.HandlerOpts{})).Methods(http.MethodGet).Name(routeMetrics)

	// Health check endpoint for monitoring
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}).Methods(http.MethodGet).Name(routeHealth)

	// Service info endpoint
	router.HandleFunc("/info", func(w http.ResponseWriter, r *http.Request) {
		s.writeJSON(w, http.StatusOK, map[string]string{
			"service":    "license-seal",
			"version":    cfg.Version,
			"monitoring": "enabled",
		})
	}).Methods(http.MethodGet).Name(routeInfo)

	router.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet).Name(routeStatus)
	router.NotFoundHandler = HTTPMiddleware(http.NotFoundHandler())

	s.httpServer = &http.Server{
		Addr:         cfg.BindAddress,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Handler returns the router, for embedding or tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if s.status == nil {
		s.writeJSON(w, http.StatusServiceUnavailable, statusResponse{Result: "unknown"})
		return
	}

	snapshot, ok := s.status.Snapshot()
	if !ok {
		s.writeJSON(w, http.StatusServiceUnavailable, statusResponse{Result: "unknown"})
		return
	}

	checkedAt := snapshot.CheckedAt
	resp := statusResponse{
		Result:    snapshot.Result.String(),
		CheckedAt: &checkedAt,
	}
	for _, info := range snapshot.Licenses {
		entry := licenseStatus{
			Product: info.Product,
			Found:   info.Found,
			Result:  info.Result.String(),
		}
		if !info.ExpiresAt.IsZero() {
			expires := info.ExpiresAt
			days := info.TimeRemaining.Years*365 + info.TimeRemaining.Days
			entry.ExpiresAt = &expires
			entry.DaysRemaining = &days
		}
		if info.Err != nil {
			entry.Error = info.Err.Error()
		}
		resp.Licenses = append(resp.Licenses, entry)
	}

	code := http.StatusOK
	if snapshot.Result > licensetoken.ExpiredWithinGracePeriod {
		code = http.StatusServiceUnavailable
	}
	s.writeJSON(w, code, resp)
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.WithError(err).Debug("Failed to write response")
	}
}

// Start starts the monitoring server and blocks until ctx is cancelled
func (s *Server) Start(ctx context.Context) error {
	s.logger.WithField("address", s.httpServer.Addr).Info("Starting monitoring server")

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("monitoring server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	// Graceful shutdown
	s.logger.Info("Shutting down monitoring server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("monitoring server shutdown failed: %w", err)
	}

	s.logger.Info("Monitoring server stopped")
	return nil
}
