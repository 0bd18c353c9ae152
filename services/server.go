package services

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"apphost/internal/config"
	"apphost/internal/env"
	"apphost/internal/logger"
	"apphost/internal/models"
)

// Server exposes one launch over the control API.
type Server struct {
	cfg        *config.AppConfig
	launcher   *Launcher
	startTime  time.Time
	httpServer *http.Server
}

/**
 * Create new server instance for a launcher
 * @param {config.AppConfig} cfg - Application configuration
 * @param {*Launcher} launcher - The launch being served
 * @returns {Server} Returns new server instance
 */
func NewServer(cfg *config.AppConfig, launcher *Launcher) *Server {
	return &Server{
		cfg:       cfg,
		launcher:  launcher,
		startTime: time.Now(),
	}
}

func (s *Server) Launcher() *Launcher {
	return s.launcher
}

func (s *Server) Config() *config.AppConfig {
	return s.cfg
}

/**
 * Serve handler on the configured address in the background
 * @param {http.Handler} handler - Router built by the controllers package
 * @returns {error} Error if the address cannot be listened on
 * @description
 * - The listener is created synchronously so address errors surface at once
 * - Serve errors after startup are logged
 */
func (s *Server) Listen(handler http.Handler) error {
	l, err := net.Listen("tcp", s.cfg.Server.Address)
	if err != nil {
		return err
	}
	s.httpServer = &http.Server{Handler: handler, ReadHeaderTimeout: 5 * time.Second}
	logger.Infof("Control API listening on http://%s", l.Addr())
	go func() {
		if err := s.httpServer.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("Control API stopped: %v", err)
		}
	}()
	return nil
}

// Close stops the control API, waiting for in-flight requests.
func (s *Server) Close(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

/**
 * Build the health check response
 * @returns {models.HealthResponse} Version, run id, uptime and key counters
 * @description
 * - Status is "UP" while the launch is running, otherwise the host state
 */
func (s *Server) GetHealthz() models.HealthResponse {
	snap := s.launcher.Snapshot()
	running := 0
	for _, r := range snap.Resources {
		if r.State == models.StateRunning {
			running++
		}
	}

	status := "UP"
	if snap.State != models.HostRunning {
		status = string(snap.State)
	}
	return models.HealthResponse{
		Version:   env.Version,
		RunID:     snap.RunID,
		StartTime: s.startTime.Format(time.RFC3339),
		Status:    status,
		Uptime:    time.Since(s.startTime).Round(time.Second).String(),
		Metrics: models.Metrics{
			TotalRequests:    GetTotalRequestCount(),
			ErrorRequests:    GetTotalErrorCount(),
			RunningResources: running,
			TotalResources:   len(snap.Resources),
		},
	}
}
