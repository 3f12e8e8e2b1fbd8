package hub

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/nerrad567/lumen-station/internal/infrastructure/config"
	"github.com/nerrad567/lumen-station/internal/process"
)

// Timeouts and intervals for hub management.
const (
	// readyTimeout is how long to wait for the hub to accept TCP
	// connections after starting.
	readyTimeout = 30 * time.Second

	// readyPollInterval is how often to try connecting during the
	// readiness check.
	readyPollInterval = 100 * time.Millisecond

	// dialTimeout is the timeout for individual TCP connection attempts.
	dialTimeout = 500 * time.Millisecond

	// gracefulTimeout is how long the process manager waits for the hub
	// to exit after SIGTERM before sending SIGKILL.
	gracefulTimeout = 10 * time.Second
)

// Logger defines the logging interface for the hub manager.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Manager manages a local GridConnect hub process.
type Manager struct {
	config  config.HubConfig
	process *process.Manager
	logger  Logger

	// readyWait bounds the readiness check. Tests shorten it.
	readyWait time.Duration
}

// NewManager creates a new hub manager.
func NewManager(cfg config.HubConfig) (*Manager, error) {
	// Apply defaults for zero values
	if cfg.Binary == "" {
		cfg.Binary = "/usr/bin/hub"
	}
	if cfg.Port == 0 {
		cfg.Port = 12021
	}
	if cfg.RestartDelaySeconds == 0 {
		cfg.RestartDelaySeconds = 5
	}

	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("invalid hub config: port %d out of range", cfg.Port)
	}
	if cfg.RestartDelaySeconds < 0 {
		return nil, fmt.Errorf("invalid hub config: restart delay %d is negative", cfg.RestartDelaySeconds)
	}

	return &Manager{
		config:    cfg,
		logger:    noopLogger{},
		readyWait: readyTimeout,
	}, nil
}

// SetLogger sets the logger for the manager.
func (m *Manager) SetLogger(logger Logger) {
	m.logger = logger
}

// buildArgs returns the command-line arguments for the hub binary.
func buildArgs(cfg config.HubConfig) []string {
	return []string{"-p", strconv.Itoa(cfg.Port)}
}

// Start launches the hub process.
// It blocks until the hub is accepting TCP connections.
func (m *Manager) Start(ctx context.Context) error {
	if !m.config.Managed {
		m.logger.Info("hub management disabled, expecting external hub")
		return nil
	}

	args := buildArgs(m.config)

	m.logger.Info("starting hub",
		"binary", m.config.Binary,
		"args", args,
	)

	procConfig := process.Config{
		Name:               "hub",
		Binary:             m.config.Binary,
		Args:               args,
		RestartOnFailure:   m.config.RestartOnFailure,
		RestartDelay:       time.Duration(m.config.RestartDelaySeconds) * time.Second,
		MaxRestartAttempts: m.config.MaxRestartAttempts,
		GracefulTimeout:    gracefulTimeout,
		OnStart: func() {
			m.logger.Info("hub process started", "pid", m.process.PID())
		},
		OnStop: func(err error) {
			if err != nil {
				m.logger.Warn("hub process stopped", "error", err)
			} else {
				m.logger.Info("hub process stopped")
			}
		},
		OnRestart: func(attempt int) {
			m.logger.Info("hub restarting", "attempt", attempt)
		},
	}

	// Watchdog: a hub that stops accepting connections is as dead as one
	// that exited. Interval 0 disables probing.
	if m.config.HealthCheckIntervalSeconds > 0 {
		procConfig.HealthCheckInterval = time.Duration(m.config.HealthCheckIntervalSeconds) * time.Second
		procConfig.HealthCheckFunc = m.HealthCheck
	}

	m.process = process.NewManager(procConfig)
	m.process.SetLogger(m.logger)

	if err := m.process.Start(ctx); err != nil {
		return fmt.Errorf("starting hub: %w", err)
	}

	if err := m.waitForReady(ctx); err != nil {
		// Stop the process if it didn't become ready
		if stopErr := m.process.Stop(); stopErr != nil {
			m.logger.Warn("error stopping hub after failed readiness check", "error", stopErr)
		}
		return fmt.Errorf("hub failed to become ready: %w", err)
	}

	m.logger.Info("hub ready", "address", m.Address())

	return nil
}

// waitForReady waits for the hub to accept TCP connections.
func (m *Manager) waitForReady(ctx context.Context) error {
	addr := m.Address()
	deadline := time.Now().Add(m.readyWait)

	m.logger.Debug("waiting for hub to be ready", "address", addr)

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("context cancelled while waiting for hub: %w", ctx.Err())
		default:
		}

		if time.Now().After(deadline) {
			return fmt.Errorf("timeout waiting for hub on %s after %v", addr, m.readyWait)
		}

		// Check if process is still running
		if !m.process.IsRunning() {
			lastErr := m.process.LastError()
			if lastErr != nil {
				return fmt.Errorf("hub process exited: %w", lastErr)
			}
			return errors.New("hub process exited unexpectedly")
		}

		conn, err := net.DialTimeout("tcp", addr, dialTimeout)
		if err == nil {
			conn.Close()
			return nil
		}

		time.Sleep(readyPollInterval)
	}
}

// HealthCheck verifies the hub is accepting TCP connections.
func (m *Manager) HealthCheck(ctx context.Context) error {
	addr := m.Address()

	d := net.Dialer{Timeout: dialTimeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("hub not accepting connections on %s: %w", addr, err)
	}
	conn.Close()

	return nil
}

// Stop gracefully stops the hub process.
func (m *Manager) Stop() error {
	if !m.config.Managed || m.process == nil {
		return nil
	}

	m.logger.Info("stopping hub")

	return m.process.Stop()
}

// IsRunning returns true if the hub is currently running.
func (m *Manager) IsRunning() bool {
	if !m.config.Managed {
		// If not managed, assume the external hub is running
		return true
	}
	if m.process == nil {
		return false
	}
	return m.process.IsRunning()
}

// IsManaged returns true if this manager is controlling the hub process.
func (m *Manager) IsManaged() bool {
	return m.config.Managed
}

// Address returns the TCP address of the managed hub.
func (m *Manager) Address() string {
	return fmt.Sprintf("localhost:%d", m.config.Port)
}

// Stats holds statistics about the hub process.
type Stats struct {
	Managed      bool          `json:"managed"`
	Status       string        `json:"status"`
	Address      string        `json:"address"`
	PID          int           `json:"pid,omitempty"`
	Uptime       time.Duration `json:"uptime,omitempty"`
	RestartCount int           `json:"restart_count"`
	LastError    string        `json:"last_error,omitempty"`
}

// Stats returns current statistics for the hub.
func (m *Manager) Stats() Stats {
	stats := Stats{
		Managed: m.config.Managed,
		Address: m.Address(),
	}

	if m.process != nil {
		procStats := m.process.Stats()
		stats.Status = string(procStats.Status)
		stats.PID = procStats.PID
		stats.Uptime = procStats.Uptime
		stats.RestartCount = procStats.RestartCount
		stats.LastError = procStats.LastError
	} else if !m.config.Managed {
		stats.Status = "external"
	} else {
		stats.Status = "stopped"
	}

	return stats
}
