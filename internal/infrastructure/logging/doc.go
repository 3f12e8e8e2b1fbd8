// Package logging provides structured logging for Lumen Station.
//
// This package wraps Go's standard log/slog package to provide
// consistent, structured logging across the entire application.
//
// # Features
//
//   - JSON output for production (machine-parsable)
//   - Text output for development (human-readable)
//   - Default fields (service, version) on all log entries
//   - Level-based filtering (debug, info, warn, error)
//   - Thread-safe for concurrent use
//
// # Configuration
//
// Logging is configured via the LoggingConfig in config.yaml:
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// # Usage
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	logger.Info("starting station", "port", 8080)
//	logger.Error("hub connection failed", "error", err)
//
// Component packages (lcc, lighting, display) declare their own minimal
// logger interfaces; *Logger satisfies them, so wiring is a straight
// hand-off with a component attribute:
//
//	client.SetLogger(logger.With("component", "lcc"))
//
// # Security
//
// Never log secrets, tokens, passwords, or API keys.
package logging
