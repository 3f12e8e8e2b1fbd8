// Package process provides generic subprocess lifecycle management.
//
// This package is designed for managing long-running child processes like
// protocol daemons (a GridConnect hub, serial bridges, etc.) that Lumen
// Station depends on.
//
// Features:
//   - Start/stop subprocess with graceful shutdown
//   - Automatic restart on failure with exponential backoff
//   - Stable-run detection that resets the backoff after a healthy stretch
//   - Health monitoring with a recoverability gate for restarts
//   - Log capture from subprocess stdout/stderr
//   - Context-based cancellation for clean shutdown
//
// Example usage:
//
//	mgr := process.NewManager(process.Config{
//	    Name:               "hub",
//	    Binary:             "/usr/bin/hub",
//	    Args:               []string{"-p", "12021"},
//	    RestartOnFailure:   true,
//	    RestartDelay:       5 * time.Second,
//	    MaxRestartAttempts: 10,
//	})
//
//	if err := mgr.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer mgr.Stop()
package process
