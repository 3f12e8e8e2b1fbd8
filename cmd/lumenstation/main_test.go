package main

import (
	"context"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"
)

// TestRun_InvalidConfig verifies run fails with invalid config path.
func TestRun_InvalidConfig(t *testing.T) {
	originalEnv := os.Getenv("LUMEN_CONFIG")
	defer os.Setenv("LUMEN_CONFIG", originalEnv)

	os.Setenv("LUMEN_CONFIG", "/nonexistent/path/config.yaml")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := run(ctx)
	if err == nil {
		t.Fatal("run() should fail with invalid config path")
	}
}

// TestRun_MissingDatabasePath verifies run fails when database path is invalid.
func TestRun_MissingDatabasePath(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test-config.yaml")

	configContent := `
station:
  name: "Test Station"

lcc:
  host: "127.0.0.1"
  port: 12021

database:
  path: ""
  wal_mode: true
  busy_timeout: 5

mqtt:
  enabled: false

influxdb:
  enabled: false

logging:
  level: error
  format: text
  output: stdout
`
	if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	originalEnv := os.Getenv("LUMEN_CONFIG")
	defer os.Setenv("LUMEN_CONFIG", originalEnv)
	os.Setenv("LUMEN_CONFIG", configPath)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := run(ctx)
	if err == nil {
		t.Fatal("run() should fail with empty database path")
	}
}

// TestGetConfigPath_Default verifies default config path.
func TestGetConfigPath_Default(t *testing.T) {
	originalEnv := os.Getenv("LUMEN_CONFIG")
	defer os.Setenv("LUMEN_CONFIG", originalEnv)

	os.Unsetenv("LUMEN_CONFIG")

	path := getConfigPath()
	if path != defaultConfigPath {
		t.Errorf("getConfigPath() = %q, want %q", path, defaultConfigPath)
	}
}

// TestGetConfigPath_EnvOverride verifies environment variable override.
func TestGetConfigPath_EnvOverride(t *testing.T) {
	originalEnv := os.Getenv("LUMEN_CONFIG")
	defer os.Setenv("LUMEN_CONFIG", originalEnv)

	expected := "/custom/path/config.yaml"
	os.Setenv("LUMEN_CONFIG", expected)

	path := getConfigPath()
	if path != expected {
		t.Errorf("getConfigPath() = %q, want %q", path, expected)
	}
}

// TestRun_HubUnreachable verifies run fails fast when no hub is listening.
func TestRun_HubUnreachable(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test-config.yaml")
	dbPath := filepath.Join(tmpDir, "test.db")

	// Grab a free port, then close it so nothing is listening there.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to reserve port: %v", err)
	}
	hubPort := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	configContent := `
station:
  name: "Test Station"

lcc:
  host: "127.0.0.1"
  port: ` + strconv.Itoa(hubPort) + `
  connect_timeout: 2

database:
  path: "` + dbPath + `"
  wal_mode: true
  busy_timeout: 5

mqtt:
  enabled: false

influxdb:
  enabled: false

logging:
  level: error
  format: text
  output: stdout
`
	if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	originalEnv := os.Getenv("LUMEN_CONFIG")
	defer os.Setenv("LUMEN_CONFIG", originalEnv)
	os.Setenv("LUMEN_CONFIG", configPath)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err = run(ctx)
	if err == nil {
		t.Fatal("run() should fail when the hub is unreachable")
	}
	t.Logf("run() returned expected error: %v", err)
}

// TestRun_StartupAndShutdown tests full startup and clean shutdown against a
// stand-in hub. The check-in handshake treats silence as consent, so a plain
// TCP listener that never responds is enough for the station to come up.
func TestRun_StartupAndShutdown(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test-config.yaml")
	dbPath := filepath.Join(tmpDir, "test.db")

	// Stand-in hub: accepts the TCP connection and discards whatever the
	// station sends.
	hubListener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to start stand-in hub: %v", err)
	}
	defer hubListener.Close()
	hubPort := hubListener.Addr().(*net.TCPAddr).Port

	go func() {
		for {
			conn, acceptErr := hubListener.Accept()
			if acceptErr != nil {
				return
			}
			go func(c net.Conn) {
				defer c.Close()
				_, _ = io.Copy(io.Discard, c)
			}(conn)
		}
	}()

	// Reserve a free port for the API server.
	apiProbe, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to reserve API port: %v", err)
	}
	apiPort := apiProbe.Addr().(*net.TCPAddr).Port
	apiProbe.Close()

	configContent := `
station:
  name: "Test Station"
  lighting_tick_ms: 20
  display_tick_ms: 100

lcc:
  host: "127.0.0.1"
  port: ` + strconv.Itoa(hubPort) + `
  connect_timeout: 2
  read_timeout: 5
  event_spacing_ms: 1

database:
  path: "` + dbPath + `"
  wal_mode: true
  busy_timeout: 5

api:
  host: "127.0.0.1"
  port: ` + strconv.Itoa(apiPort) + `
  timeouts:
    read: 5
    write: 5
    idle: 10

mqtt:
  enabled: false

influxdb:
  enabled: false

logging:
  level: error
  format: text
  output: stdout
`
	if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	originalEnv := os.Getenv("LUMEN_CONFIG")
	defer os.Setenv("LUMEN_CONFIG", originalEnv)
	os.Setenv("LUMEN_CONFIG", configPath)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := run(ctx); err != nil {
		t.Fatalf("run() should start and shut down cleanly, got: %v", err)
	}
}
