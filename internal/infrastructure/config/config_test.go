package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_ValidConfig(t *testing.T) {
	// Create a temporary config file
	content := `
station:
  name: "Test Station"
lcc:
  host: "hub.local"
  port: 12021
  node_id: "05.01.01.01.9F.60"
database:
  path: "/tmp/test.db"
  wal_mode: true
  busy_timeout: 5
api:
  host: "0.0.0.0"
  port: 8080
mqtt:
  broker:
    host: "localhost"
    port: 1883
    client_id: "test-client"
  qos: 1
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Station.Name != "Test Station" {
		t.Errorf("Station.Name = %q, want %q", cfg.Station.Name, "Test Station")
	}

	if cfg.LCC.Host != "hub.local" {
		t.Errorf("LCC.Host = %q, want %q", cfg.LCC.Host, "hub.local")
	}

	if cfg.Database.Path != "/tmp/test.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "/tmp/test.db")
	}

	if cfg.MQTT.Broker.Host != "localhost" {
		t.Errorf("MQTT.Broker.Host = %q, want %q", cfg.MQTT.Broker.Host, "localhost")
	}

	// Unspecified sections keep their defaults.
	if cfg.Station.LightingTickMS != 20 {
		t.Errorf("Station.LightingTickMS = %d, want default 20", cfg.Station.LightingTickMS)
	}
	if cfg.WebSocket.Path != "/api/v1/ws" {
		t.Errorf("WebSocket.Path = %q, want default %q", cfg.WebSocket.Path, "/api/v1/ws")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("invalid: [yaml: content"), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	content := `
lcc:
  host: ""
database:
  path: "/tmp/test.db"
api:
  port: 8080
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected validation error for empty lcc.host, got nil")
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "default config is valid",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "missing lcc host",
			mutate:  func(c *Config) { c.LCC.Host = "" },
			wantErr: true,
		},
		{
			name:    "lcc port too low",
			mutate:  func(c *Config) { c.LCC.Port = 0 },
			wantErr: true,
		},
		{
			name:    "lcc port too high",
			mutate:  func(c *Config) { c.LCC.Port = 70000 },
			wantErr: true,
		},
		{
			name:    "missing node id",
			mutate:  func(c *Config) { c.LCC.NodeID = "" },
			wantErr: true,
		},
		{
			name:    "negative event spacing",
			mutate:  func(c *Config) { c.LCC.EventSpacingMS = -1 },
			wantErr: true,
		},
		{
			name: "managed hub without binary",
			mutate: func(c *Config) {
				c.LCC.Hub.Managed = true
				c.LCC.Hub.Binary = ""
			},
			wantErr: true,
		},
		{
			name:    "zero fade steps",
			mutate:  func(c *Config) { c.Display.FadeSteps = 0 },
			wantErr: true,
		},
		{
			name:    "zero lighting tick",
			mutate:  func(c *Config) { c.Station.LightingTickMS = 0 },
			wantErr: true,
		},
		{
			name:    "missing database path",
			mutate:  func(c *Config) { c.Database.Path = "" },
			wantErr: true,
		},
		{
			name:    "invalid api port",
			mutate:  func(c *Config) { c.API.Port = 0 },
			wantErr: true,
		},
		{
			name:    "invalid qos",
			mutate:  func(c *Config) { c.MQTT.QoS = 3 },
			wantErr: true,
		},
		{
			name: "mqtt enabled without broker host",
			mutate: func(c *Config) {
				c.MQTT.Enabled = true
				c.MQTT.Broker.Host = ""
			},
			wantErr: true,
		},
		{
			name: "influxdb enabled without url",
			mutate: func(c *Config) {
				c.InfluxDB.Enabled = true
				c.InfluxDB.URL = ""
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_GetTimeouts(t *testing.T) {
	cfg := &Config{
		API: APIConfig{
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 45,
				Idle:  60,
			},
		},
	}

	if got := cfg.GetReadTimeout().Seconds(); got != 30 {
		t.Errorf("GetReadTimeout() = %v, want 30", got)
	}

	if got := cfg.GetWriteTimeout().Seconds(); got != 45 {
		t.Errorf("GetWriteTimeout() = %v, want 45", got)
	}

	if got := cfg.GetIdleTimeout().Seconds(); got != 60 {
		t.Errorf("GetIdleTimeout() = %v, want 60", got)
	}
}

func TestConfig_TickDurations(t *testing.T) {
	cfg := DefaultConfig()

	if got := cfg.GetLightingTick(); got != 20*time.Millisecond {
		t.Errorf("GetLightingTick() = %v, want 20ms", got)
	}
	if got := cfg.GetDisplayTick(); got != 500*time.Millisecond {
		t.Errorf("GetDisplayTick() = %v, want 500ms", got)
	}
	if got := cfg.GetEventSpacing(); got != 10*time.Millisecond {
		t.Errorf("GetEventSpacing() = %v, want 10ms", got)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	cfg := DefaultConfig()

	// Set environment variables
	t.Setenv("LUMEN_DATABASE_PATH", "/custom/path.db")
	t.Setenv("LUMEN_LCC_HOST", "hub.example.com")
	t.Setenv("LUMEN_LCC_NODE_ID", "05.01.01.01.22.61")
	t.Setenv("LUMEN_MQTT_HOST", "mqtt.example.com")
	t.Setenv("LUMEN_MQTT_USERNAME", "testuser")
	t.Setenv("LUMEN_MQTT_PASSWORD", "testpass")
	t.Setenv("LUMEN_API_HOST", "192.168.1.1")
	t.Setenv("LUMEN_INFLUXDB_TOKEN", "secret-token")

	applyEnvOverrides(cfg)

	if cfg.Database.Path != "/custom/path.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "/custom/path.db")
	}

	if cfg.LCC.Host != "hub.example.com" {
		t.Errorf("LCC.Host = %q, want %q", cfg.LCC.Host, "hub.example.com")
	}

	if cfg.LCC.NodeID != "05.01.01.01.22.61" {
		t.Errorf("LCC.NodeID = %q, want %q", cfg.LCC.NodeID, "05.01.01.01.22.61")
	}

	if cfg.MQTT.Broker.Host != "mqtt.example.com" {
		t.Errorf("MQTT.Broker.Host = %q, want %q", cfg.MQTT.Broker.Host, "mqtt.example.com")
	}

	if cfg.MQTT.Auth.Username != "testuser" {
		t.Errorf("MQTT.Auth.Username = %q, want %q", cfg.MQTT.Auth.Username, "testuser")
	}

	if cfg.MQTT.Auth.Password != "testpass" {
		t.Errorf("MQTT.Auth.Password = %q, want %q", cfg.MQTT.Auth.Password, "testpass")
	}

	if cfg.API.Host != "192.168.1.1" {
		t.Errorf("API.Host = %q, want %q", cfg.API.Host, "192.168.1.1")
	}

	if cfg.InfluxDB.Token != "secret-token" {
		t.Errorf("InfluxDB.Token = %q, want %q", cfg.InfluxDB.Token, "secret-token")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if err := cfg.Validate(); err != nil {
		t.Errorf("DefaultConfig() should validate cleanly: %v", err)
	}

	if cfg.LCC.Port != 12021 {
		t.Errorf("DefaultConfig LCC.Port = %d, want 12021", cfg.LCC.Port)
	}

	if cfg.LCC.NodeID != "05.01.01.01.9F.60" {
		t.Errorf("DefaultConfig LCC.NodeID = %q, want %q", cfg.LCC.NodeID, "05.01.01.01.9F.60")
	}

	if cfg.MQTT.Broker.Port != 1883 {
		t.Errorf("DefaultConfig MQTT.Broker.Port = %d, want 1883", cfg.MQTT.Broker.Port)
	}

	if cfg.MQTT.Enabled {
		t.Error("DefaultConfig MQTT should be disabled")
	}

	if cfg.API.Port != 8080 {
		t.Errorf("DefaultConfig API.Port = %d, want 8080", cfg.API.Port)
	}
}

func TestConfig_HubAddress(t *testing.T) {
	cfg := DefaultConfig()
	if got := cfg.HubAddress(); got != "localhost:12021" {
		t.Errorf("HubAddress() = %q, want %q", got, "localhost:12021")
	}

	cfg.LCC.Host = "10.0.0.5"
	cfg.LCC.Port = 23000
	if got := cfg.HubAddress(); got != "10.0.0.5:23000" {
		t.Errorf("HubAddress() = %q, want %q", got, "10.0.0.5:23000")
	}
}
