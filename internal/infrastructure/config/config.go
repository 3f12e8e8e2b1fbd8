package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for Lumen Station.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Station   StationConfig   `yaml:"station"`
	LCC       LCCConfig       `yaml:"lcc"`
	Display   DisplayConfig   `yaml:"display"`
	Database  DatabaseConfig  `yaml:"database"`
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// StationConfig contains station identity and tick cadence settings.
type StationConfig struct {
	Name string `yaml:"name"`

	// LightingTickMS is the fade orchestrator tick interval in milliseconds.
	LightingTickMS int `yaml:"lighting_tick_ms"`

	// DisplayTickMS is the display power machine tick interval in milliseconds.
	DisplayTickMS int `yaml:"display_tick_ms"`
}

// LCCConfig contains GridConnect hub connection settings.
type LCCConfig struct {
	// Host and Port locate the GridConnect TCP hub.
	Host string `yaml:"host"`
	Port int    `yaml:"port"`

	// NodeID is the station's 48-bit node identifier in dotted hex
	// (e.g. "05.01.01.01.9F.60").
	NodeID string `yaml:"node_id"`

	ConnectTimeout int `yaml:"connect_timeout"` // seconds
	ReadTimeout    int `yaml:"read_timeout"`    // seconds

	// EventSpacingMS is the minimum gap between event transmissions in
	// milliseconds. Receivers interpolate fades; pacing keeps six-event
	// bursts from overrunning slow CAN segments.
	EventSpacingMS int `yaml:"event_spacing_ms"`

	// Hub contains managed local hub process settings.
	Hub HubConfig `yaml:"hub"`
}

// HubConfig contains settings for supervising a local GridConnect hub process.
type HubConfig struct {
	// Managed indicates whether Lumen Station should run the hub itself.
	// If false, a hub is expected to be reachable externally.
	Managed bool `yaml:"managed"`

	// Binary is the path to the hub executable.
	Binary string `yaml:"binary"`

	// Port is the TCP port the managed hub listens on.
	Port int `yaml:"port"`

	// RestartOnFailure enables automatic restart if the hub exits.
	RestartOnFailure bool `yaml:"restart_on_failure"`

	// RestartDelaySeconds is the time to wait before restarting.
	RestartDelaySeconds int `yaml:"restart_delay_seconds"`

	// MaxRestartAttempts limits restart attempts. 0 means unlimited.
	MaxRestartAttempts int `yaml:"max_restart_attempts"`

	// HealthCheckIntervalSeconds is how often the supervisor probes the
	// hub's TCP port. 0 disables probing.
	HealthCheckIntervalSeconds int `yaml:"health_check_interval_seconds"`
}

// DisplayConfig contains display ramp animation settings.
type DisplayConfig struct {
	FadeDurationMS int `yaml:"fade_duration_ms"`
	FadeSteps      int `yaml:"fade_steps"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	TLS      TLSConfig        `yaml:"tls"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// TLSConfig contains TLS certificate settings.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// APITimeoutConfig contains HTTP timeout settings.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// WebSocketConfig contains WebSocket server settings.
type WebSocketConfig struct {
	Path           string `yaml:"path"`
	MaxMessageSize int    `yaml:"max_message_size"`
	PingInterval   int    `yaml:"ping_interval"`
	PongTimeout    int    `yaml:"pong_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
// The broker mirror is optional; the station runs fully without one.
type MQTTConfig struct {
	Enabled     bool                `yaml:"enabled"`
	Broker      MQTTBrokerConfig    `yaml:"broker"`
	Auth        MQTTAuthConfig      `yaml:"auth"`
	QoS         int                 `yaml:"qos"`
	TopicPrefix string              `yaml:"topic_prefix"`
	Reconnect   MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// InfluxDBConfig contains InfluxDB telemetry settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: LUMEN_SECTION_KEY
// For example: LUMEN_DATABASE_PATH, LUMEN_LCC_HOST
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	// Start with defaults
	cfg := DefaultConfig()

	// Read and parse YAML file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Apply environment variable overrides
	applyEnvOverrides(cfg)

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// DefaultConfig returns a Config with sensible defaults.
//
// The defaults describe a standalone station: local hub on the standard
// GridConnect port, SQLite alongside the binary, MQTT and InfluxDB off.
func DefaultConfig() *Config {
	return &Config{
		Station: StationConfig{
			Name:           "Lumen Station",
			LightingTickMS: 20,
			DisplayTickMS:  500,
		},
		LCC: LCCConfig{
			Host:           "localhost",
			Port:           12021,
			NodeID:         "05.01.01.01.9F.60",
			ConnectTimeout: 10,
			ReadTimeout:    30,
			EventSpacingMS: 10,
			Hub: HubConfig{
				Managed:                    false,
				Binary:                     "/usr/bin/hub",
				Port:                       12021,
				RestartOnFailure:           true,
				RestartDelaySeconds:        5,
				MaxRestartAttempts:         10,
				HealthCheckIntervalSeconds: 30,
			},
		},
		Display: DisplayConfig{
			FadeDurationMS: 1000,
			FadeSteps:      20,
		},
		Database: DatabaseConfig{
			Path:        "./data/lumenstation.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8080,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			Path:           "/api/v1/ws",
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		MQTT: MQTTConfig{
			Enabled: false,
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "lumen-station",
			},
			QoS:         1,
			TopicPrefix: "lumen",
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
		},
		InfluxDB: InfluxDBConfig{
			Enabled:       false,
			BatchSize:     100,
			FlushInterval: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: LUMEN_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Database
	if v := os.Getenv("LUMEN_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// LCC hub
	if v := os.Getenv("LUMEN_LCC_HOST"); v != "" {
		cfg.LCC.Host = v
	}
	if v := os.Getenv("LUMEN_LCC_NODE_ID"); v != "" {
		cfg.LCC.NodeID = v
	}

	// MQTT
	if v := os.Getenv("LUMEN_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("LUMEN_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("LUMEN_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// API
	if v := os.Getenv("LUMEN_API_HOST"); v != "" {
		cfg.API.Host = v
	}

	// InfluxDB
	if v := os.Getenv("LUMEN_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of all validation failures, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// LCC validation
	if c.LCC.Host == "" {
		errs = append(errs, "lcc.host is required")
	}
	if c.LCC.Port < 1 || c.LCC.Port > 65535 {
		errs = append(errs, "lcc.port must be between 1 and 65535")
	}
	if c.LCC.NodeID == "" {
		errs = append(errs, "lcc.node_id is required")
	}
	if c.LCC.EventSpacingMS < 0 {
		errs = append(errs, "lcc.event_spacing_ms must not be negative")
	}
	if c.LCC.Hub.Managed && c.LCC.Hub.Binary == "" {
		errs = append(errs, "lcc.hub.binary is required when lcc.hub.managed is true")
	}

	// Display validation
	if c.Display.FadeSteps < 1 {
		errs = append(errs, "display.fade_steps must be at least 1")
	}

	// Station validation
	if c.Station.LightingTickMS < 1 {
		errs = append(errs, "station.lighting_tick_ms must be at least 1")
	}
	if c.Station.DisplayTickMS < 1 {
		errs = append(errs, "station.display_tick_ms must be at least 1")
	}

	// Database validation
	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	// API validation
	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	// MQTT validation
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.MQTT.Enabled && c.MQTT.Broker.Host == "" {
		errs = append(errs, "mqtt.broker.host is required when mqtt is enabled")
	}

	// InfluxDB validation
	if c.InfluxDB.Enabled && c.InfluxDB.URL == "" {
		errs = append(errs, "influxdb.url is required when influxdb is enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// HubAddress returns the GridConnect hub's TCP address ("host:port").
func (c *Config) HubAddress() string {
	return fmt.Sprintf("%s:%d", c.LCC.Host, c.LCC.Port)
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}

// GetLightingTick returns the fade orchestrator tick interval as a Duration.
func (c *Config) GetLightingTick() time.Duration {
	return time.Duration(c.Station.LightingTickMS) * time.Millisecond
}

// GetDisplayTick returns the display machine tick interval as a Duration.
func (c *Config) GetDisplayTick() time.Duration {
	return time.Duration(c.Station.DisplayTickMS) * time.Millisecond
}

// GetEventSpacing returns the minimum inter-event transmission gap as a Duration.
func (c *Config) GetEventSpacing() time.Duration {
	return time.Duration(c.LCC.EventSpacingMS) * time.Millisecond
}
