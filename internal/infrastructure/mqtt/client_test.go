package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/nerrad567/lumen-station/internal/infrastructure/config"
)

// testConfig returns a valid MQTT configuration for testing.
func testConfig() config.MQTTConfig {
	return config.MQTTConfig{
		Broker: config.MQTTBrokerConfig{
			Host:     "127.0.0.1",
			Port:     1883,
			ClientID: "lumen-station-test",
			TLS:      false,
		},
		QoS:         1,
		TopicPrefix: "lumen",
		Reconnect: config.MQTTReconnectConfig{
			InitialDelay: 1,
			MaxDelay:     5,
		},
	}
}

// =============================================================================
// Topic Tests
// =============================================================================

func TestTopics(t *testing.T) {
	topics := NewTopics("lumen")

	tests := map[string]struct {
		got  string
		want string
	}{
		"status":          {topics.Status(), "lumen/status"},
		"station status":  {topics.StationStatus(), "lumen/station/status"},
		"fade progress":   {topics.FadeProgress(), "lumen/fade/progress"},
		"display state":   {topics.DisplayState(), "lumen/display/state"},
		"command fade":    {topics.CommandFade(), "lumen/command/fade"},
		"command abort":   {topics.CommandAbort(), "lumen/command/abort"},
		"command display": {topics.CommandDisplay(), "lumen/command/display"},
		"all commands":    {topics.AllCommands(), "lumen/command/+"},
		"all":             {topics.All(), "lumen/#"},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("topic = %q, want %q", tt.got, tt.want)
			}
		})
	}
}

func TestTopicsCustomPrefix(t *testing.T) {
	topics := NewTopics("layouts/attic")
	if got := topics.CommandFade(); got != "layouts/attic/command/fade" {
		t.Errorf("CommandFade() = %q", got)
	}
}

func TestTopicsEmptyPrefixDefaults(t *testing.T) {
	topics := NewTopics("")
	if got := topics.Status(); got != "lumen/status" {
		t.Errorf("Status() = %q, want lumen/status", got)
	}
}

func TestClientTopics(t *testing.T) {
	cfg := testConfig()
	cfg.TopicPrefix = "custom"

	c := &Client{cfg: cfg}
	if got := c.Topics().Status(); got != "custom/status" {
		t.Errorf("Topics().Status() = %q, want custom/status", got)
	}
}

// =============================================================================
// Option Building Tests
// =============================================================================

func TestBuildClientOptions(t *testing.T) {
	cfg := testConfig()
	opts := buildClientOptions(cfg)

	if len(opts.Servers) != 1 || opts.Servers[0].String() != "tcp://127.0.0.1:1883" {
		t.Errorf("broker URL = %v, want tcp://127.0.0.1:1883", opts.Servers)
	}
	if opts.ClientID != "lumen-station-test" {
		t.Errorf("client ID = %q", opts.ClientID)
	}
	if !opts.CleanSession {
		t.Error("CleanSession = false, want true")
	}
	if !opts.AutoReconnect {
		t.Error("AutoReconnect = false, want true")
	}
	if opts.Username != "" {
		t.Errorf("username = %q, want empty for anonymous", opts.Username)
	}
}

func TestBuildClientOptionsTLS(t *testing.T) {
	cfg := testConfig()
	cfg.Broker.TLS = true
	opts := buildClientOptions(cfg)

	if opts.Servers[0].Scheme != "ssl" {
		t.Errorf("scheme = %q, want ssl", opts.Servers[0].Scheme)
	}
	if opts.TLSConfig == nil || opts.TLSConfig.MinVersion != tlsMinVersion {
		t.Error("TLS config missing or weak minimum version")
	}
}

func TestBuildClientOptionsAuth(t *testing.T) {
	cfg := testConfig()
	cfg.Auth.Username = "station"
	cfg.Auth.Password = "secret"
	opts := buildClientOptions(cfg)

	if opts.Username != "station" || opts.Password != "secret" {
		t.Error("credentials not applied")
	}
}

func TestConfigureLWT(t *testing.T) {
	cfg := testConfig()
	opts := buildClientOptions(cfg)
	configureLWT(opts, cfg)

	if !opts.WillEnabled {
		t.Fatal("WillEnabled = false, want true")
	}
	if opts.WillTopic != "lumen/status" {
		t.Errorf("will topic = %q, want lumen/status", opts.WillTopic)
	}
	if opts.WillQos != 1 || !opts.WillRetained {
		t.Errorf("will qos = %d retained = %v, want 1/true", opts.WillQos, opts.WillRetained)
	}

	var payload map[string]string
	if err := json.Unmarshal(opts.WillPayload, &payload); err != nil {
		t.Fatalf("will payload is not JSON: %v", err)
	}
	if payload["status"] != "offline" || payload["reason"] != "unexpected_disconnect" {
		t.Errorf("will payload = %v", payload)
	}
	if payload["client_id"] != "lumen-station-test" {
		t.Errorf("will client_id = %q", payload["client_id"])
	}
}

func TestStatusPayloads(t *testing.T) {
	for name, raw := range map[string]string{
		"online":  buildOnlinePayload("lumen-station-test"),
		"offline": buildOfflinePayload("lumen-station-test"),
	} {
		t.Run(name, func(t *testing.T) {
			var payload map[string]string
			if err := json.Unmarshal([]byte(raw), &payload); err != nil {
				t.Fatalf("payload is not JSON: %v", err)
			}
			if payload["status"] != name {
				t.Errorf("status = %q, want %q", payload["status"], name)
			}
			if payload["timestamp"] == "" {
				t.Error("timestamp missing")
			}
		})
	}
	if !strings.Contains(buildOfflinePayload("x"), "graceful_shutdown") {
		t.Error("graceful offline payload should carry its reason")
	}
}

// =============================================================================
// Validation Tests (no broker required)
// =============================================================================

func TestPublishValidation(t *testing.T) {
	c := &Client{cfg: testConfig()}

	tests := map[string]struct {
		topic   string
		payload []byte
		qos     byte
		wantErr error
	}{
		"empty topic":  {"", []byte("x"), 1, ErrInvalidTopic},
		"bad qos":      {"lumen/status", []byte("x"), 3, ErrInvalidQoS},
		"oversized":    {"lumen/status", make([]byte, maxPayloadSize+1), 1, ErrPublishFailed},
		"disconnected": {"lumen/status", []byte("x"), 1, ErrNotConnected},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			err := c.Publish(tt.topic, tt.payload, tt.qos, false)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Publish() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestSubscribeValidation(t *testing.T) {
	c := &Client{cfg: testConfig(), subscriptions: make(map[string]subscription)}
	handler := func(string, []byte) error { return nil }

	if err := c.Subscribe("", 1, handler); !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("empty topic error = %v, want ErrInvalidTopic", err)
	}
	if err := c.Subscribe("lumen/command/+", 3, handler); !errors.Is(err, ErrInvalidQoS) {
		t.Errorf("bad qos error = %v, want ErrInvalidQoS", err)
	}
	if err := c.Subscribe("lumen/command/+", 1, nil); !errors.Is(err, ErrSubscribeFailed) {
		t.Errorf("nil handler error = %v, want ErrSubscribeFailed", err)
	}
	if err := c.Subscribe("lumen/command/+", 1, handler); !errors.Is(err, ErrNotConnected) {
		t.Errorf("disconnected error = %v, want ErrNotConnected", err)
	}

	// Failed subscriptions must not be tracked.
	if c.SubscriptionCount() != 0 {
		t.Errorf("SubscriptionCount() = %d, want 0", c.SubscriptionCount())
	}
	if c.HasSubscription("lumen/command/+") {
		t.Error("HasSubscription() = true for failed subscribe")
	}
}

func TestUnsubscribeDisconnected(t *testing.T) {
	c := &Client{cfg: testConfig(), subscriptions: make(map[string]subscription)}

	if err := c.Unsubscribe(""); !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("empty topic error = %v, want ErrInvalidTopic", err)
	}
	if err := c.Unsubscribe("lumen/command/fade"); !errors.Is(err, ErrNotConnected) {
		t.Errorf("disconnected error = %v, want ErrNotConnected", err)
	}
}

func TestCloseNil(t *testing.T) {
	c := &Client{}
	if err := c.Close(); err != nil {
		t.Errorf("Close() on unconnected client error = %v, want nil", err)
	}
}

func TestHealthCheckDisconnected(t *testing.T) {
	c := &Client{cfg: testConfig()}

	if err := c.HealthCheck(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() error = %v, want ErrNotConnected", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := c.HealthCheck(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("HealthCheck() cancelled error = %v, want context.Canceled", err)
	}
}
