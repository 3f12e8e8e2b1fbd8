// Lumen Station - lighting command station for LCC layouts
//
// This is the main entry point for the Lumen Station daemon. The station
// turns color/brightness targets into paced LCC event bursts, manages the
// wall panel's display power, and serves the control surface:
//   - HTTP API + WebSocket for the panel web client
//   - Optional MQTT mirror for automation controllers
//   - Optional InfluxDB telemetry
//   - Optional managed GridConnect hub for standalone layouts
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/nerrad567/lumen-station/migrations"

	"github.com/nerrad567/lumen-station/internal/api"
	"github.com/nerrad567/lumen-station/internal/display"
	"github.com/nerrad567/lumen-station/internal/hub"
	"github.com/nerrad567/lumen-station/internal/infrastructure/config"
	"github.com/nerrad567/lumen-station/internal/infrastructure/database"
	"github.com/nerrad567/lumen-station/internal/infrastructure/logging"
	"github.com/nerrad567/lumen-station/internal/infrastructure/mqtt"
	"github.com/nerrad567/lumen-station/internal/infrastructure/telemetry"
	"github.com/nerrad567/lumen-station/internal/lcc"
	"github.com/nerrad567/lumen-station/internal/scene"
	"github.com/nerrad567/lumen-station/internal/station"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Lumen Station",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open database
	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	// Run migrations
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Start the local hub (if managed)
	if cfg.LCC.Hub.Managed {
		hubManager, hubErr := hub.NewManager(cfg.LCC.Hub)
		if hubErr != nil {
			return fmt.Errorf("creating hub manager: %w", hubErr)
		}
		hubManager.SetLogger(log)
		if startErr := hubManager.Start(ctx); startErr != nil {
			return fmt.Errorf("starting hub: %w", startErr)
		}
		defer func() {
			log.Info("stopping hub")
			if stopErr := hubManager.Stop(); stopErr != nil {
				log.Error("error stopping hub", "error", stopErr)
			}
		}()
		log.Info("hub started", "address", hubManager.Address())
	}

	// Parse the station's node identity
	nodeID, err := lcc.ParseNodeID(cfg.LCC.NodeID)
	if err != nil {
		return fmt.Errorf("parsing node id: %w", err)
	}

	// Build the station: catalogue, settings, display machine, transport
	sceneRepo := scene.NewSQLiteRepository(db.DB)
	settingsStore := station.NewSettingsStore(db.DB)

	displayC := display.NewController(display.Options{
		FadeDuration: time.Duration(cfg.Display.FadeDurationMS) * time.Millisecond,
		FadeSteps:    cfg.Display.FadeSteps,
		Logger:       log,
	})

	st, err := station.New(station.Options{
		LCC: lcc.Config{
			Address:        cfg.HubAddress(),
			NodeID:         nodeID,
			EventSpacing:   cfg.GetEventSpacing(),
			ConnectTimeout: time.Duration(cfg.LCC.ConnectTimeout) * time.Second,
			ReadTimeout:    time.Duration(cfg.LCC.ReadTimeout) * time.Second,
		},
		Scenes:       sceneRepo,
		Settings:     settingsStore,
		Display:      displayC,
		LightingTick: cfg.GetLightingTick(),
		DisplayTick:  cfg.GetDisplayTick(),
		Logger:       log,
	})
	if err != nil {
		return fmt.Errorf("building station: %w", err)
	}

	if err := st.Start(ctx); err != nil {
		return fmt.Errorf("starting station: %w", err)
	}
	defer func() {
		log.Info("stopping station")
		if stopErr := st.Stop(); stopErr != nil {
			log.Error("error stopping station", "error", stopErr)
		}
	}()
	log.Info("station started", "hub", cfg.HubAddress())

	// Start the HTTP API
	server, err := api.New(api.Deps{
		Config:  cfg.API,
		WS:      cfg.WebSocket,
		Logger:  log,
		Station: st,
		Scenes:  sceneRepo,
		DB:      db,
		Version: version,
	})
	if err != nil {
		return fmt.Errorf("building API server: %w", err)
	}
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		log.Info("stopping API server")
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error stopping API server", "error", closeErr)
		}
	}()

	// Mirror state to MQTT (optional)
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttClient.SetLogger(log)
		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)

		mirror, mirrorErr := station.NewMirror(mqttClient, st, cfg.MQTT.QoS, log)
		if mirrorErr != nil {
			return fmt.Errorf("building MQTT mirror: %w", mirrorErr)
		}
		if startErr := mirror.Start(ctx); startErr != nil {
			return fmt.Errorf("starting MQTT mirror: %w", startErr)
		}
		defer mirror.Stop()
	} else {
		log.Info("MQTT disabled")
	}

	// Record telemetry to InfluxDB (optional)
	var telemetryClient *telemetry.Client
	if cfg.InfluxDB.Enabled {
		telemetryClient, err = telemetry.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := telemetryClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		telemetryClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		recorder, recErr := station.NewRecorder(telemetryClient, st)
		if recErr != nil {
			return fmt.Errorf("building telemetry recorder: %w", recErr)
		}
		if startErr := recorder.Start(ctx); startErr != nil {
			return fmt.Errorf("starting telemetry recorder: %w", startErr)
		}
		defer recorder.Stop()
	} else {
		log.Info("InfluxDB disabled")
	}

	// Verify all connections are healthy
	if err := healthCheck(ctx, db, mqttClient, telemetryClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred calls unwind in reverse order: telemetry and mirror stop
	// first, then the API, the station, the hub, and the database last.

	log.Info("Lumen Station stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses LUMEN_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("LUMEN_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies all infrastructure connections are healthy.
// The station and hub verify themselves during Start, so only the
// passive connections are probed here. Both clients may be nil when
// their subsystem is disabled.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, telemetryClient *telemetry.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}

	if telemetryClient != nil {
		if err := telemetryClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}
