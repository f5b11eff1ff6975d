// Ardour Control Core - Automation Control Daemon
//
// This is the main entry point for the Ardour control daemon. It hosts a
// session of automation controls, persists their value history, and exposes
// them to external control surfaces over MQTT:
//   - VCA-style master/slave control relationships
//   - Sample-accurate automation playback
//   - Session save/restore across restarts
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/itmuckel/ardour/migrations"

	"github.com/itmuckel/ardour/internal/bridge"
	"github.com/itmuckel/ardour/internal/history"
	"github.com/itmuckel/ardour/internal/infrastructure/config"
	"github.com/itmuckel/ardour/internal/infrastructure/database"
	"github.com/itmuckel/ardour/internal/infrastructure/influxdb"
	"github.com/itmuckel/ardour/internal/infrastructure/logging"
	"github.com/itmuckel/ardour/internal/infrastructure/mqtt"
	"github.com/itmuckel/ardour/internal/session"
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
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Ardour Control Core",
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

	// Value history repository
	historyRepo := history.NewSQLiteRepository(db.DB)

	// Create the control session
	sess := session.New(cfg.Session.ID, cfg.Session.Name, cfg.Engine.BlockSize)
	sess.SetLogger(log)
	defer func() {
		log.Info("closing session")
		if closeErr := sess.Close(); closeErr != nil {
			log.Error("error closing session", "error", closeErr)
		}
	}()

	// Restore a previously saved session document, if one exists
	if cfg.Session.File != "" {
		if loadErr := sess.Load(cfg.Session.File); loadErr != nil {
			if errors.Is(loadErr, os.ErrNotExist) {
				log.Info("no session file found, starting empty", "path", cfg.Session.File)
			} else {
				return fmt.Errorf("loading session: %w", loadErr)
			}
		} else {
			log.Info("session restored",
				"path", cfg.Session.File,
				"controls", len(sess.Controls()),
			)
		}
	}

	// Connect to MQTT broker (optional)
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
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)

		// Set up MQTT logging callbacks
		mqttClient.SetLogger(log)
		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})
	} else {
		log.Info("MQTT disabled")
	}

	// Connect to InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
	} else {
		log.Info("InfluxDB disabled")
	}

	// Start the MQTT control bridge (requires a broker connection)
	if mqttClient != nil {
		ctlBridge, bridgeErr := startBridge(ctx, cfg, sess, mqttClient, historyRepo, influxClient, log)
		if bridgeErr != nil {
			return fmt.Errorf("starting control bridge: %w", bridgeErr)
		}
		defer func() {
			log.Info("stopping control bridge")
			if closeErr := ctlBridge.Close(); closeErr != nil {
				log.Error("error closing control bridge", "error", closeErr)
			}
		}()
	} else {
		log.Info("control bridge disabled (no MQTT connection)")
	}

	// Verify all connections are healthy
	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Save the session before the defer chain tears everything down
	if cfg.Session.File != "" {
		if saveErr := sess.Save(cfg.Session.File); saveErr != nil {
			log.Error("error saving session", "error", saveErr)
		}
	}

	// Deferred Close() calls will run in reverse order:
	// 1. Control bridge (if enabled)
	// 2. InfluxDB (if enabled)
	// 3. MQTT (if enabled)
	// 4. Session
	// 5. Database

	log.Info("Ardour Control Core stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses ARDOUR_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("ARDOUR_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// startBridge wires the session to MQTT, the history repository, and
// (optionally) InfluxDB telemetry.
//
// Parameters:
//   - ctx: Context for subscription setup
//   - cfg: Application configuration
//   - sess: Control session to expose
//   - mqttClient: Connected MQTT client
//   - historyRepo: Value history repository
//   - influxClient: InfluxDB client (may be nil if disabled)
//   - log: Logger instance
//
// Returns:
//   - *bridge.Bridge: Running control bridge
//   - error: If the bridge fails to start
func startBridge(ctx context.Context, cfg *config.Config, sess *session.Session, mqttClient *mqtt.Client, historyRepo *history.SQLiteRepository, influxClient *influxdb.Client, log *logging.Logger) (*bridge.Bridge, error) {
	opts := []bridge.Option{
		bridge.WithLogger(log),
		bridge.WithRecorder(historyRepo),
	}
	if influxClient != nil {
		opts = append(opts, bridge.WithTelemetry(influxClient))
	}

	ctlBridge := bridge.New(sess, mqttClient, byte(cfg.MQTT.QoS), opts...)
	if err := ctlBridge.Start(ctx); err != nil {
		return nil, fmt.Errorf("starting bridge: %w", err)
	}
	log.Info("control bridge started", "controls", len(sess.Controls()))

	return ctlBridge, nil
}

// healthCheck verifies all infrastructure connections are healthy.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - db: Database connection to check
//   - mqttClient: MQTT client to check (may be nil if disabled)
//   - influxClient: InfluxDB client to check (may be nil if disabled)
//
// Returns:
//   - error: First health check failure, or nil if all healthy
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	// Check database
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	// Check MQTT (if enabled)
	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}

	// Check InfluxDB (if enabled)
	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}
