// Pushgate - real-time push server
//
// This is the main entry point for Pushgate. Pushgate keeps an in-memory
// registry of client WebSocket connections, named channels, channel access
// tokens and presence lists, and delivers messages that backend
// applications publish through the /nodejs HTTP API or the MQTT bus.
//
// Optional integrations:
//   - MQTT: publish/presence events out, publish requests in
//   - InfluxDB: delivery, presence and periodic stats telemetry
//
// Administrative changes are recorded in a local SQLite audit trail.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nerrad567/pushgate/internal/api"
	"github.com/nerrad567/pushgate/internal/audit"
	"github.com/nerrad567/pushgate/internal/infrastructure/config"
	"github.com/nerrad567/pushgate/internal/infrastructure/database"
	"github.com/nerrad567/pushgate/internal/infrastructure/influxdb"
	"github.com/nerrad567/pushgate/internal/infrastructure/logging"
	"github.com/nerrad567/pushgate/internal/infrastructure/mqtt"
	"github.com/nerrad567/pushgate/internal/push"
	"github.com/nerrad567/pushgate/internal/relay"
	"github.com/nerrad567/pushgate/migrations"
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

// auditQueueSize bounds audit entries waiting for SQLite.
const auditQueueSize = 256

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		cancel()
		os.Exit(1) //nolint:gocritic // cancel called explicitly above
	}
}

// run initialises all components and blocks until shutdown.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error { //nolint:gocognit,gocyclo // linear startup sequence
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Pushgate",
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

	// Open audit database
	db, err := database.Open(ctx, cfg.Database)
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

	if migrateErr := db.Migrate(ctx, migrations.FS); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	auditRepo := audit.NewSQLiteRepository(db.DB)
	recorder := audit.NewRecorder(auditRepo, log.With("component", "audit"), auditQueueSize)

	// Connection and channel manager
	manager := push.NewManager(push.Options{
		StrictPublish:         cfg.Push.StrictPublish,
		MaxConnectionsPerUser: cfg.Push.MaxConnectionsPerUser,
	})

	relayOpts := relay.Options{Logger: log.With("component", "relay")}

	// Connect to MQTT broker (optional)
	var mqttClient *mqtt.Client
	var ingress *relay.Ingress
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

		mqttClient.SetLogger(log.With("component", "mqtt"))
		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})

		relayOpts.Publisher = mqttClient
		relayOpts.Topics = mqttClient.Topics()

		ingress = relay.NewIngress(manager, mqttClient.Topics(), recorder, log.With("component", "ingress"))
		if subErr := ingress.Subscribe(mqttClient, mqttClient.QoS()); subErr != nil {
			return fmt.Errorf("subscribing to publish topics: %w", subErr)
		}
	} else {
		log.Info("MQTT disabled")
	}

	// Connect to InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(ctx, cfg.InfluxDB, cfg.Server.ID)
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
		relayOpts.Telemetry = influxClient
	} else {
		log.Info("InfluxDB disabled")
	}

	eventRelay := relay.New(relayOpts)
	manager.AddObserver(eventRelay)

	// HTTP API and client WebSocket endpoint
	server, err := api.New(api.Deps{
		Config:    cfg.API,
		WS:        cfg.WebSocket,
		Security:  cfg.Security,
		Logger:    log.With("component", "api"),
		Manager:   manager,
		Audit:     recorder,
		AuditRepo: auditRepo,
		Version:   version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if startErr := server.Start(ctx); startErr != nil {
		return fmt.Errorf("starting API server: %w", startErr)
	}

	// Request intake, closed in order before the workers stop so nothing
	// is queued after the audit recorder and relay have drained.
	intake := []stage{
		{"API server", server.Close},
		{"MQTT ingress", closeIngress(ingress)},
		{"client connections", func() error {
			log.Info("closing client connections", "connections", manager.CountConnections())
			manager.Shutdown()
			return nil
		}},
	}
	intakeClosed := false
	defer func() {
		if !intakeClosed {
			closeStages(log, intake)
		}
	}()

	// Verify all connections are healthy
	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	// Background workers outlive ctx: they stop once intake is closed and
	// then drain their queues.
	workerCtx, stopWorkers := context.WithCancel(context.WithoutCancel(ctx))
	defer stopWorkers()
	g, gctx := errgroup.WithContext(workerCtx)
	g.Go(func() error {
		recorder.Run(gctx)
		return nil
	})
	g.Go(func() error {
		eventRelay.Run(gctx)
		return nil
	})
	g.Go(func() error {
		eventRelay.RunStats(gctx, manager, time.Duration(cfg.InfluxDB.StatsInterval)*time.Second)
		return nil
	})

	log.Info("initialisation complete, waiting for shutdown signal")

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")
	intakeClosed = true
	if err := drain(log, intake, stopWorkers, g.Wait); err != nil {
		return fmt.Errorf("stopping workers: %w", err)
	}

	// Deferred Close() calls then run in reverse order:
	// 1. InfluxDB (if enabled)
	// 2. MQTT (if enabled)
	// 3. Database

	log.Info("Pushgate stopped", "relay_dropped", eventRelay.Dropped())
	return nil
}

// stage is one named shutdown step.
type stage struct {
	name  string
	close func() error
}

// closeStages runs every stage in order. Failures are logged and do not
// stop later stages.
func closeStages(log *logging.Logger, stages []stage) {
	for _, st := range stages {
		if err := st.close(); err != nil {
			log.Error("error closing "+st.name, "error", err)
		}
	}
}

// drain closes request intake, then stops the background workers and
// waits for them to flush what intake queued.
func drain(log *logging.Logger, intake []stage, stopWorkers context.CancelFunc, wait func() error) error {
	closeStages(log, intake)
	stopWorkers()
	return wait()
}

// closeIngress returns the ingress shutdown step; a nil ingress (MQTT
// disabled) has nothing to close.
func closeIngress(ingress *relay.Ingress) func() error {
	return func() error {
		if ingress == nil {
			return nil
		}
		return ingress.Close()
	}
}

// getConfigPath returns the configuration file path.
// Uses PUSHGATE_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("PUSHGATE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
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
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}
