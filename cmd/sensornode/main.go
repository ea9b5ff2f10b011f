// sensornode - environmental telemetry node
//
// Reads a temperature and a humidity sensor, formats both into a small
// fixed-size payload and publishes it to an MQTT broker every few seconds.
// Optionally journals every attempt to SQLite and mirrors readings to
// InfluxDB.
package main

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nerrad567/sensornode/internal/credentials"
	"github.com/nerrad567/sensornode/internal/infrastructure/config"
	"github.com/nerrad567/sensornode/internal/infrastructure/database"
	"github.com/nerrad567/sensornode/internal/infrastructure/influxdb"
	"github.com/nerrad567/sensornode/internal/infrastructure/logging"
	"github.com/nerrad567/sensornode/internal/infrastructure/mqtt"
	"github.com/nerrad567/sensornode/internal/journal"
	"github.com/nerrad567/sensornode/internal/sensor"
	"github.com/nerrad567/sensornode/internal/telemetry"
	"github.com/nerrad567/sensornode/migrations"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Default configuration file path. A missing file at this path means the
// built-in configuration is used.
const defaultConfigPath = "configs/config.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run wires the node and blocks in the publish loop until ctx is cancelled.
// Resources are released in reverse order by deferred closes.
func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting sensornode",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath, optional := getConfigPath()
	cfg, err := config.Load(configPath, optional)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log = logging.New(cfg.Logging, version)
	log.Info("configuration loaded",
		"path", configPath,
		"thing", cfg.Device.ThingName,
		"client_id", cfg.Device.ClientID,
	)

	// Association is the host's job; the settings are reported so a
	// misconfigured network is easy to spot in the logs.
	log.Info("network",
		"ssid", cfg.WiFi.SSID,
		"security", cfg.WiFi.Security,
		"password_set", cfg.WiFi.Password != "",
	)

	tlsConfig, err := buildTLSConfig(cfg, log)
	if err != nil {
		return err
	}

	sensors, err := sensor.New(cfg.Sensors)
	if err != nil {
		return fmt.Errorf("opening sensors: %w", err)
	}
	defer func() {
		if closeErr := sensors.Close(); closeErr != nil {
			log.Error("error closing sensors", "error", closeErr)
		}
	}()
	log.Info("sensors ready", "driver", cfg.Sensors.Driver)

	var (
		sinks        []telemetry.Sink
		db           *database.DB
		influxClient *influxdb.Client
	)

	if cfg.Journal.Enabled {
		var repo *journal.Repository
		db, repo, err = openJournal(ctx, cfg.Journal, log)
		if err != nil {
			return err
		}
		defer func() {
			if stats, statsErr := repo.Stats(context.Background()); statsErr == nil {
				log.Info("journal totals",
					"attempts", stats.Attempts,
					"failures", stats.Failures,
					"boot_attempts", stats.BootAttempts,
				)
			}
			log.Info("closing journal")
			if closeErr := db.Close(); closeErr != nil {
				log.Error("error closing journal", "error", closeErr)
			}
		}()
		sinks = append(sinks, telemetry.JournalSink{Recorder: repo, Logger: log})
	} else {
		log.Info("journal disabled")
	}

	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(ctx, cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
		sinks = append(sinks, telemetry.InfluxSink{
			Writer:   influxClient,
			Thing:    cfg.Device.ThingName,
			ClientID: cfg.Device.ClientID,
		})
	} else {
		log.Info("InfluxDB disabled")
	}

	mqttClient, err := mqtt.Connect(cfg.MQTT, cfg.Device, tlsConfig)
	if err != nil {
		log.Error("MQTT connection failed",
			"broker", cfg.BrokerAddress(),
			"timeout", cfg.MQTT.Timeouts.Connect,
			"error", err,
		)
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	mqttClient.SetLogger(log)
	mqttClient.SetOnReconnect(func() {
		log.Info("MQTT reconnected")
	})
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT connection lost", "error", err)
	})
	log.Info("MQTT connected",
		"broker", cfg.BrokerAddress(),
		"tls", cfg.MQTT.Broker.TLS,
		"client_id", cfg.Device.ClientID,
	)
	if cfg.MQTT.StatusMessages {
		log.Info("publishing status messages", "topic", mqttClient.StatusTopic())
	}

	// Verify all connections are healthy
	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	task, err := telemetry.NewTask(telemetry.Options{
		Sensor:        sensors,
		Publisher:     mqttClient,
		Subscriber:    mqttClient,
		Logger:        log,
		Topic:         cfg.Telemetry.Topic,
		QoS:           byte(cfg.MQTT.QoS), // #nosec G115 -- validated 0..2
		Interval:      cfg.Telemetry.Interval,
		SettleDelay:   cfg.Telemetry.SettleDelay,
		Format:        cfg.Telemetry.Format,
		EchoSubscribe: cfg.Telemetry.EchoSubscribe,
		Sinks:         sinks,
	})
	if err != nil {
		return fmt.Errorf("creating telemetry task: %w", err)
	}

	task.Run(ctx)

	log.Info("shutdown signal received, cleaning up")
	return nil
}

// getConfigPath returns the config file path and whether it may be absent.
// Only the default path is optional; an explicit SENSORNODE_CONFIG must exist.
func getConfigPath() (path string, optional bool) {
	if v := os.Getenv("SENSORNODE_CONFIG"); v != "" {
		return v, false
	}
	return defaultConfigPath, true
}

// healthCheck verifies every open connection before the publish loop starts.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - db: Journal database (nil when the journal is disabled)
//   - mqttClient: MQTT client to check
//   - influxClient: InfluxDB client (nil when disabled)
//
// Returns:
//   - error: First health check failure, or nil if all healthy
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if db != nil {
		if err := db.HealthCheck(ctx); err != nil {
			return fmt.Errorf("database: %w", err)
		}
	}

	if err := mqttClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}

// buildTLSConfig returns nil for plain-TCP brokers.
func buildTLSConfig(cfg *config.Config, log *logging.Logger) (*tls.Config, error) {
	if !cfg.MQTT.Broker.TLS {
		return nil, nil
	}

	bundle, err := credentials.Load(cfg.Credentials)
	if err != nil {
		return nil, fmt.Errorf("loading credentials: %w", err)
	}

	serverName := cfg.MQTT.Broker.ServerName
	if serverName == "" {
		serverName = cfg.MQTT.Broker.Host
	}

	tlsConfig, err := bundle.TLSConfig(serverName)
	if err != nil {
		return nil, fmt.Errorf("building TLS config: %w", err)
	}

	summary, err := bundle.Describe()
	switch {
	case err == nil:
		log.Info("client certificate loaded",
			"source", bundle.Source,
			"subject", summary.Subject,
			"not_after", summary.NotAfter,
		)
	case errors.Is(err, credentials.ErrNoClientCertificate):
		log.Warn("no client certificate, connecting with server authentication only",
			"source", bundle.Source,
		)
	default:
		return nil, fmt.Errorf("describing client certificate: %w", err)
	}

	return tlsConfig, nil
}

// openJournal opens and migrates the SQLite journal and applies retention.
func openJournal(ctx context.Context, cfg config.JournalConfig, log *logging.Logger) (*database.DB, *journal.Repository, error) {
	db, err := database.Open(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("opening journal: %w", err)
	}

	if err := db.Migrate(ctx, migrations.FS); err != nil {
		db.Close() //nolint:errcheck // Best effort cleanup on error path
		return nil, nil, fmt.Errorf("running migrations: %w", err)
	}

	applied, _, err := db.MigrationStatus(ctx, migrations.FS)
	if err != nil {
		db.Close() //nolint:errcheck // Best effort cleanup on error path
		return nil, nil, fmt.Errorf("reading migration status: %w", err)
	}
	schema := ""
	if len(applied) > 0 {
		schema = applied[len(applied)-1].Version
	}

	repo := journal.New(db.DB)

	if cfg.Retention > 0 {
		pruned, err := repo.Prune(ctx, cfg.Retention)
		if err != nil {
			log.Warn("journal prune failed", "error", err)
		} else if pruned > 0 {
			log.Info("journal pruned", "entries", pruned, "retention", cfg.Retention)
		}
	}

	log.Info("journal ready", "path", db.Path(), "schema", schema, "boot_id", repo.BootID())

	last, err := repo.Recent(ctx, 1)
	switch {
	case err != nil:
		log.Warn("reading last journal entry failed", "error", err)
	case len(last) == 1:
		log.Info("last journal entry",
			"boot_id", last[0].BootID,
			"published", last[0].Published,
			"payload", last[0].Payload,
			"at", last[0].CreatedAt,
		)
	}

	return db, repo, nil
}
