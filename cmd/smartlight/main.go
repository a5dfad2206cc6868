// Smart Lighting Core - backend for a single light-sensing lamp controller.
//
// The device polls its configuration and reports light readings over HTTP
// (or optionally MQTT). Authenticated users review status, history and
// statistics through the dashboard API, and admins change the lamp
// configuration and manage accounts.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/nerrad567/smartlight-core/migrations"

	"github.com/nerrad567/smartlight-core/internal/api"
	"github.com/nerrad567/smartlight-core/internal/audit"
	"github.com/nerrad567/smartlight-core/internal/auth"
	"github.com/nerrad567/smartlight-core/internal/infrastructure/config"
	"github.com/nerrad567/smartlight-core/internal/infrastructure/database"
	"github.com/nerrad567/smartlight-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/smartlight-core/internal/infrastructure/logging"
	"github.com/nerrad567/smartlight-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/smartlight-core/internal/lighting"
	"github.com/nerrad567/smartlight-core/internal/telemetry"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var err error
	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		err = runMigrate(ctx, os.Args[2:], os.Stdout)
	} else {
		err = run(ctx)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the application logic, separated from main for testability.
// It returns nil on a clean shutdown after ctx is cancelled.
func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting Smart Lighting Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
		"site_id", cfg.Site.ID,
		"site_name", cfg.Site.Name,
	)

	db, err := database.Open(ctx, database.FromConfig(cfg.Database))
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

	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Accounts
	userRepo := auth.NewUserRepository(db.DB)
	if _, seedErr := auth.SeedAdmin(ctx, userRepo,
		cfg.Security.Bootstrap.AdminUsername,
		cfg.Security.Bootstrap.AdminPassword,
		log.Component("auth").Logger,
	); seedErr != nil {
		return fmt.Errorf("seeding admin account: %w", seedErr)
	}
	authSvc := auth.NewService(userRepo, auth.ServiceConfig{
		Secret:   cfg.Security.JWT.Secret,
		TokenTTL: cfg.GetAccessTokenTTL(),
		Logger:   log.Component("auth").Logger,
	})

	// Lighting stores
	mode, err := lighting.ParseStorageMode(cfg.Lighting.ConfigStorage)
	if err != nil {
		return fmt.Errorf("lighting config: %w", err)
	}
	configRepo := lighting.NewConfigRepository(db.DB, mode)
	logRepo := lighting.NewSensorLogRepository(db.DB)

	health := map[string]api.HealthChecker{"database": db}
	var sinks []lighting.ReadingSink

	// InfluxDB (optional)
	if influxClient := connectInfluxDB(ctx, cfg.InfluxDB, log); influxClient != nil {
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		sinks = append(sinks, telemetry.NewInfluxSink(influxClient, cfg.Site.ID))
		health["influxdb"] = influxClient
	}

	// MQTT (optional)
	mqttClient := connectMQTT(cfg.MQTT, log)
	if mqttClient != nil {
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		health["mqtt"] = mqttClient
	}

	gateway := lighting.NewGateway(configRepo, logRepo, lighting.GatewayConfig{
		Sinks:  sinks,
		Logger: log.Component("gateway").Logger,
	})
	dashboard := lighting.NewDashboard(configRepo, logRepo, lighting.DashboardConfig{
		MaxPageSize: cfg.Lighting.MaxPageSize,
		Logger:      log.Component("dashboard").Logger,
	})
	log.Info("lighting services initialised",
		"config_storage", configRepo.Mode(),
		"max_page_size", cfg.Lighting.MaxPageSize,
	)

	if mqttClient != nil {
		sub := telemetry.NewSubscriber(mqttClient, gateway, log.Component("telemetry").Logger)
		if subErr := sub.Start(); subErr != nil {
			log.Warn("MQTT reading subscription failed, device ingestion is HTTP only", "error", subErr)
		}
	}

	if err := healthCheck(ctx, health); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	apiServer, err := api.New(api.Deps{
		Config:    cfg.API,
		Logger:    log,
		Auth:      authSvc,
		Gateway:   gateway,
		Dashboard: dashboard,
		AuditRepo: audit.NewStore(db.DB),
		Health:    health,
		Version:   version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := apiServer.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := apiServer.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	log.Info("initialisation complete, waiting for shutdown signal")

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// 1. API server (drains audit entries)
	// 2. MQTT (if connected)
	// 3. InfluxDB (if connected)
	// 4. Database

	log.Info("Smart Lighting Core stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses SMARTLIGHT_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("SMARTLIGHT_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// connectInfluxDB returns a connected client, or nil when InfluxDB is
// disabled or unreachable. Readings are still stored in SQLite without it.
func connectInfluxDB(ctx context.Context, cfg config.InfluxDBConfig, log *logging.Logger) *influxdb.Client {
	if !cfg.Enabled {
		log.Info("InfluxDB disabled")
		return nil
	}

	client, err := influxdb.Connect(ctx, cfg)
	if err != nil {
		log.Warn("InfluxDB unavailable, readings will not be mirrored", "error", err)
		return nil
	}
	client.SetOnError(func(err error) {
		log.Error("InfluxDB write error", "error", err)
	})
	log.Info("InfluxDB connected",
		"url", cfg.URL,
		"org", cfg.Org,
		"bucket", cfg.Bucket,
	)
	return client
}

// connectMQTT returns a connected client, or nil when MQTT is disabled or
// the broker is unreachable. HTTP ingestion keeps working without it.
func connectMQTT(cfg config.MQTTConfig, log *logging.Logger) *mqtt.Client {
	if !cfg.Enabled {
		log.Info("MQTT disabled")
		return nil
	}

	client, err := mqtt.Connect(cfg)
	if err != nil {
		log.Warn("MQTT broker unavailable, device ingestion is HTTP only", "error", err)
		return nil
	}
	client.SetLogger(log.Component("mqtt"))
	client.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	client.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.Broker.Host, cfg.Broker.Port),
		"client_id", cfg.Broker.ClientID,
		"topic_prefix", client.Topics().Prefix(),
	)
	return client
}

// healthCheck verifies every registered component is healthy and returns
// the first failure.
func healthCheck(ctx context.Context, checks map[string]api.HealthChecker) error {
	for _, name := range []string{"database", "mqtt", "influxdb"} {
		check, ok := checks[name]
		if !ok {
			continue
		}
		if err := check.HealthCheck(ctx); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}
