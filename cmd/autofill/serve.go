package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nerrad567/autofill-core/internal/api"
	"github.com/nerrad567/autofill-core/internal/audit"
	"github.com/nerrad567/autofill-core/internal/infrastructure/config"
	"github.com/nerrad567/autofill-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/autofill-core/internal/infrastructure/logging"
	"github.com/nerrad567/autofill-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/autofill-core/internal/replay"
	"github.com/nerrad567/autofill-core/internal/step"
	"github.com/nerrad567/autofill-core/internal/trigger"
)

func newServeCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the API server and replay engine until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := opts.load()
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg, log)
		},
	}
}

// serve wires every component and blocks until ctx is cancelled.
// Deferred closes run in reverse order of construction.
func serve(ctx context.Context, cfg *config.Config, log *logging.Logger) error {
	log.Info("starting Autofill Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	db, err := openDatabase(ctx, cfg.Database, log)
	if err != nil {
		return err
	}
	defer closeWithLog(log, "database", db.Close)

	registry := step.NewRegistry(step.NewSQLiteRepository(db.DB))
	registry.SetLogger(log.Component("step"))
	results := replay.NewSQLiteResultRepository(db.DB)
	auditRepo := audit.NewSQLiteRepository(db.DB)

	checks := map[string]api.HealthChecker{"database": db}

	engineDeps := replay.Deps{
		Steps:   registry,
		Results: results,
		Logger:  log.Component("replay"),
	}
	engineDeps.RetryWaitMin, engineDeps.RetryWaitMax = cfg.GetRetryWait()

	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		mqttClient.SetLogger(log.Component("mqtt"))
		defer closeWithLog(log, "MQTT", mqttClient.Close)
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)
		engineDeps.MQTT = mqttClient
		checks["mqtt"] = mqttClient
	} else {
		log.Info("MQTT disabled")
	}

	influxClient, err := influxdb.Connect(cfg.InfluxDB)
	switch {
	case errors.Is(err, influxdb.ErrDisabled):
		log.Info("InfluxDB disabled")
	case err != nil:
		return fmt.Errorf("connecting to InfluxDB: %w", err)
	default:
		defer closeWithLog(log, "InfluxDB", influxClient.Close)
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
		engineDeps.Metrics = influxClient
		checks["influxdb"] = influxClient
	}

	b, err := launchBrowser(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeWithLog(log, "browser", b.Close)
	engineDeps.Sessions = b

	hub := api.NewHub(cfg.WebSocket, log.Component("websocket"))
	go hub.Run(ctx)
	engineDeps.Hub = hub

	engine := replay.NewEngine(engineDeps)
	// Runs hold browser tabs; they must end before the browser closes.
	defer engine.Wait()

	if mqttClient != nil {
		listener := trigger.New(mqttClient, engine)
		listener.SetLogger(log.Component("trigger"))
		listener.SetAudit(auditRepo)
		if err := listener.Start(ctx); err != nil {
			return fmt.Errorf("starting run command listener: %w", err)
		}
		defer closeWithLog(log, "run command listener", listener.Stop)
	}

	server, err := api.New(api.Deps{
		Config:             cfg.API,
		WS:                 cfg.WebSocket,
		Logger:             log.Component("api"),
		Steps:              registry,
		Engine:             engine,
		Results:            results,
		Audit:              auditRepo,
		DB:                 db,
		Checks:             checks,
		ExternalHub:        hub,
		Version:            version,
		DefaultStepTimeout: float64(cfg.Replay.DefaultTimeout),
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer closeWithLog(log, "API server", server.Close)

	log.Info("initialisation complete, waiting for shutdown signal",
		"api", fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port),
	)

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")
	return nil
}
