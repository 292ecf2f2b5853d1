// Package pipeline wires the full gate monitoring service: datastore,
// keyed store, MQTT ingestion, attendance engine and the HTTP surface.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/gatewatch/gatewatch-go/internal/api"
	"github.com/gatewatch/gatewatch-go/internal/attendance"
	"github.com/gatewatch/gatewatch-go/internal/conf"
	"github.com/gatewatch/gatewatch-go/internal/datastore"
	"github.com/gatewatch/gatewatch-go/internal/faceid"
	"github.com/gatewatch/gatewatch-go/internal/frigate"
	"github.com/gatewatch/gatewatch-go/internal/keyedstore"
	"github.com/gatewatch/gatewatch-go/internal/logging"
	"github.com/gatewatch/gatewatch-go/internal/mqtt"
	"github.com/gatewatch/gatewatch-go/internal/observability"
)

const shutdownTimeout = 10 * time.Second

// Run starts the realtime gate monitoring pipeline and blocks until an
// interrupt or termination signal arrives.
func Run(settings *conf.Settings) error {
	log := logging.Structured()
	if log == nil {
		log = slog.Default()
	}

	log.Info("starting gate monitor",
		"gate_zone", settings.Realtime.Attendance.GateZone,
		"gate_camera", settings.Realtime.Attendance.GateCamera,
		"keyed_store", settings.Realtime.KeyedStore.Backend)

	// Durable storage first; nothing else is useful without it.
	dataStore := datastore.New(settings)
	if dataStore == nil {
		return fmt.Errorf("no database output enabled in configuration")
	}
	if err := dataStore.Open(); err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer closeDataStore(dataStore, log)

	keyed, err := openKeyedStore(settings)
	if err != nil {
		return err
	}
	defer func() {
		if err := keyed.Close(); err != nil {
			log.Error("failed to close keyed store", "error", err)
		}
	}()

	metrics, err := observability.NewMetrics()
	if err != nil {
		return fmt.Errorf("failed to initialize metrics: %w", err)
	}

	service := attendance.NewService(settings, dataStore, keyed, metrics.Attendance)
	identities := faceid.NewTracker(nil, log)
	consumer := frigate.NewConsumer(settings, dataStore, service, identities)

	mqttClient, err := mqtt.NewClient(settings, metrics.MQTT)
	if err != nil {
		return fmt.Errorf("failed to create MQTT client: %w", err)
	}

	connectCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	err = mqttClient.Connect(connectCtx)
	cancel()
	if err != nil {
		// The paho client keeps retrying in the background; events flow as
		// soon as the broker becomes reachable.
		log.Warn("initial MQTT connection failed, retrying in background", "error", err)
	}
	if err := consumer.Subscribe(mqttClient); err != nil {
		return fmt.Errorf("failed to subscribe to events topic: %w", err)
	}
	defer mqttClient.Disconnect()

	var server *echo.Echo
	var controller *api.Controller
	if settings.WebServer.Enabled {
		server = echo.New()
		server.HideBanner = true
		controller, err = api.New(server, dataStore, settings, service, metrics)
		if err != nil {
			return fmt.Errorf("failed to initialize API: %w", err)
		}
		defer controller.Shutdown()

		go func() {
			addr := fmt.Sprintf(":%s", settings.WebServer.Port)
			if err := server.Start(addr); err != nil {
				log.Info("web server stopped", "error", err)
			}
		}()
	}

	quitChan := make(chan os.Signal, 1)
	signal.Notify(quitChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quitChan
	log.Info("shutting down", "signal", sig.String())

	if server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			log.Error("web server shutdown failed", "error", err)
		}
	}

	return nil
}

// openKeyedStore selects the ephemeral store backend from configuration.
func openKeyedStore(settings *conf.Settings) (keyedstore.Store, error) {
	switch settings.Realtime.KeyedStore.Backend {
	case "", "memory":
		return keyedstore.NewMemoryStore(), nil
	case "redis":
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return keyedstore.NewRedisStore(ctx,
			settings.Realtime.KeyedStore.Redis.Addr,
			settings.Realtime.KeyedStore.Redis.Password,
			settings.Realtime.KeyedStore.Redis.DB)
	default:
		return nil, fmt.Errorf("unknown keyed store backend: %q", settings.Realtime.KeyedStore.Backend)
	}
}

func closeDataStore(store datastore.Interface, log *slog.Logger) {
	if err := store.Close(); err != nil {
		log.Error("failed to close database", "error", err)
	} else {
		log.Info("database connection closed")
	}
}
