package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/urmzd/treelights/pkg/api"
	"github.com/urmzd/treelights/pkg/config"
	"github.com/urmzd/treelights/pkg/db"
	"github.com/urmzd/treelights/pkg/device"
	"github.com/urmzd/treelights/pkg/device/schema"
	"github.com/urmzd/treelights/pkg/discovery"
	"github.com/urmzd/treelights/pkg/drivers"
	"github.com/urmzd/treelights/pkg/logging"
	"github.com/urmzd/treelights/pkg/metrics"
	"github.com/urmzd/treelights/pkg/mqtt"
	"github.com/urmzd/treelights/pkg/protocol"
	"github.com/urmzd/treelights/pkg/server"

	_ "github.com/urmzd/treelights/docs"
)

// @title           Treelights API
// @version         1.0
// @description     Status and control API for the LED tree

// @host      localhost:8080
// @BasePath  /api/v1
// @schemes   http

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("treed exited")
	}
}

func run() error {
	dbPath := flag.String("db", "", "Path to database file (default: ~/.config/treelights/treelights.db)")
	configPath := flag.String("config", "", "Path to YAML config file")
	host := flag.String("host", "", "Command server bind address (overrides the profile)")
	port := flag.Int("port", 0, "Command server port (overrides the profile)")
	deviceType := flag.String("device", "", fmt.Sprintf("Display type %v (overrides the profile)", drivers.Types()))
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logCloser, err := logging.Setup(cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	defer func() { _ = logCloser.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	database, err := db.OpenAndPrepare(ctx, *dbPath)
	if err != nil {
		return err
	}
	defer func() {
		if err := database.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close database")
		}
	}()
	log.Info().Str("path", database.Path()).Msg("Database opened")

	profile, err := database.ActiveConfig(ctx)
	if err != nil {
		return fmt.Errorf("failed to load profile: %w", err)
	}
	envOverrides, err := db.EnvOverrides(os.Getenv)
	if err != nil {
		return err
	}
	profile.ApplyOverrides(envOverrides)
	profile.ApplyOverrides(db.Overrides{Host: *host, Port: *port, DeviceType: *deviceType})

	log.Info().
		Str("profile", profile.Profile.Name).
		Str("display", profile.Display.Type).
		Str("command_address", profile.CommandServer.Address()).
		Msg("Configuration loaded")

	ctrl, err := drivers.New(drivers.Settings{
		Type:       profile.Display.Type,
		Pixels:     profile.Display.Pixels,
		Brightness: profile.Display.Brightness,
		SPIPort:    profile.Display.SPIPort,
		SerialPort: profile.Display.SerialPort,
		BaudRate:   profile.Display.BaudRate,
	})
	if err != nil {
		return err
	}
	display := device.NewShared(ctrl)
	codec := protocol.NewCodec(schema.NewValidator())

	recorder := newRecorder(ctx, cfg.InfluxDB)
	if c, ok := recorder.(*metrics.Influx); ok {
		defer func() { _ = c.Close() }()
	}

	srv, err := server.New(server.Config{
		Host:         profile.CommandServer.Host,
		Port:         profile.CommandServer.Port,
		IdleTimeout:  profile.CommandServer.IdleTimeout,
		AllowedCIDRs: profile.CommandServer.AllowedCIDRs,
	}, display, server.WithRecorder(recorder), server.WithCodec(codec))
	if err != nil {
		return err
	}

	var components []server.Component
	if profile.APIServer.Enabled {
		router := api.NewRouter(display, api.Options{
			CORSOrigins: cfg.HTTP.CORSOrigins,
			Swagger:     cfg.HTTP.Swagger,
			Codec:       codec,
			Recorder:    recorder,
		})
		components = append(components, api.NewServer(profile.APIServer.Address(), router))
	}
	if cfg.MQTT.Enabled {
		bridge, err := mqtt.NewBridge(cfg.MQTT, display, mqtt.WithRecorder(recorder), mqtt.WithCodec(codec))
		if err != nil {
			return err
		}
		components = append(components, bridge)
	}
	if cfg.MDNS.Enabled {
		components = append(components, &discovery.Advertiser{
			Instance: cfg.MDNS.Instance,
			Service:  cfg.MDNS.Service,
			Domain:   cfg.MDNS.Domain,
			Port:     profile.CommandServer.Port,
			Text:     []string{"display=" + profile.Display.Type},
		})
	}

	supervisor := server.NewSupervisor(display, srv,
		server.WithBeacon(discovery.NewResponder(discovery.DefaultAddress())),
		server.WithComponents(components...),
		server.WithDrainTimeout(cfg.DrainTimeout()),
	)

	err = supervisor.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info().Msg("Shut down cleanly")
	return nil
}

// newRecorder connects to InfluxDB when enabled. An unreachable server only
// disables metrics.
func newRecorder(ctx context.Context, cfg config.InfluxDBConfig) metrics.Recorder {
	if !cfg.Enabled {
		return metrics.Nop{}
	}
	m, err := metrics.Connect(ctx, cfg)
	if err != nil {
		log.Warn().Err(err).Str("url", cfg.URL).Msg("InfluxDB unavailable, command metrics disabled")
		return metrics.Nop{}
	}
	return m
}
