package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/benmeehan/location-engine/internal/service_registry"
	"github.com/benmeehan/location-engine/internal/utils"
	"github.com/benmeehan/location-engine/pkg/file"
	"github.com/benmeehan/location-engine/pkg/identity"
	"github.com/benmeehan/location-engine/pkg/location"
	"github.com/benmeehan/location-engine/pkg/location/backend"
	"github.com/benmeehan/location-engine/pkg/mqtt"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the agent configuration")
	flag.Parse()

	// Set up structured logging with JSON output
	log := zerolog.New(os.Stdout).With().Timestamp().Str("component", "location-agent").Logger()

	fileClient := file.NewFileService()

	config, err := utils.LoadConfig(*configPath, fileClient)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Generate a unique MQTT Client ID by appending a UUID
	config.MQTT.ClientID = config.MQTT.ClientID + "-" + uuid.New().String()
	log.Info().Str("client_id", config.MQTT.ClientID).Msg("Using MQTT Client ID")

	mqttClient := mqtt.NewMqttService(fileClient)
	if err := mqttClient.Initialize(config.MQTT.Broker, config.MQTT.ClientID, config.MQTT.CACertificate); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize MQTT connection")
	}

	deviceInfo := identity.NewDeviceInfo(config.Identity.DeviceFile, fileClient)
	if err := deviceInfo.LoadDeviceInfo(); err != nil {
		log.Fatal().Err(err).Msg("Failed to load device information")
	}

	sources, err := buildSources(config, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create location sources")
	}

	native := backend.NewRegistry(sources, config.Backend.PollTimeout, log.With().Str("backend", "native").Logger())
	registries := []*backend.Registry{native}

	workers := utils.NewWorkerPool(config.Engine.Workers, 64)
	opts := []location.Option{location.WithLogger(log), location.WithExecutor(workers)}
	if config.Engine.UseFused && len(sources) > 1 {
		fused := backend.NewRegistry([]backend.Source{backend.NewFusedSource(sources...)}, config.Backend.PollTimeout,
			log.With().Str("backend", "fused").Logger())
		registries = append(registries, fused)
		opts = append(opts, location.WithFusedRegistry(fused))
	}
	engine := location.GetBestEngine(native, opts...)

	// Provider switches go to the backend the engine runs on.
	active, ok := engine.Registry().(*backend.Registry)
	if !ok {
		log.Fatal().Msg("Location engine is not bound to a known backend")
	}
	serviceRegistry := service_registry.NewServiceRegistry(mqttClient, engine, active, log)
	if err := serviceRegistry.RegisterServices(config, deviceInfo); err != nil {
		log.Fatal().Err(err).Msg("Failed to register services")
	}
	if err := serviceRegistry.StartServices(); err != nil {
		log.Fatal().Err(err).Msg("Failed to start services")
	}
	log.Info().Msg("All services started successfully")

	// Handle graceful shutdown
	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)
	<-stopCh

	log.Info().Msg("Shutting down gracefully...")
	if err := serviceRegistry.StopServices(); err != nil {
		log.Error().Err(err).Msg("Failed to stop services cleanly")
	}
	engine.Close()
	for _, r := range registries {
		if err := r.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close location backend")
		}
	}
	workers.Shutdown()
	mqttClient.Disconnect(250)
}

func buildSources(config *utils.Config, log zerolog.Logger) ([]backend.Source, error) {
	var sources []backend.Source
	if config.Backend.GPS.Enabled {
		sources = append(sources, backend.NewSensorSource(config.Backend.GPS.DevicePort, config.Backend.GPS.BaudRate))
	}
	if config.Backend.Network.Enabled {
		network, err := backend.NewGeolocationSource(config.Backend.Network.MapsAPIKey, config.Backend.Network.ModemIndex,
			log.With().Str("provider", string(location.NetworkProvider)).Logger())
		if err != nil {
			return nil, err
		}
		sources = append(sources, network)
	}
	return sources, nil
}
