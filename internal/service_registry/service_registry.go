package service_registry

import (
	"errors"
	"fmt"

	"github.com/benmeehan/location-engine/internal/services"
	"github.com/benmeehan/location-engine/internal/utils"
	"github.com/benmeehan/location-engine/pkg/identity"
	"github.com/benmeehan/location-engine/pkg/location"
	"github.com/benmeehan/location-engine/pkg/mqtt"
	"github.com/rs/zerolog"
)

// Service is implemented by every host service the registry manages.
type Service interface {
	Start() error
	Stop() error
}

// ServiceRegistry manages the lifecycle of the agent services.
type ServiceRegistry struct {
	services    map[string]Service // Stores registered services
	serviceKeys []string           // Maintains order of service registration
	mqttClient  mqtt.MQTTClient
	engine      location.Engine
	backend     services.ProviderBackend
	Logger      zerolog.Logger
}

// NewServiceRegistry initializes a new service registry with dependencies.
func NewServiceRegistry(mqttClient mqtt.MQTTClient, engine location.Engine, backend services.ProviderBackend,
	logger zerolog.Logger) *ServiceRegistry {
	return &ServiceRegistry{
		services:   make(map[string]Service),
		mqttClient: mqttClient,
		engine:     engine,
		backend:    backend,
		Logger:     logger,
	}
}

// RegisterService adds a new service to the registry.
func (sr *ServiceRegistry) RegisterService(name string, svc Service) {
	if _, exists := sr.services[name]; exists {
		sr.Logger.Warn().Msgf("Service %s is already registered", name)
		return
	}
	sr.services[name] = svc
	sr.serviceKeys = append(sr.serviceKeys, name)
	sr.Logger.Info().Msgf("Registered service: %s", name)
}

// StartServices initiates all registered services in order.
// If a service fails to start, it stops already started services.
func (sr *ServiceRegistry) StartServices() error {
	startedServices := []string{}

	for _, name := range sr.serviceKeys {
		svc := sr.services[name]
		sr.Logger.Info().Msgf("Starting service: %s", name)
		if err := svc.Start(); err != nil {
			sr.Logger.Error().Err(err).Msgf("Failed to start service: %s", name)

			sr.Logger.Warn().Msg("Stopping already started services due to startup failure...")
			for i := len(startedServices) - 1; i >= 0; i-- {
				_ = sr.services[startedServices[i]].Stop()
			}
			return err
		}
		startedServices = append(startedServices, name)
	}

	return nil
}

// StopServices stops all services in reverse order.
func (sr *ServiceRegistry) StopServices() error {
	var stopErrors []error
	for i := len(sr.serviceKeys) - 1; i >= 0; i-- {
		name := sr.serviceKeys[i]
		if err := sr.services[name].Stop(); err != nil {
			stopErrors = append(stopErrors, fmt.Errorf("failed to stop %s: %w", name, err))
		}
	}
	if len(stopErrors) > 0 {
		for _, e := range stopErrors {
			sr.Logger.Error().Err(e).Msg("Service stop failure")
		}
		return errors.Join(stopErrors...)
	}
	return nil
}

// RegisterServices registers the enabled services based on configuration.
func (sr *ServiceRegistry) RegisterServices(config *utils.Config, deviceInfo identity.DeviceInfoInterface) error {
	priority, ok := location.ParsePriority(config.Engine.Priority)
	if !ok {
		return fmt.Errorf("unknown priority %q", config.Engine.Priority)
	}
	request := location.Request{
		Priority:        priority,
		Interval:        config.Engine.Interval,
		FastestInterval: config.Engine.FastestInterval,
		Displacement:    config.Engine.Displacement,
	}

	servicesInOrder := []struct {
		name        string
		enabled     bool
		constructor func() Service
	}{
		{
			name:    "status",
			enabled: config.Services.Status.Enabled,
			constructor: func() Service {
				return services.NewStatusService(
					config.Services.Status.Topic,
					config.Services.Status.Interval,
					config.Services.Status.QOS,
					deviceInfo,
					sr.mqttClient,
					sr.backend,
					sr.engine,
					sr.Logger,
				)
			},
		},
		{
			name:    "provider_control",
			enabled: config.Services.Location.Enabled,
			constructor: func() Service {
				return services.NewProviderControlService(
					config.Services.Location.Topic+"/control",
					config.Services.Location.QOS,
					sr.mqttClient,
					sr.backend,
					sr.Logger,
				)
			},
		},
		{
			name:    "location",
			enabled: config.Services.Location.Enabled,
			constructor: func() Service {
				return services.NewLocationService(
					config.Services.Location.Topic,
					config.Services.Location.QOS,
					config.Engine.Mode,
					request,
					deviceInfo,
					sr.mqttClient,
					sr.engine,
					sr.Logger,
				)
			},
		},
		{
			name:    "websocket",
			enabled: config.Services.WebSocket.Enabled,
			constructor: func() Service {
				return services.NewWebSocketService(
					config.Services.WebSocket.ListenAddr,
					request,
					deviceInfo,
					sr.engine,
					sr.Logger,
				)
			},
		},
	}

	for _, svc := range servicesInOrder {
		if svc.enabled {
			sr.RegisterService(svc.name, svc.constructor())
		}
	}

	sr.Logger.Info().Msgf("Registered services in order: %v", sr.serviceKeys)
	return nil
}
