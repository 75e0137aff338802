package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/benmeehan/location-engine/internal/models"
	"github.com/benmeehan/location-engine/pkg/identity"
	"github.com/benmeehan/location-engine/pkg/location"
	"github.com/benmeehan/location-engine/pkg/mqtt"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/host"
)

const statusAlive = "alive"

// subscriptionCounter is implemented by engines that can report their open subscriptions.
type subscriptionCounter interface {
	ActiveSubscriptions() int
}

// StatusService periodically publishes the state of the location providers.
type StatusService struct {
	PubTopic   string
	Interval   time.Duration
	QOS        int
	DeviceInfo identity.DeviceInfoInterface
	MqttClient mqtt.MQTTClient
	Registry   location.Registry
	Engine     location.Engine
	Logger     zerolog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewStatusService initializes a new StatusService.
func NewStatusService(pubTopic string, interval time.Duration, qos int, deviceInfo identity.DeviceInfoInterface,
	mqttClient mqtt.MQTTClient, registry location.Registry, engine location.Engine, logger zerolog.Logger) *StatusService {
	return &StatusService{
		PubTopic:   pubTopic,
		Interval:   interval,
		QOS:        qos,
		DeviceInfo: deviceInfo,
		MqttClient: mqttClient,
		Registry:   registry,
		Engine:     engine,
		Logger:     logger,
	}
}

// Start launches the status loop in a separate goroutine.
func (s *StatusService) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		s.Logger.Warn().Msg("StatusService is already running")
		return errors.New("status service is already running")
	}

	var ctx context.Context
	ctx, s.cancel = context.WithCancel(context.Background())

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.runStatusLoop(ctx)
	}()

	s.Logger.Info().Str("topic", s.PubTopic).Dur("interval", s.Interval).Msg("StatusService started successfully")
	return nil
}

// Stop gracefully stops the status loop.
func (s *StatusService) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel == nil {
		s.Logger.Warn().Msg("StatusService is not running")
		return errors.New("status service is not running")
	}

	s.cancel()
	s.wg.Wait()
	s.cancel = nil

	s.Logger.Info().Msg("StatusService stopped successfully")
	return nil
}

func (s *StatusService) runStatusLoop(ctx context.Context) {
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			payload, err := json.Marshal(s.collect(time.Now()))
			if err != nil {
				s.Logger.Error().Err(err).Msg("Failed to serialize status message")
				continue
			}
			if err := publish(s.MqttClient, s.PubTopic, s.QOS, payload); err != nil {
				s.Logger.Error().Err(err).Msg("Failed to publish status message")
			} else {
				s.Logger.Debug().Msg("Status published successfully")
			}

		case <-ctx.Done():
			s.Logger.Info().Msg("StatusService stopping gracefully")
			return
		}
	}
}

func (s *StatusService) collect(now time.Time) models.Status {
	status := models.Status{
		DeviceID:  s.DeviceInfo.GetDeviceID(),
		Timestamp: now,
		Status:    statusAlive,
	}

	if uptime, err := host.Uptime(); err != nil {
		s.Logger.Debug().Err(err).Msg("Host uptime unavailable")
	} else {
		status.UptimeSeconds = uptime
	}

	if counter, ok := s.Engine.(subscriptionCounter); ok {
		status.ActiveSubscriptions = counter.ActiveSubscriptions()
	}

	for _, provider := range s.Registry.ListProviders() {
		state := models.ProviderState{Provider: provider.String()}
		fix, ok, err := s.Registry.LastKnownFix(provider)
		if err != nil {
			s.Logger.Warn().Err(err).Str("provider", provider.String()).Msg("Failed to read last known fix")
		} else if ok {
			accuracy := fix.Accuracy
			age := now.Sub(fix.Timestamp).Seconds()
			state.HasFix, state.Accuracy, state.FixAgeSeconds = true, &accuracy, &age
		}
		status.Providers = append(status.Providers, state)
	}
	return status
}
