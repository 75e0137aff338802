package services

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/benmeehan/location-engine/internal/models"
	"github.com/benmeehan/location-engine/pkg/identity"
	"github.com/benmeehan/location-engine/pkg/location"
	"github.com/benmeehan/location-engine/pkg/mqtt"
	"github.com/rs/zerolog"
)

const (
	ModeListener  = "listener"
	ModeBroadcast = "broadcast"
)

// LocationService subscribes to the location engine and publishes every fix to an MQTT topic.
type LocationService struct {
	// Configuration fields
	topic   string
	qos     int
	mode    string
	request location.Request

	// Dependencies
	deviceInfo identity.DeviceInfoInterface
	mqttClient mqtt.MQTTClient
	engine     location.Engine
	logger     zerolog.Logger

	// Internal state management
	mu           sync.Mutex
	subscription *location.Subscription
}

// NewLocationService creates a new LocationService instance with the provided configuration.
func NewLocationService(topic string, qos int, mode string, request location.Request, deviceInfo identity.DeviceInfoInterface,
	mqttClient mqtt.MQTTClient, engine location.Engine, logger zerolog.Logger) *LocationService {
	return &LocationService{
		topic:      topic,
		qos:        qos,
		mode:       mode,
		request:    request,
		deviceInfo: deviceInfo,
		mqttClient: mqttClient,
		engine:     engine,
		logger:     logger,
	}
}

// Start publishes the last known fix, if any, and opens the update subscription.
func (l *LocationService) Start() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.subscription != nil {
		l.logger.Warn().Msg("LocationService is already running")
		return errors.New("location service is already running")
	}

	l.engine.GetLastLocationFor(l.request, location.CallbackFuncs{
		Success: func(fix location.Fix) {
			if err := l.publishFix(fix); err != nil {
				l.logger.Error().Err(err).Msg("Failed to publish last known location")
			}
		},
		Failure: func(err error) {
			l.logger.Info().Err(err).Msg("No last known location to publish")
		},
	})

	var (
		sub *location.Subscription
		err error
	)
	switch l.mode {
	case ModeBroadcast:
		sub, err = l.engine.RequestPassiveUpdates(l.request, NewBroadcastTarget(l.topic, l.qos, l.deviceInfo, l.mqttClient, l.logger))
	default:
		sub, err = l.engine.RequestUpdates(l.request, l, nil)
	}
	if err != nil {
		l.logger.Error().Err(err).Msg("Failed to request location updates")
		return err
	}
	l.subscription = sub

	l.logger.Info().
		Str("topic", l.topic).
		Str("mode", l.mode).
		Str("provider", sub.Provider().String()).
		Dur("interval", l.request.Interval).
		Int("qos", l.qos).
		Msg("LocationService started")
	return nil
}

// Stop removes the update subscription.
func (l *LocationService) Stop() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.subscription == nil {
		l.logger.Warn().Msg("LocationService is not running")
		return errors.New("location service is not running")
	}

	l.engine.RemoveUpdates(l.subscription)
	l.subscription = nil

	l.logger.Info().Msg("LocationService stopped")
	return nil
}

// OnSuccess publishes a streamed fix.
func (l *LocationService) OnSuccess(fix location.Fix) {
	if err := l.publishFix(fix); err != nil {
		l.logger.Error().Err(err).Msg("Failed to publish current location")
	}
}

// OnFailure publishes the failure reason so the backend can tell a silent device from a disabled provider.
func (l *LocationService) OnFailure(err error) {
	l.logger.Warn().Err(err).Msg("Location subscription reported a failure")

	payload, jsonErr := json.Marshal(models.LocationFailure{
		DeviceID:  l.deviceInfo.GetDeviceID(),
		Timestamp: time.Now(),
		Reason:    err.Error(),
	})
	if jsonErr != nil {
		l.logger.Error().Err(jsonErr).Msg("Failed to serialize location failure")
		return
	}
	if pubErr := publish(l.mqttClient, l.topic+"/failure", l.qos, payload); pubErr != nil {
		l.logger.Error().Err(pubErr).Msg("Failed to publish location failure")
	}
}

func (l *LocationService) publishFix(fix location.Fix) error {
	return publishFix(l.mqttClient, l.topic, l.qos, l.deviceInfo, fix, l.logger)
}

// publishFix serializes fix and publishes it to topic.
func publishFix(client mqtt.MQTTClient, topic string, qos int, deviceInfo identity.DeviceInfoInterface,
	fix location.Fix, logger zerolog.Logger) error {
	locationMessage := newLocationMessage(deviceInfo.GetDeviceID(), fix)

	payload, err := json.Marshal(locationMessage)
	if err != nil {
		return err
	}
	if err := publish(client, topic, qos, payload); err != nil {
		return err
	}

	logger.Debug().
		Str("provider", locationMessage.Provider).
		Str("topic", topic).
		Msg("Location published successfully")
	return nil
}

func newLocationMessage(deviceID string, fix location.Fix) models.Location {
	return models.Location{
		DeviceID:  deviceID,
		Provider:  fix.Provider.String(),
		Timestamp: fix.Timestamp,
		Latitude:  fix.Latitude,
		Longitude: fix.Longitude,
		Accuracy:  fix.Accuracy,
		Speed:     fix.Speed,
		Bearing:   fix.Bearing,
		Altitude:  fix.Altitude,
	}
}

func publish(client mqtt.MQTTClient, topic string, qos int, payload []byte) error {
	token := client.Publish(topic, byte(qos), false, payload)
	token.Wait()
	return token.Error()
}
