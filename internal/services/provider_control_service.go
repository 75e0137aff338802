package services

import (
	"encoding/json"
	"errors"
	"sync"

	"github.com/benmeehan/location-engine/pkg/location"
	"github.com/benmeehan/location-engine/pkg/mqtt"
	MQTT "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"
)

// ProviderSwitch turns providers on and off.
type ProviderSwitch interface {
	SetEnabled(provider location.ProviderName, enabled bool) error
}

// ProviderBackend is the backend the engine runs on: readable as a registry and switchable.
type ProviderBackend interface {
	location.Registry
	ProviderSwitch
}

// ProviderControl is the payload accepted on the control topic.
type ProviderControl struct {
	Provider string `json:"provider"`
	Enabled  bool   `json:"enabled"`
}

// ProviderControlService lets the backend enable or disable location providers remotely.
type ProviderControlService struct {
	topic      string
	qos        int
	mqttClient mqtt.MQTTClient
	providers  ProviderSwitch
	logger     zerolog.Logger

	mu      sync.Mutex
	running bool
}

// NewProviderControlService creates a ProviderControlService listening on topic.
func NewProviderControlService(topic string, qos int, mqttClient mqtt.MQTTClient, providers ProviderSwitch,
	logger zerolog.Logger) *ProviderControlService {
	return &ProviderControlService{
		topic:      topic,
		qos:        qos,
		mqttClient: mqttClient,
		providers:  providers,
		logger:     logger,
	}
}

// Start subscribes to the control topic.
func (p *ProviderControlService) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return errors.New("provider control service is already running")
	}

	token := p.mqttClient.Subscribe(p.topic, byte(p.qos), p.handleMessage)
	token.Wait()
	if err := token.Error(); err != nil {
		p.logger.Error().Err(err).Str("topic", p.topic).Msg("Failed to subscribe to provider control topic")
		return err
	}

	p.running = true
	p.logger.Info().Str("topic", p.topic).Msg("ProviderControlService started")
	return nil
}

// Stop unsubscribes from the control topic.
func (p *ProviderControlService) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return errors.New("provider control service is not running")
	}

	token := p.mqttClient.Unsubscribe(p.topic)
	token.Wait()
	if err := token.Error(); err != nil {
		p.logger.Error().Err(err).Msg("Failed to unsubscribe from provider control topic")
		return err
	}

	p.running = false
	p.logger.Info().Msg("ProviderControlService stopped")
	return nil
}

// handleMessage acknowledges every message, malformed ones included, so they are not redelivered.
func (p *ProviderControlService) handleMessage(_ MQTT.Client, msg MQTT.Message) {
	defer msg.Ack()

	var control ProviderControl
	if err := json.Unmarshal(msg.Payload(), &control); err != nil {
		p.logger.Error().Err(err).Msg("Failed to parse provider control message")
		return
	}

	provider := location.ProviderName(control.Provider)
	if err := p.providers.SetEnabled(provider, control.Enabled); err != nil {
		p.logger.Error().Err(err).Str("provider", control.Provider).Msg("Failed to switch provider")
		return
	}
	p.logger.Info().Str("provider", control.Provider).Bool("enabled", control.Enabled).Msg("Provider switched")
}
