package services

import (
	"sync/atomic"

	"github.com/benmeehan/location-engine/pkg/identity"
	"github.com/benmeehan/location-engine/pkg/location"
	"github.com/benmeehan/location-engine/pkg/mqtt"
	"github.com/rs/zerolog"
)

// BroadcastTarget is a passive delivery target that republishes each fix on MQTT.
// Provider lifecycle events never reach it; consumers of the topic notice silence instead.
type BroadcastTarget struct {
	topic      string
	qos        int
	deviceInfo identity.DeviceInfoInterface
	mqttClient mqtt.MQTTClient
	logger     zerolog.Logger

	delivered atomic.Uint64
}

// NewBroadcastTarget creates a BroadcastTarget publishing to topic.
func NewBroadcastTarget(topic string, qos int, deviceInfo identity.DeviceInfoInterface,
	mqttClient mqtt.MQTTClient, logger zerolog.Logger) *BroadcastTarget {
	return &BroadcastTarget{
		topic:      topic,
		qos:        qos,
		deviceInfo: deviceInfo,
		mqttClient: mqttClient,
		logger:     logger,
	}
}

func (b *BroadcastTarget) Deliver(fix location.Fix) {
	if err := publishFix(b.mqttClient, b.topic, b.qos, b.deviceInfo, fix, b.logger); err != nil {
		b.logger.Error().Err(err).Str("topic", b.topic).Msg("Failed to broadcast location")
		return
	}
	b.delivered.Add(1)
}

// Delivered returns how many fixes were published.
func (b *BroadcastTarget) Delivered() uint64 {
	return b.delivered.Load()
}
