package mocks

import "sync/atomic"

// MockMessage implements MQTT.Message for handlers under test
type MockMessage struct {
	topic   string
	payload []byte
	qos     byte
	acked   atomic.Bool
}

// NewMockMessage creates a QoS 1 message on topic.
func NewMockMessage(topic string, payload []byte) *MockMessage {
	return &MockMessage{topic: topic, payload: payload, qos: 1}
}

func (m *MockMessage) Payload() []byte   { return m.payload }
func (m *MockMessage) Topic() string     { return m.topic }
func (m *MockMessage) Qos() byte         { return m.qos }
func (m *MockMessage) Duplicate() bool   { return false }
func (m *MockMessage) Retained() bool    { return false }
func (m *MockMessage) MessageID() uint16 { return 1 }
func (m *MockMessage) Ack()              { m.acked.Store(true) }

// Acked reports whether the handler acknowledged the message.
func (m *MockMessage) Acked() bool { return m.acked.Load() }
