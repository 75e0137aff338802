package mocks

import (
	"github.com/benmeehan/location-engine/pkg/location"
	"github.com/stretchr/testify/mock"
)

// MockEngine is a mock implementation of the location.Engine interface
type MockEngine struct {
	mock.Mock
}

func (m *MockEngine) GetLastLocation(callback location.Callback) {
	m.Called(callback)
}

func (m *MockEngine) GetLastLocationFor(req location.Request, callback location.Callback) {
	m.Called(req, callback)
}

func (m *MockEngine) RequestUpdates(req location.Request, callback location.Callback, exec location.Executor) (*location.Subscription, error) {
	args := m.Called(req, callback, exec)
	sub, _ := args.Get(0).(*location.Subscription)
	return sub, args.Error(1)
}

func (m *MockEngine) RequestPassiveUpdates(req location.Request, target location.PassiveTarget) (*location.Subscription, error) {
	args := m.Called(req, target)
	sub, _ := args.Get(0).(*location.Subscription)
	return sub, args.Error(1)
}

func (m *MockEngine) RemoveUpdates(sub *location.Subscription) {
	m.Called(sub)
}

func (m *MockEngine) Close() {
	m.Called()
}

// MockBackend is a mock implementation of the services.ProviderBackend interface
type MockBackend struct {
	MockRegistry
}

func (m *MockBackend) SetEnabled(provider location.ProviderName, enabled bool) error {
	args := m.Called(provider, enabled)
	return args.Error(0)
}
