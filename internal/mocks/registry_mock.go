package mocks

import (
	"github.com/benmeehan/location-engine/pkg/location"
	"github.com/stretchr/testify/mock"
)

// MockRegistry is a mock implementation of the location.Registry interface
type MockRegistry struct {
	mock.Mock
}

func (m *MockRegistry) ListProviders() []location.ProviderName {
	args := m.Called()
	providers, _ := args.Get(0).([]location.ProviderName)
	return providers
}

func (m *MockRegistry) BestProvider(criteria location.Criteria) (location.ProviderName, bool) {
	args := m.Called(criteria)
	return args.Get(0).(location.ProviderName), args.Bool(1)
}

func (m *MockRegistry) LastKnownFix(provider location.ProviderName) (location.Fix, bool, error) {
	args := m.Called(provider)
	return args.Get(0).(location.Fix), args.Bool(1), args.Error(2)
}

func (m *MockRegistry) RegisterStream(req location.StreamRequest) (location.StreamHandle, error) {
	args := m.Called(req)
	return args.Get(0).(location.StreamHandle), args.Error(1)
}

func (m *MockRegistry) DeregisterStream(handle location.StreamHandle) error {
	args := m.Called(handle)
	return args.Error(0)
}

// MockCallback is a mock implementation of the location.Callback interface
type MockCallback struct {
	mock.Mock
}

func (m *MockCallback) OnSuccess(fix location.Fix) {
	m.Called(fix)
}

func (m *MockCallback) OnFailure(err error) {
	m.Called(err)
}
