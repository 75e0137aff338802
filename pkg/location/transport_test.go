package location_test

import (
	"errors"
	"testing"
	"time"

	"github.com/benmeehan/location-engine/internal/mocks"
	"github.com/benmeehan/location-engine/pkg/location"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestCallbackTransport_LocationChanged(t *testing.T) {
	callback := new(mocks.MockCallback)
	fix := testFix(location.GPSProvider, 10, 20)
	callback.On("OnSuccess", fix).Return().Once()

	transport := location.NewCallbackTransport(callback)
	transport.OnLocationChanged(fix)

	callback.AssertExpectations(t)
	callback.AssertNotCalled(t, "OnFailure", mock.Anything)
}

func TestCallbackTransport_ProviderDisabled(t *testing.T) {
	callback := new(mocks.MockCallback)
	callback.On("OnFailure", location.ErrProviderDisabled).Return().Once()

	transport := location.NewCallbackTransport(callback)
	transport.OnProviderDisabled(location.GPSProvider)

	callback.AssertExpectations(t)
	status, ok := transport.ProviderStatus(location.GPSProvider)
	require.True(t, ok)
	assert.Equal(t, location.StatusOutOfService, status)
}

func TestCallbackTransport_LifecycleEventsProduceNoCallback(t *testing.T) {
	callback := new(mocks.MockCallback)

	transport := location.NewCallbackTransport(callback)
	transport.OnProviderEnabled(location.NetworkProvider)
	transport.OnStatusChanged(location.GPSProvider, location.StatusTemporarilyUnavailable)

	callback.AssertNotCalled(t, "OnSuccess", mock.Anything)
	callback.AssertNotCalled(t, "OnFailure", mock.Anything)

	status, ok := transport.ProviderStatus(location.NetworkProvider)
	require.True(t, ok)
	assert.Equal(t, location.StatusAvailable, status)
	status, ok = transport.ProviderStatus(location.GPSProvider)
	require.True(t, ok)
	assert.Equal(t, location.StatusTemporarilyUnavailable, status)
}

func TestCallbackTransport_InertAfterCleanup(t *testing.T) {
	callback := new(mocks.MockCallback)

	transport := location.NewCallbackTransport(callback)
	transport.Cleanup()

	transport.OnLocationChanged(testFix(location.GPSProvider, 1, 1))
	transport.OnProviderDisabled(location.GPSProvider)
	transport.OnProviderEnabled(location.GPSProvider)
	transport.OnStatusChanged(location.GPSProvider, location.StatusAvailable)

	assert.True(t, transport.Inert())
	callback.AssertNotCalled(t, "OnSuccess", mock.Anything)
	callback.AssertNotCalled(t, "OnFailure", mock.Anything)
}

func TestCallbackTransport_FastestInterval(t *testing.T) {
	transport := location.NewCallbackTransport(location.CallbackFuncs{})
	assert.Zero(t, transport.FastestInterval())

	transport.SetFastestInterval(500 * time.Millisecond)
	transport.OnLocationChanged(testFix(location.GPSProvider, 1, 1))
	transport.SetFastestInterval(250 * time.Millisecond)

	assert.Equal(t, 250*time.Millisecond, transport.FastestInterval())
	assert.False(t, transport.Inert())
}

func TestCallbackFuncs(t *testing.T) {
	var gotFix location.Fix
	var gotErr error
	cb := location.CallbackFuncs{
		Success: func(fix location.Fix) { gotFix = fix },
		Failure: func(err error) { gotErr = err },
	}

	fix := testFix(location.NetworkProvider, 3, 4)
	cb.OnSuccess(fix)
	cb.OnFailure(errors.New("boom"))

	assert.Equal(t, fix, gotFix)
	assert.EqualError(t, gotErr, "boom")

	assert.NotPanics(t, func() {
		location.CallbackFuncs{}.OnSuccess(fix)
		location.CallbackFuncs{}.OnFailure(gotErr)
	})
}
