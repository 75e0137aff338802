package backend

import (
	"errors"
	"testing"
	"time"

	"github.com/benmeehan/location-engine/pkg/location"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(sources ...Source) *Registry {
	return NewRegistry(sources, time.Second, zerolog.Nop())
}

func gpsAndNetwork() (*fakeSource, *fakeSource) {
	return newFakeSource(location.GPSProvider, location.AccuracyFine, location.PowerHigh),
		newFakeSource(location.NetworkProvider, location.AccuracyCoarse, location.PowerLow)
}

func TestRegistry_ListProviders(t *testing.T) {
	gps, network := gpsAndNetwork()
	passiveImpostor := newFakeSource(location.PassiveProvider, location.AccuracyFine, location.PowerLow)
	duplicate := newFakeSource(location.GPSProvider, location.AccuracyCoarse, location.PowerLow)

	r := newTestRegistry(gps, passiveImpostor, network, duplicate)

	assert.Equal(t, []location.ProviderName{location.GPSProvider, location.NetworkProvider, location.PassiveProvider},
		r.ListProviders())
	assert.True(t, r.Available())
	assert.False(t, newTestRegistry().Available())
}

func TestRegistry_BestProvider(t *testing.T) {
	gps, network := gpsAndNetwork()
	r := newTestRegistry(gps, network)

	tests := []struct {
		priority location.Priority
		want     location.ProviderName
	}{
		{location.PriorityHighAccuracy, location.GPSProvider},
		{location.PriorityBalancedPowerAccuracy, location.GPSProvider},
		{location.PriorityLowPower, location.NetworkProvider},
	}
	for _, tt := range tests {
		t.Run(tt.priority.String(), func(t *testing.T) {
			got, ok := r.BestProvider(location.CriteriaFor(tt.priority))
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRegistry_BestProviderRelaxesAccuracy(t *testing.T) {
	gps, network := gpsAndNetwork()
	r := newTestRegistry(gps, network)
	require.NoError(t, r.SetEnabled(location.GPSProvider, false))

	got, ok := r.BestProvider(location.CriteriaFor(location.PriorityHighAccuracy))

	require.True(t, ok)
	assert.Equal(t, location.NetworkProvider, got)
}

func TestRegistry_BestProviderNoneEnabled(t *testing.T) {
	gps, network := gpsAndNetwork()
	r := newTestRegistry(gps, network)
	require.NoError(t, r.SetEnabled(location.GPSProvider, false))
	require.NoError(t, r.SetEnabled(location.NetworkProvider, false))

	_, ok := r.BestProvider(location.CriteriaFor(location.PriorityLowPower))

	assert.False(t, ok)
}

func TestRegistry_LastKnownFix(t *testing.T) {
	gps, network := gpsAndNetwork()
	r := newTestRegistry(gps, network)

	_, _, err := r.LastKnownFix("bogus")
	assert.ErrorIs(t, err, location.ErrInvalidProvider)

	_, ok, err := r.LastKnownFix(location.GPSProvider)
	require.NoError(t, err)
	assert.False(t, ok)

	fix := location.Fix{Provider: location.GPSProvider, Latitude: 1, Longitude: 2, Accuracy: 3}
	require.NoError(t, r.Publish(fix))

	got, ok, err := r.LastKnownFix(location.GPSProvider)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, fix, got)

	got, ok, err = r.LastKnownFix(location.PassiveProvider)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, fix, got)

	require.NoError(t, r.SetEnabled(location.GPSProvider, false))
	_, ok, err = r.LastKnownFix(location.GPSProvider)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRegistry_PublishUnknownProvider(t *testing.T) {
	r := newTestRegistry()

	err := r.Publish(location.Fix{Provider: location.GPSProvider})

	assert.ErrorIs(t, err, location.ErrInvalidProvider)
}

func TestRegistry_RegisterStreamValidation(t *testing.T) {
	gps, _ := gpsAndNetwork()
	r := newTestRegistry(gps)
	defer r.Close()

	_, err := r.RegisterStream(location.StreamRequest{Provider: location.GPSProvider})
	assert.ErrorIs(t, err, errInvalidStream)

	_, err = r.RegisterStream(location.StreamRequest{
		Provider: location.GPSProvider,
		Listener: newRecordingListener(),
		Target:   &recordingTarget{},
	})
	assert.ErrorIs(t, err, errInvalidStream)

	_, err = r.RegisterStream(location.StreamRequest{Provider: location.NetworkProvider, Listener: newRecordingListener()})
	assert.ErrorIs(t, err, location.ErrInvalidProvider)
}

func TestRegistry_StreamPollsSource(t *testing.T) {
	gps, _ := gpsAndNetwork()
	gps.set(location.Fix{Latitude: 48.1, Longitude: 11.5, Accuracy: 4}, nil)
	r := newTestRegistry(gps)
	defer r.Close()
	listener := newRecordingListener()

	handle, err := r.RegisterStream(location.StreamRequest{
		Provider: location.GPSProvider,
		Interval: 10 * time.Millisecond,
		Listener: listener,
	})
	require.NoError(t, err)

	select {
	case fix := <-listener.fixes:
		assert.Equal(t, location.GPSProvider, fix.Provider)
		assert.InDelta(t, 48.1, fix.Latitude, 1e-9)
	case <-time.After(time.Second):
		t.Fatal("no fix delivered")
	}

	cached, ok, err := r.LastKnownFix(location.PassiveProvider)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, location.GPSProvider, cached.Provider)

	require.NoError(t, r.DeregisterStream(handle))
	time.Sleep(30 * time.Millisecond)
	calls := gps.calls.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, calls, gps.calls.Load())
}

func TestRegistry_StreamSkipsSourceErrors(t *testing.T) {
	gps, _ := gpsAndNetwork()
	gps.set(location.Fix{}, errSourceDown)
	r := newTestRegistry(gps)
	defer r.Close()
	listener := newRecordingListener()

	_, err := r.RegisterStream(location.StreamRequest{
		Provider: location.GPSProvider,
		Interval: 5 * time.Millisecond,
		Listener: listener,
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool { return gps.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
	assert.Empty(t, listener.fixes)

	gps.set(location.Fix{Latitude: 1, Longitude: 1}, nil)
	select {
	case <-listener.fixes:
	case <-time.After(time.Second):
		t.Fatal("no fix delivered after recovery")
	}
}

func TestRegistry_PassiveStreamReceivesPublishedFixes(t *testing.T) {
	gps, network := gpsAndNetwork()
	r := newTestRegistry(gps, network)
	defer r.Close()
	target := &recordingTarget{}

	_, err := r.RegisterStream(location.StreamRequest{Provider: location.PassiveProvider, Target: target})
	require.NoError(t, err)

	require.NoError(t, r.Publish(location.Fix{Provider: location.GPSProvider, Latitude: 1, Longitude: 1}))
	require.NoError(t, r.Publish(location.Fix{Provider: location.NetworkProvider, Latitude: 2, Longitude: 2}))

	fixes := target.delivered()
	require.Len(t, fixes, 2)
	assert.Equal(t, location.GPSProvider, fixes[0].Provider)
	assert.Equal(t, location.NetworkProvider, fixes[1].Provider)
	assert.Zero(t, gps.calls.Load())
	assert.Zero(t, network.calls.Load())
}

func TestRegistry_DisabledPassiveDropsFixes(t *testing.T) {
	gps, _ := gpsAndNetwork()
	r := newTestRegistry(gps)
	target := &recordingTarget{}
	_, err := r.RegisterStream(location.StreamRequest{Provider: location.PassiveProvider, Target: target})
	require.NoError(t, err)
	require.NoError(t, r.SetEnabled(location.PassiveProvider, false))

	require.NoError(t, r.Publish(location.Fix{Provider: location.GPSProvider}))

	assert.Empty(t, target.delivered())
}

func TestRegistry_DisplacementFilter(t *testing.T) {
	r := newTestRegistry()
	target := &recordingTarget{}
	s := &stream{req: location.StreamRequest{Provider: location.PassiveProvider, Displacement: 100, Target: target}}

	origin := location.Fix{Latitude: 48.0, Longitude: 11.0}
	nearby := location.Fix{Latitude: 48.0001, Longitude: 11.0}
	far := location.Fix{Latitude: 48.01, Longitude: 11.0}

	r.deliver(s, origin)
	r.deliver(s, nearby)
	r.deliver(s, far)

	assert.Equal(t, []location.Fix{origin, far}, target.delivered())
}

func TestRegistry_FastestIntervalFilter(t *testing.T) {
	r := newTestRegistry()
	target := &recordingTarget{}
	s := &stream{req: location.StreamRequest{Provider: location.PassiveProvider, FastestInterval: time.Hour, Target: target}}

	r.deliver(s, location.Fix{Latitude: 1})
	r.deliver(s, location.Fix{Latitude: 2})

	assert.Len(t, target.delivered(), 1)
}

func TestRegistry_SetEnabledNotifiesListeners(t *testing.T) {
	gps, _ := gpsAndNetwork()
	r := newTestRegistry(gps)
	defer r.Close()
	listener := newRecordingListener()
	_, err := r.RegisterStream(location.StreamRequest{
		Provider: location.GPSProvider,
		Interval: time.Hour,
		Listener: listener,
	})
	require.NoError(t, err)

	require.NoError(t, r.SetEnabled(location.GPSProvider, false))
	require.NoError(t, r.SetEnabled(location.GPSProvider, false))
	require.NoError(t, r.SetEnabled(location.GPSProvider, true))
	require.NoError(t, r.SetStatus(location.GPSProvider, location.StatusTemporarilyUnavailable))

	assert.Len(t, listener.disabled, 1)
	assert.Len(t, listener.enabled, 1)
	assert.Equal(t, location.StatusTemporarilyUnavailable, <-listener.statuses)

	assert.ErrorIs(t, r.SetEnabled("bogus", true), location.ErrInvalidProvider)
	assert.ErrorIs(t, r.SetStatus("bogus", location.StatusAvailable), location.ErrInvalidProvider)
}

func TestRegistry_DeregisterUnknownHandle(t *testing.T) {
	r := newTestRegistry()

	assert.NoError(t, r.DeregisterStream(42))
}

func TestRegistry_CloseClosesSources(t *testing.T) {
	closeErr := errors.New("port busy")
	gps := &closingSource{fakeSource: newFakeSource(location.GPSProvider, location.AccuracyFine, location.PowerHigh), closeErr: closeErr}
	network := &closingSource{fakeSource: newFakeSource(location.NetworkProvider, location.AccuracyCoarse, location.PowerLow)}
	r := newTestRegistry(gps, network)
	_, err := r.RegisterStream(location.StreamRequest{Provider: location.GPSProvider, Interval: time.Hour, Listener: newRecordingListener()})
	require.NoError(t, err)

	err = r.Close()

	assert.ErrorIs(t, err, closeErr)
	assert.True(t, gps.closed.Load())
	assert.True(t, network.closed.Load())
}

// A listener subscription whose provider gets disabled fails exactly once and
// stays silent afterwards.
func TestRegistry_EngineProviderDisabled(t *testing.T) {
	gps, network := gpsAndNetwork()
	gps.set(location.Fix{Latitude: 1, Longitude: 1}, nil)
	r := newTestRegistry(gps, network)
	defer r.Close()
	engine := location.NewProviderEngine(r, syncExecutor{}, zerolog.Nop())
	defer engine.Close()

	failures := make(chan error, 4)
	cb := location.CallbackFuncs{Failure: func(err error) { failures <- err }}
	sub, err := engine.RequestUpdates(location.Request{Priority: location.PriorityHighAccuracy, Interval: time.Hour}, cb, nil)
	require.NoError(t, err)
	require.Equal(t, location.GPSProvider, sub.Provider())

	require.NoError(t, r.SetEnabled(location.GPSProvider, false))

	select {
	case err := <-failures:
		assert.ErrorIs(t, err, location.ErrProviderDisabled)
	case <-time.After(time.Second):
		t.Fatal("no failure reported")
	}

	engine.RemoveUpdates(sub)
	require.NoError(t, r.SetEnabled(location.GPSProvider, true))
	require.NoError(t, r.SetEnabled(location.GPSProvider, false))
	assert.Empty(t, failures)
}

type syncExecutor struct{}

func (syncExecutor) Submit(task func()) { task() }
