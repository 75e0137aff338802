package backend

import (
	"context"
	"testing"

	"github.com/benmeehan/location-engine/pkg/location"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFusedSource_PicksMostAccurate(t *testing.T) {
	gps, network := gpsAndNetwork()
	gps.set(location.Fix{Provider: location.GPSProvider, Latitude: 1, Accuracy: 4}, nil)
	network.set(location.Fix{Provider: location.NetworkProvider, Latitude: 2, Accuracy: 150}, nil)
	fused := NewFusedSource(network, gps)

	fix, err := fused.GetLocation(context.Background())

	require.NoError(t, err)
	assert.Equal(t, location.GPSProvider, fix.Provider)
	assert.Equal(t, location.AccuracyFine, fused.Accuracy())
	assert.Equal(t, location.PowerHigh, fused.Power())
	assert.Equal(t, FusedProvider, fused.Name())
}

func TestFusedSource_ToleratesFailingMember(t *testing.T) {
	gps, network := gpsAndNetwork()
	gps.set(location.Fix{}, errSourceDown)
	network.set(location.Fix{Provider: location.NetworkProvider, Accuracy: 150}, nil)

	fix, err := NewFusedSource(gps, network).GetLocation(context.Background())

	require.NoError(t, err)
	assert.Equal(t, location.NetworkProvider, fix.Provider)
}

func TestFusedSource_AllMembersFail(t *testing.T) {
	gps, network := gpsAndNetwork()
	gps.set(location.Fix{}, errSourceDown)
	network.set(location.Fix{}, errSourceDown)

	_, err := NewFusedSource(gps, network).GetLocation(context.Background())

	require.ErrorIs(t, err, errSourceDown)
	assert.Contains(t, err.Error(), "gps: source down")
	assert.Contains(t, err.Error(), "network: source down")
}

func TestFusedSource_NoMembers(t *testing.T) {
	fused := NewFusedSource()

	_, err := fused.GetLocation(context.Background())

	assert.EqualError(t, err, "fused source has no members")
	assert.Equal(t, location.AccuracyCoarse, fused.Accuracy())
	assert.Equal(t, location.PowerLow, fused.Power())
}

// A registry over a fused source reports fixes under the fused provider.
func TestFusedSource_InRegistry(t *testing.T) {
	gps, network := gpsAndNetwork()
	gps.set(location.Fix{Accuracy: 4}, nil)
	network.set(location.Fix{Accuracy: 150}, nil)
	r := newTestRegistry(NewFusedSource(gps, network))
	defer r.Close()

	got, ok := r.BestProvider(location.CriteriaFor(location.PriorityLowPower))
	require.True(t, ok)
	assert.Equal(t, FusedProvider, got)

	fix, err := r.fetch(context.Background(), r.byName[FusedProvider])
	require.NoError(t, err)
	assert.Equal(t, FusedProvider, fix.Provider)
}
