package backend

import (
	"context"
	"time"

	"github.com/benmeehan/location-engine/pkg/location"
	"github.com/rs/zerolog"
	"googlemaps.github.io/maps"
)

// geolocator is the part of the Maps client used by GeolocationSource.
type geolocator interface {
	Geolocate(ctx context.Context, r *maps.GeolocationRequest) (*maps.GeolocationResult, error)
}

// GeolocationSource is the network provider. It resolves nearby wifi access
// points and the serving cell through the Google Maps Geolocation API.
type GeolocationSource struct {
	client     geolocator
	modemIndex int
	run        commandRunner
	logger     zerolog.Logger
	now        func() time.Time
}

// NewGeolocationSource creates a network source using the given Maps API key.
func NewGeolocationSource(apiKey string, modemIndex int, logger zerolog.Logger) (*GeolocationSource, error) {
	c, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	return newGeolocationSource(c, modemIndex, runCommand, logger), nil
}

func newGeolocationSource(client geolocator, modemIndex int, run commandRunner, logger zerolog.Logger) *GeolocationSource {
	return &GeolocationSource{
		client:     client,
		modemIndex: modemIndex,
		run:        run,
		logger:     logger,
		now:        time.Now,
	}
}

func (g *GeolocationSource) Name() location.ProviderName { return location.NetworkProvider }
func (g *GeolocationSource) Accuracy() location.Accuracy { return location.AccuracyCoarse }
func (g *GeolocationSource) Power() location.Power       { return location.PowerLow }

// GetLocation geolocates the device. Missing wifi or cell data only narrows the
// request; the API still considers the public IP.
func (g *GeolocationSource) GetLocation(ctx context.Context) (location.Fix, error) {
	req := &maps.GeolocationRequest{ConsiderIP: true}

	wifiAPs, err := scanWiFiAccessPoints(ctx, g.run)
	if err != nil {
		g.logger.Debug().Err(err).Msg("WiFi scan unavailable for geolocation")
	} else {
		req.WiFiAccessPoints = wifiAPs
	}

	cellTowers, err := scanCellTowers(ctx, g.run, g.modemIndex)
	if err != nil {
		g.logger.Debug().Err(err).Int("modem", g.modemIndex).Msg("Cell data unavailable for geolocation")
	} else {
		req.CellTowers = cellTowers
	}

	resp, err := g.client.Geolocate(ctx, req)
	if err != nil {
		return location.Fix{}, err
	}

	return location.Fix{
		Provider:  location.NetworkProvider,
		Latitude:  resp.Location.Lat,
		Longitude: resp.Location.Lng,
		Accuracy:  resp.Accuracy,
		Timestamp: g.now().UTC(),
	}, nil
}
