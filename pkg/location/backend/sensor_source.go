package backend

import (
	"bufio"
	"context"
	"errors"
	"io"
	"time"

	"github.com/adrianmo/go-nmea"
	"github.com/benmeehan/location-engine/pkg/location"
	"github.com/tarm/serial"
)

const (
	// uereMeters scales HDOP into an accuracy radius.
	uereMeters = 5.0
	// maxSentences bounds how many lines one read may consume.
	maxSentences = 64
)

var errNoGPSFix = errors.New("no valid GPS data found")

// SensorSource is the gps provider: an NMEA receiver on a serial port.
type SensorSource struct {
	open func() (io.ReadCloser, error)
}

// NewSensorSource creates a gps source for the device at port.
func NewSensorSource(port string, baudRate int) *SensorSource {
	return newSensorSource(func() (io.ReadCloser, error) {
		return serial.OpenPort(&serial.Config{
			Name:        port,
			Baud:        baudRate,
			ReadTimeout: 2 * time.Second,
		})
	})
}

func newSensorSource(open func() (io.ReadCloser, error)) *SensorSource {
	return &SensorSource{open: open}
}

func (d *SensorSource) Name() location.ProviderName { return location.GPSProvider }
func (d *SensorSource) Accuracy() location.Accuracy { return location.AccuracyFine }
func (d *SensorSource) Power() location.Power       { return location.PowerHigh }

// GetLocation reads sentences until a GGA with a valid fix arrives. A preceding
// valid RMC contributes speed, course and the UTC date.
func (d *SensorSource) GetLocation(ctx context.Context) (location.Fix, error) {
	port, err := d.open()
	if err != nil {
		return location.Fix{}, err
	}
	defer port.Close()

	var rmc *nmea.RMC
	scanner := bufio.NewScanner(port)
	for i := 0; i < maxSentences && scanner.Scan(); i++ {
		if err := ctx.Err(); err != nil {
			return location.Fix{}, err
		}

		sentence, err := nmea.Parse(scanner.Text())
		if err != nil {
			continue
		}

		switch s := sentence.(type) {
		case nmea.RMC:
			if s.Validity == nmea.ValidRMC {
				rmc = &s
			}
		case nmea.GGA:
			if s.FixQuality == nmea.Invalid {
				continue
			}
			return fixFromSentences(s, rmc), nil
		}
	}

	if err := scanner.Err(); err != nil {
		return location.Fix{}, err
	}
	return location.Fix{}, errNoGPSFix
}

func fixFromSentences(gga nmea.GGA, rmc *nmea.RMC) location.Fix {
	altitude := gga.Altitude
	fix := location.Fix{
		Provider:  location.GPSProvider,
		Latitude:  gga.Latitude,
		Longitude: gga.Longitude,
		Accuracy:  gga.HDOP * uereMeters,
		Altitude:  &altitude,
		Timestamp: time.Now().UTC(),
	}
	if rmc == nil {
		return fix
	}

	speed := rmc.Speed * knotsToMetersPerSecond
	bearing := rmc.Course
	fix.Speed, fix.Bearing = &speed, &bearing
	if rmc.Date.Valid && gga.Time.Valid {
		fix.Timestamp = time.Date(2000+rmc.Date.YY, time.Month(rmc.Date.MM), rmc.Date.DD,
			gga.Time.Hour, gga.Time.Minute, gga.Time.Second, gga.Time.Millisecond*int(time.Millisecond), time.UTC)
	}
	return fix
}

const knotsToMetersPerSecond = 0.514444
