package location

import (
	"time"
)

// ProviderName identifies a position source known to a Registry.
type ProviderName string

const (
	// PassiveProvider never triggers positioning on its own. It only reports
	// fixes obtained incidentally by other consumers.
	PassiveProvider ProviderName = "passive"
	// GPSProvider is the satellite based source.
	GPSProvider ProviderName = "gps"
	// NetworkProvider is the wifi/cell based source.
	NetworkProvider ProviderName = "network"
)

func (p ProviderName) String() string { return string(p) }

// Priority expresses the caller's accuracy versus power intent.
type Priority int

const (
	PriorityHighAccuracy Priority = iota
	PriorityBalancedPowerAccuracy
	PriorityLowPower
	PriorityNoPower
)

var priorityNames = map[Priority]string{
	PriorityHighAccuracy:          "high_accuracy",
	PriorityBalancedPowerAccuracy: "balanced",
	PriorityLowPower:              "low_power",
	PriorityNoPower:               "no_power",
}

func (p Priority) String() string {
	if name, ok := priorityNames[p]; ok {
		return name
	}
	return "unknown"
}

// ParsePriority maps a configuration name back to its Priority.
func ParsePriority(name string) (Priority, bool) {
	for p, n := range priorityNames {
		if n == name {
			return p, true
		}
	}
	return PriorityHighAccuracy, false
}

// Request describes a streaming location request.
// FastestInterval is expected to be <= Interval; it is passed through as is.
type Request struct {
	Priority        Priority
	Interval        time.Duration // Desired update interval
	FastestInterval time.Duration // Lower bound on the delivery period
	Displacement    float64       // Minimum distance in meters between updates
}

// NewRequest returns a high accuracy request with the fastest interval equal to interval.
func NewRequest(interval time.Duration) Request {
	return Request{
		Priority:        PriorityHighAccuracy,
		Interval:        interval,
		FastestInterval: interval,
	}
}

// Fix is a single position sample. Optional fields are nil when the source did not report them.
type Fix struct {
	Provider  ProviderName
	Latitude  float64
	Longitude float64
	Accuracy  float64 // Horizontal accuracy in meters
	Timestamp time.Time
	Speed     *float64 // m/s
	Bearing   *float64 // degrees from true north
	Altitude  *float64 // meters
}

// HasSpeed reports whether the fix carries a speed.
func (f Fix) HasSpeed() bool { return f.Speed != nil }

// HasBearing reports whether the fix carries a bearing.
func (f Fix) HasBearing() bool { return f.Bearing != nil }

// HasAltitude reports whether the fix carries an altitude.
func (f Fix) HasAltitude() bool { return f.Altitude != nil }
