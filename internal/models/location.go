package models

import (
	"time"
)

// Location is the fix message published for a device
type Location struct {
	DeviceID  string    `json:"device_id"`
	Provider  string    `json:"provider"`
	Timestamp time.Time `json:"timestamp"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Accuracy  float64   `json:"accuracy"`
	Speed     *float64  `json:"speed,omitempty"`
	Bearing   *float64  `json:"bearing,omitempty"`
	Altitude  *float64  `json:"altitude,omitempty"`
}

// LocationFailure is published when a subscription reports an error
type LocationFailure struct {
	DeviceID  string    `json:"device_id"`
	Timestamp time.Time `json:"timestamp"`
	Reason    string    `json:"reason"`
}
