package models

import "time"

// Status is the periodic health message of the location engine.
type Status struct {
	DeviceID            string          `json:"device_id"`
	Timestamp           time.Time       `json:"timestamp"`
	Status              string          `json:"status"`
	UptimeSeconds       uint64          `json:"uptime_seconds"`
	ActiveSubscriptions int             `json:"active_subscriptions"`
	Providers           []ProviderState `json:"providers"`
}

// ProviderState describes what a provider currently has cached.
type ProviderState struct {
	Provider      string   `json:"provider"`
	HasFix        bool     `json:"has_fix"`
	Accuracy      *float64 `json:"accuracy,omitempty"`
	FixAgeSeconds *float64 `json:"fix_age_seconds,omitempty"`
}
