package location

import "time"

// Registry is the backend that knows the available providers and drives their streams.
type Registry interface {
	// ListProviders returns every provider known to the backend, in backend order.
	ListProviders() []ProviderName
	// BestProvider returns the best enabled provider matching criteria, if any.
	BestProvider(criteria Criteria) (ProviderName, bool)
	// LastKnownFix returns the cached fix of a provider. Unknown names yield ErrInvalidProvider.
	LastKnownFix(provider ProviderName) (Fix, bool, error)
	// RegisterStream starts delivering updates for the request and returns its backend handle.
	RegisterStream(req StreamRequest) (StreamHandle, error)
	// DeregisterStream stops the stream identified by handle.
	DeregisterStream(handle StreamHandle) error
}

// StreamHandle is the backend-native identifier of a registered stream.
type StreamHandle uint64

// StreamRequest carries everything a backend needs to open a stream.
// Exactly one of Listener and Target is set.
type StreamRequest struct {
	Provider        ProviderName
	Interval        time.Duration
	FastestInterval time.Duration
	Displacement    float64

	Listener Listener      // Push delivery, events dispatched on Executor
	Executor Executor      // Execution context for Listener events
	Target   PassiveTarget // Passive delivery
}

// Listener receives backend-native position and lifecycle events.
type Listener interface {
	OnLocationChanged(fix Fix)
	OnStatusChanged(provider ProviderName, status ProviderStatus)
	OnProviderEnabled(provider ProviderName)
	OnProviderDisabled(provider ProviderName)
}

// PassiveTarget receives fixes without lifecycle events, e.g. a broadcast channel.
type PassiveTarget interface {
	Deliver(fix Fix)
}

// Executor runs event deliveries. Implementations decide the goroutine; a single
// worker keeps events in submission order.
type Executor interface {
	Submit(task func())
}

// ProviderStatus is reported through Listener.OnStatusChanged.
type ProviderStatus int

const (
	StatusOutOfService ProviderStatus = iota
	StatusTemporarilyUnavailable
	StatusAvailable
)
