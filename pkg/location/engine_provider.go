package location

import "github.com/rs/zerolog"

// Availability is implemented by registries that may be unusable on the host.
type Availability interface {
	Available() bool
}

type engineOptions struct {
	fused    Registry
	executor Executor
	logger   zerolog.Logger
}

// Option configures GetBestEngine.
type Option func(*engineOptions)

// WithFusedRegistry offers an aggregated backend that wins over the native one
// when it reports itself available.
func WithFusedRegistry(registry Registry) Option {
	return func(o *engineOptions) { o.fused = registry }
}

// WithExecutor sets the default execution context for listener events.
func WithExecutor(executor Executor) Option {
	return func(o *engineOptions) { o.executor = executor }
}

// WithLogger sets the engine logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *engineOptions) { o.logger = logger }
}

// GetBestEngine picks the backend once and returns an engine bound to it.
// The choice is not revisited for the lifetime of the engine; Registry on the
// returned engine reports which backend won.
func GetBestEngine(native Registry, opts ...Option) *ProviderEngine {
	o := engineOptions{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(&o)
	}

	registry, backend := native, "native"
	if o.fused != nil && isAvailable(o.fused) {
		registry, backend = o.fused, "fused"
	}
	o.logger.Info().Str("backend", backend).Msg("Location engine selected")

	return NewProviderEngine(registry, o.executor, o.logger.With().Str("backend", backend).Logger())
}

func isAvailable(registry Registry) bool {
	if a, ok := registry.(Availability); ok {
		return a.Available()
	}
	return true
}
