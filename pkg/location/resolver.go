package location

import (
	"errors"

	"github.com/rs/zerolog"
)

// ResolveLastLocation returns the last known fix of current, or else the first
// fix found while scanning every registered provider in registry order.
// Providers rejected with ErrInvalidProvider are skipped; other lookup errors
// are returned unchanged.
func ResolveLastLocation(current ProviderName, registry Registry, logger zerolog.Logger) (Fix, error) {
	fix, ok, err := lastKnownFix(current, registry, logger)
	if err != nil {
		return Fix{}, err
	}
	if ok {
		return fix, nil
	}

	for _, provider := range registry.ListProviders() {
		fix, ok, err = lastKnownFix(provider, registry, logger)
		if err != nil {
			return Fix{}, err
		}
		if ok {
			return fix, nil
		}
	}
	return Fix{}, ErrNoFixAvailable
}

func lastKnownFix(provider ProviderName, registry Registry, logger zerolog.Logger) (Fix, bool, error) {
	fix, ok, err := registry.LastKnownFix(provider)
	if errors.Is(err, ErrInvalidProvider) {
		logger.Error().Err(err).Str("provider", string(provider)).Msg("Skipping provider during last location lookup")
		return Fix{}, false, nil
	}
	if err != nil {
		return Fix{}, false, err
	}
	return fix, ok, nil
}
