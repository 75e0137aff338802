package location

import "errors"

var (
	// ErrNoFixAvailable is returned when no provider has a last known fix.
	ErrNoFixAvailable = errors.New("last location unavailable")
	// ErrProviderDisabled is delivered through Callback.OnFailure when the subscribed provider is turned off.
	ErrProviderDisabled = errors.New("current provider disabled")
	// ErrInvalidProvider is returned by a Registry for unknown provider names.
	ErrInvalidProvider = errors.New("invalid provider")
	// ErrPermissionDenied is raised by a Registry when the host lacks location permission.
	ErrPermissionDenied = errors.New("location permission denied")
)
