package location

import (
	"sync/atomic"
	"time"

	cmap "github.com/orcaman/concurrent-map/v2"
)

// BaseListener keeps the listener-side bookkeeping for provider lifecycle events.
// Listeners embed it and call through when overriding a method.
type BaseListener struct {
	states cmap.ConcurrentMap[ProviderName, ProviderStatus]
}

// NewBaseListener returns a BaseListener with empty provider state.
func NewBaseListener() BaseListener {
	return BaseListener{states: cmap.NewStringer[ProviderName, ProviderStatus]()}
}

func (b *BaseListener) OnLocationChanged(Fix) {}

func (b *BaseListener) OnStatusChanged(provider ProviderName, status ProviderStatus) {
	b.states.Set(provider, status)
}

func (b *BaseListener) OnProviderEnabled(provider ProviderName) {
	b.states.Set(provider, StatusAvailable)
}

func (b *BaseListener) OnProviderDisabled(provider ProviderName) {
	b.states.Set(provider, StatusOutOfService)
}

// ProviderStatus returns the last status observed for provider.
func (b *BaseListener) ProviderStatus(provider ProviderName) (ProviderStatus, bool) {
	return b.states.Get(provider)
}

// CallbackTransport turns backend Listener events into Callback invocations.
// After Cleanup it drops every event.
type CallbackTransport struct {
	BaseListener

	callback        Callback
	fastestInterval atomic.Int64
	inert           atomic.Bool
}

// NewCallbackTransport wraps callback in a Listener.
func NewCallbackTransport(callback Callback) *CallbackTransport {
	return &CallbackTransport{
		BaseListener: NewBaseListener(),
		callback:     callback,
	}
}

// SetFastestInterval records the fastest interval hint. Safe to call while active.
func (t *CallbackTransport) SetFastestInterval(interval time.Duration) {
	t.fastestInterval.Store(int64(interval))
}

// FastestInterval returns the configured fastest interval hint.
func (t *CallbackTransport) FastestInterval() time.Duration {
	return time.Duration(t.fastestInterval.Load())
}

// Cleanup makes the transport inert.
func (t *CallbackTransport) Cleanup() {
	t.inert.Store(true)
}

// Inert reports whether Cleanup has been called.
func (t *CallbackTransport) Inert() bool {
	return t.inert.Load()
}

func (t *CallbackTransport) OnLocationChanged(fix Fix) {
	if t.inert.Load() {
		return
	}
	t.callback.OnSuccess(fix)
}

func (t *CallbackTransport) OnProviderDisabled(provider ProviderName) {
	if t.inert.Load() {
		return
	}
	t.BaseListener.OnProviderDisabled(provider)
	t.callback.OnFailure(ErrProviderDisabled)
}

func (t *CallbackTransport) OnProviderEnabled(provider ProviderName) {
	if t.inert.Load() {
		return
	}
	t.BaseListener.OnProviderEnabled(provider)
}

func (t *CallbackTransport) OnStatusChanged(provider ProviderName, status ProviderStatus) {
	if t.inert.Load() {
		return
	}
	t.BaseListener.OnStatusChanged(provider, status)
}
