package location

import (
	"fmt"
	"sync"

	"github.com/benmeehan/location-engine/internal/utils"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Engine is the caller-facing location contract.
type Engine interface {
	// GetLastLocation reports a cached fix, preferring the passive provider.
	GetLastLocation(callback Callback)
	// GetLastLocationFor reports a cached fix, preferring the provider selected for req.
	GetLastLocationFor(req Request, callback Callback)
	// RequestUpdates opens a listener subscription. Events run on exec, or on the
	// engine's default executor when exec is nil.
	RequestUpdates(req Request, callback Callback, exec Executor) (*Subscription, error)
	// RequestPassiveUpdates opens a subscription that delivers fixes straight to target.
	RequestPassiveUpdates(req Request, target PassiveTarget) (*Subscription, error)
	// RemoveUpdates tears a subscription down. Unknown or removed subscriptions are ignored.
	RemoveUpdates(sub *Subscription)
	// Close removes every remaining subscription and stops the default executor.
	Close()
}

// SubscriptionKind tells how a subscription delivers its updates.
type SubscriptionKind int

const (
	KindListener SubscriptionKind = iota
	KindPassive
)

func (k SubscriptionKind) String() string {
	if k == KindPassive {
		return "passive"
	}
	return "listener"
}

// Subscription is the caller-visible handle of a stream.
type Subscription struct {
	id        string
	kind      SubscriptionKind
	request   Request
	provider  ProviderName
	transport *CallbackTransport
}

// ID returns the engine-assigned identifier of the subscription.
func (s *Subscription) ID() string { return s.id }

// Kind reports whether the subscription is a listener or a passive stream.
func (s *Subscription) Kind() SubscriptionKind { return s.kind }

// Request returns the request the subscription was opened with.
func (s *Subscription) Request() Request { return s.request }

// Provider returns the provider resolved when the subscription was opened.
func (s *Subscription) Provider() ProviderName { return s.provider }

// Transport returns the listener transport, or nil for passive subscriptions.
func (s *Subscription) Transport() *CallbackTransport { return s.transport }

// tracked pairs a subscription with its backend handle.
type tracked struct {
	sub    *Subscription
	handle StreamHandle
}

// ProviderEngine implements Engine on top of a single Registry.
type ProviderEngine struct {
	registry Registry
	logger   zerolog.Logger

	executor     Executor
	ownsExecutor *utils.WorkerPool

	mu      sync.Mutex
	handles map[string]tracked
}

// NewProviderEngine creates an engine backed by registry. A nil executor makes the
// engine own a single-worker pool as its default execution context.
func NewProviderEngine(registry Registry, executor Executor, logger zerolog.Logger) *ProviderEngine {
	e := &ProviderEngine{
		registry: registry,
		logger:   logger,
		executor: executor,
		handles:  make(map[string]tracked),
	}
	if executor == nil {
		e.ownsExecutor = utils.NewWorkerPool(1, defaultQueueSize)
		e.executor = e.ownsExecutor
	}
	return e
}

const defaultQueueSize = 64

func (e *ProviderEngine) GetLastLocation(callback Callback) {
	e.deliverLastLocation(PassiveProvider, callback)
}

func (e *ProviderEngine) GetLastLocationFor(req Request, callback Callback) {
	e.deliverLastLocation(SelectProvider(req.Priority, e.registry), callback)
}

func (e *ProviderEngine) deliverLastLocation(current ProviderName, callback Callback) {
	fix, err := ResolveLastLocation(current, e.registry, e.logger)
	if err != nil {
		e.logger.Debug().Err(err).Str("provider", string(current)).Msg("Last location lookup failed")
		callback.OnFailure(err)
		return
	}
	callback.OnSuccess(fix)
}

func (e *ProviderEngine) RequestUpdates(req Request, callback Callback, exec Executor) (*Subscription, error) {
	if exec == nil {
		exec = e.executor
	}

	transport := NewCallbackTransport(callback)
	transport.SetFastestInterval(req.FastestInterval)

	sub := e.newSubscription(req, KindListener)
	sub.transport = transport

	handle, err := e.registry.RegisterStream(StreamRequest{
		Provider:        sub.provider,
		Interval:        req.Interval,
		FastestInterval: req.FastestInterval,
		Displacement:    req.Displacement,
		Listener:        transport,
		Executor:        exec,
	})
	if err != nil {
		transport.Cleanup()
		return nil, fmt.Errorf("register stream on %s: %w", sub.provider, err)
	}

	e.track(sub, handle)
	return sub, nil
}

func (e *ProviderEngine) RequestPassiveUpdates(req Request, target PassiveTarget) (*Subscription, error) {
	sub := e.newSubscription(req, KindPassive)

	handle, err := e.registry.RegisterStream(StreamRequest{
		Provider:        sub.provider,
		Interval:        req.Interval,
		FastestInterval: req.FastestInterval,
		Displacement:    req.Displacement,
		Target:          target,
	})
	if err != nil {
		return nil, fmt.Errorf("register passive stream on %s: %w", sub.provider, err)
	}

	e.track(sub, handle)
	return sub, nil
}

func (e *ProviderEngine) RemoveUpdates(sub *Subscription) {
	if sub == nil {
		return
	}

	e.mu.Lock()
	t, ok := e.handles[sub.id]
	delete(e.handles, sub.id)
	e.mu.Unlock()
	if !ok {
		return
	}
	e.teardown(t)
}

// teardown makes a listener transport inert before its stream is deregistered.
func (e *ProviderEngine) teardown(t tracked) {
	// Passive targets have no transport; the target owner handles late deliveries.
	if t.sub.kind == KindListener {
		t.sub.transport.Cleanup()
	}

	if err := e.registry.DeregisterStream(t.handle); err != nil {
		e.logger.Warn().Err(err).Str("subscription", t.sub.id).Msg("Failed to deregister stream")
		return
	}
	e.logger.Debug().Str("subscription", t.sub.id).Str("kind", t.sub.kind.String()).Msg("Location updates removed")
}

func (e *ProviderEngine) Close() {
	e.mu.Lock()
	handles := e.handles
	e.handles = make(map[string]tracked)
	e.mu.Unlock()

	for _, t := range handles {
		e.teardown(t)
	}
	if e.ownsExecutor != nil {
		e.ownsExecutor.Shutdown()
	}
}

// Registry returns the backend the engine was bound to.
func (e *ProviderEngine) Registry() Registry {
	return e.registry
}

// ActiveSubscriptions returns the number of registered subscriptions.
func (e *ProviderEngine) ActiveSubscriptions() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.handles)
}

// newSubscription resolves the provider afresh on every call.
func (e *ProviderEngine) newSubscription(req Request, kind SubscriptionKind) *Subscription {
	return &Subscription{
		id:       uuid.New().String(),
		kind:     kind,
		request:  req,
		provider: SelectProvider(req.Priority, e.registry),
	}
}

func (e *ProviderEngine) track(sub *Subscription, handle StreamHandle) {
	e.mu.Lock()
	e.handles[sub.id] = tracked{sub: sub, handle: handle}
	e.mu.Unlock()

	e.logger.Info().
		Str("subscription", sub.id).
		Str("kind", sub.kind.String()).
		Str("provider", string(sub.provider)).
		Str("priority", sub.request.Priority.String()).
		Dur("interval", sub.request.Interval).
		Msg("Location updates requested")
}
