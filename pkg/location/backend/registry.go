package backend

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benmeehan/location-engine/pkg/location"
	cmap "github.com/orcaman/concurrent-map/v2"
	"github.com/rs/zerolog"
)

const (
	defaultPollInterval = time.Second
	defaultPollTimeout  = 10 * time.Second
)

var errInvalidStream = errors.New("stream request needs exactly one of listener or target")

// Source produces fixes for one provider.
type Source interface {
	Name() location.ProviderName
	Accuracy() location.Accuracy
	Power() location.Power
	GetLocation(ctx context.Context) (location.Fix, error)
}

// Registry implements location.Registry over a fixed, ordered set of sources
// plus the passive provider.
type Registry struct {
	sources     []Source
	byName      map[location.ProviderName]Source
	pollTimeout time.Duration
	logger      zerolog.Logger

	enabled   cmap.ConcurrentMap[location.ProviderName, bool]
	lastFixes cmap.ConcurrentMap[location.ProviderName, location.Fix]

	mu         sync.Mutex
	streams    map[location.StreamHandle]*stream
	nextHandle atomic.Uint64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type stream struct {
	handle location.StreamHandle
	req    location.StreamRequest
	cancel context.CancelFunc

	mu            sync.Mutex
	lastDelivered *location.Fix
	deliveredAt   time.Time
}

// NewRegistry builds a registry from sources. Every provider starts enabled.
// A non-positive pollTimeout selects the default.
func NewRegistry(sources []Source, pollTimeout time.Duration, logger zerolog.Logger) *Registry {
	if pollTimeout <= 0 {
		pollTimeout = defaultPollTimeout
	}
	r := &Registry{
		byName:      make(map[location.ProviderName]Source, len(sources)),
		pollTimeout: pollTimeout,
		logger:      logger,
		enabled:     cmap.NewStringer[location.ProviderName, bool](),
		lastFixes:   cmap.NewStringer[location.ProviderName, location.Fix](),
		streams:     make(map[location.StreamHandle]*stream),
	}
	r.ctx, r.cancel = context.WithCancel(context.Background())

	for _, src := range sources {
		if src.Name() == location.PassiveProvider {
			logger.Warn().Msg("Ignoring source registered under the passive provider name")
			continue
		}
		if _, exists := r.byName[src.Name()]; exists {
			logger.Warn().Str("provider", src.Name().String()).Msg("Source is already registered")
			continue
		}
		r.sources = append(r.sources, src)
		r.byName[src.Name()] = src
		r.enabled.Set(src.Name(), true)
	}
	r.enabled.Set(location.PassiveProvider, true)
	return r
}

// Available reports whether at least one active source is registered.
func (r *Registry) Available() bool {
	return len(r.sources) > 0
}

// ListProviders returns the sources in registration order followed by the passive provider.
func (r *Registry) ListProviders() []location.ProviderName {
	names := make([]location.ProviderName, 0, len(r.sources)+1)
	for _, src := range r.sources {
		names = append(names, src.Name())
	}
	return append(names, location.PassiveProvider)
}

// BestProvider picks the enabled source satisfying criteria with the lowest power,
// then the finest accuracy. With no match, power is relaxed first and accuracy second.
func (r *Registry) BestProvider(criteria location.Criteria) (location.ProviderName, bool) {
	attempts := []location.Criteria{
		criteria,
		{Accuracy: criteria.Accuracy, Power: location.PowerHigh},
		{Accuracy: location.AccuracyCoarse, Power: criteria.Power},
		{Accuracy: location.AccuracyCoarse, Power: location.PowerHigh},
	}
	for _, c := range attempts {
		if src := r.match(c); src != nil {
			return src.Name(), true
		}
	}
	return "", false
}

func (r *Registry) match(criteria location.Criteria) Source {
	var best Source
	for _, src := range r.sources {
		if !r.isEnabled(src.Name()) {
			continue
		}
		if src.Accuracy() > criteria.Accuracy || src.Power() > criteria.Power {
			continue
		}
		if best == nil || src.Power() < best.Power() ||
			(src.Power() == best.Power() && src.Accuracy() < best.Accuracy()) {
			best = src
		}
	}
	return best
}

// LastKnownFix returns the cached fix of provider. Disabled providers report none.
func (r *Registry) LastKnownFix(provider location.ProviderName) (location.Fix, bool, error) {
	if !r.known(provider) {
		return location.Fix{}, false, fmt.Errorf("%w: %q", location.ErrInvalidProvider, provider)
	}
	if !r.isEnabled(provider) {
		return location.Fix{}, false, nil
	}
	fix, ok := r.lastFixes.Get(provider)
	return fix, ok, nil
}

// SetEnabled toggles a provider and notifies the listeners streaming from it.
func (r *Registry) SetEnabled(provider location.ProviderName, enabled bool) error {
	if !r.known(provider) {
		return fmt.Errorf("%w: %q", location.ErrInvalidProvider, provider)
	}
	if previous, _ := r.enabled.Get(provider); previous == enabled {
		return nil
	}
	r.enabled.Set(provider, enabled)

	r.logger.Info().Str("provider", provider.String()).Bool("enabled", enabled).Msg("Provider state changed")
	r.notify(provider, func(l location.Listener) {
		if enabled {
			l.OnProviderEnabled(provider)
		} else {
			l.OnProviderDisabled(provider)
		}
	})
	return nil
}

// SetStatus reports a status change of provider to its listeners.
func (r *Registry) SetStatus(provider location.ProviderName, status location.ProviderStatus) error {
	if !r.known(provider) {
		return fmt.Errorf("%w: %q", location.ErrInvalidProvider, provider)
	}
	r.notify(provider, func(l location.Listener) { l.OnStatusChanged(provider, status) })
	return nil
}

// Publish records a fix obtained outside the registry's own polling. It becomes
// the provider's last known fix and is offered to passive streams.
func (r *Registry) Publish(fix location.Fix) error {
	if !r.known(fix.Provider) {
		return fmt.Errorf("%w: %q", location.ErrInvalidProvider, fix.Provider)
	}
	r.record(fix)
	return nil
}

// RegisterStream starts a stream. Streams on the passive provider never poll.
func (r *Registry) RegisterStream(req location.StreamRequest) (location.StreamHandle, error) {
	if (req.Listener == nil) == (req.Target == nil) {
		return 0, errInvalidStream
	}
	if !r.known(req.Provider) {
		return 0, fmt.Errorf("%w: %q", location.ErrInvalidProvider, req.Provider)
	}

	ctx, cancel := context.WithCancel(r.ctx)
	s := &stream{
		handle: location.StreamHandle(r.nextHandle.Add(1)),
		req:    req,
		cancel: cancel,
	}

	r.mu.Lock()
	r.streams[s.handle] = s
	r.mu.Unlock()

	if src, ok := r.byName[req.Provider]; ok {
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			r.poll(ctx, s, src)
		}()
	}

	r.logger.Debug().
		Uint64("handle", uint64(s.handle)).
		Str("provider", req.Provider.String()).
		Dur("interval", req.Interval).
		Float64("displacement", req.Displacement).
		Msg("Stream registered")
	return s.handle, nil
}

// DeregisterStream stops a stream. Unknown handles are ignored.
func (r *Registry) DeregisterStream(handle location.StreamHandle) error {
	r.mu.Lock()
	s, ok := r.streams[handle]
	delete(r.streams, handle)
	r.mu.Unlock()

	if ok {
		s.cancel()
		r.logger.Debug().Uint64("handle", uint64(handle)).Msg("Stream deregistered")
	}
	return nil
}

// Close stops every stream and closes sources that hold resources.
func (r *Registry) Close() error {
	r.cancel()
	r.wg.Wait()

	r.mu.Lock()
	r.streams = make(map[location.StreamHandle]*stream)
	r.mu.Unlock()

	var errs []error
	for _, src := range r.sources {
		if c, ok := src.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, fmt.Errorf("failed to close %s: %w", src.Name(), err))
			}
		}
	}
	return errors.Join(errs...)
}

func (r *Registry) poll(ctx context.Context, s *stream, src Source) {
	interval := s.req.Interval
	if interval <= 0 {
		interval = defaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if !r.isEnabled(src.Name()) {
				continue
			}
			fix, err := r.fetch(ctx, src)
			if err != nil {
				if ctx.Err() == nil {
					r.logger.Warn().Err(err).Str("provider", src.Name().String()).Msg("Failed to get location from source")
				}
				continue
			}
			if ctx.Err() != nil {
				return
			}
			r.record(fix)
			r.deliver(s, fix)
		case <-ctx.Done():
			return
		}
	}
}

func (r *Registry) fetch(ctx context.Context, src Source) (location.Fix, error) {
	ctx, cancel := context.WithTimeout(ctx, r.pollTimeout)
	defer cancel()

	fix, err := src.GetLocation(ctx)
	if err != nil {
		return location.Fix{}, err
	}
	fix.Provider = src.Name()
	return fix, nil
}

// record caches fix for its provider and for the passive provider, then offers
// it to passive streams.
func (r *Registry) record(fix location.Fix) {
	r.lastFixes.Set(fix.Provider, fix)
	r.lastFixes.Set(location.PassiveProvider, fix)

	if !r.isEnabled(location.PassiveProvider) {
		return
	}
	for _, s := range r.streamsOn(location.PassiveProvider) {
		r.deliver(s, fix)
	}
}

// deliver applies the displacement and fastest interval filters before dispatching.
func (r *Registry) deliver(s *stream, fix location.Fix) {
	s.mu.Lock()
	if s.lastDelivered != nil {
		if s.req.Displacement > 0 && distanceMeters(*s.lastDelivered, fix) < s.req.Displacement {
			s.mu.Unlock()
			return
		}
		if s.req.FastestInterval > 0 && time.Since(s.deliveredAt) < s.req.FastestInterval {
			s.mu.Unlock()
			return
		}
	}
	s.lastDelivered = &fix
	s.deliveredAt = time.Now()
	s.mu.Unlock()

	if s.req.Target != nil {
		s.req.Target.Deliver(fix)
		return
	}
	dispatch(s.req, func() { s.req.Listener.OnLocationChanged(fix) })
}

func (r *Registry) notify(provider location.ProviderName, event func(location.Listener)) {
	for _, s := range r.streamsOn(provider) {
		if s.req.Listener == nil {
			continue
		}
		listener := s.req.Listener
		dispatch(s.req, func() { event(listener) })
	}
}

func dispatch(req location.StreamRequest, task func()) {
	if req.Executor == nil {
		task()
		return
	}
	req.Executor.Submit(task)
}

func (r *Registry) streamsOn(provider location.ProviderName) []*stream {
	r.mu.Lock()
	defer r.mu.Unlock()

	var matched []*stream
	for _, s := range r.streams {
		if s.req.Provider == provider {
			matched = append(matched, s)
		}
	}
	return matched
}

func (r *Registry) known(provider location.ProviderName) bool {
	if provider == location.PassiveProvider {
		return true
	}
	_, ok := r.byName[provider]
	return ok
}

func (r *Registry) isEnabled(provider location.ProviderName) bool {
	enabled, _ := r.enabled.Get(provider)
	return enabled
}
