package backend

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/benmeehan/location-engine/pkg/location"
)

type fakeSource struct {
	name     location.ProviderName
	accuracy location.Accuracy
	power    location.Power

	mu     sync.Mutex
	fix    location.Fix
	err    error
	calls  atomic.Int32
	closed atomic.Bool
}

func newFakeSource(name location.ProviderName, accuracy location.Accuracy, power location.Power) *fakeSource {
	return &fakeSource{name: name, accuracy: accuracy, power: power}
}

func (f *fakeSource) Name() location.ProviderName { return f.name }
func (f *fakeSource) Accuracy() location.Accuracy { return f.accuracy }
func (f *fakeSource) Power() location.Power       { return f.power }

func (f *fakeSource) GetLocation(context.Context) (location.Fix, error) {
	f.calls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fix, f.err
}

func (f *fakeSource) set(fix location.Fix, err error) {
	f.mu.Lock()
	f.fix, f.err = fix, err
	f.mu.Unlock()
}

type closingSource struct {
	*fakeSource
	closeErr error
}

func (c *closingSource) Close() error {
	c.closed.Store(true)
	return c.closeErr
}

var errSourceDown = errors.New("source down")

// recordingListener forwards every event to buffered channels.
type recordingListener struct {
	fixes    chan location.Fix
	disabled chan location.ProviderName
	enabled  chan location.ProviderName
	statuses chan location.ProviderStatus
}

func newRecordingListener() *recordingListener {
	return &recordingListener{
		fixes:    make(chan location.Fix, 16),
		disabled: make(chan location.ProviderName, 4),
		enabled:  make(chan location.ProviderName, 4),
		statuses: make(chan location.ProviderStatus, 4),
	}
}

func (l *recordingListener) OnLocationChanged(fix location.Fix) { l.fixes <- fix }

func (l *recordingListener) OnStatusChanged(_ location.ProviderName, status location.ProviderStatus) {
	l.statuses <- status
}

func (l *recordingListener) OnProviderEnabled(p location.ProviderName)  { l.enabled <- p }
func (l *recordingListener) OnProviderDisabled(p location.ProviderName) { l.disabled <- p }

type recordingTarget struct {
	mu    sync.Mutex
	fixes []location.Fix
}

func (t *recordingTarget) Deliver(fix location.Fix) {
	t.mu.Lock()
	t.fixes = append(t.fixes, fix)
	t.mu.Unlock()
}

func (t *recordingTarget) delivered() []location.Fix {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]location.Fix(nil), t.fixes...)
}
