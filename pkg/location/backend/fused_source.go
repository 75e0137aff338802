package backend

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/benmeehan/location-engine/pkg/location"
)

// FusedProvider is the name of the aggregated provider.
const FusedProvider location.ProviderName = "fused"

// FusedSource queries several sources at once and keeps the most accurate fix.
// It does no filtering of its own; each fix is taken as its source reported it.
type FusedSource struct {
	members []Source
}

// NewFusedSource aggregates members.
func NewFusedSource(members ...Source) *FusedSource {
	return &FusedSource{members: members}
}

func (f *FusedSource) Name() location.ProviderName { return FusedProvider }

// Accuracy is the finest class among the members.
func (f *FusedSource) Accuracy() location.Accuracy {
	accuracy := location.AccuracyCoarse
	for _, m := range f.members {
		if m.Accuracy() < accuracy {
			accuracy = m.Accuracy()
		}
	}
	return accuracy
}

// Power is the highest class among the members.
func (f *FusedSource) Power() location.Power {
	power := location.PowerLow
	for _, m := range f.members {
		if m.Power() > power {
			power = m.Power()
		}
	}
	return power
}

func (f *FusedSource) GetLocation(ctx context.Context) (location.Fix, error) {
	type result struct {
		fix location.Fix
		err error
	}

	results := make([]result, len(f.members))
	var wg sync.WaitGroup
	for i, m := range f.members {
		wg.Add(1)
		go func(i int, m Source) {
			defer wg.Done()
			fix, err := m.GetLocation(ctx)
			if err != nil {
				err = fmt.Errorf("%s: %w", m.Name(), err)
			}
			results[i] = result{fix: fix, err: err}
		}(i, m)
	}
	wg.Wait()

	var (
		best *location.Fix
		errs []error
	)
	for i := range results {
		if results[i].err != nil {
			errs = append(errs, results[i].err)
			continue
		}
		if best == nil || results[i].fix.Accuracy < best.Accuracy {
			best = &results[i].fix
		}
	}
	if best == nil {
		if len(errs) == 0 {
			return location.Fix{}, errors.New("fused source has no members")
		}
		return location.Fix{}, errors.Join(errs...)
	}
	return *best, nil
}
