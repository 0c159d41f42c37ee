package pipeline

import (
	"context"
	"errors"

	"github.com/couchcryptid/walk-comfort-service/internal/domain"
)

// FanOut delivers each batch to every loader in order. A failure in one
// loader does not stop the others; all errors are joined.
type FanOut struct {
	loaders []BatchLoader
}

// NewFanOut returns a loader that writes to all of the given loaders.
// Nil loaders are skipped.
func NewFanOut(loaders ...BatchLoader) *FanOut {
	f := &FanOut{}
	for _, l := range loaders {
		if l != nil {
			f.loaders = append(f.loaders, l)
		}
	}
	return f
}

func (f *FanOut) LoadBatch(ctx context.Context, reports []domain.ComfortReport) error {
	var errs []error
	for _, l := range f.loaders {
		if err := l.LoadBatch(ctx, reports); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
