package images

import (
	"context"
	"fmt"

	"github.com/angelmondragon/pos-catalog-backend/pkg/logger"
)

type remover interface {
	Remove(ctx context.Context, storedPath string) error
}

// Janitor deletes superseded image files off the request path. Deletion is
// best effort: failures are logged and anything dropped is left for the
// orphan sweep.
type Janitor struct {
	store remover
	queue chan string
	logg  *logger.Logger
}

func NewJanitor(store remover, size int, logg *logger.Logger) (*Janitor, error) {
	if store == nil {
		return nil, fmt.Errorf("image store required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if size <= 0 {
		size = 1
	}
	return &Janitor{store: store, queue: make(chan string, size), logg: logg}, nil
}

// Enqueue schedules storedPath for deletion without blocking. It reports
// false when the queue is full.
func (j *Janitor) Enqueue(storedPath string) bool {
	if storedPath == "" {
		return false
	}
	select {
	case j.queue <- storedPath:
		return true
	default:
		j.logg.Warn(j.logg.WithField(context.Background(), "image", storedPath), "image deletion queue full; leaving file for orphan sweep")
		return false
	}
}

// Run processes the queue until ctx is cancelled, then drains what is
// already queued.
func (j *Janitor) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			j.drain()
			return nil
		case path := <-j.queue:
			j.remove(ctx, path)
		}
	}
}

func (j *Janitor) drain() {
	for {
		select {
		case path := <-j.queue:
			j.remove(context.Background(), path)
		default:
			return
		}
	}
}

func (j *Janitor) remove(ctx context.Context, path string) {
	logCtx := j.logg.WithField(ctx, "image", path)
	if err := j.store.Remove(ctx, path); err != nil {
		j.logg.Error(logCtx, "failed to delete superseded image", err)
		return
	}
	j.logg.Debug(logCtx, "superseded image deleted")
}
