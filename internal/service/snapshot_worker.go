package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/studynexus/nexus/internal/graph"
	"github.com/studynexus/nexus/internal/metrics"
	"github.com/studynexus/nexus/internal/models"
)

// SnapshotStore persists the whole node collection.
type SnapshotStore interface {
	Load(ctx context.Context) ([]models.Node, error)
	Save(ctx context.Context, nodes []models.Node) error
}

// DefaultSnapshotDebounce is the quiet period before a snapshot is written.
const DefaultSnapshotDebounce = 2 * time.Second

const (
	maxSaveRetries = 3
	baseRetryDelay = 500 * time.Millisecond
)

// SnapshotWorker writes the collection to a SnapshotStore after it has
// stopped changing for the debounce period. It receives changes as a
// graph.EventPublisher.
type SnapshotWorker struct {
	store    SnapshotStore
	source   func() []models.Node
	log      *logrus.Logger
	debounce time.Duration
	dirty    chan struct{}
	saveMu   sync.Mutex
	unsaved  atomic.Bool
}

// NewSnapshotWorker creates a worker that saves source() to store.
func NewSnapshotWorker(store SnapshotStore, source func() []models.Node, log *logrus.Logger, debounce time.Duration) *SnapshotWorker {
	if debounce <= 0 {
		debounce = DefaultSnapshotDebounce
	}

	return &SnapshotWorker{
		store:    store,
		source:   source,
		log:      log,
		debounce: debounce,
		dirty:    make(chan struct{}, 1),
	}
}

// Publish marks the collection dirty. Loading a snapshot does not.
func (w *SnapshotWorker) Publish(eventType string, _ any) {
	if eventType == graph.EventGraphLoaded {
		return
	}

	w.MarkDirty()
}

// MarkDirty schedules a save after the debounce period.
func (w *SnapshotWorker) MarkDirty() {
	w.unsaved.Store(true)

	select {
	case w.dirty <- struct{}{}:
	default:
	}
}

// Pending reports whether changes have been made since the last successful save.
func (w *SnapshotWorker) Pending() bool {
	return w.unsaved.Load()
}

// Run saves after each quiet period until ctx is cancelled. Call in a
// goroutine; the final save on shutdown is the caller's job.
func (w *SnapshotWorker) Run(ctx context.Context) {
	w.log.WithField("debounce", w.debounce).Info("starting snapshot worker")

	timer := time.NewTimer(w.debounce)
	timer.Stop()

	pending := false

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			w.log.Info("snapshot worker stopped")

			return
		case <-w.dirty:
			timer.Reset(w.debounce)
			pending = true
		case <-timer.C:
			if pending {
				pending = false
				w.saveWithRetry(ctx)
			}
		}
	}
}

// Save writes the current collection immediately.
func (w *SnapshotWorker) Save(ctx context.Context) error {
	w.saveMu.Lock()
	defer w.saveMu.Unlock()

	w.unsaved.Store(false)
	nodes := w.source()

	if err := w.store.Save(ctx, nodes); err != nil {
		w.unsaved.Store(true)
		metrics.SnapshotSaves.WithLabelValues("error").Inc()

		return err
	}

	metrics.SnapshotSaves.WithLabelValues("ok").Inc()
	w.log.WithField("nodes", len(nodes)).Debug("snapshot saved")

	return nil
}

func (w *SnapshotWorker) saveWithRetry(ctx context.Context) {
	for attempt := range maxSaveRetries {
		if ctx.Err() != nil {
			return
		}

		err := w.Save(ctx)
		if err == nil {
			return
		}

		w.log.WithError(err).WithField("attempt", attempt+1).Warn("snapshot save failed")

		if attempt < maxSaveRetries-1 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(baseRetryDelay * (1 << attempt)):
			}
		}
	}

	w.log.Error("snapshot save failed after all retries")
}
