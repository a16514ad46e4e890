package service

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/studynexus/nexus/internal/models"
)

// ReviewLogger appends to the review history.
type ReviewLogger interface {
	RecordReview(ctx context.Context, rec models.ReviewRecord) error
}

// ReviewWorker buffers review records and writes them from a single goroutine.
type ReviewWorker struct {
	logger ReviewLogger
	log    *logrus.Logger
	jobs   chan models.ReviewRecord
}

// NewReviewWorker creates a ReviewWorker with the given queue capacity.
func NewReviewWorker(logger ReviewLogger, log *logrus.Logger, queueSize int) *ReviewWorker {
	if queueSize <= 0 {
		queueSize = 1000
	}

	return &ReviewWorker{
		logger: logger,
		log:    log,
		jobs:   make(chan models.ReviewRecord, queueSize),
	}
}

// Enqueue adds a record. Non-blocking; drops the record if the queue is full.
func (w *ReviewWorker) Enqueue(rec models.ReviewRecord) {
	select {
	case w.jobs <- rec:
	default:
		w.log.WithField("node_id", rec.NodeID).Warn("review log queue full, dropping record")
	}
}

// Run writes records until ctx is cancelled, then drains the queue.
func (w *ReviewWorker) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			w.drain()
			return
		case rec := <-w.jobs:
			w.process(rec)
		}
	}
}

func (w *ReviewWorker) drain() {
	for {
		select {
		case rec := <-w.jobs:
			w.process(rec)
		default:
			return
		}
	}
}

func (w *ReviewWorker) process(rec models.ReviewRecord) {
	if err := w.logger.RecordReview(context.Background(), rec); err != nil {
		w.log.WithError(err).WithField("node_id", rec.NodeID).Warn("review record failed")
	}
}
