package pending

import (
	"context"
	"log/slog"
	"time"

	"github.com/spf13/viper"
)

type service interface {
	RepublishPending(ctx context.Context, from, to time.Time, limit int) (int, error)
}

// Worker re-enqueues orders that stayed NEW after their notification should
// have been handled, e.g. when the API died between commit and publish.
type Worker struct {
	service      service
	pollInterval time.Duration
	grace        time.Duration
	maxAge       time.Duration
	batchSize    int
	now          func() time.Time
	stopCh       chan struct{}
}

// NewWorker creates a new pending order worker.
func NewWorker(service service) *Worker {
	pollIntervalSeconds := viper.GetInt("notifier.pending.poll_interval_seconds")
	if pollIntervalSeconds == 0 {
		pollIntervalSeconds = 60
	}

	graceMinutes := viper.GetInt("notifier.pending.grace_minutes")
	if graceMinutes == 0 {
		graceMinutes = 10
	}

	maxAgeHours := viper.GetInt("notifier.pending.max_age_hours")
	if maxAgeHours == 0 {
		maxAgeHours = 24
	}

	batchSize := viper.GetInt("notifier.pending.batch_size")
	if batchSize == 0 {
		batchSize = 100
	}

	return &Worker{
		service:      service,
		pollInterval: time.Duration(pollIntervalSeconds) * time.Second,
		grace:        time.Duration(graceMinutes) * time.Minute,
		maxAge:       time.Duration(maxAgeHours) * time.Hour,
		batchSize:    batchSize,
		now:          time.Now,
		stopCh:       make(chan struct{}),
	}
}

// Start polls until ctx is done or Stop is called.
func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	slog.Info("Pending order worker started",
		"poll_interval", w.pollInterval,
		"grace", w.grace,
		"batch_size", w.batchSize)

	for {
		select {
		case <-ctx.Done():
			slog.Info("Pending order worker shutting down")

			return
		case <-w.stopCh:
			slog.Info("Pending order worker stopped")

			return
		case <-ticker.C:
			w.republish(ctx)
		}
	}
}

// Stop stops the worker.
func (w *Worker) Stop() {
	close(w.stopCh)
}

func (w *Worker) republish(ctx context.Context) {
	now := w.now().UTC()

	n, err := w.service.RepublishPending(ctx, now.Add(-w.maxAge), now.Add(-w.grace), w.batchSize)
	if err != nil {
		slog.Error("Failed to republish pending orders", "republished", n, "error", err)

		return
	}
	if n > 0 {
		slog.Warn("Republished pending orders", "count", n)
	}
}
