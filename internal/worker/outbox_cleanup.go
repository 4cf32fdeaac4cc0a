package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/jwalitptl/orms-api/internal/repository"
	"github.com/jwalitptl/orms-api/pkg/logger"
	"github.com/jwalitptl/orms-api/pkg/metrics"
)

// OutboxCleanupWorker removes processed outbox events once they are older
// than the retention window.
type OutboxCleanupWorker struct {
	repo            repository.OutboxRepository
	retention       time.Duration
	cleanupInterval time.Duration
	logger          *logger.Logger
	metrics         *metrics.Metrics
	now             func() time.Time
}

func NewOutboxCleanupWorker(repo repository.OutboxRepository, retention, cleanupInterval time.Duration, logger *logger.Logger, m *metrics.Metrics) *OutboxCleanupWorker {
	return &OutboxCleanupWorker{
		repo:            repo,
		retention:       retention,
		cleanupInterval: cleanupInterval,
		logger:          logger,
		metrics:         m,
		now:             time.Now,
	}
}

// Disabled reports whether retention or interval is unset.
func (w *OutboxCleanupWorker) Disabled() bool {
	return w.retention <= 0 || w.cleanupInterval <= 0
}

func (w *OutboxCleanupWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := w.Cleanup(ctx); err != nil {
				w.logger.Error(err, "Outbox cleanup failed")
			}
		}
	}
}

// Cleanup runs one purge and returns the number of rows removed.
func (w *OutboxCleanupWorker) Cleanup(ctx context.Context) (int64, error) {
	cutoff := w.now().Add(-w.retention)

	rows, err := w.repo.DeleteProcessedBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to clean up outbox events: %w", err)
	}

	if rows > 0 {
		w.metrics.OutboxEventsPurged.Add(float64(rows))
		w.logger.Info("Purged processed outbox events", "count", rows, "before", cutoff)
	}
	return rows, nil
}
