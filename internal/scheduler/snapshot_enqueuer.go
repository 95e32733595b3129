package scheduler

import (
	"context"
	"time"

	"leadflow_backend/platform/logger"
)

const defaultSnapshotInterval = 24 * time.Hour

// SnapshotEnqueuer periodically enqueues the daily metrics snapshot task.
// Exactly one task is enqueued per tick; the snapshot itself is idempotent
// per (agent, date), so an occasional double run is harmless.
type SnapshotEnqueuer struct {
	client   *Client
	log      *logger.Logger
	interval time.Duration
}

func NewSnapshotEnqueuer(client *Client, log *logger.Logger, interval time.Duration) *SnapshotEnqueuer {
	if interval <= 0 {
		interval = defaultSnapshotInterval
	}
	return &SnapshotEnqueuer{client: client, log: log, interval: interval}
}

func (e *SnapshotEnqueuer) Run(ctx context.Context) {
	if e == nil || e.client == nil {
		return
	}

	e.enqueue(ctx)

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.enqueue(ctx)
		}
	}
}

func (e *SnapshotEnqueuer) enqueue(ctx context.Context) {
	today := time.Now().UTC()
	if err := e.client.EnqueueMetricsSnapshot(ctx, today); err != nil {
		e.log.Warn("metrics snapshot enqueue failed", "error", err)
		return
	}
	e.log.Info("metrics snapshot enqueued", "date", today.Format("2006-01-02"))
}
