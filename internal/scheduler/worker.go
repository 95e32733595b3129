package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"leadflow_backend/internal/metrics"
	"leadflow_backend/platform/config"
	"leadflow_backend/platform/db"
	"leadflow_backend/platform/logger"
)

type Worker struct {
	server      *asynq.Server
	mux         *asynq.ServeMux
	snapshotter *metrics.Snapshotter
	log         *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, pool db.Pool, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL)
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server:      server,
		mux:         mux,
		snapshotter: metrics.NewSnapshotter(metrics.NewRepository(pool), log),
		log:         log,
	}

	mux.HandleFunc(TaskMetricsSnapshotDaily, w.handleMetricsSnapshot)

	return w, nil
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}

func (w *Worker) handleMetricsSnapshot(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseMetricsSnapshotPayload(task)
	if err != nil {
		return err
	}

	date, err := time.Parse("2006-01-02", payload.Date)
	if err != nil {
		return fmt.Errorf("invalid snapshot date %q: %w", payload.Date, err)
	}

	return w.snapshotter.SnapshotDaily(ctx, date)
}
