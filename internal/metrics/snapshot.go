package metrics

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"leadflow_backend/platform/logger"
)

const (
	snapshotWindow      = 30 * 24 * time.Hour
	snapshotConcurrency = 8
)

// Snapshotter computes and persists the daily per-agent rollup rows.
type Snapshotter struct {
	repo *Repository
	log  *logger.Logger
}

func NewSnapshotter(repo *Repository, log *logger.Logger) *Snapshotter {
	return &Snapshotter{repo: repo, log: log}
}

// SnapshotDaily upserts one agent_performance_metrics row per active agent
// for the given date. Idempotent per (agent, date): re-running overwrites
// the rows with freshly computed values. Agents without qualifying activity
// are skipped, not failed.
func (s *Snapshotter) SnapshotDaily(ctx context.Context, date time.Time) error {
	day := date.UTC().Truncate(24 * time.Hour)

	agentIDs, err := s.repo.ActiveAgentIDs(ctx)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(snapshotConcurrency)

	for _, agentID := range agentIDs {
		g.Go(func() error {
			summary, err := s.repo.AgentSummary(ctx, agentID, snapshotWindow)
			if errors.Is(err, ErrNoMetrics) {
				return nil
			}
			if err != nil {
				return err
			}
			return s.repo.UpsertSnapshot(ctx, day, summary)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	s.log.Info("daily metrics snapshot completed", "date", day.Format("2006-01-02"), "agents", len(agentIDs))
	return nil
}
