package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"leadflow_backend/platform/apperr"
	"leadflow_backend/platform/logger"
)

const defaultSummaryTTL = 5 * time.Minute

type Service struct {
	repo *Repository
	rdb  redis.UniversalClient
	ttl  time.Duration
	log  *logger.Logger
}

func NewService(repo *Repository, rdb redis.UniversalClient, ttl time.Duration, log *logger.Logger) *Service {
	if ttl <= 0 {
		ttl = defaultSummaryTTL
	}
	return &Service{repo: repo, rdb: rdb, ttl: ttl, log: log}
}

func summaryKey(agentID uuid.UUID, window time.Duration) string {
	return fmt.Sprintf("metrics:summary:%s:%d", agentID, int(window.Seconds()))
}

// AgentSummary returns the agent's rollup for the trailing window, cached
// briefly. Identical inputs with no intervening writes yield identical
// output; the cache only shortens the path to it.
func (s *Service) AgentSummary(ctx context.Context, agentID uuid.UUID, window time.Duration) (Summary, error) {
	if window <= 0 {
		window = 30 * 24 * time.Hour
	}

	key := summaryKey(agentID, window)
	if raw, err := s.rdb.Get(ctx, key).Bytes(); err == nil {
		var cached Summary
		if err := json.Unmarshal(raw, &cached); err == nil {
			return cached, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		s.log.CacheError("metrics_summary_get", err)
	}

	summary, err := s.repo.AgentSummary(ctx, agentID, window)
	if err != nil {
		if errors.Is(err, ErrNoMetrics) {
			return Summary{}, apperr.Wrap(apperr.KindNotFound, "no metrics for agent in window", err)
		}
		return Summary{}, err
	}

	if raw, err := json.Marshal(summary); err == nil {
		if err := s.rdb.Set(ctx, key, raw, s.ttl).Err(); err != nil {
			s.log.CacheError("metrics_summary_set", err)
		}
	}
	return summary, nil
}
