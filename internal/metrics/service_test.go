package metrics

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leadflow_backend/platform/apperr"
	"leadflow_backend/platform/logger"
)

func testLogger() *logger.Logger {
	return &logger.Logger{Logger: slog.New(slog.DiscardHandler)}
}

func summaryColumns() []string {
	return []string{"total", "active", "overdue", "conversions", "avg_score", "avg_deal", "activity"}
}

func TestAgentSummary(t *testing.T) {
	pool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer pool.Close()

	agentID := uuid.New()
	avgScore := 62.5
	avgDeal := 1800000.0

	pool.ExpectQuery("WITH assigned").
		WithArgs(agentID, pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows(summaryColumns()).
			AddRow(20, 14, 2, 5, &avgScore, &avgDeal, 31))
	pool.ExpectQuery("first_response").
		WithArgs(pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"agent_id", "avg_hours", "rank"}).
			AddRow(uuid.New(), 1.5, 1).
			AddRow(agentID, 3.25, 2))

	summary, err := NewRepository(pool).AgentSummary(context.Background(), agentID, 30*24*time.Hour)
	require.NoError(t, err)

	assert.Equal(t, 14, summary.ActiveLeads)
	assert.Equal(t, 2, summary.OverdueFollowUps)
	assert.Equal(t, 5, summary.Conversions)
	assert.InDelta(t, 0.25, summary.ConversionRate, 1e-9)
	require.NotNil(t, summary.AvgResponseHours)
	assert.InDelta(t, 3.25, *summary.AvgResponseHours, 1e-9)
	require.NotNil(t, summary.ResponseTimeRank)
	assert.Equal(t, 2, *summary.ResponseTimeRank)
	assert.NoError(t, pool.ExpectationsWereMet())
}

func TestAgentSummaryNoMetrics(t *testing.T) {
	pool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer pool.Close()

	pool.ExpectQuery("WITH assigned").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows(summaryColumns()).
			AddRow(0, 0, 0, 0, nil, nil, 0))

	_, err = NewRepository(pool).AgentSummary(context.Background(), uuid.New(), 30*24*time.Hour)
	assert.ErrorIs(t, err, ErrNoMetrics)
	assert.NoError(t, pool.ExpectationsWereMet())
}

func TestServiceCachesSummary(t *testing.T) {
	pool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer pool.Close()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	agentID := uuid.New()

	// The store is hit exactly once; the second read is served from cache.
	pool.ExpectQuery("WITH assigned").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows(summaryColumns()).
			AddRow(10, 8, 1, 2, nil, nil, 12))
	pool.ExpectQuery("first_response").
		WithArgs(pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"agent_id", "avg_hours", "rank"}))

	svc := NewService(NewRepository(pool), rdb, 5*time.Minute, testLogger())

	first, err := svc.AgentSummary(context.Background(), agentID, 30*24*time.Hour)
	require.NoError(t, err)

	second, err := svc.AgentSummary(context.Background(), agentID, 30*24*time.Hour)
	require.NoError(t, err)

	assert.Equal(t, first.ActiveLeads, second.ActiveLeads)
	assert.Equal(t, first.Conversions, second.Conversions)
	assert.NoError(t, pool.ExpectationsWereMet())
}

func TestServiceMapsNoMetrics(t *testing.T) {
	pool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer pool.Close()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	pool.ExpectQuery("WITH assigned").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows(summaryColumns()).
			AddRow(0, 0, 0, 0, nil, nil, 0))

	svc := NewService(NewRepository(pool), rdb, 5*time.Minute, testLogger())

	_, err = svc.AgentSummary(context.Background(), uuid.New(), 30*24*time.Hour)
	assert.True(t, apperr.Is(err, apperr.KindNotFound), "error = %v", err)
	assert.NoError(t, pool.ExpectationsWereMet())
}

func TestSnapshotDailyIdempotent(t *testing.T) {
	pool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer pool.Close()

	agentID := uuid.New()

	for i := 0; i < 2; i++ {
		pool.ExpectQuery("SELECT agent_id FROM agents").
			WillReturnRows(pgxmock.NewRows([]string{"agent_id"}).AddRow(agentID))
		pool.ExpectQuery("WITH assigned").
			WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnRows(pgxmock.NewRows(summaryColumns()).
				AddRow(10, 8, 1, 2, nil, nil, 12))
		pool.ExpectQuery("first_response").
			WithArgs(pgxmock.AnyArg()).
			WillReturnRows(pgxmock.NewRows([]string{"agent_id", "avg_hours", "rank"}))
		pool.ExpectExec("INSERT INTO agent_performance_metrics").
			WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
				pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
	}

	snap := NewSnapshotter(NewRepository(pool), testLogger())
	date := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)

	require.NoError(t, snap.SnapshotDaily(context.Background(), date))
	require.NoError(t, snap.SnapshotDaily(context.Background(), date))
	assert.NoError(t, pool.ExpectationsWereMet())
}

func TestSnapshotSkipsAgentsWithoutMetrics(t *testing.T) {
	pool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer pool.Close()

	pool.ExpectQuery("SELECT agent_id FROM agents").
		WillReturnRows(pgxmock.NewRows([]string{"agent_id"}).AddRow(uuid.New()))
	pool.ExpectQuery("WITH assigned").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows(summaryColumns()).
			AddRow(0, 0, 0, 0, nil, nil, 0))

	snap := NewSnapshotter(NewRepository(pool), testLogger())
	require.NoError(t, snap.SnapshotDaily(context.Background(), time.Now()))
	assert.NoError(t, pool.ExpectationsWereMet())
}
