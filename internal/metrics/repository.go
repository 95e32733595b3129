// Package metrics is the read-only performance aggregator. Everything here
// is recomputable from store contents; nothing in this package mutates the
// lead lifecycle tables.
package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"leadflow_backend/platform/db"
)

// ErrNoMetrics is returned when the agent has no qualifying activity inside
// the requested window.
var ErrNoMetrics = errors.New("no metrics for agent in window")

// Summary is the per-agent performance rollup for a window.
type Summary struct {
	AgentID          uuid.UUID  `json:"agentId"`
	WindowDays       int        `json:"windowDays"`
	ActiveLeads      int        `json:"activeLeads"`
	OverdueFollowUps int        `json:"overdueFollowUps"`
	Conversions      int        `json:"conversions"`
	AvgResponseHours *float64   `json:"avgResponseHours,omitempty"`
	AvgScore         *float64   `json:"avgScore,omitempty"`
	ConversionRate   float64    `json:"conversionRate"`
	AvgDealSize      *float64   `json:"avgDealSize,omitempty"`
	ResponseTimeRank *int       `json:"responseTimeRank,omitempty"`
	ComputedAt       time.Time  `json:"computedAt"`
}

type Repository struct {
	pool db.Pool
}

func NewRepository(pool db.Pool) *Repository {
	return &Repository{pool: pool}
}

// AgentSummary computes the rollup for one agent over the trailing window.
// The rank is relative to all agents with in-window response data.
func (r *Repository) AgentSummary(ctx context.Context, agentID uuid.UUID, window time.Duration) (Summary, error) {
	windowSecs := window.Seconds()
	summary := Summary{
		AgentID:    agentID,
		WindowDays: int(window.Hours() / 24),
		ComputedAt: time.Now(),
	}

	var assignedTotal, inWindowActivity int
	err := r.pool.QueryRow(ctx, `
		WITH assigned AS (
			SELECT l.lead_id, l.status, l.lead_score, l.deal_value, l.created_at
			FROM lead_assignments la
			JOIN leads l ON l.lead_id = la.lead_id
			WHERE la.agent_id = $1 AND la.reassigned = FALSE
		)
		SELECT
			(SELECT COUNT(*) FROM assigned),
			(SELECT COUNT(*) FROM assigned WHERE status NOT IN ('converted', 'lost')),
			(SELECT COUNT(*) FROM follow_up_tasks
				WHERE agent_id = $1 AND completed = FALSE AND due_date < now()),
			(SELECT COUNT(*) FROM lead_conversion_history h
				JOIN assigned a ON a.lead_id = h.lead_id
				WHERE h.new_status = 'converted'
				  AND h.changed_at >= now() - make_interval(secs => $2)),
			(SELECT AVG(lead_score)::float8 FROM assigned),
			(SELECT AVG(deal_value)::float8 FROM assigned
				WHERE status = 'converted' AND deal_value IS NOT NULL),
			(SELECT COUNT(*) FROM lead_activities act
				JOIN assigned a ON a.lead_id = act.lead_id
				WHERE act.created_at >= now() - make_interval(secs => $2))
	`, agentID, windowSecs).Scan(
		&assignedTotal,
		&summary.ActiveLeads,
		&summary.OverdueFollowUps,
		&summary.Conversions,
		&summary.AvgScore,
		&summary.AvgDealSize,
		&inWindowActivity,
	)
	if err != nil {
		return Summary{}, err
	}

	if assignedTotal == 0 && inWindowActivity == 0 {
		return Summary{}, ErrNoMetrics
	}
	if assignedTotal > 0 {
		summary.ConversionRate = float64(summary.Conversions) / float64(assignedTotal)
	}

	rows, err := r.pool.Query(ctx, `
		WITH first_response AS (
			SELECT la.agent_id,
				EXTRACT(EPOCH FROM (MIN(act.created_at) - l.created_at)) / 3600 AS hours
			FROM lead_assignments la
			JOIN leads l ON l.lead_id = la.lead_id
			JOIN lead_activities act ON act.lead_id = l.lead_id
			WHERE la.reassigned = FALSE
			  AND act.created_at >= now() - make_interval(secs => $1)
			GROUP BY la.agent_id, l.lead_id, l.created_at
		)
		SELECT agent_id, AVG(hours)::float8 AS avg_hours,
			RANK() OVER (ORDER BY AVG(hours) ASC) AS rank
		FROM first_response
		GROUP BY agent_id
	`, windowSecs)
	if err != nil {
		return Summary{}, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id       uuid.UUID
			avgHours float64
			rank     int
		)
		if err := rows.Scan(&id, &avgHours, &rank); err != nil {
			return Summary{}, err
		}
		if id == agentID {
			summary.AvgResponseHours = &avgHours
			summary.ResponseTimeRank = &rank
		}
	}
	if err := rows.Err(); err != nil {
		return Summary{}, err
	}

	return summary, nil
}

// ActiveAgentIDs lists the agents covered by the daily snapshot.
func (r *Repository) ActiveAgentIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT agent_id FROM agents WHERE is_active = TRUE ORDER BY agent_id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]uuid.UUID, 0)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// UpsertSnapshot writes the daily rollup row. Re-running a snapshot for the
// same (agent, date) overwrites it; the rollup is derived, never hand-edited.
func (r *Repository) UpsertSnapshot(ctx context.Context, date time.Time, s Summary) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO agent_performance_metrics (
			agent_id, date, active_leads, overdue_follow_ups, conversions,
			avg_response_hours, avg_score, conversion_rate, avg_deal_size, response_time_rank
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (agent_id, date) DO UPDATE SET
			active_leads = EXCLUDED.active_leads,
			overdue_follow_ups = EXCLUDED.overdue_follow_ups,
			conversions = EXCLUDED.conversions,
			avg_response_hours = EXCLUDED.avg_response_hours,
			avg_score = EXCLUDED.avg_score,
			conversion_rate = EXCLUDED.conversion_rate,
			avg_deal_size = EXCLUDED.avg_deal_size,
			response_time_rank = EXCLUDED.response_time_rank
	`,
		s.AgentID, date, s.ActiveLeads, s.OverdueFollowUps, s.Conversions,
		s.AvgResponseHours, s.AvgScore, s.ConversionRate, s.AvgDealSize, s.ResponseTimeRank,
	)
	return err
}
