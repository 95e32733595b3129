package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type Activity struct {
	ID           uuid.UUID
	LeadID       uuid.UUID
	AgentID      *uuid.UUID
	ActivityType string
	Outcome      *string
	Notes        *string
	NextFollowUp *time.Time
	CreatedAt    time.Time
}

const activityColumns = `activity_id, lead_id, agent_id, activity_type, outcome, notes, next_follow_up, created_at`

type CreateActivityParams struct {
	LeadID       uuid.UUID
	AgentID      *uuid.UUID
	ActivityType string
	Outcome      *string
	Notes        *string
	NextFollowUp *time.Time
}

func (r *Repository) InsertActivity(ctx context.Context, params CreateActivityParams) (Activity, error) {
	var a Activity
	err := r.pool.QueryRow(ctx, `
		INSERT INTO lead_activities (lead_id, agent_id, activity_type, outcome, notes, next_follow_up)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+activityColumns,
		params.LeadID, params.AgentID, params.ActivityType, params.Outcome,
		params.Notes, params.NextFollowUp,
	).Scan(
		&a.ID, &a.LeadID, &a.AgentID, &a.ActivityType, &a.Outcome,
		&a.Notes, &a.NextFollowUp, &a.CreatedAt,
	)
	return a, err
}

// LatestActivity returns the lead's most recent activity, used as the
// re-scoring input.
func (r *Repository) LatestActivity(ctx context.Context, leadID uuid.UUID) (Activity, error) {
	var a Activity
	err := r.pool.QueryRow(ctx, `
		SELECT `+activityColumns+`
		FROM lead_activities
		WHERE lead_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`, leadID).Scan(
		&a.ID, &a.LeadID, &a.AgentID, &a.ActivityType, &a.Outcome,
		&a.Notes, &a.NextFollowUp, &a.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Activity{}, ErrNotFound
	}
	return a, err
}

// ActivitiesForLead returns the full activity trail, newest first.
func (r *Repository) ActivitiesForLead(ctx context.Context, leadID uuid.UUID) ([]Activity, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+activityColumns+`
		FROM lead_activities
		WHERE lead_id = $1
		ORDER BY created_at DESC
	`, leadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	activities := make([]Activity, 0)
	for rows.Next() {
		var a Activity
		if err := rows.Scan(
			&a.ID, &a.LeadID, &a.AgentID, &a.ActivityType, &a.Outcome,
			&a.Notes, &a.NextFollowUp, &a.CreatedAt,
		); err != nil {
			return nil, err
		}
		activities = append(activities, a)
	}
	return activities, rows.Err()
}
