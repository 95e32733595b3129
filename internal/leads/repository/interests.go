package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type PropertyInterest struct {
	ID            uuid.UUID
	LeadID        uuid.UUID
	PropertyID    uuid.UUID
	InterestLevel string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// UpsertInterest records or refreshes a lead's interest in a property. One
// row per (lead, property); a repeat upsert overwrites the level.
func (r *Repository) UpsertInterest(ctx context.Context, leadID, propertyID uuid.UUID, level string) (PropertyInterest, error) {
	var pi PropertyInterest
	err := r.pool.QueryRow(ctx, `
		INSERT INTO lead_property_interests (lead_id, property_id, interest_level)
		VALUES ($1, $2, $3)
		ON CONFLICT (lead_id, property_id)
		DO UPDATE SET interest_level = EXCLUDED.interest_level, updated_at = now()
		RETURNING interest_id, lead_id, property_id, interest_level, created_at, updated_at
	`, leadID, propertyID, level).Scan(
		&pi.ID, &pi.LeadID, &pi.PropertyID, &pi.InterestLevel, &pi.CreatedAt, &pi.UpdatedAt,
	)
	return pi, err
}

func (r *Repository) InterestsForLead(ctx context.Context, leadID uuid.UUID) ([]PropertyInterest, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT interest_id, lead_id, property_id, interest_level, created_at, updated_at
		FROM lead_property_interests
		WHERE lead_id = $1
		ORDER BY updated_at DESC
	`, leadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	interests := make([]PropertyInterest, 0)
	for rows.Next() {
		var pi PropertyInterest
		if err := rows.Scan(&pi.ID, &pi.LeadID, &pi.PropertyID, &pi.InterestLevel, &pi.CreatedAt, &pi.UpdatedAt); err != nil {
			return nil, err
		}
		interests = append(interests, pi)
	}
	return interests, rows.Err()
}

// SuggestProperties returns up to limit property ids that other leads with
// the same property type marked high interest in, most recently refreshed
// first. Deterministic: ties break on property id.
func (r *Repository) SuggestProperties(ctx context.Context, leadID uuid.UUID, propertyType string, limit int) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT pi.property_id
		FROM lead_property_interests pi
		JOIN leads l ON l.lead_id = pi.lead_id
		WHERE pi.lead_id <> $1
		  AND l.property_type = $2
		  AND pi.interest_level = 'high'
		GROUP BY pi.property_id
		ORDER BY MAX(pi.updated_at) DESC, pi.property_id ASC
		LIMIT $3
	`, leadID, propertyType, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]uuid.UUID, 0, limit)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
