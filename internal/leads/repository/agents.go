package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type Agent struct {
	ID             uuid.UUID
	FullName       string
	Email          string
	Phone          string
	Specialization *string
	PreferredAreas []string
	Language       *string
	IsActive       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Candidate is an eligible agent with its current active-lead count, as seen
// by the allocator. Eligibility and ordering happen in one query so the
// candidate list is a consistent snapshot; the hard checks are re-verified
// under lock at insert time.
type Candidate struct {
	Agent
	ActiveLeads int
}

func (r *Repository) GetAgent(ctx context.Context, id uuid.UUID) (Agent, error) {
	var a Agent
	err := r.pool.QueryRow(ctx, `
		SELECT agent_id, full_name, email, phone, specialization, preferred_areas,
			language, is_active, created_at, updated_at
		FROM agents WHERE agent_id = $1
	`, id).Scan(
		&a.ID, &a.FullName, &a.Email, &a.Phone, &a.Specialization, &a.PreferredAreas,
		&a.Language, &a.IsActive, &a.CreatedAt, &a.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Agent{}, ErrAgentNotFound
	}
	return a, err
}

// ListCandidates returns all active agents whose active-lead count is under
// the workload ceiling, ordered least-loaded first with the agent id as the
// deterministic tie-break. Preference reordering is the allocator's job.
func (r *Repository) ListCandidates(ctx context.Context) ([]Candidate, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT a.agent_id, a.full_name, a.email, a.phone, a.specialization,
			a.preferred_areas, a.language, a.is_active, a.created_at, a.updated_at,
			COALESCE(w.active_leads, 0) AS active_leads
		FROM agents a
		LEFT JOIN (
			SELECT la.agent_id, COUNT(*) AS active_leads
			FROM lead_assignments la
			JOIN leads l ON l.lead_id = la.lead_id
			WHERE la.reassigned = FALSE
			  AND l.status NOT IN ('converted', 'lost')
			GROUP BY la.agent_id
		) w ON w.agent_id = a.agent_id
		WHERE a.is_active = TRUE
		  AND COALESCE(w.active_leads, 0) < $1
		ORDER BY active_leads ASC, a.agent_id ASC
	`, r.cfg.WorkloadCeiling)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	candidates := make([]Candidate, 0)
	for rows.Next() {
		var c Candidate
		if err := rows.Scan(
			&c.ID, &c.FullName, &c.Email, &c.Phone, &c.Specialization,
			&c.PreferredAreas, &c.Language, &c.IsActive, &c.CreatedAt, &c.UpdatedAt,
			&c.ActiveLeads,
		); err != nil {
			return nil, err
		}
		candidates = append(candidates, c)
	}
	return candidates, rows.Err()
}

// ActiveLeadCount counts the agent's assigned leads that are neither
// reassigned away nor in a terminal status.
func (r *Repository) ActiveLeadCount(ctx context.Context, agentID uuid.UUID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM lead_assignments la
		JOIN leads l ON l.lead_id = la.lead_id
		WHERE la.agent_id = $1
		  AND la.reassigned = FALSE
		  AND l.status NOT IN ('converted', 'lost')
	`, agentID).Scan(&count)
	return count, err
}
