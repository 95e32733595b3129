package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type Assignment struct {
	ID         uuid.UUID
	LeadID     uuid.UUID
	AgentID    uuid.UUID
	Reason     *string
	Reassigned bool
	AssignedAt time.Time
}

const assignmentColumns = `assignment_id, lead_id, agent_id, reason, reassigned, assigned_at`

func scanAssignment(row pgx.Row) (Assignment, error) {
	var a Assignment
	err := row.Scan(&a.ID, &a.LeadID, &a.AgentID, &a.Reason, &a.Reassigned, &a.AssignedAt)
	return a, err
}

// InsertAssignment creates the active assignment for a lead. The workload
// ceiling is re-verified under a row-level lock on the agent, and the single
// active assignment invariant is backed by the partial unique index, so the
// whole check-and-insert is one atomic operation: two concurrent calls for
// the same lead yield exactly one success and one ErrDuplicateAssignment,
// and two calls racing past the ceiling for one agent cannot both commit.
func (r *Repository) InsertAssignment(ctx context.Context, leadID, agentID uuid.UUID, reason string) (Assignment, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return Assignment{}, err
	}
	defer tx.Rollback(ctx)

	assignment, err := r.insertAssignmentTx(ctx, tx, leadID, agentID, reason)
	if err != nil {
		return Assignment{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Assignment{}, err
	}
	return assignment, nil
}

func (r *Repository) insertAssignmentTx(ctx context.Context, tx pgx.Tx, leadID, agentID uuid.UUID, reason string) (Assignment, error) {
	// Lock the agent row so concurrent allocations serialize on the
	// workload count.
	var active bool
	err := tx.QueryRow(ctx, `
		SELECT is_active FROM agents WHERE agent_id = $1 FOR UPDATE
	`, agentID).Scan(&active)
	if errors.Is(err, pgx.ErrNoRows) {
		return Assignment{}, ErrAgentNotFound
	}
	if err != nil {
		return Assignment{}, err
	}
	if !active {
		return Assignment{}, ErrAgentInactive
	}

	var workload int
	err = tx.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM lead_assignments la
		JOIN leads l ON l.lead_id = la.lead_id
		WHERE la.agent_id = $1
		  AND la.reassigned = FALSE
		  AND l.status NOT IN ('converted', 'lost')
	`, agentID).Scan(&workload)
	if err != nil {
		return Assignment{}, err
	}
	if workload >= r.cfg.WorkloadCeiling {
		return Assignment{}, ErrAgentAtCapacity
	}

	assignment, err := scanAssignment(tx.QueryRow(ctx, `
		INSERT INTO lead_assignments (lead_id, agent_id, reason, reassigned)
		VALUES ($1, $2, $3, FALSE)
		RETURNING `+assignmentColumns,
		leadID, agentID, reason,
	))
	if err != nil {
		if isUniqueViolation(err, "uq_active_assignment") {
			return Assignment{}, ErrDuplicateAssignment
		}
		return Assignment{}, err
	}
	return assignment, nil
}

// SupersedeAndInsert flips the lead's active assignment to reassigned=true
// and creates its replacement in the same transaction. Either both happen or
// neither does; the superseded assignment is returned alongside the new one.
func (r *Repository) SupersedeAndInsert(ctx context.Context, leadID, newAgentID uuid.UUID, reason string) (previous Assignment, current Assignment, err error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return Assignment{}, Assignment{}, err
	}
	defer tx.Rollback(ctx)

	previous, err = scanAssignment(tx.QueryRow(ctx, `
		UPDATE lead_assignments
		SET reassigned = TRUE
		WHERE lead_id = $1 AND reassigned = FALSE
		RETURNING `+assignmentColumns,
		leadID,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return Assignment{}, Assignment{}, ErrNoActiveAssignment
	}
	if err != nil {
		return Assignment{}, Assignment{}, err
	}

	current, err = r.insertAssignmentTx(ctx, tx, leadID, newAgentID, reason)
	if err != nil {
		return Assignment{}, Assignment{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Assignment{}, Assignment{}, err
	}
	return previous, current, nil
}

// GetActiveAssignment returns the lead's single non-superseded assignment.
func (r *Repository) GetActiveAssignment(ctx context.Context, leadID uuid.UUID) (Assignment, error) {
	assignment, err := scanAssignment(r.pool.QueryRow(ctx, `
		SELECT `+assignmentColumns+`
		FROM lead_assignments
		WHERE lead_id = $1 AND reassigned = FALSE
	`, leadID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Assignment{}, ErrNoActiveAssignment
	}
	return assignment, err
}
