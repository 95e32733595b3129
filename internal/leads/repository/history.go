package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// HistoryEntry is one immutable row of the conversion ledger.
type HistoryEntry struct {
	ID             uuid.UUID
	LeadID         uuid.UUID
	PreviousStatus string
	NewStatus      string
	ChangedBy      *uuid.UUID
	Notes          *string
	ChangedAt      time.Time
}

type TransitionParams struct {
	LeadID         uuid.UUID
	ExpectedStatus string
	NewStatus      string
	DealValue      *float64
	ChangedBy      *uuid.UUID
	Notes          *string
}

// TransitionStatus updates the lead's status and appends the history row in
// one transaction. The UPDATE is guarded by the expected previous status, so
// the edge the caller validated is exactly the edge that commits; a
// concurrent transition surfaces as ErrStatusConflict and nothing is written.
func (r *Repository) TransitionStatus(ctx context.Context, params TransitionParams) (HistoryEntry, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return HistoryEntry{}, err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE leads
		SET status = $3, deal_value = COALESCE($4, deal_value), updated_at = now()
		WHERE lead_id = $1 AND status = $2
	`, params.LeadID, params.ExpectedStatus, params.NewStatus, params.DealValue)
	if err != nil {
		return HistoryEntry{}, err
	}
	if tag.RowsAffected() == 0 {
		// Distinguish a missing lead from a lost optimistic check.
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM leads WHERE lead_id = $1)`, params.LeadID).Scan(&exists); err != nil {
			return HistoryEntry{}, err
		}
		if !exists {
			return HistoryEntry{}, ErrNotFound
		}
		return HistoryEntry{}, ErrStatusConflict
	}

	var entry HistoryEntry
	err = tx.QueryRow(ctx, `
		INSERT INTO lead_conversion_history (lead_id, previous_status, new_status, changed_by, notes)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING history_id, lead_id, previous_status, new_status, changed_by, notes, changed_at
	`, params.LeadID, params.ExpectedStatus, params.NewStatus, params.ChangedBy, params.Notes).Scan(
		&entry.ID, &entry.LeadID, &entry.PreviousStatus, &entry.NewStatus,
		&entry.ChangedBy, &entry.Notes, &entry.ChangedAt,
	)
	if err != nil {
		return HistoryEntry{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return HistoryEntry{}, err
	}
	return entry, nil
}

// RecentStatusChanges returns the latest ledger entries, newest first.
func (r *Repository) RecentStatusChanges(ctx context.Context, limit int) ([]HistoryEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT history_id, lead_id, previous_status, new_status, changed_by, notes, changed_at
		FROM lead_conversion_history
		ORDER BY changed_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]HistoryEntry, 0, limit)
	for rows.Next() {
		var e HistoryEntry
		if err := rows.Scan(&e.ID, &e.LeadID, &e.PreviousStatus, &e.NewStatus, &e.ChangedBy, &e.Notes, &e.ChangedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// HistoryForLead returns the lead's full status lineage, oldest first.
func (r *Repository) HistoryForLead(ctx context.Context, leadID uuid.UUID) ([]HistoryEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT history_id, lead_id, previous_status, new_status, changed_by, notes, changed_at
		FROM lead_conversion_history
		WHERE lead_id = $1
		ORDER BY changed_at ASC
	`, leadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]HistoryEntry, 0)
	for rows.Next() {
		var e HistoryEntry
		if err := rows.Scan(&e.ID, &e.LeadID, &e.PreviousStatus, &e.NewStatus, &e.ChangedBy, &e.Notes, &e.ChangedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
