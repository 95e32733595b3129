package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ScoringRule is a stored rule row. Criteria is the raw JSONB document; the
// scoring engine parses it and decides whether the row is usable.
type ScoringRule struct {
	ID         uuid.UUID
	Name       string
	Criteria   []byte
	ScoreDelta int
	IsActive   bool
	CreatedAt  time.Time
}

// ListActiveRules returns all active scoring rules in a stable order so two
// evaluations over the same catalog see the same sequence.
func (r *Repository) ListActiveRules(ctx context.Context) ([]ScoringRule, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT rule_id, rule_name, criteria, score_delta, is_active, created_at
		FROM lead_scoring_rules
		WHERE is_active = TRUE
		ORDER BY created_at ASC, rule_id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rules := make([]ScoringRule, 0)
	for rows.Next() {
		var rule ScoringRule
		if err := rows.Scan(&rule.ID, &rule.Name, &rule.Criteria, &rule.ScoreDelta, &rule.IsActive, &rule.CreatedAt); err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}
