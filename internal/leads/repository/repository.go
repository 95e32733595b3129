// Package repository is the durable entity store for the leads bounded
// context. Every invariant that reads then writes (single active assignment,
// workload ceiling, staleness guard, score bounds, status transitions) is
// enforced inside one transaction here, regardless of which caller performs
// the write.
package repository

import (
	"context"
	"errors"
	"time"

	"leadflow_backend/platform/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Sentinel errors returned by the store. Invariant violations are terminal
// for the input; only infrastructure failures are retryable.
var (
	ErrNotFound            = errors.New("lead not found")
	ErrAgentNotFound       = errors.New("agent not found")
	ErrTaskNotFound        = errors.New("follow-up task not found")
	ErrDuplicatePhone      = errors.New("a lead with this phone already exists for this source")
	ErrDuplicateAssignment = errors.New("lead already has an active assignment")
	ErrAgentAtCapacity     = errors.New("agent is at the active-lead workload ceiling")
	ErrAgentInactive       = errors.New("agent is not active")
	ErrNoActiveAssignment  = errors.New("lead has no active assignment")
	ErrTaskOverdue         = errors.New("incomplete task is past the staleness window")
	ErrStatusConflict      = errors.New("lead status changed concurrently")
)

// Config holds the store-level policy knobs.
type Config struct {
	// WorkloadCeiling is the maximum number of concurrently active
	// (non-terminal) leads an agent may hold.
	WorkloadCeiling int
	// TaskStalenessWindow is the maximum age of an incomplete follow-up
	// task's due date before writes touching it are rejected.
	TaskStalenessWindow time.Duration
	// DuplicateWindow is how long a phone/email pair blocks re-capture
	// across sources.
	DuplicateWindow time.Duration
}

// DefaultConfig mirrors the production policy defaults.
func DefaultConfig() Config {
	return Config{
		WorkloadCeiling:     50,
		TaskStalenessWindow: 30 * 24 * time.Hour,
		DuplicateWindow:     24 * time.Hour,
	}
}

type Repository struct {
	pool db.Pool
	cfg  Config
}

func New(pool db.Pool, cfg Config) *Repository {
	if cfg.WorkloadCeiling <= 0 {
		cfg.WorkloadCeiling = 50
	}
	if cfg.TaskStalenessWindow <= 0 {
		cfg.TaskStalenessWindow = 30 * 24 * time.Hour
	}
	if cfg.DuplicateWindow <= 0 {
		cfg.DuplicateWindow = 24 * time.Hour
	}
	return &Repository{pool: pool, cfg: cfg}
}

// WorkloadCeiling exposes the configured ceiling for callers that report it.
func (r *Repository) WorkloadCeiling() int {
	return r.cfg.WorkloadCeiling
}

// isUniqueViolation reports whether err is a violation of the named
// constraint (SQLSTATE 23505).
func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "23505" && pgErr.ConstraintName == constraint
}

type Lead struct {
	ID                 uuid.UUID
	SourceType         string
	FirstName          string
	LastName           string
	Email              *string
	Phone              string
	Nationality        *string
	LanguagePreference *string
	BudgetMin          *int
	BudgetMax          *int
	PropertyType       *string
	PreferredAreas     []string
	Status             string
	Score              int
	DealValue          *float64
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

const leadColumns = `lead_id, source_type, first_name, last_name, email, phone, nationality,
		language_preference, budget_min, budget_max, property_type, preferred_areas,
		status, lead_score, deal_value, created_at, updated_at`

func scanLead(row pgx.Row) (Lead, error) {
	var lead Lead
	err := row.Scan(
		&lead.ID, &lead.SourceType, &lead.FirstName, &lead.LastName, &lead.Email, &lead.Phone,
		&lead.Nationality, &lead.LanguagePreference, &lead.BudgetMin, &lead.BudgetMax,
		&lead.PropertyType, &lead.PreferredAreas, &lead.Status, &lead.Score, &lead.DealValue,
		&lead.CreatedAt, &lead.UpdatedAt,
	)
	return lead, err
}

type CreateLeadParams struct {
	SourceType         string
	FirstName          string
	LastName           string
	Email              *string
	Phone              string
	Nationality        *string
	LanguagePreference *string
	BudgetMin          *int
	BudgetMax          *int
	PropertyType       *string
	PreferredAreas     []string
	Score              int

	// Source details recorded alongside the lead.
	CampaignID          *string
	ReferrerAgentID     *uuid.UUID
	PropertyID          *uuid.UUID
	UTMSource           *string
	UTMMedium           *string
	UTMCampaign         *string
	ResponseTimeMinutes *int
}

// CreateLeadWithSource inserts the lead and its source record in one
// transaction. The composite (phone, source_type) uniqueness and the
// recent-duplicate window are both checked here; a violation of either
// returns ErrDuplicatePhone and nothing is persisted.
func (r *Repository) CreateLeadWithSource(ctx context.Context, params CreateLeadParams) (Lead, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return Lead{}, err
	}
	defer tx.Rollback(ctx)

	// Per-phone advisory lock, released at commit. Serializes concurrent
	// captures of the same phone so the window check below cannot race.
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, params.Phone); err != nil {
		return Lead{}, err
	}

	// Recent duplicate across sources: same phone, or same email when both
	// sides have one, inside the duplicate window.
	var dupe bool
	err = tx.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM leads
			WHERE (phone = $1 OR (email IS NOT NULL AND $2::text IS NOT NULL AND email = $2))
			  AND created_at >= now() - make_interval(secs => $3)
		)
	`, params.Phone, params.Email, r.cfg.DuplicateWindow.Seconds()).Scan(&dupe)
	if err != nil {
		return Lead{}, err
	}
	if dupe {
		return Lead{}, ErrDuplicatePhone
	}

	lead, err := scanLead(tx.QueryRow(ctx, `
		INSERT INTO leads (
			source_type, first_name, last_name, email, phone, nationality,
			language_preference, budget_min, budget_max, property_type, preferred_areas,
			status, lead_score
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, 'new', GREATEST(0, LEAST(100, $12)))
		RETURNING `+leadColumns,
		params.SourceType, params.FirstName, params.LastName, params.Email, params.Phone,
		params.Nationality, params.LanguagePreference, params.BudgetMin, params.BudgetMax,
		params.PropertyType, params.PreferredAreas, params.Score,
	))
	if err != nil {
		if isUniqueViolation(err, "uq_lead_phone_source") {
			return Lead{}, ErrDuplicatePhone
		}
		return Lead{}, err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO lead_sources (
			lead_id, source_type, campaign_id, referrer_agent_id, property_id,
			utm_source, utm_medium, utm_campaign, response_time_minutes
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		lead.ID, params.SourceType, params.CampaignID, params.ReferrerAgentID, params.PropertyID,
		params.UTMSource, params.UTMMedium, params.UTMCampaign, params.ResponseTimeMinutes,
	)
	if err != nil {
		return Lead{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Lead{}, err
	}

	return lead, nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Lead, error) {
	lead, err := scanLead(r.pool.QueryRow(ctx, `
		SELECT `+leadColumns+` FROM leads WHERE lead_id = $1
	`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, ErrNotFound
	}
	return lead, err
}

// UpdateScore persists a freshly computed score. The clamp is applied again
// at the store boundary so no caller can write an out-of-range value.
func (r *Repository) UpdateScore(ctx context.Context, id uuid.UUID, score int) (int, error) {
	var stored int
	err := r.pool.QueryRow(ctx, `
		UPDATE leads
		SET lead_score = GREATEST(0, LEAST(100, $2)), updated_at = now()
		WHERE lead_id = $1
		RETURNING lead_score
	`, id, score).Scan(&stored)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrNotFound
	}
	return stored, err
}

// RecentCapture is a capture-feed entry for the read-only recency view.
type RecentCapture struct {
	LeadID     uuid.UUID
	SourceType string
	Status     string
	Score      int
	CreatedAt  time.Time
}

func (r *Repository) RecentCaptures(ctx context.Context, limit int) ([]RecentCapture, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT lead_id, source_type, status, lead_score, created_at
		FROM leads
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]RecentCapture, 0, limit)
	for rows.Next() {
		var item RecentCapture
		if err := rows.Scan(&item.LeadID, &item.SourceType, &item.Status, &item.Score, &item.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
