package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type FollowUpTask struct {
	ID          uuid.UUID
	LeadID      uuid.UUID
	AgentID     uuid.UUID
	TaskType    string
	Priority    string
	DueDate     time.Time
	Completed   bool
	CompletedAt *time.Time
	Notes       *string
	CreatedAt   time.Time
}

const taskColumns = `task_id, lead_id, agent_id, task_type, priority, due_date, completed, completed_at, notes, created_at`

func scanTask(row pgx.Row) (FollowUpTask, error) {
	var t FollowUpTask
	err := row.Scan(
		&t.ID, &t.LeadID, &t.AgentID, &t.TaskType, &t.Priority, &t.DueDate,
		&t.Completed, &t.CompletedAt, &t.Notes, &t.CreatedAt,
	)
	return t, err
}

type CreateTaskParams struct {
	LeadID   uuid.UUID
	AgentID  uuid.UUID
	TaskType string
	Priority string
	DueDate  time.Time
	Notes    *string
}

// InsertTask creates an incomplete follow-up task. The staleness window is
// checked inside the INSERT itself, so a due date already older than the
// window can never land as an incomplete row.
func (r *Repository) InsertTask(ctx context.Context, params CreateTaskParams) (FollowUpTask, error) {
	task, err := scanTask(r.pool.QueryRow(ctx, `
		INSERT INTO follow_up_tasks (lead_id, agent_id, task_type, priority, due_date, notes)
		SELECT $1, $2, $3, $4, $5, $6
		WHERE $5::timestamptz >= now() - make_interval(secs => $7)
		RETURNING `+taskColumns,
		params.LeadID, params.AgentID, params.TaskType, params.Priority,
		params.DueDate, params.Notes, r.cfg.TaskStalenessWindow.Seconds(),
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return FollowUpTask{}, ErrTaskOverdue
	}
	return task, err
}

func (r *Repository) GetTask(ctx context.Context, id uuid.UUID) (FollowUpTask, error) {
	task, err := scanTask(r.pool.QueryRow(ctx, `
		SELECT `+taskColumns+` FROM follow_up_tasks WHERE task_id = $1
	`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return FollowUpTask{}, ErrTaskNotFound
	}
	return task, err
}

// CompleteTask marks the task done. Completion is always permitted, overdue
// or not; it is one of the two ways out of a stale task.
func (r *Repository) CompleteTask(ctx context.Context, id uuid.UUID) (FollowUpTask, error) {
	task, err := scanTask(r.pool.QueryRow(ctx, `
		UPDATE follow_up_tasks
		SET completed = TRUE, completed_at = now()
		WHERE task_id = $1
		RETURNING `+taskColumns,
		id,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return FollowUpTask{}, ErrTaskNotFound
	}
	return task, err
}

// RescheduleTask moves the due date forward. The new date is checked against
// the staleness window inside the UPDATE; rescheduling to a date still inside
// the window is the other way out of a stale task.
func (r *Repository) RescheduleTask(ctx context.Context, id uuid.UUID, dueDate time.Time) (FollowUpTask, error) {
	task, err := scanTask(r.pool.QueryRow(ctx, `
		UPDATE follow_up_tasks
		SET due_date = $2
		WHERE task_id = $1
		  AND $2::timestamptz >= now() - make_interval(secs => $3)
		RETURNING `+taskColumns,
		id, dueDate, r.cfg.TaskStalenessWindow.Seconds(),
	))
	if errors.Is(err, pgx.ErrNoRows) {
		var exists bool
		if scanErr := r.pool.QueryRow(ctx, `
			SELECT EXISTS (SELECT 1 FROM follow_up_tasks WHERE task_id = $1)
		`, id).Scan(&exists); scanErr != nil {
			return FollowUpTask{}, scanErr
		}
		if !exists {
			return FollowUpTask{}, ErrTaskNotFound
		}
		return FollowUpTask{}, ErrTaskOverdue
	}
	return task, err
}

// UpdateTaskNotes edits the free-text fields. Writes that would leave an
// incomplete task overdue past the staleness window are rejected by the
// WHERE guard, matching the insert path.
func (r *Repository) UpdateTaskNotes(ctx context.Context, id uuid.UUID, priority string, notes *string) (FollowUpTask, error) {
	task, err := scanTask(r.pool.QueryRow(ctx, `
		UPDATE follow_up_tasks
		SET priority = $2, notes = $3
		WHERE task_id = $1
		  AND NOT (completed = FALSE AND due_date < now() - make_interval(secs => $4))
		RETURNING `+taskColumns,
		id, priority, notes, r.cfg.TaskStalenessWindow.Seconds(),
	))
	if errors.Is(err, pgx.ErrNoRows) {
		var exists bool
		if scanErr := r.pool.QueryRow(ctx, `
			SELECT EXISTS (SELECT 1 FROM follow_up_tasks WHERE task_id = $1)
		`, id).Scan(&exists); scanErr != nil {
			return FollowUpTask{}, scanErr
		}
		if !exists {
			return FollowUpTask{}, ErrTaskNotFound
		}
		return FollowUpTask{}, ErrTaskOverdue
	}
	return task, err
}

// TasksForLead returns the lead's tasks, soonest due first.
func (r *Repository) TasksForLead(ctx context.Context, leadID uuid.UUID) ([]FollowUpTask, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+taskColumns+`
		FROM follow_up_tasks
		WHERE lead_id = $1
		ORDER BY due_date ASC
	`, leadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := make([]FollowUpTask, 0)
	for rows.Next() {
		var t FollowUpTask
		if err := rows.Scan(
			&t.ID, &t.LeadID, &t.AgentID, &t.TaskType, &t.Priority, &t.DueDate,
			&t.Completed, &t.CompletedAt, &t.Notes, &t.CreatedAt,
		); err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}
