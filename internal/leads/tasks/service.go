// Package tasks is the follow-up task guard service. It validates the shape
// of incoming schedules and maps store-level staleness rejections onto the
// application error taxonomy. The staleness window itself is enforced inside
// the store's write statements.
package tasks

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"leadflow_backend/internal/leads/repository"
	"leadflow_backend/platform/apperr"
	"leadflow_backend/platform/logger"
	"leadflow_backend/platform/validator"
)

// Store is the slice of the repository the task service needs.
type Store interface {
	InsertTask(ctx context.Context, params repository.CreateTaskParams) (repository.FollowUpTask, error)
	GetTask(ctx context.Context, id uuid.UUID) (repository.FollowUpTask, error)
	CompleteTask(ctx context.Context, id uuid.UUID) (repository.FollowUpTask, error)
	RescheduleTask(ctx context.Context, id uuid.UUID, dueDate time.Time) (repository.FollowUpTask, error)
	UpdateTaskNotes(ctx context.Context, id uuid.UUID, priority string, notes *string) (repository.FollowUpTask, error)
	TasksForLead(ctx context.Context, leadID uuid.UUID) ([]repository.FollowUpTask, error)
}

type ScheduleParams struct {
	LeadID   uuid.UUID `validate:"required"`
	AgentID  uuid.UUID `validate:"required"`
	TaskType string    `validate:"required,oneof=call email whatsapp viewing meeting"`
	Priority string    `validate:"required,oneof=high medium low"`
	DueDate  time.Time `validate:"required"`
	Notes    *string
}

type Service struct {
	store    Store
	validate *validator.Validator
	log      *logger.Logger
}

func New(store Store, validate *validator.Validator, log *logger.Logger) *Service {
	return &Service{store: store, validate: validate, log: log}
}

// Schedule creates a follow-up task. A due date already past the staleness
// window is rejected by the store; the task would be born overdue.
func (s *Service) Schedule(ctx context.Context, params ScheduleParams) (repository.FollowUpTask, error) {
	if err := s.validate.Struct(params); err != nil {
		return repository.FollowUpTask{}, apperr.Wrap(apperr.KindValidation, "invalid follow-up task", err)
	}

	task, err := s.store.InsertTask(ctx, repository.CreateTaskParams{
		LeadID:   params.LeadID,
		AgentID:  params.AgentID,
		TaskType: params.TaskType,
		Priority: params.Priority,
		DueDate:  params.DueDate,
		Notes:    params.Notes,
	})
	if err != nil {
		return repository.FollowUpTask{}, s.mapErr(err, params.LeadID)
	}
	return task, nil
}

// Get returns one task by id.
func (s *Service) Get(ctx context.Context, taskID uuid.UUID) (repository.FollowUpTask, error) {
	task, err := s.store.GetTask(ctx, taskID)
	if err != nil {
		return repository.FollowUpTask{}, s.mapErr(err, taskID)
	}
	return task, nil
}

// Amend edits priority and notes. The store rejects the write when the task
// is incomplete and already past the staleness window.
func (s *Service) Amend(ctx context.Context, taskID uuid.UUID, priority string, notes *string) (repository.FollowUpTask, error) {
	if err := s.validate.Var(priority, "required,oneof=high medium low"); err != nil {
		return repository.FollowUpTask{}, apperr.Wrap(apperr.KindValidation, "invalid task priority", err)
	}

	task, err := s.store.UpdateTaskNotes(ctx, taskID, priority, notes)
	if err != nil {
		return repository.FollowUpTask{}, s.mapErr(err, taskID)
	}
	return task, nil
}

// Complete marks the task done. Always permitted, overdue or not.
func (s *Service) Complete(ctx context.Context, taskID uuid.UUID) (repository.FollowUpTask, error) {
	task, err := s.store.CompleteTask(ctx, taskID)
	if err != nil {
		return repository.FollowUpTask{}, s.mapErr(err, taskID)
	}
	return task, nil
}

// Reschedule moves the due date. The new date must land inside the staleness
// window; rescheduling and completion are the only ways out of a stale task.
func (s *Service) Reschedule(ctx context.Context, taskID uuid.UUID, dueDate time.Time) (repository.FollowUpTask, error) {
	task, err := s.store.RescheduleTask(ctx, taskID, dueDate)
	if err != nil {
		return repository.FollowUpTask{}, s.mapErr(err, taskID)
	}
	return task, nil
}

// ForLead lists the lead's tasks, soonest due first.
func (s *Service) ForLead(ctx context.Context, leadID uuid.UUID) ([]repository.FollowUpTask, error) {
	return s.store.TasksForLead(ctx, leadID)
}

func (s *Service) mapErr(err error, entityID uuid.UUID) error {
	switch {
	case errors.Is(err, repository.ErrTaskNotFound):
		return apperr.NotFound("follow-up task not found")
	case errors.Is(err, repository.ErrTaskOverdue):
		s.log.InvariantViolation("task_staleness_window", entityID.String(), err)
		return apperr.Wrap(apperr.KindConflict, "incomplete task past the staleness window", err)
	default:
		return err
	}
}
