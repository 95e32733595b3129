package tasks

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"

	"leadflow_backend/internal/leads/repository"
	"leadflow_backend/platform/apperr"
	"leadflow_backend/platform/logger"
	"leadflow_backend/platform/validator"
)

type stubStore struct {
	insertErr     error
	getErr        error
	rescheduleErr error
	completeErr   error
	amendErr      error
}

func (s *stubStore) InsertTask(_ context.Context, params repository.CreateTaskParams) (repository.FollowUpTask, error) {
	if s.insertErr != nil {
		return repository.FollowUpTask{}, s.insertErr
	}
	return repository.FollowUpTask{
		ID: uuid.New(), LeadID: params.LeadID, AgentID: params.AgentID,
		TaskType: params.TaskType, Priority: params.Priority, DueDate: params.DueDate,
	}, nil
}

func (s *stubStore) GetTask(_ context.Context, id uuid.UUID) (repository.FollowUpTask, error) {
	if s.getErr != nil {
		return repository.FollowUpTask{}, s.getErr
	}
	return repository.FollowUpTask{ID: id}, nil
}

func (s *stubStore) UpdateTaskNotes(_ context.Context, id uuid.UUID, priority string, notes *string) (repository.FollowUpTask, error) {
	if s.amendErr != nil {
		return repository.FollowUpTask{}, s.amendErr
	}
	return repository.FollowUpTask{ID: id, Priority: priority, Notes: notes}, nil
}

func (s *stubStore) CompleteTask(_ context.Context, id uuid.UUID) (repository.FollowUpTask, error) {
	if s.completeErr != nil {
		return repository.FollowUpTask{}, s.completeErr
	}
	return repository.FollowUpTask{ID: id, Completed: true}, nil
}

func (s *stubStore) RescheduleTask(_ context.Context, id uuid.UUID, dueDate time.Time) (repository.FollowUpTask, error) {
	if s.rescheduleErr != nil {
		return repository.FollowUpTask{}, s.rescheduleErr
	}
	return repository.FollowUpTask{ID: id, DueDate: dueDate}, nil
}

func (s *stubStore) TasksForLead(_ context.Context, _ uuid.UUID) ([]repository.FollowUpTask, error) {
	return nil, nil
}

func newService(store Store) *Service {
	return New(store, validator.New(), &logger.Logger{Logger: slog.New(slog.DiscardHandler)})
}

func validParams() ScheduleParams {
	return ScheduleParams{
		LeadID:   uuid.New(),
		AgentID:  uuid.New(),
		TaskType: "call",
		Priority: "high",
		DueDate:  time.Now().Add(24 * time.Hour),
	}
}

func TestSchedule(t *testing.T) {
	task, err := newService(&stubStore{}).Schedule(context.Background(), validParams())
	if err != nil {
		t.Fatalf("Schedule() unexpected error: %v", err)
	}
	if task.TaskType != "call" || task.Priority != "high" {
		t.Errorf("Schedule() = %+v", task)
	}
}

func TestScheduleRejectsUnknownType(t *testing.T) {
	params := validParams()
	params.TaskType = "fax"

	_, err := newService(&stubStore{}).Schedule(context.Background(), params)
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("Schedule() error = %v, want Validation kind", err)
	}
}

func TestScheduleMapsStaleness(t *testing.T) {
	svc := newService(&stubStore{insertErr: repository.ErrTaskOverdue})

	params := validParams()
	params.DueDate = time.Now().Add(-31 * 24 * time.Hour)

	_, err := svc.Schedule(context.Background(), params)
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("Schedule() error = %v, want Conflict kind", err)
	}
}

func TestRescheduleMapsStaleness(t *testing.T) {
	svc := newService(&stubStore{rescheduleErr: repository.ErrTaskOverdue})

	_, err := svc.Reschedule(context.Background(), uuid.New(), time.Now().Add(-40*24*time.Hour))
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("Reschedule() error = %v, want Conflict kind", err)
	}
}

func TestRescheduleUnknownTask(t *testing.T) {
	svc := newService(&stubStore{rescheduleErr: repository.ErrTaskNotFound})

	_, err := svc.Reschedule(context.Background(), uuid.New(), time.Now().Add(time.Hour))
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("Reschedule() error = %v, want NotFound kind", err)
	}
}

func TestGetUnknownTask(t *testing.T) {
	svc := newService(&stubStore{getErr: repository.ErrTaskNotFound})

	_, err := svc.Get(context.Background(), uuid.New())
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("Get() error = %v, want NotFound kind", err)
	}
}

func TestAmend(t *testing.T) {
	notes := "bring the floor plans"
	task, err := newService(&stubStore{}).Amend(context.Background(), uuid.New(), "low", &notes)
	if err != nil {
		t.Fatalf("Amend() unexpected error: %v", err)
	}
	if task.Priority != "low" || task.Notes == nil || *task.Notes != notes {
		t.Errorf("Amend() = %+v", task)
	}
}

func TestAmendRejectsUnknownPriority(t *testing.T) {
	_, err := newService(&stubStore{}).Amend(context.Background(), uuid.New(), "urgent", nil)
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("Amend() error = %v, want Validation kind", err)
	}
}

func TestAmendMapsStaleness(t *testing.T) {
	svc := newService(&stubStore{amendErr: repository.ErrTaskOverdue})

	_, err := svc.Amend(context.Background(), uuid.New(), "medium", nil)
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("Amend() error = %v, want Conflict kind", err)
	}
}

func TestCompleteAlwaysPermitted(t *testing.T) {
	task, err := newService(&stubStore{}).Complete(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("Complete() unexpected error: %v", err)
	}
	if !task.Completed {
		t.Error("Complete() must mark the task done")
	}
}
