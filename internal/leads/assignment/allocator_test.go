package assignment

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/google/uuid"

	"leadflow_backend/internal/leads/repository"
	"leadflow_backend/platform/logger"
)

type stubStore struct {
	candidates []repository.Candidate
	active     repository.Assignment
	activeErr  error

	insertErrs map[uuid.UUID]error
	inserted   []uuid.UUID
	superseded []uuid.UUID
}

func (s *stubStore) ListCandidates(_ context.Context) ([]repository.Candidate, error) {
	return s.candidates, nil
}

func (s *stubStore) InsertAssignment(_ context.Context, leadID, agentID uuid.UUID, reason string) (repository.Assignment, error) {
	s.inserted = append(s.inserted, agentID)
	if err := s.insertErrs[agentID]; err != nil {
		return repository.Assignment{}, err
	}
	return repository.Assignment{ID: uuid.New(), LeadID: leadID, AgentID: agentID, Reason: &reason}, nil
}

func (s *stubStore) SupersedeAndInsert(_ context.Context, leadID, newAgentID uuid.UUID, reason string) (repository.Assignment, repository.Assignment, error) {
	s.superseded = append(s.superseded, newAgentID)
	if err := s.insertErrs[newAgentID]; err != nil {
		return repository.Assignment{}, repository.Assignment{}, err
	}
	return s.active, repository.Assignment{ID: uuid.New(), LeadID: leadID, AgentID: newAgentID, Reason: &reason}, nil
}

func (s *stubStore) GetActiveAssignment(_ context.Context, _ uuid.UUID) (repository.Assignment, error) {
	return s.active, s.activeErr
}

func testLogger() *logger.Logger {
	return &logger.Logger{Logger: slog.New(slog.DiscardHandler)}
}

func candidate(id uuid.UUID, load int) repository.Candidate {
	return repository.Candidate{Agent: repository.Agent{ID: id, IsActive: true}, ActiveLeads: load}
}

func TestAssignPicksLeastLoaded(t *testing.T) {
	light, heavy := uuid.New(), uuid.New()
	store := &stubStore{
		candidates: []repository.Candidate{candidate(heavy, 30), candidate(light, 3)},
		insertErrs: map[uuid.UUID]error{},
	}

	assignment, err := New(store, testLogger()).Assign(context.Background(), repository.Lead{ID: uuid.New()})
	if err != nil {
		t.Fatalf("Assign() unexpected error: %v", err)
	}
	if assignment.AgentID != light {
		t.Errorf("Assign() picked %s, want least-loaded %s", assignment.AgentID, light)
	}
}

func TestAssignPreferenceBreaksLoadTie(t *testing.T) {
	villa := "villa"
	specialist, generalist := uuid.New(), uuid.New()
	store := &stubStore{
		candidates: []repository.Candidate{
			{Agent: repository.Agent{ID: generalist, IsActive: true}, ActiveLeads: 5},
			{Agent: repository.Agent{ID: specialist, IsActive: true, Specialization: &villa}, ActiveLeads: 5},
		},
		insertErrs: map[uuid.UUID]error{},
	}

	lead := repository.Lead{ID: uuid.New(), PropertyType: &villa}
	assignment, err := New(store, testLogger()).Assign(context.Background(), lead)
	if err != nil {
		t.Fatalf("Assign() unexpected error: %v", err)
	}
	if assignment.AgentID != specialist {
		t.Errorf("Assign() picked %s, want specialization match %s", assignment.AgentID, specialist)
	}
}

func TestAssignSkipsCandidateAtCapacity(t *testing.T) {
	full, open := uuid.New(), uuid.New()
	store := &stubStore{
		candidates: []repository.Candidate{candidate(full, 1), candidate(open, 2)},
		insertErrs: map[uuid.UUID]error{full: repository.ErrAgentAtCapacity},
	}

	assignment, err := New(store, testLogger()).Assign(context.Background(), repository.Lead{ID: uuid.New()})
	if err != nil {
		t.Fatalf("Assign() unexpected error: %v", err)
	}
	if assignment.AgentID != open {
		t.Errorf("Assign() picked %s, want fallback %s", assignment.AgentID, open)
	}
	if len(store.inserted) != 2 {
		t.Errorf("insert attempts = %d, want 2", len(store.inserted))
	}
}

func TestAssignDuplicateIsTerminal(t *testing.T) {
	first, second := uuid.New(), uuid.New()
	store := &stubStore{
		candidates: []repository.Candidate{candidate(first, 1), candidate(second, 2)},
		insertErrs: map[uuid.UUID]error{first: repository.ErrDuplicateAssignment},
	}

	_, err := New(store, testLogger()).Assign(context.Background(), repository.Lead{ID: uuid.New()})
	if !errors.Is(err, repository.ErrDuplicateAssignment) {
		t.Fatalf("Assign() error = %v, want ErrDuplicateAssignment", err)
	}
	if len(store.inserted) != 1 {
		t.Errorf("insert attempts = %d, want 1 (no retry after duplicate)", len(store.inserted))
	}
}

func TestAssignNoAgentAvailable(t *testing.T) {
	store := &stubStore{candidates: nil, insertErrs: map[uuid.UUID]error{}}

	_, err := New(store, testLogger()).Assign(context.Background(), repository.Lead{ID: uuid.New()})
	if !errors.Is(err, ErrNoAgentAvailable) {
		t.Fatalf("Assign() error = %v, want ErrNoAgentAvailable", err)
	}
}

func TestReassignSkipsCurrentAssignee(t *testing.T) {
	current, next := uuid.New(), uuid.New()
	store := &stubStore{
		candidates: []repository.Candidate{candidate(current, 1), candidate(next, 2)},
		active:     repository.Assignment{LeadID: uuid.New(), AgentID: current},
		insertErrs: map[uuid.UUID]error{},
	}

	assignment, err := New(store, testLogger()).Reassign(context.Background(), repository.Lead{ID: uuid.New()}, "high potential lead", nil)
	if err != nil {
		t.Fatalf("Reassign() unexpected error: %v", err)
	}
	if assignment.AgentID != next {
		t.Errorf("Reassign() picked %s, want %s (current assignee excluded)", assignment.AgentID, next)
	}
}

func TestReassignManualTarget(t *testing.T) {
	target := uuid.New()
	store := &stubStore{
		active:     repository.Assignment{AgentID: uuid.New()},
		insertErrs: map[uuid.UUID]error{},
	}

	assignment, err := New(store, testLogger()).Reassign(context.Background(), repository.Lead{ID: uuid.New()}, "supervisor request", &target)
	if err != nil {
		t.Fatalf("Reassign() unexpected error: %v", err)
	}
	if assignment.AgentID != target {
		t.Errorf("Reassign() picked %s, want manual target %s", assignment.AgentID, target)
	}
	if len(store.superseded) != 1 {
		t.Errorf("supersede attempts = %d, want 1", len(store.superseded))
	}
}

func TestReassignManualTargetAtCapacity(t *testing.T) {
	target := uuid.New()
	store := &stubStore{
		insertErrs: map[uuid.UUID]error{target: repository.ErrAgentAtCapacity},
	}

	_, err := New(store, testLogger()).Reassign(context.Background(), repository.Lead{ID: uuid.New()}, "supervisor request", &target)
	if !errors.Is(err, repository.ErrAgentAtCapacity) {
		t.Fatalf("Reassign() error = %v, want ErrAgentAtCapacity", err)
	}
}
