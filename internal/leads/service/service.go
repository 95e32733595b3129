// Package service orchestrates the lead lifecycle: capture, scoring,
// assignment, status transitions, activities, and the recency feed. It owns
// no invariants itself; shape checks happen here and every read-then-write
// invariant is enforced transactionally by the store.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"leadflow_backend/internal/events"
	"leadflow_backend/internal/leads/assignment"
	"leadflow_backend/internal/leads/domain"
	"leadflow_backend/internal/leads/repository"
	"leadflow_backend/internal/leads/scoring"
	"leadflow_backend/internal/leads/tasks"
	"leadflow_backend/internal/leads/transport"
	"leadflow_backend/platform/apperr"
	"leadflow_backend/platform/logger"
	"leadflow_backend/platform/phone"
	"leadflow_backend/platform/validator"
)

const (
	initialFollowUpDelay = 24 * time.Hour
	suggestedLimit       = 3
	reassignScoreFloor   = 90
	defaultRecentLimit   = 10
	maxRecentLimit       = 50
)

// Store is the slice of the repository the lead service needs.
type Store interface {
	CreateLeadWithSource(ctx context.Context, params repository.CreateLeadParams) (repository.Lead, error)
	GetByID(ctx context.Context, id uuid.UUID) (repository.Lead, error)
	UpdateScore(ctx context.Context, id uuid.UUID, score int) (int, error)
	RecentCaptures(ctx context.Context, limit int) ([]repository.RecentCapture, error)
	RecentStatusChanges(ctx context.Context, limit int) ([]repository.HistoryEntry, error)
	TransitionStatus(ctx context.Context, params repository.TransitionParams) (repository.HistoryEntry, error)
	InsertActivity(ctx context.Context, params repository.CreateActivityParams) (repository.Activity, error)
	LatestActivity(ctx context.Context, leadID uuid.UUID) (repository.Activity, error)
	ActivitiesForLead(ctx context.Context, leadID uuid.UUID) ([]repository.Activity, error)
	UpsertInterest(ctx context.Context, leadID, propertyID uuid.UUID, level string) (repository.PropertyInterest, error)
	InterestsForLead(ctx context.Context, leadID uuid.UUID) ([]repository.PropertyInterest, error)
	SuggestProperties(ctx context.Context, leadID uuid.UUID, propertyType string, limit int) ([]uuid.UUID, error)
	HistoryForLead(ctx context.Context, leadID uuid.UUID) ([]repository.HistoryEntry, error)
	GetActiveAssignment(ctx context.Context, leadID uuid.UUID) (repository.Assignment, error)
	GetAgent(ctx context.Context, id uuid.UUID) (repository.Agent, error)
	ActiveLeadCount(ctx context.Context, agentID uuid.UUID) (int, error)
}

// Scorer evaluates a snapshot against the active rule catalog.
type Scorer interface {
	Evaluate(ctx context.Context, snap domain.Snapshot, baseline int) (int, error)
}

// Allocator assigns and reassigns leads to agents.
type Allocator interface {
	Assign(ctx context.Context, lead repository.Lead) (repository.Assignment, error)
	Reassign(ctx context.Context, lead repository.Lead, reason string, target *uuid.UUID) (repository.Assignment, error)
}

// TaskScheduler creates and lists follow-up tasks through the staleness
// guard.
type TaskScheduler interface {
	Schedule(ctx context.Context, params tasks.ScheduleParams) (repository.FollowUpTask, error)
	ForLead(ctx context.Context, leadID uuid.UUID) ([]repository.FollowUpTask, error)
}

type Service struct {
	store     Store
	scorer    Scorer
	allocator Allocator
	tasks     TaskScheduler
	cache     *Cache
	bus       events.Bus
	validate  *validator.Validator
	log       *logger.Logger
}

func New(store Store, scorer Scorer, allocator Allocator, taskSvc TaskScheduler, cache *Cache, bus events.Bus, validate *validator.Validator, log *logger.Logger) *Service {
	return &Service{
		store:     store,
		scorer:    scorer,
		allocator: allocator,
		tasks:     taskSvc,
		cache:     cache,
		bus:       bus,
		validate:  validate,
		log:       log,
	}
}

// CaptureLead validates and persists a new lead, scores it, assigns an
// agent, and schedules the initial follow-up. When every agent is at the
// ceiling the lead and its score still commit: the partial response is
// returned together with a resource-exhaustion error so the caller can
// retry assignment later.
func (s *Service) CaptureLead(ctx context.Context, req transport.CaptureLeadRequest) (transport.CaptureLeadResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return transport.CaptureLeadResponse{}, apperr.Wrap(apperr.KindValidation, "invalid capture request", err)
	}
	if req.BudgetMin != nil && req.BudgetMax != nil && *req.BudgetMin > *req.BudgetMax {
		return transport.CaptureLeadResponse{}, apperr.Validation("budgetMin exceeds budgetMax")
	}

	normalized := phone.NormalizeE164(req.Phone)

	if s.cache.SeenRecently(ctx, normalized, req.Email) {
		return transport.CaptureLeadResponse{}, apperr.Conflict("a lead with this phone or email was captured recently")
	}

	params := repository.CreateLeadParams{
		SourceType:          req.SourceType,
		FirstName:           req.FirstName,
		LastName:            req.LastName,
		Email:               req.Email,
		Phone:               normalized,
		Nationality:         req.Nationality,
		LanguagePreference:  req.LanguagePreference,
		BudgetMin:           req.BudgetMin,
		BudgetMax:           req.BudgetMax,
		PropertyType:        req.PropertyType,
		PreferredAreas:      req.PreferredAreas,
		CampaignID:          req.CampaignID,
		ReferrerAgentID:     req.ReferrerAgentID,
		PropertyID:          req.PropertyID,
		UTMSource:           req.UTMSource,
		UTMMedium:           req.UTMMedium,
		UTMCampaign:         req.UTMCampaign,
		ResponseTimeMinutes: req.ResponseTimeMin,
	}

	score, err := s.scorer.Evaluate(ctx, scoring.CaptureSnapshot(params), 0)
	if err != nil {
		return transport.CaptureLeadResponse{}, err
	}
	params.Score = score

	lead, err := s.store.CreateLeadWithSource(ctx, params)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicatePhone) {
			return transport.CaptureLeadResponse{}, apperr.Wrap(apperr.KindConflict, "a lead with this phone already exists for this source", err)
		}
		return transport.CaptureLeadResponse{}, err
	}
	s.cache.MarkSeen(ctx, normalized, req.Email)

	resp := transport.CaptureLeadResponse{Lead: toLeadResponse(lead, req.SourceType)}

	assigned, assignErr := s.allocator.Assign(ctx, lead)
	if assignErr == nil {
		ar := toAssignmentResponse(assigned)
		resp.Assignment = &ar
		resp.InitialTask = s.scheduleInitialFollowUp(ctx, lead, assigned.AgentID)
	} else if !errors.Is(assignErr, assignment.ErrNoAgentAvailable) {
		return resp, assignErr
	}

	resp.SuggestedProperties = s.suggestProperties(ctx, lead)

	s.bus.Publish(ctx, events.LeadCaptured{
		BaseEvent:       events.NewBaseEvent(),
		LeadID:          lead.ID,
		SourceType:      lead.SourceType,
		Score:           lead.Score,
		AssignedAgentID: assignedAgentID(resp.Assignment),
		Phone:           lead.Phone,
	})
	s.log.Info("lead captured", "lead_id", lead.ID, "source", lead.SourceType, "score", lead.Score)

	if assignErr != nil {
		s.log.InvariantViolation("workload_ceiling", lead.ID.String(), assignErr)
		return resp, apperr.Wrap(apperr.KindResourceExhausted, "no agent available; lead captured unassigned", assignErr)
	}
	return resp, nil
}

// UpdateLead applies the present facets of the request: an optional status
// transition, an optional activity, and optional property interests. Only a
// new activity re-scores the lead; a status-only change carries the stored
// score forward unchanged.
func (s *Service) UpdateLead(ctx context.Context, leadID uuid.UUID, req transport.UpdateLeadRequest) (transport.UpdateLeadResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return transport.UpdateLeadResponse{}, apperr.Wrap(apperr.KindValidation, "invalid update request", err)
	}

	lead, err := s.store.GetByID(ctx, leadID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return transport.UpdateLeadResponse{}, apperr.NotFound("lead not found")
		}
		return transport.UpdateLeadResponse{}, err
	}

	var resp transport.UpdateLeadResponse

	if req.Status != nil {
		entry, err := s.transition(ctx, lead, req)
		if err != nil {
			return transport.UpdateLeadResponse{}, err
		}
		sc := toStatusChangeResponse(entry)
		resp.StatusChange = &sc
		lead.Status = entry.NewStatus
	}

	rescored := false
	if req.Activity != nil {
		if err := s.logActivity(ctx, &lead, *req.Activity); err != nil {
			return transport.UpdateLeadResponse{}, err
		}
		rescored = true
	}

	for _, interest := range req.Interests {
		if _, err := s.store.UpsertInterest(ctx, lead.ID, interest.PropertyID, interest.InterestLevel); err != nil {
			return transport.UpdateLeadResponse{}, err
		}
	}

	if rescored && lead.Score > reassignScoreFloor && !domain.IsTerminal(domain.Status(lead.Status)) {
		if reassigned := s.reassignHighPotential(ctx, lead); reassigned != nil {
			resp.Reassignment = reassigned
		}
	}

	fresh, err := s.store.GetByID(ctx, lead.ID)
	if err != nil {
		return transport.UpdateLeadResponse{}, err
	}
	resp.Lead = toLeadResponse(fresh, fresh.SourceType)
	resp.Score = fresh.Score
	return resp, nil
}

// GetLead returns the detail view: the lead, its current assignee with
// workload, and the activity, interest, history, and follow-up trails.
func (s *Service) GetLead(ctx context.Context, leadID uuid.UUID) (transport.LeadDetailResponse, error) {
	lead, err := s.store.GetByID(ctx, leadID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return transport.LeadDetailResponse{}, apperr.NotFound("lead not found")
		}
		return transport.LeadDetailResponse{}, err
	}

	resp := transport.LeadDetailResponse{Lead: toLeadResponse(lead, lead.SourceType)}

	active, err := s.store.GetActiveAssignment(ctx, leadID)
	switch {
	case err == nil:
		agent, err := s.store.GetAgent(ctx, active.AgentID)
		if err != nil {
			return transport.LeadDetailResponse{}, err
		}
		load, err := s.store.ActiveLeadCount(ctx, active.AgentID)
		if err != nil {
			return transport.LeadDetailResponse{}, err
		}
		ar := toAssignmentResponse(active)
		resp.Assignment = &ar
		resp.AssignedAgent = &transport.AssignedAgentResponse{
			ID:          agent.ID,
			FullName:    agent.FullName,
			Email:       agent.Email,
			Phone:       agent.Phone,
			ActiveLeads: load,
		}
	case !errors.Is(err, repository.ErrNoActiveAssignment):
		return transport.LeadDetailResponse{}, err
	}

	activities, err := s.store.ActivitiesForLead(ctx, leadID)
	if err != nil {
		return transport.LeadDetailResponse{}, err
	}
	interests, err := s.store.InterestsForLead(ctx, leadID)
	if err != nil {
		return transport.LeadDetailResponse{}, err
	}
	history, err := s.store.HistoryForLead(ctx, leadID)
	if err != nil {
		return transport.LeadDetailResponse{}, err
	}
	followUps, err := s.tasks.ForLead(ctx, leadID)
	if err != nil {
		return transport.LeadDetailResponse{}, err
	}

	resp.Activities = make([]transport.LeadActivityResponse, 0, len(activities))
	for _, a := range activities {
		resp.Activities = append(resp.Activities, toActivityResponse(a))
	}
	resp.Interests = make([]transport.PropertyInterestResponse, 0, len(interests))
	for _, pi := range interests {
		resp.Interests = append(resp.Interests, transport.PropertyInterestResponse{
			PropertyID:    pi.PropertyID,
			InterestLevel: pi.InterestLevel,
			UpdatedAt:     pi.UpdatedAt,
		})
	}
	resp.History = make([]transport.StatusChangeResponse, 0, len(history))
	for _, h := range history {
		resp.History = append(resp.History, toStatusChangeResponse(h))
	}
	resp.Tasks = make([]transport.FollowUpTaskResponse, 0, len(followUps))
	for _, task := range followUps {
		resp.Tasks = append(resp.Tasks, toTaskResponse(task))
	}
	return resp, nil
}

// GetRecent returns the latest captures and status changes, read-only.
func (s *Service) GetRecent(ctx context.Context, limit int) (transport.RecentActivityResponse, error) {
	if limit < 1 {
		limit = defaultRecentLimit
	}
	if limit > maxRecentLimit {
		limit = maxRecentLimit
	}

	captures, err := s.store.RecentCaptures(ctx, limit)
	if err != nil {
		return transport.RecentActivityResponse{}, err
	}
	changes, err := s.store.RecentStatusChanges(ctx, limit)
	if err != nil {
		return transport.RecentActivityResponse{}, err
	}

	resp := transport.RecentActivityResponse{
		Captures:      make([]transport.RecentCaptureResponse, 0, len(captures)),
		StatusChanges: make([]transport.StatusChangeResponse, 0, len(changes)),
	}
	for _, c := range captures {
		resp.Captures = append(resp.Captures, transport.RecentCaptureResponse{
			LeadID:     c.LeadID,
			SourceType: c.SourceType,
			Status:     c.Status,
			Score:      c.Score,
			CreatedAt:  c.CreatedAt,
		})
	}
	for _, h := range changes {
		resp.StatusChanges = append(resp.StatusChanges, toStatusChangeResponse(h))
	}
	return resp, nil
}

// transition validates the funnel edge and commits it with the history
// append. The store re-checks the expected previous status at write time.
func (s *Service) transition(ctx context.Context, lead repository.Lead, req transport.UpdateLeadRequest) (repository.HistoryEntry, error) {
	current := domain.Status(lead.Status)
	next := domain.Status(*req.Status)

	if !domain.CanTransition(current, next) {
		return repository.HistoryEntry{}, apperr.Newf(apperr.KindConflict,
			"illegal status transition for lead %s: %s -> %s", lead.ID, current, next)
	}
	if next == domain.StatusConverted && req.DealValue == nil {
		return repository.HistoryEntry{}, apperr.Validation("a deal value is required to convert a lead")
	}

	entry, err := s.store.TransitionStatus(ctx, repository.TransitionParams{
		LeadID:         lead.ID,
		ExpectedStatus: lead.Status,
		NewStatus:      string(next),
		DealValue:      req.DealValue,
		ChangedBy:      req.ChangedBy,
		Notes:          req.Notes,
	})
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrStatusConflict):
			s.log.InvariantViolation("status_transition", lead.ID.String(), err)
			return repository.HistoryEntry{}, apperr.Wrap(apperr.KindConflict,
				fmt.Sprintf("lead %s changed status concurrently", lead.ID), err)
		case errors.Is(err, repository.ErrNotFound):
			return repository.HistoryEntry{}, apperr.NotFound("lead not found")
		default:
			return repository.HistoryEntry{}, err
		}
	}

	s.bus.Publish(ctx, events.LeadStatusChanged{
		BaseEvent:      events.NewBaseEvent(),
		LeadID:         lead.ID,
		PreviousStatus: entry.PreviousStatus,
		NewStatus:      entry.NewStatus,
		ChangedBy:      req.ChangedBy,
	})
	s.log.Info("lead status changed", "lead_id", lead.ID, "from", entry.PreviousStatus, "to", entry.NewStatus)
	return entry, nil
}

// logActivity inserts the activity, schedules its follow-up when one is
// requested, and re-scores the lead from the activity snapshot.
func (s *Service) logActivity(ctx context.Context, lead *repository.Lead, req transport.ActivityRequest) error {
	var lastActivityAt *time.Time
	if prev, err := s.store.LatestActivity(ctx, lead.ID); err == nil {
		lastActivityAt = &prev.CreatedAt
	} else if !errors.Is(err, repository.ErrNotFound) {
		return err
	}

	activity, err := s.store.InsertActivity(ctx, repository.CreateActivityParams{
		LeadID:       lead.ID,
		AgentID:      req.AgentID,
		ActivityType: req.ActivityType,
		Outcome:      req.Outcome,
		Notes:        req.Notes,
		NextFollowUp: req.NextFollowUp,
	})
	if err != nil {
		return err
	}

	if activity.NextFollowUp != nil {
		s.scheduleNextFollowUp(ctx, *lead, activity)
	}

	return s.applyScore(ctx, lead, scoring.ActivitySnapshot(activity, lastActivityAt, time.Now()), "activity")
}

func (s *Service) applyScore(ctx context.Context, lead *repository.Lead, snap domain.Snapshot, trigger string) error {
	score, err := s.scorer.Evaluate(ctx, snap, lead.Score)
	if err != nil {
		return err
	}
	if score == lead.Score {
		return nil
	}

	stored, err := s.store.UpdateScore(ctx, lead.ID, score)
	if err != nil {
		return err
	}

	s.bus.Publish(ctx, events.LeadScoreChanged{
		BaseEvent:     events.NewBaseEvent(),
		LeadID:        lead.ID,
		PreviousScore: lead.Score,
		NewScore:      stored,
		Trigger:       trigger,
	})
	lead.Score = stored
	return nil
}

// reassignHighPotential moves a lead scoring above the floor to the best
// available agent. Best effort: a failure is logged and the update proceeds.
func (s *Service) reassignHighPotential(ctx context.Context, lead repository.Lead) *transport.AssignmentResponse {
	previous, err := s.store.GetActiveAssignment(ctx, lead.ID)
	if err != nil {
		if !errors.Is(err, repository.ErrNoActiveAssignment) {
			s.log.DatabaseError("get_active_assignment", err)
		}
		return nil
	}

	reassigned, err := s.allocator.Reassign(ctx, lead, "high potential lead", nil)
	if err != nil {
		s.log.Warn("high potential reassignment skipped", "lead_id", lead.ID, "error", err)
		return nil
	}

	s.bus.Publish(ctx, events.LeadReassigned{
		BaseEvent:       events.NewBaseEvent(),
		LeadID:          lead.ID,
		PreviousAgentID: previous.AgentID,
		NewAgentID:      reassigned.AgentID,
		Reason:          "high potential lead",
	})
	s.log.Info("lead reassigned", "lead_id", lead.ID, "agent_id", reassigned.AgentID, "reason", "high potential lead")

	ar := toAssignmentResponse(reassigned)
	return &ar
}

// scheduleInitialFollowUp creates the first task for a freshly assigned
// lead. Best effort: the capture already committed.
func (s *Service) scheduleInitialFollowUp(ctx context.Context, lead repository.Lead, agentID uuid.UUID) *transport.FollowUpTaskResponse {
	notes := "Initial follow-up"
	task, err := s.tasks.Schedule(ctx, tasks.ScheduleParams{
		LeadID:   lead.ID,
		AgentID:  agentID,
		TaskType: "call",
		Priority: "high",
		DueDate:  time.Now().Add(initialFollowUpDelay),
		Notes:    &notes,
	})
	if err != nil {
		s.log.DatabaseError("schedule_initial_follow_up", err)
		return nil
	}
	tr := toTaskResponse(task)
	return &tr
}

// scheduleNextFollowUp creates the task requested by an activity, owned by
// the activity's agent or the lead's current assignee.
func (s *Service) scheduleNextFollowUp(ctx context.Context, lead repository.Lead, activity repository.Activity) {
	agentID := activity.AgentID
	if agentID == nil {
		active, err := s.store.GetActiveAssignment(ctx, lead.ID)
		if err != nil {
			s.log.DatabaseError("get_active_assignment", err)
			return
		}
		agentID = &active.AgentID
	}

	taskType := activity.ActivityType
	if taskType == "offer_made" {
		taskType = "meeting"
	}
	if _, err := s.tasks.Schedule(ctx, tasks.ScheduleParams{
		LeadID:   lead.ID,
		AgentID:  *agentID,
		TaskType: taskType,
		Priority: "medium",
		DueDate:  *activity.NextFollowUp,
	}); err != nil {
		s.log.DatabaseError("schedule_next_follow_up", err)
	}
}

func (s *Service) suggestProperties(ctx context.Context, lead repository.Lead) []uuid.UUID {
	if lead.PropertyType == nil {
		return nil
	}
	ids, err := s.store.SuggestProperties(ctx, lead.ID, *lead.PropertyType, suggestedLimit)
	if err != nil {
		s.log.DatabaseError("suggest_properties", err)
		return nil
	}
	return ids
}

func assignedAgentID(a *transport.AssignmentResponse) *uuid.UUID {
	if a == nil {
		return nil
	}
	return &a.AgentID
}

func toLeadResponse(lead repository.Lead, sourceType string) transport.LeadResponse {
	return transport.LeadResponse{
		ID:                 lead.ID,
		FirstName:          lead.FirstName,
		LastName:           lead.LastName,
		Email:              lead.Email,
		Phone:              lead.Phone,
		Nationality:        lead.Nationality,
		LanguagePreference: lead.LanguagePreference,
		BudgetMin:          lead.BudgetMin,
		BudgetMax:          lead.BudgetMax,
		PropertyType:       lead.PropertyType,
		PreferredAreas:     lead.PreferredAreas,
		SourceType:         sourceType,
		Status:             lead.Status,
		Score:              lead.Score,
		DealValue:          lead.DealValue,
		CreatedAt:          lead.CreatedAt,
		UpdatedAt:          lead.UpdatedAt,
	}
}

func toAssignmentResponse(a repository.Assignment) transport.AssignmentResponse {
	return transport.AssignmentResponse{
		ID:         a.ID,
		LeadID:     a.LeadID,
		AgentID:    a.AgentID,
		Reason:     a.Reason,
		AssignedAt: a.AssignedAt,
	}
}

func toTaskResponse(t repository.FollowUpTask) transport.FollowUpTaskResponse {
	return transport.FollowUpTaskResponse{
		ID:        t.ID,
		LeadID:    t.LeadID,
		AgentID:   t.AgentID,
		TaskType:  t.TaskType,
		Priority:  t.Priority,
		DueDate:   t.DueDate,
		Completed: t.Completed,
	}
}

func toActivityResponse(a repository.Activity) transport.LeadActivityResponse {
	return transport.LeadActivityResponse{
		ID:           a.ID,
		AgentID:      a.AgentID,
		ActivityType: a.ActivityType,
		Outcome:      a.Outcome,
		Notes:        a.Notes,
		NextFollowUp: a.NextFollowUp,
		CreatedAt:    a.CreatedAt,
	}
}

func toStatusChangeResponse(h repository.HistoryEntry) transport.StatusChangeResponse {
	return transport.StatusChangeResponse{
		LeadID:         h.LeadID,
		PreviousStatus: h.PreviousStatus,
		NewStatus:      h.NewStatus,
		ChangedAt:      h.ChangedAt,
	}
}
