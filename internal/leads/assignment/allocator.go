// Package assignment allocates leads to agents under the workload ceiling.
// Candidate ordering is deterministic; the hard invariants (ceiling, single
// active assignment, agent activity) are enforced by the store inside the
// insert transaction, so the allocator only decides preference and retries.
package assignment

import (
	"context"
	"errors"
	"sort"

	"github.com/google/uuid"

	"leadflow_backend/internal/leads/repository"
	"leadflow_backend/platform/logger"
)

// ErrNoAgentAvailable is returned when every active agent is at the ceiling
// or no active agent exists. Capture still persists the lead; the caller
// surfaces this as a resource-exhaustion condition.
var ErrNoAgentAvailable = errors.New("no agent available under the workload ceiling")

// Store is the slice of the repository the allocator needs.
type Store interface {
	ListCandidates(ctx context.Context) ([]repository.Candidate, error)
	InsertAssignment(ctx context.Context, leadID, agentID uuid.UUID, reason string) (repository.Assignment, error)
	SupersedeAndInsert(ctx context.Context, leadID, newAgentID uuid.UUID, reason string) (repository.Assignment, repository.Assignment, error)
	GetActiveAssignment(ctx context.Context, leadID uuid.UUID) (repository.Assignment, error)
}

type Allocator struct {
	store Store
	log   *logger.Logger
}

func New(store Store, log *logger.Logger) *Allocator {
	return &Allocator{store: store, log: log}
}

// Assign picks the best candidate for the lead and inserts the assignment.
// Candidates are tried in order: least loaded first, then higher preference
// fit, then agent id. A candidate that hits the ceiling between listing and
// insert is skipped; a concurrent assignment of the same lead is terminal.
func (a *Allocator) Assign(ctx context.Context, lead repository.Lead) (repository.Assignment, error) {
	candidates, err := a.store.ListCandidates(ctx)
	if err != nil {
		return repository.Assignment{}, err
	}
	orderCandidates(lead, candidates)

	for _, c := range candidates {
		assignment, err := a.store.InsertAssignment(ctx, lead.ID, c.ID, "auto: least loaded")
		switch {
		case err == nil:
			return assignment, nil
		case errors.Is(err, repository.ErrAgentAtCapacity), errors.Is(err, repository.ErrAgentInactive):
			// Lost the race on this agent; the next candidate may still fit.
			a.log.InvariantViolation("workload_ceiling", c.ID.String(), err)
			continue
		case errors.Is(err, repository.ErrDuplicateAssignment):
			return repository.Assignment{}, err
		default:
			return repository.Assignment{}, err
		}
	}
	return repository.Assignment{}, ErrNoAgentAvailable
}

// Reassign supersedes the lead's active assignment and creates a replacement.
// A nil target picks the best candidate other than the current assignee; a
// manual target is honored but still subject to the activity and capacity
// checks inside the insert.
func (a *Allocator) Reassign(ctx context.Context, lead repository.Lead, reason string, target *uuid.UUID) (repository.Assignment, error) {
	if target != nil {
		_, current, err := a.store.SupersedeAndInsert(ctx, lead.ID, *target, reason)
		return current, err
	}

	active, err := a.store.GetActiveAssignment(ctx, lead.ID)
	if err != nil {
		return repository.Assignment{}, err
	}

	candidates, err := a.store.ListCandidates(ctx)
	if err != nil {
		return repository.Assignment{}, err
	}
	orderCandidates(lead, candidates)

	for _, c := range candidates {
		if c.ID == active.AgentID {
			continue
		}
		_, current, err := a.store.SupersedeAndInsert(ctx, lead.ID, c.ID, reason)
		switch {
		case err == nil:
			return current, nil
		case errors.Is(err, repository.ErrAgentAtCapacity), errors.Is(err, repository.ErrAgentInactive):
			continue
		default:
			return repository.Assignment{}, err
		}
	}
	return repository.Assignment{}, ErrNoAgentAvailable
}

// orderCandidates sorts in place: load ASC, preference fit DESC, agent id
// ASC. The store already returns load ASC / id ASC; the sort is stable on
// the full key so the result is identical regardless of input order.
func orderCandidates(lead repository.Lead, candidates []repository.Candidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.ActiveLeads != b.ActiveLeads {
			return a.ActiveLeads < b.ActiveLeads
		}
		pa, pb := preferenceFit(lead, a.Agent), preferenceFit(lead, b.Agent)
		if pa != pb {
			return pa > pb
		}
		return a.ID.String() < b.ID.String()
	})
}

// preferenceFit scores how well an agent matches the lead's profile.
// Specialization outweighs area overlap, which outweighs language.
func preferenceFit(lead repository.Lead, agent repository.Agent) int {
	fit := 0
	if lead.PropertyType != nil && agent.Specialization != nil && *agent.Specialization == *lead.PropertyType {
		fit += 4
	}
	if areasOverlap(lead.PreferredAreas, agent.PreferredAreas) {
		fit += 2
	}
	if lead.LanguagePreference != nil && agent.Language != nil && *agent.Language == *lead.LanguagePreference {
		fit++
	}
	return fit
}

func areasOverlap(leadAreas, agentAreas []string) bool {
	for _, la := range leadAreas {
		for _, aa := range agentAreas {
			if la == aa {
				return true
			}
		}
	}
	return false
}
