// Package scoring evaluates the rule catalog against lead snapshots. Rules
// are data, not code: each row carries one criterion and a score delta, and
// the engine sums the deltas of every matching rule onto a baseline before
// clamping into the valid score range.
package scoring

import (
	"context"
	"time"

	"leadflow_backend/internal/leads/domain"
	"leadflow_backend/internal/leads/repository"
	"leadflow_backend/platform/logger"
)

// RuleSource provides the active rule catalog.
type RuleSource interface {
	ListActiveRules(ctx context.Context) ([]repository.ScoringRule, error)
}

type Engine struct {
	rules RuleSource
	log   *logger.Logger
}

func NewEngine(rules RuleSource, log *logger.Logger) *Engine {
	return &Engine{rules: rules, log: log}
}

// Evaluate sums the deltas of all matching active rules onto baseline and
// clamps the result. A rule that cannot be parsed or evaluated is skipped
// with a warning; a single bad row never aborts scoring for the lead.
func (e *Engine) Evaluate(ctx context.Context, snap domain.Snapshot, baseline int) (int, error) {
	rules, err := e.rules.ListActiveRules(ctx)
	if err != nil {
		return 0, err
	}

	total := baseline
	for _, rule := range rules {
		criterion, err := domain.ParseCriterion(rule.Criteria)
		if err != nil {
			e.log.ScoringRuleSkipped(rule.ID.String(), rule.Name, err.Error())
			continue
		}
		matched, err := criterion.Evaluate(snap)
		if err != nil {
			e.log.ScoringRuleSkipped(rule.ID.String(), rule.Name, err.Error())
			continue
		}
		if matched {
			total += rule.ScoreDelta
		}
	}
	return domain.ClampScore(total), nil
}

// CaptureSnapshot builds the rule input for a freshly captured lead from the
// capture parameters. Absent optional fields are omitted so presence checks
// behave correctly.
func CaptureSnapshot(params repository.CreateLeadParams) domain.Snapshot {
	snap := domain.Snapshot{
		domain.FieldSourceType: params.SourceType,
	}
	if params.BudgetMin != nil {
		snap[domain.FieldBudgetMin] = *params.BudgetMin
	}
	if params.BudgetMax != nil {
		snap[domain.FieldBudgetMax] = *params.BudgetMax
	}
	if params.Nationality != nil {
		snap[domain.FieldNationality] = *params.Nationality
	}
	if params.PropertyType != nil {
		snap[domain.FieldPropertyType] = *params.PropertyType
	}
	if params.LanguagePreference != nil {
		snap[domain.FieldLanguagePreference] = *params.LanguagePreference
	}
	if params.ResponseTimeMinutes != nil {
		snap[domain.FieldResponseTimeMinutes] = *params.ResponseTimeMinutes
	}
	if params.ReferrerAgentID != nil {
		snap[domain.FieldReferrerAgentID] = params.ReferrerAgentID.String()
	}
	return snap
}

// ActivitySnapshot builds the rule input for a re-score after an activity.
// Only activity-derived fields are included: the lead's capture attributes
// already contributed to the stored baseline and must not count twice.
func ActivitySnapshot(activity repository.Activity, lastActivityAt *time.Time, now time.Time) domain.Snapshot {
	snap := domain.Snapshot{
		domain.FieldActivityType: activity.ActivityType,
	}
	if activity.Outcome != nil {
		snap[domain.FieldOutcome] = *activity.Outcome
	}
	if lastActivityAt != nil {
		snap[domain.FieldDaysSinceLastActivity] = int(now.Sub(*lastActivityAt).Hours() / 24)
	}
	return snap
}
