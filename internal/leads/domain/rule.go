package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Operator identifies a supported scoring rule predicate.
type Operator string

const (
	OpEq      Operator = "eq"
	OpGt      Operator = "gt"
	OpLt      Operator = "lt"
	OpIn      Operator = "in"
	OpNotNull Operator = "not_null"
)

// Snapshot field names a criterion may reference. Snapshots are built by the
// scoring engine from the lead, its source details, and its latest activity.
const (
	FieldBudgetMin             = "budget_min"
	FieldBudgetMax             = "budget_max"
	FieldSourceType            = "source_type"
	FieldNationality           = "nationality"
	FieldPropertyType          = "property_type"
	FieldLanguagePreference    = "language_preference"
	FieldResponseTimeMinutes   = "response_time_minutes"
	FieldReferrerAgentID       = "referrer_agent_id"
	FieldOutcome               = "outcome"
	FieldActivityType          = "activity_type"
	FieldDaysSinceLastActivity = "days_since_last_activity"
)

// Snapshot is a flat view of the lead attributes a rule may be evaluated
// against. Absent fields must be omitted, not stored as nil, except for
// presence checks where a nil value also counts as absent.
type Snapshot map[string]any

// Criterion is the stored predicate of a scoring rule. Value is the raw
// JSON-decoded comparison operand: a string or number for eq/gt/lt, an array
// for in, and ignored for not_null.
type Criterion struct {
	Field    string   `json:"field"`
	Operator Operator `json:"operator"`
	Value    any      `json:"value"`
}

// ParseCriterion decodes a stored JSONB criteria blob.
func ParseCriterion(raw []byte) (Criterion, error) {
	var c Criterion
	if err := json.Unmarshal(raw, &c); err != nil {
		return Criterion{}, fmt.Errorf("malformed criteria: %w", err)
	}
	if strings.TrimSpace(c.Field) == "" {
		return Criterion{}, fmt.Errorf("malformed criteria: empty field")
	}
	return c, nil
}

// Evaluate applies the criterion to the snapshot. It returns whether the
// predicate matched. An unsupported operator or an operand that cannot be
// compared against the snapshot value is an error: the caller skips the rule
// (fail closed) and must never abort scoring for the lead because of it.
func (c Criterion) Evaluate(snap Snapshot) (bool, error) {
	value, present := snap[c.Field]
	if present && value == nil {
		present = false
	}

	switch c.Operator {
	case OpNotNull:
		return present, nil

	case OpEq:
		if !present {
			return false, nil
		}
		return looseEqual(value, c.Value)

	case OpGt, OpLt:
		if !present {
			return false, nil
		}
		have, err := toFloat(value)
		if err != nil {
			return false, fmt.Errorf("field %s: %w", c.Field, err)
		}
		want, err := toFloat(c.Value)
		if err != nil {
			return false, fmt.Errorf("operand for %s: %w", c.Field, err)
		}
		if c.Operator == OpGt {
			return have > want, nil
		}
		return have < want, nil

	case OpIn:
		if !present {
			return false, nil
		}
		members, ok := c.Value.([]any)
		if !ok {
			return false, fmt.Errorf("operand for %s: expected array, got %T", c.Field, c.Value)
		}
		for _, m := range members {
			eq, err := looseEqual(value, m)
			if err != nil {
				return false, err
			}
			if eq {
				return true, nil
			}
		}
		return false, nil

	default:
		return false, fmt.Errorf("unsupported operator %q", c.Operator)
	}
}

// looseEqual compares a snapshot value with a JSON-decoded operand. Numbers
// compare numerically regardless of Go type; everything else compares as
// trimmed strings.
func looseEqual(have, want any) (bool, error) {
	hf, herr := toFloat(have)
	wf, werr := toFloat(want)
	if herr == nil && werr == nil {
		return hf == wf, nil
	}

	hs, ok := toString(have)
	if !ok {
		return false, fmt.Errorf("cannot compare value of type %T", have)
	}
	ws, ok := toString(want)
	if !ok {
		return false, fmt.Errorf("cannot compare operand of type %T", want)
	}
	return hs == ws, nil
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case int:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case float32:
		return float64(n), nil
	case float64:
		return n, nil
	case json.Number:
		return n.Float64()
	default:
		return 0, fmt.Errorf("not a number: %T", v)
	}
}

func toString(v any) (string, bool) {
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s), true
	case fmt.Stringer:
		return strings.TrimSpace(s.String()), true
	default:
		return "", false
	}
}
