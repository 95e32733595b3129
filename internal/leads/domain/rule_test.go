package domain

import "testing"

func TestCriterionEvaluate(t *testing.T) {
	snap := Snapshot{
		FieldBudgetMax:           2000000,
		FieldSourceType:          "bayut",
		FieldNationality:         "UAE",
		FieldPropertyType:        "villa",
		FieldResponseTimeMinutes: 42,
		FieldReferrerAgentID:     "a6f1b2ce-9f5c-4a41-8f1f-2f7d2f8f1a01",
	}

	tests := []struct {
		name      string
		criterion Criterion
		want      bool
		wantErr   bool
	}{
		{"gt match", Criterion{Field: FieldBudgetMax, Operator: OpGt, Value: float64(1500000)}, true, false},
		{"gt no match", Criterion{Field: FieldBudgetMax, Operator: OpGt, Value: float64(3000000)}, false, false},
		{"lt match", Criterion{Field: FieldResponseTimeMinutes, Operator: OpLt, Value: float64(60)}, true, false},
		{"eq string match", Criterion{Field: FieldSourceType, Operator: OpEq, Value: "bayut"}, true, false},
		{"eq string no match", Criterion{Field: FieldSourceType, Operator: OpEq, Value: "website"}, false, false},
		{"eq numeric across types", Criterion{Field: FieldBudgetMax, Operator: OpEq, Value: float64(2000000)}, true, false},
		{"in match", Criterion{Field: FieldNationality, Operator: OpIn, Value: []any{"KSA", "UAE", "Qatar"}}, true, false},
		{"in no match", Criterion{Field: FieldNationality, Operator: OpIn, Value: []any{"KSA", "Qatar"}}, false, false},
		{"not_null present", Criterion{Field: FieldReferrerAgentID, Operator: OpNotNull}, true, false},
		{"not_null absent", Criterion{Field: FieldLanguagePreference, Operator: OpNotNull}, false, false},
		{"absent field never matches eq", Criterion{Field: FieldOutcome, Operator: OpEq, Value: "positive"}, false, false},
		{"absent field never matches gt", Criterion{Field: FieldDaysSinceLastActivity, Operator: OpGt, Value: float64(7)}, false, false},
		{"unsupported operator fails closed", Criterion{Field: FieldSourceType, Operator: "regex", Value: ".*"}, false, true},
		{"gt against non-numeric field", Criterion{Field: FieldSourceType, Operator: OpGt, Value: float64(1)}, false, true},
		{"gt with non-numeric operand", Criterion{Field: FieldBudgetMax, Operator: OpGt, Value: "lots"}, false, true},
		{"in with non-array operand", Criterion{Field: FieldNationality, Operator: OpIn, Value: "UAE"}, false, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := tc.criterion.Evaluate(snap)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("Evaluate() error = nil, want error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Evaluate() unexpected error: %v", err)
			}
			if got != tc.want {
				t.Errorf("Evaluate() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestCriterionEvaluateNilValueCountsAsAbsent(t *testing.T) {
	snap := Snapshot{FieldReferrerAgentID: nil}

	matched, err := Criterion{Field: FieldReferrerAgentID, Operator: OpNotNull}.Evaluate(snap)
	if err != nil {
		t.Fatalf("Evaluate() unexpected error: %v", err)
	}
	if matched {
		t.Error("nil snapshot value must not satisfy not_null")
	}
}

func TestParseCriterion(t *testing.T) {
	c, err := ParseCriterion([]byte(`{"field":"budget_max","operator":"gt","value":1500000}`))
	if err != nil {
		t.Fatalf("ParseCriterion() unexpected error: %v", err)
	}
	if c.Field != FieldBudgetMax || c.Operator != OpGt {
		t.Errorf("ParseCriterion() = %+v", c)
	}

	if _, err := ParseCriterion([]byte(`{"operator":"gt","value":1}`)); err == nil {
		t.Error("ParseCriterion() with empty field should fail")
	}

	if _, err := ParseCriterion([]byte(`not json`)); err == nil {
		t.Error("ParseCriterion() with invalid JSON should fail")
	}
}
