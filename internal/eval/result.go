// Package eval implements the direct rule evaluator: a type-aware interpreter
// for scheme rule sets, the exclusion and special-provision checks, and the
// explanation/recommendation synthesizer shared by both evaluation backends.
package eval

import (
	"yojana/internal/scheme"
)

// Backend identifies which evaluation path produced a Result.
type Backend string

const (
	BackendDirect   Backend = "direct"
	BackendReasoner Backend = "reasoner"
)

// RuleVerdict is the outcome of one rule against one applicant.
type RuleVerdict struct {
	RuleID   string          `json:"rule_id"`
	Field    string          `json:"field"`
	Operator scheme.Operator `json:"operator"`
	Expected any             `json:"expected_value"`
	Actual   any             `json:"actual_value"`
	Passed   bool            `json:"passed"`
	Reason   string          `json:"reason,omitempty"`
}

// Result is the eligibility contract consumed by any surrounding API layer.
// It is returned per evaluation and not persisted by the engine.
type Result struct {
	EvaluationID    string             `json:"evaluation_id"`
	SchemeCode      string             `json:"scheme_code"`
	Backend         Backend            `json:"backend"`
	IsEligible      bool               `json:"is_eligible"`
	Score           float64            `json:"score"`
	RuleResults     []RuleVerdict      `json:"rule_results"`
	MissingFields   []string           `json:"missing_fields"`
	Exclusions      []string           `json:"exclusions"`
	Provisions      []scheme.Provision `json:"special_provisions"`
	Explanations    []string           `json:"explanations"`
	Recommendations []string           `json:"recommendations"`
}

// MissingFieldReason is the verdict reason recorded when a rule's field is
// absent from the applicant record. Both backends use the same string so
// results compare equal.
const MissingFieldReason = "missing field"
