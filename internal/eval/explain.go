package eval

import (
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"

	"yojana/internal/scheme"
)

// maxRecommendations caps the advice emitted for failed rules.
const maxRecommendations = 5

// Synthesize turns verdicts into the user-facing Result. Output is
// deterministic and follows schema order: one summary line, then one
// pass/fail line per rule. Both backends share this path so explanations stay
// uniform regardless of how the verdicts were derived.
func Synthesize(def *scheme.Definition, backend Backend, verdicts []RuleVerdict, eligible bool, exclusions []RuleVerdict, provisions []scheme.Provision) *Result {
	excluded := len(exclusions) > 0
	// Exclusion dominance: a satisfied exclusion forces ineligibility no
	// matter what the rules said.
	isEligible := eligible && !excluded

	res := &Result{
		EvaluationID:  uuid.NewString(),
		SchemeCode:    def.Code,
		Backend:       backend,
		IsEligible:    isEligible,
		Score:         score(def.Eligibility.Logic, verdicts),
		RuleResults:   verdicts,
		MissingFields: missingFields(verdicts),
		Provisions:    provisions,
	}

	for _, ex := range exclusions {
		res.Exclusions = append(res.Exclusions, describeRule(def.Eligibility.ExclusionCriteria, ex))
	}

	res.Explanations = explanations(def, verdicts, exclusions, provisions)
	res.Recommendations = recommendations(def, verdicts, isEligible)
	return res
}

func explanations(def *scheme.Definition, verdicts []RuleVerdict, exclusions []RuleVerdict, provisions []scheme.Provision) []string {
	total := len(verdicts)
	passed := 0
	for _, v := range verdicts {
		if v.Passed {
			passed++
		}
	}

	var out []string
	if def.Eligibility.Logic == scheme.LogicAny {
		out = append(out, fmt.Sprintf("Any of %d conditions met: %d passed.", total, passed))
	} else {
		out = append(out, fmt.Sprintf("All %d conditions met: %d passed.", total, passed))
	}

	for _, v := range verdicts {
		mark := "✗"
		if v.Passed {
			mark = "✓"
		}
		out = append(out, fmt.Sprintf("%s %s", mark, describeRule(def.Eligibility.Rules, v)))
	}

	for _, ex := range exclusions {
		out = append(out, fmt.Sprintf("Exclusion applies: %s", describeRule(def.Eligibility.ExclusionCriteria, ex)))
	}
	for _, p := range provisions {
		out = append(out, fmt.Sprintf("Special provision (%s): %s", p.Region, p.Description))
	}
	return out
}

func recommendations(def *scheme.Definition, verdicts []RuleVerdict, eligible bool) []string {
	if eligible {
		return []string{"Eligible! Proceed with application."}
	}

	var out []string
	for _, v := range verdicts {
		if v.Passed {
			continue
		}
		if len(out) == maxRecommendations {
			break
		}
		out = append(out, recommendFix(findRule(def.Eligibility.Rules, v.RuleID), v))
	}
	if len(out) == 0 {
		// Rules passed but an exclusion disqualified the applicant.
		out = append(out, "An exclusion criterion applies; this scheme is not available.")
	}
	return out
}

// recommendFix phrases one actionable line for a failed rule, varying by
// operator.
func recommendFix(rule *scheme.Rule, v RuleVerdict) string {
	field := humanizeField(v.Field)
	if v.Reason == MissingFieldReason {
		return fmt.Sprintf("Provide %s to complete the assessment.", field)
	}
	if rule == nil {
		return fmt.Sprintf("Review the requirement on %s.", field)
	}

	switch rule.Operator {
	case scheme.OpEqual:
		return fmt.Sprintf("%s must be %v.", field, rule.Value)
	case scheme.OpNotEqual:
		return fmt.Sprintf("%s must not be %v.", field, rule.Value)
	case scheme.OpGreaterEq, scheme.OpGreater, scheme.OpAfter:
		return fmt.Sprintf("%s must exceed the minimum of %v.", field, rule.Value)
	case scheme.OpLessEq, scheme.OpLess, scheme.OpBefore:
		return fmt.Sprintf("%s is over the limit of %v.", field, rule.Value)
	case scheme.OpBetween:
		if bounds, ok := rule.Value.([]any); ok && len(bounds) == 2 {
			return fmt.Sprintf("%s must be between %v and %v.", field, bounds[0], bounds[1])
		}
		return fmt.Sprintf("%s is outside the allowed range.", field)
	case scheme.OpIn, scheme.OpContainsAny:
		return fmt.Sprintf("%s must be one of %v.", field, rule.Value)
	case scheme.OpNotIn:
		return fmt.Sprintf("%s must not be one of %v.", field, rule.Value)
	case scheme.OpContains, scheme.OpContainsAll:
		return fmt.Sprintf("%s must include %v.", field, rule.Value)
	case scheme.OpSize, scheme.OpSizeGt, scheme.OpSizeLt:
		return fmt.Sprintf("%s does not have the required number of entries.", field)
	default:
		return fmt.Sprintf("Review the requirement: %s.", rule.Description)
	}
}

// score is the percentage of rules passed. Under ALL logic a single failure
// halves the score: no partial credit when every condition is mandatory.
func score(logic scheme.Logic, verdicts []RuleVerdict) float64 {
	if len(verdicts) == 0 {
		return 100
	}
	passed := 0
	for _, v := range verdicts {
		if v.Passed {
			passed++
		}
	}
	s := 100 * float64(passed) / float64(len(verdicts))
	if logic == scheme.LogicAll && passed < len(verdicts) {
		s *= 0.5
	}
	return math.Round(s*100) / 100
}

func missingFields(verdicts []RuleVerdict) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, v := range verdicts {
		if v.Reason != MissingFieldReason {
			continue
		}
		if _, dup := seen[v.Field]; dup {
			continue
		}
		seen[v.Field] = struct{}{}
		out = append(out, v.Field)
	}
	if out == nil {
		out = []string{}
	}
	return out
}

// FailureReason phrases why a rule failed, for the verdict record.
func FailureReason(rule scheme.Rule, actual any) string {
	field := humanizeField(rule.Field)
	switch rule.Operator {
	case scheme.OpEqual:
		return fmt.Sprintf("%s should be %v, but got %v", field, rule.Value, actual)
	case scheme.OpNotEqual:
		return fmt.Sprintf("%s should not be %v", field, rule.Value)
	case scheme.OpGreater:
		return fmt.Sprintf("%s should be greater than %v, but got %v", field, rule.Value, actual)
	case scheme.OpGreaterEq:
		return fmt.Sprintf("%s should be at least %v, but got %v", field, rule.Value, actual)
	case scheme.OpLess:
		return fmt.Sprintf("%s should be less than %v, but got %v", field, rule.Value, actual)
	case scheme.OpLessEq:
		return fmt.Sprintf("%s should be at most %v, but got %v", field, rule.Value, actual)
	case scheme.OpBetween:
		if bounds, ok := rule.Value.([]any); ok && len(bounds) == 2 {
			return fmt.Sprintf("%s should be between %v and %v, but got %v", field, bounds[0], bounds[1], actual)
		}
		return fmt.Sprintf("%s should be within range", field)
	case scheme.OpIn:
		return fmt.Sprintf("%s should be one of %v, but got %v", field, rule.Value, actual)
	case scheme.OpNotIn:
		return fmt.Sprintf("%s should not be one of %v", field, rule.Value)
	case scheme.OpBefore:
		return fmt.Sprintf("%s should be before %v", field, rule.Value)
	case scheme.OpAfter:
		return fmt.Sprintf("%s should be after %v", field, rule.Value)
	default:
		return fmt.Sprintf("%s does not meet requirement: %s", field, rule.Description)
	}
}

func describeRule(rules []scheme.Rule, v RuleVerdict) string {
	if r := findRule(rules, v.RuleID); r != nil && r.Description != "" {
		return r.Description
	}
	return fmt.Sprintf("%s %s %v", v.Field, v.Operator, v.Expected)
}

func findRule(rules []scheme.Rule, id string) *scheme.Rule {
	for i := range rules {
		if rules[i].RuleID == id {
			return &rules[i]
		}
	}
	return nil
}

func humanizeField(path string) string {
	parts := strings.Split(path, ".")
	last := parts[len(parts)-1]
	words := strings.Split(strings.ReplaceAll(last, "_", " "), " ")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
