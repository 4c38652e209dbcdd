package eval

import (
	"fmt"
	"strings"

	"yojana/internal/applicant"
	"yojana/internal/scheme"
)

// EvaluateRules interprets a rule set against an applicant record and returns
// one verdict per rule plus the aggregate outcome. ALL requires every verdict
// to pass, ANY at least one. Evaluation is total: a rule always resolves to a
// pass/fail verdict, never an error. With zero rules ALL is vacuously true and
// ANY is false.
func EvaluateRules(rules []scheme.Rule, logic scheme.Logic, rec applicant.Record) ([]RuleVerdict, bool) {
	verdicts := make([]RuleVerdict, 0, len(rules))
	passed := 0
	for _, rule := range rules {
		v := evaluateRule(rule, rec)
		if v.Passed {
			passed++
		}
		verdicts = append(verdicts, v)
	}

	if logic == scheme.LogicAny {
		return verdicts, passed > 0
	}
	return verdicts, passed == len(rules)
}

// evaluateRule produces the verdict for a single rule. Missing fields and
// comparison errors both downgrade to a failing verdict with a diagnostic
// reason.
func evaluateRule(rule scheme.Rule, rec applicant.Record) (verdict RuleVerdict) {
	verdict = RuleVerdict{
		RuleID:   rule.RuleID,
		Field:    rule.Field,
		Operator: rule.Operator,
		Expected: rule.Value,
	}

	// Comparison must never escape as a panic; anything unexpected becomes a
	// failing verdict.
	defer func() {
		if r := recover(); r != nil {
			verdict.Passed = false
			verdict.Reason = fmt.Sprintf("evaluation error: %v", r)
		}
	}()

	actual, ok := rec.Resolve(rule.Field)
	if !ok {
		verdict.Reason = MissingFieldReason
		return verdict
	}
	verdict.Actual = actual

	passed, err := compare(rule.DataType, rule.Operator, actual, rule.Value)
	if err != nil {
		verdict.Reason = fmt.Sprintf("evaluation error: %v", err)
		return verdict
	}

	verdict.Passed = passed
	if !passed {
		verdict.Reason = FailureReason(rule, actual)
	}
	return verdict
}

// compare dispatches on (data type, operator). The switches are exhaustive
// over the supported combinations; anything else is an error that the caller
// downgrades to a failing verdict.
func compare(dt scheme.DataType, op scheme.Operator, actual, expected any) (bool, error) {
	switch dt {
	case scheme.TypeString:
		return compareString(op, actual, expected)
	case scheme.TypeNumber:
		return compareNumber(op, actual, expected)
	case scheme.TypeBoolean:
		return compareBoolean(op, actual, expected)
	case scheme.TypeDate:
		return compareDate(op, actual, expected)
	case scheme.TypeArray:
		return compareArray(op, actual, expected)
	default:
		return false, fmt.Errorf("unsupported data type %q", dt)
	}
}

// compareString lowercases both sides; every string operator is
// case-insensitive.
func compareString(op scheme.Operator, actual, expected any) (bool, error) {
	a := coerceString(actual)

	switch op {
	case scheme.OpEqual:
		return a == coerceString(expected), nil
	case scheme.OpNotEqual:
		return a != coerceString(expected), nil
	case scheme.OpContains:
		return strings.Contains(a, coerceString(expected)), nil
	case scheme.OpNotContains:
		return !strings.Contains(a, coerceString(expected)), nil
	case scheme.OpStartsWith:
		return strings.HasPrefix(a, coerceString(expected)), nil
	case scheme.OpEndsWith:
		return strings.HasSuffix(a, coerceString(expected)), nil
	case scheme.OpIn, scheme.OpNotIn:
		members, ok := expected.([]any)
		if !ok {
			return false, fmt.Errorf("operator %s requires a list value", op)
		}
		found := false
		for _, m := range members {
			if a == coerceString(m) {
				found = true
				break
			}
		}
		if op == scheme.OpIn {
			return found, nil
		}
		return !found, nil
	default:
		return false, fmt.Errorf("operator %s not supported for strings", op)
	}
}

func compareNumber(op scheme.Operator, actual, expected any) (bool, error) {
	a, err := CoerceFloat(actual)
	if err != nil {
		return false, err
	}

	switch op {
	case scheme.OpEqual, scheme.OpNotEqual, scheme.OpGreater, scheme.OpGreaterEq, scheme.OpLess, scheme.OpLessEq:
		e, err := CoerceFloat(expected)
		if err != nil {
			return false, err
		}
		switch op {
		case scheme.OpEqual:
			return floatsEqual(a, e), nil
		case scheme.OpNotEqual:
			return !floatsEqual(a, e), nil
		case scheme.OpGreater:
			return a > e, nil
		case scheme.OpGreaterEq:
			return a >= e, nil
		case scheme.OpLess:
			return a < e, nil
		default:
			return a <= e, nil
		}
	case scheme.OpBetween:
		bounds, ok := expected.([]any)
		if !ok || len(bounds) != 2 {
			return false, nil
		}
		lo, err := CoerceFloat(bounds[0])
		if err != nil {
			return false, err
		}
		hi, err := CoerceFloat(bounds[1])
		if err != nil {
			return false, err
		}
		return a >= lo && a <= hi, nil
	case scheme.OpIn, scheme.OpNotIn:
		members, ok := expected.([]any)
		if !ok {
			return op == scheme.OpNotIn, nil
		}
		found := false
		for _, m := range members {
			e, err := CoerceFloat(m)
			if err != nil {
				return false, err
			}
			if a == e {
				found = true
				break
			}
		}
		if op == scheme.OpIn {
			return found, nil
		}
		return !found, nil
	default:
		return false, fmt.Errorf("operator %s not supported for numbers", op)
	}
}

func compareBoolean(op scheme.Operator, actual, expected any) (bool, error) {
	a, e := CoerceBool(actual), CoerceBool(expected)
	switch op {
	case scheme.OpEqual:
		return a == e, nil
	case scheme.OpNotEqual:
		return a != e, nil
	default:
		return false, fmt.Errorf("operator %s not supported for booleans", op)
	}
}

func compareDate(op scheme.Operator, actual, expected any) (bool, error) {
	a, err := ParseDate(actual)
	if err != nil {
		return false, err
	}

	switch op {
	case scheme.OpEqual, scheme.OpNotEqual:
		e, err := ParseDate(expected)
		if err != nil {
			return false, err
		}
		// Date-only comparison; time of day is ignored for equality.
		same := a.Format("2006-01-02") == e.Format("2006-01-02")
		if op == scheme.OpEqual {
			return same, nil
		}
		return !same, nil
	case scheme.OpBefore, scheme.OpLess:
		e, err := ParseDate(expected)
		if err != nil {
			return false, err
		}
		return a.Before(e), nil
	case scheme.OpAfter, scheme.OpGreater:
		e, err := ParseDate(expected)
		if err != nil {
			return false, err
		}
		return a.After(e), nil
	case scheme.OpBetween:
		bounds, ok := expected.([]any)
		if !ok || len(bounds) != 2 {
			return false, nil
		}
		lo, err := ParseDate(bounds[0])
		if err != nil {
			return false, err
		}
		hi, err := ParseDate(bounds[1])
		if err != nil {
			return false, err
		}
		return !a.Before(lo) && !a.After(hi), nil
	default:
		return false, fmt.Errorf("operator %s not supported for dates", op)
	}
}

func compareArray(op scheme.Operator, actual, expected any) (bool, error) {
	arr := CoerceArray(actual)

	containsScalar := func(v any) bool {
		for _, elem := range arr {
			if scalarEqual(elem, v) {
				return true
			}
		}
		return false
	}

	switch op {
	case scheme.OpContains:
		return containsScalar(expected), nil
	case scheme.OpNotContains:
		return !containsScalar(expected), nil
	case scheme.OpContainsAll:
		members, ok := expected.([]any)
		if !ok {
			return false, nil
		}
		for _, m := range members {
			if !containsScalar(m) {
				return false, nil
			}
		}
		return true, nil
	case scheme.OpContainsAny:
		members, ok := expected.([]any)
		if !ok {
			return false, nil
		}
		for _, m := range members {
			if containsScalar(m) {
				return true, nil
			}
		}
		return false, nil
	case scheme.OpSize, scheme.OpSizeGt, scheme.OpSizeLt:
		e, err := CoerceFloat(expected)
		if err != nil {
			return false, err
		}
		n := int(e)
		switch op {
		case scheme.OpSize:
			return len(arr) == n, nil
		case scheme.OpSizeGt:
			return len(arr) > n, nil
		default:
			return len(arr) < n, nil
		}
	case scheme.OpEqual:
		// Set equality: order and duplicates are ignored.
		members, ok := expected.([]any)
		if !ok {
			return false, nil
		}
		for _, m := range members {
			if !containsScalar(m) {
				return false, nil
			}
		}
		for _, elem := range arr {
			found := false
			for _, m := range members {
				if scalarEqual(elem, m) {
					found = true
					break
				}
			}
			if !found {
				return false, nil
			}
		}
		return true, nil
	default:
		return false, fmt.Errorf("operator %s not supported for arrays", op)
	}
}
