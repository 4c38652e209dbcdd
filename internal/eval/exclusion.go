package eval

import (
	"strings"

	"yojana/internal/applicant"
	"yojana/internal/scheme"
)

// ExclusionTriggered applies the disqualifying predicates. Each criterion uses
// the same field/operator/value grammar as rules; the aggregate is an OR, so
// any satisfied exclusion disqualifies the applicant regardless of rule
// verdicts. A criterion whose field is missing does not trigger.
func ExclusionTriggered(exclusions []scheme.Rule, rec applicant.Record) ([]RuleVerdict, bool) {
	if len(exclusions) == 0 {
		return nil, false
	}

	triggered := make([]RuleVerdict, 0, len(exclusions))
	any := false
	for _, ex := range exclusions {
		v := evaluateRule(ex, rec)
		if v.Passed {
			any = true
			triggered = append(triggered, v)
		}
	}
	return triggered, any
}

// MatchProvisions returns the special provisions whose region matches the
// applicant's region (case-insensitive). Informational only; the verdict is
// never altered by a provision.
func MatchProvisions(provisions []scheme.Provision, rec applicant.Record) []scheme.Provision {
	raw, ok := rec.Resolve("region")
	if !ok {
		raw, ok = rec.Resolve("state")
	}
	if !ok {
		return nil
	}
	region := coerceString(raw)

	var matched []scheme.Provision
	for _, p := range provisions {
		if strings.ToLower(p.Region) == region {
			matched = append(matched, p)
		}
	}
	return matched
}
