package eval

import (
	"yojana/internal/applicant"
	"yojana/internal/scheme"
)

// Check runs the full direct evaluation path for one scheme and one
// applicant: rule verdicts, exclusions, special provisions, then the
// synthesized result. Stateless; safe to call concurrently with the same
// Definition.
func Check(def *scheme.Definition, rec applicant.Record) *Result {
	verdicts, eligible := EvaluateRules(def.Eligibility.Rules, def.Eligibility.Logic, rec)
	exclusions, _ := ExclusionTriggered(def.Eligibility.ExclusionCriteria, rec)
	provisions := MatchProvisions(def.Provisions, rec)
	return Synthesize(def, BackendDirect, verdicts, eligible, exclusions, provisions)
}
