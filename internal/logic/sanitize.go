package logic

import (
	"strings"

	"github.com/google/mangle/ast"
)

// reservedPredicates are the fixed predicates every compiled program defines.
// A field whose sanitized name lands on one of these gets a field_ prefix so
// applicant facts can never shadow the derivation skeleton.
var reservedPredicates = map[string]struct{}{
	"applicant":               {},
	"region":                  {},
	"requirement":             {},
	"requirement_met":         {},
	"requirement_failed":      {},
	"some_requirement_failed": {},
	"some_requirement_met":    {},
	"all_requirements_met":    {},
	"exclusion_applies":       {},
	"excluded":                {},
	"special_provision":       {},
	"eligible":                {},
}

// sanitizeToken lowercases and maps anything outside [a-z0-9_] to an
// underscore. Dots in field paths become underscores, so "farm.land_size"
// sanitizes to "farm_land_size".
func sanitizeToken(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

func startsWithLetter(s string) bool {
	return s != "" && s[0] >= 'a' && s[0] <= 'z'
}

// fieldPredicate derives the fact predicate for a field path.
func fieldPredicate(path string) string {
	p := sanitizeToken(path)
	if !startsWithLetter(p) {
		p = "field_" + p
	}
	if _, reserved := reservedPredicates[p]; reserved {
		p = "field_" + p
	}
	return p
}

// identToken sanitizes an identifier destined for a name constant or an
// auxiliary predicate, guaranteeing a leading letter.
func identToken(s string) string {
	t := sanitizeToken(s)
	if !startsWithLetter(t) {
		t = "r_" + t
	}
	return t
}

// nameConstant builds the mangle name constant /<token> for a sanitized
// identifier. The token is restricted to [a-z0-9_] with a leading letter, so
// construction cannot fail.
func nameConstant(token string) ast.Constant {
	name, err := ast.Name("/" + token)
	if err != nil {
		return ast.String(token)
	}
	return name
}
