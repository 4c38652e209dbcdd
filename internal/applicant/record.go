// Package applicant holds the applicant-side inputs to an eligibility
// evaluation: the nested key/value record and a read-only store that serves
// records by id. Records are constructed per request and never persisted by
// the engine.
package applicant

import (
	"strings"
)

// Record is an arbitrary JSON-compatible nested map, addressed by dot-paths.
// It must not be mutated during an evaluation.
type Record map[string]any

// Resolve walks a dot-path through nested maps. The second return is false
// when any segment is missing or a non-map is traversed; resolution never
// panics on malformed data.
func (r Record) Resolve(path string) (any, bool) {
	var cur any = map[string]any(r)
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}
