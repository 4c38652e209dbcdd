// Package scheme defines the declarative rule schema for government welfare
// schemes and the loader that turns a scheme document into an in-memory
// Definition. A Definition is immutable after Parse and safe for concurrent
// reads.
package scheme

import "fmt"

// Operator is a comparison operator appearing in a rule. The set is closed:
// evaluation dispatches exhaustively on (Operator, DataType), so adding an
// operator forces every switch to be revisited.
type Operator string

const (
	OpEqual       Operator = "=="
	OpNotEqual    Operator = "!="
	OpGreater     Operator = ">"
	OpGreaterEq   Operator = ">="
	OpLess        Operator = "<"
	OpLessEq      Operator = "<="
	OpBetween     Operator = "between"
	OpIn          Operator = "in"
	OpNotIn       Operator = "not_in"
	OpContains    Operator = "contains"
	OpNotContains Operator = "not_contains"
	OpContainsAll Operator = "contains_all"
	OpContainsAny Operator = "contains_any"
	OpStartsWith  Operator = "starts_with"
	OpEndsWith    Operator = "ends_with"
	OpBefore      Operator = "before"
	OpAfter       Operator = "after"
	OpSize        Operator = "size"
	OpSizeGt      Operator = "size_gt"
	OpSizeLt      Operator = "size_lt"
)

// ParseOperator maps a document operator token to an Operator.
// "length" is an accepted alias for "size".
func ParseOperator(s string) (Operator, error) {
	switch s {
	case "==", "eq", "equals":
		return OpEqual, nil
	case "!=", "ne", "not_equals":
		return OpNotEqual, nil
	case ">":
		return OpGreater, nil
	case ">=":
		return OpGreaterEq, nil
	case "<":
		return OpLess, nil
	case "<=":
		return OpLessEq, nil
	case "between":
		return OpBetween, nil
	case "in":
		return OpIn, nil
	case "not_in", "not in":
		return OpNotIn, nil
	case "contains":
		return OpContains, nil
	case "not_contains":
		return OpNotContains, nil
	case "contains_all":
		return OpContainsAll, nil
	case "contains_any":
		return OpContainsAny, nil
	case "starts_with":
		return OpStartsWith, nil
	case "ends_with":
		return OpEndsWith, nil
	case "before":
		return OpBefore, nil
	case "after":
		return OpAfter, nil
	case "size", "length":
		return OpSize, nil
	case "size_gt":
		return OpSizeGt, nil
	case "size_lt":
		return OpSizeLt, nil
	default:
		return "", fmt.Errorf("unknown operator %q", s)
	}
}

// DataType selects the coercion applied to both sides before comparison.
type DataType string

const (
	TypeString  DataType = "string"
	TypeNumber  DataType = "number"
	TypeBoolean DataType = "boolean"
	TypeDate    DataType = "date"
	TypeArray   DataType = "array"
)

// ParseDataType maps a document data_type token to a DataType.
// An empty token defaults to string, matching the document format.
func ParseDataType(s string) (DataType, error) {
	switch s {
	case "", "string", "text":
		return TypeString, nil
	case "number", "integer", "float":
		return TypeNumber, nil
	case "boolean", "bool":
		return TypeBoolean, nil
	case "date":
		return TypeDate, nil
	case "array", "list":
		return TypeArray, nil
	default:
		return "", fmt.Errorf("unknown data type %q", s)
	}
}

// Logic is the aggregate over rule verdicts.
type Logic string

const (
	LogicAll Logic = "ALL"
	LogicAny Logic = "ANY"
)

// Rule is one testable condition over an applicant field.
type Rule struct {
	RuleID      string
	Field       string // dot-path into the applicant record
	Operator    Operator
	Value       any // scalar, or []any for between/in/not_in/contains_all/contains_any
	DataType    DataType
	Description string
}

// Provision is a regional note surfaced in explanations; it never changes the
// verdict.
type Provision struct {
	Region      string
	Description string
}

// Eligibility groups the evaluable parts of a scheme.
type Eligibility struct {
	Logic            Logic
	Rules            []Rule
	RequiredCriteria []string
	// ExclusionCriteria use the same field/operator/value grammar as Rules.
	// A satisfied exclusion disqualifies regardless of rule outcomes.
	ExclusionCriteria []Rule
}

// Definition is a scheme loaded from a document. Read-only after Parse.
type Definition struct {
	ID          string
	Code        string
	Name        string
	Description string
	Metadata    map[string]string
	Eligibility Eligibility
	Provisions  []Provision
	Benefits    []string // pass-through, not evaluated
	Documents   []string // pass-through, not evaluated
}

// SchemaError reports a malformed scheme document. Scheme-structure problems
// are always fatal: the scheme itself cannot be trusted.
type SchemaError struct {
	Scheme string
	Detail string
}

func (e *SchemaError) Error() string {
	if e.Scheme == "" {
		return "schema error: " + e.Detail
	}
	return fmt.Sprintf("schema error in scheme %q: %s", e.Scheme, e.Detail)
}
