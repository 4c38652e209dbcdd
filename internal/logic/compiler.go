// Package logic compiles scheme definitions into mangle programs. The
// compiler builds typed AST clauses, renders them, and re-parses and analyzes
// the rendered source so a Program handed to the reasoner is known to be
// well-formed before any applicant facts are asserted.
package logic

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/mangle/analysis"
	"github.com/google/mangle/ast"
	"github.com/google/mangle/parse"

	"yojana/internal/eval"
	"yojana/internal/scheme"
)

// Numbers are encoded as fixed-point milli-units: mangle's ordering builtins
// compare int64 constants only, so 2.5 becomes 2500. One scaled unit equals
// the direct evaluator's 0.001 equality tolerance.
const numberScale = 1000

// ScaledNumber encodes a float as a fixed-point milli-unit constant. Sessions
// must assert number facts through this so they unify with compiled bounds.
func ScaledNumber(f float64) ast.Constant {
	return ast.Number(int64(math.Round(f * numberScale)))
}

// CompileError reports a scheme definition the compiler cannot express as a
// logic program.
type CompileError struct {
	Scheme string
	Detail string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("compile scheme %q: %s", e.Scheme, e.Detail)
}

// FieldSpec records how one applicant field is represented in the program.
type FieldSpec struct {
	Path      string
	Predicate string
	DataType  scheme.DataType
}

// Program is a compiled, verified eligibility program plus the metadata a
// reasoner session needs to assert facts and map derived atoms back to rules.
type Program struct {
	Scheme  *scheme.Definition
	Source  string
	Decls   []string
	Clauses []string

	// Fields lists every field referenced by rules or exclusions, in schema
	// order.
	Fields      []FieldSpec
	FieldByPath map[string]FieldSpec

	// RuleSyms and ExclusionSyms map rule ids onto the name constants used in
	// requirement/2 and exclusion_applies/2 atoms. ProvisionSyms maps the
	// region name constant symbol back to its provision.
	RuleSyms      map[string]ast.Constant
	ExclusionSyms map[string]ast.Constant
	ProvisionSyms map[string]scheme.Provision
}

var (
	varP = ast.Variable{Symbol: "P"}
	varV = ast.Variable{Symbol: "V"}
	varC = ast.Variable{Symbol: "C"}
	varR = ast.Variable{Symbol: "R"}
	wild = ast.Variable{Symbol: "_"}

	trueName  = nameConstant("true")
	falseName = nameConstant("false")
)

// Compile translates a scheme definition into a mangle program. The rendered
// source is parsed and analyzed before returning; a definition that renders
// to an invalid program is a CompileError, never a runtime surprise in the
// reasoner.
func Compile(def *scheme.Definition) (*Program, error) {
	c := &compiler{
		def:         def,
		fieldByPath: make(map[string]FieldSpec),
		usedSyms:    make(map[string]bool),
	}

	c.collectFields(def.Eligibility.Rules)
	c.collectFields(def.Eligibility.ExclusionCriteria)

	ruleSyms, err := c.requirements()
	if err != nil {
		return nil, err
	}
	exclusionSyms, err := c.exclusions()
	if err != nil {
		return nil, err
	}
	provisionSyms := c.provisions()
	c.skeleton()

	source := c.render()
	unit, err := parse.Unit(strings.NewReader(source))
	if err != nil {
		return nil, &CompileError{Scheme: def.Code, Detail: fmt.Sprintf("parse: %v", err)}
	}
	if _, err := analysis.AnalyzeOneUnit(unit, nil); err != nil {
		return nil, &CompileError{Scheme: def.Code, Detail: fmt.Sprintf("analysis: %v", err)}
	}

	return &Program{
		Scheme:        def,
		Source:        source,
		Decls:         c.decls,
		Clauses:       c.lines,
		Fields:        c.fields,
		FieldByPath:   c.fieldByPath,
		RuleSyms:      ruleSyms,
		ExclusionSyms: exclusionSyms,
		ProvisionSyms: provisionSyms,
	}, nil
}

type compiler struct {
	def         *scheme.Definition
	fields      []FieldSpec
	fieldByPath map[string]FieldSpec
	usedSyms    map[string]bool
	decls       []string
	lines       []string
}

// collectFields registers a fact predicate per distinct field path, keeping
// schema order. The first rule to mention a field fixes its data type.
func (c *compiler) collectFields(rules []scheme.Rule) {
	for _, r := range rules {
		if _, seen := c.fieldByPath[r.Field]; seen {
			continue
		}
		spec := FieldSpec{
			Path:      r.Field,
			Predicate: fieldPredicate(r.Field),
			DataType:  r.DataType,
		}
		c.fields = append(c.fields, spec)
		c.fieldByPath[r.Field] = spec
	}
}

// uniqueSym returns a sanitized, program-unique token for a rule id.
func (c *compiler) uniqueSym(id string) string {
	base := identToken(id)
	sym := base
	for i := 2; c.usedSyms[sym]; i++ {
		sym = fmt.Sprintf("%s_%d", base, i)
	}
	c.usedSyms[sym] = true
	return sym
}

func (c *compiler) requirements() (map[string]ast.Constant, error) {
	syms := make(map[string]ast.Constant, len(c.def.Eligibility.Rules))
	for _, rule := range c.def.Eligibility.Rules {
		sym := c.uniqueSym(rule.RuleID)
		name := nameConstant(sym)
		syms[rule.RuleID] = name

		c.emit(ast.Clause{
			Head:     ast.NewAtom("requirement", varP, name),
			Premises: []ast.Term{ast.NewAtom("applicant", varP)},
		})
		head := ast.NewAtom("requirement_met", varP, name)
		if err := c.ruleClauses(head, rule, sym); err != nil {
			return nil, err
		}
	}
	return syms, nil
}

func (c *compiler) exclusions() (map[string]ast.Constant, error) {
	syms := make(map[string]ast.Constant, len(c.def.Eligibility.ExclusionCriteria))
	for _, rule := range c.def.Eligibility.ExclusionCriteria {
		sym := c.uniqueSym(rule.RuleID)
		name := nameConstant(sym)
		syms[rule.RuleID] = name

		head := ast.NewAtom("exclusion_applies", varP, name)
		if err := c.ruleClauses(head, rule, sym); err != nil {
			return nil, err
		}
	}
	return syms, nil
}

func (c *compiler) provisions() map[string]scheme.Provision {
	syms := make(map[string]scheme.Provision, len(c.def.Provisions))
	for _, p := range c.def.Provisions {
		sym := c.uniqueSym(p.Region)
		name := nameConstant(sym)
		syms[name.Symbol] = p

		c.emit(ast.Clause{
			Head: ast.NewAtom("special_provision", varP, name),
			Premises: []ast.Term{
				ast.NewAtom("applicant", varP),
				ast.NewAtom("region", varP, ast.String(strings.ToLower(p.Region))),
			},
		})
	}
	return syms
}

// skeleton emits the fixed derivation chain from requirement verdicts up to
// eligible/1. Negation keeps the program stratified: requirement_failed and
// excluded each read only strata below them.
func (c *compiler) skeleton() {
	hasRules := len(c.def.Eligibility.Rules) > 0

	if hasRules {
		c.emit(ast.Clause{
			Head: ast.NewAtom("requirement_failed", varP, varR),
			Premises: []ast.Term{
				ast.NewAtom("requirement", varP, varR),
				ast.NegAtom{Atom: ast.NewAtom("requirement_met", varP, varR)},
			},
		})
	}

	if c.def.Eligibility.Logic == scheme.LogicAny {
		if hasRules {
			c.emit(ast.Clause{
				Head:     ast.NewAtom("some_requirement_met", varP),
				Premises: []ast.Term{ast.NewAtom("requirement_met", varP, wild)},
			})
		}
	} else {
		if hasRules {
			c.emit(ast.Clause{
				Head:     ast.NewAtom("some_requirement_failed", varP),
				Premises: []ast.Term{ast.NewAtom("requirement_failed", varP, wild)},
			})
			c.emit(ast.Clause{
				Head: ast.NewAtom("all_requirements_met", varP),
				Premises: []ast.Term{
					ast.NewAtom("applicant", varP),
					ast.NegAtom{Atom: ast.NewAtom("some_requirement_failed", varP)},
				},
			})
		} else {
			// No rules under ALL is vacuously satisfied.
			c.emit(ast.Clause{
				Head:     ast.NewAtom("all_requirements_met", varP),
				Premises: []ast.Term{ast.NewAtom("applicant", varP)},
			})
		}
	}

	if len(c.def.Eligibility.ExclusionCriteria) > 0 {
		c.emit(ast.Clause{
			Head:     ast.NewAtom("excluded", varP),
			Premises: []ast.Term{ast.NewAtom("exclusion_applies", varP, wild)},
		})
	}

	aggregate := "all_requirements_met"
	if c.def.Eligibility.Logic == scheme.LogicAny {
		aggregate = "some_requirement_met"
	}
	c.emit(ast.Clause{
		Head: ast.NewAtom("eligible", varP),
		Premises: []ast.Term{
			ast.NewAtom("applicant", varP),
			ast.NegAtom{Atom: ast.NewAtom("excluded", varP)},
			ast.NewAtom(aggregate, varP),
		},
	})
}

// ruleClauses translates one rule into clauses deriving head. The dispatch is
// exhaustive over the operator table per data type; anything outside it is a
// CompileError.
func (c *compiler) ruleClauses(head ast.Atom, rule scheme.Rule, sym string) error {
	pred := c.fieldByPath[rule.Field].Predicate
	fact := ast.NewAtom(pred, varP, varV)

	switch rule.DataType {
	case scheme.TypeString:
		return c.stringClauses(head, fact, pred, rule, sym)
	case scheme.TypeNumber:
		return c.numberClauses(head, fact, rule)
	case scheme.TypeBoolean:
		return c.booleanClauses(head, fact, pred, rule)
	case scheme.TypeDate:
		return c.dateClauses(head, fact, rule)
	case scheme.TypeArray:
		return c.arrayClauses(head, pred, rule, sym)
	default:
		return c.unsupported(rule, "data type")
	}
}

func (c *compiler) stringClauses(head, fact ast.Atom, pred string, rule scheme.Rule, sym string) error {
	lower := func(v any) ast.Constant {
		return ast.String(strings.ToLower(fmt.Sprint(v)))
	}

	switch rule.Operator {
	case scheme.OpEqual:
		c.emit(ast.Clause{Head: head, Premises: []ast.Term{ast.NewAtom(pred, varP, lower(rule.Value))}})
	case scheme.OpNotEqual:
		c.emit(ast.Clause{Head: head, Premises: []ast.Term{fact, ast.Ineq{Left: varV, Right: lower(rule.Value)}}})
	case scheme.OpContains:
		c.emit(ast.Clause{Head: head, Premises: []ast.Term{fact, ast.NewAtom(":string:contains", varV, lower(rule.Value))}})
	case scheme.OpStartsWith:
		c.emit(ast.Clause{Head: head, Premises: []ast.Term{fact, ast.NewAtom(":string:starts_with", varV, lower(rule.Value))}})
	case scheme.OpEndsWith:
		c.emit(ast.Clause{Head: head, Premises: []ast.Term{fact, ast.NewAtom(":string:ends_with", varV, lower(rule.Value))}})
	case scheme.OpNotContains:
		aux := ast.NewAtom("aux_"+sym+"_hit", varP)
		c.emit(ast.Clause{Head: aux, Premises: []ast.Term{fact, ast.NewAtom(":string:contains", varV, lower(rule.Value))}})
		c.emit(ast.Clause{Head: head, Premises: []ast.Term{ast.NewAtom(pred, varP, wild), ast.NegAtom{Atom: aux}}})
	case scheme.OpIn, scheme.OpNotIn:
		members, err := c.listValue(rule)
		if err != nil {
			return err
		}
		if rule.Operator == scheme.OpIn {
			// Membership is a disjunction, so one clause per member.
			for _, m := range members {
				c.emit(ast.Clause{Head: head, Premises: []ast.Term{ast.NewAtom(pred, varP, lower(m))}})
			}
			break
		}
		premises := []ast.Term{fact}
		for _, m := range members {
			premises = append(premises, ast.Ineq{Left: varV, Right: lower(m)})
		}
		c.emit(ast.Clause{Head: head, Premises: premises})
	default:
		return c.unsupported(rule, "string")
	}
	return nil
}

func (c *compiler) numberClauses(head, fact ast.Atom, rule scheme.Rule) error {
	bound := func(v any) (ast.Constant, error) {
		f, err := eval.CoerceFloat(v)
		if err != nil {
			return ast.Constant{}, c.badValue(rule, err)
		}
		return ScaledNumber(f), nil
	}

	switch rule.Operator {
	case scheme.OpEqual, scheme.OpNotEqual:
		f, err := eval.CoerceFloat(rule.Value)
		if err != nil {
			return c.badValue(rule, err)
		}
		s := int64(math.Round(f * numberScale))
		lo, hi := ast.Number(s-1), ast.Number(s+1)
		if rule.Operator == scheme.OpEqual {
			// Equality is the open tolerance interval, one scaled unit wide.
			c.emit(ast.Clause{Head: head, Premises: []ast.Term{fact, ast.NewAtom(":gt", varV, lo), ast.NewAtom(":lt", varV, hi)}})
		} else {
			c.emit(ast.Clause{Head: head, Premises: []ast.Term{fact, ast.NewAtom(":le", varV, lo)}})
			c.emit(ast.Clause{Head: head, Premises: []ast.Term{fact, ast.NewAtom(":ge", varV, hi)}})
		}
	case scheme.OpGreater, scheme.OpGreaterEq, scheme.OpLess, scheme.OpLessEq:
		v, err := bound(rule.Value)
		if err != nil {
			return err
		}
		builtin := map[scheme.Operator]string{
			scheme.OpGreater:   ":gt",
			scheme.OpGreaterEq: ":ge",
			scheme.OpLess:      ":lt",
			scheme.OpLessEq:    ":le",
		}[rule.Operator]
		c.emit(ast.Clause{Head: head, Premises: []ast.Term{fact, ast.NewAtom(builtin, varV, v)}})
	case scheme.OpBetween:
		members, err := c.listValue(rule)
		if err != nil {
			return err
		}
		if len(members) != 2 {
			return c.unsupported(rule, "between needs two bounds for")
		}
		lo, err := bound(members[0])
		if err != nil {
			return err
		}
		hi, err := bound(members[1])
		if err != nil {
			return err
		}
		c.emit(ast.Clause{Head: head, Premises: []ast.Term{fact, ast.NewAtom(":ge", varV, lo), ast.NewAtom(":le", varV, hi)}})
	case scheme.OpIn, scheme.OpNotIn:
		members, err := c.listValue(rule)
		if err != nil {
			return err
		}
		consts := make([]ast.Constant, len(members))
		for i, m := range members {
			v, err := bound(m)
			if err != nil {
				return err
			}
			consts[i] = v
		}
		if rule.Operator == scheme.OpIn {
			// Exact membership, one clause per member. No tolerance here;
			// the direct evaluator compares in-lists exactly too.
			for _, v := range consts {
				c.emit(ast.Clause{Head: head, Premises: []ast.Term{ast.NewAtom(fact.Predicate.Symbol, varP, v)}})
			}
			break
		}
		premises := []ast.Term{fact}
		for _, v := range consts {
			premises = append(premises, ast.Ineq{Left: varV, Right: v})
		}
		c.emit(ast.Clause{Head: head, Premises: premises})
	default:
		return c.unsupported(rule, "number")
	}
	return nil
}

func (c *compiler) booleanClauses(head, fact ast.Atom, pred string, rule scheme.Rule) error {
	want := falseName
	if eval.CoerceBool(rule.Value) {
		want = trueName
	}
	switch rule.Operator {
	case scheme.OpEqual:
		c.emit(ast.Clause{Head: head, Premises: []ast.Term{ast.NewAtom(pred, varP, want)}})
	case scheme.OpNotEqual:
		c.emit(ast.Clause{Head: head, Premises: []ast.Term{fact, ast.Ineq{Left: varV, Right: want}}})
	default:
		return c.unsupported(rule, "boolean")
	}
	return nil
}

// dateClauses compare dates as epoch seconds. Equality widens to the whole
// UTC day of the expected value, matching the direct evaluator's date-only
// equality; the ordering operators compare full timestamps.
func (c *compiler) dateClauses(head, fact ast.Atom, rule scheme.Rule) error {
	epoch := func(v any) (int64, error) {
		t, err := eval.ParseDate(v)
		if err != nil {
			return 0, c.badValue(rule, err)
		}
		return t.Unix(), nil
	}

	switch rule.Operator {
	case scheme.OpEqual, scheme.OpNotEqual:
		t, err := eval.ParseDate(rule.Value)
		if err != nil {
			return c.badValue(rule, err)
		}
		day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC).Unix()
		start, end := ast.Number(day), ast.Number(day+24*60*60)
		if rule.Operator == scheme.OpEqual {
			c.emit(ast.Clause{Head: head, Premises: []ast.Term{fact, ast.NewAtom(":ge", varV, start), ast.NewAtom(":lt", varV, end)}})
		} else {
			c.emit(ast.Clause{Head: head, Premises: []ast.Term{fact, ast.NewAtom(":lt", varV, start)}})
			c.emit(ast.Clause{Head: head, Premises: []ast.Term{fact, ast.NewAtom(":ge", varV, end)}})
		}
	case scheme.OpBefore, scheme.OpLess, scheme.OpAfter, scheme.OpGreater:
		ts, err := epoch(rule.Value)
		if err != nil {
			return err
		}
		builtin := ":lt"
		if rule.Operator == scheme.OpAfter || rule.Operator == scheme.OpGreater {
			builtin = ":gt"
		}
		c.emit(ast.Clause{Head: head, Premises: []ast.Term{fact, ast.NewAtom(builtin, varV, ast.Number(ts))}})
	case scheme.OpBetween:
		members, err := c.listValue(rule)
		if err != nil {
			return err
		}
		if len(members) != 2 {
			return c.unsupported(rule, "between needs two bounds for")
		}
		lo, err := epoch(members[0])
		if err != nil {
			return err
		}
		hi, err := epoch(members[1])
		if err != nil {
			return err
		}
		c.emit(ast.Clause{Head: head, Premises: []ast.Term{fact, ast.NewAtom(":ge", varV, ast.Number(lo)), ast.NewAtom(":le", varV, ast.Number(hi))}})
	default:
		return c.unsupported(rule, "date")
	}
	return nil
}

// arrayClauses work over itemized facts, one per element. Negative forms
// guard on field presence so a missing field still fails the requirement.
func (c *compiler) arrayClauses(head ast.Atom, pred string, rule scheme.Rule, sym string) error {
	present := ast.NewAtom(pred, varP, wild)

	switch rule.Operator {
	case scheme.OpContains, scheme.OpNotContains:
		elem, err := c.elementConstant(rule, rule.Value)
		if err != nil {
			return err
		}
		if rule.Operator == scheme.OpContains {
			c.emit(ast.Clause{Head: head, Premises: []ast.Term{ast.NewAtom(pred, varP, elem)}})
			break
		}
		aux := ast.NewAtom("aux_"+sym+"_hit", varP)
		c.emit(ast.Clause{Head: aux, Premises: []ast.Term{ast.NewAtom(pred, varP, elem)}})
		c.emit(ast.Clause{Head: head, Premises: []ast.Term{present, ast.NegAtom{Atom: aux}}})
	case scheme.OpContainsAll:
		members, err := c.listValue(rule)
		if err != nil {
			return err
		}
		premises := make([]ast.Term, 0, len(members))
		for _, m := range members {
			elem, err := c.elementConstant(rule, m)
			if err != nil {
				return err
			}
			premises = append(premises, ast.NewAtom(pred, varP, elem))
		}
		if len(premises) == 0 {
			premises = []ast.Term{present}
		}
		c.emit(ast.Clause{Head: head, Premises: premises})
	case scheme.OpContainsAny:
		members, err := c.listValue(rule)
		if err != nil {
			return err
		}
		for _, m := range members {
			elem, err := c.elementConstant(rule, m)
			if err != nil {
				return err
			}
			c.emit(ast.Clause{Head: head, Premises: []ast.Term{ast.NewAtom(pred, varP, elem)}})
		}
	case scheme.OpSize, scheme.OpSizeGt, scheme.OpSizeLt:
		f, err := eval.CoerceFloat(rule.Value)
		if err != nil {
			return c.badValue(rule, err)
		}
		n := ast.Number(int64(f))
		count := "aux_" + sym + "_count"
		c.emitCountPipe(count, pred)
		switch rule.Operator {
		case scheme.OpSize:
			c.emit(ast.Clause{Head: head, Premises: []ast.Term{ast.NewAtom(count, varP, n)}})
		case scheme.OpSizeGt:
			c.emit(ast.Clause{Head: head, Premises: []ast.Term{ast.NewAtom(count, varP, varC), ast.NewAtom(":gt", varC, n)}})
		default:
			c.emit(ast.Clause{Head: head, Premises: []ast.Term{ast.NewAtom(count, varP, varC), ast.NewAtom(":lt", varC, n)}})
		}
	case scheme.OpEqual:
		// Set equality: every expected element present and nothing extra.
		members, err := c.listValue(rule)
		if err != nil {
			return err
		}
		extra := ast.NewAtom("aux_"+sym+"_extra", varP)
		extraPremises := []ast.Term{ast.NewAtom(pred, varP, varV)}
		premises := []ast.Term{present}
		for _, m := range members {
			elem, err := c.elementConstant(rule, m)
			if err != nil {
				return err
			}
			extraPremises = append(extraPremises, ast.Ineq{Left: varV, Right: elem})
			premises = append(premises, ast.NewAtom(pred, varP, elem))
		}
		c.emit(ast.Clause{Head: extra, Premises: extraPremises})
		premises = append(premises, ast.NegAtom{Atom: extra})
		c.emit(ast.Clause{Head: head, Premises: premises})
	default:
		return c.unsupported(rule, "array")
	}
	return nil
}

// elementConstant encodes one array element the way the session asserts it:
// numbers as fixed-point milli-units, booleans as name constants, strings
// verbatim.
func (c *compiler) elementConstant(rule scheme.Rule, v any) (ast.Constant, error) {
	switch e := v.(type) {
	case string:
		return ast.String(e), nil
	case bool:
		if e {
			return trueName, nil
		}
		return falseName, nil
	case int, int32, int64, float32, float64:
		f, err := eval.CoerceFloat(e)
		if err != nil {
			return ast.Constant{}, c.badValue(rule, err)
		}
		return ScaledNumber(f), nil
	default:
		return ast.Constant{}, c.unsupported(rule, fmt.Sprintf("array element %T in", v))
	}
}

func (c *compiler) listValue(rule scheme.Rule) ([]any, error) {
	members, ok := rule.Value.([]any)
	if !ok {
		return nil, &CompileError{
			Scheme: c.def.Code,
			Detail: fmt.Sprintf("rule %s: operator %s requires a list value", rule.RuleID, rule.Operator),
		}
	}
	return members, nil
}

func (c *compiler) unsupported(rule scheme.Rule, what string) error {
	return &CompileError{
		Scheme: c.def.Code,
		Detail: fmt.Sprintf("rule %s: operator %s not supported for %s", rule.RuleID, rule.Operator, what),
	}
}

func (c *compiler) badValue(rule scheme.Rule, err error) error {
	return &CompileError{
		Scheme: c.def.Code,
		Detail: fmt.Sprintf("rule %s: %v", rule.RuleID, err),
	}
}

// emit renders one clause. Rendering is done here rather than through
// Clause.String so the textual form stays fixed across mangle versions; the
// parse step re-checks everything anyway.
func (c *compiler) emit(clause ast.Clause) {
	if len(clause.Premises) == 0 {
		c.lines = append(c.lines, atomString(clause.Head)+".")
		return
	}
	parts := make([]string, len(clause.Premises))
	for i, p := range clause.Premises {
		parts[i] = termString(p)
	}
	c.lines = append(c.lines, fmt.Sprintf("%s :- %s.", atomString(clause.Head), strings.Join(parts, ", ")))
}

func termString(t ast.Term) string {
	switch x := t.(type) {
	case ast.Atom:
		return atomString(x)
	case ast.NegAtom:
		return "!" + atomString(x.Atom)
	case ast.Eq:
		return fmt.Sprintf("%s = %s", x.Left.String(), x.Right.String())
	case ast.Ineq:
		return fmt.Sprintf("%s != %s", x.Left.String(), x.Right.String())
	default:
		return fmt.Sprint(t)
	}
}

func atomString(a ast.Atom) string {
	parts := make([]string, len(a.Args))
	for i, arg := range a.Args {
		parts[i] = arg.String()
	}
	return fmt.Sprintf("%s(%s)", a.Predicate.Symbol, strings.Join(parts, ", "))
}

// emitCountPipe renders a per-applicant element count. Transform nodes are
// awkward to build directly, so the pipe is rendered as text and verified by
// the parse step like everything else.
func (c *compiler) emitCountPipe(countPred, fieldPred string) {
	c.lines = append(c.lines, fmt.Sprintf(
		"%s(P, C) :- %s(P, V) |> do fn:group_by(P), let C = fn:count().",
		countPred, fieldPred))
}

// render assembles decls and clauses into one program. EDB predicates are
// declared so sessions can assert facts for them; derived predicates that may
// end up clause-less (zero rules, no exclusions) are declared too, keeping
// them queryable.
func (c *compiler) render() string {
	c.decls = []string{
		"Decl applicant(Id).",
		"Decl region(Id, Region).",
	}
	for _, f := range c.fields {
		c.decls = append(c.decls, fmt.Sprintf("Decl %s(Id, Value).", f.Predicate))
	}
	for _, d := range []string{
		"Decl requirement(Id, Req).",
		"Decl requirement_met(Id, Req).",
		"Decl requirement_failed(Id, Req).",
		"Decl some_requirement_met(Id).",
		"Decl some_requirement_failed(Id).",
		"Decl all_requirements_met(Id).",
		"Decl exclusion_applies(Id, Excl).",
		"Decl excluded(Id).",
		"Decl special_provision(Id, Region).",
		"Decl eligible(Id).",
	} {
		c.decls = append(c.decls, d)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "# Eligibility program for scheme %s.\n", c.def.Code)
	for _, d := range c.decls {
		sb.WriteString(d)
		sb.WriteString("\n")
	}
	sb.WriteString("\n")
	for _, l := range c.lines {
		sb.WriteString(l)
		sb.WriteString("\n")
	}
	return sb.String()
}
