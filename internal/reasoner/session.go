// Package reasoner runs compiled eligibility programs through the mangle
// engine. Every evaluation gets its own Session with a fresh fact store, so
// applicant facts from one request can never leak into another and no global
// state needs locking.
package reasoner

import (
	"fmt"
	"strings"

	"github.com/google/mangle/analysis"
	"github.com/google/mangle/ast"
	_ "github.com/google/mangle/builtin"
	mengine "github.com/google/mangle/engine"
	"github.com/google/mangle/factstore"
	"github.com/google/mangle/parse"
	"go.uber.org/zap"

	"yojana/internal/applicant"
	"yojana/internal/eval"
	"yojana/internal/logic"
	"yojana/internal/scheme"
)

// Session holds one compiled program, one fact store, and one applicant.
// Use NewSession per evaluation and discard it afterwards.
type Session struct {
	prog        *logic.Program
	info        *analysis.ProgramInfo
	store       factstore.FactStoreWithRemove
	preds       map[string]ast.PredicateSym
	exclusionBy map[string]string // name constant symbol -> exclusion rule id
	logger      *zap.Logger

	applicantID string
	record      applicant.Record
	missing     map[string]bool
	evaluated   bool
}

// NewSession re-analyzes the program source into a fresh store. Compile
// already verified the source, so an analysis failure here means the Program
// was tampered with or built by hand.
func NewSession(prog *logic.Program, logger *zap.Logger) (*Session, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	unit, err := parse.Unit(strings.NewReader(prog.Source))
	if err != nil {
		return nil, fmt.Errorf("reasoner: parse program for scheme %s: %w", prog.Scheme.Code, err)
	}
	info, err := analysis.AnalyzeOneUnit(unit, nil)
	if err != nil {
		return nil, fmt.Errorf("reasoner: analyze program for scheme %s: %w", prog.Scheme.Code, err)
	}

	preds := make(map[string]ast.PredicateSym, len(info.Decls))
	for sym := range info.Decls {
		preds[sym.Symbol] = sym
	}
	exclusionBy := make(map[string]string, len(prog.ExclusionSyms))
	for ruleID, name := range prog.ExclusionSyms {
		exclusionBy[name.Symbol] = ruleID
	}

	return &Session{
		prog:        prog,
		info:        info,
		store:       factstore.NewSimpleInMemoryStore(),
		preds:       preds,
		exclusionBy: exclusionBy,
		logger:      logger,
		missing:     make(map[string]bool),
	}, nil
}

// AssertApplicant loads one applicant's facts. Fields that are absent or that
// resist coercion to their declared type are skipped and logged; the
// corresponding requirements then simply fail to derive.
func (s *Session) AssertApplicant(id string, rec applicant.Record) error {
	if s.applicantID != "" {
		return fmt.Errorf("reasoner: session already holds applicant %s", s.applicantID)
	}
	s.applicantID = id
	s.record = rec

	idc := ast.String(id)
	s.add(ast.NewAtom("applicant", idc))

	if raw, ok := rec.Resolve("region"); ok {
		s.add(ast.NewAtom("region", idc, ast.String(strings.ToLower(fmt.Sprint(raw)))))
	} else if raw, ok := rec.Resolve("state"); ok {
		s.add(ast.NewAtom("region", idc, ast.String(strings.ToLower(fmt.Sprint(raw)))))
	}

	for _, f := range s.prog.Fields {
		raw, ok := rec.Resolve(f.Path)
		if !ok {
			s.missing[f.Path] = true
			s.logger.Debug("field absent, skipping",
				zap.String("scheme", s.prog.Scheme.Code),
				zap.String("field", f.Path))
			continue
		}
		if err := s.assertField(idc, f, raw); err != nil {
			s.logger.Debug("field not assertable, skipping",
				zap.String("scheme", s.prog.Scheme.Code),
				zap.String("field", f.Path),
				zap.Error(err))
		}
	}
	return nil
}

func (s *Session) assertField(idc ast.Constant, f logic.FieldSpec, raw any) error {
	switch f.DataType {
	case scheme.TypeString:
		s.add(ast.NewAtom(f.Predicate, idc, ast.String(strings.ToLower(fmt.Sprint(raw)))))
	case scheme.TypeNumber:
		v, err := eval.CoerceFloat(raw)
		if err != nil {
			return err
		}
		s.add(ast.NewAtom(f.Predicate, idc, logic.ScaledNumber(v)))
	case scheme.TypeBoolean:
		s.add(ast.NewAtom(f.Predicate, idc, boolConstant(eval.CoerceBool(raw))))
	case scheme.TypeDate:
		t, err := eval.ParseDate(raw)
		if err != nil {
			return err
		}
		s.add(ast.NewAtom(f.Predicate, idc, ast.Number(t.Unix())))
	case scheme.TypeArray:
		for _, elem := range eval.CoerceArray(raw) {
			c, err := elementConstant(elem)
			if err != nil {
				return err
			}
			s.add(ast.NewAtom(f.Predicate, idc, c))
		}
	default:
		return fmt.Errorf("unknown data type %q", f.DataType)
	}
	return nil
}

// Evaluate runs the program to fixpoint over the asserted facts.
func (s *Session) Evaluate() error {
	if s.applicantID == "" {
		return fmt.Errorf("reasoner: no applicant asserted")
	}
	if _, err := mengine.EvalProgramWithStats(s.info, s.store); err != nil {
		return fmt.Errorf("reasoner: eval scheme %s: %w", s.prog.Scheme.Code, err)
	}
	s.evaluated = true
	return nil
}

// Eligible reports whether eligible/1 was derived for the session applicant.
func (s *Session) Eligible() (bool, error) {
	if !s.evaluated {
		return false, fmt.Errorf("reasoner: Evaluate must run first")
	}
	return s.holds("eligible"), nil
}

// Explain reconstructs per-rule verdicts from the derived requirement_met,
// exclusion_applies and special_provision facts and routes them through the
// shared synthesizer, so both backends produce the same result shape.
func (s *Session) Explain() (*eval.Result, error) {
	if !s.evaluated {
		return nil, fmt.Errorf("reasoner: Evaluate must run first")
	}

	def := s.prog.Scheme
	verdicts := make([]eval.RuleVerdict, 0, len(def.Eligibility.Rules))
	for _, rule := range def.Eligibility.Rules {
		verdicts = append(verdicts, s.verdict(rule, s.metRequirement(rule.RuleID)))
	}

	aggregate := "all_requirements_met"
	if def.Eligibility.Logic == scheme.LogicAny {
		aggregate = "some_requirement_met"
	}
	rulesMet := s.holds(aggregate)

	var exclusions []eval.RuleVerdict
	for _, atom := range s.facts("exclusion_applies") {
		if len(atom.Args) != 2 || !s.isSessionApplicant(atom.Args[0]) {
			continue
		}
		sym := constantSymbol(atom.Args[1])
		ruleID, ok := s.exclusionBy[sym]
		if !ok {
			continue
		}
		for _, ex := range def.Eligibility.ExclusionCriteria {
			if ex.RuleID == ruleID {
				exclusions = append(exclusions, s.verdict(ex, true))
				break
			}
		}
	}

	var provisions []scheme.Provision
	for _, atom := range s.facts("special_provision") {
		if len(atom.Args) != 2 || !s.isSessionApplicant(atom.Args[0]) {
			continue
		}
		if p, ok := s.prog.ProvisionSyms[constantSymbol(atom.Args[1])]; ok {
			provisions = append(provisions, p)
		}
	}

	return eval.Synthesize(def, eval.BackendReasoner, verdicts, rulesMet, exclusions, provisions), nil
}

// Check is the whole session lifecycle in one call.
func (s *Session) Check(id string, rec applicant.Record) (*eval.Result, error) {
	if err := s.AssertApplicant(id, rec); err != nil {
		return nil, err
	}
	if err := s.Evaluate(); err != nil {
		return nil, err
	}
	return s.Explain()
}

func (s *Session) verdict(rule scheme.Rule, passed bool) eval.RuleVerdict {
	v := eval.RuleVerdict{
		RuleID:   rule.RuleID,
		Field:    rule.Field,
		Operator: rule.Operator,
		Expected: rule.Value,
		Passed:   passed,
	}
	actual, ok := s.record.Resolve(rule.Field)
	if ok {
		v.Actual = actual
	}
	if passed {
		return v
	}
	if s.missing[rule.Field] || !ok {
		v.Reason = eval.MissingFieldReason
	} else {
		v.Reason = eval.FailureReason(rule, actual)
	}
	return v
}

func (s *Session) metRequirement(ruleID string) bool {
	name, ok := s.prog.RuleSyms[ruleID]
	if !ok {
		return false
	}
	for _, atom := range s.facts("requirement_met") {
		if len(atom.Args) == 2 && s.isSessionApplicant(atom.Args[0]) && constantSymbol(atom.Args[1]) == name.Symbol {
			return true
		}
	}
	return false
}

// holds reports whether pred(applicant) was derived.
func (s *Session) holds(pred string) bool {
	for _, atom := range s.facts(pred) {
		if len(atom.Args) >= 1 && s.isSessionApplicant(atom.Args[0]) {
			return true
		}
	}
	return false
}

func (s *Session) facts(pred string) []ast.Atom {
	sym, ok := s.preds[pred]
	if !ok {
		return nil
	}
	var out []ast.Atom
	_ = s.store.GetFacts(ast.NewQuery(sym), func(atom ast.Atom) error {
		out = append(out, atom)
		return nil
	})
	return out
}

func (s *Session) isSessionApplicant(arg ast.BaseTerm) bool {
	c, ok := arg.(ast.Constant)
	if !ok {
		return false
	}
	want := ast.String(s.applicantID)
	return c.String() == want.String()
}

func (s *Session) add(atom ast.Atom) {
	s.store.Add(atom)
}

func constantSymbol(arg ast.BaseTerm) string {
	if c, ok := arg.(ast.Constant); ok {
		return c.Symbol
	}
	return ""
}

func boolConstant(v bool) ast.Constant {
	name := "/false"
	if v {
		name = "/true"
	}
	c, err := ast.Name(name)
	if err != nil {
		return ast.String(name)
	}
	return c
}

func elementConstant(v any) (ast.Constant, error) {
	switch e := v.(type) {
	case string:
		return ast.String(e), nil
	case bool:
		return boolConstant(e), nil
	case int, int32, int64, float32, float64:
		f, err := eval.CoerceFloat(e)
		if err != nil {
			return ast.Constant{}, err
		}
		return logic.ScaledNumber(f), nil
	default:
		return ast.Constant{}, fmt.Errorf("unsupported array element %T", v)
	}
}
