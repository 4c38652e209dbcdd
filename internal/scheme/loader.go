package scheme

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Document mirrors the on-disk scheme source. YAML is a superset of JSON, so
// both formats load through the same path.
type document struct {
	Schemes []schemeDoc `yaml:"schemes"`
}

type schemeDoc struct {
	ID                string            `yaml:"id"`
	Code              string            `yaml:"code"`
	Name              string            `yaml:"name"`
	Description       string            `yaml:"description"`
	Metadata          map[string]string `yaml:"metadata"`
	Eligibility       eligibilityDoc    `yaml:"eligibility"`
	SpecialProvisions []provisionDoc    `yaml:"special_provisions"`
	Benefits          []string          `yaml:"benefits"`
	Documents         []string          `yaml:"documents"`
}

type eligibilityDoc struct {
	Logic             string    `yaml:"logic"`
	Rules             []ruleDoc `yaml:"rules"`
	RequiredCriteria  []string  `yaml:"required_criteria"`
	ExclusionCriteria []ruleDoc `yaml:"exclusion_criteria"`
}

type ruleDoc struct {
	RuleID      string `yaml:"rule_id"`
	Field       string `yaml:"field"`
	Operator    string `yaml:"operator"`
	Value       any    `yaml:"value"`
	DataType    string `yaml:"data_type"`
	Description string `yaml:"description"`
}

type provisionDoc struct {
	Region      string `yaml:"region"`
	Description string `yaml:"description"`
}

// Parse reads a scheme document and returns its first scheme. It is a pure
// function; caching policy belongs to the registry.
func Parse(src []byte) (*Definition, error) {
	defs, err := ParseAll(src)
	if err != nil {
		return nil, err
	}
	return defs[0], nil
}

// ParseAll reads a scheme document containing one or more schemes.
func ParseAll(src []byte) ([]*Definition, error) {
	var doc document
	if err := yaml.Unmarshal(src, &doc); err != nil {
		return nil, &SchemaError{Detail: fmt.Sprintf("invalid document: %v", err)}
	}
	if len(doc.Schemes) == 0 {
		return nil, &SchemaError{Detail: "missing 'schemes' key or empty scheme list"}
	}

	defs := make([]*Definition, 0, len(doc.Schemes))
	for _, sd := range doc.Schemes {
		def, err := buildDefinition(sd)
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	return defs, nil
}

// ParseFile loads a scheme document from disk.
func ParseFile(path string) ([]*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scheme file: %w", err)
	}
	return ParseAll(data)
}

func buildDefinition(sd schemeDoc) (*Definition, error) {
	name := sd.Code
	if name == "" {
		name = sd.Name
	}

	logic := LogicAll
	switch sd.Eligibility.Logic {
	case "", "ALL", "all":
		logic = LogicAll
	case "ANY", "any":
		logic = LogicAny
	default:
		return nil, &SchemaError{Scheme: name, Detail: fmt.Sprintf("unknown logic %q", sd.Eligibility.Logic)}
	}

	rules, err := buildRules(name, sd.Eligibility.Rules)
	if err != nil {
		return nil, err
	}
	exclusions, err := buildRules(name, sd.Eligibility.ExclusionCriteria)
	if err != nil {
		return nil, err
	}

	provisions := make([]Provision, 0, len(sd.SpecialProvisions))
	for _, p := range sd.SpecialProvisions {
		if p.Region == "" {
			return nil, &SchemaError{Scheme: name, Detail: "special provision without a region"}
		}
		provisions = append(provisions, Provision{Region: p.Region, Description: p.Description})
	}

	return &Definition{
		ID:          sd.ID,
		Code:        sd.Code,
		Name:        sd.Name,
		Description: sd.Description,
		Metadata:    sd.Metadata,
		Eligibility: Eligibility{
			Logic:             logic,
			Rules:             rules,
			RequiredCriteria:  sd.Eligibility.RequiredCriteria,
			ExclusionCriteria: exclusions,
		},
		Provisions: provisions,
		Benefits:   sd.Benefits,
		Documents:  sd.Documents,
	}, nil
}

func buildRules(schemeName string, docs []ruleDoc) ([]Rule, error) {
	rules := make([]Rule, 0, len(docs))
	seen := make(map[string]struct{}, len(docs))

	for i, rd := range docs {
		if rd.Field == "" {
			return nil, &SchemaError{Scheme: schemeName, Detail: fmt.Sprintf("rule %d has no field", i)}
		}

		op, err := ParseOperator(rd.Operator)
		if err != nil {
			return nil, &SchemaError{Scheme: schemeName, Detail: fmt.Sprintf("rule %d (%s): %v", i, rd.Field, err)}
		}
		dt, err := ParseDataType(rd.DataType)
		if err != nil {
			return nil, &SchemaError{Scheme: schemeName, Detail: fmt.Sprintf("rule %d (%s): %v", i, rd.Field, err)}
		}

		if requiresSequence(op) {
			if _, ok := rd.Value.([]any); !ok {
				return nil, &SchemaError{
					Scheme: schemeName,
					Detail: fmt.Sprintf("rule %d (%s): operator %s requires a sequence value, got %T", i, rd.Field, op, rd.Value),
				}
			}
		}

		// Stable generated id: field plus position, so re-parsing the same
		// document always yields the same ids.
		id := rd.RuleID
		if id == "" {
			id = fmt.Sprintf("%s_%d", rd.Field, i)
		}
		if _, dup := seen[id]; dup {
			return nil, &SchemaError{Scheme: schemeName, Detail: fmt.Sprintf("duplicate rule_id %q", id)}
		}
		seen[id] = struct{}{}

		desc := rd.Description
		if desc == "" {
			desc = fmt.Sprintf("Check %s %s %v", rd.Field, op, rd.Value)
		}

		rules = append(rules, Rule{
			RuleID:      id,
			Field:       rd.Field,
			Operator:    op,
			Value:       rd.Value,
			DataType:    dt,
			Description: desc,
		})
	}
	return rules, nil
}

// requiresSequence reports whether the operator's expected value must be a
// list in the document.
func requiresSequence(op Operator) bool {
	switch op {
	case OpBetween, OpIn, OpNotIn:
		return true
	}
	return false
}
