package scheme

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const kisanDoc = `
schemes:
  - id: "scheme-001"
    code: "PM_KISAN"
    name: "PM Kisan Samman Nidhi"
    description: "Income support for farmer families"
    metadata:
      ministry: "Agriculture"
    eligibility:
      logic: ALL
      rules:
        - rule_id: "age_check"
          field: "age"
          operator: ">="
          value: 18
          data_type: "number"
          description: "Must be an adult"
        - field: "occupation"
          operator: "eq"
          value: "farmer"
        - field: "land.size_acres"
          operator: "between"
          value: [0.1, 5]
          data_type: "number"
      exclusion_criteria:
        - field: "income_tax_payer"
          operator: "=="
          value: true
          data_type: "boolean"
    special_provisions:
      - region: "North East"
        description: "Relaxed land ceiling for NE states"
    benefits:
      - "Rs 6000 per year in three installments"
    documents:
      - "Aadhaar card"
`

func TestParseFullDocument(t *testing.T) {
	def, err := Parse([]byte(kisanDoc))
	require.NoError(t, err)

	assert.Equal(t, "PM_KISAN", def.Code)
	assert.Equal(t, LogicAll, def.Eligibility.Logic)
	require.Len(t, def.Eligibility.Rules, 3)

	age := def.Eligibility.Rules[0]
	assert.Equal(t, "age_check", age.RuleID)
	assert.Equal(t, OpGreaterEq, age.Operator)
	assert.Equal(t, TypeNumber, age.DataType)
	assert.Equal(t, "Must be an adult", age.Description)

	occ := def.Eligibility.Rules[1]
	assert.Equal(t, "occupation_1", occ.RuleID, "generated id is field plus position")
	assert.Equal(t, OpEqual, occ.Operator, "eq alias")
	assert.Equal(t, TypeString, occ.DataType, "data type defaults to string")
	assert.Equal(t, "Check occupation == farmer", occ.Description)

	land := def.Eligibility.Rules[2]
	assert.Equal(t, OpBetween, land.Operator)
	assert.Equal(t, []any{0.1, 5}, land.Value)

	require.Len(t, def.Eligibility.ExclusionCriteria, 1)
	assert.Equal(t, TypeBoolean, def.Eligibility.ExclusionCriteria[0].DataType)

	require.Len(t, def.Provisions, 1)
	assert.Equal(t, "North East", def.Provisions[0].Region)
}

func TestParseGeneratedIDsAreStable(t *testing.T) {
	a, err := Parse([]byte(kisanDoc))
	require.NoError(t, err)
	b, err := Parse([]byte(kisanDoc))
	require.NoError(t, err)

	for i := range a.Eligibility.Rules {
		assert.Equal(t, a.Eligibility.Rules[i].RuleID, b.Eligibility.Rules[i].RuleID)
	}
}

func TestParseRejectsMalformedDocuments(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{
			name: "not yaml",
			doc:  "{{{{",
			want: "invalid document",
		},
		{
			name: "no schemes key",
			doc:  "other: thing",
			want: "missing 'schemes'",
		},
		{
			name: "unknown logic",
			doc: `
schemes:
  - code: "X"
    eligibility:
      logic: MOST
`,
			want: "unknown logic",
		},
		{
			name: "rule without field",
			doc: `
schemes:
  - code: "X"
    eligibility:
      rules:
        - operator: "=="
          value: 1
`,
			want: "no field",
		},
		{
			name: "unknown operator",
			doc: `
schemes:
  - code: "X"
    eligibility:
      rules:
        - field: "age"
          operator: "~~"
          value: 1
`,
			want: "unknown operator",
		},
		{
			name: "between without sequence",
			doc: `
schemes:
  - code: "X"
    eligibility:
      rules:
        - field: "age"
          operator: "between"
          value: 18
          data_type: "number"
`,
			want: "requires a sequence",
		},
		{
			name: "duplicate rule ids",
			doc: `
schemes:
  - code: "X"
    eligibility:
      rules:
        - rule_id: "r1"
          field: "age"
          operator: ">="
          value: 18
        - rule_id: "r1"
          field: "income"
          operator: "<"
          value: 100
`,
			want: "duplicate rule_id",
		},
		{
			name: "provision without region",
			doc: `
schemes:
  - code: "X"
    eligibility:
      logic: ALL
    special_provisions:
      - description: "orphan provision"
`,
			want: "without a region",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.doc))
			require.Error(t, err)
			var serr *SchemaError
			require.ErrorAs(t, err, &serr)
			assert.Contains(t, serr.Error(), tc.want)
		})
	}
}

func TestParseAllMultipleSchemes(t *testing.T) {
	doc := `
schemes:
  - code: "A"
    eligibility:
      logic: ALL
  - code: "B"
    eligibility:
      logic: ANY
`
	defs, err := ParseAll([]byte(doc))
	require.NoError(t, err)
	require.Len(t, defs, 2)
	assert.Equal(t, LogicAny, defs[1].Eligibility.Logic)
}
