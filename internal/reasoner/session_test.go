package reasoner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yojana/internal/applicant"
	"yojana/internal/eval"
	"yojana/internal/logic"
	"yojana/internal/scheme"
)

func kisanDefinition() *scheme.Definition {
	return &scheme.Definition{
		Code: "PM_KISAN",
		Eligibility: scheme.Eligibility{
			Logic: scheme.LogicAll,
			Rules: []scheme.Rule{
				{RuleID: "age", Field: "age", Operator: scheme.OpGreaterEq, Value: 18, DataType: scheme.TypeNumber, Description: "Must be an adult"},
				{RuleID: "occ", Field: "occupation", Operator: scheme.OpEqual, Value: "Farmer", DataType: scheme.TypeString, Description: "Must be a farmer"},
				{RuleID: "land", Field: "farm.land_size", Operator: scheme.OpBetween, Value: []any{0.1, 5}, DataType: scheme.TypeNumber, Description: "Land within ceiling"},
				{RuleID: "cat", Field: "category", Operator: scheme.OpIn, Value: []any{"SC", "ST", "OBC", "General"}, DataType: scheme.TypeString, Description: "Recognized category"},
				{RuleID: "docs", Field: "documents", Operator: scheme.OpContains, Value: "aadhaar", DataType: scheme.TypeArray, Description: "Aadhaar on file"},
			},
			ExclusionCriteria: []scheme.Rule{
				{RuleID: "tax", Field: "income_tax_payer", Operator: scheme.OpEqual, Value: true, DataType: scheme.TypeBoolean, Description: "Income tax payers are excluded"},
			},
		},
		Provisions: []scheme.Provision{
			{Region: "North East", Description: "Relaxed land ceiling"},
		},
	}
}

func eligibleRecord() applicant.Record {
	return applicant.Record{
		"age":        34,
		"occupation": "farmer",
		"farm":       map[string]any{"land_size": 2.5},
		"category":   "OBC",
		"documents":  []any{"aadhaar", "ration"},
		"region":     "Assam",
	}
}

func newSession(t *testing.T, def *scheme.Definition) *Session {
	t.Helper()
	prog, err := logic.Compile(def)
	require.NoError(t, err)
	sess, err := NewSession(prog, nil)
	require.NoError(t, err)
	return sess
}

func TestSessionEligible(t *testing.T) {
	sess := newSession(t, kisanDefinition())
	res, err := sess.Check("app-1", eligibleRecord())
	require.NoError(t, err)

	assert.True(t, res.IsEligible)
	assert.Equal(t, eval.BackendReasoner, res.Backend)
	assert.Equal(t, 100.0, res.Score)
	assert.Empty(t, res.Exclusions)
	assert.Empty(t, res.Provisions, "Assam is not a provision region")
	for _, v := range res.RuleResults {
		assert.True(t, v.Passed, "rule %s: %s", v.RuleID, v.Reason)
	}
}

func TestSessionExclusionDominates(t *testing.T) {
	rec := eligibleRecord()
	rec["income_tax_payer"] = "yes"

	sess := newSession(t, kisanDefinition())
	res, err := sess.Check("app-1", rec)
	require.NoError(t, err)

	assert.False(t, res.IsEligible)
	require.Len(t, res.Exclusions, 1)
	assert.Equal(t, "Income tax payers are excluded", res.Exclusions[0])
}

func TestSessionMissingFieldFails(t *testing.T) {
	rec := eligibleRecord()
	delete(rec, "occupation")

	sess := newSession(t, kisanDefinition())
	res, err := sess.Check("app-1", rec)
	require.NoError(t, err)

	assert.False(t, res.IsEligible)
	assert.Equal(t, []string{"occupation"}, res.MissingFields)
	for _, v := range res.RuleResults {
		if v.RuleID == "occ" {
			assert.False(t, v.Passed)
			assert.Equal(t, eval.MissingFieldReason, v.Reason)
		}
	}
}

func TestSessionProvisions(t *testing.T) {
	rec := eligibleRecord()
	rec["region"] = "north east"

	sess := newSession(t, kisanDefinition())
	res, err := sess.Check("app-1", rec)
	require.NoError(t, err)
	require.Len(t, res.Provisions, 1)
	assert.Equal(t, "North East", res.Provisions[0].Region)
}

func TestSessionIsSingleUse(t *testing.T) {
	sess := newSession(t, kisanDefinition())
	require.NoError(t, sess.AssertApplicant("app-1", eligibleRecord()))
	err := sess.AssertApplicant("app-2", eligibleRecord())
	assert.ErrorContains(t, err, "already holds applicant")
}

func TestSessionLifecycleOrder(t *testing.T) {
	sess := newSession(t, kisanDefinition())
	assert.Error(t, sess.Evaluate(), "no applicant yet")
	_, err := sess.Eligible()
	assert.Error(t, err)
	_, err = sess.Explain()
	assert.Error(t, err)
}

// Both backends must return the same verdict for the same scheme and record.
func TestBackendParity(t *testing.T) {
	def := kisanDefinition()

	records := map[string]applicant.Record{
		"eligible":        eligibleRecord(),
		"underage":        merge(eligibleRecord(), "age", 16),
		"age boundary":    merge(eligibleRecord(), "age", 18),
		"over ceiling edge": merge(eligibleRecord(), "farm", map[string]any{"land_size": 5.001}),
		"over ceiling":    merge(eligibleRecord(), "farm", map[string]any{"land_size": 7}),
		"wrong category":  merge(eligibleRecord(), "category", "other"),
		"case difference": merge(eligibleRecord(), "occupation", "FARMER"),
		"excluded":        merge(eligibleRecord(), "income_tax_payer", true),
		"missing docs":    without(eligibleRecord(), "documents"),
		"empty record":    {},
	}

	for name, rec := range records {
		t.Run(name, func(t *testing.T) {
			direct := eval.Check(def, rec)

			sess := newSession(t, def)
			reasoned, err := sess.Check("app-1", rec)
			require.NoError(t, err)

			assert.Equal(t, direct.IsEligible, reasoned.IsEligible)
			assert.Equal(t, direct.Score, reasoned.Score)
			assert.Equal(t, direct.MissingFields, reasoned.MissingFields)

			require.Len(t, reasoned.RuleResults, len(direct.RuleResults))
			for i := range direct.RuleResults {
				assert.Equal(t, direct.RuleResults[i].Passed, reasoned.RuleResults[i].Passed,
					"rule %s", direct.RuleResults[i].RuleID)
			}
		})
	}
}

func TestBackendParityAnyLogic(t *testing.T) {
	def := kisanDefinition()
	def.Eligibility.Logic = scheme.LogicAny

	rec := applicant.Record{"age": 40} // one passing rule is enough under ANY
	direct := eval.Check(def, rec)

	sess := newSession(t, def)
	reasoned, err := sess.Check("app-1", rec)
	require.NoError(t, err)

	assert.True(t, direct.IsEligible)
	assert.Equal(t, direct.IsEligible, reasoned.IsEligible)
	assert.Equal(t, direct.Score, reasoned.Score)
}

// Numeric facts are asserted as fixed-point milli-units, so boundary values
// must land on the same side of a bound in both backends.
func TestSessionNumericBoundaries(t *testing.T) {
	def := &scheme.Definition{
		Code: "NUM",
		Eligibility: scheme.Eligibility{
			Logic: scheme.LogicAll,
			Rules: []scheme.Rule{
				{RuleID: "exact", Field: "land", Operator: scheme.OpEqual, Value: 25, DataType: scheme.TypeNumber},
			},
		},
	}

	tests := []struct {
		name string
		land any
		pass bool
	}{
		{"exact value", 25, true},
		{"within tolerance above", 25.0004, true},
		{"within tolerance below", 24.9996, true},
		{"outside tolerance above", 25.002, false},
		{"outside tolerance below", 24.998, false},
		{"integer string", "25", true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := applicant.Record{"land": tc.land}
			direct := eval.Check(def, rec)

			sess := newSession(t, def)
			reasoned, err := sess.Check("app-1", rec)
			require.NoError(t, err)

			assert.Equal(t, tc.pass, reasoned.IsEligible)
			assert.Equal(t, direct.IsEligible, reasoned.IsEligible)
		})
	}
}

func TestSessionBetweenBounds(t *testing.T) {
	def := &scheme.Definition{
		Code: "RANGE",
		Eligibility: scheme.Eligibility{
			Logic: scheme.LogicAll,
			Rules: []scheme.Rule{
				{RuleID: "land", Field: "land", Operator: scheme.OpBetween, Value: []any{0.1, 5}, DataType: scheme.TypeNumber},
			},
		},
	}

	tests := []struct {
		name string
		land any
		pass bool
	}{
		{"interior", 2.5, true},
		{"lower bound inclusive", 0.1, true},
		{"upper bound inclusive", 5, true},
		{"below range", 0.05, false},
		{"above range", 5.001, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := applicant.Record{"land": tc.land}
			direct := eval.Check(def, rec)

			sess := newSession(t, def)
			reasoned, err := sess.Check("app-1", rec)
			require.NoError(t, err)

			assert.Equal(t, tc.pass, reasoned.IsEligible)
			assert.Equal(t, direct.IsEligible, reasoned.IsEligible)
		})
	}
}

func merge(rec applicant.Record, key string, value any) applicant.Record {
	rec[key] = value
	return rec
}

func without(rec applicant.Record, key string) applicant.Record {
	delete(rec, key)
	return rec
}
