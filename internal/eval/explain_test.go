package eval

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yojana/internal/applicant"
	"yojana/internal/scheme"
)

func testScheme() *scheme.Definition {
	return &scheme.Definition{
		Code: "PM_KISAN",
		Name: "PM Kisan Samman Nidhi",
		Eligibility: scheme.Eligibility{
			Logic: scheme.LogicAll,
			Rules: []scheme.Rule{
				{RuleID: "age", Field: "age", Operator: scheme.OpGreaterEq, Value: 18, DataType: scheme.TypeNumber, Description: "Applicant must be an adult"},
				{RuleID: "occ", Field: "occupation", Operator: scheme.OpEqual, Value: "farmer", DataType: scheme.TypeString, Description: "Must be a farmer"},
				{RuleID: "land", Field: "farm.land_size", Operator: scheme.OpLessEq, Value: 5, DataType: scheme.TypeNumber, Description: "Land holding within ceiling"},
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

func TestScorePenalizesMandatoryFailure(t *testing.T) {
	pass := RuleVerdict{Passed: true}
	fail := RuleVerdict{Passed: false}

	assert.Equal(t, 100.0, score(scheme.LogicAll, []RuleVerdict{pass, pass}))
	assert.Equal(t, 100.0, score(scheme.LogicAll, nil), "no rules scores full")
	assert.Equal(t, 25.0, score(scheme.LogicAll, []RuleVerdict{pass, fail, pass, fail}), "half passed, then halved again under ALL")
	assert.Equal(t, 50.0, score(scheme.LogicAny, []RuleVerdict{pass, fail, pass, fail}), "no penalty under ANY")
	assert.Equal(t, 33.33, score(scheme.LogicAny, []RuleVerdict{pass, fail, fail}), "rounded to two decimals")
}

func TestSynthesizeEligible(t *testing.T) {
	def := testScheme()
	rec := applicant.Record{
		"age":        34,
		"occupation": "Farmer",
		"farm":       map[string]any{"land_size": 2.0},
		"region":     "north east",
	}

	res := Check(def, rec)
	assert.True(t, res.IsEligible)
	assert.Equal(t, 100.0, res.Score)
	assert.NotEmpty(t, res.EvaluationID)
	assert.Equal(t, BackendDirect, res.Backend)
	assert.Empty(t, res.Exclusions)
	assert.Equal(t, []string{}, res.MissingFields)
	require.Len(t, res.Provisions, 1)

	require.NotEmpty(t, res.Explanations)
	assert.Equal(t, "All 3 conditions met: 3 passed.", res.Explanations[0])
	assert.Contains(t, res.Explanations[1], "✓")
	assert.Contains(t, res.Explanations[len(res.Explanations)-1], "Relaxed land ceiling")
	assert.Equal(t, []string{"Eligible! Proceed with application."}, res.Recommendations)
}

func TestSynthesizeExclusionDominates(t *testing.T) {
	def := testScheme()
	rec := applicant.Record{
		"age":              34,
		"occupation":       "farmer",
		"farm":             map[string]any{"land_size": 2.0},
		"income_tax_payer": true,
	}

	res := Check(def, rec)
	assert.False(t, res.IsEligible, "all rules pass but the exclusion wins")
	require.Len(t, res.Exclusions, 1)
	assert.Equal(t, "Income tax payers are excluded", res.Exclusions[0])
	assert.Contains(t, res.Explanations, "Exclusion applies: Income tax payers are excluded")
	assert.Equal(t, []string{"An exclusion criterion applies; this scheme is not available."}, res.Recommendations)
}

func TestSynthesizeFailuresAndMissing(t *testing.T) {
	def := testScheme()
	rec := applicant.Record{
		"age":        16,
		"occupation": "weaver",
	}

	res := Check(def, rec)
	assert.False(t, res.IsEligible)
	assert.Equal(t, []string{"farm.land_size"}, res.MissingFields)

	require.Len(t, res.RuleResults, 3)
	assert.Contains(t, res.RuleResults[0].Reason, "Age should be at least 18, but got 16")
	assert.Equal(t, MissingFieldReason, res.RuleResults[2].Reason)

	require.Len(t, res.Recommendations, 3)
	assert.Equal(t, "Age must exceed the minimum of 18.", res.Recommendations[0])
	assert.Equal(t, "Occupation must be farmer.", res.Recommendations[1])
	assert.Equal(t, "Provide Land Size to complete the assessment.", res.Recommendations[2])
}

func TestRecommendationsCapped(t *testing.T) {
	def := &scheme.Definition{Code: "CAP", Eligibility: scheme.Eligibility{Logic: scheme.LogicAll}}
	for i := 0; i < 8; i++ {
		def.Eligibility.Rules = append(def.Eligibility.Rules, scheme.Rule{
			RuleID:   fmt.Sprintf("r%d", i),
			Field:    fmt.Sprintf("field_%d", i),
			Operator: scheme.OpEqual,
			Value:    "x",
			DataType: scheme.TypeString,
		})
	}

	res := Check(def, applicant.Record{})
	assert.False(t, res.IsEligible)
	assert.Len(t, res.Recommendations, maxRecommendations)
	assert.Len(t, res.MissingFields, 8)
}

func TestMatchProvisionsFallsBackToState(t *testing.T) {
	provisions := []scheme.Provision{{Region: "Bihar", Description: "Flood relief top-up"}}

	matched := MatchProvisions(provisions, applicant.Record{"state": "BIHAR"})
	require.Len(t, matched, 1)

	matched = MatchProvisions(provisions, applicant.Record{"region": "Kerala"})
	assert.Empty(t, matched)

	matched = MatchProvisions(provisions, applicant.Record{})
	assert.Empty(t, matched)
}

func TestResultsAreDeterministicApartFromID(t *testing.T) {
	def := testScheme()
	rec := applicant.Record{"age": 16, "occupation": "farmer", "farm": map[string]any{"land_size": 9.0}}

	a := Check(def, rec)
	b := Check(def, rec)
	assert.NotEqual(t, a.EvaluationID, b.EvaluationID)

	a.EvaluationID, b.EvaluationID = "", ""
	assert.Equal(t, a, b)
}
