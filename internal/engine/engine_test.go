package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yojana/internal/applicant"
	"yojana/internal/eval"
	"yojana/internal/registry"
)

const catalogDoc = `
schemes:
  - code: "PM_KISAN"
    name: "PM Kisan Samman Nidhi"
    eligibility:
      logic: ALL
      rules:
        - rule_id: "age"
          field: "age"
          operator: ">="
          value: 18
          data_type: "number"
        - rule_id: "occ"
          field: "occupation"
          operator: "=="
          value: "farmer"
      exclusion_criteria:
        - rule_id: "tax"
          field: "income_tax_payer"
          operator: "=="
          value: true
          data_type: "boolean"
  - code: "AYUSHMAN"
    name: "Ayushman Bharat"
    eligibility:
      logic: ANY
      rules:
        - field: "bpl_card_holder"
          operator: "=="
          value: true
          data_type: "boolean"
        - field: "income"
          operator: "<"
          value: 100000
          data_type: "number"
`

func testEngine(t *testing.T) *Engine {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "schemes.yaml"), []byte(catalogDoc), 0o644))
	reg, err := registry.Open(dir, nil)
	require.NoError(t, err)
	return New(reg, nil)
}

func farmer() applicant.Record {
	return applicant.Record{
		"age":        45,
		"occupation": "farmer",
		"income":     80000,
	}
}

func TestCheckBothBackends(t *testing.T) {
	eng := testEngine(t)
	ctx := context.Background()

	for _, backend := range []eval.Backend{eval.BackendDirect, eval.BackendReasoner} {
		res, err := eng.Check(ctx, "PM_KISAN", "app-1", farmer(), backend)
		require.NoError(t, err)
		assert.True(t, res.IsEligible, "backend %s", backend)
		assert.Equal(t, backend, res.Backend)
	}
}

func TestCheckUnknownScheme(t *testing.T) {
	eng := testEngine(t)
	_, err := eng.Check(context.Background(), "NOPE", "app-1", farmer(), eval.BackendDirect)
	assert.ErrorIs(t, err, ErrUnknownScheme)
}

func TestCheckHonorsContext(t *testing.T) {
	eng := testEngine(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := eng.Check(ctx, "PM_KISAN", "app-1", farmer(), eval.BackendDirect)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCheckAllOrdersByCode(t *testing.T) {
	eng := testEngine(t)

	for _, backend := range []eval.Backend{eval.BackendDirect, eval.BackendReasoner} {
		results, err := eng.CheckAll(context.Background(), "app-1", farmer(), backend)
		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.Equal(t, "AYUSHMAN", results[0].SchemeCode)
		assert.Equal(t, "PM_KISAN", results[1].SchemeCode)
		assert.True(t, results[0].IsEligible, "low income qualifies under ANY")
	}
}

func TestCompiledSource(t *testing.T) {
	eng := testEngine(t)
	src, err := eng.Compiled("PM_KISAN")
	require.NoError(t, err)
	assert.Contains(t, src, "eligible(P)")

	_, err = eng.Compiled("NOPE")
	assert.ErrorIs(t, err, ErrUnknownScheme)
}
