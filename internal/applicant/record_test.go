package applicant

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveDotPaths(t *testing.T) {
	rec := Record{
		"age":   34,
		"state": "Bihar",
		"farm": map[string]any{
			"land_size": 2.5,
			"crops":     []any{"rice", "wheat"},
		},
		"family": map[string]any{
			"head": map[string]any{
				"gender": "female",
			},
		},
	}

	v, ok := rec.Resolve("age")
	require.True(t, ok)
	assert.Equal(t, 34, v)

	v, ok = rec.Resolve("farm.land_size")
	require.True(t, ok)
	assert.Equal(t, 2.5, v)

	v, ok = rec.Resolve("family.head.gender")
	require.True(t, ok)
	assert.Equal(t, "female", v)

	_, ok = rec.Resolve("farm.owner")
	assert.False(t, ok)

	_, ok = rec.Resolve("age.years")
	assert.False(t, ok, "cannot descend through a scalar")

	_, ok = rec.Resolve("missing")
	assert.False(t, ok)
}
