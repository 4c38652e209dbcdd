package applicant

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreGet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "applicants.db")
	store, err := OpenStore(path)
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	_, err = store.db.ExecContext(ctx, `CREATE TABLE applicants (id TEXT PRIMARY KEY, record TEXT NOT NULL)`)
	require.NoError(t, err)
	_, err = store.db.ExecContext(ctx,
		`INSERT INTO applicants (id, record) VALUES (?, ?)`,
		"app-1", `{"age": 34, "farm": {"land_size": 2.5}}`)
	require.NoError(t, err)

	rec, err := store.Get(ctx, "app-1")
	require.NoError(t, err)
	v, ok := rec.Resolve("farm.land_size")
	require.True(t, ok)
	assert.Equal(t, 2.5, v)

	_, err = store.Get(ctx, "app-2")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStoreGetRejectsBadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "applicants.db")
	store, err := OpenStore(path)
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	_, err = store.db.ExecContext(ctx, `CREATE TABLE applicants (id TEXT PRIMARY KEY, record TEXT NOT NULL)`)
	require.NoError(t, err)
	_, err = store.db.ExecContext(ctx, `INSERT INTO applicants (id, record) VALUES ('bad', 'not-json')`)
	require.NoError(t, err)

	_, err = store.Get(ctx, "bad")
	assert.ErrorContains(t, err, "decode applicant")
}
