package identity

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unidelas/safety-agent/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := Open(filepath.Join(t.TempDir(), "agent.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	require.NoError(t, store.InitSchema(context.Background()))
	return store
}

func TestCurrentWithoutIdentity(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Current(context.Background())
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestSaveAndCurrent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	user := model.UserIdentity{ID: "u1", Email: "ana@unidelas.app"}
	require.NoError(t, store.Save(ctx, user))

	got, err := store.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, user, got)
}

func TestSaveIsLastWriteWins(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, model.UserIdentity{ID: "u1", Email: "ana@unidelas.app"}))
	require.NoError(t, store.Save(ctx, model.UserIdentity{ID: "u2", Email: "maria@unidelas.app"}))

	got, err := store.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, "u2", got.ID)
	assert.Equal(t, "maria@unidelas.app", got.Email)
}

func TestSaveRequiresID(t *testing.T) {
	store := newTestStore(t)

	err := store.Save(context.Background(), model.UserIdentity{Email: "ana@unidelas.app"})
	assert.Error(t, err)
}

func TestClear(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, model.UserIdentity{ID: "u1", Email: "ana@unidelas.app"}))
	require.NoError(t, store.Clear(ctx))

	_, err := store.Current(ctx)
	assert.ErrorIs(t, err, ErrNotAuthenticated)

	// Clearing an empty store stays a no-op.
	require.NoError(t, store.Clear(ctx))
}

func TestIdentitySurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "agent.db")
	ctx := context.Background()

	store, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, store.InitSchema(ctx))
	require.NoError(t, store.Save(ctx, model.UserIdentity{ID: "u1", Email: "ana@unidelas.app"}))
	require.NoError(t, store.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()
	require.NoError(t, reopened.InitSchema(ctx))

	got, err := reopened.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, "u1", got.ID)
}
