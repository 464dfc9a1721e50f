package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreUpsertAndLoad(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	fixed := time.Date(2025, 3, 18, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return fixed }

	require.NoError(t, m.UpsertHeat(ctx, "redux", 1))
	require.NoError(t, m.UpsertHeat(ctx, "react", 3))
	require.NoError(t, m.UpsertMany(ctx, []Record{{Term: "react", Heat: 4}, {Term: "node", Heat: 1}}))

	assert.Equal(t, 3, m.Len())

	all, err := m.LoadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []Record{
		{Term: "node", Heat: 1, UpdatedAt: fixed},
		{Term: "react", Heat: 4, UpdatedAt: fixed},
		{Term: "redux", Heat: 1, UpdatedAt: fixed},
	}, all)

	r, ok := m.Get("react")
	require.True(t, ok)
	assert.Equal(t, 4, r.Heat)
	_, ok = m.Get("rea")
	assert.False(t, ok)
}

func TestMemoryStoreClosed(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	require.NoError(t, m.Close())

	assert.ErrorIs(t, m.UpsertHeat(ctx, "x", 1), ErrClosed)
	_, err := m.LoadAll(ctx)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestMemoryStoreCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	m := NewMemoryStore()
	assert.ErrorIs(t, m.UpsertHeat(ctx, "x", 1), context.Canceled)
}

func TestOpen(t *testing.T) {
	st, err := Open("memory", "")
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, st)
	require.NoError(t, st.Close())

	st, err = Open("file", t.TempDir()+"/terms.snap")
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, st)
	require.NoError(t, st.Close())

	_, err = Open("file", "")
	assert.Error(t, err)
	_, err = Open("sqlite", "x")
	assert.Error(t, err)
}
