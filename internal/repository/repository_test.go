package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type kv interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Close() error
}

func testStore(t *testing.T, s kv) {
	t.Helper()
	ctx := context.Background()

	_, ok, err := s.Get(ctx, KeyCart)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, KeyCart, `[{"id":"ps-001","qty":1}]`))
	require.NoError(t, s.Set(ctx, KeyCart, `[{"id":"ps-001","qty":2}]`))

	v, ok, err := s.Get(ctx, KeyCart)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `[{"id":"ps-001","qty":2}]`, v)

	_, ok, err = s.Get(ctx, KeyLastOrder)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStore(t *testing.T) {
	testStore(t, NewMemoryStore())
}

func TestMemoryStore_CanceledContext(t *testing.T) {
	s := NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.Set(ctx, KeyCart, "[]")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSQLiteStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "storefront.db")

	s, err := NewSQLiteStore(path)
	require.NoError(t, err)
	testStore(t, s)
	require.NoError(t, s.Close())

	reopened, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer reopened.Close()

	v, ok, err := reopened.Get(context.Background(), KeyCart)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `[{"id":"ps-001","qty":2}]`, v)
}

func TestNewSQLiteStore_EmptyPath(t *testing.T) {
	_, err := NewSQLiteStore("  ")
	assert.Error(t, err)
}

func TestWithRetry_StopsOnNonRetryable(t *testing.T) {
	s := &PostgresStore{delays: []time.Duration{time.Millisecond, time.Millisecond}}

	calls := 0
	err := s.withRetry(context.Background(), func() error {
		calls++
		return errors.New("syntax error")
	})
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestWithRetry_RetriesConnectionErrors(t *testing.T) {
	s := &PostgresStore{delays: []time.Duration{time.Millisecond, time.Millisecond}}

	calls := 0
	err := s.withRetry(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("dial tcp: connection refused")
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}
