package repository

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore_RoundTripAndExpiry(t *testing.T) {
	t.Parallel()

	clk := newClock()
	s := NewFileStore(filepath.Join(t.TempDir(), "cache", "views.json"))
	s.now = clk.Now
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "k", []byte(`{"a":1}`), time.Minute))
	got, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"a":1}`, string(got))

	info, err := os.Stat(s.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(cacheFilePerm), info.Mode().Perm())

	clk.Advance(time.Minute)
	_, ok, err = s.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFileStore_Delete(t *testing.T) {
	t.Parallel()

	s := NewFileStore(filepath.Join(t.TempDir(), "views.json"))
	ctx := context.Background()
	require.NoError(t, s.Delete(ctx, "missing"))

	require.NoError(t, s.Set(ctx, "a", []byte(`1`), time.Hour))
	require.NoError(t, s.Set(ctx, "b", []byte(`2`), time.Hour))
	require.NoError(t, s.Delete(ctx, "a"))

	_, ok, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok)
	_, ok, err = s.Get(ctx, "b")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, s.Clear())
	require.NoError(t, s.Clear())
}

func TestFileStore_CorruptFileIsMovedAside(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "views.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	s := NewFileStore(path)
	_, _, err := s.Get(context.Background(), "k")
	require.ErrorIs(t, err, ErrCorruptCache)

	matches, err := filepath.Glob(path + ".corrupt.*")
	require.NoError(t, err)
	assert.Len(t, matches, 1)

	require.NoError(t, s.Set(context.Background(), "k", []byte(`true`), time.Hour))
	_, ok, err := s.Get(context.Background(), "k")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestFileStore_RejectsNonJSON(t *testing.T) {
	t.Parallel()

	s := NewFileStore(filepath.Join(t.TempDir(), "views.json"))
	require.Error(t, s.Set(context.Background(), "k", []byte("plain"), time.Hour))
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("ETENDA_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("ETENDA_TEST_REDIS_ADDR not set")
	}

	s, err := NewRedisStore(RedisConfig{Addr: addr})
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
	ctx := context.Background()
	require.NoError(t, s.Ping(ctx))

	key := "etenda:test:" + t.Name()
	require.NoError(t, s.Set(ctx, key, []byte(`{"x":1}`), time.Minute))
	got, ok, err := s.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"x":1}`, string(got))

	require.NoError(t, s.Delete(ctx, key))
	_, ok, err = s.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNewRedisStore_RequiresAddr(t *testing.T) {
	t.Parallel()
	_, err := NewRedisStore(RedisConfig{})
	require.Error(t, err)
}
