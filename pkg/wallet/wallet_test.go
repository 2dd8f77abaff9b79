package wallet

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func seed(t *testing.T, ids ...string) FileStore {
	t.Helper()
	dir := t.TempDir()
	for _, id := range ids {
		require.NoError(t, os.WriteFile(filepath.Join(dir, id+".id"), []byte("{}"), 0o600))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "folder.id"), 0o755))
	return FileStore{Dir: dir}
}

func TestFileStore_Exists(t *testing.T) {
	s := seed(t, "admin", "system")
	ctx := context.Background()

	ok, err := s.Exists(ctx, "admin")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Exists(ctx, "nobody")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = s.Exists(ctx, "folder")
	require.NoError(t, err)
	assert.False(t, ok, "directories are not identities")

	for _, bad := range []string{"", "../etc/passwd", "a/b", ".."} {
		_, err = s.Exists(ctx, bad)
		assert.Error(t, err, bad)
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = s.Exists(cancelled, "admin")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCheck(t *testing.T) {
	ctx := context.Background()

	t.Run("all present", func(t *testing.T) {
		require.NoError(t, Check(ctx, seed(t, "admin", "system"), "admin", []string{"system"}, true, nil))
	})

	t.Run("missing is logged when not required", func(t *testing.T) {
		core, logs := observer.New(zap.WarnLevel)
		require.NoError(t, Check(ctx, seed(t, "admin"), "admin", []string{"system", "batch"}, false, zap.New(core)))
		assert.Equal(t, 2, logs.Len())
	})

	t.Run("missing aborts when required", func(t *testing.T) {
		err := Check(ctx, seed(t), "admin", []string{"system"}, true, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "admin, system")
	})
}
