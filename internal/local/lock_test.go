package local_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/charmbracelet/git-lfs-client/internal/local"
)

func TestTakeLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test_subject")
	testfile, err := local.NewLockFile(path, 0o644)
	require.NoError(t, err)
	defer func() { _ = testfile.Close() }()
	assert.Equal(t, path+".lock", testfile.Name())
}

func TestMissLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test_subject")
	testfile, err := local.NewLockFile(path, 0o644)
	require.NoError(t, err)
	defer testfile.Close()

	t2, e2 := local.NewLockFile(path, 0o644)
	assert.ErrorIs(t, e2, local.ErrConflict)
	assert.Nil(t, t2)
}

func TestPersistLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test_subject")
	lf, err := local.NewLockFile(path, 0o644)
	require.NoError(t, err)

	_, err = lf.Write([]byte("content"))
	require.NoError(t, err)
	require.NoError(t, lf.Close())
	require.NoError(t, lf.Persist())
	require.NoError(t, lf.Remove())

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "content", string(b))
	_, err = os.Stat(path + ".lock")
	assert.True(t, os.IsNotExist(err))

	// The lock can be taken again once released.
	again, err := local.NewLockFile(path, 0o644)
	require.NoError(t, err)
	defer again.Remove()
	defer again.Close()
	assert.ErrorIs(t, again.Persist(), os.ErrExist)
}
