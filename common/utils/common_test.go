package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAppDir(t *testing.T) {
	t.Setenv("HOME", "/home/walletd")
	require.Equal(t, "/home/walletd/.hive-wallet", AppDir())
}

func TestProjectRoot(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	_, ok := ProjectRoot(nested)
	require.False(t, ok)

	require.NoError(t, os.WriteFile(filepath.Join(root, "go.mod"), []byte("module x\n"), 0o644))
	got, ok := ProjectRoot(nested)
	require.True(t, ok)
	require.Equal(t, root, got)
}

func TestFileExists(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "f")
	require.False(t, FileExists(file))
	require.NoError(t, os.WriteFile(file, nil, 0o600))
	require.True(t, FileExists(file))
	require.False(t, FileExists(dir))
}
