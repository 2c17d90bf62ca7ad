package storage

import (
	"path/filepath"
	"testing"

	"github.com/abcfe/hive-wallet/config"
	"github.com/stretchr/testify/require"
)

func TestMemoryGetSetRemove(t *testing.T) {
	db, err := NewMemory("test_")
	require.NoError(t, err)
	defer db.Close()

	_, ok, err := db.Get("user:alice")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, db.Set("user:alice", "record"))
	v, ok, err := db.Get("user:alice")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "record", v)

	require.NoError(t, db.Remove("user:alice"))
	_, ok, err = db.Get("user:alice")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestPrefixIsolatesNamespaces(t *testing.T) {
	db, err := NewMemory("a_")
	require.NoError(t, err)
	defer db.Close()

	other := &DB{db: db.db, prefix: "b_"}
	require.NoError(t, db.Set("k", "from-a"))

	_, ok, err := other.Get("k")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestInitDBPersists(t *testing.T) {
	cfg := config.Default()
	cfg.Storage.Path = filepath.Join(t.TempDir(), "creds")

	db, err := InitDB(cfg)
	require.NoError(t, err)
	require.NoError(t, db.Set("user:bob", "x"))
	require.NoError(t, db.Close())

	db, err = InitDB(cfg)
	require.NoError(t, err)
	defer db.Close()
	v, ok, err := db.Get("user:bob")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "x", v)
}
