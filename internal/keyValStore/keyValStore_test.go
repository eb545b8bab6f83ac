package keyValStore

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func newInMemoryStore(t *testing.T) *KeyValStore {
	t.Helper()
	kv, err := NewKeyValStore(StoreConfig{InMemory: true, Logger: testLogger()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = kv.Close() })
	return kv
}

func TestWriteExists(t *testing.T) {
	kv := newInMemoryStore(t)

	require.NoError(t, kv.Write([]byte("a"), []byte("1")))

	ok, err := kv.Exists([]byte("a"))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = kv.Exists([]byte("missing"))
	require.NoError(t, err)
	assert.False(t, ok)

	reads, writes := kv.Operations()
	assert.Equal(t, uint64(2), reads)
	assert.Equal(t, uint64(1), writes)
}

func TestDelete(t *testing.T) {
	kv := newInMemoryStore(t)

	require.NoError(t, kv.Write([]byte("a"), []byte("1")))
	require.NoError(t, kv.Delete([]byte("a")))
	require.NoError(t, kv.Delete([]byte("never-there")))

	ok, err := kv.Exists([]byte("a"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGetItemsWithPrefix(t *testing.T) {
	kv := newInMemoryStore(t)

	require.NoError(t, kv.WriteBatch([][2][]byte{
		{[]byte("key/b"), []byte("2")},
		{[]byte("key/a"), []byte("1")},
		{[]byte("other"), []byte("3")},
	}))

	items, err := kv.GetItemsWithPrefix([]byte("key/"))
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, []byte("key/a"), items[0][0])
	assert.Equal(t, []byte("1"), items[0][1])
	assert.Equal(t, []byte("key/b"), items[1][0])
}

func TestPersistentStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kv")

	kv, err := NewKeyValStore(StoreConfig{Paths: []string{path}, Logger: testLogger()})
	require.NoError(t, err)
	require.NoError(t, kv.Write([]byte("a"), []byte("1")))
	require.NoError(t, kv.Close())

	kv, err = NewKeyValStore(StoreConfig{Paths: []string{path}, Logger: testLogger()})
	require.NoError(t, err)
	defer kv.Close()

	items, err := kv.GetItemsWithPrefix([]byte("a"))
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, []byte("1"), items[0][1])
}

func TestCheckConfig(t *testing.T) {
	_, err := NewKeyValStore(StoreConfig{Logger: testLogger()})
	assert.Error(t, err)

	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))
	_, err = NewKeyValStore(StoreConfig{Paths: []string{file}, Logger: testLogger()})
	assert.Error(t, err)

	_, err = NewKeyValStore(StoreConfig{Paths: []string{t.TempDir()}, MinimumFreeSpace: 1 << 30, Logger: testLogger()})
	assert.Error(t, err)
}
