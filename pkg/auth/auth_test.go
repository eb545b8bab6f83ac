package auth

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/i5heu/ouroboros-vault/internal/keyValStore"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func writeSecrets(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "manager.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func newStoreKeySet(t *testing.T) *StoreKeySet {
	t.Helper()
	kv, err := keyValStore.NewKeyValStore(keyValStore.StoreConfig{InMemory: true, Logger: testLogger()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = kv.Close() })
	return NewStoreKeySet(kv, testLogger())
}

func TestCheck(t *testing.T) {
	ctx := context.Background()
	keys := NewStaticKeySet("secret")

	assert.NoError(t, Check(ctx, keys, "secret"))
	assert.ErrorIs(t, Check(ctx, keys, "wrong"), ErrAuthRejected)
	assert.ErrorIs(t, Check(ctx, keys, ""), ErrAuthRejected)

	keys.Add("wrong")
	assert.NoError(t, Check(ctx, keys, "wrong"))
}

func TestFileKeySet(t *testing.T) {
	ctx := context.Background()
	path := writeSecrets(t, `{"APIKeys": ["a", "b"]}`)
	keys := FileKeySet{Path: path}

	assert.NoError(t, Check(ctx, keys, "b"))
	assert.ErrorIs(t, Check(ctx, keys, "c"), ErrAuthRejected)

	require.NoError(t, os.WriteFile(path, []byte(`{"APIKeys": ["c"]}`), 0o600))
	assert.NoError(t, Check(ctx, keys, "c"))
	assert.ErrorIs(t, Check(ctx, keys, "a"), ErrAuthRejected)
}

func TestFileKeySet_Unavailable(t *testing.T) {
	ctx := context.Background()

	err := Check(ctx, FileKeySet{Path: writeSecrets(t, "not json")}, "a")
	assert.ErrorIs(t, err, ErrKeySet)
	assert.False(t, errors.Is(err, ErrAuthRejected))

	err = Check(ctx, FileKeySet{Path: t.TempDir()}, "a")
	assert.ErrorIs(t, err, ErrKeySet)
}

func TestFileKeySet_MissingFileRejects(t *testing.T) {
	ctx := context.Background()
	keys := FileKeySet{Path: filepath.Join(t.TempDir(), "missing.json")}

	err := Check(ctx, keys, "a")
	assert.ErrorIs(t, err, ErrAuthRejected)
	assert.False(t, errors.Is(err, ErrKeySet))

	assert.ErrorIs(t, Check(ctx, AnyKeySet{keys, NewStaticKeySet("ok")}, "nope"), ErrAuthRejected)
}

func TestStoreKeySet(t *testing.T) {
	ctx := context.Background()
	keys := newStoreKeySet(t)

	require.NoError(t, keys.Add("k2"))
	require.NoError(t, keys.Add("k1"))
	assert.Error(t, keys.Add("  "))

	assert.NoError(t, Check(ctx, keys, "k1"))
	assert.ErrorIs(t, Check(ctx, keys, "k3"), ErrAuthRejected)

	list, err := keys.Keys()
	require.NoError(t, err)
	assert.Equal(t, []string{"k1", "k2"}, list)

	require.NoError(t, keys.Remove("k1"))
	assert.ErrorIs(t, Check(ctx, keys, "k1"), ErrAuthRejected)
}

func TestStoreKeySet_ImportFile(t *testing.T) {
	ctx := context.Background()
	keys := newStoreKeySet(t)

	n, err := keys.ImportFile(writeSecrets(t, `{"APIKeys": ["x", "", "y"]}`))
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.NoError(t, Check(ctx, keys, "y"))

	_, err = keys.ImportFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestAnyKeySet(t *testing.T) {
	ctx := context.Background()
	broken := FileKeySet{Path: writeSecrets(t, "not json")}
	keys := AnyKeySet{broken, NewStaticKeySet("ok")}

	assert.NoError(t, Check(ctx, keys, "ok"))
	assert.ErrorIs(t, Check(ctx, keys, "nope"), ErrKeySet)
	assert.ErrorIs(t, Check(ctx, AnyKeySet{NewStaticKeySet("ok")}, "nope"), ErrAuthRejected)
}
