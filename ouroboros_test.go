package ouroboros

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/i5heu/ouroboros-vault/pkg/auth"
	"github.com/i5heu/ouroboros-vault/pkg/types"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func newStartedVault(t *testing.T, conf Config) *OuroborosVault {
	t.Helper()
	if len(conf.Paths) == 0 {
		conf.Paths = []string{filepath.Join(t.TempDir(), "media")}
	}
	conf.Logger = testLogger()

	ou, err := New(conf)
	require.NoError(t, err)
	require.NoError(t, ou.Start(context.Background()))
	t.Cleanup(func() { _ = ou.Close(context.Background()) })
	return ou
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)

	_, err = New(Config{Paths: []string{t.TempDir()}, Vaults: []VaultConfig{{Name: "x", Type: types.VaultType(5)}}})
	assert.ErrorIs(t, err, types.ErrUnknownVaultType)
}

func TestNotStarted(t *testing.T) {
	ou, err := New(Config{Paths: []string{t.TempDir()}, Logger: testLogger()})
	require.NoError(t, err)

	_, err = ou.DB()
	assert.ErrorIs(t, err, ErrNotStarted)
	_, err = ou.KeySet()
	assert.ErrorIs(t, err, ErrNotStarted)
}

func TestStart_CreatesConfiguredVaults(t *testing.T) {
	root := filepath.Join(t.TempDir(), "media")
	ou := newStartedVault(t, Config{
		Paths:  []string{root},
		Vaults: []VaultConfig{{Name: "img", Type: types.Image}, {Name: "docs", Type: types.Media}},
	})

	db, err := ou.DB()
	require.NoError(t, err)
	assert.True(t, db.HasVault(types.NewEntryKey("img", types.Image)))
	assert.True(t, db.HasVault(types.NewEntryKey("docs", types.Media)))
	assert.Equal(t, 2, db.IndexSize())

	_, err = os.Stat(filepath.Join(root, keyStoreDir))
	assert.NoError(t, err)

	require.NoError(t, ou.Start(context.Background()))
	again, err := ou.DB()
	require.NoError(t, err)
	assert.Same(t, db, again)
}

func TestStart_VaultConflict(t *testing.T) {
	ou, err := New(Config{
		Paths:            []string{filepath.Join(t.TempDir(), "media")},
		Logger:           testLogger(),
		KeyStoreInMemory: true,
		Vaults:           []VaultConfig{{Name: "x", Type: types.Image}, {Name: "x", Type: types.Media}},
	})
	require.NoError(t, err)
	assert.Error(t, ou.Start(context.Background()))
}

func TestKeySet(t *testing.T) {
	ctx := context.Background()
	secrets := filepath.Join(t.TempDir(), "manager.json")
	require.NoError(t, os.WriteFile(secrets, []byte(`{"APIKeys": ["from-file"]}`), 0o600))

	ou := newStartedVault(t, Config{KeyStoreInMemory: true, SecretsPath: secrets})

	keys, err := ou.Keys()
	require.NoError(t, err)
	require.NoError(t, keys.Add("stored"))

	set, err := ou.KeySet()
	require.NoError(t, err)
	assert.NoError(t, auth.Check(ctx, set, "stored"))
	assert.NoError(t, auth.Check(ctx, set, "from-file"))
	assert.ErrorIs(t, auth.Check(ctx, set, "other"), auth.ErrAuthRejected)
}

func TestClose(t *testing.T) {
	ou := newStartedVault(t, Config{KeyStoreInMemory: true})

	require.NoError(t, ou.Close(context.Background()))
	require.NoError(t, ou.Close(context.Background()))

	_, err := ou.DB()
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, ou.Start(context.Background()), ErrClosed)
}

func TestRun(t *testing.T) {
	ou, err := New(Config{Paths: []string{filepath.Join(t.TempDir(), "media")}, Logger: testLogger(), KeyStoreInMemory: true})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ou.Run(ctx) }()

	require.Eventually(t, func() bool {
		_, err := ou.DB()
		return err == nil
	}, 5*time.Second, 10*time.Millisecond)
	cancel()
	assert.NoError(t, <-done)

	_, err = ou.DB()
	assert.ErrorIs(t, err, ErrClosed)
}
