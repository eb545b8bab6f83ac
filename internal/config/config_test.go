package config

import (
	"flag"
	"io"
	"os"
	"path/filepath"
	"testing"

	ouroboros "github.com/i5heu/ouroboros-vault"
	"github.com/i5heu/ouroboros-vault/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func newFlagSet() *flag.FlagSet {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func TestLoad_MissingOptional(t *testing.T) {
	config, err := Load(filepath.Join(t.TempDir(), "none.yaml"), true)
	require.NoError(t, err)
	assert.Equal(t, Default(), config)
	assert.Equal(t, ":36969", config.Addr())
}

func TestLoad_MissingRequired(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "none.yaml"), false)
	assert.Error(t, err)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
rootPath: /srv/media
minimumFreeGB: 2
log:
  level: warn
  json: true
vaults:
  - name: img
    type: image
  - name: docs
    type: media
`)

	config, err := Load(path, false)
	require.NoError(t, err)
	assert.Equal(t, "/srv/media", config.RootPath)
	assert.Equal(t, DefaultPort, config.Port)
	assert.Equal(t, uint(2), config.MinimumFreeGB)
	assert.Equal(t, LogConfig{Level: "warn", JSON: true}, config.Log)
	assert.Equal(t, []VaultConfig{{Name: "img", Type: "image"}, {Name: "docs", Type: "media"}}, config.Vaults)
}

func TestLoad_Invalid(t *testing.T) {
	_, err := Load(writeConfig(t, "port: [1"), false)
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "port: 70000"), false)
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "vaults:\n  - type: image\n"), false)
	assert.Error(t, err)
}

func TestParse_FlagsOverrideFile(t *testing.T) {
	path := writeConfig(t, "rootPath: /srv/media\nport: 8080\n")

	config, err := Parse(newFlagSet(), []string{"-c", path, "-p", "9000", "-f", "/tmp/x", "-debug"})
	require.NoError(t, err)
	assert.Equal(t, "/tmp/x", config.RootPath)
	assert.Equal(t, 9000, config.Port)
	assert.Equal(t, "debug", config.Log.Level)
}

func TestParse_ExplicitMissingConfig(t *testing.T) {
	_, err := Parse(newFlagSet(), []string{"-c", filepath.Join(t.TempDir(), "none.yaml")})
	assert.Error(t, err)
}

func TestDefault_ImageVault(t *testing.T) {
	config, err := Parse(newFlagSet(), []string{"-f", t.TempDir()})
	require.NoError(t, err)
	assert.Equal(t, []VaultConfig{{Name: "img", Type: "image"}}, config.Vaults)

	config, err = Load(writeConfig(t, "port: 8080\n"), false)
	require.NoError(t, err)
	assert.Equal(t, DefaultVaults, config.Vaults)

	config, err = Load(writeConfig(t, "vaults:\n  - name: docs\n    type: media\n"), false)
	require.NoError(t, err)
	assert.Equal(t, []VaultConfig{{Name: "docs", Type: "media"}}, config.Vaults)
}

func TestOuroboros(t *testing.T) {
	config := Default()
	config.RootPath = "/srv/media"
	config.Vaults = append(config.Vaults, VaultConfig{Name: "docs", Type: "media"})

	ou, err := config.Ouroboros(nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"/srv/media"}, ou.Paths)
	assert.Equal(t, DefaultSecretsPath, ou.SecretsPath)
	assert.Equal(t, []ouroboros.VaultConfig{
		{Name: "img", Type: types.Image},
		{Name: "docs", Type: types.Media},
	}, ou.Vaults)

	config.Vaults = []VaultConfig{{Name: "x", Type: "video"}}
	_, err = config.Ouroboros(nil)
	assert.ErrorIs(t, err, types.ErrUnknownVaultType)
}
