package config

import (
	"os"
	"path/filepath"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, body string) {
	t.Helper()
	path := filepath.Join(dir, DefaultConfigName+".yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0600))
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	defaults := NewDefaultConfig()
	assert.Equal(t, defaults, cfg)
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `
log:
  level: debug
workers: 3
catalog: secrets/catalog.db
keyring: false
remove: true
force: true
`)

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, log.DebugLevel, cfg.LogLevel)
	assert.Equal(t, 3, cfg.Workers)
	assert.Equal(t, "secrets/catalog.db", cfg.Catalog)
	assert.False(t, cfg.Keyring)
	assert.True(t, cfg.Remove)
	assert.True(t, cfg.Force)
}

func TestLoad_EnvOverride(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "workers: 3\n")
	t.Setenv("SEALFILE_WORKERS", "5")
	t.Setenv("SEALFILE_LOG_LEVEL", "error")

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Workers)
	assert.Equal(t, log.ErrorLevel, cfg.LogLevel)
}

func TestLoad_Invalid(t *testing.T) {
	tests := map[string]string{
		"log level": "log:\n  level: loud\n",
		"workers":   "workers: 0\n",
		"catalog":   "catalog: ../outside.db\n",
		"yaml":      "workers: [\n",
	}

	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			writeConfig(t, dir, body)
			_, err := Load(dir)
			assert.Error(t, err)
		})
	}
}
