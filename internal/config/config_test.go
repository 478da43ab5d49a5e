package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eargollo/dupefinder/internal/catalog"
	"github.com/eargollo/dupefinder/internal/config"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestLoad_DefaultsApplied(t *testing.T) {
	cfg, err := config.Load(writeConfig(t, "root: /tmp/music\nmode: metadata\n"))
	require.NoError(t, err)

	assert.Equal(t, "/tmp/music", cfg.Root)
	assert.Equal(t, "metadata", cfg.Mode)
	assert.Equal(t, "./duplicates.log", cfg.ReportPath)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 30, cfg.TrashRetentionDays)
	assert.Equal(t, 4, cfg.Workers.Walkers)
	assert.Equal(t, 2, cfg.Workers.FullHashers)
	assert.Empty(t, cfg.Schedule)
	require.NoError(t, cfg.Validate())
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := config.Load("/nonexistent/path/config.yaml")
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}

func TestLoad_EmptyFile(t *testing.T) {
	cfg, err := config.Load(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, "content", cfg.Mode)
}

func TestLoad_UnknownFieldRejected(t *testing.T) {
	_, err := config.Load(writeConfig(t, "http_addr: \":8080\"\n"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := config.Default()
	cfg.Mode = "fuzzy"
	assert.Error(t, cfg.Validate())

	cfg = config.Default()
	cfg.Workers.FullHashers = -1
	assert.Error(t, cfg.Validate())

	cfg = config.Default()
	cfg.Catalog.Groups = map[string]bool{"spreadsheets": true}
	assert.Error(t, cfg.Validate())

	cfg = config.Default()
	cfg.Catalog.Extensions = map[string]bool{"xyz": true}
	assert.Error(t, cfg.Validate())
}

func TestOverrides(t *testing.T) {
	cfg, err := config.Load(writeConfig(t, `
catalog:
  groups:
    ignored: true
    document: false
  extensions:
    txt: true
`))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	o := cfg.Overrides()
	assert.True(t, catalog.IsEnabled(".BIN", o))
	assert.False(t, catalog.IsEnabled(".PDF", o))
	assert.True(t, catalog.IsEnabled(".TXT", o))
	assert.True(t, catalog.IsEnabled(".MP3", o))
}
