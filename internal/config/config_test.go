package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, 5000, cfg.Port)
	require.Equal(t, 7, cfg.MaxSteps)
	require.Equal(t, 120*time.Second, cfg.MaxDuration)
	require.Equal(t, 100*time.Millisecond, cfg.StreamDelay)
	require.Equal(t, []string{"*"}, cfg.CORSOrigins)
	require.False(t, cfg.PushDryRun)
	require.Equal(t, "0.0.0.0:5000", cfg.Addr())
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "synapse.yaml")
	content := "port: 8099\nmax_steps: 3\npush_dry_run: true\ncors_origins:\n  - http://localhost:3000\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 8099, cfg.Port)
	require.Equal(t, 3, cfg.MaxSteps)
	require.True(t, cfg.PushDryRun)
	require.Equal(t, []string{"http://localhost:3000"}, cfg.CORSOrigins)
}

func TestLoadRejectsBadValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "synapse.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: -1\n"), 0644))

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadMissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
