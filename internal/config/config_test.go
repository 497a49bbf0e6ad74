package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lookupFrom(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestFromEnvDefaults(t *testing.T) {
	cfg, err := FromEnv(lookupFrom(nil))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, "text", cfg.Format)
	assert.Equal(t, "WAL", cfg.JournalMode)
	assert.Equal(t, 5*time.Second, cfg.BusyTimeout)
}

func TestFromEnvOverrides(t *testing.T) {
	cfg, err := FromEnv(lookupFrom(map[string]string{
		EnvFormat:      "json",
		EnvVerbose:     "true",
		EnvJournalMode: "delete",
		EnvBusyTimeout: "250ms",
	}))
	require.NoError(t, err)
	assert.Equal(t, "json", cfg.Format)
	assert.True(t, cfg.Verbose)
	assert.Equal(t, "DELETE", cfg.JournalMode)
	assert.Equal(t, 250*time.Millisecond, cfg.BusyTimeout)
}

func TestFromEnvRejectsInvalid(t *testing.T) {
	tests := map[string]map[string]string{
		"format":       {EnvFormat: "xml"},
		"verbose":      {EnvVerbose: "maybe"},
		"journal mode": {EnvJournalMode: "sideways"},
		"busy timeout": {EnvBusyTimeout: "soon"},
		"negative":     {EnvBusyTimeout: "-1s"},
	}

	for name, env := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := FromEnv(lookupFrom(env))
			require.Error(t, err)
		})
	}
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sunshine.env")
	require.NoError(t, os.WriteFile(path, []byte("SUNSHINE_JOURNAL_MODE=truncate\n"), 0644))

	t.Setenv(EnvJournalMode, "")
	require.NoError(t, os.Unsetenv(EnvJournalMode))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "TRUNCATE", cfg.JournalMode)
}

func TestLoadMissingEnvFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load env file")
}
