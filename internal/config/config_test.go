package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"WATSON_DIR", "STINT_TIMEZONE", "STINT_LOG_LEVEL", "STINT_EDITOR", "STINT_CONFIG"} {
		t.Setenv(k, "")
	}
}

func TestLoadWritesDefaults(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "stint", "config.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var written Config
	require.NoError(t, yaml.Unmarshal(data, &written))
	require.Equal(t, *Default(), written)

	_, err = os.Stat(path + ".tmp")
	require.True(t, os.IsNotExist(err))
}

func TestLoadFromFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
data_dir: /tmp/frames
timezone: Europe/Paris
editor: nano
week_start: sunday
log_days: 14
log:
  level: debug
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "/tmp/frames", cfg.DataDir)
	require.Equal(t, "nano", cfg.Editor)
	require.Equal(t, 14*24*time.Hour, cfg.LogWindow())

	loc, err := cfg.Location()
	require.NoError(t, err)
	require.Equal(t, "Europe/Paris", loc.String())

	day, err := cfg.Weekday()
	require.NoError(t, err)
	require.Equal(t, time.Sunday, day)

	level, err := cfg.Level()
	require.NoError(t, err)
	require.Equal(t, slog.LevelDebug, level)
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("editor: emacs\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "emacs", cfg.Editor)
	require.Equal(t, 7, cfg.LogDays)
	require.Equal(t, "warn", cfg.Log.Level)
}

func TestEnvOverrides(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("data_dir: /from/file\neditor: nano\n"), 0o644))

	t.Setenv("WATSON_DIR", "/from/env")
	t.Setenv("STINT_TIMEZONE", "UTC")
	t.Setenv("STINT_LOG_LEVEL", "error")
	t.Setenv("STINT_EDITOR", "vim")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "/from/env", cfg.DataDir)
	require.Equal(t, "UTC", cfg.Timezone)
	require.Equal(t, "error", cfg.Log.Level)
	require.Equal(t, "vim", cfg.Editor)
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"yaml", "log: [unclosed\n"},
		{"timezone", "timezone: Mars/Olympus\n"},
		{"week start", "week_start: friday\n"},
		{"level", "log:\n  level: loud\n"},
		{"log days", "log_days: -1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.body), 0o644))
			_, err := Load(path)
			require.Error(t, err)
		})
	}
}

func TestLocationDefaultsToLocal(t *testing.T) {
	cfg := Default()
	loc, err := cfg.Location()
	require.NoError(t, err)
	require.Equal(t, time.Local, loc)

	cfg.Timezone = "Local"
	loc, err = cfg.Location()
	require.NoError(t, err)
	require.Equal(t, time.Local, loc)
}

func TestResolveDataDir(t *testing.T) {
	cfg := Default()
	dir, err := cfg.ResolveDataDir()
	if err == nil {
		require.Equal(t, "watson", filepath.Base(dir))
	}

	cfg.DataDir = "/srv/frames"
	dir, err = cfg.ResolveDataDir()
	require.NoError(t, err)
	require.Equal(t, "/srv/frames", dir)

	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	cfg.DataDir = "~/watson"
	dir, err = cfg.ResolveDataDir()
	require.NoError(t, err)
	require.Equal(t, filepath.Join(home, "watson"), dir)
}

func TestDefaultPath(t *testing.T) {
	t.Setenv("STINT_CONFIG", "/etc/stint.yaml")
	path, err := DefaultPath()
	require.NoError(t, err)
	require.Equal(t, "/etc/stint.yaml", path)

	t.Setenv("STINT_CONFIG", "")
	path, err = DefaultPath()
	if err != nil {
		t.Skip("no user config dir")
	}
	require.Equal(t, "config.yaml", filepath.Base(path))
}
