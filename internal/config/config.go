package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
	_ "time/tzdata" // IANA names on systems without a zoneinfo database

	"gopkg.in/yaml.v3"

	"github.com/sadopc/stint/internal/store"
)

// Config holds user settings. Empty values fall back to defaults at the
// point of use.
type Config struct {
	DataDir   string    `yaml:"data_dir"`
	Timezone  string    `yaml:"timezone"`
	Editor    string    `yaml:"editor"`
	WeekStart string    `yaml:"week_start"`
	LogDays   int       `yaml:"log_days"`
	Log       LogConfig `yaml:"log"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

func Default() *Config {
	return &Config{
		WeekStart: "monday",
		LogDays:   7,
		Log:       LogConfig{Level: "warn"},
	}
}

// DefaultPath returns $STINT_CONFIG, or config.yaml in the user config
// directory.
func DefaultPath() (string, error) {
	if path := os.Getenv("STINT_CONFIG"); path != "" {
		return path, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "stint", "config.yaml"), nil
}

// Load reads the YAML file at path, writing the defaults there first if
// it does not exist. Environment variables override the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	case errors.Is(err, fs.ErrNotExist):
		if err := writeDefaults(path, cfg); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("read config file: %w", err)
	}

	// Override from env (highest precedence)
	if dir := os.Getenv("WATSON_DIR"); dir != "" {
		cfg.DataDir = dir
	}
	if tz := os.Getenv("STINT_TIMEZONE"); tz != "" {
		cfg.Timezone = tz
	}
	if level := os.Getenv("STINT_LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}
	if editor := os.Getenv("STINT_EDITOR"); editor != "" {
		cfg.Editor = editor
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if _, err := c.Location(); err != nil {
		return err
	}
	if _, err := c.Weekday(); err != nil {
		return err
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	if c.LogDays < 0 {
		return fmt.Errorf("invalid log_days %d: must not be negative", c.LogDays)
	}
	return nil
}

// Location resolves the timezone setting. Empty means time.Local.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || strings.EqualFold(c.Timezone, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

func (c *Config) Weekday() (time.Weekday, error) {
	switch strings.ToLower(c.WeekStart) {
	case "", "monday":
		return time.Monday, nil
	case "sunday":
		return time.Sunday, nil
	default:
		return 0, fmt.Errorf("invalid week_start %q: want monday or sunday", c.WeekStart)
	}
}

func (c *Config) Level() (slog.Level, error) {
	if c.Log.Level == "" {
		return slog.LevelWarn, nil
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", c.Log.Level, err)
	}
	return level, nil
}

// LogWindow is how far back log and report look by default.
func (c *Config) LogWindow() time.Duration {
	days := c.LogDays
	if days == 0 {
		days = 7
	}
	return time.Duration(days) * 24 * time.Hour
}

// ResolveDataDir returns the frames directory, expanding a leading ~.
// Empty means Watson's own directory.
func (c *Config) ResolveDataDir() (string, error) {
	dir := c.DataDir
	if dir == "" {
		return store.DefaultDir()
	}
	if dir == "~" || strings.HasPrefix(dir, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("expand data_dir: %w", err)
		}
		dir = filepath.Join(home, strings.TrimPrefix(dir, "~"))
	}
	return dir, nil
}

func writeDefaults(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal default config: %w", err)
	}
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write default config: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename default config: %w", err)
	}
	return nil
}
