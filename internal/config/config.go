package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// BackupConfig controls periodic copies of the schedule file.
type BackupConfig struct {
	// Cron is a cron-style schedule (e.g. "0 3 * * *" or "@daily").
	// Empty disables scheduled backups.
	Cron string `yaml:"cron" json:"cron"`
	// Dir defaults to a "backup" directory next to the data file.
	Dir string `yaml:"dir" json:"dir"`
	// Keep is how many backups to retain; 0 keeps all.
	Keep int `yaml:"keep" json:"keep"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the API.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA zone date keys and "now" are resolved in.
	Timezone string `yaml:"timezone" json:"timezone"`

	// DataFile is the schedule document. ".yaml"/".yml" selects YAML,
	// anything else JSON.
	DataFile string `yaml:"data_file" json:"data_file"`

	// KeyScheme is "weekday", "date" or "auto".
	KeyScheme string `yaml:"key_scheme" json:"key_scheme"`

	// WindowDays is the default upcoming window.
	WindowDays int `yaml:"window_days" json:"window_days"`

	// ClassMinutes is the event length used for calendar exports.
	ClassMinutes int `yaml:"class_minutes" json:"class_minutes"`

	LogLevel string `yaml:"log_level" json:"log_level"`

	Backup BackupConfig `yaml:"backup" json:"backup"`

	// BasicAuth, if set with both fields, protects everything but /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:       "127.0.0.1:8080",
		Timezone:     "Local",
		DataFile:     "./var/schedule.json",
		KeyScheme:    "auto",
		WindowDays:   7,
		ClassMinutes: 60,
		LogLevel:     "info",
		Backup: BackupConfig{
			Cron: "0 3 * * *",
			Keep: 14,
		},
	}
}

// Normalize fills in missing or invalid values so that partially filled
// configs still behave.
func (c *Config) Normalize() {
	d := DefaultConfig()
	if c.Listen == "" {
		c.Listen = d.Listen
	}
	if c.Timezone == "" {
		c.Timezone = d.Timezone
	}
	if c.DataFile == "" {
		c.DataFile = d.DataFile
	}
	switch strings.ToLower(c.KeyScheme) {
	case "weekday", "date", "auto":
		c.KeyScheme = strings.ToLower(c.KeyScheme)
	default:
		c.KeyScheme = d.KeyScheme
	}
	if c.WindowDays <= 0 {
		c.WindowDays = d.WindowDays
	}
	if c.ClassMinutes <= 0 {
		c.ClassMinutes = d.ClassMinutes
	}
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
	if c.Backup.Keep < 0 {
		c.Backup.Keep = 0
	}
}

// Location resolves Timezone, falling back to time.Local.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local, fmt.Errorf("load timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist, a default config is written with 0600
//     permissions and returned.
//   - Otherwise the YAML is decoded and normalized.
//   - In both cases CLASSCAL_* environment variables (optionally from a
//     .env file next to the working directory) override file values.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	var cfg *Config
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		cfg = DefaultConfig()
		if err := Save(path, cfg); err != nil {
			return cfg, err
		}
	case err != nil:
		return nil, err
	default:
		cfg = &Config{}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.ApplyEnv(".env"); err != nil {
		return nil, err
	}
	cfg.Normalize()
	return cfg, nil
}

// ApplyEnv loads dotenv (if the file exists) into the process
// environment without overriding variables already set, then applies
// CLASSCAL_* overrides.
func (c *Config) ApplyEnv(dotenv string) error {
	if dotenv != "" {
		if err := godotenv.Load(dotenv); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", dotenv, err)
		}
	}

	str := map[string]*string{
		"CLASSCAL_LISTEN":      &c.Listen,
		"CLASSCAL_TIMEZONE":    &c.Timezone,
		"CLASSCAL_DATA_FILE":   &c.DataFile,
		"CLASSCAL_KEY_SCHEME":  &c.KeyScheme,
		"CLASSCAL_LOG_LEVEL":   &c.LogLevel,
		"CLASSCAL_BACKUP_CRON": &c.Backup.Cron,
	}
	for name, dst := range str {
		if v, ok := os.LookupEnv(name); ok {
			*dst = v
		}
	}

	ints := map[string]*int{
		"CLASSCAL_WINDOW_DAYS":   &c.WindowDays,
		"CLASSCAL_CLASS_MINUTES": &c.ClassMinutes,
	}
	for name, dst := range ints {
		v, ok := os.LookupEnv(name)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		*dst = n
	}
	return nil
}

// Save writes the given configuration to path atomically with 0600
// permissions, creating the parent directory (0700) if needed.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".classcal-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
