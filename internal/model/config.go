package model

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment variables that override config keys,
// e.g. FORGE_SPARKS_POLL_INTERVAL_SEC.
const EnvPrefix = "FORGE_SPARKS"

const appDirName = "forge-sparks"

// PollConfig controls the polling engine.
type PollConfig struct {
	// IntervalSec is the delay between two polling cycles.
	IntervalSec int `mapstructure:"interval_sec" yaml:"interval_sec"`
}

// Interval returns IntervalSec as a duration, never below one second.
func (c PollConfig) Interval() time.Duration {
	if c.IntervalSec < 1 {
		return time.Second
	}
	return time.Duration(c.IntervalSec) * time.Second
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`

	// File receives log output when set. The TUI owns the terminal, so
	// interactive runs log to a file.
	File string `mapstructure:"file" yaml:"file"`
}

// StoreConfig locates the account database.
type StoreConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// KeyringConfig selects the secret store backends.
type KeyringConfig struct {
	// Backends restricts the keyring backends, in preference order.
	// Empty means the platform default order.
	Backends []string `mapstructure:"backends" yaml:"backends"`

	// FileDir is used by the encrypted file backend.
	FileDir string `mapstructure:"file_dir" yaml:"file_dir"`
}

// NotifyConfig controls desktop notifications.
type NotifyConfig struct {
	Desktop bool `mapstructure:"desktop" yaml:"desktop"`
}

// GitHubConfig holds GitHub specific knobs.
type GitHubConfig struct {
	// ReferrerStrategy selects how the notification_referrer_id query
	// parameter is built: "thread", "packed" or "none".
	ReferrerStrategy string `mapstructure:"referrer_strategy" yaml:"referrer_strategy"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	// Addr is the listen address; empty disables the endpoint.
	Addr string `mapstructure:"addr" yaml:"addr"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Poll    PollConfig    `mapstructure:"poll" yaml:"poll"`
	Log     LogConfig     `mapstructure:"log" yaml:"log"`
	Store   StoreConfig   `mapstructure:"store" yaml:"store"`
	Keyring KeyringConfig `mapstructure:"keyring" yaml:"keyring"`
	Notify  NotifyConfig  `mapstructure:"notify" yaml:"notify"`
	GitHub  GitHubConfig  `mapstructure:"github" yaml:"github"`
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/forge-sparks/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", appDirName, "config.yaml")
}

// DefaultDataDir returns ~/.local/share/forge-sparks.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".local", "share", appDirName)
}

// DefaultAppConfig returns the configuration used when no file exists.
func DefaultAppConfig() *AppConfig {
	dataDir := DefaultDataDir()
	return &AppConfig{
		Poll: PollConfig{IntervalSec: 60},
		Log:  LogConfig{Level: "info"},
		Store: StoreConfig{
			Path: filepath.Join(dataDir, "forge-sparks.db"),
		},
		Keyring: KeyringConfig{
			FileDir: filepath.Join(dataDir, "keyring"),
		},
		Notify: NotifyConfig{Desktop: true},
		GitHub: GitHubConfig{ReferrerStrategy: "thread"},
	}
}

func setDefaults(v *viper.Viper) {
	def := DefaultAppConfig()
	v.SetDefault("poll.interval_sec", def.Poll.IntervalSec)
	v.SetDefault("log.level", def.Log.Level)
	v.SetDefault("log.file", def.Log.File)
	v.SetDefault("store.path", def.Store.Path)
	v.SetDefault("keyring.backends", def.Keyring.Backends)
	v.SetDefault("keyring.file_dir", def.Keyring.FileDir)
	v.SetDefault("notify.desktop", def.Notify.Desktop)
	v.SetDefault("github.referrer_strategy", def.GitHub.ReferrerStrategy)
	v.SetDefault("metrics.addr", def.Metrics.Addr)
}

// NewViper returns a viper instance with defaults and environment
// overrides applied, reading from path.
func NewViper(path string) *viper.Viper {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// If the file does not exist, defaults (plus environment overrides) are
// returned.
func LoadConfig(path string) (*AppConfig, error) {
	return LoadConfigFrom(NewViper(path))
}

// LoadConfigFrom unmarshals an already prepared viper instance. Callers
// use it to bind command-line flags before loading.
func LoadConfigFrom(v *viper.Viper) (*AppConfig, error) {
	if err := v.ReadInConfig(); err != nil {
		var pathErr *os.PathError
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &pathErr) && !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config %s: %w", v.ConfigFileUsed(), err)
		}
	}

	cfg := DefaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", v.ConfigFileUsed(), err)
	}
	if cfg.Poll.IntervalSec < 1 {
		cfg.Poll.IntervalSec = DefaultAppConfig().Poll.IntervalSec
	}

	return cfg, nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("poll", cfg.Poll)
	v.Set("log", cfg.Log)
	v.Set("store", cfg.Store)
	v.Set("keyring", cfg.Keyring)
	v.Set("notify", cfg.Notify)
	v.Set("github", cfg.GitHub)
	v.Set("metrics", cfg.Metrics)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
