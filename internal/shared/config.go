package shared

import (
	_ "embed"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Log        LogConfig        `toml:"log"`
	Database   DatabaseConfig   `toml:"database"`
	Sync       SyncConfig       `toml:"sync"`
	Extensions ExtensionsConfig `toml:"extensions"`
	Providers  ProvidersConfig  `toml:"providers"`
	Redis      RedisConfig      `toml:"redis"`
	Player     PlayerConfig     `toml:"player"`
}

// LogConfig contains logger settings.
type LogConfig struct {
	Level string `toml:"level"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// SyncConfig controls the provider sync engine.
type SyncConfig struct {
	Interval Duration `toml:"interval"`
	Settle   bool     `toml:"settle"`
	Workers  int      `toml:"workers"`
	Rate     float64  `toml:"rate"`
}

// ExtensionsConfig controls the extension host and lists the extensions to launch.
type ExtensionsConfig struct {
	Timeout          Duration          `toml:"timeout"`
	FailureThreshold int               `toml:"failure_threshold"`
	Plugins          []ExtensionConfig `toml:"plugins"`
}

// ExtensionConfig describes a single extension process.
type ExtensionConfig struct {
	Name    string   `toml:"name"`
	Command string   `toml:"command"`
	Args    []string `toml:"args"`
}

// ProvidersConfig contains settings for the bundled provider adapters.
type ProvidersConfig struct {
	Local LocalProviderConfig `toml:"local"`
}

// LocalProviderConfig lists the directories scanned by the local provider.
type LocalProviderConfig struct {
	Roots []string `toml:"roots"`
}

// RedisConfig contains the queue store connection settings. An empty Addr disables redis.
type RedisConfig struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
}

// PlayerConfig contains player and event bus settings.
type PlayerConfig struct {
	Buffer        int      `toml:"buffer"`
	DefaultVolume *float32 `toml:"default_volume"` // nil means full volume, 0 starts muted
}

// Duration wraps [time.Duration] so it can be written as "30s" in TOML.
type Duration struct {
	time.Duration
}

// UnmarshalText implements [encoding.TextUnmarshaler].
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("%w: duration %q: %v", ErrInvalidConfig, string(text), err)
	}
	d.Duration = parsed
	return nil
}

// MarshalText implements [encoding.TextMarshaler].
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Values missing from the file keep the defaults of the embedded example config.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ApplyEnv loads a .env file (if present) and overlays MEDLEY_* environment variables onto the config.
//
// Supported variables: MEDLEY_LOG_LEVEL, MEDLEY_DATABASE_PATH, MEDLEY_REDIS_ADDR,
// MEDLEY_REDIS_PASSWORD and MEDLEY_REDIS_DB.
func (c *Config) ApplyEnv(envFiles ...string) error {
	if err := godotenv.Load(envFiles...); err != nil && len(envFiles) > 0 {
		return fmt.Errorf("failed to load env file: %w", err)
	}

	if v := os.Getenv("MEDLEY_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("MEDLEY_DATABASE_PATH"); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv("MEDLEY_REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("MEDLEY_REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
	if v := os.Getenv("MEDLEY_REDIS_DB"); v != "" {
		db, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: MEDLEY_REDIS_DB=%q", ErrInvalidConfig, v)
		}
		c.Redis.DB = db
	}

	return nil
}

// Validate checks the values the engine cannot run without.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("%w: database.path is required", ErrInvalidConfig)
	}
	if c.Extensions.FailureThreshold < 1 {
		return fmt.Errorf("%w: extensions.failure_threshold must be at least 1", ErrInvalidConfig)
	}
	if c.Extensions.Timeout.Duration <= 0 {
		return fmt.Errorf("%w: extensions.timeout must be positive", ErrInvalidConfig)
	}
	if v := c.Player.DefaultVolume; v != nil && !(*v >= 0 && *v <= 1) {
		return fmt.Errorf("%w: player.default_volume must be between 0 and 1", ErrInvalidConfig)
	}
	for i, ext := range c.Extensions.Plugins {
		if ext.Command == "" {
			return fmt.Errorf("%w: extensions.plugins[%d].command is required", ErrInvalidConfig, i)
		}
	}
	return nil
}
