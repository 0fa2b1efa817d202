package config

import (
	"ctchen222/tictactoe-ai/internal/validator"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete server configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Store     StoreConfig     `yaml:"store"`
	Redis     RedisConfig     `yaml:"redis"`
	SQLite    SQLiteConfig    `yaml:"sqlite"`
	Auth      AuthConfig      `yaml:"auth"`
	Game      GameConfig      `yaml:"game"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Log       LogConfig       `yaml:"log"`
}

type HTTPConfig struct {
	Addr            string        `yaml:"addr" validate:"required"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" validate:"gt=0"`
}

// StoreConfig selects the backends for game sessions and the score counters.
type StoreConfig struct {
	Sessions string `yaml:"sessions" validate:"oneof=memory redis"`
	Scores   string `yaml:"scores" validate:"oneof=memory redis sqlite"`
}

type RedisConfig struct {
	Addr       string        `yaml:"addr" validate:"required"`
	KeyPrefix  string        `yaml:"key_prefix"`
	SessionTTL time.Duration `yaml:"session_ttl" validate:"gte=0"`
}

type SQLiteConfig struct {
	Path string `yaml:"path" validate:"required"`
}

type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret" validate:"required,min=16"`
	TokenTTL  time.Duration `yaml:"token_ttl" validate:"gt=0"`
}

type GameConfig struct {
	DefaultDifficulty string `yaml:"default_difficulty" validate:"difficulty"`
	// MoveTimeout is how long a websocket player may think before the
	// engine moves for them. Zero disables it.
	MoveTimeout       time.Duration `yaml:"move_timeout" validate:"gte=0"`
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval" validate:"gt=0"`
	// ThinkDelay is added before the computer's reply over websocket.
	ThinkDelay time.Duration `yaml:"think_delay" validate:"gte=0"`
}

type TelemetryConfig struct {
	Enabled        bool   `yaml:"enabled"`
	Endpoint       string `yaml:"endpoint" validate:"required_if=Enabled true"`
	ServiceName    string `yaml:"service_name" validate:"required"`
	ServiceVersion string `yaml:"service_version"`
	StdoutTraces   bool   `yaml:"stdout_traces"`
}

type LogConfig struct {
	Level string `yaml:"level" validate:"oneof=debug info warn error"`
}

// Default returns the configuration used when no file or environment is given.
func Default() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Addr:            ":8080",
			ShutdownTimeout: 5 * time.Second,
		},
		Store: StoreConfig{
			Sessions: "memory",
			Scores:   "sqlite",
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			KeyPrefix:  "ttt:",
			SessionTTL: 24 * time.Hour,
		},
		SQLite: SQLiteConfig{
			Path: "./master.db",
		},
		Auth: AuthConfig{
			TokenTTL: 72 * time.Hour,
		},
		Game: GameConfig{
			DefaultDifficulty: "medium",
			MoveTimeout:       0,
			HeartbeatInterval: 10 * time.Second,
			ThinkDelay:        400 * time.Millisecond,
		},
		Telemetry: TelemetryConfig{
			Enabled:        false,
			Endpoint:       "otel-collector:4317",
			ServiceName:    "tic-tac-toe",
			ServiceVersion: "v0.1.0",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads the YAML file at path (if any) over the defaults, applies
// environment overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	if err := validator.GetValidator().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"TTT_HTTP_ADDR":               &c.HTTP.Addr,
		"TTT_SESSION_STORE":           &c.Store.Sessions,
		"TTT_SCORE_STORE":             &c.Store.Scores,
		"REDIS_CONNSTRING":            &c.Redis.Addr,
		"TTT_SQLITE_PATH":             &c.SQLite.Path,
		"TTT_JWT_SECRET":              &c.Auth.JWTSecret,
		"TTT_DEFAULT_DIFFICULTY":      &c.Game.DefaultDifficulty,
		"TTT_LOG_LEVEL":               &c.Log.Level,
		"OTEL_SERVICE_NAME":           &c.Telemetry.ServiceName,
		"OTEL_EXPORTER_OTLP_ENDPOINT": &c.Telemetry.Endpoint,
	}
	for key, dst := range strs {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	durations := map[string]*time.Duration{
		"TTT_MOVE_TIMEOUT": &c.Game.MoveTimeout,
		"TTT_THINK_DELAY":  &c.Game.ThinkDelay,
		"TTT_SESSION_TTL":  &c.Redis.SessionTTL,
		"TTT_TOKEN_TTL":    &c.Auth.TokenTTL,
	}
	for key, dst := range durations {
		if v, ok := lookup(key); ok && v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("invalid %s: %w", key, err)
			}
			*dst = d
		}
	}

	if v, ok := lookup("TTT_TELEMETRY_ENABLED"); ok && v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid TTT_TELEMETRY_ENABLED: %w", err)
		}
		c.Telemetry.Enabled = enabled
	}
	return nil
}
