// Package config loads server configuration from defaults, an optional
// YAML file, a .env file and SCRIBBLE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const EnvPrefix = "SCRIBBLE"

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	// PublicURL is the externally visible base URL used in join links.
	// When empty the request's own scheme and host are used.
	PublicURL string `mapstructure:"public_url"`
	// AllowedOrigins restricts CORS and websocket origins. Empty allows all.
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Addr returns the "host:port" listen address.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// GameConfig holds round timing.
type GameConfig struct {
	TotalRounds        int           `mapstructure:"total_rounds"`
	RoundDuration      time.Duration `mapstructure:"round_duration"`
	BlitzRoundDuration time.Duration `mapstructure:"blitz_round_duration"`
	RoundEndDelay      time.Duration `mapstructure:"round_end_delay"`
	TickInterval       time.Duration `mapstructure:"tick_interval"`
	ModifierInterval   time.Duration `mapstructure:"modifier_interval"`
}

// WebSocketConfig holds per-connection transport limits.
type WebSocketConfig struct {
	ReadBufferSize  int           `mapstructure:"read_buffer_size"`
	WriteBufferSize int           `mapstructure:"write_buffer_size"`
	WriteWait       time.Duration `mapstructure:"write_wait"`
	PongWait        time.Duration `mapstructure:"pong_wait"`
	MaxMessageSize  int64         `mapstructure:"max_message_size"`
	SendQueueSize   int           `mapstructure:"send_queue_size"`
	// RateLimit is the sustained inbound messages per second per connection.
	RateLimit float64 `mapstructure:"rate_limit"`
	RateBurst int     `mapstructure:"rate_burst"`
}

// WordsConfig selects where the word bank comes from.
type WordsConfig struct {
	// Source is one of "builtin", "csv" or "postgres".
	Source  string `mapstructure:"source"`
	CSVPath string `mapstructure:"csv_path"`
}

// DatabaseConfig holds the PostgreSQL connection used by the word store.
type DatabaseConfig struct {
	DSN      string `mapstructure:"dsn"`
	MaxConns int32  `mapstructure:"max_conns"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
}

// Config is the top-level application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Game      GameConfig      `mapstructure:"game"`
	WebSocket WebSocketConfig `mapstructure:"websocket"`
	Words     WordsConfig     `mapstructure:"words"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// Validate checks every section and reports all violations at once.
func (c Config) Validate() error {
	var errs []string
	for _, err := range []error{
		validateServer(c.Server),
		validateGame(c.Game),
		validateWebSocket(c.WebSocket),
		validateWords(c.Words, c.Database),
		validateLogging(c.Logging),
	} {
		if err != nil {
			errs = append(errs, err.Error())
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateServer(s ServerConfig) error {
	var errs []string
	if s.Port < 1 || s.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", s.Port))
	}
	if s.ShutdownTimeout < 0 {
		errs = append(errs, "server.shutdown_timeout must not be negative")
	}
	if s.PublicURL != "" && !strings.HasPrefix(s.PublicURL, "http://") && !strings.HasPrefix(s.PublicURL, "https://") {
		errs = append(errs, fmt.Sprintf("server.public_url must start with http:// or https://, got %q", s.PublicURL))
	}
	return joinErrs(errs)
}

func validateGame(g GameConfig) error {
	var errs []string
	if g.TotalRounds < 1 {
		errs = append(errs, fmt.Sprintf("game.total_rounds must be >= 1, got %d", g.TotalRounds))
	}
	if g.RoundDuration < time.Second {
		errs = append(errs, "game.round_duration must be at least 1s")
	}
	if g.BlitzRoundDuration < time.Second {
		errs = append(errs, "game.blitz_round_duration must be at least 1s")
	}
	if g.RoundEndDelay < 0 {
		errs = append(errs, "game.round_end_delay must not be negative")
	}
	if g.TickInterval <= 0 {
		errs = append(errs, "game.tick_interval must be positive")
	}
	if g.ModifierInterval <= 0 {
		errs = append(errs, "game.modifier_interval must be positive")
	}
	return joinErrs(errs)
}

func validateWebSocket(w WebSocketConfig) error {
	var errs []string
	if w.ReadBufferSize < 0 || w.WriteBufferSize < 0 {
		errs = append(errs, "websocket buffer sizes must not be negative")
	}
	if w.PongWait <= 0 {
		errs = append(errs, "websocket.pong_wait must be positive")
	}
	if w.WriteWait <= 0 {
		errs = append(errs, "websocket.write_wait must be positive")
	}
	if w.MaxMessageSize < 1 {
		errs = append(errs, fmt.Sprintf("websocket.max_message_size must be >= 1, got %d", w.MaxMessageSize))
	}
	if w.SendQueueSize < 1 {
		errs = append(errs, fmt.Sprintf("websocket.send_queue_size must be >= 1, got %d", w.SendQueueSize))
	}
	if w.RateLimit <= 0 {
		errs = append(errs, "websocket.rate_limit must be positive")
	}
	if w.RateBurst < 1 {
		errs = append(errs, fmt.Sprintf("websocket.rate_burst must be >= 1, got %d", w.RateBurst))
	}
	return joinErrs(errs)
}

func validateWords(w WordsConfig, d DatabaseConfig) error {
	switch w.Source {
	case "builtin":
		return nil
	case "csv":
		if w.CSVPath == "" {
			return errors.New("words.csv_path must be set when words.source is csv")
		}
		return nil
	case "postgres":
		if d.DSN == "" {
			return errors.New("database.dsn must be set when words.source is postgres")
		}
		return nil
	default:
		return fmt.Errorf("words.source must be one of [builtin, csv, postgres], got %q", w.Source)
	}
}

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console], got %q", l.Format)
	}
	return nil
}

func joinErrs(errs []string) error {
	if len(errs) == 0 {
		return nil
	}
	return errors.New(strings.Join(errs, "; "))
}

// NewViper returns a viper instance with defaults and SCRIBBLE_*
// environment overrides, e.g. SCRIBBLE_SERVER_PORT for server.port.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

// LoadEnvFile loads KEY=VALUE pairs from path into the process
// environment. A missing file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading env file %s: %w", path, err)
	}
	return nil
}

// Load reads the optional YAML file at path into v, then unmarshals and
// validates the result. Call LoadEnvFile first so .env values are visible.
func Load(v *viper.Viper, path string) (Config, error) {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
	}
	return LoadFromViper(v)
}

// LoadFromViper builds a Config from an already-configured Viper instance.
func LoadFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.public_url", "")
	v.SetDefault("server.allowed_origins", []string{})
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("game.total_rounds", 10)
	v.SetDefault("game.round_duration", "60s")
	v.SetDefault("game.blitz_round_duration", "15s")
	v.SetDefault("game.round_end_delay", "3s")
	v.SetDefault("game.tick_interval", "1s")
	v.SetDefault("game.modifier_interval", "10s")

	v.SetDefault("websocket.read_buffer_size", 1024)
	v.SetDefault("websocket.write_buffer_size", 1024)
	v.SetDefault("websocket.write_wait", "10s")
	v.SetDefault("websocket.pong_wait", "60s")
	v.SetDefault("websocket.max_message_size", 16384)
	v.SetDefault("websocket.send_queue_size", 256)
	v.SetDefault("websocket.rate_limit", 60)
	v.SetDefault("websocket.rate_burst", 120)

	v.SetDefault("words.source", "builtin")
	v.SetDefault("words.csv_path", "")

	v.SetDefault("database.dsn", "")
	v.SetDefault("database.max_conns", 4)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}
