package apiclient

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
)

// Config holds the process-wide client settings, read once at startup.
type Config struct {
	BaseURL  string        `env:"API_BASE_URL,default=http://localhost:8080/api/v1"`
	Timeout  time.Duration `env:"API_TIMEOUT,default=0s"`
	Debug    bool          `env:"API_DEBUG,default=false"`
	LogLevel string        `env:"API_LOG_LEVEL"`
}

// LoadConfig reads the given dotenv files (".env" when none are named) into
// the environment without overriding variables already set, then decodes the
// environment into a Config. Missing dotenv files are ignored.
func LoadConfig(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return Config{}, fmt.Errorf("decode environment: %w", err)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	return cfg, nil
}

// NewFromConfig builds a Client from cfg. opts are applied after the
// config-derived options and may override them.
//
// Failed calls are logged at warn level through a logger filtered at
// cfg.LogLevel. Debug additionally logs every request and coalesced join.
// An empty LogLevel means "debug" with Debug set and "info" otherwise.
func NewFromConfig(cfg Config, opts ...Option) (*Client, error) {
	level := cfg.LogLevel
	if level == "" {
		level = "info"
		if cfg.Debug {
			level = "debug"
		}
	}
	logger, err := NewLeveledLogger(level)
	if err != nil {
		return nil, err
	}

	options := []Option{WithBaseURL(cfg.BaseURL), WithLogger(logger)}
	if cfg.Timeout > 0 {
		options = append(options, WithTimeout(cfg.Timeout))
	}
	if cfg.Debug {
		options = append(options, WithDebug())
	}
	options = append(options, opts...)

	client := New(options...)
	if err := client.ValidationError(); err != nil {
		return nil, err
	}
	return client, nil
}
