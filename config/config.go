// Package config loads runtime settings from the environment and an optional .env file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Config holds every runtime setting of the server and the editor.
type Config struct {
	// Addr is the listen address of the REST and websocket server.
	Addr string `env:"ASGARIA_ADDR" envDefault:":3000"`
	// DataDir overrides the platform data directory.
	DataDir string `env:"ASGARIA_DATA_DIR"`
	// DBPath is the SQLite file. Relative paths are resolved inside the data directory.
	DBPath string `env:"ASGARIA_DB" envDefault:"asgaria.db"`
	// APIBase is the backend the editor talks to.
	APIBase string `env:"ASGARIA_API_BASE" envDefault:"http://localhost:3000"`

	MapImage      string `env:"ASGARIA_MAP_IMAGE" envDefault:"map_ck3.png"`
	BlankMapImage string `env:"ASGARIA_BLANK_MAP_IMAGE" envDefault:"map_ck3_blank.png"`
	MapWidth      int    `env:"ASGARIA_MAP_WIDTH" envDefault:"1724"`
	MapHeight     int    `env:"ASGARIA_MAP_HEIGHT" envDefault:"1291"`

	AllowUnboundedFill bool `env:"ASGARIA_ALLOW_UNBOUNDED_FILL" envDefault:"false"`

	SaveRetries   uint          `env:"ASGARIA_SAVE_RETRIES" envDefault:"4"`
	SaveTimeout   time.Duration `env:"ASGARIA_SAVE_TIMEOUT" envDefault:"30s"`
	ColorScript   string        `env:"ASGARIA_COLOR_SCRIPT"`
	ScriptTimeout time.Duration `env:"ASGARIA_SCRIPT_TIMEOUT" envDefault:"5s"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`
}

// Load reads .env (when present) and parses the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logrus.WithError(err).Warn("failed to read .env file, using process environment only")
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values the environment parser cannot.
func (c *Config) Validate() error {
	if c.MapWidth <= 0 || c.MapHeight <= 0 {
		return fmt.Errorf("invalid map size %dx%d", c.MapWidth, c.MapHeight)
	}
	if strings.TrimSpace(c.Addr) == "" {
		return fmt.Errorf("ASGARIA_ADDR must not be empty")
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		logrus.Warnf("Invalid LOG_LEVEL '%s', using default 'info'", c.LogLevel)
		c.LogLevel = "info"
	}
	return nil
}

// ResolveDBPath returns DBPath, joined with dataDir when relative.
func (c *Config) ResolveDBPath(dataDir string) string {
	if filepath.IsAbs(c.DBPath) || dataDir == "" {
		return c.DBPath
	}
	return filepath.Join(dataDir, c.DBPath)
}

// ConfigureLogging applies the level and format to the standard logrus logger.
func (c *Config) ConfigureLogging() {
	if c.LogFormat == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
}
