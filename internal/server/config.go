package server

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/iwvelando/procurement-planner/internal/config"
	"github.com/iwvelando/procurement-planner/pkg/constants"
	"gopkg.in/yaml.v3"
)

// Config defines runtime parameters for the HTTP server.
type Config struct {
	Address       string               `yaml:"address"`
	MaxUploadSize string               `yaml:"maxUploadSize"`
	MaxSolveTime  time.Duration        `yaml:"maxSolveTime"`
	StorePath     string               `yaml:"storePath"`
	Logging       config.LoggingConfig `yaml:"logging"`

	uploadSizeBytes int64
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	return &Config{
		Address:         constants.DefaultServerAddress,
		MaxUploadSize:   humanize.IBytes(uint64(constants.DefaultMaxUploadSizeBytes)),
		MaxSolveTime:    constants.DefaultMaxSolveTime,
		uploadSizeBytes: constants.DefaultMaxUploadSizeBytes,
	}
}

// LoadConfig loads the server configuration from YAML. If the file does not exist,
// defaults are returned without error.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read server config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse server config: %w", err)
	}

	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// UploadSizeBytes returns the configured upload size in bytes.
func (c *Config) UploadSizeBytes() int64 {
	return c.uploadSizeBytes
}

// SetUploadSizeBytes overrides the configured upload size.
func (c *Config) SetUploadSizeBytes(size int64) {
	if size > 0 {
		c.uploadSizeBytes = size
		c.MaxUploadSize = humanize.IBytes(uint64(size))
	}
}

// WriteTimeout is the HTTP write deadline: the longest permitted solve plus
// headroom for generation and encoding.
func (c *Config) WriteTimeout() time.Duration {
	return c.MaxSolveTime + constants.ServerTimeoutHeadroom
}

func (c *Config) normalize() error {
	c.Address = strings.TrimSpace(c.Address)
	if c.Address == "" {
		c.Address = constants.DefaultServerAddress
	}
	c.StorePath = strings.TrimSpace(c.StorePath)

	if c.MaxSolveTime < 0 {
		return fmt.Errorf("maxSolveTime must not be negative, got %s", c.MaxSolveTime)
	}
	if c.MaxSolveTime == 0 {
		c.MaxSolveTime = constants.DefaultMaxSolveTime
	}

	size, err := ParseSize(c.MaxUploadSize)
	if err != nil {
		return err
	}
	c.uploadSizeBytes = size
	c.MaxUploadSize = humanize.IBytes(uint64(size))
	return nil
}

// ParseSize converts a human-friendly byte string into bytes. SI units
// ("256kB", "10M") are powers of 1000 and IEC units ("256KiB") powers of 1024.
// An empty string yields the default upload size.
func ParseSize(value string) (int64, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return constants.DefaultMaxUploadSizeBytes, nil
	}

	n, err := humanize.ParseBytes(trimmed)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", value, err)
	}
	if n == 0 {
		return constants.DefaultMaxUploadSizeBytes, nil
	}
	if n > uint64(1<<62) {
		return 0, fmt.Errorf("size overflow for value %s", value)
	}
	return int64(n), nil
}
