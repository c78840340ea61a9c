// Package config loads pdftools settings. Sources, lowest priority first:
// built-in defaults, a YAML file, PDFTOOLS_* environment variables (a .env
// file is loaded into the environment by the CLI) and command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"
)

const envPrefix = "PDFTOOLS_"

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Merge     MergeConfig     `yaml:"merge"`
	Thumbnail ThumbnailConfig `yaml:"thumbnail"`
	Session   SessionConfig   `yaml:"session"`
	Convert   ConvertConfig   `yaml:"convert"`
	Log       LogConfig       `yaml:"log"`
}

type ServerConfig struct {
	Port string `yaml:"port"`
	// UploadDir holds per-request scratch directories (default os.TempDir).
	UploadDir string `yaml:"upload_dir"`
}

type MergeConfig struct {
	MaxTotalBytes ByteSize `yaml:"max_total_bytes"`
	DefaultMargin float64  `yaml:"default_margin"`
	MaxMargin     float64  `yaml:"max_margin"`
	MaxPageWidth  float64  `yaml:"max_page_width"`
}

type ThumbnailConfig struct {
	Scale       float64 `yaml:"scale"`
	JPEGQuality int     `yaml:"jpeg_quality"`
	Workers     int     `yaml:"workers"`
}

type SessionConfig struct {
	TTL time.Duration `yaml:"ttl"`
}

type ConvertConfig struct {
	Ghostscript    string   `yaml:"ghostscript"`
	DPI            float64  `yaml:"dpi"`
	MaxUploadBytes ByteSize `yaml:"max_upload_bytes"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns a Config with every default applied.
func Default() *Config {
	c := &Config{}
	c.defaults()
	return c
}

func (c *Config) defaults() {
	if c.Server.Port == "" {
		c.Server.Port = "5050"
	}
	if c.Merge.MaxTotalBytes <= 0 {
		c.Merge.MaxTotalBytes = 60 * humanize.MiByte
	}
	if c.Merge.MaxMargin <= 0 {
		c.Merge.MaxMargin = 64
	}
	if c.Merge.DefaultMargin == 0 {
		c.Merge.DefaultMargin = 16
	}
	if c.Merge.MaxPageWidth <= 0 {
		c.Merge.MaxPageWidth = 595
	}
	if c.Thumbnail.Scale <= 0 {
		c.Thumbnail.Scale = 1.2
	}
	if c.Thumbnail.JPEGQuality <= 0 {
		c.Thumbnail.JPEGQuality = 70
	}
	if c.Thumbnail.Workers <= 0 {
		c.Thumbnail.Workers = 4
	}
	if c.Session.TTL <= 0 {
		c.Session.TTL = time.Hour
	}
	if c.Convert.Ghostscript == "" {
		c.Convert.Ghostscript = "gs"
	}
	if c.Convert.DPI <= 0 {
		c.Convert.DPI = 200
	}
	if c.Convert.MaxUploadBytes <= 0 {
		c.Convert.MaxUploadBytes = 100 * humanize.MiByte
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Load reads the YAML file at path (skipped when empty), applies environment
// overrides and fills in defaults.
func Load(path string) (*Config, error) {
	c := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, c); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}
	if err := c.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	c.defaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	var errs []error
	str := func(key string, dst *string) {
		if v, ok := lookup(envPrefix + key); ok && v != "" {
			*dst = v
		}
	}
	float := func(key string, dst *float64) {
		if v, ok := lookup(envPrefix + key); ok && v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", envPrefix, key, err))
				return
			}
			*dst = f
		}
	}
	integer := func(key string, dst *int) {
		if v, ok := lookup(envPrefix + key); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", envPrefix, key, err))
				return
			}
			*dst = n
		}
	}
	size := func(key string, dst *ByteSize) {
		if v, ok := lookup(envPrefix + key); ok && v != "" {
			if err := dst.Set(v); err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", envPrefix, key, err))
			}
		}
	}

	str("PORT", &c.Server.Port)
	str("UPLOAD_DIR", &c.Server.UploadDir)
	size("MAX_TOTAL_BYTES", &c.Merge.MaxTotalBytes)
	float("DEFAULT_MARGIN", &c.Merge.DefaultMargin)
	float("MAX_MARGIN", &c.Merge.MaxMargin)
	float("MAX_PAGE_WIDTH", &c.Merge.MaxPageWidth)
	float("THUMBNAIL_SCALE", &c.Thumbnail.Scale)
	integer("THUMBNAIL_QUALITY", &c.Thumbnail.JPEGQuality)
	integer("THUMBNAIL_WORKERS", &c.Thumbnail.Workers)
	if v, ok := lookup(envPrefix + "SESSION_TTL"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sSESSION_TTL: %w", envPrefix, err))
		} else {
			c.Session.TTL = d
		}
	}
	str("GHOSTSCRIPT", &c.Convert.Ghostscript)
	float("DPI", &c.Convert.DPI)
	size("MAX_UPLOAD_BYTES", &c.Convert.MaxUploadBytes)
	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FORMAT", &c.Log.Format)

	return errors.Join(errs...)
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	var errs []error
	if _, err := strconv.Atoi(c.Server.Port); err != nil {
		errs = append(errs, fmt.Errorf("server.port must be numeric, got %q", c.Server.Port))
	}
	if c.Merge.MaxMargin > 64 {
		errs = append(errs, fmt.Errorf("merge.max_margin must be at most 64, got %v", c.Merge.MaxMargin))
	}
	if c.Merge.DefaultMargin < 0 || c.Merge.DefaultMargin > c.Merge.MaxMargin {
		errs = append(errs, fmt.Errorf("merge.default_margin must be within [0, %v], got %v", c.Merge.MaxMargin, c.Merge.DefaultMargin))
	}
	if c.Thumbnail.JPEGQuality > 100 {
		errs = append(errs, fmt.Errorf("thumbnail.jpeg_quality must be at most 100, got %d", c.Thumbnail.JPEGQuality))
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		errs = append(errs, fmt.Errorf("log.format must be text or json, got %q", c.Log.Format))
	}
	return errors.Join(errs...)
}

// ByteSize is a size in bytes that also accepts human-readable values such
// as "60MiB" or "100 MB".
type ByteSize int64

func (b ByteSize) String() string {
	return humanize.IBytes(uint64(b))
}

// Set parses s; it makes ByteSize usable as a pflag.Value.
func (b *ByteSize) Set(s string) error {
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return fmt.Errorf("invalid size %q: %w", s, err)
	}
	*b = ByteSize(n)
	return nil
}

func (b *ByteSize) Type() string { return "size" }

func (b *ByteSize) UnmarshalYAML(node *yaml.Node) error {
	return b.Set(node.Value)
}
