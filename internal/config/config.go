package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/eargollo/dupefinder/internal/catalog"
	"github.com/eargollo/dupefinder/internal/report"
)

// Config holds all configuration loaded from config.yaml.
type Config struct {
	Root               string      `yaml:"root"`
	Mode               string      `yaml:"mode"`
	ReportPath         string      `yaml:"report_path"`
	XLSXPath           string      `yaml:"xlsx_path"`
	MetricsFile        string      `yaml:"metrics_file"`
	LogLevel           string      `yaml:"log_level"`
	Schedule           string      `yaml:"schedule"`
	TrashDir           string      `yaml:"trash_dir"`
	TrashRetentionDays int         `yaml:"trash_retention_days"`
	PurgeSchedule      string      `yaml:"purge_schedule"`
	Workers            ScanWorkers `yaml:"workers"`
	Catalog            Catalog     `yaml:"catalog"`
}

// ScanWorkers holds concurrency knobs for the scan pipeline.
type ScanWorkers struct {
	Walkers       int `yaml:"walkers"`
	HeaderHashers int `yaml:"header_hashers"`
	FullHashers   int `yaml:"full_hashers"`
}

// Catalog holds enable toggles layered over the built-in extension table.
type Catalog struct {
	Groups     map[string]bool `yaml:"groups"`
	Extensions map[string]bool `yaml:"extensions"`
}

// applyDefaults fills zero/empty fields with sensible defaults.
func (c *Config) applyDefaults() {
	if c.Root == "" {
		c.Root = "."
	}
	if c.Mode == "" {
		c.Mode = "content"
	}
	if c.ReportPath == "" {
		c.ReportPath = report.DefaultLogPath
	}
	if c.TrashDir == "" {
		c.TrashDir = ".dupefinder-trash"
	}
	if c.TrashRetentionDays == 0 {
		c.TrashRetentionDays = 30
	}
	if c.PurgeSchedule == "" {
		c.PurgeSchedule = "0 3 * * *"
	}
	if c.Workers.Walkers == 0 {
		c.Workers.Walkers = 4
	}
	if c.Workers.HeaderHashers == 0 {
		c.Workers.HeaderHashers = 4
	}
	if c.Workers.FullHashers == 0 {
		c.Workers.FullHashers = 2
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// Default returns a Config with every default applied.
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

// Load reads and parses the YAML config file at path.
// If the file does not exist, Load returns a default Config so the CLI
// runs without a config file.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("open config %q: %w", path, err)
	}
	defer f.Close()

	var cfg Config
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse config %q: %w", path, err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// Validate rejects settings the scanner cannot run with.
func (c *Config) Validate() error {
	switch c.Mode {
	case "content", "metadata":
	default:
		return fmt.Errorf("mode must be content or metadata, got %q", c.Mode)
	}
	if c.Workers.Walkers < 0 || c.Workers.HeaderHashers < 0 || c.Workers.FullHashers < 0 {
		return errors.New("worker counts must not be negative")
	}
	if c.TrashRetentionDays < 0 {
		return errors.New("trash_retention_days must not be negative")
	}
	for g := range c.Catalog.Groups {
		if !catalog.ValidGroup(catalog.Group(g)) {
			return fmt.Errorf("unknown catalog group %q", g)
		}
	}
	for ext := range c.Catalog.Extensions {
		if !catalog.IsKnown(normalizeExt(ext)) {
			return fmt.Errorf("unknown catalog extension %q", ext)
		}
	}
	return nil
}

// Overrides converts the catalog section into catalog overrides.
func (c *Config) Overrides() catalog.Overrides {
	var o catalog.Overrides
	for g, v := range c.Catalog.Groups {
		o.SetGroup(catalog.Group(g), v)
	}
	for ext, v := range c.Catalog.Extensions {
		o.SetExtension(normalizeExt(ext), v)
	}
	return o
}

// normalizeExt accepts "mp3", ".mp3" and ".MP3" alike.
func normalizeExt(ext string) string {
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return strings.ToUpper(ext)
}
