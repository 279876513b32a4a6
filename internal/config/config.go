package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Output        string `yaml:"output" toml:"output"`
	Threads       int    `yaml:"threads" toml:"threads"`
	Retries       int    `yaml:"retries" toml:"retries"`
	RetryUnit     string `yaml:"retry_unit" toml:"retry_unit"`
	Timeout       string `yaml:"timeout" toml:"timeout"`
	Cleanup       bool   `yaml:"cleanup" toml:"cleanup"`
	Progress      bool   `yaml:"progress" toml:"progress"`
	Debug         bool   `yaml:"debug" toml:"debug"`
	Series        string `yaml:"series" toml:"series"`
	ChapterRegex  string `yaml:"chapter_regex" toml:"chapter_regex"`
	Reverse       bool   `yaml:"reverse" toml:"reverse"`
	DetectNumbers bool   `yaml:"detect_numbers" toml:"detect_numbers"`

	Selector string   `yaml:"selector" toml:"selector"`
	Attr     string   `yaml:"attr" toml:"attr"`
	AllowExt []string `yaml:"allow_ext" toml:"allow_ext"`

	BatchSize    int    `yaml:"batch_size" toml:"batch_size"`
	VolumeOutput string `yaml:"volume_output" toml:"volume_output"`

	Cookie           string `yaml:"cookie" toml:"cookie"`
	CookieFile       string `yaml:"cookie_file" toml:"cookie_file"`
	UserAgent        string `yaml:"user_agent" toml:"user_agent"`
	CloudflareBypass bool   `yaml:"cloudflare_bypass" toml:"cloudflare_bypass"`
}

// Options carries the CLI values that override the loaded file. Empty
// strings leave the file value alone; numeric and boolean flags are applied
// by the commands when they were set explicitly.
type Options struct {
	IgnoreConfig bool
	// File loads this YAML or TOML file instead of the active profile.
	File  string
	Debug bool
	// Store holds the profiles. Default: DefaultStore()
	Store Store

	Output       string
	Series       string
	ChapterRegex string
	Selector     string
	Attr         string
	Cookie       string
	CookieFile   string
	UserAgent    string
}

func DefaultConfig() *Config {
	return &Config{
		Output:       ".",
		Threads:      8,
		Retries:      5,
		RetryUnit:    "1s",
		Timeout:      "30s",
		Cleanup:      false,
		Progress:     true,
		Debug:        false,
		Series:       "unnamed-series",
		ChapterRegex: "",
		Selector:     `meta[property="og:image"]`,
		Attr:         "content",
		AllowExt:     []string{"jpg", "jpeg", "png", "webp", "gif"},
		BatchSize:    10,
		VolumeOutput: "volumes",
	}
}

func SaveYAML(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// LoadFile reads a YAML or TOML config, picked by extension, on top of the
// defaults.
func LoadFile(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	c := DefaultConfig()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err = toml.Unmarshal(b, c)
	case ".yaml", ".yml", "":
		err = yaml.Unmarshal(b, c)
	default:
		return nil, fmt.Errorf("unsupported config format %q", filepath.Ext(path))
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	return c, nil
}

func LoadMerged(opts Options) (*Config, string, error) {
	if opts.IgnoreConfig {
		cfg := DefaultConfig()
		mergeConfig(cfg, opts)
		normalizeDefaults(cfg)
		return cfg, "(ignored config)", nil
	}

	if opts.File != "" {
		cfg, err := LoadFile(opts.File)
		if err != nil {
			return nil, "", fmt.Errorf("failed to load config %s: %w", opts.File, err)
		}
		mergeConfig(cfg, opts)
		normalizeDefaults(cfg)
		return cfg, opts.File, nil
	}

	store := opts.Store
	if store.Root == "" {
		store = DefaultStore()
	}

	_, activePath, err := store.Active()
	if errors.Is(err, ErrNoConfig) {
		cfg := DefaultConfig()
		mergeConfig(cfg, opts)
		normalizeDefaults(cfg)
		return cfg, "(default config in memory)\nRun `cbzmaker config init` to create an actual config\n", nil
	}
	if err != nil {
		return nil, "", err
	}

	cfg, err := LoadFile(activePath)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load config %s: %w", activePath, err)
	}

	mergeConfig(cfg, opts)
	normalizeDefaults(cfg)

	return cfg, activePath, nil
}

func mergeConfig(c *Config, o Options) {
	if o.Debug {
		c.Debug = true
	}
	if o.Output != "" {
		c.Output = o.Output
	}
	if o.Series != "" {
		c.Series = o.Series
	}
	if o.ChapterRegex != "" {
		c.ChapterRegex = o.ChapterRegex
	}
	if o.Selector != "" {
		c.Selector = o.Selector
	}
	if o.Attr != "" {
		c.Attr = o.Attr
	}
	if o.Cookie != "" {
		c.Cookie = o.Cookie
	}
	if o.CookieFile != "" {
		c.CookieFile = o.CookieFile
	}
	if o.UserAgent != "" {
		c.UserAgent = o.UserAgent
	}
}

func normalizeDefaults(c *Config) {
	def := DefaultConfig()

	if c.Output == "" {
		c.Output = def.Output
	}
	if c.Threads < 1 {
		c.Threads = def.Threads
	}
	if c.Retries < 0 {
		c.Retries = 0
	}
	if c.RetryUnit == "" {
		c.RetryUnit = def.RetryUnit
	}
	if c.Timeout == "" {
		c.Timeout = def.Timeout
	}
	if c.Series == "" {
		c.Series = def.Series
	}
	if c.BatchSize < 1 {
		c.BatchSize = def.BatchSize
	}
	if c.VolumeOutput == "" {
		c.VolumeOutput = def.VolumeOutput
	}
}

// Durations parses retry_unit and timeout.
func (c *Config) Durations() (retryUnit, timeout time.Duration, err error) {
	retryUnit, err = time.ParseDuration(c.RetryUnit)
	if err != nil {
		return 0, 0, fmt.Errorf("retry_unit: %w", err)
	}
	timeout, err = time.ParseDuration(c.Timeout)
	if err != nil {
		return 0, 0, fmt.Errorf("timeout: %w", err)
	}
	if retryUnit <= 0 || timeout <= 0 {
		return 0, 0, fmt.Errorf("retry_unit and timeout must be positive")
	}

	return retryUnit, timeout, nil
}

func (c *Config) Print(w io.Writer) {
	if c.Output != "" {
		fmt.Fprintf(w, " -output: %s\n", c.Output)
	}
	fmt.Fprintf(w, " -threads: %d\n", c.Threads)
	fmt.Fprintf(w, " -retries: %d (unit %s)\n", c.Retries, c.RetryUnit)
	fmt.Fprintf(w, " -timeout: %s\n", c.Timeout)
	fmt.Fprintf(w, " -series: %s\n", c.Series)
	if c.ChapterRegex != "" {
		fmt.Fprintf(w, " -chapter_regex: %s\n", c.ChapterRegex)
	}
	if c.Reverse {
		fmt.Fprintf(w, " -reverse: %t\n", c.Reverse)
	}
	if c.DetectNumbers {
		fmt.Fprintf(w, " -detect_numbers: %t\n", c.DetectNumbers)
	}
	if c.Cleanup {
		fmt.Fprintf(w, " -cleanup: %t\n", c.Cleanup)
	}
	if c.Debug {
		fmt.Fprintf(w, " -debug: %t\n", c.Debug)
	}
	if c.Selector != "" {
		fmt.Fprintf(w, " -selector: %s\n", c.Selector)
	}
	if c.Attr != "" {
		fmt.Fprintf(w, " -attr: %s\n", c.Attr)
	}
	if len(c.AllowExt) > 0 {
		fmt.Fprintf(w, " -allow_ext: %s\n", strings.Join(c.AllowExt, ", "))
	}
	fmt.Fprintf(w, " -batch_size: %d\n", c.BatchSize)
	fmt.Fprintf(w, " -volume_output: %s\n", c.VolumeOutput)
	if c.CookieFile != "" {
		fmt.Fprintf(w, " -cookie_file: %s\n", c.CookieFile)
	}
	if c.CloudflareBypass {
		fmt.Fprintf(w, " -cloudflare_bypass: %t\n", c.CloudflareBypass)
	}
}
