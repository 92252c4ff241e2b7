// Package config provides configuration types and defaults for iconlens.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/zjrosen/iconlens/internal/catalog"
	"github.com/zjrosen/iconlens/internal/log"
	"github.com/zjrosen/iconlens/internal/paths"
	"github.com/zjrosen/iconlens/internal/tracing"
)

// Config holds all configuration options for iconlens.
type Config struct {
	Annotations bool    `mapstructure:"annotations"`
	Inplace     bool    `mapstructure:"inplace"`
	Position    string  `mapstructure:"position"` // "before" (default) or "after"
	Color       string  `mapstructure:"color"`    // "auto" or a CSS color
	Theme       string  `mapstructure:"theme"`    // "auto", "dark" or "light"
	FontSize    float64 `mapstructure:"font_size"`

	DefaultIconSize int `mapstructure:"default_icon_size"`

	Delimiters []string `mapstructure:"delimiters"`
	Prefixes   []string `mapstructure:"prefixes"`
	Suffixes   []string `mapstructure:"suffixes"`
	Includes   []string `mapstructure:"includes"`
	Excludes   []string `mapstructure:"excludes"`

	CustomCollectionJSONPaths []string          `mapstructure:"custom_collection_json_paths"`
	CustomCollectionIDsMap    map[string]string `mapstructure:"custom_collection_ids_map"`
	CustomAliasesJSONPaths    []string          `mapstructure:"custom_aliases_json_paths"`
	CustomAliasesOnly         bool              `mapstructure:"custom_aliases_only"`

	CDNEntry     string        `mapstructure:"cdn_entry"`
	LanguageIDs  []string      `mapstructure:"language_ids"`
	DebounceMS   int           `mapstructure:"debounce_ms"`
	FetchTimeout time.Duration `mapstructure:"fetch_timeout"`

	Cache   CacheConfig     `mapstructure:"cache"`
	Tracing tracing.Config  `mapstructure:"tracing"`
	Flags   map[string]bool `mapstructure:"flags"`
}

// CacheConfig locates the durable collection cache.
type CacheConfig struct {
	Path string `mapstructure:"path"`
}

// Positions accepted by the position key.
const (
	PositionBefore = "before"
	PositionAfter  = "after"
)

// Themes accepted by the theme key.
const (
	ThemeAuto  = "auto"
	ThemeDark  = "dark"
	ThemeLight = "light"
)

// DefaultLanguageIDs are the document languages scanned by the language server.
func DefaultLanguageIDs() []string {
	return []string{
		"javascript", "javascriptreact", "typescript", "typescriptreact",
		"vue", "svelte", "html", "pug", "markdown",
	}
}

// Defaults returns a Config with default values.
func Defaults() Config {
	return Config{
		Annotations:            true,
		Inplace:                true,
		Position:               PositionBefore,
		Color:                  "auto",
		Theme:                  ThemeAuto,
		FontSize:               12,
		DefaultIconSize:        catalog.DefaultIconSize,
		Delimiters:             []string{":", "--", "-", "/"},
		Prefixes:               []string{"", "i-", "~icons/"},
		Suffixes:               []string{""},
		Includes:               []string{},
		Excludes:               []string{},
		CustomCollectionIDsMap: map[string]string{},
		CDNEntry:               catalog.DefaultCDNEntry,
		LanguageIDs:            DefaultLanguageIDs(),
		DebounceMS:             150,
		FetchTimeout:           15 * time.Second,
		Cache:                  CacheConfig{Path: paths.DefaultCacheDB()},
		Tracing:                tracing.DefaultConfig(),
		Flags:                  map[string]bool{},
	}
}

// Debounce returns the rescan quiet period.
func (c Config) Debounce() time.Duration {
	return time.Duration(c.DebounceMS) * time.Millisecond
}

// GlyphSize is the inline decoration size derived from the editor font size.
func (c Config) GlyphSize() int {
	return int(c.FontSize * 1.2)
}

// Validate checks the configuration for errors. Empty values fall back to
// defaults and are valid.
func Validate(c Config) error {
	switch c.Position {
	case "", PositionBefore, PositionAfter:
	default:
		return fmt.Errorf("position must be %q or %q, got %q", PositionBefore, PositionAfter, c.Position)
	}

	switch c.Theme {
	case "", ThemeAuto, ThemeDark, ThemeLight:
	default:
		return fmt.Errorf("theme must be %q, %q or %q, got %q", ThemeAuto, ThemeDark, ThemeLight, c.Theme)
	}

	if c.FontSize < 0 {
		return fmt.Errorf("font_size must not be negative, got %v", c.FontSize)
	}
	if c.DefaultIconSize < 0 {
		return fmt.Errorf("default_icon_size must not be negative, got %d", c.DefaultIconSize)
	}
	if c.DebounceMS < 0 {
		return fmt.Errorf("debounce_ms must not be negative, got %d", c.DebounceMS)
	}

	if len(c.Delimiters) == 0 {
		return fmt.Errorf("delimiters must not be empty")
	}
	for i, d := range c.Delimiters {
		if d == "" {
			return fmt.Errorf("delimiters[%d] must not be empty", i)
		}
	}

	for written, canonical := range c.CustomCollectionIDsMap {
		if strings.TrimSpace(written) == "" || strings.TrimSpace(canonical) == "" {
			return fmt.Errorf("custom_collection_ids_map entries must be non-empty, got %q: %q", written, canonical)
		}
	}

	if c.CDNEntry != "" && !strings.HasPrefix(c.CDNEntry, "http://") && !strings.HasPrefix(c.CDNEntry, "https://") {
		return fmt.Errorf("cdn_entry must be an http(s) URL, got %q", c.CDNEntry)
	}

	return ValidateTracing(c.Tracing)
}

// ValidateTracing checks tracing configuration for errors.
func ValidateTracing(t tracing.Config) error {
	if t.SampleRate < 0.0 || t.SampleRate > 1.0 {
		return fmt.Errorf("tracing.sample_rate must be between 0.0 and 1.0, got %v", t.SampleRate)
	}

	if t.Exporter != "" {
		switch t.Exporter {
		case "none", "file", "stdout", "otlp":
		default:
			return fmt.Errorf("tracing.exporter must be \"none\", \"file\", \"stdout\", or \"otlp\", got %q", t.Exporter)
		}
	}

	if t.Enabled {
		if t.Exporter == "file" && t.FilePath == "" {
			return fmt.Errorf("tracing.file_path is required when exporter is \"file\"")
		}
		if t.Exporter == "otlp" && t.OTLPEndpoint == "" {
			return fmt.Errorf("tracing.otlp_endpoint is required when exporter is \"otlp\"")
		}
	}
	return nil
}

// DefaultTracesFilePath returns ~/.config/iconlens/traces/traces.jsonl, or
// "" if the home directory is unavailable.
func DefaultTracesFilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "iconlens", "traces", "traces.jsonl")
}

// DefaultConfigTemplate returns the default config as a YAML string with comments.
func DefaultConfigTemplate() string {
	return `# iconlens configuration

# Show inline icon previews next to icon references
annotations: true

# Hide the reference text and show only the icon (editors that support it)
inplace: true

# Where the preview goes relative to the reference: before or after
position: before

# Icon color: "auto" follows the theme, or any CSS color such as "#e06c75"
color: auto

# auto, dark or light. auto asks the terminal in CLI mode.
theme: auto

# Editor font size; inline previews are drawn at 1.2x this
font_size: 12

# Width and height used when neither an icon nor its collection declares one
default_icon_size: 32

# Separators between collection id and icon name (mdi:home, mdi-home, ...)
delimiters: [":", "--", "-", "/"]

# Text that may precede a reference. "" means no prefix is required.
prefixes: ["", "i-", "~icons/"]

# Text that may follow a reference
suffixes: [""]

# Collections to recognize. Empty means every bundled collection.
# Entries may be ids or globs such as "material-*".
includes: []

# Collections to ignore. Ids or globs.
excludes: []

# Extra collections in Iconify JSON format: paths, file:// or https:// URLs.
# Relative paths are resolved against each workspace folder.
# custom_collection_json_paths:
#   - ./icons/brand.json

# Rename collection ids as written in source to a loaded collection
# custom_collection_ids_map:
#   material: mdi

# Alias files: flat JSON objects of alias -> "collection:icon"
# custom_aliases_json_paths:
#   - ./icons/aliases.json

# Only recognize aliases, not collection:icon references
custom_aliases_only: false

# Where collection JSON is downloaded from
# cdn_entry: https://raw.githubusercontent.com/iconify/icon-sets/master/json

# Quiet period before rescanning an edited document
debounce_ms: 150

# HTTP timeout for collection downloads
fetch_timeout: 15s

# Durable collection cache
# cache:
#   path: ~/.cache/iconlens/cache.db

# Distributed tracing
# tracing:
#   enabled: false                 # Enable/disable tracing (default: false)
#   exporter: file                 # none, file, stdout, otlp (default: file)
#   file_path: ~/.config/iconlens/traces/traces.jsonl
#   otlp_endpoint: localhost:4317
#   sample_rate: 1.0

# Feature flags
# flags:
#   legacy-cache-migration: true
#   remote-custom-collections: true
`
}

// WriteDefaultConfig creates a config file at the given path with default settings and comments.
// Creates the parent directory if it doesn't exist.
func WriteDefaultConfig(configPath string) error {
	log.Debug(log.CatConfig, "Writing default config", "path", configPath)

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to create config directory", err, "dir", dir)
		return fmt.Errorf("creating config directory: %w", err)
	}

	if err := os.WriteFile(configPath, []byte(DefaultConfigTemplate()), 0o600); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to write config file", err, "path", configPath)
		return fmt.Errorf("writing config file: %w", err)
	}

	log.Info(log.CatConfig, "Created default config", "path", configPath)
	return nil
}
