package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/zjrosen/iconlens/internal/log"
	"github.com/zjrosen/iconlens/internal/paths"
)

// EnvPrefix prefixes environment overrides, e.g. ICONLENS_COLOR.
const EnvPrefix = "ICONLENS"

// LocalConfigPath is the per-project config file.
const LocalConfigPath = ".iconlens/config.yaml"

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	d := Defaults()
	v.SetDefault("annotations", d.Annotations)
	v.SetDefault("inplace", d.Inplace)
	v.SetDefault("position", d.Position)
	v.SetDefault("color", d.Color)
	v.SetDefault("theme", d.Theme)
	v.SetDefault("font_size", d.FontSize)
	v.SetDefault("default_icon_size", d.DefaultIconSize)
	v.SetDefault("delimiters", d.Delimiters)
	v.SetDefault("prefixes", d.Prefixes)
	v.SetDefault("suffixes", d.Suffixes)
	v.SetDefault("includes", d.Includes)
	v.SetDefault("excludes", d.Excludes)
	v.SetDefault("custom_collection_json_paths", d.CustomCollectionJSONPaths)
	v.SetDefault("custom_collection_ids_map", d.CustomCollectionIDsMap)
	v.SetDefault("custom_aliases_json_paths", d.CustomAliasesJSONPaths)
	v.SetDefault("custom_aliases_only", d.CustomAliasesOnly)
	v.SetDefault("cdn_entry", d.CDNEntry)
	v.SetDefault("language_ids", d.LanguageIDs)
	v.SetDefault("debounce_ms", d.DebounceMS)
	v.SetDefault("fetch_timeout", d.FetchTimeout)
	v.SetDefault("cache.path", d.Cache.Path)
	v.SetDefault("tracing.enabled", d.Tracing.Enabled)
	v.SetDefault("tracing.exporter", d.Tracing.Exporter)
	v.SetDefault("tracing.otlp_endpoint", d.Tracing.OTLPEndpoint)
	v.SetDefault("tracing.sample_rate", d.Tracing.SampleRate)
	v.SetDefault("tracing.service_name", d.Tracing.ServiceName)
}

// Load reads configuration into a Config. configFile, when set, is used
// as is. Otherwise .iconlens/config.yaml in the working directory is
// tried, then ~/.config/iconlens/config.yaml; when neither exists a
// commented default is written to the user config directory. It returns
// the config file in use, which may be "".
func Load(v *viper.Viper, configFile string) (Config, string, error) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else if _, err := os.Stat(LocalConfigPath); err == nil {
		v.SetConfigFile(LocalConfigPath)
	} else {
		v.AddConfigPath(UserConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			log.Warn(log.CatConfig, "Failed to read config", "error", err)
			return Config{}, "", err
		}
		defaultPath := filepath.Join(UserConfigDir(), "config.yaml")
		if writeErr := WriteDefaultConfig(defaultPath); writeErr == nil {
			v.SetConfigFile(defaultPath)
			_ = v.ReadInConfig()
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, "", err
	}
	cfg.Cache.Path = paths.ExpandHome(cfg.Cache.Path)
	if cfg.Tracing.FilePath == "" {
		cfg.Tracing.FilePath = DefaultTracesFilePath()
	}
	cfg.Tracing.FilePath = paths.ExpandHome(cfg.Tracing.FilePath)
	if err := Validate(cfg); err != nil {
		log.Warn(log.CatConfig, "Invalid config", "error", err, "file", v.ConfigFileUsed())
		return Config{}, "", err
	}

	log.Debug(log.CatConfig, "Config loaded", "file", v.ConfigFileUsed())
	return cfg, v.ConfigFileUsed(), nil
}

// UserConfigDir returns ~/.config/iconlens.
func UserConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".iconlens"
	}
	return filepath.Join(home, ".config", "iconlens")
}
