package adapter

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// SourceType identifies the static data source backend
type SourceType string

const (
	SourceTypeNone SourceType = "none"
	SourceTypeDir  SourceType = "dir"
	SourceTypeHTTP SourceType = "http"
)

// Config holds all application configuration
type Config struct {
	Source  SourceConfig  `mapstructure:"source"`
	Store   StoreConfig   `mapstructure:"store"`
	Export  ExportConfig  `mapstructure:"export"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// SourceConfig holds static data source configuration
type SourceConfig struct {
	Type      SourceType    `mapstructure:"type"`       // "dir", "http" or "none"
	Dir       string        `mapstructure:"dir"`        // Site root containing data/*.json
	URL       string        `mapstructure:"url"`        // Site base URL
	CacheBust bool          `mapstructure:"cache_bust"` // Append ?t=<ms> to HTTP requests
	Timeout   time.Duration `mapstructure:"timeout"`
}

// StoreConfig holds fallback store configuration
type StoreConfig struct {
	Driver string `mapstructure:"driver"` // "bolt", "sqlite" or "memory"
	Path   string `mapstructure:"path"`
}

// ExportConfig holds file export configuration
type ExportConfig struct {
	Dir     string        `mapstructure:"dir"`
	Stagger time.Duration `mapstructure:"stagger"` // Delay between consecutive saves
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	File  string `mapstructure:"file"` // Empty logs to stderr
	Level string `mapstructure:"level"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Source: SourceConfig{
			Type:      SourceTypeDir,
			Dir:       ".",
			CacheBust: true,
			Timeout:   30 * time.Second,
		},
		Store: StoreConfig{
			Driver: "bolt",
			Path:   filepath.Join(defaultDataPath(), "tadb.db"),
		},
		Export: ExportConfig{
			Dir:     "export",
			Stagger: 500 * time.Millisecond,
		},
		Logging: LoggingConfig{
			File:  filepath.Join(defaultDataPath(), "tadb.log"),
			Level: "INFO",
		},
	}
}

// defaultDataPath returns the per-user data directory for the current OS
func defaultDataPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "tadb")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "tadb")
	}
}

// defaultConfigPath returns the default config file path for the current OS
func defaultConfigPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "tadb")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "tadb")
	}
}

// LoadConfig loads configuration from file and environment.
// An explicit configFile overrides the search path.
func LoadConfig(configFile string) (*Config, error) {
	return loadConfig(viper.New(), configFile)
}

func loadConfig(v *viper.Viper, configFile string) (*Config, error) {
	cfg := DefaultConfig()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(defaultConfigPath())
		v.AddConfigPath(".")
	}

	// Environment variable overrides (TADB_STORE_DRIVER, ...)
	v.SetEnvPrefix("TADB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindDefaults(v, cfg)

	// Read config file if it exists
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || configFile != "" {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, use defaults
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	cfg.Store.Path = ExpandHome(cfg.Store.Path)
	cfg.Source.Dir = ExpandHome(cfg.Source.Dir)
	cfg.Export.Dir = ExpandHome(cfg.Export.Dir)
	cfg.Logging.File = ExpandHome(cfg.Logging.File)

	return cfg, cfg.Validate()
}

// bindDefaults registers every key so AutomaticEnv can override values
// that are absent from the config file.
func bindDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("source.type", string(cfg.Source.Type))
	v.SetDefault("source.dir", cfg.Source.Dir)
	v.SetDefault("source.url", cfg.Source.URL)
	v.SetDefault("source.cache_bust", cfg.Source.CacheBust)
	v.SetDefault("source.timeout", cfg.Source.Timeout)

	v.SetDefault("store.driver", cfg.Store.Driver)
	v.SetDefault("store.path", cfg.Store.Path)

	v.SetDefault("export.dir", cfg.Export.Dir)
	v.SetDefault("export.stagger", cfg.Export.Stagger)

	v.SetDefault("logging.file", cfg.Logging.File)
	v.SetDefault("logging.level", cfg.Logging.Level)
}

// Validate checks that the selected backends have what they need
func (c *Config) Validate() error {
	switch c.Source.Type {
	case SourceTypeNone, "":
	case SourceTypeDir:
		if c.Source.Dir == "" {
			return fmt.Errorf("source.dir is required for dir source")
		}
	case SourceTypeHTTP:
		if c.Source.URL == "" {
			return fmt.Errorf("source.url is required for http source")
		}
	default:
		return fmt.Errorf("unknown source type: %s", c.Source.Type)
	}
	if c.Export.Stagger < 0 {
		return fmt.Errorf("export.stagger must not be negative")
	}
	return nil
}

// ExpandHome replaces a leading ~ with the user's home directory
func ExpandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
