package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable the logger reads
const EnvPrefix = "AIRCRAFT_LOGGER"

// ConfigPathEnv names a YAML config file to use instead of the search paths
const ConfigPathEnv = EnvPrefix + "_CONFIG_PATH"

// Config holds all configuration for the logger
type Config struct {
	DBPath      string
	ListenAddr  string
	MaxPictures int
	Shell       ShellConfig
	Log         LogConfig
}

// ShellConfig holds the offline asset cache settings
type ShellConfig struct {
	Version         string
	URLs            []string
	Whitelist       []string
	RefreshInterval time.Duration
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string
	Format string
}

// TailwindURL is the stylesheet CDN the pages load; it is whitelisted and
// pre-cached by default
const TailwindURL = "https://cdn.tailwindcss.com"

// LocalShellURLs are the embedded assets the UI needs to load
var LocalShellURLs = []string{
	"/static/app.css",
	"/static/app.js",
	"/manifest.json",
	"/icons/icon.svg",
}

// DefaultShellURLs are pre-cached so the UI loads without a network
var DefaultShellURLs = append(append([]string(nil), LocalShellURLs...), TailwindURL)

// Load loads configuration from .env, the config file and environment variables
func Load() (*Config, error) {
	// A missing .env is normal; a broken one is not
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error reading .env file: %w", err)
	}

	v := viper.New()

	v.SetDefault("db_path", "aircraft_logger.db")
	v.SetDefault("listen_addr", "localhost:8080")
	v.SetDefault("max_pictures", 5)
	v.SetDefault("shell.version", "aircraft-logger-cache-v1")
	v.SetDefault("shell.urls", DefaultShellURLs)
	v.SetDefault("shell.whitelist", []string{TailwindURL})
	v.SetDefault("shell.refresh_interval", "6h")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/aircraft_logger")
	v.AddConfigPath(".")

	if configPath := os.Getenv(ConfigPathEnv); configPath != "" {
		v.SetConfigFile(configPath)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK - defaults + env vars
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		DBPath:      v.GetString("db_path"),
		ListenAddr:  v.GetString("listen_addr"),
		MaxPictures: v.GetInt("max_pictures"),
		Shell: ShellConfig{
			Version:         v.GetString("shell.version"),
			URLs:            v.GetStringSlice("shell.urls"),
			Whitelist:       v.GetStringSlice("shell.whitelist"),
			RefreshInterval: v.GetDuration("shell.refresh_interval"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// validate validates the configuration values
func validate(cfg *Config) error {
	if cfg.DBPath == "" {
		return fmt.Errorf("db_path is required")
	}

	if _, _, err := net.SplitHostPort(cfg.ListenAddr); err != nil {
		return fmt.Errorf("invalid listen_addr %q: %w", cfg.ListenAddr, err)
	}

	if cfg.MaxPictures <= 0 {
		return fmt.Errorf("max_pictures must be greater than 0")
	}

	if cfg.Shell.Version == "" {
		return fmt.Errorf("shell.version is required")
	}

	if cfg.Shell.RefreshInterval <= 0 {
		return fmt.Errorf("shell.refresh_interval must be greater than 0")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[strings.ToLower(cfg.Log.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", cfg.Log.Level)
	}

	validLogFormats := map[string]bool{
		"text": true,
		"json": true,
	}
	if !validLogFormats[strings.ToLower(cfg.Log.Format)] {
		return fmt.Errorf("invalid log format: %s (must be text or json)", cfg.Log.Format)
	}

	return nil
}
