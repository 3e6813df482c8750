package config

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// EnvPrefix prefixes every environment variable that overrides a config value
const EnvPrefix = "TUNEDECK_"

// Config represents the application configuration
type Config struct {
	Server  ServerConfig  `toml:"server"`
	Music   MusicConfig   `toml:"music"`
	Logging LoggingConfig `toml:"logging"`
	Metrics MetricsConfig `toml:"metrics"`
	Tunnel  TunnelConfig  `toml:"tunnel"`
}

// ServerConfig contains server-related configuration
type ServerConfig struct {
	Port            string `toml:"port"`
	Host            string `toml:"host"`
	RootDir         string `toml:"root_dir"`
	ReadTimeout     int    `toml:"read_timeout_seconds"`
	WriteTimeout    int    `toml:"write_timeout_seconds"`
	IdleTimeout     int    `toml:"idle_timeout_seconds"`
	ShutdownTimeout int    `toml:"shutdown_timeout_seconds"`
}

// MusicConfig contains music directory configuration
type MusicConfig struct {
	Dir              string   `toml:"dir"`
	URLPrefix        string   `toml:"url_prefix"`
	SupportedFormats []string `toml:"supported_formats"`
	WatchForChanges  bool     `toml:"watch_for_changes"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level          string `toml:"level"`
	Format         string `toml:"format"`
	File           string `toml:"file"`
	RequestLogging bool   `toml:"request_logging"`
}

// MetricsConfig controls the Prometheus scrape endpoint
type MetricsConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// TunnelConfig contains ngrok tunnel configuration
type TunnelConfig struct {
	Enabled   bool   `toml:"enabled"`
	AuthToken string `toml:"auth_token"`
	Domain    string `toml:"domain"`
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            "1306",
			Host:            "0.0.0.0",
			RootDir:         ".",
			ReadTimeout:     30,
			WriteTimeout:    0, // audio files can take a while to transfer
			IdleTimeout:     120,
			ShutdownTimeout: 5,
		},
		Music: MusicConfig{
			Dir:              "music",
			URLPrefix:        "music",
			SupportedFormats: []string{".mp3", ".wav", ".ogg", ".m4a", ".flac", ".aac"},
			WatchForChanges:  false,
		},
		Logging: LoggingConfig{
			Level:          "info",
			Format:         "text",
			File:           "",
			RequestLogging: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Tunnel: TunnelConfig{
			Enabled: false,
		},
	}
}

// LoadConfig loads configuration from a TOML file, then applies .env and
// TUNEDECK_* environment overrides. A missing file is created with defaults.
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := cfg.SaveToFile(configPath); err != nil {
			return nil, fmt.Errorf("failed to create default config file: %w", err)
		}
	} else if _, err := toml.DecodeFile(configPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := LoadDotEnv(filepath.Join(filepath.Dir(configPath), ".env")); err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// LoadDotEnv loads a .env file into the process environment if it exists.
// Variables already set in the environment win.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides config values from TUNEDECK_* variables. lookup is
// os.LookupEnv outside of tests.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(EnvPrefix + key); ok && v != "" {
			*dst = v
		}
	}
	boolean := func(key string, dst *bool) error {
		v, ok := lookup(EnvPrefix + key)
		if !ok || v == "" {
			return nil
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s%s: %w", EnvPrefix, key, err)
		}
		*dst = b
		return nil
	}

	str("PORT", &c.Server.Port)
	str("HOST", &c.Server.Host)
	str("ROOT_DIR", &c.Server.RootDir)
	str("MUSIC_DIR", &c.Music.Dir)
	str("LOG_LEVEL", &c.Logging.Level)
	str("LOG_FORMAT", &c.Logging.Format)
	str("LOG_FILE", &c.Logging.File)

	if v, ok := lookup(EnvPrefix + "SUPPORTED_FORMATS"); ok && v != "" {
		var formats []string
		for _, f := range strings.Split(v, ",") {
			if f = strings.TrimSpace(f); f != "" {
				formats = append(formats, f)
			}
		}
		c.Music.SupportedFormats = formats
	}

	if err := boolean("WATCH", &c.Music.WatchForChanges); err != nil {
		return err
	}
	if err := boolean("METRICS", &c.Metrics.Enabled); err != nil {
		return err
	}
	if err := boolean("TUNNEL", &c.Tunnel.Enabled); err != nil {
		return err
	}

	// The tunnel token conventionally lives in NGROK_AUTHTOKEN.
	if c.Tunnel.AuthToken == "" {
		if v, ok := lookup("NGROK_AUTHTOKEN"); ok {
			c.Tunnel.AuthToken = v
		}
	}

	return nil
}

// SaveToFile saves the configuration to a TOML file
func (c *Config) SaveToFile(configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	file, err := os.Create(configPath)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	header := `# tunedeck configuration
# Values can be overridden with TUNEDECK_* environment variables
# (also read from a .env file next to this one) and command line flags.

`
	if _, err := file.WriteString(header); err != nil {
		return fmt.Errorf("failed to write config header: %w", err)
	}

	encoder := toml.NewEncoder(file)
	if err := encoder.Encode(c); err != nil {
		return fmt.Errorf("failed to encode config to TOML: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	port, err := strconv.Atoi(c.Server.Port)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("server port must be a number between 1 and 65535, got %q", c.Server.Port)
	}
	if c.Server.RootDir == "" {
		return fmt.Errorf("server root directory cannot be empty")
	}
	if c.Server.ReadTimeout < 0 || c.Server.WriteTimeout < 0 || c.Server.IdleTimeout < 0 {
		return fmt.Errorf("server timeouts cannot be negative")
	}
	if c.Server.ShutdownTimeout < 1 {
		return fmt.Errorf("server shutdown timeout must be at least 1 second")
	}

	if c.Music.Dir == "" {
		return fmt.Errorf("music directory cannot be empty")
	}
	prefix := strings.Trim(c.Music.URLPrefix, "/")
	if prefix == "" || strings.Contains(prefix, "..") {
		return fmt.Errorf("invalid music url prefix: %q", c.Music.URLPrefix)
	}
	if prefix == "api" || strings.HasPrefix(prefix, "api/") {
		return fmt.Errorf("music url prefix %q collides with the api routes", c.Music.URLPrefix)
	}
	if len(c.Music.SupportedFormats) == 0 {
		return fmt.Errorf("at least one supported audio format must be specified")
	}
	for _, f := range c.Music.SupportedFormats {
		if len(f) < 2 || f[0] != '.' || strings.ContainsAny(f[1:], "./\\") {
			return fmt.Errorf("invalid audio format %q (must look like .mp3)", f)
		}
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logging.Level)
	}

	validLogFormats := map[string]bool{
		"text": true, "json": true,
	}
	if !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("invalid log format: %s (must be text or json)", c.Logging.Format)
	}

	if c.Metrics.Enabled {
		if !strings.HasPrefix(c.Metrics.Path, "/") {
			return fmt.Errorf("metrics path must start with /: %q", c.Metrics.Path)
		}
		if reservedPath(c.Metrics.Path, prefix) {
			return fmt.Errorf("metrics path %q collides with a server route", c.Metrics.Path)
		}
	}

	return nil
}

// reservedPath reports whether p falls on the root, the api routes or the
// music mount.
func reservedPath(p, musicPrefix string) bool {
	if p == "/" {
		return true
	}
	clean := strings.TrimSuffix(p, "/")
	if path.Clean(clean) != clean {
		return true
	}
	for _, route := range []string{"/api", "/" + musicPrefix} {
		if clean == route || strings.HasPrefix(clean, route+"/") {
			return true
		}
	}
	return false
}

// GetAddress returns the full server address
func (c *Config) GetAddress() string {
	return c.Server.Host + ":" + c.Server.Port
}

// MusicURLPrefix returns the url prefix without surrounding slashes
func (c *Config) MusicURLPrefix() string {
	return strings.Trim(c.Music.URLPrefix, "/")
}
