package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config holds all mailbridge configuration.
type Config struct {
	Server ServerConfig `toml:"server"`
	DB     DBConfig     `toml:"db"`
	Sync   SyncConfig   `toml:"sync"`
	Log    LogConfig    `toml:"log"`
	Nylas  NylasConfig  `toml:"nylas"`
	Gmail  GmailConfig  `toml:"gmail"`
}

// ServerConfig holds the HTTP API settings.
type ServerConfig struct {
	Addr string `toml:"addr"`
}

// DBConfig holds the SQLite database location. An empty path means the
// default data directory.
type DBConfig struct {
	Path string `toml:"path"`
}

// SyncConfig holds message synchronization settings.
type SyncConfig struct {
	MessageLimit int    `toml:"message_limit"`
	CallTimeout  string `toml:"call_timeout"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// NylasConfig holds the Nylas API credentials. The API key may instead
// live in the OS keyring; the config file value wins when both are set.
type NylasConfig struct {
	APIKey      string `toml:"api_key"`
	APIURI      string `toml:"api_uri"`
	ClientID    string `toml:"client_id"`
	RedirectURI string `toml:"redirect_uri"`
}

// GmailConfig holds Gmail OAuth credentials.
type GmailConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Addr: "127.0.0.1:8743",
		},
		Sync: SyncConfig{
			MessageLimit: 100,
			CallTimeout:  "1m",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads config from path and applies environment overrides. If path
// is empty or missing, defaults are used.
func Load(path string) (*Config, error) {
	cfg := defaults()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		} else if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}
	cfg.applyEnv()
	return &cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("NYLAS_API_KEY"); v != "" {
		c.Nylas.APIKey = v
	}
	if v := os.Getenv("NYLAS_API_URI"); v != "" {
		c.Nylas.APIURI = v
	}
	if v := os.Getenv("GMAIL_CLIENT_ID"); v != "" {
		c.Gmail.ClientID = v
	}
	if v := os.Getenv("GMAIL_CLIENT_SECRET"); v != "" {
		c.Gmail.ClientSecret = v
	}
}

// DBPath returns the configured database path or the default location
// under the data directory.
func (c *Config) DBPath() string {
	if c.DB.Path != "" {
		return c.DB.Path
	}
	return filepath.Join(DataDir(), "mailbridge.db")
}

// ConfigDir returns the mailbridge config directory path.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "mailbridge")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "mailbridge")
}

// DataDir returns the mailbridge data directory path.
func DataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "mailbridge")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "mailbridge")
}
