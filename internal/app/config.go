package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/raysh454/shieldsuite/internal/riskscore"
	"github.com/raysh454/shieldsuite/internal/virustotal"
	"github.com/raysh454/shieldsuite/internal/vpn"
)

// Environments accepted in Server.Env.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type ServerConfig struct {
	// Addr is the HTTP listen address.
	Addr string `yaml:"addr"`

	// Env is "development" or "production". Development mocks the VPN backend.
	Env string `yaml:"env"`
}

type StorageConfig struct {
	// Root is the directory holding the SQLite database. "~" is expanded.
	Root string `yaml:"root"`

	// Database is the file name under Root.
	Database string `yaml:"database"`
}

type AlertsConfig struct {
	// SubscriberBuffer is the per-subscriber channel size for live alerts.
	SubscriberBuffer int `yaml:"subscriber_buffer"`
}

type DeviceConfig struct {
	// RemoteWipeCode must be supplied to confirm a remote wipe. Empty rejects every request.
	RemoteWipeCode string `yaml:"remote_wipe_code"`
}

type GeoIPConfig struct {
	// Database is an optional MaxMind City database used to locate callers.
	Database string `yaml:"database"`
}

type MalwareConfig struct {
	// FeedPath is an optional hash feed file, re-imported when it changes.
	FeedPath string `yaml:"feed_path"`
}

// Config is the full runtime configuration of the suite.
type Config struct {
	Server     ServerConfig      `yaml:"server"`
	Storage    StorageConfig     `yaml:"storage"`
	LogLevel   string            `yaml:"log_level"`
	Scoring    riskscore.Config  `yaml:"scoring"`
	VirusTotal virustotal.Config `yaml:"virustotal"`
	Alerts     AlertsConfig      `yaml:"alerts"`
	Device     DeviceConfig      `yaml:"device"`
	GeoIP      GeoIPConfig       `yaml:"geoip"`
	VPN        vpn.Config        `yaml:"vpn"`
	Malware    MalwareConfig     `yaml:"malware"`

	// JobHistory caps how many finished bulk jobs are kept in memory.
	JobHistory int `yaml:"job_history"`
}

// DefaultConfig returns a Config populated with sensible development defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr: ":3000",
			Env:  EnvDevelopment,
		},
		Storage: StorageConfig{
			Root:     "~/.config/shieldsuite",
			Database: "shieldsuite.db",
		},
		LogLevel:   "info",
		Scoring:    *riskscore.DefaultConfig(),
		VirusTotal: virustotal.DefaultConfig(),
		Alerts: AlertsConfig{
			SubscriberBuffer: 32,
		},
		JobHistory: 100,
	}
}

// IsDevelopment reports whether the suite runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Server.Env != EnvProduction
}

// DatabasePath returns the expanded path of the SQLite database.
func (c *Config) DatabasePath() (string, error) {
	root, err := ExpandPath(c.Storage.Root)
	if err != nil {
		return "", err
	}
	return filepath.Join(root, c.Storage.Database), nil
}

// LoadConfig reads a YAML file over DefaultConfig and then applies
// environment overrides. An empty path skips the file.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		p, err := ExpandPath(path)
		if err != nil {
			return nil, fmt.Errorf("expanding config path: %w", err)
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", p, err)
		}
	}

	if err := applyEnv(cfg, os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	if v, ok := lookup("PORT"); ok && v != "" {
		if _, err := strconv.Atoi(v); err != nil {
			return fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		cfg.Server.Addr = ":" + v
	}
	if v, ok := lookup("APP_ENV"); ok && v != "" {
		cfg.Server.Env = strings.ToLower(v)
	}
	if v, ok := lookup("VIRUSTOTAL_API_KEY"); ok {
		cfg.VirusTotal.APIKey = v
	}
	if v, ok := lookup("REMOTE_WIPE_CODE"); ok {
		cfg.Device.RemoteWipeCode = v
	}
	if v, ok := lookup("VPN_API_URL"); ok {
		cfg.VPN.APIURL = v
	}
	if v, ok := lookup("VPN_API_KEY"); ok {
		cfg.VPN.APIKey = v
	}
	if v, ok := lookup("STORAGE_ROOT"); ok && v != "" {
		cfg.Storage.Root = v
	}
	if v, ok := lookup("LOG_LEVEL"); ok && v != "" {
		cfg.LogLevel = v
	}
	if v, ok := lookup("GEOIP_DB"); ok {
		cfg.GeoIP.Database = v
	}
	return nil
}

// Validate rejects configurations the suite cannot start with.
func (c *Config) Validate() error {
	switch c.Server.Env {
	case EnvDevelopment, EnvProduction:
	default:
		return fmt.Errorf("server.env must be %q or %q, got %q", EnvDevelopment, EnvProduction, c.Server.Env)
	}
	if c.Storage.Database == "" {
		return errors.New("storage.database is required")
	}
	if c.Scoring.MaxConcurrency < 0 {
		return fmt.Errorf("scoring.max_concurrency must be non-negative, got %d", c.Scoring.MaxConcurrency)
	}
	return nil
}

// ExpandPath replaces a leading "~" with the user's home directory.
func ExpandPath(p string) (string, error) {
	if len(p) > 0 && p[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, p[1:]), nil
	}
	return p, nil
}
