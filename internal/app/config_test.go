package app

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func envMap(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Server.Addr != ":3000" || !cfg.IsDevelopment() {
		t.Errorf("unexpected server defaults %+v", cfg.Server)
	}
	if len(cfg.Scoring.Rules) != 9 {
		t.Errorf("expected the default rule table, got %d rules", len(cfg.Scoring.Rules))
	}
	if cfg.VirusTotal.RequestsPerMinute != 4 {
		t.Errorf("expected 4 requests/min, got %d", cfg.VirusTotal.RequestsPerMinute)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config must validate: %v", err)
	}
}

func TestLoadConfig_YAMLOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shieldsuite.yaml")
	yaml := `
server:
  addr: ":8443"
  env: production
scoring:
  lookup_timeout: 3s
  max_concurrency: 8
virustotal:
  requests_per_minute: 0
malware:
  feed_path: /var/lib/shieldsuite/feed.txt
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Server.Addr != ":8443" || cfg.IsDevelopment() {
		t.Errorf("unexpected server %+v", cfg.Server)
	}
	if cfg.Scoring.LookupTimeout != 3*time.Second || cfg.Scoring.MaxConcurrency != 8 {
		t.Errorf("unexpected scoring %+v", cfg.Scoring)
	}
	if len(cfg.Scoring.Rules) != 9 {
		t.Errorf("rules absent from the file must keep defaults, got %d", len(cfg.Scoring.Rules))
	}
	if cfg.VirusTotal.RequestsPerMinute != 0 || cfg.VirusTotal.BaseURL == "" {
		t.Errorf("unexpected virustotal %+v", cfg.VirusTotal)
	}
	if cfg.Malware.FeedPath != "/var/lib/shieldsuite/feed.txt" {
		t.Errorf("unexpected feed path %q", cfg.Malware.FeedPath)
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadConfig_RejectsUnknownEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("server:\n  env: staging\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, err := LoadConfig(path)
	if err == nil || !strings.Contains(err.Error(), "server.env") {
		t.Fatalf("expected env validation error, got %v", err)
	}
}

func TestApplyEnv(t *testing.T) {
	cfg := DefaultConfig()
	err := applyEnv(cfg, envMap(map[string]string{
		"PORT":               "4000",
		"APP_ENV":            "Production",
		"VIRUSTOTAL_API_KEY": "vt-key",
		"REMOTE_WIPE_CODE":   "1234",
		"VPN_API_URL":        "https://vpn.example",
		"VPN_API_KEY":        "vpn-key",
		"STORAGE_ROOT":       "/data",
		"LOG_LEVEL":          "debug",
		"GEOIP_DB":           "/data/city.mmdb",
	}))
	if err != nil {
		t.Fatalf("applyEnv: %v", err)
	}

	if cfg.Server.Addr != ":4000" || cfg.Server.Env != EnvProduction {
		t.Errorf("unexpected server %+v", cfg.Server)
	}
	if cfg.VirusTotal.APIKey != "vt-key" || cfg.Device.RemoteWipeCode != "1234" {
		t.Error("secrets not applied")
	}
	if cfg.VPN.APIURL != "https://vpn.example" || cfg.VPN.APIKey != "vpn-key" {
		t.Errorf("unexpected vpn %+v", cfg.VPN)
	}
	if cfg.Storage.Root != "/data" || cfg.LogLevel != "debug" || cfg.GeoIP.Database != "/data/city.mmdb" {
		t.Errorf("unexpected storage/log/geoip: %q %q %q", cfg.Storage.Root, cfg.LogLevel, cfg.GeoIP.Database)
	}
}

func TestApplyEnv_InvalidPort(t *testing.T) {
	if err := applyEnv(DefaultConfig(), envMap(map[string]string{"PORT": "http"})); err == nil {
		t.Fatal("expected invalid PORT to be rejected")
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	got, err := ExpandPath("~/.config/shieldsuite")
	if err != nil {
		t.Fatalf("ExpandPath: %v", err)
	}
	if got != filepath.Join(home, ".config/shieldsuite") {
		t.Errorf("got %q", got)
	}
	if got, _ := ExpandPath("/abs/path"); got != "/abs/path" {
		t.Errorf("absolute paths must be unchanged, got %q", got)
	}
}

func TestDatabasePath(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Storage.Root = "/srv/suite"
	p, err := cfg.DatabasePath()
	if err != nil {
		t.Fatalf("DatabasePath: %v", err)
	}
	if p != "/srv/suite/shieldsuite.db" {
		t.Errorf("got %q", p)
	}
}
