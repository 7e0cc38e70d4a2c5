package virustotal

import "time"

// DefaultBaseURL is the VirusTotal v2 public API root.
const DefaultBaseURL = "https://www.virustotal.com/vtapi/v2"

type Config struct {
	// APIKey authenticates every request. Empty disables the client.
	APIKey string `yaml:"api_key"`

	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`

	// RequestsPerMinute bounds outbound calls; the public API allows 4.
	// Zero or negative disables the limiter.
	RequestsPerMinute int `yaml:"requests_per_minute"`
	Burst             int `yaml:"burst"`
}

func DefaultConfig() Config {
	return Config{
		BaseURL:           DefaultBaseURL,
		Timeout:           30 * time.Second,
		RequestsPerMinute: 4,
		Burst:             1,
	}
}
