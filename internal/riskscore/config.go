package riskscore

import "time"

// Config holds runtime settings for the scorer.
type Config struct {
	// Rules is the ordered pattern table. Empty means DefaultRules().
	Rules []Rule `yaml:"rules" json:"rules"`

	// LookupTimeout bounds each external detection lookup. Zero disables the bound.
	LookupTimeout time.Duration `yaml:"lookup_timeout" json:"lookup_timeout"`

	// MaxConcurrency bounds parallel items in AssessAll.
	MaxConcurrency int `yaml:"max_concurrency" json:"max_concurrency"`
}

// DefaultConfig returns the observed scoring table with a 10s lookup bound.
func DefaultConfig() *Config {
	return &Config{
		Rules:          DefaultRules(),
		LookupTimeout:  10 * time.Second,
		MaxConcurrency: 4,
	}
}
