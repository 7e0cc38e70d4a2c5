package riskscore

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"
)

// Level is the ordinal risk classification derived from a risk score.
type Level string

const (
	LevelLow      Level = "LOW"
	LevelMedium   Level = "MEDIUM"
	LevelHigh     Level = "HIGH"
	LevelCritical Level = "CRITICAL"
)

// Rank returns the ordinal position of the level (LOW=1 .. CRITICAL=4, unknown=0).
func (l Level) Rank() int {
	switch l {
	case LevelLow:
		return 1
	case LevelMedium:
		return 2
	case LevelHigh:
		return 3
	case LevelCritical:
		return 4
	default:
		return 0
	}
}

func (l Level) String() string {
	return string(l)
}

// Detections is the result of an external multi-engine scan.
type Detections struct {
	// Positives is the number of engines that flagged the artifact.
	Positives int `json:"positives"`

	// Total is the number of engines that scanned it.
	Total int `json:"total"`
}

// Descriptor describes one artifact (usually an APK) to be scored.
// It is constructed per request and never mutated by the scorer.
type Descriptor struct {
	// Name is the artifact identifier, usually a file name. Matching is case-insensitive.
	Name string `json:"name"`

	// SizeBytes is the artifact size. Zero is a valid (suspiciously small) size.
	SizeBytes int64 `json:"size"`

	// SizeUnknown marks a descriptor whose size was not supplied; the size
	// heuristic is skipped for it.
	SizeUnknown bool `json:"-"`

	// Path is informational only (e.g. device storage path).
	Path string `json:"path,omitempty"`

	// Hash optionally overrides the identifier used for the external lookup.
	Hash string `json:"hash,omitempty"`

	// Detections carries externally-supplied counts. When set, no lookup is made.
	Detections *Detections `json:"detections,omitempty"`
}

// Identifier returns the key used for external detection lookups: Hash when
// set, otherwise the hex sha256 of the name followed by the decimal size.
func (d Descriptor) Identifier() string {
	if d.Hash != "" {
		return d.Hash
	}
	key := d.Name
	if !d.SizeUnknown {
		key += strconv.FormatInt(d.SizeBytes, 10)
	}
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// Rule maps a lowercase substring pattern to a threat label and a weight.
type Rule struct {
	Pattern string `json:"pattern" yaml:"pattern"`
	Label   string `json:"label" yaml:"label"`
	Weight  int    `json:"weight" yaml:"weight"`
}

// Assessment is the immutable output of a single scoring call.
type Assessment struct {
	// Threats lists the labels of every triggered rule, in evaluation order.
	Threats []string `json:"threats"`

	// RiskScore is the sum of all triggered weights plus any external contribution.
	RiskScore int `json:"riskScore"`

	// RiskLevel is Classify(RiskScore).
	RiskLevel Level `json:"riskLevel"`

	// IsSafe is true iff Threats is empty and RiskScore < 30.
	IsSafe bool `json:"isSafe"`

	// ScanTime is when the assessment was produced.
	ScanTime time.Time `json:"scanTime"`
}

// Summary aggregates a bulk run.
type Summary struct {
	Total    int `json:"total"`
	Safe     int `json:"safe"`
	Threats  int `json:"threats"`
	Critical int `json:"critical"`
}

// BulkResult holds per-item assessments in input order plus their summary.
type BulkResult struct {
	Results []*Assessment `json:"results"`
	Summary Summary       `json:"summary"`
}
