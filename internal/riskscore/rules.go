package riskscore

import "fmt"

const (
	// SmallFileThreshold is the size below which an artifact is suspiciously small.
	SmallFileThreshold int64 = 50_000
	// LargeFileThreshold is the size above which an artifact is unusually large.
	LargeFileThreshold int64 = 200_000_000

	smallFileLabel   = "Suspiciously small APK file"
	smallFilePenalty = 40
	largeFileLabel   = "Unusually large APK file"
	largeFilePenalty = 15

	bankMarker  = "bank"
	bankLabel   = "CRITICAL: Banking app with modifications"
	bankPenalty = 100
	payMarker   = "pay"
	payLabel    = "WARNING: Payment app with modifications"
	payPenalty  = 80

	// externalWeight is added per positive engine of an external scan.
	externalWeight = 10

	mediumThreshold   = 30
	highThreshold     = 60
	criticalThreshold = 100
)

// DefaultRules is the fixed, ordered name-pattern table. Order only affects
// the order labels are emitted in.
func DefaultRules() []Rule {
	return []Rule{
		{Pattern: "mod", Label: "Modified application detected", Weight: 40},
		{Pattern: "hack", Label: "Hacking tool identified", Weight: 80},
		{Pattern: "crack", Label: "Cracked software found", Weight: 60},
		{Pattern: "cheat", Label: "Cheating application", Weight: 30},
		{Pattern: "bypass", Label: "Security bypass tool", Weight: 70},
		{Pattern: "gb", Label: "Unofficial GB modification", Weight: 35},
		{Pattern: "plus", Label: "Unofficial Plus version", Weight: 25},
		{Pattern: "pro", Label: "Suspicious Pro version", Weight: 20},
		{Pattern: "free", Label: "Suspicious free version", Weight: 15},
	}
}

// Classify maps a risk score to its level. Lower bounds are inclusive and
// checked from the highest level down.
func Classify(score int) Level {
	switch {
	case score >= criticalThreshold:
		return LevelCritical
	case score >= highThreshold:
		return LevelHigh
	case score >= mediumThreshold:
		return LevelMedium
	default:
		return LevelLow
	}
}

// IsSafe reports whether an assessment with these threats and score is safe.
func IsSafe(threats []string, score int) bool {
	return len(threats) == 0 && score < mediumThreshold
}

func externalLabel(d Detections) string {
	return fmt.Sprintf("VirusTotal: %d/%d engines flagged", d.Positives, d.Total)
}

func validateRules(rules []Rule) error {
	for i, r := range rules {
		if r.Pattern == "" {
			return fmt.Errorf("rule %d: empty pattern", i)
		}
		if r.Weight <= 0 {
			return fmt.Errorf("rule %d (%s): weight must be positive, got %d", i, r.Pattern, r.Weight)
		}
	}
	return nil
}
