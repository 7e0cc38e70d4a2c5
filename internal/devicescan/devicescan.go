// Package devicescan simulates an inventory of APK files found on a device.
package devicescan

import (
	"math/rand/v2"
	"sync"
	"time"

	"github.com/raysh454/shieldsuite/internal/riskscore"
)

const inclusionProbability = 0.7

// APK is one file found during a device scan.
type APK struct {
	Name         string    `json:"name"`
	Path         string    `json:"path"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"lastModified"`
	Source       string    `json:"source"`
}

// Descriptor converts the file into a risk scorer input.
func (a APK) Descriptor() riskscore.Descriptor {
	return riskscore.Descriptor{Name: a.Name, SizeBytes: a.Size, Path: a.Path}
}

type candidate struct {
	name string
	size int64
	age  time.Duration
}

var candidates = []candidate{
	{"WhatsApp.apk", 45234567, 24 * time.Hour},
	{"Instagram.apk", 32145678, 48 * time.Hour},
	{"TikTok_Mod.apk", 28567890, 72 * time.Hour},
	{"Banking_Hack.apk", 15234567, 96 * time.Hour},
	{"Facebook.apk", 67890123, 120 * time.Hour},
}

const downloadDir = "/storage/emulated/0/Download/"

// Result is the outcome of one scan.
type Result struct {
	DeviceID  string    `json:"deviceId"`
	ScanTime  time.Time `json:"scanTime"`
	APKsFound int       `json:"apksFound"`
	APKs      []APK     `json:"apks"`
}

// Scanner simulates device scans. Each known file is found independently
// with probability 0.7.
type Scanner struct {
	mu  sync.Mutex
	rng *rand.Rand
	now func() time.Time
}

// NewScanner builds a scanner. rng may be nil for a randomly seeded source.
func NewScanner(rng *rand.Rand) *Scanner {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Scanner{rng: rng, now: time.Now}
}

func (s *Scanner) Scan(deviceID string) Result {
	now := s.now().UTC()

	s.mu.Lock()
	found := []APK{}
	for _, c := range candidates {
		if s.rng.Float64() >= inclusionProbability {
			continue
		}
		found = append(found, APK{
			Name:         c.name,
			Path:         downloadDir + c.name,
			Size:         c.size,
			LastModified: now.Add(-c.age),
			Source:       "Downloads",
		})
	}
	s.mu.Unlock()

	return Result{
		DeviceID:  deviceID,
		ScanTime:  now,
		APKsFound: len(found),
		APKs:      found,
	}
}
