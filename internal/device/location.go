package device

import (
	"errors"
	"math/rand/v2"
	"sync"
	"time"
)

// Location sources.
const (
	SourceGeoIP     = "geoip"
	SourceSimulated = "simulated"
	SourceManual    = "manual"
)

// Default coordinates used when no better source is available.
const (
	DefaultLatitude  = 37.7749
	DefaultLongitude = -122.4194
	jitterDegrees    = 0.01
)

var (
	ErrCoordinatesRequired = errors.New("latitude and longitude are required")
	ErrInvalidCoordinates  = errors.New("latitude must be within [-90, 90] and longitude within [-180, 180]")
)

type Location struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Accuracy  float64   `json:"accuracy,omitempty"`
	City      string    `json:"city,omitempty"`
	Country   string    `json:"country,omitempty"`
	Source    string    `json:"source"`
	Timestamp time.Time `json:"timestamp"`
}

// Locator resolves an IP address to a location.
type Locator interface {
	Lookup(ip string) (*Location, error)
}

// LocationTracker reports the device location and remembers the last fix.
type LocationTracker struct {
	locator Locator
	now     func() time.Time

	mu   sync.Mutex
	rng  *rand.Rand
	last *Location
}

// NewLocationTracker builds a tracker. locator may be nil; rng may be nil
// for a randomly seeded source.
func NewLocationTracker(locator Locator, rng *rand.Rand) *LocationTracker {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &LocationTracker{locator: locator, rng: rng, now: time.Now}
}

// Current resolves the location of clientIP through the locator when one is
// configured, otherwise simulates a fix near the default coordinates.
func (t *LocationTracker) Current(clientIP string) Location {
	var loc *Location
	if t.locator != nil && clientIP != "" {
		if l, err := t.locator.Lookup(clientIP); err == nil {
			loc = l
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if loc == nil {
		loc = &Location{
			Latitude:  DefaultLatitude + (t.rng.Float64()-0.5)*jitterDegrees,
			Longitude: DefaultLongitude + (t.rng.Float64()-0.5)*jitterDegrees,
			Accuracy:  t.rng.Float64() * 100,
			Source:    SourceSimulated,
		}
	}
	loc.Timestamp = t.now().UTC()
	t.last = loc
	return *loc
}

// Update records a location reported by the device itself.
func (t *LocationTracker) Update(lat, long *float64) (Location, error) {
	if lat == nil || long == nil {
		return Location{}, ErrCoordinatesRequired
	}
	if *lat < -90 || *lat > 90 || *long < -180 || *long > 180 {
		return Location{}, ErrInvalidCoordinates
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.last = &Location{
		Latitude:  *lat,
		Longitude: *long,
		Source:    SourceManual,
		Timestamp: t.now().UTC(),
	}
	return *t.last, nil
}

// LastKnown returns the most recent fix, or false if none was taken yet.
func (t *LocationTracker) LastKnown() (Location, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.last == nil {
		return Location{}, false
	}
	return *t.last, true
}
