package device_test

import (
	"context"
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/raysh454/shieldsuite/internal/device"
	"github.com/raysh454/shieldsuite/internal/testutil"
)

func seeded() *rand.Rand { return rand.New(rand.NewPCG(1, 2)) }

// ─── Control ───────────────────────────────────────────────────────────

func TestController_Lock(t *testing.T) {
	c := device.NewController("", &testutil.DummyLogger{})
	if err := c.Lock(context.Background(), ""); !errors.Is(err, device.ErrPINRequired) {
		t.Errorf("expected ErrPINRequired, got %v", err)
	}
	if err := c.Lock(context.Background(), "1234"); err != nil {
		t.Errorf("Lock: %v", err)
	}
}

func TestController_Wipe(t *testing.T) {
	c := device.NewController("", nil)
	if err := c.Wipe(context.Background(), ""); !errors.Is(err, device.ErrConfirmationRequired) {
		t.Errorf("expected ErrConfirmationRequired, got %v", err)
	}
	if err := c.Wipe(context.Background(), "yes"); err != nil {
		t.Errorf("Wipe: %v", err)
	}
}

func TestController_RemoteWipe(t *testing.T) {
	c := device.NewController("s3cret", nil)
	ctx := context.Background()

	for _, code := range []string{"", "wrong", "s3cret "} {
		if err := c.RemoteWipe(ctx, code); !errors.Is(err, device.ErrInvalidConfirmation) {
			t.Errorf("code %q: expected ErrInvalidConfirmation, got %v", code, err)
		}
	}
	if err := c.RemoteWipe(ctx, "s3cret"); err != nil {
		t.Errorf("RemoteWipe with matching code: %v", err)
	}

	unconfigured := device.NewController("", nil)
	if err := unconfigured.RemoteWipe(ctx, ""); !errors.Is(err, device.ErrInvalidConfirmation) {
		t.Errorf("expected unconfigured remote wipe to be rejected, got %v", err)
	}
}

// ─── Location ──────────────────────────────────────────────────────────

type fakeLocator struct {
	loc *device.Location
	err error
}

func (f fakeLocator) Lookup(string) (*device.Location, error) { return f.loc, f.err }

func TestLocationTracker_SimulatedJitter(t *testing.T) {
	tr := device.NewLocationTracker(nil, seeded())

	if _, ok := tr.LastKnown(); ok {
		t.Fatal("expected no fix before the first request")
	}
	for i := 0; i < 50; i++ {
		loc := tr.Current("")
		if loc.Source != device.SourceSimulated {
			t.Fatalf("expected simulated source, got %q", loc.Source)
		}
		if d := loc.Latitude - device.DefaultLatitude; d < -0.005 || d > 0.005 {
			t.Fatalf("latitude jitter out of range: %f", loc.Latitude)
		}
		if d := loc.Longitude - device.DefaultLongitude; d < -0.005 || d > 0.005 {
			t.Fatalf("longitude jitter out of range: %f", loc.Longitude)
		}
	}
	if _, ok := tr.LastKnown(); !ok {
		t.Error("expected a last known fix")
	}
}

func TestLocationTracker_UsesLocator(t *testing.T) {
	tr := device.NewLocationTracker(fakeLocator{loc: &device.Location{Latitude: 51.5, Longitude: -0.12, Source: device.SourceGeoIP, City: "London"}}, seeded())
	loc := tr.Current("81.2.69.142")
	if loc.Source != device.SourceGeoIP || loc.City != "London" {
		t.Errorf("expected geoip fix, got %+v", loc)
	}
}

func TestLocationTracker_LocatorFailureFallsBack(t *testing.T) {
	tr := device.NewLocationTracker(fakeLocator{err: device.ErrNotRoutable}, seeded())
	if loc := tr.Current("127.0.0.1"); loc.Source != device.SourceSimulated {
		t.Errorf("expected simulated fallback, got %q", loc.Source)
	}
}

func TestLocationTracker_Update(t *testing.T) {
	tr := device.NewLocationTracker(nil, seeded())
	lat, long := 0.0, 0.0

	if _, err := tr.Update(nil, &long); !errors.Is(err, device.ErrCoordinatesRequired) {
		t.Errorf("expected ErrCoordinatesRequired, got %v", err)
	}
	bad := 91.0
	if _, err := tr.Update(&bad, &long); !errors.Is(err, device.ErrInvalidCoordinates) {
		t.Errorf("expected ErrInvalidCoordinates, got %v", err)
	}

	loc, err := tr.Update(&lat, &long)
	if err != nil {
		t.Fatalf("Update at 0,0: %v", err)
	}
	last, ok := tr.LastKnown()
	if !ok || last != loc || last.Source != device.SourceManual {
		t.Errorf("unexpected last known: %+v", last)
	}
}

// ─── Metrics ───────────────────────────────────────────────────────────

func TestMonitor_RangesAndOptimize(t *testing.T) {
	m := device.NewMonitor(seeded())
	for i := 0; i < 50; i++ {
		s := m.SystemInfo()
		if s.CPUUsage < 0 || s.CPUUsage > 100 || s.Temperature < 0 || s.Temperature > 80 {
			t.Fatalf("metrics out of range: %+v", s)
		}
		o := m.Optimize()
		if o.CPUUsage > 30 || o.MemoryUsage > 45 || o.StorageUsage != 60 || o.Temperature > 35 {
			t.Fatalf("optimize did not cap metrics: %+v", o)
		}
	}
	if len(m.Health().Recommendations) != 3 {
		t.Error("expected health recommendations")
	}
}

// ─── Network ───────────────────────────────────────────────────────────

func TestNetwork(t *testing.T) {
	info, err := device.Network()
	if err != nil {
		t.Fatalf("Network: %v", err)
	}
	if info.Hostname == "" {
		t.Error("expected hostname")
	}
	if info.Interfaces == nil {
		t.Error("expected non-nil interface list")
	}
}
