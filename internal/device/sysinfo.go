package device

import (
	"math"
	"math/rand/v2"
	"sync"
)

// Metrics is a device health snapshot. Percentages are 0-100, temperature is
// in degrees Celsius.
type Metrics struct {
	CPUUsage        float64  `json:"cpuUsage"`
	MemoryUsage     float64  `json:"memoryUsage"`
	StorageUsage    float64  `json:"storageUsage"`
	BatteryHealth   float64  `json:"batteryHealth"`
	Temperature     float64  `json:"temperature"`
	Recommendations []string `json:"recommendations"`
}

// Ceilings applied by Optimize.
const (
	optimizedCPU     = 30
	optimizedMemory  = 45
	optimizedStorage = 60
	optimizedTemp    = 35
)

// Monitor produces simulated device metrics; the backend cannot read the
// phone's sensors directly.
type Monitor struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewMonitor(rng *rand.Rand) *Monitor {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Monitor{rng: rng}
}

func (m *Monitor) sample() Metrics {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Metrics{
		CPUUsage:      m.rng.Float64() * 100,
		MemoryUsage:   m.rng.Float64() * 100,
		StorageUsage:  m.rng.Float64() * 100,
		BatteryHealth: m.rng.Float64() * 100,
		Temperature:   m.rng.Float64() * 80,
	}
}

// SystemInfo returns a general system snapshot.
func (m *Monitor) SystemInfo() Metrics {
	s := m.sample()
	s.Recommendations = []string{
		"Consider closing unused applications",
		"Update your system software",
		"Run a virus scan",
	}
	return s
}

// Health returns a snapshot with maintenance recommendations.
func (m *Monitor) Health() Metrics {
	s := m.sample()
	s.Recommendations = []string{
		"Clear cache files",
		"Update system software",
		"Remove unused apps",
	}
	return s
}

// Optimize simulates an optimization pass; every load metric is capped at
// its post-optimization ceiling.
func (m *Monitor) Optimize() Metrics {
	s := m.sample()
	s.CPUUsage = math.Min(s.CPUUsage, optimizedCPU)
	s.MemoryUsage = math.Min(s.MemoryUsage, optimizedMemory)
	s.StorageUsage = optimizedStorage
	s.Temperature = math.Min(s.Temperature, optimizedTemp)
	s.Recommendations = []string{"System optimized successfully"}
	return s
}
