// Package scale holds the latest weight reported by each weighbridge
// indicator. Readings are pushed in by the upstream scale bridge; the
// weighing adapters pull a stable, fresh value from here when an operator
// weighs against a station instead of typing a weight.
package scale

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrNoReading = errors.New("no reading")
	ErrUnstable  = errors.New("reading not stable")
	ErrStale     = errors.New("reading too old")
	ErrBadUnit   = errors.New("unsupported unit")
)

const (
	UnitKilogram = "kg"
	UnitTonne    = "t"
)

var thousand = decimal.NewFromInt(1000)

// Reading is one indicator sample. Weight is always kilograms once recorded.
type Reading struct {
	Station   string          `json:"station"`
	Weight    decimal.Decimal `json:"weight"`
	Unit      string          `json:"unit"`
	Stable    bool            `json:"stable"`
	Timestamp time.Time       `json:"timestamp"`
}

// Normalize converts the reading to kilograms rounded to two decimals.
func (r Reading) Normalize() (Reading, error) {
	switch strings.ToLower(strings.TrimSpace(r.Unit)) {
	case "", UnitKilogram:
	case UnitTonne:
		r.Weight = r.Weight.Mul(thousand)
	default:
		return r, fmt.Errorf("%w: %q", ErrBadUnit, r.Unit)
	}
	r.Unit = UnitKilogram
	r.Weight = r.Weight.Round(2)
	return r, nil
}

// Monitor keeps the most recent reading per station.
type Monitor struct {
	mu       sync.RWMutex
	readings map[string]Reading
	now      func() time.Time
}

func NewMonitor() *Monitor {
	return &Monitor{readings: make(map[string]Reading), now: time.Now}
}

// Record stores r as the latest reading for its station. Out-of-order
// samples older than the stored one are dropped.
func (m *Monitor) Record(r Reading) (Reading, error) {
	if r.Station == "" {
		return r, fmt.Errorf("station is required")
	}
	if r.Weight.IsNegative() {
		return r, fmt.Errorf("negative weight %s", r.Weight)
	}
	r, err := r.Normalize()
	if err != nil {
		return r, err
	}
	if r.Timestamp.IsZero() {
		r.Timestamp = m.now()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if prev, ok := m.readings[r.Station]; ok && r.Timestamp.Before(prev.Timestamp) {
		return prev, nil
	}
	m.readings[r.Station] = r
	return r, nil
}

func (m *Monitor) Latest(station string) (Reading, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.readings[station]
	if !ok {
		return Reading{}, fmt.Errorf("%w for station %s", ErrNoReading, station)
	}
	return r, nil
}

// StableWeight returns the station's latest weight, refusing readings that
// are unstable or older than maxAge.
func (m *Monitor) StableWeight(station string, maxAge time.Duration) (decimal.Decimal, error) {
	r, err := m.Latest(station)
	if err != nil {
		return decimal.Zero, err
	}
	if !r.Stable {
		return decimal.Zero, fmt.Errorf("%w: station %s", ErrUnstable, station)
	}
	if age := m.now().Sub(r.Timestamp); maxAge > 0 && age > maxAge {
		return decimal.Zero, fmt.Errorf("%w: station %s reading is %s old", ErrStale, station, age.Truncate(time.Millisecond))
	}
	log.Printf("[SCALE] %s captured %s kg", station, r.Weight.StringFixed(2))
	return r.Weight, nil
}
