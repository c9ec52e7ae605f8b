// Package soil models what the probe divider reads as soil dries out.
package soil

import (
	"time"

	"github.com/chewxy/math32"
	"github.com/itohio/soilalarm/pkg/config"
	"github.com/itohio/soilalarm/pkg/hal"
)

// Model converts simulated time into raw moisture samples.
type Model struct {
	cfg config.SoilConfig
}

// New creates a soil model.
func New(cfg config.SoilConfig) *Model {
	return &Model{cfg: cfg}
}

// Wetness returns the soil wetness (0 dry .. 1 saturated) at a time since
// the last watering. Wetness decays exponentially.
func (m *Model) Wetness(at time.Duration) float32 {
	if m.cfg.WaterEvery > 0 {
		at %= m.cfg.WaterEvery
	}
	if m.cfg.DryingTime <= 0 {
		return clamp(m.cfg.InitialWetness, 0, 1)
	}
	tau := float32(at.Seconds() / m.cfg.DryingTime.Seconds())
	return clamp(m.cfg.InitialWetness*math32.Exp(-tau), 0, 1)
}

// ProbeResistance interpolates between the dry and wet probe resistance.
func (m *Model) ProbeResistance(wetness float32) float32 {
	return m.cfg.DryResistance + (m.cfg.WetResistance-m.cfg.DryResistance)*wetness
}

// Ratio is the divider output as a fraction of the supply. The fixed
// resistor sits on the ground side, so wet soil reads high.
func (m *Model) Ratio(wetness float32) float32 {
	r := m.ProbeResistance(wetness)
	if m.cfg.FixedResistance+r <= 0 {
		return 0
	}
	return m.cfg.FixedResistance / (m.cfg.FixedResistance + r)
}

// Sample returns the raw moisture reading at a time.
func (m *Model) Sample(at time.Duration) uint16 {
	v := m.Ratio(m.Wetness(at)) * hal.MaxSample
	v += m.noise(at)
	return uint16(math32.Floor(clamp(v, 0, hal.MaxSample) + 0.5))
}

// noise is deterministic so simulator runs repeat.
func (m *Model) noise(at time.Duration) float32 {
	if m.cfg.NoiseLevel == 0 {
		return 0
	}
	s := float32(at.Seconds())
	return (math32.Sin(s*1.3) + math32.Cos(s*0.7)) * m.cfg.NoiseLevel * 0.5
}

func clamp(v, lo, hi float32) float32 {
	return math32.Max(lo, math32.Min(hi, v))
}
