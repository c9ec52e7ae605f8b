package soil

import (
	"testing"
	"time"

	"github.com/itohio/soilalarm/pkg/config"
	"github.com/itohio/soilalarm/pkg/hal"
	"github.com/stretchr/testify/assert"
)

func quietConfig() config.SoilConfig {
	cfg := config.Default().Simulation.Soil
	cfg.NoiseLevel = 0
	return cfg
}

func TestModel_Wetness(t *testing.T) {
	cfg := quietConfig()
	m := New(cfg)

	assert.InDelta(t, 1.0, m.Wetness(0), 1e-6)
	assert.InDelta(t, 0.3679, m.Wetness(cfg.DryingTime), 1e-3)
	assert.InDelta(t, 0.1353, m.Wetness(2*cfg.DryingTime), 1e-3)

	prev := m.Wetness(0)
	for at := time.Hour; at <= 48*time.Hour; at += time.Hour {
		w := m.Wetness(at)
		assert.LessOrEqual(t, w, prev, "wetness must not increase without watering")
		prev = w
	}
}

func TestModel_Watering(t *testing.T) {
	cfg := quietConfig()
	cfg.WaterEvery = 24 * time.Hour
	m := New(cfg)

	assert.InDelta(t, m.Wetness(time.Hour), m.Wetness(25*time.Hour), 1e-6)
	assert.InDelta(t, 1.0, m.Wetness(24*time.Hour), 1e-6)
}

func TestModel_Ratio(t *testing.T) {
	m := New(quietConfig())

	// 10k / (10k + 1k) wet, 10k / (10k + 100k) dry
	assert.InDelta(t, 0.9091, m.Ratio(1), 1e-3)
	assert.InDelta(t, 0.0909, m.Ratio(0), 1e-3)
	assert.Greater(t, m.Ratio(0.6), m.Ratio(0.5))
}

func TestModel_Sample(t *testing.T) {
	m := New(quietConfig())

	wet := m.Sample(0)
	dry := m.Sample(72 * time.Hour)

	assert.Equal(t, uint16(930), wet)
	assert.Less(t, dry, wet)
	assert.LessOrEqual(t, wet, uint16(hal.MaxSample))
}

func TestModel_SampleNoiseBounded(t *testing.T) {
	cfg := quietConfig()
	quiet := New(cfg)
	cfg.NoiseLevel = 4
	noisy := New(cfg)

	for at := time.Duration(0); at < time.Hour; at += 8 * time.Second {
		diff := int(noisy.Sample(at)) - int(quiet.Sample(at))
		assert.LessOrEqual(t, diff, 5)
		assert.GreaterOrEqual(t, diff, -5)
	}
}

func TestModel_Clamp(t *testing.T) {
	cfg := quietConfig()
	cfg.InitialWetness = 3
	m := New(cfg)

	assert.Equal(t, float32(1), m.Wetness(0))
	assert.LessOrEqual(t, m.Sample(0), uint16(hal.MaxSample))
}
