package config

import (
	"fmt"
	"os"
	"time"

	"github.com/itohio/soilalarm/pkg/timing"
	"gopkg.in/yaml.v3"
)

// Config represents the host-side configuration. The firmware does not load
// it; it runs with timing.Default().
type Config struct {
	Timing     timing.Timing    `yaml:"timing"`
	Board      BoardConfig      `yaml:"board"`
	Simulation SimulationConfig `yaml:"simulation"`
}

// BoardConfig describes the wiring of the Linux board port.
type BoardConfig struct {
	PowerPin           string `yaml:"power_pin"`
	AlarmPin           string `yaml:"alarm_pin"`
	ButtonPin          string `yaml:"button_pin"`
	I2CBus             string `yaml:"i2c_bus"`
	ADCAddress         uint16 `yaml:"adc_address"`         // I2C address of the analog hat
	MoistureChannel    byte   `yaml:"moisture_channel"`    // hat input wired to the probe divider
	CalibrationChannel byte   `yaml:"calibration_channel"` // hat input wired to the potentiometer
}

// SimulationConfig drives the host simulator.
type SimulationConfig struct {
	Wakes           int        `yaml:"wakes"`            // number of wakes to simulate
	ManualEvery     int        `yaml:"manual_every"`     // every Nth wake is a button press (0 = never)
	HoldReads       int        `yaml:"hold_reads"`       // button reads held pressed on a manual wake
	Calibration     uint16     `yaml:"calibration"`      // potentiometer reading
	ConversionSteps int        `yaml:"conversion_steps"` // polls before a conversion completes
	Soil            SoilConfig `yaml:"soil"`
}

// SoilConfig contains the probe physics model parameters.
type SoilConfig struct {
	InitialWetness  float32       `yaml:"initial_wetness"`  // 0 (dry) .. 1 (saturated)
	DryingTime      time.Duration `yaml:"drying_time"`      // wetness e-folding time
	WaterEvery      time.Duration `yaml:"water_every"`      // re-watering period (0 = never)
	WetResistance   float32       `yaml:"wet_resistance"`   // probe resistance when saturated (ohm)
	DryResistance   float32       `yaml:"dry_resistance"`   // probe resistance when dry (ohm)
	FixedResistance float32       `yaml:"fixed_resistance"` // divider resistor (ohm)
	NoiseLevel      float32       `yaml:"noise_level"`      // peak noise (ADC counts)
}

// Default returns a default configuration with sensible values.
func Default() *Config {
	return &Config{
		Timing: timing.Default(),
		Board: BoardConfig{
			PowerPin:           "GPIO23",
			AlarmPin:           "GPIO24",
			ButtonPin:          "GPIO25",
			I2CBus:             "1",
			ADCAddress:         0x08,
			MoistureChannel:    0,
			CalibrationChannel: 2,
		},
		Simulation: SimulationConfig{
			Wakes:           10800, // one day of 8s wakes
			ManualEvery:     0,
			HoldReads:       1,
			Calibration:     600,
			ConversionSteps: 13,
			Soil: SoilConfig{
				InitialWetness:  1.0,
				DryingTime:      12 * time.Hour,
				WaterEvery:      0,
				WetResistance:   1000,
				DryResistance:   100000,
				FixedResistance: 10000,
				NoiseLevel:      4,
			},
		},
	}
}

// Load loads configuration from a YAML file. If the file doesn't exist or
// fields are missing, it uses default values.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ensureDefaults()

	if err := cfg.Timing.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file: %w", err)
	}

	return cfg, nil
}

// Save saves the configuration to a YAML file.
func (c *Config) Save(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ensureDefaults ensures that all required fields have default values if missing.
func (c *Config) ensureDefaults() {
	def := Default()

	if c.Timing.BeepToggles == 0 {
		c.Timing.BeepToggles = def.Timing.BeepToggles
	}
	if c.Timing.BeepHalfPeriod == 0 {
		c.Timing.BeepHalfPeriod = def.Timing.BeepHalfPeriod
	}
	if c.Timing.SettleDelay == 0 {
		c.Timing.SettleDelay = def.Timing.SettleDelay
	}
	if c.Timing.WakeInterval == 0 {
		c.Timing.WakeInterval = def.Timing.WakeInterval
	}
	if c.Timing.ADCPollLimit == 0 {
		c.Timing.ADCPollLimit = def.Timing.ADCPollLimit
	}

	if c.Board.PowerPin == "" {
		c.Board.PowerPin = def.Board.PowerPin
	}
	if c.Board.AlarmPin == "" {
		c.Board.AlarmPin = def.Board.AlarmPin
	}
	if c.Board.ButtonPin == "" {
		c.Board.ButtonPin = def.Board.ButtonPin
	}
	if c.Board.I2CBus == "" {
		c.Board.I2CBus = def.Board.I2CBus
	}
	if c.Board.ADCAddress == 0 {
		c.Board.ADCAddress = def.Board.ADCAddress
	}

	if c.Simulation.Wakes == 0 {
		c.Simulation.Wakes = def.Simulation.Wakes
	}
	// Zero hold_reads and calibration are meaningful; Load only keeps their
	// defaults when the keys are absent.

	soil := &c.Simulation.Soil
	if soil.DryingTime == 0 {
		soil.DryingTime = def.Simulation.Soil.DryingTime
	}
	if soil.WetResistance == 0 {
		soil.WetResistance = def.Simulation.Soil.WetResistance
	}
	if soil.DryResistance == 0 {
		soil.DryResistance = def.Simulation.Soil.DryResistance
	}
	if soil.FixedResistance == 0 {
		soil.FixedResistance = def.Simulation.Soil.FixedResistance
	}
}
