// Package timing holds the fixed constants of the alarm. It has no
// dependencies so the firmware can import it.
package timing

import (
	"errors"
	"fmt"
	"time"
)

const (
	// DefaultBeepToggles is the number of on/off pairs in one beep.
	DefaultBeepToggles = 255
	// DefaultBeepHalfPeriod is the time the alarm output stays in each level
	// (125us, a ~4kHz tone; one beep lasts ~64ms).
	DefaultBeepHalfPeriod = 125 * time.Microsecond
	// DefaultSettleDelay lets the divider voltage stabilize after power-on.
	DefaultSettleDelay = 125 * time.Microsecond
	// DefaultWakeInterval is the periodic wake period.
	DefaultWakeInterval = 8 * time.Second
	// DefaultADCPollLimit bounds the conversion busy-wait.
	DefaultADCPollLimit = 10000

	// ThresholdDivisor places the alarm threshold at half the calibration
	// reading. It is part of the comparison and is not configurable.
	ThresholdDivisor = 2
)

// ErrInvalid is returned by Validate.
var ErrInvalid = errors.New("invalid timing")

// Timing groups the values tests and host runs may scale down.
type Timing struct {
	BeepToggles    int           `yaml:"beep_toggles"`
	BeepHalfPeriod time.Duration `yaml:"beep_half_period"`
	SettleDelay    time.Duration `yaml:"settle_delay"`
	WakeInterval   time.Duration `yaml:"wake_interval"`
	ADCPollLimit   int           `yaml:"adc_poll_limit"`
}

// Default returns the firmware timing.
func Default() Timing {
	return Timing{
		BeepToggles:    DefaultBeepToggles,
		BeepHalfPeriod: DefaultBeepHalfPeriod,
		SettleDelay:    DefaultSettleDelay,
		WakeInterval:   DefaultWakeInterval,
		ADCPollLimit:   DefaultADCPollLimit,
	}
}

// Validate checks that every value is positive.
func (t Timing) Validate() error {
	switch {
	case t.BeepToggles <= 0:
		return fmt.Errorf("%w: beep toggles %d", ErrInvalid, t.BeepToggles)
	case t.BeepHalfPeriod <= 0:
		return fmt.Errorf("%w: beep half period %v", ErrInvalid, t.BeepHalfPeriod)
	case t.SettleDelay <= 0:
		return fmt.Errorf("%w: settle delay %v", ErrInvalid, t.SettleDelay)
	case t.WakeInterval <= 0:
		return fmt.Errorf("%w: wake interval %v", ErrInvalid, t.WakeInterval)
	case t.ADCPollLimit <= 0:
		return fmt.Errorf("%w: adc poll limit %d", ErrInvalid, t.ADCPollLimit)
	}
	return nil
}

// BeepDuration is how long one beep blocks the main loop.
func (t Timing) BeepDuration() time.Duration {
	return time.Duration(t.BeepToggles) * 2 * t.BeepHalfPeriod
}
