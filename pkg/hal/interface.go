// Package hal defines the hardware surface the alarm logic runs against.
// Targets (TinyGo firmware, Linux boards, the simulator) implement Board.
package hal

import "time"

// Channel selects one of the analog inputs.
type Channel uint8

const (
	// ChannelMoisture is the probe/fixed resistor divider.
	ChannelMoisture Channel = iota
	// ChannelCalibration is the potentiometer wiper.
	ChannelCalibration
)

// MaxSample is the largest raw value of the 10-bit converter.
const MaxSample = 1023

func (c Channel) String() string {
	switch c {
	case ChannelMoisture:
		return "moisture"
	case ChannelCalibration:
		return "calibration"
	default:
		return "unknown"
	}
}

// Pins drives the digital signals.
type Pins interface {
	// SetPower energizes (true) or de-energizes the moisture divider.
	SetPower(on bool)
	// SetAlarm drives the buzzer/LED output.
	SetAlarm(on bool)
	// ButtonPressed reads the test button. The input is active-low; the
	// board resolves the polarity.
	ButtonPressed() bool
}

// ADC is a single-conversion analog to digital converter.
type ADC interface {
	EnableADC(on bool)
	// StartConversion selects the channel and starts one conversion.
	StartConversion(ch Channel)
	ConversionDone() bool
	ConversionResult() uint16
}

// Clock provides blocking delays. Delay busy-waits and never yields.
type Clock interface {
	Delay(d time.Duration)
}

// Watchdog is the periodic wake timer. CommitWatchdog is only valid between
// UnlockWatchdog and EnableInterrupts of the timed sequence.
type Watchdog interface {
	ClearResetFlags()
	UnlockWatchdog()
	// CommitWatchdog arms a one-shot interrupt after interval.
	CommitWatchdog(interval time.Duration)
	DisarmWatchdog()
}

// Interrupts controls global interrupts and the button level-change source.
type Interrupts interface {
	DisableInterrupts()
	EnableInterrupts()
	EnableEdgeWake()
	// ClearEdgeFlag drops a pending, not yet serviced, level-change event.
	ClearEdgeFlag()
	// SetWakeHandler registers the interrupt callbacks. Only one handler is
	// kept; a later call replaces the earlier one.
	SetWakeHandler(h WakeHandler)
}

// Sleeper parks the processor in the lowest-power state until one of the
// armed wake sources fires. PowerDown returns after the wake handler ran.
type Sleeper interface {
	PowerDown()
}

// Board is everything the alarm needs from a target.
type Board interface {
	Pins
	ADC
	Clock
	Watchdog
	Interrupts
	Sleeper
}

// WakeHandler receives the two wake interrupts. Both run in interrupt
// context: PeriodicWake must only disarm the watchdog, EdgeWake must do
// nothing. The main flow re-reads pin levels itself afterwards.
type WakeHandler interface {
	PeriodicWake()
	EdgeWake()
}
