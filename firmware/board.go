//go:build tinygo

package main

import (
	"machine"
	"runtime/interrupt"
	"runtime/volatile"
	"time"

	"github.com/itohio/soilalarm/pkg/hal"
)

// board implements hal.Board on the XIAO. The periodic wake is a deadline
// checked by the idle loop; time.Sleep lets the core idle between checks.
type board struct {
	moisture    machine.ADC
	calibration machine.ADC

	handler hal.WakeHandler
	irq     interrupt.State
	masked  bool

	// written from the pin interrupt
	edge volatile.Register8

	armed    bool
	deadline time.Time

	adcOn  bool
	done   bool
	result uint16
}

var _ hal.Board = (*board)(nil)

func newBoard() *board {
	b := &board{
		moisture:    machine.ADC{Pin: PIN_MOISTURE_ADC},
		calibration: machine.ADC{Pin: PIN_CALIBRATION_ADC},
	}
	adcConfig := machine.ADCConfig{Resolution: ADC_RESOLUTION}
	b.moisture.Configure(adcConfig)
	b.calibration.Configure(adcConfig)
	return b
}

func (b *board) SetPower(on bool) { PIN_POWER.Set(on) }

func (b *board) SetAlarm(on bool) { PIN_ALARM.Set(on) }

// ButtonPressed reads the active-low button.
func (b *board) ButtonPressed() bool { return !PIN_BUTTON.Get() }

func (b *board) EnableADC(on bool) {
	b.adcOn = on
	b.done = false
}

// StartConversion runs the conversion right away; machine.ADC.Get blocks
// until the result is ready.
func (b *board) StartConversion(ch hal.Channel) {
	b.done = false
	if !b.adcOn {
		return
	}
	adc := b.moisture
	if ch == hal.ChannelCalibration {
		adc = b.calibration
	}
	// Get scales to 16 bits regardless of the configured resolution.
	b.result = adc.Get() >> (16 - ADC_RESOLUTION)
	b.done = true
}

func (b *board) ConversionDone() bool { return b.done }

func (b *board) ConversionResult() uint16 {
	b.done = false
	return b.result
}

func (b *board) Delay(d time.Duration) {
	for start := time.Now(); time.Since(start) < d; {
	}
}

// The SAMD21 watchdog only resets; there are no reset flags or unlock
// step for the software deadline.
func (b *board) ClearResetFlags() {}

func (b *board) UnlockWatchdog() {}

func (b *board) CommitWatchdog(interval time.Duration) {
	b.deadline = time.Now().Add(interval)
	b.armed = true
}

func (b *board) DisarmWatchdog() { b.armed = false }

func (b *board) DisableInterrupts() {
	if b.masked {
		return
	}
	b.irq = interrupt.Disable()
	b.masked = true
}

func (b *board) EnableInterrupts() {
	if !b.masked {
		return
	}
	interrupt.Restore(b.irq)
	b.masked = false
}

func (b *board) EnableEdgeWake() {
	err := PIN_BUTTON.SetInterrupt(machine.PinToggle, func(machine.Pin) {
		b.edge.Set(1)
		if b.handler != nil {
			b.handler.EdgeWake()
		}
	})
	if err != nil {
		println("button interrupt:", err.Error())
	}
}

func (b *board) ClearEdgeFlag() { b.edge.Set(0) }

func (b *board) SetWakeHandler(h hal.WakeHandler) { b.handler = h }

// PowerDown idles until the button changes level or the deadline passes.
func (b *board) PowerDown() {
	for {
		if b.edge.Get() != 0 {
			b.edge.Set(0)
			return
		}
		if b.armed && !time.Now().Before(b.deadline) {
			if b.handler != nil {
				b.handler.PeriodicWake()
			}
			return
		}
		time.Sleep(IDLE_TICK_MS * time.Millisecond)
	}
}
