//go:build tinygo

package main

import "machine"

const (
	// Digital pins
	PIN_BUTTON = machine.D1 // test button to ground, internal pull-up
	PIN_POWER  = machine.D2 // energizes the probe divider
	PIN_ALARM  = machine.D3 // buzzer and LED

	// ADC pins
	PIN_MOISTURE_ADC    = machine.A4 // probe/fixed resistor divider
	PIN_CALIBRATION_ADC = machine.A5 // potentiometer wiper

	// ADC configuration
	ADC_RESOLUTION = 10 // bits, matches the comparison range (0-1023)

	// Granularity of the idle loop. The core sleeps between checks.
	IDLE_TICK_MS = 10
)
