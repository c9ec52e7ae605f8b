// Package monitor is the main control loop: wake, measure, compare, alarm,
// sleep.
package monitor

import (
	"context"
	"log"

	"github.com/itohio/soilalarm/pkg/adc"
	"github.com/itohio/soilalarm/pkg/alarm"
	"github.com/itohio/soilalarm/pkg/hal"
	"github.com/itohio/soilalarm/pkg/timing"
	"github.com/itohio/soilalarm/pkg/wake"
)

// Report describes one active phase.
type Report struct {
	Confirmed   bool   // confirmation beep on a manual wake
	Passes      int    // sampling passes
	Alarms      int    // dry alarms
	Errors      int    // failed reads
	Sampled     bool   // at least one pass read both channels
	Moisture    uint16 // last moisture sample
	Calibration uint16 // last calibration sample
}

// Observer is notified after every active phase.
type Observer interface {
	CycleCompleted(r Report)
}

// Monitor runs the alarm against a board. It keeps no state between cycles.
type Monitor struct {
	board  hal.Board
	timing timing.Timing
	reader *adc.Reader
	alarm  *alarm.Driver
	wake   *wake.Controller

	logger   *log.Logger
	observer Observer
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithLogger logs failed reads to l.
func WithLogger(l *log.Logger) Option {
	return func(m *Monitor) {
		m.logger = l
	}
}

// WithObserver reports every cycle to o.
func WithObserver(o Observer) Option {
	return func(m *Monitor) {
		m.observer = o
	}
}

// New wires the reader, alarm driver and wake controller for board.
func New(board hal.Board, t timing.Timing, opts ...Option) *Monitor {
	m := &Monitor{
		board:  board,
		timing: t,
		reader: adc.NewReader(board, t.ADCPollLimit),
		alarm:  alarm.New(board, t.BeepToggles, t.BeepHalfPeriod),
		wake:   wake.New(board, t.WakeInterval),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Dry reports whether moisture is below half the calibration reading.
func Dry(moisture, calibration uint16) bool {
	return moisture < calibration/timing.ThresholdDivisor
}

// Start configures the wake sources. Call once before the first Cycle.
func (m *Monitor) Start() {
	m.board.SetPower(false)
	m.board.SetAlarm(false)
	m.board.EnableADC(false)
	m.wake.Arm()
}

// Cycle runs one active phase. The probe is powered only inside it.
func (m *Monitor) Cycle() Report {
	var r Report

	if m.board.ButtonPressed() {
		m.alarm.Beep()
		r.Confirmed = true
	}

	m.board.SetPower(true)
	m.board.EnableADC(true)
	m.board.Delay(m.timing.SettleDelay)

	for {
		r.Passes++
		m.sample(&r)
		if !m.board.ButtonPressed() {
			break
		}
	}

	m.board.SetPower(false)
	m.board.EnableADC(false)

	if m.observer != nil {
		m.observer.CycleCompleted(r)
	}
	return r
}

// sample takes one moisture/calibration pair and beeps if the soil is dry.
func (m *Monitor) sample(r *Report) {
	moisture, err := m.reader.Read(hal.ChannelMoisture)
	if err != nil {
		m.readFailed(r, err)
		return
	}
	calibration, err := m.reader.Read(hal.ChannelCalibration)
	if err != nil {
		m.readFailed(r, err)
		return
	}

	r.Sampled = true
	r.Moisture = moisture
	r.Calibration = calibration
	if Dry(moisture, calibration) {
		m.alarm.Beep()
		r.Alarms++
	}
}

func (m *Monitor) readFailed(r *Report, err error) {
	r.Errors++
	if m.logger != nil {
		m.logger.Printf("Skipping comparison: %v", err)
	}
}

// Step runs one active phase and then sleeps until the next wake.
func (m *Monitor) Step() Report {
	r := m.Cycle()
	m.wake.Idle()
	return r
}

// Run starts the monitor and steps until ctx is done. The firmware passes
// a context that is never done.
func (m *Monitor) Run(ctx context.Context) error {
	m.Start()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		m.Step()
	}
}
