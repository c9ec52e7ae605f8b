package monitor

import (
	"bytes"
	"context"
	"log"
	"testing"
	"time"

	"github.com/itohio/soilalarm/pkg/hal"
	"github.com/itohio/soilalarm/pkg/sim"
	"github.com/itohio/soilalarm/pkg/timing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fastTiming keeps traces short.
func fastTiming() timing.Timing {
	return timing.Timing{
		BeepToggles:    4,
		BeepHalfPeriod: time.Microsecond,
		SettleDelay:    125 * time.Microsecond,
		WakeInterval:   8 * time.Second,
		ADCPollLimit:   100,
	}
}

func newMonitor(t *testing.T, src sim.Source, wakes ...sim.Wake) (*Monitor, *sim.Board) {
	t.Helper()
	board := sim.NewBoard(src, wakes...)
	m := New(board, fastTiming())
	m.Start()
	return m, board
}

func TestDry(t *testing.T) {
	tests := []struct {
		name        string
		moisture    uint16
		calibration uint16
		want        bool
	}{
		{name: "scenario A", moisture: 250, calibration: 600, want: true},
		{name: "scenario B", moisture: 400, calibration: 600, want: false},
		{name: "exactly half", moisture: 300, calibration: 600, want: false},
		{name: "one below half", moisture: 299, calibration: 600, want: true},
		{name: "odd calibration floors", moisture: 300, calibration: 601, want: false},
		{name: "odd calibration below", moisture: 299, calibration: 601, want: true},
		{name: "zero calibration", moisture: 0, calibration: 0, want: false},
		{name: "calibration one", moisture: 0, calibration: 1, want: false},
		{name: "calibration two", moisture: 0, calibration: 2, want: true},
		{name: "full scale", moisture: 1023, calibration: 1023, want: false},
		{name: "dry probe", moisture: 0, calibration: 1023, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Dry(tt.moisture, tt.calibration))
		})
	}
}

func TestDry_Exhaustive(t *testing.T) {
	for c := uint16(0); c <= 1023; c += 7 {
		for m := uint16(0); m <= 1023; m += 5 {
			want := int(m) < int(c)/2
			if Dry(m, c) != want {
				t.Fatalf("Dry(%d, %d) = %t, want %t", m, c, !want, want)
			}
		}
	}
}

func TestCycle_ScenarioA(t *testing.T) {
	m, board := newMonitor(t, sim.Fixed(250, 600))

	r := m.Cycle()

	assert.False(t, r.Confirmed)
	assert.Equal(t, 1, r.Passes)
	assert.Equal(t, 1, r.Alarms)
	assert.True(t, r.Sampled)
	assert.Equal(t, uint16(250), r.Moisture)
	assert.Equal(t, uint16(600), r.Calibration)
	assert.Equal(t, []int{4}, board.BeepLengths())
	assert.Empty(t, board.Violations())
}

func TestCycle_ScenarioB(t *testing.T) {
	m, board := newMonitor(t, sim.Fixed(400, 600))

	r := m.Cycle()

	assert.Equal(t, 1, r.Passes)
	assert.Zero(t, r.Alarms)
	assert.Zero(t, board.Beeps())
}

func TestStep_ScenarioC(t *testing.T) {
	m, board := newMonitor(t, sim.Sequence(600, 250, 400), sim.Wake{Cause: sim.WakeEdge, HeldReads: 6})

	m.Step()
	board.Reset()
	r := m.Cycle()

	assert.True(t, r.Confirmed)
	assert.Equal(t, 6, r.Passes)
	assert.Equal(t, 3, r.Alarms)
	assert.Equal(t, 4, board.Beeps())
	assert.Zero(t, board.Count(sim.EventIdle), "held button must not return to idle")
	assert.Equal(t, 1, board.Count(sim.EventPowerOn))
	assert.Equal(t, 12, board.Count(sim.EventSample))
	assert.Empty(t, board.Violations())
}

func TestStep_ScenarioD(t *testing.T) {
	m, board := newMonitor(t, sim.Fixed(400, 600), sim.Wake{Cause: sim.WakePeriodic})

	m.Step()
	board.Reset()
	r := m.Cycle()

	assert.False(t, r.Confirmed)
	assert.Zero(t, board.Beeps())

	events := board.Events()
	require.GreaterOrEqual(t, len(events), 3)
	assert.Equal(t, sim.EventButton, events[0].Kind)
	assert.Equal(t, sim.EventPowerOn, events[1].Kind)
}

func TestCycle_ManualWakeConfirms(t *testing.T) {
	tests := []struct {
		name     string
		src      sim.Source
		wake     sim.Wake
		beeps    int
		confirms bool
	}{
		{name: "edge wake wet soil", src: sim.Fixed(900, 600), wake: sim.Wake{Cause: sim.WakeEdge, HeldReads: 1}, beeps: 1, confirms: true},
		{name: "edge wake dry soil", src: sim.Fixed(10, 600), wake: sim.Wake{Cause: sim.WakeEdge, HeldReads: 1}, beeps: 2, confirms: true},
		{name: "periodic wake while held", src: sim.Fixed(900, 600), wake: sim.Wake{Cause: sim.WakePeriodic, HeldReads: 1}, beeps: 1, confirms: true},
		{name: "edge wake already released", src: sim.Fixed(900, 600), wake: sim.Wake{Cause: sim.WakeEdge}, beeps: 0, confirms: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, board := newMonitor(t, tt.src, tt.wake)
			m.Step()
			board.Reset()

			r := m.Cycle()
			assert.Equal(t, tt.confirms, r.Confirmed)
			assert.Equal(t, tt.beeps, board.Beeps())

			if tt.confirms {
				firstAlarm, firstSample := -1, -1
				for i, e := range board.Events() {
					if e.Kind == sim.EventAlarmOn && firstAlarm < 0 {
						firstAlarm = i
					}
					if e.Kind == sim.EventSample && firstSample < 0 {
						firstSample = i
					}
				}
				require.GreaterOrEqual(t, firstAlarm, 0)
				assert.Less(t, firstAlarm, firstSample, "confirmation beep must precede the first comparison")
			}
		})
	}
}

func TestCycle_ReleaseMidBeep(t *testing.T) {
	// Released while the second pass beeps; the check after it ends the loop.
	m, board := newMonitor(t, sim.Fixed(100, 600), sim.Wake{Cause: sim.WakeEdge, HeldReads: 2})
	m.Step()

	r := m.Cycle()
	assert.Equal(t, 2, r.Passes)
	assert.Equal(t, 2, r.Alarms)
	assert.Empty(t, board.Violations())
}

func TestCycle_ReadTimeout(t *testing.T) {
	var buf bytes.Buffer
	board := sim.NewBoard(sim.Fixed(10, 600))
	board.SetConversionSteps(-1)
	m := New(board, fastTiming(), WithLogger(log.New(&buf, "", 0)))
	m.Start()

	r := m.Cycle()

	assert.Equal(t, 1, r.Errors)
	assert.False(t, r.Sampled)
	assert.Zero(t, r.Alarms)
	assert.False(t, board.Powered())
	assert.Contains(t, buf.String(), "conversion did not complete")
}

type recorder struct {
	reports []Report
}

func (r *recorder) CycleCompleted(rep Report) {
	r.reports = append(r.reports, rep)
}

func TestRun_PowerGatingAndHygiene(t *testing.T) {
	wakes := []sim.Wake{
		{Cause: sim.WakePeriodic},
		{Cause: sim.WakeEdge, HeldReads: 3, After: 2 * time.Second},
		{Cause: sim.WakePeriodic},
		{Cause: sim.WakeEdge, HeldReads: 1},
		{Cause: sim.WakePeriodic, HeldReads: 2},
		{Cause: sim.WakePeriodic},
	}
	board := sim.NewBoard(sim.Sequence(600, 250, 400, 310, 100), wakes...)
	obs := &recorder{}
	m := New(board, fastTiming(), WithObserver(obs))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	board.OnHalt(cancel)

	err := m.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, board.Halted())
	assert.Len(t, obs.reports, len(wakes)+1)
	assert.Empty(t, board.Violations())
	assert.Zero(t, board.SpuriousWakes())

	events := board.Events()
	powered := false
	lastClear, lastCommit := -1, -1
	for i, e := range events {
		switch e.Kind {
		case sim.EventPowerOn:
			require.False(t, powered, "power asserted twice at %d", i)
			powered = true
		case sim.EventPowerOff:
			powered = false
		case sim.EventSample:
			if e.Channel == hal.ChannelMoisture {
				require.True(t, powered, "moisture read unpowered at %d", i)
			}
		case sim.EventClearEdge:
			lastClear = i
		case sim.EventWatchdogCommit:
			assert.Equal(t, 8*time.Second, e.Duration)
			lastCommit = i
		case sim.EventIdle:
			require.False(t, powered, "idle entered powered at %d", i)
			require.Greater(t, lastClear, 0)
			require.Greater(t, lastCommit, lastClear)
			// nothing but interrupt enables between the rearm and the idle
			for j := lastCommit + 1; j < i; j++ {
				assert.Equal(t, sim.EventInterruptsOn, events[j].Kind)
			}
			lastClear, lastCommit = -1, -1
		}
	}
	assert.False(t, powered)
	assert.Equal(t, board.Count(sim.EventPowerOn), len(wakes)+1)
	assert.Equal(t, board.Count(sim.EventIdle), len(wakes)+1)
}

func TestRun_AlreadyCancelled(t *testing.T) {
	board := sim.NewBoard(nil)
	m := New(board, fastTiming())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, m.Run(ctx), context.Canceled)
	assert.Zero(t, board.Count(sim.EventPowerOn))
}
