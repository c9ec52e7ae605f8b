package sim

import (
	"fmt"
	"sync"
	"time"

	"github.com/itohio/soilalarm/pkg/hal"
)

// Source returns the raw sample of a channel at a simulated time.
type Source func(ch hal.Channel, at time.Duration) uint16

// Fixed returns the same pair of samples on every read.
func Fixed(moisture, calibration uint16) Source {
	return func(ch hal.Channel, _ time.Duration) uint16 {
		if ch == hal.ChannelMoisture {
			return moisture
		}
		return calibration
	}
}

// Sequence steps through moisture values on successive moisture reads,
// wrapping around, while calibration stays fixed.
func Sequence(calibration uint16, moisture ...uint16) Source {
	next := 0
	return func(ch hal.Channel, _ time.Duration) uint16 {
		if ch != hal.ChannelMoisture {
			return calibration
		}
		if len(moisture) == 0 {
			return 0
		}
		v := moisture[next%len(moisture)]
		next++
		return v
	}
}

// Wake is one scripted end of an idle period.
type Wake struct {
	Cause WakeCause
	// HeldReads is how many button reads after the wake report pressed.
	HeldReads int
	// After is the time spent asleep before an edge wake. Periodic wakes
	// always take the armed interval.
	After time.Duration
}

// Board is a deterministic hal.Board. It records every hardware action and
// flags invariant violations instead of failing, so tests can inspect a
// whole run.
type Board struct {
	mu sync.Mutex

	source          Source
	wakes           []Wake
	conversionSteps int
	halt            func()

	handler hal.WakeHandler

	power       bool
	adcEnabled  bool
	alarm       bool
	interrupts  bool
	edgeEnabled bool
	pendingEdge bool
	held        int
	pressed     bool

	watchdogArmed    bool
	watchdogInterval time.Duration
	sequence         int // progress through the timed watchdog write

	converting bool
	pollsLeft  int
	channel    hal.Channel
	result     uint16

	now        time.Duration
	tracing    bool
	events     []Event
	violations []string
	spurious   int
	halted     bool
}

var _ hal.Board = (*Board)(nil)

// NewBoard creates a board fed by src that will wake according to wakes.
// Global interrupts start disabled, as after a reset.
func NewBoard(src Source, wakes ...Wake) *Board {
	if src == nil {
		src = Fixed(0, 0)
	}
	return &Board{
		source:  src,
		wakes:   append([]Wake(nil), wakes...),
		tracing: true,
	}
}

// SetTracing turns event recording on or off. Violations are recorded
// either way.
func (b *Board) SetTracing(on bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tracing = on
}

// SetConversionSteps sets how many ConversionDone polls report false before
// a conversion completes. A negative value never completes.
func (b *Board) SetConversionSteps(n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.conversionSteps = n
}

// OnHalt registers f to run when the wake script is exhausted.
func (b *Board) OnHalt(f func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.halt = f
}

// AddWakes appends to the wake script.
func (b *Board) AddWakes(w ...Wake) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.wakes = append(b.wakes, w...)
}

// HoldButton makes the next n button reads report pressed.
func (b *Board) HoldButton(n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.held = n
}

// SetPower implements hal.Pins.
func (b *Board) SetPower(on bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.power = on
	if on {
		b.record(Event{Kind: EventPowerOn})
	} else {
		b.record(Event{Kind: EventPowerOff})
	}
}

// SetAlarm implements hal.Pins.
func (b *Board) SetAlarm(on bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.alarm = on
	if on {
		b.record(Event{Kind: EventAlarmOn})
	} else {
		b.record(Event{Kind: EventAlarmOff})
	}
}

// ButtonPressed implements hal.Pins. A release sets the pending edge flag
// when the level-change source is enabled.
func (b *Board) ButtonPressed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	pressed := b.held > 0
	if pressed {
		b.held--
		b.pressed = true
	} else if b.pressed {
		b.pressed = false
		if b.edgeEnabled {
			b.pendingEdge = true
		}
	}

	var v uint16
	if pressed {
		v = 1
	}
	b.record(Event{Kind: EventButton, Value: v})
	return pressed
}

// EnableADC implements hal.ADC.
func (b *Board) EnableADC(on bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.adcEnabled = on
	if on {
		b.record(Event{Kind: EventADCOn})
	} else {
		b.converting = false
		b.record(Event{Kind: EventADCOff})
	}
}

// StartConversion implements hal.ADC.
func (b *Board) StartConversion(ch hal.Channel) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.adcEnabled {
		b.violate("conversion on %s started with the ADC disabled", ch)
	}
	if ch == hal.ChannelMoisture && !b.power {
		b.violate("moisture conversion started with the probe unpowered")
	}
	b.converting = true
	b.channel = ch
	b.pollsLeft = b.conversionSteps
	b.result = b.source(ch, b.now)
}

// ConversionDone implements hal.ADC.
func (b *Board) ConversionDone() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.converting {
		return false
	}
	if b.pollsLeft < 0 {
		return false
	}
	if b.pollsLeft > 0 {
		b.pollsLeft--
		return false
	}
	return true
}

// ConversionResult implements hal.ADC.
func (b *Board) ConversionResult() uint16 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.converting = false
	b.record(Event{Kind: EventSample, Channel: b.channel, Value: b.result})
	return b.result
}

// Delay implements hal.Clock by advancing simulated time.
func (b *Board) Delay(d time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.record(Event{Kind: EventDelay, Duration: d})
	b.now += d
}

// ClearResetFlags implements hal.Watchdog.
func (b *Board) ClearResetFlags() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sequence == 1 {
		b.sequence = 2
	}
	b.record(Event{Kind: EventClearResetFlags})
}

// UnlockWatchdog implements hal.Watchdog.
func (b *Board) UnlockWatchdog() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sequence == 2 {
		b.sequence = 3
	} else {
		b.sequence = 0
	}
	b.record(Event{Kind: EventWatchdogUnlock})
}

// CommitWatchdog implements hal.Watchdog.
func (b *Board) CommitWatchdog(interval time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sequence != 3 {
		b.violate("watchdog committed outside the timed sequence")
	}
	b.sequence = 0
	b.watchdogArmed = true
	b.watchdogInterval = interval
	b.record(Event{Kind: EventWatchdogCommit, Duration: interval})
}

// DisarmWatchdog implements hal.Watchdog.
func (b *Board) DisarmWatchdog() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.watchdogArmed = false
	b.record(Event{Kind: EventWatchdogDisarm})
}

// DisableInterrupts implements hal.Interrupts.
func (b *Board) DisableInterrupts() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.interrupts = false
	b.sequence = 1
	b.record(Event{Kind: EventInterruptsOff})
}

// EnableInterrupts implements hal.Interrupts.
func (b *Board) EnableInterrupts() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.interrupts = true
	b.sequence = 0
	b.record(Event{Kind: EventInterruptsOn})
}

// EnableEdgeWake implements hal.Interrupts.
func (b *Board) EnableEdgeWake() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.edgeEnabled = true
	b.record(Event{Kind: EventEdgeWakeEnabled})
}

// ClearEdgeFlag implements hal.Interrupts.
func (b *Board) ClearEdgeFlag() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pendingEdge = false
	b.record(Event{Kind: EventClearEdge})
}

// SetWakeHandler implements hal.Interrupts.
func (b *Board) SetWakeHandler(h hal.WakeHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handler = h
}

// PowerDown implements hal.Sleeper. It consumes one scripted wake, runs the
// matching handler and returns. When the script is exhausted the board halts
// and the halt callback runs instead.
func (b *Board) PowerDown() {
	b.mu.Lock()
	b.record(Event{Kind: EventIdle})
	if b.power {
		b.violate("idle entered with the probe powered")
	}
	if b.alarm {
		b.violate("idle entered with the alarm output high")
	}
	if !b.interrupts {
		b.violate("idle entered with interrupts disabled")
	}
	if !b.watchdogArmed && !b.edgeEnabled {
		b.violate("idle entered with no wake source armed")
	}
	handler := b.handler
	if handler == nil {
		b.violate("idle entered with no wake handler")
	}

	if b.pendingEdge && b.edgeEnabled && b.interrupts {
		b.pendingEdge = false
		b.spurious++
		b.record(Event{Kind: EventWake, Cause: WakeEdge, Spurious: true})
		b.mu.Unlock()
		if handler != nil {
			handler.EdgeWake()
		}
		return
	}

	if len(b.wakes) == 0 || b.halted {
		b.halted = true
		halt := b.halt
		b.mu.Unlock()
		if halt != nil {
			halt()
		}
		return
	}

	w := b.wakes[0]
	b.wakes = b.wakes[1:]

	switch w.Cause {
	case WakeEdge:
		if !b.edgeEnabled || !b.interrupts {
			b.violate("edge wake requested but the level-change source cannot fire")
			b.halted = true
			b.mu.Unlock()
			return
		}
		if w.After > b.watchdogInterval && b.watchdogArmed {
			b.violate("edge wake scripted after the watchdog would have fired")
		}
		b.now += w.After
	default:
		if !b.watchdogArmed || !b.interrupts {
			b.violate("periodic wake requested but the watchdog is not armed")
			b.halted = true
			b.mu.Unlock()
			return
		}
		b.now += b.watchdogInterval
	}

	b.held = w.HeldReads
	b.pressed = false
	b.record(Event{Kind: EventWake, Cause: w.Cause})
	b.mu.Unlock()

	if handler != nil {
		if w.Cause == WakeEdge {
			handler.EdgeWake()
		} else {
			handler.PeriodicWake()
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if w.Cause == WakePeriodic && b.watchdogArmed {
		b.violate("watchdog still armed after its wake; the next expiry resets the device")
	}
}

// record appends to the trace; callers hold mu.
func (b *Board) record(e Event) {
	if !b.tracing {
		return
	}
	e.At = b.now
	b.events = append(b.events, e)
}

// violate records an invariant violation; callers hold mu.
func (b *Board) violate(format string, args ...any) {
	b.violations = append(b.violations, fmt.Sprintf("%v: %s", b.now, fmt.Sprintf(format, args...)))
}
