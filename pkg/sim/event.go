package sim

import (
	"fmt"
	"time"

	"github.com/itohio/soilalarm/pkg/hal"
)

// EventKind identifies one hardware action in the trace.
type EventKind int

const (
	EventPowerOn EventKind = iota
	EventPowerOff
	EventADCOn
	EventADCOff
	EventSample
	EventButton
	EventAlarmOn
	EventAlarmOff
	EventDelay
	EventEdgeWakeEnabled
	EventClearEdge
	EventInterruptsOff
	EventInterruptsOn
	EventClearResetFlags
	EventWatchdogUnlock
	EventWatchdogCommit
	EventWatchdogDisarm
	EventIdle
	EventWake
)

var eventNames = [...]string{
	EventPowerOn:         "power-on",
	EventPowerOff:        "power-off",
	EventADCOn:           "adc-on",
	EventADCOff:          "adc-off",
	EventSample:          "sample",
	EventButton:          "button",
	EventAlarmOn:         "alarm-on",
	EventAlarmOff:        "alarm-off",
	EventDelay:           "delay",
	EventEdgeWakeEnabled: "edge-wake-enabled",
	EventClearEdge:       "clear-edge",
	EventInterruptsOff:   "interrupts-off",
	EventInterruptsOn:    "interrupts-on",
	EventClearResetFlags: "clear-reset-flags",
	EventWatchdogUnlock:  "watchdog-unlock",
	EventWatchdogCommit:  "watchdog-commit",
	EventWatchdogDisarm:  "watchdog-disarm",
	EventIdle:            "idle",
	EventWake:            "wake",
}

func (k EventKind) String() string {
	if k >= 0 && int(k) < len(eventNames) {
		return eventNames[k]
	}
	return fmt.Sprintf("event(%d)", int(k))
}

// WakeCause says which source ended an idle period.
type WakeCause int

const (
	WakePeriodic WakeCause = iota
	WakeEdge
)

func (c WakeCause) String() string {
	if c == WakeEdge {
		return "edge"
	}
	return "periodic"
}

// Event is one entry of the trace.
type Event struct {
	Kind     EventKind
	At       time.Duration // simulated time
	Channel  hal.Channel   // EventSample
	Value    uint16        // EventSample, EventButton (1 = pressed)
	Duration time.Duration // EventDelay, EventWatchdogCommit
	Cause    WakeCause     // EventWake
	Spurious bool          // EventWake caused by a stale edge flag
}

func (e Event) String() string {
	switch e.Kind {
	case EventSample:
		return fmt.Sprintf("%v %s %s=%d", e.At, e.Kind, e.Channel, e.Value)
	case EventButton:
		return fmt.Sprintf("%v %s %t", e.At, e.Kind, e.Value == 1)
	case EventDelay, EventWatchdogCommit:
		return fmt.Sprintf("%v %s %v", e.At, e.Kind, e.Duration)
	case EventWake:
		if e.Spurious {
			return fmt.Sprintf("%v %s %s (spurious)", e.At, e.Kind, e.Cause)
		}
		return fmt.Sprintf("%v %s %s", e.At, e.Kind, e.Cause)
	default:
		return fmt.Sprintf("%v %s", e.At, e.Kind)
	}
}
