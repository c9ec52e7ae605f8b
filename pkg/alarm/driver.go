// Package alarm produces the fixed audible/visible pulse train.
package alarm

import (
	"time"

	"github.com/itohio/soilalarm/pkg/hal"
)

// Output is what the driver needs from the board.
type Output interface {
	hal.Clock
	SetAlarm(on bool)
}

// Driver toggles the alarm output with a fixed pattern.
type Driver struct {
	out        Output
	toggles    int
	halfPeriod time.Duration
}

// New creates a driver producing toggles on/off pairs of halfPeriod each.
func New(out Output, toggles int, halfPeriod time.Duration) *Driver {
	return &Driver{
		out:        out,
		toggles:    toggles,
		halfPeriod: halfPeriod,
	}
}

// Beep blocks for the whole pulse train and leaves the output low.
func (d *Driver) Beep() {
	for i := 0; i < d.toggles; i++ {
		d.out.SetAlarm(true)
		d.out.Delay(d.halfPeriod)
		d.out.SetAlarm(false)
		d.out.Delay(d.halfPeriod)
	}
}
