// Package wake arms the two wake sources and parks the processor.
package wake

import (
	"time"

	"github.com/itohio/soilalarm/pkg/hal"
)

// Controller owns idle entry. It is also the board's interrupt handler.
type Controller struct {
	board    hal.Board
	interval time.Duration
}

var _ hal.WakeHandler = (*Controller)(nil)

// New creates a controller that rearms the periodic source with interval
// before every idle entry.
func New(board hal.Board, interval time.Duration) *Controller {
	return &Controller{
		board:    board,
		interval: interval,
	}
}

// Arm registers the interrupt handlers and enables the button level-change
// source. Call once at startup.
func (c *Controller) Arm() {
	c.board.SetWakeHandler(c)
	c.board.EnableEdgeWake()
}

// Idle suspends the main flow until the next wake.
func (c *Controller) Idle() {
	// A level change seen while active would end the next sleep at once.
	c.board.ClearEdgeFlag()
	c.rearm()
	c.board.EnableInterrupts()
	c.board.PowerDown()
}

// rearm performs the timed watchdog write with interrupts masked.
func (c *Controller) rearm() {
	c.board.DisableInterrupts()
	c.board.ClearResetFlags()
	c.board.UnlockWatchdog()
	c.board.CommitWatchdog(c.interval)
	c.board.EnableInterrupts()
}

// PeriodicWake disarms the watchdog so it cannot fire again (and reset the
// device) before the next Idle rearms it.
func (c *Controller) PeriodicWake() {
	c.board.DisarmWatchdog()
}

// EdgeWake does nothing; waking up is all it is for.
func (c *Controller) EdgeWake() {}
