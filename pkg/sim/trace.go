package sim

import "time"

// Events returns a copy of the trace.
func (b *Board) Events() []Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Event(nil), b.events...)
}

// Reset drops the recorded trace and violations. Hardware state is kept.
func (b *Board) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = nil
	b.violations = nil
	b.spurious = 0
}

// Violations returns the invariant violations seen so far.
func (b *Board) Violations() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.violations...)
}

// SpuriousWakes counts wakes caused by a stale edge flag.
func (b *Board) SpuriousWakes() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.spurious
}

// Elapsed is the simulated time since power-up.
func (b *Board) Elapsed() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.now
}

// Halted reports whether the wake script ran out.
func (b *Board) Halted() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.halted
}

// Powered reports the probe power output.
func (b *Board) Powered() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.power
}

// Count returns how many events of kind k were recorded.
func (b *Board) Count(k EventKind) int {
	n := 0
	for _, e := range b.Events() {
		if e.Kind == k {
			n++
		}
	}
	return n
}

// Beeps counts alarm pulse trains. A train is a run of alarm events broken
// only by delays.
func (b *Board) Beeps() int {
	return len(b.BeepLengths())
}

// BeepLengths returns the number of on/off pairs of every pulse train.
func (b *Board) BeepLengths() []int {
	return BeepLengths(b.Events())
}

// BeepLengths splits events into pulse trains and returns their lengths.
func BeepLengths(events []Event) []int {
	var (
		lengths []int
		inTrain bool
	)
	for _, e := range events {
		switch e.Kind {
		case EventDelay:
		case EventAlarmOn:
			if !inTrain {
				lengths = append(lengths, 0)
				inTrain = true
			}
			lengths[len(lengths)-1]++
		case EventAlarmOff:
		default:
			inTrain = false
		}
	}
	return lengths
}
