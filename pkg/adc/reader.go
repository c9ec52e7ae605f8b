// Package adc performs blocking single-conversion reads.
package adc

import (
	"errors"
	"fmt"

	"github.com/itohio/soilalarm/pkg/hal"
	"github.com/itohio/soilalarm/pkg/timing"
)

// ErrConversionTimeout is returned when the converter does not report
// completion within the poll limit.
var ErrConversionTimeout = errors.New("conversion did not complete")

// Reader reads one raw sample per call. There is no averaging: every extra
// sample keeps the probe energized longer.
type Reader struct {
	adc       hal.ADC
	pollLimit int
}

// NewReader creates a reader that busy-waits at most pollLimit polls.
func NewReader(adc hal.ADC, pollLimit int) *Reader {
	if pollLimit <= 0 {
		pollLimit = timing.DefaultADCPollLimit
	}
	return &Reader{
		adc:       adc,
		pollLimit: pollLimit,
	}
}

// Read selects ch, starts a conversion and spins until it completes.
func (r *Reader) Read(ch hal.Channel) (uint16, error) {
	r.adc.StartConversion(ch)
	for i := 0; i < r.pollLimit; i++ {
		if r.adc.ConversionDone() {
			return r.adc.ConversionResult(), nil
		}
	}
	return 0, fmt.Errorf("read %s: %w", ch, ErrConversionTimeout)
}
