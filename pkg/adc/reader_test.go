package adc

import (
	"testing"

	"github.com/itohio/soilalarm/pkg/hal"
	"github.com/itohio/soilalarm/pkg/sim"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPoweredBoard(src sim.Source) *sim.Board {
	board := sim.NewBoard(src)
	board.SetPower(true)
	board.EnableADC(true)
	return board
}

func TestReader_Read(t *testing.T) {
	tests := []struct {
		name  string
		steps int
		ch    hal.Channel
		want  uint16
	}{
		{name: "moisture immediate", steps: 0, ch: hal.ChannelMoisture, want: 250},
		{name: "calibration immediate", steps: 0, ch: hal.ChannelCalibration, want: 600},
		{name: "moisture after polling", steps: 25, ch: hal.ChannelMoisture, want: 250},
		{name: "calibration at the poll limit", steps: 99, ch: hal.ChannelCalibration, want: 600},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			board := newPoweredBoard(sim.Fixed(250, 600))
			board.SetConversionSteps(tt.steps)

			got, err := NewReader(board, 100).Read(tt.ch)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, 1, board.Count(sim.EventSample))
			assert.Empty(t, board.Violations())
		})
	}
}

func TestReader_Timeout(t *testing.T) {
	board := newPoweredBoard(sim.Fixed(250, 600))
	board.SetConversionSteps(-1)

	_, err := NewReader(board, 50).Read(hal.ChannelMoisture)
	assert.ErrorIs(t, err, ErrConversionTimeout)
	assert.Contains(t, err.Error(), "moisture")
	assert.Zero(t, board.Count(sim.EventSample))
}

func TestReader_StepsBeyondLimit(t *testing.T) {
	board := newPoweredBoard(sim.Fixed(250, 600))
	board.SetConversionSteps(10)

	_, err := NewReader(board, 10).Read(hal.ChannelCalibration)
	assert.ErrorIs(t, err, ErrConversionTimeout)
}

func TestReader_SingleSamplePerRead(t *testing.T) {
	board := newPoweredBoard(sim.Sequence(600, 100, 200, 300))
	r := NewReader(board, 0)

	for _, want := range []uint16{100, 200, 300, 100} {
		got, err := r.Read(hal.ChannelMoisture)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	assert.Equal(t, 4, board.Count(sim.EventSample))
}

func TestReader_DisabledADC(t *testing.T) {
	board := sim.NewBoard(sim.Fixed(250, 600))
	board.SetPower(true)

	_, err := NewReader(board, 10).Read(hal.ChannelMoisture)
	require.NoError(t, err)
	assert.NotEmpty(t, board.Violations())
}
