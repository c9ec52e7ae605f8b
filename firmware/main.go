//go:build tinygo

//go:generate tinygo flash -target=xiao

package main

import (
	"context"
	"machine"

	"github.com/itohio/soilalarm/pkg/monitor"
	"github.com/itohio/soilalarm/pkg/timing"
)

func main() {
	PIN_POWER.Configure(machine.PinConfig{Mode: machine.PinOutput})
	PIN_ALARM.Configure(machine.PinConfig{Mode: machine.PinOutput})
	PIN_BUTTON.Configure(machine.PinConfig{Mode: machine.PinInputPullup})

	PIN_MOISTURE_ADC.Configure(machine.PinConfig{Mode: machine.PinInput})
	PIN_CALIBRATION_ADC.Configure(machine.PinConfig{Mode: machine.PinInput})
	machine.InitADC()

	b := newBoard()

	// Never returns: the context is never done.
	monitor.New(b, timing.Default()).Run(context.Background())
}
