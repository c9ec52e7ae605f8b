// Package rpi runs the alarm on a Raspberry Pi with a Grove base hat: GPIO
// for power, alarm and button, the hat's I2C converter for the analog inputs.
package rpi

import (
	"encoding/binary"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/itohio/soilalarm/pkg/config"
	"github.com/itohio/soilalarm/pkg/hal"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

const (
	// hatRawRegister is the first raw-reading register of the hat; channel n
	// is read from hatRawRegister+n.
	hatRawRegister = 0x10
	// hatResolution is the hat converter's bit depth.
	hatResolution = 12

	// edgeDrain bounds each wait while draining stale edges.
	edgeDrain = time.Millisecond
	// sleepStep bounds each edge wait so Stop is noticed while asleep.
	sleepStep = 100 * time.Millisecond
)

// Board implements hal.Board on periph.io.
type Board struct {
	cfg config.BoardConfig

	power  gpio.PinIO
	alarm  gpio.PinIO
	button gpio.PinIO
	bus    i2c.BusCloser
	dev    i2c.Dev

	stop     chan struct{}
	stopOnce sync.Once

	mu         sync.Mutex
	handler    hal.WakeHandler
	interrupts bool
	edgeWake   bool
	armed      bool
	interval   time.Duration
	adcOn      bool
	done       bool
	result     uint16
}

var _ hal.Board = (*Board)(nil)

// Open initializes periph.io and claims the configured pins and bus.
func Open(cfg config.BoardConfig) (*Board, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize host: %w", err)
	}

	power, err := pin(cfg.PowerPin)
	if err != nil {
		return nil, err
	}
	alarm, err := pin(cfg.AlarmPin)
	if err != nil {
		return nil, err
	}
	button, err := pin(cfg.ButtonPin)
	if err != nil {
		return nil, err
	}

	if err := power.Out(gpio.Low); err != nil {
		return nil, fmt.Errorf("failed to configure power pin: %w", err)
	}
	if err := alarm.Out(gpio.Low); err != nil {
		return nil, fmt.Errorf("failed to configure alarm pin: %w", err)
	}
	if err := button.In(gpio.PullUp, gpio.NoEdge); err != nil {
		return nil, fmt.Errorf("failed to configure button pin: %w", err)
	}

	bus, err := i2creg.Open(cfg.I2CBus)
	if err != nil {
		return nil, fmt.Errorf("failed to open i2c bus %s: %w", cfg.I2CBus, err)
	}

	return &Board{
		cfg:    cfg,
		power:  power,
		alarm:  alarm,
		button: button,
		bus:    bus,
		dev:    i2c.Dev{Bus: bus, Addr: cfg.ADCAddress},
	}, nil
}

func pin(name string) (gpio.PinIO, error) {
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("gpio %s not found", name)
	}
	return p, nil
}

// Stop ends the current PowerDown, and every later one, without running a
// wake handler. Safe to call from any goroutine, more than once.
func (b *Board) Stop() {
	ch := b.stopped()
	b.stopOnce.Do(func() { close(ch) })
}

func (b *Board) stopped() chan struct{} {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stop == nil {
		b.stop = make(chan struct{})
	}
	return b.stop
}

// Close drives the outputs low and releases the bus.
func (b *Board) Close() error {
	if err := b.power.Out(gpio.Low); err != nil {
		log.Printf("Error releasing power pin: %v", err)
	}
	if err := b.alarm.Out(gpio.Low); err != nil {
		log.Printf("Error releasing alarm pin: %v", err)
	}
	return b.bus.Close()
}

// SetPower implements hal.Pins.
func (b *Board) SetPower(on bool) {
	if err := b.power.Out(gpio.Level(on)); err != nil {
		log.Printf("Failed to set power pin: %v", err)
	}
}

// SetAlarm implements hal.Pins.
func (b *Board) SetAlarm(on bool) {
	if err := b.alarm.Out(gpio.Level(on)); err != nil {
		log.Printf("Failed to set alarm pin: %v", err)
	}
}

// ButtonPressed implements hal.Pins.
func (b *Board) ButtonPressed() bool {
	return b.button.Read() == gpio.Low
}

// EnableADC implements hal.ADC.
func (b *Board) EnableADC(on bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.adcOn = on
	b.done = false
}

// StartConversion implements hal.ADC. The hat converts on request, so the
// transfer itself is the conversion. A failed transfer never completes.
func (b *Board) StartConversion(ch hal.Channel) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.done = false
	if !b.adcOn {
		return
	}

	read := make([]byte, 2)
	if err := b.dev.Tx([]byte{b.register(ch)}, read); err != nil {
		log.Printf("Failed to read %s from hat: %v", ch, err)
		return
	}
	b.result = decodeSample(read)
	b.done = true
}

// ConversionDone implements hal.ADC.
func (b *Board) ConversionDone() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.done
}

// ConversionResult implements hal.ADC.
func (b *Board) ConversionResult() uint16 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.done = false
	return b.result
}

func (b *Board) register(ch hal.Channel) byte {
	if ch == hal.ChannelCalibration {
		return hatRawRegister + b.cfg.CalibrationChannel
	}
	return hatRawRegister + b.cfg.MoistureChannel
}

// decodeSample converts the hat's little-endian 12-bit reading to the
// 10-bit range the comparison expects.
func decodeSample(raw []byte) uint16 {
	v := binary.LittleEndian.Uint16(raw)
	if v > 1<<hatResolution-1 {
		v = 1<<hatResolution - 1
	}
	return v >> (hatResolution - 10)
}

// Delay implements hal.Clock with a busy-wait.
func (b *Board) Delay(d time.Duration) {
	for start := time.Now(); time.Since(start) < d; {
	}
}

// ClearResetFlags implements hal.Watchdog. Linux has no reset flags to clear.
func (b *Board) ClearResetFlags() {}

// UnlockWatchdog implements hal.Watchdog.
func (b *Board) UnlockWatchdog() {}

// CommitWatchdog implements hal.Watchdog with a wait deadline.
func (b *Board) CommitWatchdog(interval time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.armed = true
	b.interval = interval
}

// DisarmWatchdog implements hal.Watchdog.
func (b *Board) DisarmWatchdog() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.armed = false
}

// DisableInterrupts implements hal.Interrupts.
func (b *Board) DisableInterrupts() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.interrupts = false
}

// EnableInterrupts implements hal.Interrupts.
func (b *Board) EnableInterrupts() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.interrupts = true
}

// EnableEdgeWake implements hal.Interrupts by enabling edge detection on the
// button.
func (b *Board) EnableEdgeWake() {
	if err := b.button.In(gpio.PullUp, gpio.BothEdges); err != nil {
		log.Printf("Failed to enable button edge detection: %v", err)
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.edgeWake = true
}

// ClearEdgeFlag implements hal.Interrupts by draining queued edges.
func (b *Board) ClearEdgeFlag() {
	for b.button.WaitForEdge(edgeDrain) {
	}
}

// SetWakeHandler implements hal.Interrupts.
func (b *Board) SetWakeHandler(h hal.WakeHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handler = h
}

// PowerDown implements hal.Sleeper by blocking on the button edge with the
// armed interval as timeout. It returns early, with no handler call, once
// Stop is called.
func (b *Board) PowerDown() {
	stop := b.stopped()

	b.mu.Lock()
	handler := b.handler
	edgeWake := b.edgeWake && b.interrupts
	timeout := time.Duration(-1)
	if b.armed && b.interrupts {
		timeout = b.interval
	}
	b.mu.Unlock()

	if handler == nil || (!edgeWake && timeout < 0) {
		log.Printf("No wake source armed, staying asleep")
		<-stop
		return
	}

	if !edgeWake {
		t := time.NewTimer(timeout)
		defer t.Stop()
		select {
		case <-t.C:
			handler.PeriodicWake()
		case <-stop:
		}
		return
	}

	var deadline time.Time
	if timeout >= 0 {
		deadline = time.Now().Add(timeout)
	}
	for {
		step := sleepStep
		if !deadline.IsZero() {
			left := time.Until(deadline)
			if left <= 0 {
				handler.PeriodicWake()
				return
			}
			step = min(step, left)
		}
		if b.button.WaitForEdge(step) {
			handler.EdgeWake()
			return
		}
		select {
		case <-stop:
			return
		default:
		}
	}
}
