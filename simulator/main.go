package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"github.com/itohio/soilalarm/pkg/config"
	"github.com/itohio/soilalarm/pkg/hal"
	"github.com/itohio/soilalarm/pkg/monitor"
	"github.com/itohio/soilalarm/pkg/sim"
	"github.com/itohio/soilalarm/pkg/soil"
)

func main() {
	var (
		configFlag  = flag.String("config", "config.yaml", "Configuration file path")
		wakesFlag   = flag.Int("wakes", 0, "Number of wakes to simulate (overrides config)")
		verboseFlag = flag.Bool("v", false, "Log every cycle")
		traceFlag   = flag.Bool("trace", false, "Print the full hardware trace (short runs only)")
	)
	flag.Parse()

	cfg, err := config.Load(*configFlag)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *wakesFlag > 0 {
		cfg.Simulation.Wakes = *wakesFlag
	}

	model := soil.New(cfg.Simulation.Soil)
	calibration := cfg.Simulation.Calibration
	source := func(ch hal.Channel, at time.Duration) uint16 {
		if ch == hal.ChannelCalibration {
			return calibration
		}
		return model.Sample(at)
	}

	board := sim.NewBoard(source, wakeScript(cfg)...)
	board.SetTracing(*traceFlag)
	board.SetConversionSteps(cfg.Simulation.ConversionSteps)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	board.OnHalt(cancel)

	sum := &summary{board: board, verbose: *verboseFlag}
	m := monitor.New(board, cfg.Timing,
		monitor.WithLogger(log.New(os.Stderr, "monitor: ", log.LstdFlags)),
		monitor.WithObserver(sum),
	)

	log.Printf("Simulating %d wakes every %v, calibration %d (threshold %d)",
		cfg.Simulation.Wakes, cfg.Timing.WakeInterval, calibration, calibration/2)

	if err := m.Run(ctx); err != nil && err != context.Canceled {
		log.Fatalf("Simulation failed: %v", err)
	}

	if *traceFlag {
		for _, e := range board.Events() {
			log.Println(e)
		}
	}

	sum.print()
	if v := board.Violations(); len(v) > 0 {
		for _, msg := range v {
			log.Printf("Violation: %s", msg)
		}
		os.Exit(1)
	}
}

// wakeScript alternates periodic wakes with a button press every
// ManualEvery wakes.
func wakeScript(cfg *config.Config) []sim.Wake {
	wakes := make([]sim.Wake, 0, cfg.Simulation.Wakes)
	for i := 1; i <= cfg.Simulation.Wakes; i++ {
		if cfg.Simulation.ManualEvery > 0 && i%cfg.Simulation.ManualEvery == 0 {
			wakes = append(wakes, sim.Wake{
				Cause:     sim.WakeEdge,
				HeldReads: cfg.Simulation.HoldReads,
				After:     cfg.Timing.WakeInterval / 2,
			})
			continue
		}
		wakes = append(wakes, sim.Wake{Cause: sim.WakePeriodic})
	}
	return wakes
}

type summary struct {
	board   *sim.Board
	verbose bool

	cycles        int
	confirmations int
	alarms        int
	errors        int
	firstAlarm    time.Duration
	alarming      bool
}

func (s *summary) CycleCompleted(r monitor.Report) {
	s.cycles++
	if r.Confirmed {
		s.confirmations++
	}
	s.alarms += r.Alarms
	s.errors += r.Errors
	if r.Alarms > 0 && !s.alarming {
		s.alarming = true
		s.firstAlarm = s.board.Elapsed()
	}

	if s.verbose {
		log.Printf("t=%v moisture=%d calibration=%d passes=%d alarms=%d confirmed=%t",
			s.board.Elapsed().Round(time.Second), r.Moisture, r.Calibration, r.Passes, r.Alarms, r.Confirmed)
	}
}

func (s *summary) print() {
	log.Printf("Simulated %v: %d cycles, %d confirmation beeps, %d dry alarms, %d read errors, %d spurious wakes",
		s.board.Elapsed().Round(time.Second), s.cycles, s.confirmations, s.alarms, s.errors, s.board.SpuriousWakes())
	if s.alarming {
		log.Printf("Soil first reported dry after %v", s.firstAlarm.Round(time.Second))
	}
}
