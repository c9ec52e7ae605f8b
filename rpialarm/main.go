package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/itohio/soilalarm/pkg/config"
	"github.com/itohio/soilalarm/pkg/metrics"
	"github.com/itohio/soilalarm/pkg/monitor"
	"github.com/itohio/soilalarm/pkg/rpi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	var (
		configFlag  = flag.String("config", "config.yaml", "Configuration file path")
		buttonFlag  = flag.String("button", "", "Button GPIO override (e.g., GPIO25)")
		metricsFlag = flag.String("metrics", "", "Serve Prometheus metrics on this address (e.g., :9100)")
	)
	flag.Parse()

	cfg, err := config.Load(*configFlag)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *buttonFlag != "" {
		cfg.Board.ButtonPin = *buttonFlag
	}

	board, err := rpi.Open(cfg.Board)
	if err != nil {
		log.Fatalf("Failed to open board: %v", err)
	}
	defer func() {
		if err := board.Close(); err != nil {
			log.Printf("Error closing board: %v", err)
		}
	}()

	opts := []monitor.Option{monitor.WithLogger(log.Default())}
	if *metricsFlag != "" {
		reg := prometheus.NewRegistry()
		opts = append(opts, monitor.WithObserver(metrics.New(reg)))

		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		go func() {
			if err := http.ListenAndServe(*metricsFlag, mux); err != nil {
				log.Printf("Metrics server stopped: %v", err)
			}
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		board.Stop()
	}()

	log.Printf("Watching soil on %s (button %s), waking every %v",
		cfg.Board.PowerPin, cfg.Board.ButtonPin, cfg.Timing.WakeInterval)

	if err := monitor.New(board, cfg.Timing, opts...).Run(ctx); err != nil && err != context.Canceled {
		log.Printf("Monitor stopped: %v", err)
	}
}
