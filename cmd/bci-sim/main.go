// Command bci-sim serves synthetic valence/arousal samples on a websocket,
// standing in for the live classifier during rig rehearsals.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/markerrig/internal/simulator"
	"github.com/okian/markerrig/pkg/logger"
)

// Default configuration constants.
const (
	defaultAddr       = "127.0.0.1:8765"
	defaultInterval   = 200 * time.Millisecond
	defaultStep       = 0.05
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 5 * time.Second
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		addr     = flag.String("addr", defaultAddr, "Listen address; samples are served on "+simulator.Path)
		interval = flag.Duration("interval", defaultInterval, "Time between samples")
		seed     = flag.Uint64("seed", uint64(time.Now().UnixNano()), "Random walk seed")
		step     = flag.Float64("step", defaultStep, "Largest per-sample move on each axis")
		version  = flag.String("version", "sim", "Model version stamped on samples")
		level    = flag.String("log-level", "info", "Log level: debug, info, warn, error")
	)
	flag.Parse()

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return 1
	}
	defer func() { _ = logger.Sync() }()
	if err := logger.SetLevelString(*level); err != nil {
		os.Stderr.WriteString("invalid log level: " + err.Error() + "\n")
		return 1
	}
	log := logger.Get().Named("bci-sim")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sim := simulator.NewServer(simulator.WithLogger(log))
	gen := simulator.NewGenerator(*seed, simulator.WithStep(*step), simulator.WithVersion(*version))

	srv := &http.Server{
		Addr:              *addr,
		Handler:           sim.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info(ctx, "serving samples",
			logger.String("addr", *addr),
			logger.String("path", simulator.Path),
			logger.Duration("interval", *interval),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	go sim.Run(ctx, gen, *interval)

	code := 0
	select {
	case <-ctx.Done():
	case err, ok := <-errc:
		if ok {
			log.Error(ctx, "listen failed", logger.Error(err))
			code = 1
		}
	}
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn(ctx, "shutdown failed", logger.Error(err))
	}
	return code
}
