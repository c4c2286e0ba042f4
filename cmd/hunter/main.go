// Command hunter is the marketplace polling worker. It ticks the
// scheduler, serves the health endpoint, and shuts down cleanly on
// SIGINT/SIGTERM.
package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/riguy5000/bravo-ebay-hunter-sub000/internal/config"
	"github.com/riguy5000/bravo-ebay-hunter-sub000/internal/ebay"
	"github.com/riguy5000/bravo-ebay-hunter-sub000/internal/health"
	"github.com/riguy5000/bravo-ebay-hunter-sub000/internal/metals"
	"github.com/riguy5000/bravo-ebay-hunter-sub000/internal/model"
	"github.com/riguy5000/bravo-ebay-hunter-sub000/internal/notify"
	"github.com/riguy5000/bravo-ebay-hunter-sub000/internal/processor"
	"github.com/riguy5000/bravo-ebay-hunter-sub000/internal/scheduler"
	"github.com/riguy5000/bravo-ebay-hunter-sub000/internal/store"
)

// shutdownGrace bounds how long in-flight work may run after a signal.
const shutdownGrace = 2 * time.Second

func configureLogger(logLevel string, useDev bool) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(strings.TrimSpace(logLevel)) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	opts := &slog.HandlerOptions{Level: level}
	if useDev {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}

func main() {
	once := flag.Bool("once", false, "run a single scheduler tick and exit")
	dev := flag.Bool("dev", false, "human-readable logs instead of JSON")
	flag.Parse()

	cfg, err := config.FromEnv()
	if err != nil {
		slog.Error("configuration invalid", "error", err)
		os.Exit(1)
	}
	log := configureLogger(cfg.LogLevel, *dev)

	dsn, err := cfg.DatabaseDSN()
	if err != nil {
		log.Error("resolve database dsn", "error", err)
		os.Exit(1)
	}
	st, err := store.OpenPostgres(dsn)
	if err != nil {
		log.Error("open backing store", "error", err)
		os.Exit(1)
	}
	defer st.Close()
	if err := st.EnsureSchema(context.Background()); err != nil {
		log.Error("ensure schema", "error", err)
		os.Exit(1)
	}

	pool, err := ebay.NewPool(context.Background(), st, log)
	if err != nil {
		log.Error("load credentials", "error", err)
		os.Exit(1)
	}
	client := ebay.NewClient(ebay.ClientConfig{
		Pool:       pool,
		Store:      st,
		DailyLimit: cfg.EbayDailyLimit,
		Log:        log,
	})
	notifier := notify.New(&http.Client{Timeout: 10 * time.Second}, cfg.SlackWebhookURL, log)
	proc := processor.New(st, client, metals.New(st, log), notifier, log)

	sched := scheduler.New(st, scheduler.TaskRunnerFunc(
		func(ctx context.Context, task *model.Task) error {
			_, err := proc.Run(ctx, task)
			return err
		},
	), scheduler.Options{
		Interval:      cfg.MainLoopInterval.Duration,
		MaxConcurrent: cfg.MaxConcurrentTasks,
		Stagger:       cfg.StaggerDelay.Duration,
	}, log)

	if *once {
		sched.Tick(context.Background())
		if _, status := sched.Status(); strings.HasPrefix(status, "error") {
			log.Error("tick failed", "status", status)
			os.Exit(1)
		}
		return
	}

	healthSrv := health.NewServer(cfg.HealthPort, sched, client.Governor(), pool, log)
	go func() {
		if err := healthSrv.Start(); err != nil {
			log.Error("health server", "error", err)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	schedDone := make(chan struct{})
	go func() {
		defer close(schedDone)
		if err := sched.Run(ctx); err != nil {
			log.Error("scheduler", "error", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Info("received signal, shutting down", "signal", sig)

	cancel()
	graceCtx, graceCancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer graceCancel()
	if err := healthSrv.Shutdown(graceCtx); err != nil {
		log.Warn("health shutdown", "error", err)
	}
	select {
	case <-schedDone:
	case <-graceCtx.Done():
		log.Warn("shutdown grace expired with work in flight")
	}
	log.Info("worker stopped")
}
