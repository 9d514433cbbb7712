// Command urlcleaner cleans a list of social profile URLs, one per line,
// and writes one URLStat row per input line.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/user/urlcleaner/internal/adapter/httpprobe"
	"github.com/user/urlcleaner/internal/delivery/http/router"
	"github.com/user/urlcleaner/internal/entity"
	"github.com/user/urlcleaner/internal/normalizer"
	"github.com/user/urlcleaner/internal/usecase"
	"github.com/user/urlcleaner/pkg/config"
	"github.com/user/urlcleaner/pkg/logger"
	"github.com/user/urlcleaner/pkg/metrics"
)

const (
	exitOK        = 0
	exitFatal     = 1
	exitCancelled = 130
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	// --- Configuration ---
	fs := pflag.NewFlagSet("urlcleaner", pflag.ContinueOnError)
	config.RegisterFlags(fs)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: urlcleaner [flags] [infile|-] [outfile|-]")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return exitOK
		}
		return exitFatal
	}
	if fs.NArg() > 2 {
		fs.Usage()
		return exitFatal
	}

	cfg, err := config.Load(viper.New(), fs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		return exitFatal
	}

	// --- Logger ---
	// stdout may carry the TSV output, so logs go to stderr.
	log, err := logger.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		return exitFatal
	}
	defer func() { _ = log.Sync() }()

	// --- Metrics ---
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	normalize, err := normalizer.Lookup(cfg.Normalizer, normalizer.Options{ResolveShortLinks: cfg.ResolveShortLinks})
	if err != nil {
		log.Error("Invalid normalizer", zap.Error(err))
		return exitFatal
	}

	// --- Backends ---
	ctx := context.Background()
	runID := uuid.NewString()
	b := newBackends(cfg, log)
	defer b.Close()

	intake, err := b.intake(ctx, fs.Arg(0))
	if err != nil {
		log.Error("Unable to open intake", zap.String("intake", cfg.Intake), zap.Error(err))
		return exitFatal
	}
	sink, err := b.sink(ctx, fs.Arg(1), runID)
	if err != nil {
		log.Error("Unable to open sink", zap.String("sink", cfg.Sink), zap.Error(err))
		return exitFatal
	}

	// --- Engine ---
	prober, err := httpprobe.New(httpprobe.Config{
		Timeout:        cfg.Timeout,
		MaxConnections: cfg.MaxConnections,
		MaxRedirects:   cfg.MaxRedirects,
		UserAgents:     []string{cfg.UserAgent},
		Proxies:        cfg.Proxies,
	}, log)
	if err != nil {
		log.Error("Invalid prober settings", zap.Error(err))
		return exitFatal
	}
	workQ, resultQ := cfg.QueueSizes()
	cleaner, err := usecase.NewCleaner(usecase.Options{
		RunID:           runID,
		Workers:         cfg.Workers,
		WorkQueueSize:   workQ,
		ResultQueueSize: resultQ,
		MaxTries:        cfg.MaxTries,
		RetryDelay:      cfg.RetryDelay,
		RetryMaxDelay:   cfg.RetryMaxDelay,
	}, normalize, prober, sink, m, log)
	if err != nil {
		_ = prober.Close()
		log.Error("Unable to create cleaner", zap.Error(err))
		return exitFatal
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	var (
		summary *entity.Summary
		runErr  error
	)
	done := make(chan struct{})
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(done)
		summary, runErr = cleaner.Run(gctx, intake)
		return nil
	})
	if cfg.MetricsAddr != "" {
		srv := &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           router.NewMetrics(reg),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			log.Info("Serving metrics", zap.String("addr", cfg.MetricsAddr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			select {
			case <-done:
			case <-gctx.Done():
			}
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	select {
	case <-done:
	case sig := <-sigCh:
		log.Warn("Signal received, cancelling run", zap.String("signal", sig.String()), zap.String("run_id", runID))
		cleaner.Cancel()
		select {
		case <-done:
		case <-time.After(cfg.ShutdownTimeout):
			work, results := cleaner.Pending()
			log.Error("Run did not stop in time",
				zap.Duration("timeout", cfg.ShutdownTimeout),
				zap.Int64("pending_work", work),
				zap.Int64("pending_results", results))
			return exitCancelled
		}
	}

	if err := g.Wait(); err != nil {
		log.Error("Run aborted", zap.Error(err))
		return exitFatal
	}

	logSummary(log, summary)
	b.reportCounts(ctx)

	switch {
	case errors.Is(runErr, usecase.ErrRunCancelled):
		log.Warn("Run cancelled", zap.Error(runErr))
		return exitCancelled
	case runErr != nil:
		log.Error("Run failed", zap.Error(runErr))
		return exitFatal
	}
	return exitOK
}

func logSummary(log *zap.Logger, s *entity.Summary) {
	if s == nil {
		return
	}
	fields := []zap.Field{
		zap.String("run_id", s.RunID),
		zap.String("state", s.State),
		zap.Int64("fed", s.Fed),
		zap.Int64("emitted", s.Emitted),
		zap.Int64("sink_errors", s.SinkErrors),
		zap.Duration("duration", s.Duration()),
	}
	for _, status := range entity.Statuses {
		if n := s.Statuses[status]; n > 0 {
			fields = append(fields, zap.Int64(string(status), n))
		}
	}
	log.Info("Run summary", fields...)
}
