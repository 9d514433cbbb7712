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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/user/urlcleaner/internal/adapter/httpprobe"
	"github.com/user/urlcleaner/internal/delivery/http/handler"
	"github.com/user/urlcleaner/internal/delivery/http/router"
	"github.com/user/urlcleaner/internal/normalizer"
	"github.com/user/urlcleaner/internal/repository"
	"github.com/user/urlcleaner/internal/usecase"
	"github.com/user/urlcleaner/pkg/config"
	"github.com/user/urlcleaner/pkg/logger"
	"github.com/user/urlcleaner/pkg/metrics"
)

// requestTimeout bounds one /api/clean call, probes included.
const requestTimeout = 2 * time.Minute

func main() {
	// --- Configuration ---
	fs := pflag.NewFlagSet("urlcleaner-api", pflag.ExitOnError)
	config.RegisterFlags(fs)
	_ = fs.Parse(os.Args[1:])

	cfg, err := config.Load(viper.New(), fs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	// --- Logger ---
	log, err := logger.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()
	log.Info("Logger initialized", zap.String("level", cfg.LogLevel))

	// --- Metrics ---
	m := metrics.New(prometheus.DefaultRegisterer)
	log.Info("Metrics initialized")

	// --- Use Cases ---
	newProber := func() (repository.ProberRepository, error) {
		return httpprobe.New(httpprobe.Config{
			Timeout:        cfg.Timeout,
			MaxConnections: cfg.MaxConnections,
			MaxRedirects:   cfg.MaxRedirects,
			UserAgents:     []string{cfg.UserAgent},
			Proxies:        cfg.Proxies,
		}, log)
	}
	workQ, resultQ := cfg.QueueSizes()
	batch := usecase.NewBatchCleaner(newProber, usecase.Options{
		Workers:         cfg.Workers,
		WorkQueueSize:   workQ,
		ResultQueueSize: resultQ,
		MaxTries:        cfg.MaxTries,
		RetryDelay:      cfg.RetryDelay,
		RetryMaxDelay:   cfg.RetryMaxDelay,
	}, normalizer.Options{ResolveShortLinks: cfg.ResolveShortLinks}, cfg.APIMaxBatch, m, log)

	// --- HTTP Server ---
	apiHandler := handler.NewHandler(batch, cfg.Normalizer, normalizer.Options{ResolveShortLinks: cfg.ResolveShortLinks}, log)
	httpRouter := router.New(apiHandler, m, prometheus.DefaultGatherer, log, requestTimeout)

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      httpRouter,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: requestTimeout + 10*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		log.Info("Starting server", zap.String("port", cfg.ServerPort))
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Could not listen on port", zap.String("port", cfg.ServerPort), zap.Error(err))
			os.Exit(1)
		}
	case <-ctx.Done():
		log.Info("Shutting down server", zap.Duration("timeout", cfg.ShutdownTimeout))
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("Graceful shutdown failed", zap.Error(err))
			os.Exit(1)
		}
	}
}
