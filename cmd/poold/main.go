package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"coverpool/config"
	"coverpool/observability/logging"
)

func main() {
	configFile := flag.String("config", "./pool.toml", "Path to the configuration file")
	listenFlag := flag.String("listen", "", "HTTP listen address (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if addr := strings.TrimSpace(*listenFlag); addr != "" {
		cfg.HTTPListen = addr
	}

	logger := logging.Setup(cfg.Service, cfg.Env, logging.Rotation{
		Path:       cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
		MaxAgeDays: cfg.LogMaxAgeDays,
	})

	node, err := wire(cfg, logger)
	if err != nil {
		logger.Error("failed to wire pool engines", "error", err)
		os.Exit(1)
	}

	server := &http.Server{
		Addr:              cfg.HTTPListen,
		Handler:           node.router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go node.collectMetrics(ctx, 15*time.Second)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("pool daemon listening", "addr", cfg.HTTPListen)
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown failed", "error", err)
		}
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", "error", err)
			os.Exit(1)
		}
	}
}
