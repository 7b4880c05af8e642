// Command ledgerd runs one node of the replicated ledger: it serves the
// HTTP transport, drives the periodic consensus tick loop and persists
// every index under a local data directory.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ledgrid/internal/observability/logging"
	"ledgrid/internal/observability/metrics"
	"ledgrid/node"
	"ledgrid/storage"
	"ledgrid/transport"
)

func main() {
	dataDir := flag.String("data-dir", "./data", "directory holding this node's persisted indices")
	flag.Parse()

	cfg := node.ParseArgs(flag.Args(), slog.Default())
	logger := logging.Setup(cfg.NodeName, "ledgerd")

	reg := metrics.New()

	store, err := storage.NewFileStore(*dataDir)
	if err != nil {
		logger.Error("open data directory failed", "error", err, "dir", *dataDir)
		os.Exit(1)
	}

	n, err := node.Open(store, cfg, reg, logger)
	if err != nil {
		logger.Error("open node failed", "error", err)
		os.Exit(1)
	}

	srv := &http.Server{
		Addr: fmt.Sprintf(":%d", cfg.Port),
		Handler: transport.NewServer(transport.Config{
			Handlers: n.Handlers(),
			Metrics:  reg,
			Logger:   logger,
		}),
	}

	stop := make(chan struct{})
	go n.Run(stop)

	go func() {
		logger.Info("listening", "address", cfg.Address())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed", "error", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	logger.Info("shutting down")

	close(stop)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
}
