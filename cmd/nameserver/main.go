// Command nameserver runs the Name Server: namespace ownership, ACL,
// SS/client membership, request routing, and persistence (§4.1).
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/marmos91/dfs/internal/logger"
	"github.com/marmos91/dfs/internal/metrics"
	"github.com/marmos91/dfs/pkg/config"
	"github.com/marmos91/dfs/pkg/metadata"
	"github.com/marmos91/dfs/pkg/nameserver"
	"github.com/marmos91/dfs/pkg/server"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:           "nameserver",
	Short:         "Run the Name Server",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func init() {
	rootCmd.Flags().StringVar(&cfgFile, "config", "", "config file path (default: built-in defaults)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadNameServerConfig(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := logger.Init(logger.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format, Output: cfg.Logging.Output}); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	store, err := metadata.Load(cfg.SnapshotPath, metadata.Config{
		MaxACLEntries: cfg.MaxACLEntries,
		CacheCapacity: cfg.CacheCapacity,
		CacheTTL:      cfg.CacheTTL,
	})
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}

	reg := prometheus.NewRegistry()
	var opMetrics nameserver.OpMetrics
	var connMetrics server.Metrics
	if cfg.Metrics.Enabled {
		opMetrics = metrics.NewOpMetrics(reg, "nameserver")
		connMetrics = metrics.NewConnMetrics(reg, "ns")
		go func() {
			addr := fmt.Sprintf("%s:%d", cfg.BindAddress, cfg.Metrics.Port)
			if err := metrics.ServeHTTP(addr, reg); err != nil {
				logger.Warn("metrics server stopped", "error", err)
			}
		}()
	}

	ns := nameserver.New(nameserver.Config{
		SnapshotPath:      cfg.SnapshotPath,
		HeartbeatInterval: cfg.HeartbeatInterval,
		ProbeTimeout:      cfg.ProbeTimeout,
		MaxACLEntries:     cfg.MaxACLEntries,
		CacheCapacity:     cfg.CacheCapacity,
		CacheTTL:          cfg.CacheTTL,
	}, store, opMetrics)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go ns.RunHeartbeat(ctx)

	srv := server.New(server.Config{
		BindAddress:     cfg.BindAddress,
		Port:            cfg.Port,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, "ns", connMetrics)

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- srv.Serve(ctx, nameserver.Factory{NS: ns})
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("name server running", "address", fmt.Sprintf("%s:%d", cfg.BindAddress, cfg.Port))

	select {
	case <-sigChan:
		signal.Stop(sigChan)
		logger.Info("shutdown signal received")
		cancel()
		if err := <-serverDone; err != nil {
			logger.Error("server shutdown error", "error", err)
		}
	case err := <-serverDone:
		if err != nil {
			logger.Error("server error", "error", err)
			return err
		}
	}

	if err := store.Save(cfg.SnapshotPath); err != nil {
		logger.Error("final snapshot save failed", "error", err)
	}
	return nil
}
