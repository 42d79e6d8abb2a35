// Command storageserver runs a Storage Server: file bytes, sentence locks,
// undo, checkpoints, and replication fan-out to a partner (§4.2).
package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/marmos91/dfs/internal/logger"
	"github.com/marmos91/dfs/internal/metrics"
	"github.com/marmos91/dfs/pkg/config"
	"github.com/marmos91/dfs/pkg/server"
	"github.com/marmos91/dfs/pkg/storageserver"
	"github.com/marmos91/dfs/pkg/wire"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:           "storageserver",
	Short:         "Run a Storage Server",
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
	cfg, err := config.LoadStorageServerConfig(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := logger.Init(logger.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format, Output: cfg.Logging.Output}); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	engine, err := storageserver.New(storageserver.Config{
		StorageRoot:        cfg.StorageRoot,
		CheckpointRoot:     cfg.CheckpointRoot,
		MaxLocksPerFile:    cfg.MaxLocksPerFile,
		ReplicationTimeout: cfg.ReplicationTimeout,
		StreamWordDelay:    cfg.StreamWordDelay,
	})
	if err != nil {
		return fmt.Errorf("create engine: %w", err)
	}
	if err := engine.Scan(); err != nil {
		return fmt.Errorf("scan storage root: %w", err)
	}

	reg := prometheus.NewRegistry()
	var controlMetrics, clientMetrics server.Metrics
	if cfg.Metrics.Enabled {
		controlMetrics = metrics.NewConnMetrics(reg, "ss_control")
		clientMetrics = metrics.NewConnMetrics(reg, "ss_client")
		go func() {
			addr := fmt.Sprintf("%s:%d", cfg.BindAddress, cfg.Metrics.Port)
			if err := metrics.ServeHTTP(addr, reg); err != nil {
				logger.Warn("metrics server stopped", "error", err)
			}
		}()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	advertiseIP := cfg.AdvertiseIP
	if advertiseIP == "" {
		advertiseIP = cfg.BindAddress
	}

	if err := registerWithNameServer(cfg.NSAddress, advertiseIP, cfg.ControlPort, cfg.ClientPort); err != nil {
		logger.Warn("name server registration failed, continuing standalone", "error", err)
	}

	controlSrv := server.New(server.Config{BindAddress: cfg.BindAddress, Port: cfg.ControlPort, ShutdownTimeout: cfg.ShutdownTimeout}, "ss-control", controlMetrics)
	clientSrv := server.New(server.Config{BindAddress: cfg.BindAddress, Port: cfg.ClientPort, ShutdownTimeout: cfg.ShutdownTimeout}, "ss-client", clientMetrics)

	controlDone := make(chan error, 1)
	clientDone := make(chan error, 1)
	go func() { controlDone <- controlSrv.Serve(ctx, storageserver.ControlFactory{Engine: engine}) }()
	go func() { clientDone <- clientSrv.Serve(ctx, storageserver.ClientFactory{Engine: engine}) }()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("storage server running", "control_port", cfg.ControlPort, "client_port", cfg.ClientPort)

	select {
	case <-sigChan:
		signal.Stop(sigChan)
		logger.Info("shutdown signal received")
		cancel()
		if err := <-controlDone; err != nil {
			logger.Error("control server error", "error", err)
		}
		if err := <-clientDone; err != nil {
			logger.Error("client server error", "error", err)
		}
	case err := <-controlDone:
		cancel()
		if err != nil {
			logger.Error("control server error", "error", err)
		}
		if err := <-clientDone; err != nil {
			logger.Error("client server error", "error", err)
		}
	case err := <-clientDone:
		cancel()
		if err != nil {
			logger.Error("client server error", "error", err)
		}
		if err := <-controlDone; err != nil {
			logger.Error("control server error", "error", err)
		}
	}

	return nil
}

// registerWithNameServer sends REGISTER_SS with this SS's advertised
// endpoints, learning its ss_id for logging purposes (§4.1).
func registerWithNameServer(nsAddr, ip string, controlPort, clientPort int) error {
	conn, err := net.DialTimeout("tcp", nsAddr, 3*time.Second)
	if err != nil {
		return err
	}
	defer conn.Close()

	req := &wire.Record{
		Op:       wire.OpRegisterSS,
		Username: "NM",
		Data:     ip + ":" + strconv.Itoa(controlPort) + ":" + strconv.Itoa(clientPort),
	}
	if err := wire.WriteFrame(conn, req); err != nil {
		return err
	}
	resp, err := wire.ReadFrame(conn)
	if err != nil {
		return err
	}
	if err := resp.Err(); err != nil {
		return err
	}
	logger.Info("registered with name server", "ns_address", nsAddr, "ss_id", resp.Data)
	return nil
}
