package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/jpalmerr/resultboard"
	"github.com/jpalmerr/resultboard/config"
	"github.com/jpalmerr/resultboard/dashboard"
	"github.com/jpalmerr/resultboard/internal/bridge"
	"github.com/jpalmerr/resultboard/internal/feed"
	"github.com/jpalmerr/resultboard/internal/server"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the result store, API and dashboard",
		Long: `Start the result store with its HTTP API and dashboard.

The server will:
  - Load configuration from the YAML file, if one is given
  - Listen for result envelopes on the configured bus subject
  - Serve the API, SSE stream, metrics and dashboard on the configured port

Without a bus section results arrive over HTTP only. Use the nats driver
to receive envelopes from other processes; the memory driver only carries
messages published inside this process, so it is meant for embedding the
packages as example/ does.

The server runs until interrupted (Ctrl+C) or receives SIGTERM.

Example:
  resultboard serve
  resultboard serve -c /etc/resultboard/config.yaml --port 9090`,
		RunE: runServe,
	}

	cmd.Flags().StringP("config", "c", "", "path to config file")
	cmd.Flags().IntP("port", "p", 0, "override the configured port")
	return cmd
}

// loadConfig reads the --config flag, falling back to defaults.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		return config.Default(), nil
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if port, _ := cmd.Flags().GetInt("port"); port != 0 {
		cfg.Port = port
	}

	logger, err := config.BuildLogger(cfg, os.Stderr)
	if err != nil {
		return err
	}

	var (
		registerer prometheus.Registerer
		gatherer   prometheus.Gatherer
	)
	if reg := config.BuildRegistry(cfg); reg != nil {
		registerer, gatherer = reg, reg
	}

	store, err := resultboard.New(config.BuildStoreOptions(cfg, logger, registerer)...)
	if err != nil {
		return fmt.Errorf("failed to create store: %w", err)
	}
	views := feed.NewMemoryFeed(store)
	defer views.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := server.NewServer(store, views, server.Config{
		Port:     cfg.Port,
		Assets:   dashboard.Assets,
		Title:    cfg.Title,
		Gatherer: gatherer,
	}, logger)
	if err := srv.Start(ctx); err != nil {
		return err
	}

	mb, err := config.BuildBus(cfg)
	if err != nil {
		return fmt.Errorf("failed to open bus: %w", err)
	}
	bridgeDone := make(chan error, 1)
	if mb == nil {
		logger.Info("bus disabled, accepting results over HTTP only")
		close(bridgeDone)
	} else {
		defer func() {
			if err := mb.Close(); err != nil {
				logger.Warn("bus close failed", "error", err)
			}
		}()
		br := bridge.NewBridge(store, mb, cfg.Bus.Subject, logger, registerer)
		go func() {
			bridgeDone <- br.Run(ctx)
		}()
	}

	logger.Info("resultboard started",
		"port", cfg.Port,
		"bus_driver", cfg.Bus.Driver,
		"bus_subject", cfg.Bus.Subject,
		"metrics", cfg.Metrics.Enabled,
	)

	select {
	case err, ok := <-bridgeDone:
		if ok && err != nil {
			return fmt.Errorf("bridge error: %w", err)
		}
		// bus disabled, or the bridge already stopped
		<-ctx.Done()
	case <-ctx.Done():
		// signal received, wait for the bridge with a timeout
		select {
		case err := <-bridgeDone:
			if err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("bridge error: %w", err)
			}
		case <-time.After(shutdownTimeout):
			logger.Warn("shutdown timed out",
				"timeout", shutdownTimeout.String(),
				"action", "forcing exit",
			)
		}
	}
	select {
	case <-srv.Done():
	case <-time.After(shutdownTimeout):
		logger.Warn("http shutdown timed out", "timeout", shutdownTimeout.String())
	}
	logger.Info("shutdown complete")
	return nil
}
