// Command example runs the store, bus bridge, API and dashboard in one
// process and feeds them from a mock analysis backend.
//
// Usage:
//
//	go run ./example
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/oklog/ulid/v2"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/jpalmerr/resultboard"
	"github.com/jpalmerr/resultboard/dashboard"
	"github.com/jpalmerr/resultboard/internal/bridge"
	"github.com/jpalmerr/resultboard/internal/bus"
	"github.com/jpalmerr/resultboard/internal/feed"
	"github.com/jpalmerr/resultboard/internal/server"
)

const subject = "resultboard.demo"

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	reg := prometheus.NewRegistry()
	store, err := resultboard.New(
		resultboard.WithLogger(logger),
		resultboard.WithRegisterer(reg),
	)
	if err != nil {
		slog.Error("failed to create store", "error", err)
		os.Exit(1)
	}

	store.On(resultboard.EventAnalysisStarted, func(ev resultboard.Event) {
		if p, ok := ev.Payload.(resultboard.AnalysisStarted); ok {
			slog.Info("dashboard waiting for results", "request_id", p.RequestID)
		}
	})

	views := feed.NewMemoryFeed(store)
	defer views.Close()

	mb := bus.NewMemoryBus()
	defer mb.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if _, err := bridge.NewBridge(store, mb, subject, logger, reg).Start(ctx); err != nil {
		slog.Error("failed to start bridge", "error", err)
		os.Exit(1)
	}

	srv := server.NewServer(store, views, server.Config{
		Port:     8080,
		Assets:   dashboard.Assets,
		Title:    "Demo Analysis",
		Gatherer: reg,
	}, logger)
	if err := srv.Start(ctx); err != nil {
		slog.Error("failed to start server", "error", err)
		os.Exit(1)
	}

	sessionID := "chat-" + ulid.Make().String()
	go RunMockProducer(ctx, mb, subject, sessionID)

	fmt.Println()
	fmt.Println("  resultboard demo")
	fmt.Println()
	fmt.Println("  Dashboard: http://localhost:8080")
	fmt.Println("  State:     http://localhost:8080/api/state")
	fmt.Println("  Metrics:   http://localhost:8080/metrics")
	fmt.Println()
	fmt.Printf("  Session %s receives a new analysis every 8-15s.\n", sessionID)
	fmt.Println("  Press Ctrl+C to stop")
	fmt.Println()

	<-srv.Done()
}
