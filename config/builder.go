package config

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/jpalmerr/resultboard"
	"github.com/jpalmerr/resultboard/internal/bus"
)

// BuildLogger creates the slog logger described by cfg.Log, writing to w.
func BuildLogger(cfg *Config, w io.Writer) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Log.Level)); err != nil {
		return nil, fmt.Errorf("log.level: %w", err)
	}
	opts := &slog.HandlerOptions{Level: level}

	switch cfg.Log.Format {
	case "", "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	case "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("log.format must be json or text, got %q", cfg.Log.Format)
	}
}

// BuildRegistry returns a fresh Prometheus registry with the Go and process
// collectors, or nil when metrics are disabled.
func BuildRegistry(cfg *Config) *prometheus.Registry {
	if !cfg.Metrics.Enabled {
		return nil
	}
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// BuildStoreOptions converts cfg into options for [resultboard.New].
// reg may be nil; the store then keeps its metrics unexported.
func BuildStoreOptions(cfg *Config, logger *slog.Logger, reg prometheus.Registerer) []resultboard.Option {
	var opts []resultboard.Option
	if logger != nil {
		opts = append(opts, resultboard.WithLogger(logger))
	}
	if cfg.Metrics.Enabled && reg != nil {
		opts = append(opts, resultboard.WithRegisterer(reg))
	}
	return opts
}

// BuildBus opens the message bus selected by cfg.Bus. It returns nil and no
// error for the none driver.
func BuildBus(cfg *Config) (bus.MessageBus, error) {
	switch cfg.Bus.Driver {
	case "", DriverNone:
		return nil, nil
	case DriverMemory:
		return bus.NewMemoryBus(), nil
	case DriverNATS:
		b, err := bus.NewNATSBus(busConfig(cfg))
		if err != nil {
			return nil, err
		}
		return b, nil
	default:
		return nil, fmt.Errorf("bus.driver must be memory, nats, or none, got %q", cfg.Bus.Driver)
	}
}

func busConfig(cfg *Config) bus.Config {
	bc := bus.DefaultConfig()
	bc.URL = cfg.Bus.URL
	bc.Name = cfg.Bus.Name
	if cfg.Bus.Timeout != 0 {
		bc.Timeout = cfg.Bus.Timeout.Duration()
	}
	return bc
}

// RequestTimeout is the bus request timeout to use for cfg.
func RequestTimeout(cfg *Config) time.Duration {
	return busConfig(cfg).Timeout
}
