package resultboard

import (
	"errors"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/prometheus/client_golang/prometheus"
)

// storeConfig holds mutable state during Store construction.
type storeConfig struct {
	logger      *slog.Logger
	clock       func() time.Time
	registerer  prometheus.Registerer
	newID       func() string
	subscribers []func(State)
}

// Option configures a [Store] during construction.
//
// Options return an error if validation fails.
//
// Built-in options: [WithLogger], [WithClock], [WithRegisterer],
// [WithIDGenerator], [WithSubscriber].
type Option func(*storeConfig) error

// WithLogger sets a custom [slog.Logger] for the store.
//
// If not specified, [slog.Default] is used.
//
// Returns an error if the logger is nil.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *storeConfig) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		cfg.logger = logger
		return nil
	}
}

// WithClock overrides the time source used for default item timestamps and
// error timestamps. Mostly useful in tests.
func WithClock(now func() time.Time) Option {
	return func(cfg *storeConfig) error {
		if now == nil {
			return errors.New("clock cannot be nil")
		}
		cfg.clock = now
		return nil
	}
}

// WithRegisterer registers the store's Prometheus collectors on reg.
//
// Collector names are fixed, so a registry can hold only one store.
// Without this option the collectors are created but never exported.
//
// Example:
//
//	reg := prometheus.NewRegistry()
//	store, err := resultboard.New(resultboard.WithRegisterer(reg))
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(cfg *storeConfig) error {
		if reg == nil {
			return errors.New("registerer cannot be nil")
		}
		cfg.registerer = reg
		return nil
	}
}

// WithIDGenerator sets the function that names items delivered without an id.
// Defaults to ULIDs, which sort by creation time.
func WithIDGenerator(fn func() string) Option {
	return func(cfg *storeConfig) error {
		if fn == nil {
			return errors.New("id generator cannot be nil")
		}
		cfg.newID = fn
		return nil
	}
}

// WithSubscriber registers a state subscriber at construction time.
// It behaves like [Store.Subscribe] but cannot be unsubscribed.
//
// Nil subscribers are silently ignored.
func WithSubscriber(fn func(State)) Option {
	return func(cfg *storeConfig) error {
		if fn == nil {
			return nil
		}
		cfg.subscribers = append(cfg.subscribers, fn)
		return nil
	}
}

func newULID() string {
	return ulid.Make().String()
}
