// Package bridge applies envelopes received from a message bus to a
// resultboard Store.
package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/jpalmerr/resultboard"
	"github.com/jpalmerr/resultboard/internal/bus"
)

// Bridge subscribes to one subject and forwards every envelope to a Store.
// Restore envelopes sent as requests are answered with the RestoreStats.
type Bridge struct {
	store    *resultboard.Store
	bus      bus.MessageBus
	subject  string
	logger   *slog.Logger
	messages *prometheus.CounterVec
}

// NewBridge creates a bridge. reg may be nil to skip metric registration.
func NewBridge(store *resultboard.Store, b bus.MessageBus, subject string, logger *slog.Logger, reg prometheus.Registerer) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bridge{
		store:   store,
		bus:     b,
		subject: subject,
		logger:  logger.With("component", "bridge", "subject", subject),
		messages: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: "resultboard",
			Name:      "bridge_messages_total",
			Help:      "Envelopes received from the bus, by kind and outcome.",
		}, []string{"kind", "outcome"}),
	}
}

// Start subscribes to the bridge subject. Envelopes are applied until
// the returned subscription is cancelled or ctx is done.
func (b *Bridge) Start(ctx context.Context) (bus.Subscription, error) {
	sub, err := b.bus.Subscribe(ctx, b.subject, b.handle)
	if err != nil {
		return nil, fmt.Errorf("bridge subscribe: %w", err)
	}
	b.logger.Info("bridge listening")
	return sub, nil
}

// Run subscribes and blocks until ctx is cancelled.
func (b *Bridge) Run(ctx context.Context) error {
	sub, err := b.Start(ctx)
	if err != nil {
		return err
	}

	<-ctx.Done()
	if err := sub.Unsubscribe(); err != nil {
		b.logger.Warn("bridge unsubscribe failed", "error", err)
	}
	b.logger.Info("bridge stopped")
	return nil
}

// replyError is sent back to requesters whose envelope could not be applied.
type replyError struct {
	Error string `json:"error"`
}

func (b *Bridge) handle(msg *bus.Message) []byte {
	env, err := Decode(msg.Data)
	if err != nil {
		b.messages.WithLabelValues("unknown", "malformed").Inc()
		b.logger.Warn("dropping malformed envelope", "error", err, "size", len(msg.Data))
		return b.reply(msg, replyError{Error: err.Error()})
	}

	stats, err := Apply(b.store, env)
	if err != nil {
		b.messages.WithLabelValues(string(env.Type), "malformed").Inc()
		b.logger.Warn("dropping envelope", "kind", env.Type, "error", err)
		return b.reply(msg, replyError{Error: err.Error()})
	}
	b.messages.WithLabelValues(string(env.Type), "applied").Inc()
	b.logger.Debug("envelope applied", "kind", env.Type)

	if stats != nil {
		return b.reply(msg, stats)
	}
	return nil
}

func (b *Bridge) reply(msg *bus.Message, v any) []byte {
	if msg.ReplyTo == "" {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		b.logger.Error("failed to encode reply", "error", err)
		return nil
	}
	return data
}
