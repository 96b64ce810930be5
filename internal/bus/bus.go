// Package bus provides the message bus that delivers result envelopes from
// analysis backends to the resultboard process.
//
// Two implementations exist: NATSBus for deployments and MemoryBus for
// tests and single-process use. Both deliver the messages of one
// subscription sequentially and in publish order.
package bus

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrTimeout is returned when a request times out waiting for a response.
	ErrTimeout = errors.New("request timeout")

	// ErrNoResponders is returned when no subscriber handles a request.
	ErrNoResponders = errors.New("no responders available")

	// ErrClosed is returned when operating on a closed bus.
	ErrClosed = errors.New("bus closed")
)

// MessageBus is the transport used by the bridge.
// Implementations must be safe for concurrent use.
type MessageBus interface {
	// Publish sends data to every subscriber of subject.
	Publish(ctx context.Context, subject string, data []byte) error

	// Subscribe registers handler for messages on subject. Messages of one
	// subscription are handled one at a time, in order.
	Subscribe(ctx context.Context, subject string, handler MessageHandler) (Subscription, error)

	// Request publishes data and waits for the first reply.
	Request(ctx context.Context, subject string, data []byte, timeout time.Duration) ([]byte, error)

	// Close shuts down the bus and all subscriptions.
	Close() error
}

// MessageHandler processes one message. A non-nil return value is sent back
// when the message carries a reply subject.
type MessageHandler func(msg *Message) []byte

// Message is an incoming message.
type Message struct {
	Subject string
	Data    []byte
	ReplyTo string
}

// Subscription is an active subscription.
type Subscription interface {
	// Unsubscribe stops delivery. It is safe to call more than once.
	Unsubscribe() error

	Subject() string
}

// Config holds connection settings for [NewNATSBus].
type Config struct {
	// URL is the NATS server URL, e.g. "nats://localhost:4222".
	URL string

	// Name identifies the client to the server.
	Name string

	// Timeout bounds connection attempts.
	Timeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		URL:     "nats://localhost:4222",
		Name:    "resultboard",
		Timeout: 5 * time.Second,
	}
}
