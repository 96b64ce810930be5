package normalize

import (
	"errors"
	"fmt"
)

// ErrInvalidPayload is matched by every error returned from this package.
var ErrInvalidPayload = errors.New("invalid payload")

// Error describes why a payload could not be normalized.
type Error struct {
	// Type is the type the payload was normalized as.
	Type Type

	// Reason is a human-readable explanation.
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("normalize %s: %s", e.Type, e.Reason)
}

// Unwrap makes errors.Is(err, ErrInvalidPayload) true.
func (e *Error) Unwrap() error {
	return ErrInvalidPayload
}

func failf(t Type, format string, args ...any) error {
	return &Error{Type: t, Reason: fmt.Sprintf(format, args...)}
}
