package bridge

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jpalmerr/resultboard"
)

// Kind names the store operation an envelope carries.
type Kind string

const (
	KindBatch         Kind = "batch"
	KindRestore       Kind = "restore"
	KindLoading       Kind = "loading"
	KindError         Kind = "error"
	KindClear         Kind = "clear"
	KindSwitchSession Kind = "switch-session"
	KindSelectMessage Kind = "select-message"
)

// Kinds returns every envelope kind.
func Kinds() []Kind {
	return []Kind{KindBatch, KindRestore, KindLoading, KindError, KindClear, KindSwitchSession, KindSelectMessage}
}

// ErrMalformed is matched by every decoding error from [Apply].
var ErrMalformed = errors.New("malformed envelope")

// Envelope is the unit sent over the bus: {"type": kind, "payload": {...}}.
// All kinds share one subject so that their order is preserved.
type Envelope struct {
	Type    Kind            `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// RestoreRequest is the payload of a restore envelope.
type RestoreRequest struct {
	SessionID string                `json:"sessionId"`
	MessageID string                `json:"messageId"`
	Items     []resultboard.RawItem `json:"items"`
}

// LoadingRequest is the payload of a loading envelope.
type LoadingRequest struct {
	Loading   bool   `json:"loading"`
	RequestID string `json:"requestId,omitempty"`
	MessageID string `json:"messageId,omitempty"`
}

// ClearRequest is the payload of a clear envelope. An empty MessageID
// clears the whole session.
type ClearRequest struct {
	SessionID string `json:"sessionId"`
	MessageID string `json:"messageId,omitempty"`
}

// SwitchSessionRequest is the payload of a switch-session envelope.
type SwitchSessionRequest struct {
	SessionID string `json:"sessionId"`
}

// SelectMessageRequest is the payload of a select-message envelope.
type SelectMessageRequest struct {
	MessageID string `json:"messageId"`
}

// Encode builds the wire form of an envelope.
func Encode(kind Kind, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", kind, err)
	}
	return json.Marshal(Envelope{Type: kind, Payload: raw})
}

// Decode parses the wire form of an envelope.
func Decode(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if env.Type == "" {
		return Envelope{}, fmt.Errorf("%w: missing type", ErrMalformed)
	}
	return env, nil
}

// Apply performs env on store. For restore envelopes it returns the
// restore statistics; for every other kind the stats are nil.
func Apply(store *resultboard.Store, env Envelope) (*resultboard.RestoreStats, error) {
	switch env.Type {
	case KindBatch:
		var b resultboard.Batch
		if err := decodePayload(env, &b); err != nil {
			return nil, err
		}
		store.UpdateResults(b)
	case KindRestore:
		var req RestoreRequest
		if err := decodePayload(env, &req); err != nil {
			return nil, err
		}
		if req.SessionID == "" {
			return nil, fmt.Errorf("%w: restore requires sessionId", ErrMalformed)
		}
		stats := store.RestoreResults(req.SessionID, req.MessageID, req.Items)
		return &stats, nil
	case KindLoading:
		var req LoadingRequest
		if err := decodePayload(env, &req); err != nil {
			return nil, err
		}
		store.SetLoading(req.Loading, req.RequestID, req.MessageID)
	case KindError:
		var info *resultboard.ErrorInfo
		if len(env.Payload) > 0 {
			if err := decodePayload(env, &info); err != nil {
				return nil, err
			}
		}
		store.SetErrorWithInfo(info)
	case KindClear:
		var req ClearRequest
		if err := decodePayload(env, &req); err != nil {
			return nil, err
		}
		if req.SessionID == "" {
			store.ClearAll()
			return nil, nil
		}
		store.ClearResults(req.SessionID, req.MessageID)
	case KindSwitchSession:
		var req SwitchSessionRequest
		if err := decodePayload(env, &req); err != nil {
			return nil, err
		}
		store.SwitchSession(req.SessionID)
	case KindSelectMessage:
		var req SelectMessageRequest
		if err := decodePayload(env, &req); err != nil {
			return nil, err
		}
		store.SelectMessage(req.MessageID)
	default:
		return nil, fmt.Errorf("%w: unknown type %q", ErrMalformed, env.Type)
	}
	return nil, nil
}

func decodePayload(env Envelope, v any) error {
	if len(env.Payload) == 0 {
		return fmt.Errorf("%w: %s payload is empty", ErrMalformed, env.Type)
	}
	if err := json.Unmarshal(env.Payload, v); err != nil {
		return fmt.Errorf("%w: %s payload: %v", ErrMalformed, env.Type, err)
	}
	return nil
}
