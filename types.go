package resultboard

import (
	"encoding/json"
	"fmt"

	"github.com/jpalmerr/resultboard/normalize"
)

// Source records where a [ResultItem] came from.
type Source string

const (
	// SourceRealtime marks items streamed while an analysis runs.
	SourceRealtime Source = "realtime"

	// SourceCompleted marks items delivered with the final batch.
	SourceCompleted Source = "completed"

	// SourceCached marks items served from a cache.
	SourceCached Source = "cached"

	// SourceRestored marks items filed by [Store.RestoreResults].
	SourceRestored Source = "restored"
)

// Valid reports whether s is one of the known sources.
func (s Source) Valid() bool {
	switch s {
	case SourceRealtime, SourceCompleted, SourceCached, SourceRestored:
		return true
	default:
		return false
	}
}

// Metadata scopes an item to a (session, message) pair.
type Metadata struct {
	SessionID string `json:"sessionId"`
	MessageID string `json:"messageId"`

	// Timestamp is in Unix milliseconds.
	Timestamp int64 `json:"timestamp"`

	RequestID string `json:"requestId,omitempty"`
	FileName  string `json:"fileName,omitempty"`
	MimeType  string `json:"mimeType,omitempty"`
}

// RawItem is a result item as delivered by a backend, before normalization.
//
// Data is kept as json.RawMessage when decoded from JSON so that table
// column order survives.
type RawItem struct {
	ID       string   `json:"id"`
	Type     string   `json:"type"`
	Data     any      `json:"data"`
	Metadata Metadata `json:"metadata"`
	Source   Source   `json:"source,omitempty"`
}

// UnmarshalJSON decodes the item while leaving Data undecoded.
func (r *RawItem) UnmarshalJSON(b []byte) error {
	type alias RawItem
	var aux struct {
		alias
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	*r = RawItem(aux.alias)
	if len(aux.Data) > 0 && string(aux.Data) != "null" {
		r.Data = aux.Data
	} else {
		r.Data = nil
	}
	return nil
}

// ResultItem is one normalized analysis artifact.
//
// Data always holds the [normalize.Payload] variant matching Type.
type ResultItem struct {
	ID       string            `json:"id"`
	Type     normalize.Type    `json:"type"`
	Data     normalize.Payload `json:"data"`
	Metadata Metadata          `json:"metadata"`
	Source   Source            `json:"source"`
}

// UnmarshalJSON decodes an encoded ResultItem, rebuilding Data as the
// payload variant for Type.
func (r *ResultItem) UnmarshalJSON(b []byte) error {
	type alias ResultItem
	var aux struct {
		alias
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	*r = ResultItem(aux.alias)
	r.Data = nil
	if len(aux.Data) == 0 || string(aux.Data) == "null" {
		return nil
	}

	var (
		p   normalize.Payload
		err error
	)
	if r.Type == normalize.TypeCSV {
		// encoded CSV is already tabular
		var t normalize.Table
		t, err = normalize.NormalizeTable(aux.Data)
		p = normalize.CSV(t)
	} else {
		p, err = normalize.Normalize(r.Type, aux.Data)
	}
	if err != nil {
		return fmt.Errorf("decode %s item %q: %w", r.Type, r.ID, err)
	}
	r.Data = p
	return nil
}

func (r ResultItem) clone() ResultItem {
	if r.Data != nil {
		r.Data = r.Data.Clone()
	}
	return r
}

// Batch is a set of items delivered together for one (session, message).
type Batch struct {
	SessionID  string    `json:"sessionId"`
	MessageID  string    `json:"messageId"`
	RequestID  string    `json:"requestId,omitempty"`
	Items      []RawItem `json:"items"`
	IsComplete bool      `json:"isComplete"`
	Timestamp  int64     `json:"timestamp,omitempty"`
}

// State is a deep copy of the whole store.
//
// Results maps session id to message id to the items filed there.
type State struct {
	Results          map[string]map[string][]ResultItem `json:"results"`
	CurrentSessionID string                             `json:"currentSessionId,omitempty"`
	CurrentMessageID string                             `json:"currentMessageId,omitempty"`
	IsLoading        bool                               `json:"isLoading"`
	PendingRequestID string                             `json:"pendingRequestId,omitempty"`
	Error            *ErrorInfo                         `json:"error,omitempty"`
}

// View is the slice of state a renderer needs: the current key and its items.
type View struct {
	SessionID string       `json:"sessionId,omitempty"`
	MessageID string       `json:"messageId,omitempty"`
	IsLoading bool         `json:"isLoading"`
	Error     *ErrorInfo   `json:"error,omitempty"`
	Items     []ResultItem `json:"items"`
}

// RestoreStats summarizes a [Store.RestoreResults] call.
type RestoreStats struct {
	TotalItems   int                    `json:"totalItems"`
	ValidItems   int                    `json:"validItems"`
	InvalidItems int                    `json:"invalidItems"`
	ItemsByType  map[normalize.Type]int `json:"itemsByType"`
	Errors       []string               `json:"errors"`
}
