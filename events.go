package resultboard

import (
	"github.com/jpalmerr/resultboard/normalize"
)

// EventType names a discrete lifecycle event emitted by the [Store].
type EventType string

const (
	// EventSessionSwitched fires after [Store.SwitchSession] changes session.
	// Payload: [SessionSwitched].
	EventSessionSwitched EventType = "session-switched"

	// EventMessageSelected fires after [Store.SelectMessage] changes message.
	// Payload: [MessageSelected].
	EventMessageSelected EventType = "message-selected"

	// EventAnalysisStarted fires when loading starts for a request.
	// Payload: [AnalysisStarted].
	EventAnalysisStarted EventType = "analysis-started"

	// EventDataRestored fires after a restore filed at least one item.
	// Payload: [DataRestored].
	EventDataRestored EventType = "data-restored"

	// EventHistoricalEmptyResult fires when a restore has nothing to show.
	// Payload: [HistoricalEmptyResult].
	EventHistoricalEmptyResult EventType = "historical-empty-result"
)

// Event is delivered to listeners registered with [Store.On].
type Event struct {
	Type EventType `json:"type"`

	// Payload is one of the typed payload structs below, by value.
	Payload any `json:"payload"`
}

// clone returns ev with its mutable payload fields copied, so that each
// listener receives its own map.
func (ev Event) clone() Event {
	if p, ok := ev.Payload.(DataRestored); ok {
		byType := make(map[normalize.Type]int, len(p.ItemsByType))
		for t, n := range p.ItemsByType {
			byType[t] = n
		}
		p.ItemsByType = byType
		ev.Payload = p
	}
	return ev
}

type SessionSwitched struct {
	From string `json:"from,omitempty"`
	To   string `json:"to"`
}

type MessageSelected struct {
	SessionID string `json:"sessionId"`
	From      string `json:"from,omitempty"`
	To        string `json:"to"`
}

type AnalysisStarted struct {
	SessionID string `json:"sessionId"`
	MessageID string `json:"messageId,omitempty"`
	RequestID string `json:"requestId"`
}

type DataRestored struct {
	SessionID    string                 `json:"sessionId"`
	MessageID    string                 `json:"messageId"`
	ItemCount    int                    `json:"itemCount"`
	ValidCount   int                    `json:"validCount"`
	InvalidCount int                    `json:"invalidCount"`
	ItemsByType  map[normalize.Type]int `json:"itemsByType"`
}

type HistoricalEmptyResult struct {
	SessionID string `json:"sessionId"`
	MessageID string `json:"messageId"`
}

// listenerSet is an ordered registry of handlers keyed by registration id.
type listenerSet[T any] struct {
	nextID int
	ids    []int
	fns    map[int]func(T)
}

func (l *listenerSet[T]) add(fn func(T)) int {
	if l.fns == nil {
		l.fns = make(map[int]func(T))
	}
	l.nextID++
	l.ids = append(l.ids, l.nextID)
	l.fns[l.nextID] = fn
	return l.nextID
}

func (l *listenerSet[T]) remove(id int) {
	if _, ok := l.fns[id]; !ok {
		return
	}
	delete(l.fns, id)
	for i, v := range l.ids {
		if v == id {
			l.ids = append(l.ids[:i:i], l.ids[i+1:]...)
			break
		}
	}
}

// snapshot returns the handlers in registration order.
func (l *listenerSet[T]) snapshot() []func(T) {
	out := make([]func(T), 0, len(l.ids))
	for _, id := range l.ids {
		out = append(out, l.fns[id])
	}
	return out
}

func (l *listenerSet[T]) len() int {
	return len(l.ids)
}
