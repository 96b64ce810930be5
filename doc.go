// Package resultboard provides an in-memory store for analysis results that
// arrive incrementally from a backend and are rendered by a client.
//
// Results are heterogeneous items (charts, tables, CSV, images, metrics,
// insights and file references) filed under a (session, message) pair. The
// store keeps one current pair and guarantees that queries for the current
// view never return items filed under any other pair.
//
// # Quick Start
//
//	store, err := resultboard.New(resultboard.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//
//	store.SwitchSession("s1")
//	store.SetLoading(true, "r1", "m1")
//	store.UpdateResults(resultboard.Batch{
//	    SessionID:  "s1",
//	    MessageID:  "m1",
//	    RequestID:  "r1",
//	    Items:      items,
//	    IsComplete: true,
//	})
//
//	for _, item := range store.GetCurrentResults() {
//	    render(item)
//	}
//
// # Isolation
//
// Switching session deletes every item of the previous session. Selecting a
// message deletes every other message of the current session. Batches are
// fenced by request ID: once a request is pending, batches for any other
// request are dropped.
//
// # Notifications
//
// [Store.Subscribe] delivers a deep copy of the full [State] after every
// mutation. [Store.On] delivers discrete lifecycle events such as
// [EventSessionSwitched] and [EventDataRestored]. A panicking handler is
// recovered and logged; it never affects other handlers or the caller.
//
// # Normalization
//
// Item payloads are validated and reshaped by package normalize into one
// variant per type. Items that fail normalization are dropped, not stored.
//
// # Architecture
//
// The module consists of several packages:
//
//   - normalize: pure payload normalization and type detection
//   - internal/bus: in-memory and NATS message buses
//   - internal/bridge: applies envelopes received from a bus to a Store
//   - internal/server: HTTP API with Server-Sent Events and /metrics
//   - config: YAML configuration for the resultboard command
//
// The internal packages are not part of the public API and may change
// without notice.
package resultboard
