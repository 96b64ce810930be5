// Package server provides the HTTP server for the result board dashboard
// and API.
//
// The server handles all HTTP concerns:
//
//   - Dashboard serving: Serves the embedded HTML dashboard at "/"
//   - REST API: JSON endpoints under "/api" to read and drive the store
//   - Server-Sent Events: Current-view updates at "/api/sse"
//   - Metrics: Prometheus exposition at "/metrics" when a gatherer is set
//
// Write endpoints accept the same payloads as the bus bridge and go through
// the same dispatch, so HTTP and bus clients see identical semantics.
//
// The server supports graceful shutdown via context cancellation, with a
// 5-second timeout for in-flight requests.
package server
