// Package normalize validates and canonicalizes analysis result payloads.
//
// Results arrive from the analysis backend in loosely-typed shapes: chart
// configs as objects or JSON strings, images as bare base64 or data URLs,
// tables as row objects, 2D arrays or column/row objects, and so on. This
// package maps each of those into one fixed per-type shape or fails with a
// reason.
//
// The main entry points are:
//
//   - [Normalize]: dispatch on a [Type] and return a [Payload]
//   - [ValidateShape]: cheap structural check used before normalization
//   - [DetectDataType]: best-effort type inference when the tag is unknown
//   - [IsValidChartConfig] and [ScoreChartConfig]: chart diagnostics
//
// Everything here is pure. Functions never mutate their input and hold no
// state, so they are safe for concurrent use.
//
// Raw input may be any value produced by encoding/json (map[string]any,
// []any, string, float64, bool, nil), a [encoding/json.RawMessage], or an
// arbitrary Go value which is converted through a JSON round trip. Passing
// a RawMessage preserves object key order, which tables use for column
// order; otherwise columns taken from row objects are sorted.
package normalize
