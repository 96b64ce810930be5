// Package dashboard provides the embedded web UI for the result board.
//
// The page subscribes to "/api/sse" and renders the current view: charts
// and tables as JSON, metrics as cards, insights as a list, images inline
// and files as download rows. It is served by the server package at "/".
package dashboard

import "embed"

// Assets is an embedded filesystem containing the dashboard web UI.
//
// The filesystem structure is:
//
//	assets/
//	  index.html    - Dashboard page with inline CSS and JavaScript
//
//go:embed assets/*
var Assets embed.FS
