package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jpalmerr/resultboard"
	"github.com/jpalmerr/resultboard/internal/bridge"
	"github.com/jpalmerr/resultboard/internal/feed"
	"github.com/jpalmerr/resultboard/normalize"
)

const (
	// sseWriteTimeout is the maximum time allowed for a single SSE write operation.
	// Must be <= shutdown timeout to ensure clean shutdown.
	sseWriteTimeout = 5 * time.Second

	shutdownTimeout = 5 * time.Second

	// maxBodyBytes bounds request bodies; image payloads arrive base64 encoded.
	maxBodyBytes = 32 << 20

	// defaultTitle is used when no custom title is configured.
	defaultTitle = "Analysis Results"

	// titlePlaceholder is the marker in HTML that gets replaced with the actual title.
	titlePlaceholder = "{{.Title}}"
)

// Config holds the server settings.
type Config struct {
	// Port is the TCP port to listen on. 0 picks a free port.
	Port int

	// Assets contains assets/index.html. nil disables the dashboard.
	Assets fs.FS

	// Title replaces {{.Title}} in the dashboard page.
	Title string

	// Gatherer is exposed at /metrics. nil disables the endpoint.
	Gatherer prometheus.Gatherer
}

// Server handles HTTP requests for the dashboard and API.
//
// The server is designed for graceful shutdown via context cancellation.
type Server struct {
	store      *resultboard.Store
	feed       feed.Feed
	cfg        Config
	httpServer *http.Server
	addr       net.Addr
	done       chan struct{}
	logger     *slog.Logger
}

// NewServer creates a new HTTP [Server]. The server is not started until
// [Server.Start] is called.
func NewServer(st *resultboard.Store, fd feed.Feed, cfg Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		store:  st,
		feed:   fd,
		cfg:    cfg,
		done:   make(chan struct{}),
		logger: logger,
	}
}

// Handler returns the request router.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/results", s.handleResults)
	mux.HandleFunc("DELETE /api/results", s.handleClear)
	mux.HandleFunc("GET /api/state", s.handleState)
	mux.HandleFunc("GET /api/sse", s.handleSSE)

	mux.HandleFunc("POST /api/batches", s.handleEnvelope(bridge.KindBatch))
	mux.HandleFunc("POST /api/restore", s.handleEnvelope(bridge.KindRestore))
	mux.HandleFunc("POST /api/loading", s.handleEnvelope(bridge.KindLoading))
	mux.HandleFunc("POST /api/error", s.handleEnvelope(bridge.KindError))
	mux.HandleFunc("POST /api/session", s.handleEnvelope(bridge.KindSwitchSession))
	mux.HandleFunc("POST /api/message", s.handleEnvelope(bridge.KindSelectMessage))

	if s.cfg.Gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(s.cfg.Gatherer, promhttp.HandlerOpts{}))
	}
	if s.cfg.Assets != nil {
		mux.HandleFunc("GET /{$}", s.handleDashboard)
	}
	return mux
}

// Start begins serving HTTP requests in a background goroutine.
//
// Start is non-blocking and returns immediately after confirming the server
// is listening. When ctx is cancelled the server shuts down gracefully with
// a 5-second timeout.
//
// Returns an error if the server fails to bind to the configured port.
func (s *Server) Start(ctx context.Context) error {
	// create listener first to verify port availability synchronously
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", s.cfg.Port))
	if err != nil {
		return fmt.Errorf("failed to bind to port %d: %w", s.cfg.Port, err)
	}
	s.addr = ln.Addr()

	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		// request contexts derive from ctx so SSE handlers exit on shutdown
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server error", "error", err)
		}
	}()

	go func() {
		defer close(s.done)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("http server shutdown error", "error", err)
		}
	}()

	s.logger.Info("http server listening", "addr", s.addr.String())
	return nil
}

// Done is closed once the server has shut down after a successful
// [Server.Start].
func (s *Server) Done() <-chan struct{} {
	return s.done
}

// Addr returns the bound address once [Server.Start] has succeeded.
func (s *Server) Addr() net.Addr {
	return s.addr
}

// handleDashboard serves the main dashboard page.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if s.cfg.Assets == nil {
		http.Error(w, "Dashboard not found", http.StatusInternalServerError)
		return
	}

	content, err := fs.ReadFile(s.cfg.Assets, "assets/index.html")
	if err != nil {
		http.Error(w, "Dashboard not found", http.StatusInternalServerError)
		return
	}

	title := s.cfg.Title
	if title == "" {
		title = defaultTitle
	}
	rendered := strings.ReplaceAll(string(content), titlePlaceholder, html.EscapeString(title))

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err = w.Write([]byte(rendered)); err != nil {
		s.logger.Error("failed to write dashboard response", "error", err)
	}
}

// handleResults returns the current view, or the items of the key given by
// the session and message query parameters. A type parameter filters items.
func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var typ normalize.Type
	if raw := q.Get("type"); raw != "" {
		t, ok := normalize.ParseType(raw)
		if !ok {
			s.writeError(w, http.StatusBadRequest, fmt.Errorf("unknown result type %q", raw))
			return
		}
		typ = t
	}

	sessionID := q.Get("session")
	if sessionID == "" {
		view := s.store.CurrentView()
		if typ != "" {
			view.Items = s.store.GetCurrentResultsByType(typ)
		}
		s.writeJSON(w, http.StatusOK, view)
		return
	}

	messageID := q.Get("message")
	items := s.store.GetResults(sessionID, messageID)
	if typ != "" {
		items = s.store.GetResultsByType(sessionID, messageID, typ)
	}
	s.writeJSON(w, http.StatusOK, resultboard.View{
		SessionID: sessionID,
		MessageID: messageID,
		IsLoading: s.store.IsLoading(),
		Error:     s.store.GetErrorInfo(),
		Items:     items,
	})
}

// handleState returns the full store snapshot.
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.store.Snapshot())
}

// handleClear deletes the key given by the query, or everything when no
// session is given.
func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	payload, err := json.Marshal(bridge.ClearRequest{
		SessionID: q.Get("session"),
		MessageID: q.Get("message"),
	})
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.apply(w, bridge.Envelope{Type: bridge.KindClear, Payload: payload})
}

// handleEnvelope applies the request body as the payload of an envelope of
// the given kind.
func (s *Server) handleEnvelope(kind bridge.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				s.writeError(w, http.StatusRequestEntityTooLarge, err)
				return
			}
			s.writeError(w, http.StatusBadRequest, err)
			return
		}
		s.apply(w, bridge.Envelope{Type: kind, Payload: body})
	}
}

func (s *Server) apply(w http.ResponseWriter, env bridge.Envelope) {
	stats, err := bridge.Apply(s.store, env)
	if err != nil {
		s.logger.Warn("rejected request", "kind", env.Type, "error", err)
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	if stats != nil {
		s.writeJSON(w, http.StatusOK, stats)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

// handleSSE streams current-view updates via Server-Sent Events.
//
// Writes carry deadlines so a slow or disconnected client cannot block the
// handler past shutdown.
func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	if _, ok := w.(http.Flusher); !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	rc := http.NewResponseController(w)

	// track if write deadlines are supported (may not be for some ResponseWriter impls)
	deadlinesSupported := true

	writeAndFlush := func(v resultboard.View) error {
		data, err := json.Marshal(v)
		if err != nil {
			s.logger.Error("failed to encode sse view", "error", err)
			return nil
		}
		if deadlinesSupported {
			if err := rc.SetWriteDeadline(time.Now().Add(sseWriteTimeout)); err != nil {
				s.logger.Debug("sse write deadlines not supported", "error", err)
				deadlinesSupported = false
			}
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			return err
		}
		return rc.Flush()
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	ch := s.feed.Subscribe()
	defer s.feed.Unsubscribe(ch)

	if err := writeAndFlush(s.feed.Latest()); err != nil {
		return
	}

	for {
		select {
		case view, ok := <-ch:
			if !ok {
				return
			}
			if err := writeAndFlush(view); err != nil {
				return
			}

		case <-r.Context().Done():
			// fires on both client disconnect and server shutdown
			return
		}
	}
}
