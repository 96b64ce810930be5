package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jpalmerr/resultboard"
	"github.com/jpalmerr/resultboard/internal/feed"
	"github.com/jpalmerr/resultboard/normalize"
)

// testLogger returns a logger that discards all output for clean test output.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type testEnv struct {
	srv   *Server
	store *resultboard.Store
	feed  *feed.MemoryFeed
}

func newTestEnv(t testing.TB, cfg Config, opts ...resultboard.Option) *testEnv {
	t.Helper()
	st, err := resultboard.New(append([]resultboard.Option{resultboard.WithLogger(testLogger())}, opts...)...)
	if err != nil {
		t.Fatalf("resultboard.New() error = %v", err)
	}
	fd := feed.NewMemoryFeed(st)
	t.Cleanup(fd.Close)
	return &testEnv{
		srv:   NewServer(st, fd, cfg, testLogger()),
		store: st,
		feed:  fd,
	}
}

func seed(st *resultboard.Store, ids ...string) {
	items := make([]resultboard.RawItem, len(ids))
	for i, id := range ids {
		items[i] = resultboard.RawItem{
			ID:   id,
			Type: "metric",
			Data: map[string]any{"title": id, "value": 7},
		}
	}
	st.UpdateResults(resultboard.Batch{SessionID: "s1", MessageID: "m1", Items: items})
}

// do runs one request through the router.
func (e *testEnv) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	rec := httptest.NewRecorder()
	e.srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	return v
}

// --- REST API ---

func TestHandleResults_CurrentView(t *testing.T) {
	env := newTestEnv(t, Config{})
	seed(env.store, "Revenue", "Cost")

	rec := env.do(t, http.MethodGet, "/api/results", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}

	view := decodeBody[resultboard.View](t, rec)
	if view.SessionID != "s1" || view.MessageID != "m1" {
		t.Errorf("view key = %s/%s, want s1/m1", view.SessionID, view.MessageID)
	}
	if len(view.Items) != 2 {
		t.Fatalf("len(view.Items) = %d, want 2", len(view.Items))
	}
	if view.Items[0].ID != "Revenue" || view.Items[1].ID != "Cost" {
		t.Errorf("item order = [%s %s], want [Revenue Cost]", view.Items[0].ID, view.Items[1].ID)
	}
}

func TestHandleResults_Query(t *testing.T) {
	env := newTestEnv(t, Config{})
	seed(env.store, "Revenue")
	env.store.UpdateResults(resultboard.Batch{
		SessionID: "s1",
		MessageID: "m1",
		Items:     []resultboard.RawItem{{ID: "note", Type: "insight", Data: "up 5%"}},
	})

	tests := []struct {
		name      string
		target    string
		wantCode  int
		wantItems int
	}{
		{"explicit key", "/api/results?session=s1&message=m1", http.StatusOK, 2},
		{"unknown key", "/api/results?session=s9&message=m9", http.StatusOK, 0},
		{"type filter on current", "/api/results?type=insight", http.StatusOK, 1},
		{"type filter on key", "/api/results?session=s1&message=m1&type=metric", http.StatusOK, 1},
		{"legacy chart alias", "/api/results?type=echarts", http.StatusOK, 0},
		{"unknown type", "/api/results?type=video", http.StatusBadRequest, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodGet, tt.target, "")
			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.wantCode, rec.Body.String())
			}
			if tt.wantCode != http.StatusOK {
				return
			}
			view := decodeBody[resultboard.View](t, rec)
			if len(view.Items) != tt.wantItems {
				t.Errorf("len(Items) = %d, want %d", len(view.Items), tt.wantItems)
			}
		})
	}
}

func TestHandleState(t *testing.T) {
	env := newTestEnv(t, Config{})
	seed(env.store, "Revenue")

	rec := env.do(t, http.MethodGet, "/api/state", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	st := decodeBody[resultboard.State](t, rec)
	if got := len(st.Results["s1"]["m1"]); got != 1 {
		t.Errorf("len(Results[s1][m1]) = %d, want 1", got)
	}
	if st.CurrentSessionID != "s1" {
		t.Errorf("CurrentSessionID = %q, want s1", st.CurrentSessionID)
	}
}

func TestPostBatches(t *testing.T) {
	env := newTestEnv(t, Config{})

	body := `{"sessionId":"s1","messageId":"m1","items":[
		{"id":"t1","type":"table","data":{"columns":["b","a"],"rows":[{"b":1,"a":2}]}}
	],"isComplete":true}`
	rec := env.do(t, http.MethodPost, "/api/batches", body)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want %d (%s)", rec.Code, http.StatusNoContent, rec.Body.String())
	}

	items := env.store.GetCurrentResultsByType(normalize.TypeTable)
	if len(items) != 1 {
		t.Fatalf("len(table items) = %d, want 1", len(items))
	}
	table, ok := items[0].Data.(normalize.Table)
	if !ok {
		t.Fatalf("Data = %T, want normalize.Table", items[0].Data)
	}
	if strings.Join(table.Columns, ",") != "b,a" {
		t.Errorf("Columns = %v, want [b a]", table.Columns)
	}
}

func TestPostRestore_ReturnsStats(t *testing.T) {
	env := newTestEnv(t, Config{})

	body := `{"sessionId":"s2","messageId":"m4","items":[
		{"id":"a","type":"metric","data":{"title":"Users","value":10}},
		{"id":"b","type":"chart","data":"not a chart"}
	]}`
	rec := env.do(t, http.MethodPost, "/api/restore", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d (%s)", rec.Code, http.StatusOK, rec.Body.String())
	}

	stats := decodeBody[resultboard.RestoreStats](t, rec)
	if stats.TotalItems != 2 || stats.ValidItems != 1 || stats.InvalidItems != 1 {
		t.Errorf("stats = %+v, want 2 total, 1 valid, 1 invalid", stats)
	}
	if len(stats.Errors) != 1 {
		t.Errorf("len(stats.Errors) = %d, want 1", len(stats.Errors))
	}
	if got := env.store.GetCurrentSession(); got != "s2" {
		t.Errorf("GetCurrentSession() = %q, want s2", got)
	}
}

func TestPostLoadingAndError(t *testing.T) {
	env := newTestEnv(t, Config{})

	rec := env.do(t, http.MethodPost, "/api/loading", `{"loading":true,"requestId":"r1","messageId":"m1"}`)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("loading status = %d, want %d", rec.Code, http.StatusNoContent)
	}
	if !env.store.IsLoading() || env.store.PendingRequestID() != "r1" {
		t.Errorf("IsLoading() = %v, PendingRequestID() = %q, want true and r1",
			env.store.IsLoading(), env.store.PendingRequestID())
	}

	rec = env.do(t, http.MethodPost, "/api/error", `{"code":"PYTHON_SYNTAX"}`)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("error status = %d, want %d", rec.Code, http.StatusNoContent)
	}
	info := env.store.GetErrorInfo()
	if info == nil || info.Code != resultboard.CodePythonSyntax {
		t.Fatalf("GetErrorInfo() = %+v, want PYTHON_SYNTAX", info)
	}
	if info.Message == "" || len(info.RecoverySuggestions) == 0 {
		t.Errorf("GetErrorInfo() = %+v, want message and suggestions filled", info)
	}
	if env.store.IsLoading() {
		t.Error("IsLoading() = true after error, want false")
	}

	rec = env.do(t, http.MethodPost, "/api/error", `null`)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("clear error status = %d, want %d", rec.Code, http.StatusNoContent)
	}
	if env.store.GetErrorInfo() != nil {
		t.Error("GetErrorInfo() != nil after null error")
	}
}

func TestPostSessionAndMessage(t *testing.T) {
	env := newTestEnv(t, Config{})
	seed(env.store, "Revenue")

	rec := env.do(t, http.MethodPost, "/api/session", `{"sessionId":"s2"}`)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("session status = %d, want %d", rec.Code, http.StatusNoContent)
	}
	if env.store.HasData("s1", "m1") {
		t.Error("HasData(s1, m1) = true after switching session, want false")
	}

	rec = env.do(t, http.MethodPost, "/api/message", `{"messageId":"m7"}`)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("message status = %d, want %d", rec.Code, http.StatusNoContent)
	}
	if got := env.store.GetCurrentMessage(); got != "m7" {
		t.Errorf("GetCurrentMessage() = %q, want m7", got)
	}
}

func TestDeleteResults(t *testing.T) {
	env := newTestEnv(t, Config{})
	seed(env.store, "Revenue")

	rec := env.do(t, http.MethodDelete, "/api/results?session=s1&message=m1", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNoContent)
	}
	if env.store.HasData("s1", "m1") {
		t.Error("HasData(s1, m1) = true after delete")
	}
	if got := env.store.GetCurrentSession(); got != "s1" {
		t.Errorf("GetCurrentSession() = %q after keyed delete, want s1", got)
	}

	rec = env.do(t, http.MethodDelete, "/api/results", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNoContent)
	}
	if got := env.store.GetCurrentSession(); got != "" {
		t.Errorf("GetCurrentSession() = %q after delete all, want empty", got)
	}
}

func TestPost_RejectsMalformedBodies(t *testing.T) {
	env := newTestEnv(t, Config{})

	tests := []struct {
		name   string
		target string
		body   string
	}{
		{"empty batch body", "/api/batches", ""},
		{"batch not json", "/api/batches", "{"},
		{"restore without session", "/api/restore", `{"items":[]}`},
		{"loading wrong shape", "/api/loading", `"yes"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, tt.target, tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
			}
			if resp := decodeBody[errorResponse](t, rec); resp.Error == "" {
				t.Error("error response has empty message")
			}
		})
	}
}

func TestPost_BodyTooLarge(t *testing.T) {
	env := newTestEnv(t, Config{})

	big := bytes.Repeat([]byte("a"), maxBodyBytes+1)
	req := httptest.NewRequest(http.MethodPost, "/api/batches", bytes.NewReader(big))
	rec := httptest.NewRecorder()
	env.srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusRequestEntityTooLarge)
	}
}

func TestRoutes_MethodNotAllowed(t *testing.T) {
	env := newTestEnv(t, Config{})

	rec := env.do(t, http.MethodPut, "/api/results", "")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("PUT /api/results status = %d, want %d", rec.Code, http.StatusMethodNotAllowed)
	}
	rec = env.do(t, http.MethodGet, "/api/batches", "")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET /api/batches status = %d, want %d", rec.Code, http.StatusMethodNotAllowed)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	env := newTestEnv(t, Config{Gatherer: reg}, resultboard.WithRegisterer(reg))
	seed(env.store, "Revenue")

	rec := env.do(t, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if body := rec.Body.String(); !strings.Contains(body, "resultboard_batches_total") {
		t.Errorf("metrics output missing resultboard_batches_total:\n%s", body)
	}
}

func TestMetricsEndpoint_DisabledWithoutGatherer(t *testing.T) {
	env := newTestEnv(t, Config{})

	rec := env.do(t, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

// --- SSE ---

// parseSSEViews extracts the views from "data: {...}\n\n" frames.
func parseSSEViews(body string) []resultboard.View {
	var views []resultboard.View
	for _, line := range strings.Split(body, "\n") {
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var v resultboard.View
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &v); err == nil {
			views = append(views, v)
		}
	}
	return views
}

func TestHandleSSE_BasicFlow(t *testing.T) {
	env := newTestEnv(t, Config{})
	seed(env.store, "Revenue", "Cost")

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/api/sse", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	env.srv.handleSSE(rec, req)

	views := parseSSEViews(rec.Body.String())
	if len(views) != 1 {
		t.Fatalf("got %d views, want 1 initial view", len(views))
	}
	if got := len(views[0].Items); got != 2 {
		t.Errorf("initial view has %d items, want 2", got)
	}
}

func TestHandleSSE_StreamsUpdates(t *testing.T) {
	env := newTestEnv(t, Config{})

	req := httptest.NewRequest(http.MethodGet, "/api/sse", nil)
	rec := httptest.NewRecorder()
	ctx, cancel := context.WithCancel(context.Background())
	req = req.WithContext(ctx)

	done := make(chan struct{})
	go func() {
		env.srv.handleSSE(rec, req)
		close(done)
	}()

	// give handler time to subscribe
	time.Sleep(50 * time.Millisecond)

	seed(env.store, "Streamed")
	env.store.SetLoading(true, "", "")

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("handler did not exit after context cancellation")
	}

	views := parseSSEViews(rec.Body.String())
	if len(views) != 3 {
		t.Fatalf("got %d views, want initial plus 2 updates", len(views))
	}
	if len(views[1].Items) != 1 || views[1].Items[0].ID != "Streamed" {
		t.Errorf("second view items = %+v, want [Streamed]", views[1].Items)
	}
	if !views[2].IsLoading {
		t.Error("third view IsLoading = false, want true")
	}
}

func TestHandleSSE_ClientDisconnect(t *testing.T) {
	env := newTestEnv(t, Config{})

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/api/sse", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		env.srv.handleSSE(rec, req)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("handler did not exit after client disconnect")
	}
}

func TestHandleSSE_FeedClosed(t *testing.T) {
	env := newTestEnv(t, Config{})

	req := httptest.NewRequest(http.MethodGet, "/api/sse", nil)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		env.srv.handleSSE(rec, req)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	env.feed.Close()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("handler did not exit after feed was closed")
	}
}

func TestHandleSSE_NoGoroutineLeaks(t *testing.T) {
	// allow existing goroutines to settle
	runtime.GC()
	time.Sleep(100 * time.Millisecond)
	before := runtime.NumGoroutine()

	env := newTestEnv(t, Config{})

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer cancel()

			req := httptest.NewRequest(http.MethodGet, "/api/sse", nil).WithContext(ctx)
			env.srv.handleSSE(httptest.NewRecorder(), req)
		}()
	}
	wg.Wait()

	runtime.GC()
	time.Sleep(200 * time.Millisecond)

	after := runtime.NumGoroutine()
	if after > before+2 { // small tolerance for runtime variance
		t.Errorf("potential goroutine leak: before=%d, after=%d", before, after)
	}
}

func TestHandleSSE_SSENotSupported(t *testing.T) {
	env := newTestEnv(t, Config{})

	req := httptest.NewRequest(http.MethodGet, "/api/sse", nil)
	w := &nonFlushWriter{header: make(http.Header)}

	env.srv.handleSSE(w, req)

	if w.statusCode != http.StatusInternalServerError {
		t.Errorf("expected status %d, got %d", http.StatusInternalServerError, w.statusCode)
	}
}

type nonFlushWriter struct {
	header     http.Header
	statusCode int
	body       []byte
}

func (n *nonFlushWriter) Header() http.Header {
	return n.header
}

func (n *nonFlushWriter) Write(b []byte) (int, error) {
	n.body = append(n.body, b...)
	return len(b), nil
}

func (n *nonFlushWriter) WriteHeader(statusCode int) {
	n.statusCode = statusCode
}

func TestHandleSSE_Headers(t *testing.T) {
	env := newTestEnv(t, Config{})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/api/sse", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	env.srv.handleSSE(rec, req)

	expectedHeaders := map[string]string{
		"Content-Type":                "text/event-stream",
		"Cache-Control":               "no-cache",
		"Connection":                  "keep-alive",
		"Access-Control-Allow-Origin": "*",
	}
	for key, expected := range expectedHeaders {
		if got := rec.Header().Get(key); got != expected {
			t.Errorf("header %s = %q, want %q", key, got, expected)
		}
	}
}

// TestHandleSSE_ServerShutdownIntegration checks that SSE handlers exit when
// the server context is cancelled, over a real HTTP connection that supports
// write deadlines.
func TestHandleSSE_ServerShutdownIntegration(t *testing.T) {
	env := newTestEnv(t, Config{})
	seed(env.store, "Revenue")

	serverCtx, serverCancel := context.WithCancel(context.Background())

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// derive request context from server context (simulates BaseContext)
		env.srv.handleSSE(w, r.WithContext(serverCtx))
	})
	ts := httptest.NewServer(handler)
	defer ts.Close()

	connDone := make(chan error, 1)
	go func() {
		resp, err := ts.Client().Get(ts.URL)
		if err != nil {
			connDone <- err
			return
		}
		defer func() { _ = resp.Body.Close() }()

		buf := make([]byte, 1024)
		for {
			if _, err := resp.Body.Read(buf); err != nil {
				connDone <- nil // expected - connection closed
				return
			}
		}
	}()

	time.Sleep(100 * time.Millisecond)
	serverCancel()

	select {
	case <-connDone:
	case <-time.After(3 * time.Second):
		t.Fatal("SSE connection did not close after server shutdown")
	}
}

func TestHandleSSE_ConcurrentClientsShutdown(t *testing.T) {
	env := newTestEnv(t, Config{})
	seed(env.store, "Revenue")

	serverCtx, serverCancel := context.WithCancel(context.Background())

	numClients := 10
	var wg sync.WaitGroup
	started := make(chan struct{})
	var startedCount atomic.Int32

	for i := 0; i < numClients; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			req := httptest.NewRequest(http.MethodGet, "/api/sse", nil).WithContext(serverCtx)
			rec := httptest.NewRecorder()

			// use Add's return value to ensure only one goroutine closes the channel
			if startedCount.Add(1) == int32(numClients) {
				close(started)
			}
			env.srv.handleSSE(rec, req)
		}()
	}

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("clients did not start in time")
	}

	// give handlers time to subscribe, then publish while they listen
	time.Sleep(100 * time.Millisecond)
	seed(env.store, "Burst")
	serverCancel()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("not all handlers exited after shutdown")
	}
}

// --- Server Start ---

func TestStart_ServesAPI(t *testing.T) {
	env := newTestEnv(t, Config{})
	seed(env.store, "Revenue")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := env.srv.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	port := env.srv.Addr().(*net.TCPAddr).Port
	resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/api/results", port))
	if err != nil {
		t.Fatalf("GET /api/results error = %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	var view resultboard.View
	if err := json.NewDecoder(resp.Body).Decode(&view); err != nil {
		t.Fatalf("decode error = %v", err)
	}
	if len(view.Items) != 1 {
		t.Errorf("len(Items) = %d, want 1", len(view.Items))
	}
}

func TestStart_PortInUse_ReturnsError(t *testing.T) {
	// occupy a port
	ln, err := net.Listen("tcp", ":0")
	if err != nil {
		t.Fatalf("failed to create listener: %v", err)
	}
	defer func() { _ = ln.Close() }()

	port := ln.Addr().(*net.TCPAddr).Port
	env := newTestEnv(t, Config{Port: port})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err = env.srv.Start(ctx)
	if err == nil {
		t.Fatal("Start() on occupied port should return error")
	}
	if !strings.Contains(err.Error(), "failed to bind") {
		t.Errorf("expected bind error, got: %v", err)
	}
}

func TestStart_InvalidPort_ReturnsError(t *testing.T) {
	env := newTestEnv(t, Config{Port: -1})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := env.srv.Start(ctx); err == nil {
		t.Fatal("Start() with invalid port should return error")
	}
}

// --- Dashboard ---

// mockFS implements fs.ReadFileFS for testing dashboard rendering.
type mockFS struct {
	content string
}

func (m *mockFS) Open(name string) (fs.File, error) {
	return nil, fs.ErrNotExist
}

func (m *mockFS) ReadFile(name string) ([]byte, error) {
	if name == "assets/index.html" {
		return []byte(m.content), nil
	}
	return nil, fs.ErrNotExist
}

func TestHandleDashboard_Title(t *testing.T) {
	tests := []struct {
		name  string
		title string
		want  string
	}{
		{"custom", "Quarterly Review", "<title>Quarterly Review</title>"},
		{"default", "", "<title>Analysis Results</title>"},
		{"escapes html", "<script>alert('xss')</script>", "<title>&lt;script&gt;"},
		{"escapes ampersand", "Sales & Ops", "<title>Sales &amp; Ops</title>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, Config{
				Assets: &mockFS{content: "<title>{{.Title}}</title>"},
				Title:  tt.title,
			})

			rec := env.do(t, http.MethodGet, "/", "")
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
			}
			body := rec.Body.String()
			if !strings.Contains(body, tt.want) {
				t.Errorf("body = %q, want it to contain %q", body, tt.want)
			}
			if strings.Contains(body, "<script>") {
				t.Error("title should be HTML-escaped")
			}
		})
	}
}

func TestHandleDashboard_AssetsMissing(t *testing.T) {
	env := newTestEnv(t, Config{Title: "Custom Title"})

	rec := httptest.NewRecorder()
	env.srv.handleDashboard(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected status %d, got %d", http.StatusInternalServerError, rec.Code)
	}
}

func TestHandleDashboard_NonRootPath(t *testing.T) {
	env := newTestEnv(t, Config{Assets: &mockFS{content: "<title>{{.Title}}</title>"}})

	rec := env.do(t, http.MethodGet, "/other", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status %d for non-root path, got %d", http.StatusNotFound, rec.Code)
	}
}

// --- Benchmark ---

func BenchmarkHandleSSE_SingleClient(b *testing.B) {
	env := newTestEnv(b, Config{})
	names := make([]string, 10)
	for i := range names {
		names[i] = "Metric-" + string(rune('A'+i))
	}
	seed(env.store, names...)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		req := httptest.NewRequest(http.MethodGet, "/api/sse", nil).WithContext(ctx)
		env.srv.handleSSE(httptest.NewRecorder(), req)
		cancel()
	}
}
