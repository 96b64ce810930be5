package config

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jpalmerr/resultboard"
	"github.com/jpalmerr/resultboard/internal/bus"
)

func TestBuildLogger_Formats(t *testing.T) {
	tests := []struct {
		name   string
		format string
		check  func(t *testing.T, out string)
	}{
		{
			name:   "json",
			format: "json",
			check: func(t *testing.T, out string) {
				var m map[string]any
				if err := json.Unmarshal([]byte(out), &m); err != nil {
					t.Fatalf("output is not JSON: %q", out)
				}
				if m["msg"] != "hello" {
					t.Errorf("msg = %v, want hello", m["msg"])
				}
			},
		},
		{
			name:   "text",
			format: "text",
			check: func(t *testing.T, out string) {
				if !strings.Contains(out, "msg=hello") {
					t.Errorf("output = %q, want msg=hello", out)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Log.Format = tt.format

			var buf bytes.Buffer
			logger, err := BuildLogger(cfg, &buf)
			if err != nil {
				t.Fatalf("BuildLogger() error = %v", err)
			}
			logger.Info("hello")
			tt.check(t, buf.String())
		})
	}
}

func TestBuildLogger_Level(t *testing.T) {
	cfg := Default()
	cfg.Log.Level = "warn"

	var buf bytes.Buffer
	logger, err := BuildLogger(cfg, &buf)
	if err != nil {
		t.Fatalf("BuildLogger() error = %v", err)
	}

	logger.Info("dropped")
	if buf.Len() != 0 {
		t.Errorf("info record written at warn level: %q", buf.String())
	}
	logger.Warn("kept")
	if !strings.Contains(buf.String(), "kept") {
		t.Errorf("warn record missing: %q", buf.String())
	}
}

func TestBuildLogger_InvalidLevel(t *testing.T) {
	cfg := Default()
	cfg.Log.Level = "loud"

	if _, err := BuildLogger(cfg, &bytes.Buffer{}); err == nil {
		t.Fatal("BuildLogger() expected error for invalid level")
	}
}

func TestBuildRegistry(t *testing.T) {
	cfg := Default()
	reg := BuildRegistry(cfg)
	if reg == nil {
		t.Fatal("BuildRegistry() = nil with metrics enabled")
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	found := false
	for _, f := range families {
		if f.GetName() == "go_goroutines" {
			found = true
		}
	}
	if !found {
		t.Error("go_goroutines not registered")
	}

	cfg.Metrics.Enabled = false
	if BuildRegistry(cfg) != nil {
		t.Error("BuildRegistry() != nil with metrics disabled")
	}
}

func TestBuildStoreOptions(t *testing.T) {
	cfg := Default()
	reg := prometheus.NewRegistry()

	opts := BuildStoreOptions(cfg, nil, reg)
	if len(opts) != 1 {
		t.Fatalf("len(opts) = %d, want 1 (registerer only)", len(opts))
	}

	st, err := resultboard.New(opts...)
	if err != nil {
		t.Fatalf("resultboard.New() error = %v", err)
	}
	st.UpdateResults(resultboard.Batch{SessionID: "s1", MessageID: "m1"})

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	found := false
	for _, f := range families {
		if f.GetName() == "resultboard_batches_total" {
			found = true
		}
	}
	if !found {
		t.Error("resultboard_batches_total not registered")
	}

	cfg.Metrics.Enabled = false
	if got := len(BuildStoreOptions(cfg, nil, reg)); got != 0 {
		t.Errorf("len(opts) with metrics disabled = %d, want 0", got)
	}
}

func TestBuildBus_DefaultIsDisabled(t *testing.T) {
	b, err := BuildBus(Default())
	if err != nil {
		t.Fatalf("BuildBus() error = %v", err)
	}
	if b != nil {
		t.Errorf("BuildBus(Default()) = %T, want nil", b)
	}
}

func TestBuildBus(t *testing.T) {
	cfg := Default()
	cfg.Bus.Driver = DriverMemory

	b, err := BuildBus(cfg)
	if err != nil {
		t.Fatalf("BuildBus() error = %v", err)
	}
	mb, ok := b.(*bus.MemoryBus)
	if !ok {
		t.Fatalf("BuildBus() = %T, want *bus.MemoryBus", b)
	}
	defer mb.Close()

	got := make(chan string, 1)
	_, err = mb.Subscribe(context.Background(), cfg.Bus.Subject, func(m *bus.Message) []byte {
		got <- string(m.Data)
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	if err := mb.Publish(context.Background(), cfg.Bus.Subject, []byte("ping")); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	select {
	case v := <-got:
		if v != "ping" {
			t.Errorf("received %q, want ping", v)
		}
	case <-time.After(time.Second):
		t.Fatal("message not delivered")
	}

	cfg.Bus.Driver = DriverNone
	b, err = BuildBus(cfg)
	if err != nil || b != nil {
		t.Errorf("BuildBus(none) = %v, %v, want nil, nil", b, err)
	}
}

func TestRequestTimeout(t *testing.T) {
	cfg := Default()
	if got := RequestTimeout(cfg); got != 5*time.Second {
		t.Errorf("RequestTimeout() = %v, want 5s", got)
	}

	cfg.Bus.Timeout = Duration(2 * time.Second)
	if got := RequestTimeout(cfg); got != 2*time.Second {
		t.Errorf("RequestTimeout() = %v, want 2s", got)
	}
}
