package resultboard

import (
	"reflect"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/jpalmerr/resultboard/normalize"
)

func wellFormedItems() []RawItem {
	return []RawItem{
		{ID: "c1", Type: "chart", Data: map[string]any{"xAxis": map[string]any{}, "series": []any{}}},
		{ID: "i1", Type: "image", Data: "iVBORw0KGgoAAAANSUhEUg"},
		{ID: "t1", Type: "table", Data: []any{map[string]any{"a": 1.0}}},
		{ID: "v1", Type: "csv", Data: "a,b\n1,2"},
		{ID: "m1", Type: "metric", Data: map[string]any{"title": "Users", "value": 10.0}},
		{ID: "n1", Type: "insight", Data: "steady growth"},
		{ID: "f1", Type: "file", Data: map[string]any{"fileName": "out.pdf"}, Source: SourceCached},
	}
}

func TestRestoreResults_Equivalence(t *testing.T) {
	s := newTestStore(t)
	items := wellFormedItems()

	stats := s.RestoreResults("s1", "m1", items)

	if stats.TotalItems != len(items) || stats.ValidItems != len(items) || stats.InvalidItems != 0 {
		t.Errorf("stats = %+v, want all %d items valid", stats, len(items))
	}
	if len(stats.Errors) != 0 {
		t.Errorf("Errors = %v, want none", stats.Errors)
	}
	got := s.GetCurrentResults()
	if len(got) != len(items) {
		t.Fatalf("len(GetCurrentResults()) = %d, want %d", len(got), len(items))
	}
	for _, it := range got {
		if it.Source != SourceRestored {
			t.Errorf("item %s Source = %q, want restored", it.ID, it.Source)
		}
		if it.Metadata.SessionID != "s1" || it.Metadata.MessageID != "m1" {
			t.Errorf("item %s Metadata = %+v, want s1/m1", it.ID, it.Metadata)
		}
		if it.Metadata.Timestamp != testTime.UnixMilli() {
			t.Errorf("item %s Timestamp = %d, want default", it.ID, it.Metadata.Timestamp)
		}
	}
	for _, typ := range normalize.Types() {
		if stats.ItemsByType[typ] != 1 {
			t.Errorf("ItemsByType[%s] = %d, want 1", typ, stats.ItemsByType[typ])
		}
	}
}

func TestRestoreResults_EmitsDataRestored(t *testing.T) {
	s := newTestStore(t)
	events := recordEvents(s, EventDataRestored, EventHistoricalEmptyResult)

	s.RestoreResults("s1", "m1", []RawItem{
		metricItem("k1", "A"),
		{ID: "bad", Type: "metric", Data: "nope"},
	})

	want := []Event{{Type: EventDataRestored, Payload: DataRestored{
		SessionID:    "s1",
		MessageID:    "m1",
		ItemCount:    1,
		ValidCount:   1,
		InvalidCount: 1,
		ItemsByType:  map[normalize.Type]int{normalize.TypeMetric: 1},
	}}}
	if !reflect.DeepEqual(*events, want) {
		t.Errorf("events = %+v, want %+v", *events, want)
	}
}

func TestRestoreResults_ListenersGetOwnItemsByType(t *testing.T) {
	s := newTestStore(t)

	s.On(EventDataRestored, func(ev Event) {
		p := ev.Payload.(DataRestored)
		p.ItemsByType[normalize.TypeMetric] = 99
		delete(p.ItemsByType, normalize.TypeInsight)
	})
	var seen map[normalize.Type]int
	s.On(EventDataRestored, func(ev Event) {
		seen = ev.Payload.(DataRestored).ItemsByType
	})

	stats := s.RestoreResults("s1", "m1", []RawItem{
		metricItem("k1", "A"),
		{ID: "i1", Type: "insight", Data: "note"},
	})

	want := map[normalize.Type]int{normalize.TypeMetric: 1, normalize.TypeInsight: 1}
	if !reflect.DeepEqual(seen, want) {
		t.Errorf("second listener ItemsByType = %v, want %v", seen, want)
	}
	if !reflect.DeepEqual(stats.ItemsByType, want) {
		t.Errorf("stats.ItemsByType = %v, want %v", stats.ItemsByType, want)
	}
}

func TestRestoreResults_PartialFailures(t *testing.T) {
	s := newTestStore(t)

	stats := s.RestoreResults("s1", "m1", []RawItem{
		metricItem("k1", "A"),
		{},
		{ID: "x1", Type: "pie", Data: map[string]any{}},
		{ID: "x2", Type: "image", Data: ""},
		{ID: "x3", Type: "metric", Data: map[string]any{"title": "no value"}},
	})

	if stats.TotalItems != 5 || stats.ValidItems != 1 || stats.InvalidItems != 4 {
		t.Errorf("stats = %+v, want total 5 valid 1 invalid 4", stats)
	}
	if len(stats.Errors) != 4 {
		t.Fatalf("Errors = %v, want 4 entries", stats.Errors)
	}
	if !strings.Contains(stats.Errors[0], "null") {
		t.Errorf("Errors[0] = %q, want null item reason", stats.Errors[0])
	}
	if !strings.Contains(stats.Errors[1], "x1") {
		t.Errorf("Errors[1] = %q, want it to name item x1", stats.Errors[1])
	}
	if ids := itemIDs(s.GetCurrentResults()); !reflect.DeepEqual(ids, []string{"k1"}) {
		t.Errorf("GetCurrentResults() ids = %v, want [k1]", ids)
	}
	if got := testutil.ToFloat64(s.metrics.restoreItems.WithLabelValues("invalid")); got != 4 {
		t.Errorf("invalid restore items = %v, want 4", got)
	}
}

func TestRestoreResults_EmptyHistory(t *testing.T) {
	s := newTestStore(t)
	events := recordEvents(s, EventHistoricalEmptyResult, EventDataRestored)

	stats := s.RestoreResults("s1", "m1", nil)

	if stats.TotalItems != 0 || stats.ValidItems != 0 || stats.InvalidItems != 0 {
		t.Errorf("stats = %+v, want zeroes", stats)
	}
	if stats.ItemsByType == nil || stats.Errors == nil {
		t.Error("stats maps and slices should be empty, not nil")
	}
	if got := s.GetCurrentResults(); len(got) != 0 {
		t.Errorf("GetCurrentResults() = %v, want empty", got)
	}
	want := []Event{{Type: EventHistoricalEmptyResult, Payload: HistoricalEmptyResult{SessionID: "s1", MessageID: "m1"}}}
	if !reflect.DeepEqual(*events, want) {
		t.Errorf("events = %+v, want exactly %+v", *events, want)
	}
}

func TestRestoreResults_AllInvalidIsEmptyResult(t *testing.T) {
	s := newTestStore(t)
	s.UpdateResults(Batch{SessionID: "s1", MessageID: "m1", Items: []RawItem{metricItem("k1", "A")}})
	s.SetLoading(true, "r1", "")
	events := recordEvents(s, EventHistoricalEmptyResult)

	stats := s.RestoreResults("s1", "m1", []RawItem{{ID: "x", Type: "file", Data: "nope"}})

	if stats.InvalidItems != 1 || stats.ValidItems != 0 {
		t.Errorf("stats = %+v, want one invalid", stats)
	}
	if len(*events) != 1 {
		t.Errorf("events = %+v, want one historical-empty-result", *events)
	}
	if s.HasCurrentData() {
		t.Error("HasCurrentData() = true, want empty current view")
	}
	if s.IsLoading() {
		t.Error("IsLoading() = true, want false after empty restore")
	}
}

func TestRestoreResults_ClearsCurrentSession(t *testing.T) {
	s := newTestStore(t)
	s.UpdateResults(Batch{SessionID: "old", MessageID: "m1", Items: []RawItem{metricItem("k1", "A")}})
	s.SetError("previous failure")

	s.RestoreResults("s2", "m5", []RawItem{metricItem("k2", "B")})

	st := s.Snapshot()
	if _, ok := st.Results["old"]; ok {
		t.Error("restore kept the previous current session")
	}
	if st.CurrentSessionID != "s2" || st.CurrentMessageID != "m5" {
		t.Errorf("current = (%q, %q), want (s2, m5)", st.CurrentSessionID, st.CurrentMessageID)
	}
	if st.Error != nil {
		t.Errorf("Error = %+v, want cleared", st.Error)
	}
}

func TestRestoreResults_ReplacesSiblingMessages(t *testing.T) {
	s := newTestStore(t)
	s.UpdateResults(Batch{SessionID: "s1", MessageID: "m1", Items: []RawItem{metricItem("k1", "A")}})

	s.RestoreResults("s1", "m2", []RawItem{metricItem("k2", "B")})

	st := s.Snapshot()
	if got := len(st.Results["s1"]); got != 1 {
		t.Errorf("messages in s1 = %d, want 1", got)
	}
	if ids := itemIDs(st.Results["s1"]["m2"]); !reflect.DeepEqual(ids, []string{"k2"}) {
		t.Errorf("s1/m2 ids = %v, want [k2]", ids)
	}
}

func TestRestoreResults_RestoredCounters(t *testing.T) {
	s := newTestStore(t)

	s.RestoreResults("s1", "m1", nil)
	s.RestoreResults("s1", "m1", []RawItem{metricItem("k1", "A")})

	if got := testutil.ToFloat64(s.metrics.restores.WithLabelValues("empty")); got != 1 {
		t.Errorf("empty restores = %v, want 1", got)
	}
	if got := testutil.ToFloat64(s.metrics.restores.WithLabelValues("restored")); got != 1 {
		t.Errorf("restored = %v, want 1", got)
	}
}
