package recorder

import (
	"path/filepath"
	"testing"

	"github.com/tidwall/gjson"

	"pagetap/pkg/model"
)

func openTestRecorder(t *testing.T, dsn string, redact []string) *Recorder {
	t.Helper()
	r, err := Open(Options{
		DSN:    dsn,
		Prefix: "pagetap_",
		Redact: redact,
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return r
}

func TestRecordPersistAndQuery(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "tap.db")
	r := openTestRecorder(t, dsn, []string{"props.requestBody"})

	url := "https://shop.example.com/api/items"
	r.Record("tap-1", model.Record{
		RequestID: "req-1", URL: url, Type: model.PhaseOpen, Props: map[string]any{},
	})
	r.Record("tap-1", model.Record{
		RequestID: "req-1", URL: url, Type: model.PhaseSend,
		Props: map[string]any{"requestBody": "secret=1"},
	})
	r.Record("tap-1", model.Record{
		RequestID: "req-1", URL: url, Type: model.PhaseComplete,
		Props: map[string]any{
			"url": url, "method": "GET", "timeStamp": int64(1724500000000),
			"statusCode": 200, "responseBody": "{}",
			"responseHeaders": []model.HeaderPair{{Name: "content-type", Value: "application/json"}},
		},
	})
	r.Record("tap-1", model.Record{
		RequestID: "req-2", URL: "https://t.example.com/p.gif", Type: model.PhaseTracking,
		Props: map[string]any{"timeStamp": int64(1724500000123), "url": "https://t.example.com/p.gif", "method": "GET"},
	})

	if err := r.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// 重新打开同一文件验证落盘
	r2 := openTestRecorder(t, dsn, nil)
	defer r2.Close()

	rows, err := r2.ByRequest("req-1")
	if err != nil {
		t.Fatalf("ByRequest: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(rows))
	}
	if rows[0].Type != "open" || rows[1].Type != "send" || rows[2].Type != "complete" {
		t.Errorf("row order = %s/%s/%s", rows[0].Type, rows[1].Type, rows[2].Type)
	}

	complete := rows[2]
	if complete.Method != "GET" || complete.StatusCode != 200 {
		t.Errorf("summary columns = %q/%d", complete.Method, complete.StatusCode)
	}
	if complete.Timestamp != 1724500000000 {
		t.Errorf("Timestamp = %d", complete.Timestamp)
	}
	if complete.URL != url {
		t.Errorf("URL = %q", complete.URL)
	}

	send := rows[1]
	if got := gjson.Get(send.Payload, "props.requestBody").String(); got != "[redacted]" {
		t.Errorf("requestBody in payload = %q, want redacted", got)
	}
	if send.Timestamp == 0 {
		t.Error("send row should carry a fallback timestamp")
	}

	counts, err := r2.CountByType()
	if err != nil {
		t.Fatalf("CountByType: %v", err)
	}
	if counts["open"] != 1 || counts["send"] != 1 || counts["complete"] != 1 || counts["tracking"] != 1 {
		t.Errorf("counts = %v", counts)
	}
}

func TestRecentOrdersNewestFirst(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "tap.db")
	r := openTestRecorder(t, dsn, nil)

	for i, id := range []string{"a", "b", "c"} {
		r.Record("tap-1", model.Record{
			RequestID: id, URL: "https://example.com", Type: model.PhaseOpen,
			Props: map[string]any{"timeStamp": int64(i)},
		})
	}
	if err := r.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	r2 := openTestRecorder(t, dsn, nil)
	defer r2.Close()

	rows, err := r2.Recent(2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	if rows[0].RequestID != "c" || rows[1].RequestID != "b" {
		t.Errorf("Recent order = %s,%s, want c,b", rows[0].RequestID, rows[1].RequestID)
	}
}

func TestScrubHeadersMasksListedNames(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "tap.db")
	r, err := Open(Options{
		DSN:          dsn,
		Prefix:       "pagetap_",
		ScrubHeaders: []string{"Authorization", "x-api-key"},
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	url := "https://shop.example.com/api/items"
	r.Record("tap-1", model.Record{
		RequestID: "req-h", URL: url, Type: model.PhaseSetRequestHeader,
		Props: map[string]any{"name": "authorization", "value": "Bearer tok"},
	})
	r.Record("tap-1", model.Record{
		RequestID: "req-h", URL: url, Type: model.PhaseSetRequestHeader,
		Props: map[string]any{"name": "X-Api-Key", "value": "k-123"},
	})
	r.Record("tap-1", model.Record{
		RequestID: "req-h", URL: url, Type: model.PhaseSetRequestHeader,
		Props: map[string]any{"name": "X-Test", "value": "1"},
	})
	if err := r.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	r2 := openTestRecorder(t, dsn, nil)
	defer r2.Close()
	rows, err := r2.ByRequest("req-h")
	if err != nil || len(rows) != 3 {
		t.Fatalf("rows = %v, err = %v", rows, err)
	}

	// 名单匹配不区分大小写，名单外的头部保持原值
	for i, want := range []string{"[redacted]", "[redacted]", "1"} {
		if got := gjson.Get(rows[i].Payload, "props.value").String(); got != want {
			t.Errorf("row %d value = %q, want %q", i, got, want)
		}
	}
	if got := gjson.Get(rows[0].Payload, "props.name").String(); got != "authorization" {
		t.Errorf("header name rewritten to %q", got)
	}
}

func TestRedactMissingPathLeavesPayloadAlone(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "tap.db")
	r := openTestRecorder(t, dsn, []string{"props.requestBody"})

	r.Record("tap-1", model.Record{
		RequestID: "req-x", URL: "https://example.com", Type: model.PhaseOpen, Props: map[string]any{},
	})
	if err := r.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	r2 := openTestRecorder(t, dsn, nil)
	defer r2.Close()
	rows, err := r2.ByRequest("req-x")
	if err != nil || len(rows) != 1 {
		t.Fatalf("rows = %v, err = %v", rows, err)
	}
	if gjson.Get(rows[0].Payload, "props.requestBody").Exists() {
		t.Error("redaction invented a requestBody field")
	}
}
