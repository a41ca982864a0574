package recorder

import (
	"path/filepath"
	"sync"
	"testing"

	"pagetap/pkg/model"
)

// captureLogger 捕获日志键值对供断言
type captureLogger struct {
	mu      sync.Mutex
	entries []captureEntry
}

type captureEntry struct {
	msg string
	kv  []any
}

func (c *captureLogger) record(msg string, kv []any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, captureEntry{msg: msg, kv: kv})
}

func (c *captureLogger) Debug(msg string, kv ...any) { c.record(msg, kv) }
func (c *captureLogger) Info(msg string, kv ...any)  { c.record(msg, kv) }
func (c *captureLogger) Warn(msg string, kv ...any)  { c.record(msg, kv) }
func (c *captureLogger) Error(msg string, kv ...any) { c.record(msg, kv) }
func (c *captureLogger) Err(err error, msg string, kv ...any) {
	c.record(msg, append([]any{"error", err}, kv...))
}

func (c *captureLogger) hasKV(key string, value any) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range c.entries {
		for i := 0; i+1 < len(e.kv); i += 2 {
			if e.kv[i] == key && e.kv[i+1] == value {
				return true
			}
		}
	}
	return false
}

// TestSQLLogCarriesRecordTraceID 落库与查询的 SQL 日志都应携带关联标识，
// 排障时能按逻辑请求把日志和记录串起来
func TestSQLLogCarriesRecordTraceID(t *testing.T) {
	capture := &captureLogger{}
	r, err := Open(Options{
		DSN:    filepath.Join(t.TempDir(), "tap.db"),
		Prefix: "pagetap_",
		Logger: capture,
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()

	// 关闭底层连接迫使 SQL 报错，错误日志必须能定位到触发的记录
	sqlDB, err := r.db.DB()
	if err != nil {
		t.Fatalf("DB: %v", err)
	}
	sqlDB.Close()

	r.insert(job{tapID: "tap-1", rec: model.Record{
		RequestID: "req-trace", URL: "https://example.com", Type: model.PhaseOpen,
		Props: map[string]any{},
	}})
	if !capture.hasKV("traceId", "req-trace") {
		t.Error("insert SQL log line is missing the record's trace id")
	}

	if _, err := r.ByRequest("req-query"); err == nil {
		t.Fatal("query on a closed database should fail")
	}
	if !capture.hasKV("traceId", "req-query") {
		t.Error("query SQL log line is missing the trace id")
	}
}
