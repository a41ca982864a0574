package intercept

import (
	"sync"
	"sync/atomic"

	"pagetap/internal/protocol"
	"pagetap/internal/sanitize"
	"pagetap/pkg/model"
	"pagetap/pkg/page"
)

// wrappedRequester 装饰单个页面请求对象：每个阶段先发记录再原样委托。
// 每次 Open 视为一次新的逻辑请求，分配新标识并复位终态去重。
type wrappedRequester struct {
	inner page.Requester
	eng   *Engine

	mu        sync.Mutex
	requestID string
	url       string
	method    string
	openedAt  int64
	observed  bool
	completed atomic.Bool
}

// Open 分配新逻辑请求标识并发布 open 记录，随后委托。
// 此刻的时间戳被记住，complete 记录反映整个生命周期的起点。
func (w *wrappedRequester) Open(method string, target any) error {
	u := sanitize.URL(target, w.eng.location())

	w.mu.Lock()
	w.requestID = w.eng.ids.NewID()
	w.url = u
	w.method = method
	w.openedAt = w.eng.clock().UnixMilli()
	w.completed.Store(false)
	w.ensureObservedLocked()
	id := w.requestID
	w.mu.Unlock()

	w.eng.publish(model.Record{
		RequestID: id,
		URL:       u,
		Type:      model.PhaseOpen,
		Props:     map[string]any{},
	})
	return w.inner.Open(method, target)
}

// SetRequestHeader 发布 setRequestHeader 记录，随后委托
func (w *wrappedRequester) SetRequestHeader(name, value string) {
	id, u := w.current()
	w.eng.publish(model.Record{
		RequestID: id,
		URL:       u,
		Type:      model.PhaseSetRequestHeader,
		Props: map[string]any{
			"name":  name,
			"value": value,
		},
	})
	w.inner.SetRequestHeader(name, value)
}

// Send 发布带归一化载荷的 send 记录，随后委托
func (w *wrappedRequester) Send(body any) error {
	id, u := w.current()
	w.eng.publish(model.Record{
		RequestID: id,
		URL:       u,
		Type:      model.PhaseSend,
		Props: map[string]any{
			"requestBody": sanitize.Body(body),
		},
	})
	return w.inner.Send(body)
}

func (w *wrappedRequester) ReadyState() page.ReadyState { return w.inner.ReadyState() }
func (w *wrappedRequester) Status() int                 { return w.inner.Status() }
func (w *wrappedRequester) Response() any               { return w.inner.Response() }
func (w *wrappedRequester) ResponseHeadersRaw() string  { return w.inner.ResponseHeadersRaw() }

func (w *wrappedRequester) OnReadyStateChange(fn func()) { w.inner.OnReadyStateChange(fn) }
func (w *wrappedRequester) OnError(fn func())            { w.inner.OnError(fn) }

// ensureObservedLocked 在首个 Open 时注册观察回调，每个实例仅一次
func (w *wrappedRequester) ensureObservedLocked() {
	if w.observed {
		return
	}
	w.observed = true
	w.inner.OnReadyStateChange(w.onStateChange)
	w.inner.OnError(w.onTransportError)
}

// onStateChange 终态且状态码 2xx 时发布 complete 记录，
// 同一逻辑请求至多一条
func (w *wrappedRequester) onStateChange() {
	if w.inner.ReadyState() != page.ReadyStateDone {
		return
	}
	status := w.inner.Status()
	if status < 200 || status > 299 {
		return
	}
	if !w.completed.CompareAndSwap(false, true) {
		return
	}

	id, u, method, openedAt := w.snapshot()
	w.eng.publish(model.Record{
		RequestID: id,
		URL:       u,
		Type:      model.PhaseComplete,
		Props: map[string]any{
			"url":             u,
			"method":          method,
			"timeStamp":       openedAt,
			"statusCode":      status,
			"responseHeaders": protocol.ParseRawHeaders(w.inner.ResponseHeadersRaw()),
			"responseBody":    sanitize.Body(w.inner.Response()),
		},
	})
}

// onTransportError 发布 error 记录，不去重
func (w *wrappedRequester) onTransportError() {
	id, u := w.current()
	w.eng.publish(model.Record{
		RequestID: id,
		URL:       u,
		Type:      model.PhaseError,
		Props:     map[string]any{},
	})
}

func (w *wrappedRequester) current() (id, url string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.requestID, w.url
}

func (w *wrappedRequester) snapshot() (id, url, method string, openedAt int64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.requestID, w.url, w.method, w.openedAt
}
