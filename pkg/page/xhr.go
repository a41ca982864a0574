package page

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
)

// HTTPRequester 基于 net/http 的 Requester 生产实现。
// Send 之后的往返在独立 goroutine 中完成，状态与失败回调均异步触发。
type HTTPRequester struct {
	client *http.Client
	loc    Location

	mu         sync.Mutex
	state      ReadyState
	gen        uint64 // open 代数，往返结果仅在代数一致时生效
	method     string
	target     *url.URL
	header     http.Header
	status     int
	response   any
	rawHeaders string
	onState    []func()
	onError    []func()
}

// NewHTTPRequester 创建处于 unsent 状态的请求器
func NewHTTPRequester(client *http.Client, loc Location) *HTTPRequester {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPRequester{
		client: client,
		loc:    loc,
		state:  ReadyStateUnsent,
		header: make(http.Header),
	}
}

// Open 记录方法与目标并复位既有响应状态，同步触发一次状态回调。
// 代数自增使仍在途的上一次往返作废，其结果不会写回本次请求
func (r *HTTPRequester) Open(method string, target any) error {
	u, err := r.resolveTarget(target)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.gen++
	r.method = strings.ToUpper(method)
	r.target = u
	r.header = make(http.Header)
	r.status = 0
	r.response = nil
	r.rawHeaders = ""
	r.state = ReadyStateOpened
	fns := snapshot(r.onState)
	r.mu.Unlock()
	invoke(fns)
	return nil
}

// SetRequestHeader 追加请求头，open 之前或 send 之后调用被忽略
func (r *HTTPRequester) SetRequestHeader(name, value string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != ReadyStateOpened {
		return
	}
	r.header.Add(name, value)
}

// Send 发起异步传输，仅在 opened 状态下合法
func (r *HTTPRequester) Send(body any) error {
	r.mu.Lock()
	if r.state != ReadyStateOpened {
		state := r.state
		r.mu.Unlock()
		return fmt.Errorf("pagetap: send in state %s", state)
	}
	gen := r.gen
	method := r.method
	u := *r.target
	header := r.header.Clone()
	r.mu.Unlock()

	payload, contentType := encodeBody(body)
	go r.roundTrip(gen, method, &u, header, payload, contentType)
	return nil
}

// ReadyState 当前生命周期状态
func (r *HTTPRequester) ReadyState() ReadyState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Status 响应状态码，传输失败时为 0
func (r *HTTPRequester) Status() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// Response 响应载荷（文本）
func (r *HTTPRequester) Response() any {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.response
}

// ResponseHeadersRaw 原始响应头块：小写头名排序，CRLF 连接
func (r *HTTPRequester) ResponseHeadersRaw() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rawHeaders
}

// OnReadyStateChange 追加状态观察回调
func (r *HTTPRequester) OnReadyStateChange(fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onState = append(r.onState, fn)
}

// OnError 追加失败观察回调
func (r *HTTPRequester) OnError(fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onError = append(r.onError, fn)
}

func (r *HTTPRequester) resolveTarget(target any) (*url.URL, error) {
	var raw string
	switch t := target.(type) {
	case string:
		raw = t
	case URLParts:
		raw = t.String()
	case *URLParts:
		raw = t.String()
	default:
		raw = fmt.Sprint(target)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("pagetap: invalid request target %q: %w", raw, err)
	}
	if !u.IsAbs() {
		base := &url.URL{Scheme: r.loc.Protocol, Host: r.loc.Host}
		u = base.ResolveReference(u)
	}
	return u, nil
}

func (r *HTTPRequester) roundTrip(gen uint64, method string, u *url.URL, header http.Header, payload []byte, contentType string) {
	var bodyReader io.Reader
	if payload != nil {
		bodyReader = bytes.NewReader(payload)
	}
	req, err := http.NewRequest(method, u.String(), bodyReader)
	if err != nil {
		r.fail(gen)
		return
	}
	for name, values := range header {
		for _, v := range values {
			req.Header.Add(name, v)
		}
	}
	if contentType != "" && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		r.fail(gen)
		return
	}
	defer resp.Body.Close()

	r.transition(gen, func() {
		r.status = resp.StatusCode
		r.rawHeaders = rawHeaderBlock(resp.Header)
		r.state = ReadyStateHeadersReceived
	})
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		r.fail(gen)
		return
	}
	r.transition(gen, func() {
		r.state = ReadyStateLoading
	})
	r.transition(gen, func() {
		r.response = string(data)
		r.state = ReadyStateDone
	})
}

// transition 持锁应用一次状态变更，再在锁外按序触发回调。
// 代数不符说明本往返已被后来的 open 取代，整体丢弃
func (r *HTTPRequester) transition(gen uint64, apply func()) {
	r.mu.Lock()
	if gen != r.gen {
		r.mu.Unlock()
		return
	}
	apply()
	fns := snapshot(r.onState)
	r.mu.Unlock()
	invoke(fns)
}

// fail 传输失败：进入 done 且状态码归零，先状态回调后失败回调。
// 与 transition 同样受代数保护
func (r *HTTPRequester) fail(gen uint64) {
	r.mu.Lock()
	if gen != r.gen {
		r.mu.Unlock()
		return
	}
	r.status = 0
	r.response = nil
	r.state = ReadyStateDone
	stateFns := snapshot(r.onState)
	errFns := snapshot(r.onError)
	r.mu.Unlock()
	invoke(stateFns)
	invoke(errFns)
}

func snapshot(fns []func()) []func() {
	out := make([]func(), len(fns))
	copy(out, fns)
	return out
}

func invoke(fns []func()) {
	for _, fn := range fns {
		fn()
	}
}

// rawHeaderBlock 将响应头整理为 "name: value" 多行文本，
// 头名转小写后排序，多值以逗号连接
func rawHeaderBlock(h http.Header) string {
	lines := make([]string, 0, len(h))
	for name, values := range h {
		lines = append(lines, strings.ToLower(name)+": "+strings.Join(values, ", "))
	}
	sort.Strings(lines)
	var b strings.Builder
	for _, line := range lines {
		b.WriteString(line)
		b.WriteString("\r\n")
	}
	return b.String()
}

// encodeBody 将页面载荷编码为传输字节，并给出缺省 Content-Type
func encodeBody(body any) ([]byte, string) {
	switch b := body.(type) {
	case nil:
		return nil, ""
	case string:
		return []byte(b), ""
	case []byte:
		return b, ""
	case *FormData:
		return []byte(b.URLEncoded()), "application/x-www-form-urlencoded"
	case *Document:
		return []byte(b.Markup()), ""
	case *Blob:
		return b.Data, b.Type
	default:
		return []byte(fmt.Sprint(body)), ""
	}
}

func toString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case []byte:
		return string(s)
	default:
		return fmt.Sprint(v)
	}
}
