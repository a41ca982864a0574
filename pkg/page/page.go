package page

import "net/http"

// ReadyState 请求生命周期状态
type ReadyState int

const (
	ReadyStateUnsent ReadyState = iota
	ReadyStateOpened
	ReadyStateHeadersReceived
	ReadyStateLoading
	ReadyStateDone
)

// String 返回状态的字符串表示
func (s ReadyState) String() string {
	switch s {
	case ReadyStateUnsent:
		return "unsent"
	case ReadyStateOpened:
		return "opened"
	case ReadyStateHeadersReceived:
		return "headers_received"
	case ReadyStateLoading:
		return "loading"
	case ReadyStateDone:
		return "done"
	default:
		return "unknown"
	}
}

// Requester 页面请求 API 契约：open/send/setRequestHeader 加异步观察回调。
// 回调按注册顺序追加执行，注册互不覆盖。
type Requester interface {
	// Open 初始化一次逻辑请求，target 允许字符串或 URLParts
	Open(method string, target any) error

	// SetRequestHeader 追加一个请求头
	SetRequestHeader(name, value string)

	// Send 发起传输，body 允许任意页面载荷
	Send(body any) error

	// ReadyState 当前生命周期状态
	ReadyState() ReadyState

	// Status 响应状态码（未完成时为 0）
	Status() int

	// Response 响应载荷
	Response() any

	// ResponseHeadersRaw 原始响应头块（CRLF 连接的多行文本）
	ResponseHeadersRaw() string

	// OnReadyStateChange 注册状态变迁观察回调
	OnReadyStateChange(fn func())

	// OnError 注册传输失败观察回调
	OnError(fn func())
}

// Image 图片元素契约：src 属性的读写
type Image interface {
	Src() string
	SetSrc(value string)
}

// Location 当前页面位置，Protocol 不含冒号（如 "https"）
type Location struct {
	Protocol string
	Host     string
}

// Origin 返回协议加主机构成的源
func (l Location) Origin() string {
	return l.Protocol + "://" + l.Host
}

// Environment 页面环境：位置信息与请求/图片构造器。
// 构造器字段即补丁层包装的"全局操作"。
type Environment struct {
	Location     Location
	NewRequester func() Requester
	NewImage     func() Image
}

// NewEnvironment 创建绑定到 net/http 生产实现的页面环境
func NewEnvironment(loc Location, client *http.Client) *Environment {
	if client == nil {
		client = http.DefaultClient
	}
	return &Environment{
		Location:     loc,
		NewRequester: func() Requester { return NewHTTPRequester(client, loc) },
		NewImage:     func() Image { return NewPixelImage(client, loc) },
	}
}
