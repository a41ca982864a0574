package page

import (
	"io"
	"net/http"
	"net/url"
	"sync"
)

// PixelImage 基于 net/http 的 Image 生产实现：
// 写入 src 即异步发起一次 GET 加载（典型追踪像素用法）。
type PixelImage struct {
	client *http.Client
	loc    Location

	mu  sync.Mutex
	src string
}

// NewPixelImage 创建 src 为空的图片元素
func NewPixelImage(client *http.Client, loc Location) *PixelImage {
	if client == nil {
		client = http.DefaultClient
	}
	return &PixelImage{client: client, loc: loc}
}

// Src 当前 src 属性值
func (p *PixelImage) Src() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.src
}

// SetSrc 写入 src 并触发异步加载，加载结果被丢弃
func (p *PixelImage) SetSrc(value string) {
	p.mu.Lock()
	p.src = value
	p.mu.Unlock()
	go p.load(value)
}

func (p *PixelImage) load(value string) {
	u, err := url.Parse(value)
	if err != nil {
		return
	}
	if !u.IsAbs() {
		base := &url.URL{Scheme: p.loc.Protocol, Host: p.loc.Host}
		u = base.ResolveReference(u)
	}
	resp, err := p.client.Get(u.String())
	if err != nil {
		return
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}
