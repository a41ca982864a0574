package page

import (
	"net/url"
	"strings"
)

// FormEntry 表单数据中的一项
type FormEntry struct {
	Name  string
	Value any
}

// FormData 保序表单容器，Append 依次追加
type FormData struct {
	entries []FormEntry
}

// NewFormData 创建空表单
func NewFormData() *FormData {
	return &FormData{}
}

// Append 追加一项，不去重
func (f *FormData) Append(name string, value any) {
	f.entries = append(f.entries, FormEntry{Name: name, Value: value})
}

// Entries 按追加顺序返回全部条目
func (f *FormData) Entries() []FormEntry {
	out := make([]FormEntry, len(f.entries))
	copy(out, f.entries)
	return out
}

// URLEncoded 线上传输用的 urlencoded 编码（带转义）
func (f *FormData) URLEncoded() string {
	values := url.Values{}
	for _, e := range f.entries {
		values.Add(e.Name, toString(e.Value))
	}
	return values.Encode()
}

// Element 标记元素，Inner 为其内部标记文本
type Element struct {
	Tag   string
	Inner string
}

// Document 标记文档，Root 为根元素
type Document struct {
	Root *Element
}

// Markup 返回根元素的内部标记，根缺失时为空串
func (d *Document) Markup() string {
	if d == nil || d.Root == nil {
		return ""
	}
	return d.Root.Inner
}

// Blob 二进制载荷
type Blob struct {
	Type string
	Data []byte
}

// URLParts 结构化 URL：协议、域名、路径三段
type URLParts struct {
	Protocol string
	Domain   string
	Path     string
}

// String 拼接为 protocol://domain/path 形式
func (u URLParts) String() string {
	path := u.Path
	if path != "" && !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return u.Protocol + "://" + u.Domain + path
}
