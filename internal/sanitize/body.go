package sanitize

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"pagetap/pkg/page"
)

// Body 将请求载荷归一为可记录的文本形态，返回字符串或 nil。
// 表单压平为 k=v 串，文档取内部标记，二进制一律丢弃，
// 普通对象 JSON 序列化，列表不做展开。
func Body(body any) any {
	if body == nil {
		return nil
	}
	switch b := body.(type) {
	case *page.FormData:
		if b == nil {
			return nil
		}
		return flattenForm(b)
	case *page.Document:
		if b == nil {
			return nil
		}
		return b.Markup()
	case *page.Blob:
		return nil
	case *bytes.Buffer:
		return nil
	case []byte:
		return nil
	case []int8, []int16, []int32, []int64,
		[]uint16, []uint32, []uint64,
		[]float32, []float64:
		return nil
	case string:
		return b
	}

	rv := reflect.ValueOf(body)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		return nil
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil
	}
	return string(data)
}

// flattenForm 按追加顺序压平为 "k1=v1&k2=v2"，不做转义
func flattenForm(f *page.FormData) string {
	if f == nil {
		return ""
	}
	entries := f.Entries()
	parts := make([]string, 0, len(entries))
	for _, e := range entries {
		parts = append(parts, e.Name+"="+valueString(e.Value))
	}
	return strings.Join(parts, "&")
}

func valueString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case []byte:
		return string(s)
	default:
		return fmt.Sprint(v)
	}
}
