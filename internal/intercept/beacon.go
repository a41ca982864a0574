package intercept

import (
	"pagetap/internal/sanitize"
	"pagetap/pkg/model"
	"pagetap/pkg/page"
)

// wrappedImage 装饰图片元素：src 写入立即委托，
// tracking 记录延后到下一拍发布，绝不与写入同步。
type wrappedImage struct {
	inner page.Image
	eng   *Engine
}

func (w *wrappedImage) Src() string {
	return w.inner.Src()
}

// SetSrc 委托写入，并调度一条 tracking 记录。
// 每次写入都是一次独立的逻辑请求，分配新标识。
func (w *wrappedImage) SetSrc(value string) {
	w.inner.SetSrc(value)

	u := sanitize.URL(value, w.eng.location())
	id := w.eng.ids.NewID()
	ts := w.eng.clock().UnixMilli()
	w.eng.sched.Defer(func() {
		w.eng.publish(model.Record{
			RequestID: id,
			URL:       u,
			Type:      model.PhaseTracking,
			Props: map[string]any{
				"timeStamp": ts,
				"url":       u,
				"method":    "GET",
			},
		})
	})
}
