package intercept

import (
	"sync"
	"time"

	"pagetap/internal/bus"
	"pagetap/internal/ids"
	"pagetap/internal/logger"
	"pagetap/internal/sched"
	"pagetap/pkg/model"
	"pagetap/pkg/page"
)

// Options 引擎依赖项，零值字段取默认实现
type Options struct {
	Sink      bus.Sink
	IDs       ids.Source
	Scheduler sched.Scheduler
	Logger    logger.Logger
	Clock     func() time.Time
}

// Engine 拦截引擎：把页面环境的请求与图片构造器替换为包装版本，
// 被包装对象的每个可观测阶段都会向 Sink 发布一条记录。
type Engine struct {
	sink  bus.Sink
	ids   ids.Source
	sched sched.Scheduler
	log   logger.Logger
	clock func() time.Time

	env *page.Environment

	mu        sync.Mutex
	installed bool
	origReq   func() page.Requester
	origImg   func() page.Image

	ownedLoop *sched.Loop
}

// NewEngine 创建绑定到给定页面环境的拦截引擎
func NewEngine(env *page.Environment, opts Options) *Engine {
	e := &Engine{
		sink:  opts.Sink,
		ids:   opts.IDs,
		sched: opts.Scheduler,
		log:   opts.Logger,
		clock: opts.Clock,
		env:   env,
	}
	if e.sink == nil {
		e.sink = nopSink{}
	}
	if e.ids == nil {
		e.ids = ids.Random{}
	}
	if e.sched == nil {
		loop := sched.NewLoop(0)
		e.sched = loop
		e.ownedLoop = loop
	}
	if e.log == nil {
		e.log = logger.NewNop()
	}
	if e.clock == nil {
		e.clock = time.Now
	}
	return e
}

// Install 替换环境构造器，重复调用是空操作
func (e *Engine) Install() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.installed {
		return
	}
	e.origReq = e.env.NewRequester
	e.origImg = e.env.NewImage

	origReq := e.origReq
	e.env.NewRequester = func() page.Requester {
		return e.WrapRequester(origReq())
	}
	origImg := e.origImg
	e.env.NewImage = func() page.Image {
		return e.WrapImage(origImg())
	}
	e.installed = true
	e.log.Info("拦截已安装", "origin", e.env.Location.Origin())
}

// Uninstall 恢复原始构造器，未安装时是空操作。
// 已经创建出的包装对象不受影响，继续照常委托。
func (e *Engine) Uninstall() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.installed {
		return
	}
	e.env.NewRequester = e.origReq
	e.env.NewImage = e.origImg
	e.origReq = nil
	e.origImg = nil
	e.installed = false
	e.log.Info("拦截已卸载", "origin", e.env.Location.Origin())
}

// Installed 是否处于安装状态
func (e *Engine) Installed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.installed
}

// WrapRequester 包装单个请求对象
func (e *Engine) WrapRequester(r page.Requester) page.Requester {
	return &wrappedRequester{inner: r, eng: e}
}

// WrapImage 包装单个图片元素
func (e *Engine) WrapImage(img page.Image) page.Image {
	return &wrappedImage{inner: img, eng: e}
}

// Close 卸载并回收引擎自建的调度循环
func (e *Engine) Close() {
	e.Uninstall()
	if e.ownedLoop != nil {
		e.ownedLoop.Close()
	}
}

func (e *Engine) publish(rec model.Record) {
	e.sink.Publish(rec)
	e.log.Debug("发布拦截记录", "type", string(rec.Type), "requestId", rec.RequestID, "url", rec.URL)
}

func (e *Engine) location() page.Location {
	return e.env.Location
}

type nopSink struct{}

func (nopSink) Publish(model.Record) {}
