package service

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"pagetap/internal/bus"
	"pagetap/internal/intercept"
	"pagetap/internal/logger"
	"pagetap/internal/recorder"
	"pagetap/pkg/model"
	"pagetap/pkg/page"
)

// Tap 单个页面环境上的一套拦截装置：引擎加专属广播总线
type Tap struct {
	ID  model.TapID
	env *page.Environment
	eng *intercept.Engine
	bus *bus.Bus
	wg  sync.WaitGroup
}

// Info 当前装置信息
func (t *Tap) Info() model.TapInfo {
	return model.TapInfo{
		ID:        t.ID,
		Origin:    t.env.Location.Origin(),
		Installed: t.eng.Installed(),
	}
}

// Subscribe 订阅该装置发布的全部拦截记录，buffer 非正时取装置默认容量
func (t *Tap) Subscribe(buffer int) *bus.Subscription {
	return t.bus.Subscribe(buffer)
}

// Stats 该装置的发布计数
func (t *Tap) Stats() model.TapStats {
	return t.bus.Stats()
}

// Pause 暂停拦截：恢复环境原始构造器，记录停止产生
func (t *Tap) Pause() {
	t.eng.Uninstall()
}

// Resume 重新安装拦截
func (t *Tap) Resume() {
	t.eng.Install()
}

// Manager 全局拦截装置管理器
type Manager struct {
	mu   sync.RWMutex
	taps map[model.TapID]*Tap
	envs map[*page.Environment]model.TapID
	log  logger.Logger
	rec  *recorder.Recorder
}

// NewManager 创建装置管理器
func NewManager(l logger.Logger) *Manager {
	if l == nil {
		l = logger.NewNop()
	}
	return &Manager{
		taps: make(map[model.TapID]*Tap),
		envs: make(map[*page.Environment]model.TapID),
		log:  l,
	}
}

// AttachRecorder 附加持久化：之后创建的装置把记录异步落库
func (m *Manager) AttachRecorder(r *recorder.Recorder) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rec = r
}

// Start 在给定页面环境上创建并安装拦截装置
func (m *Manager) Start(env *page.Environment, cfg model.TapConfig) (*Tap, error) {
	if env == nil {
		return nil, fmt.Errorf("pagetap: nil page environment")
	}
	if env.NewRequester == nil || env.NewImage == nil {
		return nil, fmt.Errorf("pagetap: environment missing constructors")
	}

	m.mu.Lock()
	if _, ok := m.envs[env]; ok {
		m.mu.Unlock()
		return nil, fmt.Errorf("pagetap: environment already tapped")
	}

	id := model.TapID(uuid.New().String())
	b := bus.NewBus(cfg.SubscriberBuffer, m.log)
	eng := intercept.NewEngine(env, intercept.Options{Sink: b, Logger: m.log})

	t := &Tap{ID: id, env: env, eng: eng, bus: b}

	rec := m.rec
	m.taps[id] = t
	m.envs[env] = id
	m.mu.Unlock()

	if rec != nil {
		sub := b.Subscribe(0)
		t.wg.Add(1)
		go func() {
			defer t.wg.Done()
			for r := range sub.C {
				rec.Record(string(id), r)
			}
		}()
	}

	eng.Install()
	m.log.Info("创建拦截装置", "tapId", string(id), "origin", env.Location.Origin())
	return t, nil
}

// Get 获取装置
func (m *Manager) Get(id model.TapID) (*Tap, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.taps[id]
	return t, ok
}

// Stop 卸载并销毁装置，订阅通道随之关闭
func (m *Manager) Stop(id model.TapID) error {
	m.mu.Lock()
	t, ok := m.taps[id]
	if ok {
		delete(m.taps, id)
		delete(m.envs, t.env)
	}
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("pagetap: tap %s not found", id)
	}

	t.eng.Close()
	t.bus.Close()
	t.wg.Wait()
	m.log.Info("销毁拦截装置", "tapId", string(id))
	return nil
}

// List 返回所有装置信息
func (m *Manager) List() []model.TapInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()
	list := make([]model.TapInfo, 0, len(m.taps))
	for _, t := range m.taps {
		list = append(list, t.Info())
	}
	return list
}

// StopAll 销毁全部装置
func (m *Manager) StopAll() {
	m.mu.Lock()
	taps := make([]*Tap, 0, len(m.taps))
	for id, t := range m.taps {
		taps = append(taps, t)
		delete(m.taps, id)
		delete(m.envs, t.env)
	}
	m.mu.Unlock()

	for _, t := range taps {
		t.eng.Close()
		t.bus.Close()
		t.wg.Wait()
	}
	if len(taps) > 0 {
		m.log.Info("销毁全部拦截装置", "count", len(taps))
	}
}
