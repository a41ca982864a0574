package service

import (
	"fmt"

	"pagetap/internal/logger"
	"pagetap/internal/recorder"
	"pagetap/pkg/model"
	"pagetap/pkg/page"
)

// App 对外服务实现，聚合装置管理器
type App struct {
	mgr *Manager
}

// NewApp 创建服务实现
func NewApp(l logger.Logger) *App {
	return &App{mgr: NewManager(l)}
}

// AttachRecorder 附加持久化
func (a *App) AttachRecorder(r *recorder.Recorder) {
	a.mgr.AttachRecorder(r)
}

// StartTap 在页面环境上安装拦截
func (a *App) StartTap(env *page.Environment, cfg model.TapConfig) (model.TapInfo, error) {
	t, err := a.mgr.Start(env, cfg)
	if err != nil {
		return model.TapInfo{}, err
	}
	return t.Info(), nil
}

// StopTap 卸载并销毁拦截装置
func (a *App) StopTap(id model.TapID) error {
	return a.mgr.Stop(id)
}

// PauseTap 暂停拦截
func (a *App) PauseTap(id model.TapID) error {
	t, ok := a.mgr.Get(id)
	if !ok {
		return fmt.Errorf("pagetap: tap %s not found", id)
	}
	t.Pause()
	return nil
}

// ResumeTap 恢复拦截
func (a *App) ResumeTap(id model.TapID) error {
	t, ok := a.mgr.Get(id)
	if !ok {
		return fmt.Errorf("pagetap: tap %s not found", id)
	}
	t.Resume()
	return nil
}

// ListTaps 列出全部装置
func (a *App) ListTaps() []model.TapInfo {
	return a.mgr.List()
}

// TapStats 发布统计
func (a *App) TapStats(id model.TapID) (model.TapStats, error) {
	t, ok := a.mgr.Get(id)
	if !ok {
		return model.TapStats{}, fmt.Errorf("pagetap: tap %s not found", id)
	}
	return t.Stats(), nil
}

// SubscribeRecords 订阅拦截记录流，返回取消函数，buffer 非正时取装置默认容量
func (a *App) SubscribeRecords(id model.TapID, buffer int) (<-chan model.Record, func(), error) {
	t, ok := a.mgr.Get(id)
	if !ok {
		return nil, nil, fmt.Errorf("pagetap: tap %s not found", id)
	}
	sub := t.Subscribe(buffer)
	return sub.C, sub.Close, nil
}

// Shutdown 销毁全部装置
func (a *App) Shutdown() {
	a.mgr.StopAll()
}
