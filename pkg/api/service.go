package api

import (
	"pagetap/internal/logger"
	"pagetap/internal/recorder"
	"pagetap/internal/service"
	"pagetap/pkg/model"
	"pagetap/pkg/page"
)

// Service 服务接口
type Service interface {
	// StartTap 在页面环境上安装拦截
	StartTap(env *page.Environment, cfg model.TapConfig) (model.TapInfo, error)

	// StopTap 卸载并销毁拦截装置
	StopTap(id model.TapID) error

	// PauseTap 暂停拦截，环境构造器恢复原始实现
	PauseTap(id model.TapID) error

	// ResumeTap 恢复拦截
	ResumeTap(id model.TapID) error

	// ListTaps 列出全部装置
	ListTaps() []model.TapInfo

	// TapStats 获取发布统计
	TapStats(id model.TapID) (model.TapStats, error)

	// SubscribeRecords 订阅拦截记录流，返回取消函数，buffer 非正时取装置默认容量
	SubscribeRecords(id model.TapID, buffer int) (<-chan model.Record, func(), error)

	// Shutdown 销毁全部装置
	Shutdown()
}

// Options 服务选项
type Options struct {
	Logger   logger.Logger
	Recorder *recorder.Recorder
}

// NewService 创建并返回服务接口实现
func NewService(l logger.Logger) Service {
	return service.NewApp(l)
}

// NewServiceWith 按选项创建服务实现，可附加持久化
func NewServiceWith(opts Options) Service {
	app := service.NewApp(opts.Logger)
	if opts.Recorder != nil {
		app.AttachRecorder(opts.Recorder)
	}
	return app
}
