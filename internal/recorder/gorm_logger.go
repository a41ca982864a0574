package recorder

import (
	"context"
	"time"

	glogger "gorm.io/gorm/logger"

	"pagetap/internal/ctxkeys"
	"pagetap/internal/logger"
)

// 超过该耗时的 SQL 按慢查询告警
const slowThreshold = time.Second

// GormLogger 把 gorm 的日志桥接到本模块的 Logger，
// 每条输出都带上 context 中的 trace 标识
type GormLogger struct {
	logger.Logger
	Level glogger.LogLevel
}

// NewGormLogger 缺省只输出告警及以上
func NewGormLogger(l logger.Logger) *GormLogger {
	return &GormLogger{Logger: l, Level: glogger.Warn}
}

// LogMode 按 gorm 的约定返回调级后的副本
func (l *GormLogger) LogMode(level glogger.LogLevel) glogger.Interface {
	clone := *l
	clone.Level = level
	return &clone
}

func (l *GormLogger) Info(ctx context.Context, msg string, data ...any) {
	if l.Level >= glogger.Info {
		l.Logger.Info(msg, append([]any{"traceId", ctxkeys.TraceID(ctx)}, data...)...)
	}
}

func (l *GormLogger) Warn(ctx context.Context, msg string, data ...any) {
	if l.Level >= glogger.Warn {
		l.Logger.Warn(msg, append([]any{"traceId", ctxkeys.TraceID(ctx)}, data...)...)
	}
}

func (l *GormLogger) Error(ctx context.Context, msg string, data ...any) {
	if l.Level >= glogger.Error {
		l.Logger.Error(msg, append([]any{"traceId", ctxkeys.TraceID(ctx)}, data...)...)
	}
}

// Trace 记录单条 SQL：失败走错误日志，慢查询告警，Info 级别下全量输出
func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.Level <= glogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	sql, rows := fc()
	fields := []any{
		"traceId", ctxkeys.TraceID(ctx),
		"sql", sql,
		"rows", rows,
		"elapsedMs", float64(elapsed.Nanoseconds()) / 1e6,
	}

	switch {
	case err != nil && l.Level >= glogger.Error:
		l.Logger.Error("SQL 执行失败", append(fields, "error", err)...)
	case elapsed > slowThreshold && l.Level >= glogger.Warn:
		l.Logger.Warn("SQL 慢查询", fields...)
	case l.Level == glogger.Info:
		l.Logger.Debug("SQL 执行", fields...)
	}
}
