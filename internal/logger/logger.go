package logger

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

// Logger 统一日志接口，附加字段以键值对成对传入
type Logger interface {
	Debug(msg string, kv ...any)
	Info(msg string, kv ...any)
	Warn(msg string, kv ...any)
	Error(msg string, kv ...any)
	Err(err error, msg string, kv ...any)
}

// Options 日志选项
type Options struct {
	Level      string // debug/info/warn/error，空值按 info 处理
	File       string // 为空时输出到 stderr
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Console    bool // 写文件的同时输出控制台
}

// New 创建 zerolog 日志器，配置文件路径时经 lumberjack 滚动
func New(opts Options) Logger {
	var writers []io.Writer
	if opts.File != "" {
		writers = append(writers, &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    orDefault(opts.MaxSizeMB, 50),
			MaxBackups: orDefault(opts.MaxBackups, 3),
			MaxAge:     orDefault(opts.MaxAgeDays, 7),
			Compress:   true,
		})
		if opts.Console {
			writers = append(writers, zerolog.ConsoleWriter{Out: os.Stderr})
		}
	} else {
		writers = append(writers, zerolog.ConsoleWriter{Out: os.Stderr})
	}
	zl := zerolog.New(io.MultiWriter(writers...)).
		Level(parseLevel(opts.Level)).
		With().Timestamp().Logger()
	return &zeroLogger{zl: zl}
}

type zeroLogger struct {
	zl zerolog.Logger
}

func (z *zeroLogger) Debug(msg string, kv ...any) { emit(z.zl.Debug(), msg, kv) }
func (z *zeroLogger) Info(msg string, kv ...any)  { emit(z.zl.Info(), msg, kv) }
func (z *zeroLogger) Warn(msg string, kv ...any)  { emit(z.zl.Warn(), msg, kv) }
func (z *zeroLogger) Error(msg string, kv ...any) { emit(z.zl.Error(), msg, kv) }

func (z *zeroLogger) Err(err error, msg string, kv ...any) {
	emit(z.zl.Error().Err(err), msg, kv)
}

func emit(ev *zerolog.Event, msg string, kv []any) {
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			key = fmt.Sprint(kv[i])
		}
		ev = ev.Interface(key, kv[i+1])
	}
	ev.Msg(msg)
}

func parseLevel(s string) zerolog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

type nopLogger struct{}

// NewNop 返回丢弃全部输出的日志器
func NewNop() Logger { return nopLogger{} }

func (nopLogger) Debug(string, ...any)      {}
func (nopLogger) Info(string, ...any)       {}
func (nopLogger) Warn(string, ...any)       {}
func (nopLogger) Error(string, ...any)      {}
func (nopLogger) Err(error, string, ...any) {}
