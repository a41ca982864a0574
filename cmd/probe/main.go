package main

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/spf13/pflag"

	"pagetap/internal/config"
	"pagetap/internal/logger"
	"pagetap/internal/recorder"
	"pagetap/pkg/api"
	"pagetap/pkg/model"
	"pagetap/pkg/page"
)

// main 命令行探针入口：安装拦截后发起一次请求，
// 把观测到的记录逐行打印为 JSON
func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath string
		origin     string
		target     string
		method     string
		headers    []string
		body       string
		pixel      string
		demo       bool
		dbPath     string
		noDB       bool
		logLevel   string
		verbose    bool
		timeout    time.Duration
	)

	flagSet := pflag.NewFlagSet("pagetap-probe", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "YAML 配置文件路径")
	flagSet.StringVar(&origin, "origin", "", "页面源，如 https://shop.example.com（覆盖配置）")
	flagSet.StringVar(&target, "target", "", "请求目标，绝对或相对地址（覆盖配置）")
	flagSet.StringVar(&method, "method", "GET", "请求方法")
	flagSet.StringArrayVar(&headers, "header", nil, "请求头 name:value，可重复")
	flagSet.StringVar(&body, "body", "", "请求体文本")
	flagSet.StringVar(&pixel, "pixel", "", "追加写入一次追踪像素 src")
	flagSet.BoolVar(&demo, "demo", false, "启动内置演示服务并以它为页面源")
	flagSet.StringVar(&dbPath, "db", "", "sqlite 文件路径（覆盖配置）")
	flagSet.BoolVar(&noDB, "no-db", false, "关闭记录持久化")
	flagSet.StringVar(&logLevel, "log-level", "", "日志级别（覆盖配置）")
	flagSet.BoolVarP(&verbose, "verbose", "v", false, "调试级别日志并输出到控制台")
	flagSet.DurationVar(&timeout, "timeout", 10*time.Second, "请求超时")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}

	cfg := config.NewConfig()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if target == "" {
		target = cfg.Probe.Target
	}
	if origin != "" {
		proto, host, ok := strings.Cut(origin, "://")
		if !ok {
			return fmt.Errorf("pagetap: invalid origin %q", origin)
		}
		cfg.Page.Protocol = proto
		cfg.Page.Host = host
	}
	if demo {
		ln, err := net.Listen("tcp", cfg.Probe.Listen)
		if err != nil {
			return fmt.Errorf("pagetap: demo listen: %w", err)
		}
		srv := demoServer()
		go srv.Serve(ln)
		defer srv.Close()
		cfg.Page.Protocol = "http"
		cfg.Page.Host = ln.Addr().String()
		if pixel == "" {
			pixel = "/pixel.gif"
		}
	}

	logOpts := loggerOptions(cfg)
	if verbose {
		logOpts.Level = "debug"
		logOpts.Console = true
	}
	l := logger.New(logOpts)

	var rec *recorder.Recorder
	if !noDB {
		dsn := cfg.Sqlite.Dsn
		if dbPath != "" {
			dsn = dbPath
		}
		var err error
		rec, err = recorder.Open(recorder.Options{
			DSN:          dsn,
			Prefix:       cfg.Sqlite.Prefix,
			QueueSize:    cfg.Record.QueueSize,
			Redact:       cfg.Scrub.BodyFields,
			ScrubHeaders: cfg.Scrub.Headers,
			Logger:       l,
		})
		if err != nil {
			return err
		}
		defer rec.Close()
	}

	svc := api.NewServiceWith(api.Options{Logger: l, Recorder: rec})
	defer svc.Shutdown()

	loc := page.Location{Protocol: cfg.Page.Protocol, Host: cfg.Page.Host}
	env := page.NewEnvironment(loc, &http.Client{Timeout: timeout})

	info, err := svc.StartTap(env, model.TapConfig{SubscriberBuffer: cfg.Bus.SubscriberBuffer})
	if err != nil {
		return err
	}
	l.Info("探针就绪", "tapId", string(info.ID), "origin", info.Origin)

	ch, cancel, err := svc.SubscribeRecords(info.ID, 0)
	if err != nil {
		return err
	}
	defer cancel()

	var printer sync.WaitGroup
	printer.Add(1)
	go func() {
		defer printer.Done()
		for record := range ch {
			line, err := json.Marshal(record)
			if err != nil {
				l.Err(err, "序列化记录失败", "requestId", record.RequestID)
				continue
			}
			fmt.Println(string(line))
		}
	}()

	if err := probe(env, target, method, headers, body, timeout); err != nil {
		l.Err(err, "请求执行失败", "url", target)
	}

	if pixel != "" {
		env.NewImage().SetSrc(pixel)
		// tracking 记录延后一拍发布，等它落地
		time.Sleep(200 * time.Millisecond)
	}

	if stats, err := svc.TapStats(info.ID); err == nil {
		l.Info("发布统计", "total", stats.Total, "byType", stats.ByType)
	}

	if err := svc.StopTap(info.ID); err != nil {
		return err
	}
	printer.Wait()
	return nil
}

// probe 通过被包装的构造器走一次完整请求生命周期
func probe(env *page.Environment, target, method string, headers []string, body string, timeout time.Duration) error {
	r := env.NewRequester()

	done := make(chan struct{})
	var once sync.Once
	r.OnReadyStateChange(func() {
		if r.ReadyState() == page.ReadyStateDone {
			once.Do(func() { close(done) })
		}
	})

	if err := r.Open(method, target); err != nil {
		return err
	}
	for _, h := range headers {
		name, value, ok := strings.Cut(h, ":")
		if !ok {
			return fmt.Errorf("pagetap: invalid header %q", h)
		}
		r.SetRequestHeader(strings.TrimSpace(name), strings.TrimSpace(value))
	}

	var payload any
	if body != "" {
		payload = body
	}
	if err := r.Send(payload); err != nil {
		return err
	}

	select {
	case <-done:
	case <-time.After(timeout):
		return fmt.Errorf("pagetap: request timed out after %s", timeout)
	}
	return nil
}

func loggerOptions(cfg *config.Config) logger.Options {
	opts := logger.Options{Level: cfg.Log.Level}
	for _, w := range cfg.Log.Writer {
		switch w {
		case "file":
			opts.File = cfg.Log.File
		case "console":
			opts.Console = true
		}
	}
	return opts
}

// gifPixel 1x1 透明 GIF
var gifPixel = []byte{
	0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0x01, 0x00, 0x01, 0x00, 0x80, 0x00,
	0x00, 0x00, 0x00, 0x00, 0xff, 0xff, 0xff, 0x21, 0xf9, 0x04, 0x01, 0x00,
	0x00, 0x00, 0x00, 0x2c, 0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x01, 0x00,
	0x00, 0x02, 0x02, 0x44, 0x01, 0x00, 0x3b,
}

// demoServer 内置演示服务：一个 JSON 接口加一枚追踪像素
func demoServer() *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/items", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"items":[{"id":1,"name":"demo"}]}`)
	})
	mux.HandleFunc("/pixel.gif", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "image/gif")
		w.Write(gifPixel)
	})
	return &http.Server{Handler: mux}
}
