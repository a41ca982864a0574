package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config 配置文件结构体
type Config struct {
	Version string `yaml:"version"`

	Page struct {
		Protocol string `yaml:"protocol"`
		Host     string `yaml:"host"`
	} `yaml:"page"`

	Bus struct {
		SubscriberBuffer int `yaml:"subscriber_buffer"`
	} `yaml:"bus"`

	Sqlite struct {
		Dsn    string `yaml:"dsn"`
		Prefix string `yaml:"prefix"`
	} `yaml:"sqlite"`

	Record struct {
		QueueSize int `yaml:"queue_size"`
	} `yaml:"record"`

	// Scrub 入库脱敏：Headers 按头部名匹配，BodyFields 是 payload 的
	// JSON 路径（如 props.requestBody）
	Scrub struct {
		Headers    []string `yaml:"headers"`
		BodyFields []string `yaml:"body_fields"`
	} `yaml:"scrub"`

	Probe struct {
		Target string `yaml:"target"`
		Listen string `yaml:"listen"`
	} `yaml:"probe"`

	Log struct {
		Level  string   `yaml:"level"`
		File   string   `yaml:"file"`
		Writer []string `yaml:"writer"`
	} `yaml:"log"`
}

// NewConfig 创建默认配置
func NewConfig() *Config {
	c := &Config{Version: "1.0.0"}
	c.Page.Protocol = "https"
	c.Page.Host = "localhost"
	c.Bus.SubscriberBuffer = 64
	c.Sqlite.Dsn = "db.sqlite3"
	c.Sqlite.Prefix = "pagetap_"
	c.Record.QueueSize = 256
	c.Scrub.Headers = []string{"authorization", "cookie"}
	c.Probe.Target = "/api/items"
	c.Probe.Listen = "127.0.0.1:0"
	c.Log.Level = "debug"
	c.Log.File = "pagetap.log"
	c.Log.Writer = []string{"console", "file"}
	return c
}

// Load 读取 YAML 配置文件，缺省项回落到默认值
func Load(path string) (*Config, error) {
	cfg := NewConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("pagetap: read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("pagetap: parse config: %w", err)
	}
	return cfg, nil
}
