package recorder

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"

	"pagetap/internal/ctxkeys"
	"pagetap/internal/logger"
	"pagetap/pkg/model"
)

// Options 持久化选项
type Options struct {
	DSN          string   // sqlite 文件路径
	Prefix       string   // 表名前缀
	QueueSize    int      // 写入队列容量
	Redact       []string // 入库前置为 "[redacted]" 的 payload 路径
	ScrubHeaders []string // 头部名单，setRequestHeader 记录的值入库前抹除
	Logger       logger.Logger
}

// Recorder 拦截记录持久化：入队即返回，单写协程异步落库。
// 队列满时丢弃新记录并告警，绝不反压发布方。
type Recorder struct {
	db      *gorm.DB
	log     logger.Logger
	redact  []string
	headers []string

	queue chan job
	quit  chan struct{}
	once  sync.Once
	wg    sync.WaitGroup
}

type job struct {
	tapID string
	rec   model.Record
}

// Open 打开 sqlite 存储并完成迁移，随后启动写协程
func Open(opts Options) (*Recorder, error) {
	l := opts.Logger
	if l == nil {
		l = logger.NewNop()
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 256
	}

	db, err := gorm.Open(sqlite.Open(opts.DSN), &gorm.Config{
		Logger:         NewGormLogger(l),
		NamingStrategy: schema.NamingStrategy{TablePrefix: opts.Prefix},
	})
	if err != nil {
		return nil, fmt.Errorf("pagetap: open sqlite: %w", err)
	}
	if err := db.AutoMigrate(&RecordRow{}); err != nil {
		return nil, fmt.Errorf("pagetap: migrate: %w", err)
	}

	r := &Recorder{
		db:      db,
		log:     l,
		redact:  opts.Redact,
		headers: opts.ScrubHeaders,
		queue:   make(chan job, opts.QueueSize),
		quit:    make(chan struct{}),
	}
	r.wg.Add(1)
	go r.run()
	return r, nil
}

// Record 入队一条记录，满则丢弃
func (r *Recorder) Record(tapID string, rec model.Record) {
	select {
	case r.queue <- job{tapID: tapID, rec: rec}:
	default:
		r.log.Warn("写入队列已满，丢弃记录", "requestId", rec.RequestID, "type", string(rec.Type))
	}
}

// ByRequest 返回同一逻辑请求的全部记录，按写入序
func (r *Recorder) ByRequest(requestID string) ([]RecordRow, error) {
	var rows []RecordRow
	ctx := ctxkeys.WithTraceID(context.Background(), requestID)
	err := r.db.WithContext(ctx).Where("request_id = ?", requestID).Order("id asc").Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("pagetap: query by request: %w", err)
	}
	return rows, nil
}

// Recent 按写入倒序返回最近 limit 条记录
func (r *Recorder) Recent(limit int) ([]RecordRow, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []RecordRow
	err := r.db.Order("id desc").Limit(limit).Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("pagetap: query recent: %w", err)
	}
	return rows, nil
}

// CountByType 各阶段类型的入库条数
func (r *Recorder) CountByType() (map[string]int64, error) {
	type bucket struct {
		Type  string
		Count int64
	}
	var buckets []bucket
	err := r.db.Model(&RecordRow{}).
		Select("type, count(*) as count").
		Group("type").
		Find(&buckets).Error
	if err != nil {
		return nil, fmt.Errorf("pagetap: count by type: %w", err)
	}
	out := make(map[string]int64, len(buckets))
	for _, b := range buckets {
		out[b.Type] = b.Count
	}
	return out, nil
}

// Close 排空队列后关闭数据库，可重复调用
func (r *Recorder) Close() error {
	r.once.Do(func() {
		close(r.quit)
	})
	r.wg.Wait()
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (r *Recorder) run() {
	defer r.wg.Done()
	for {
		select {
		case j := <-r.queue:
			r.insert(j)
		case <-r.quit:
			for {
				select {
				case j := <-r.queue:
					r.insert(j)
				default:
					return
				}
			}
		}
	}
}

func (r *Recorder) insert(j job) {
	row, err := r.toRow(j.tapID, j.rec)
	if err != nil {
		r.log.Err(err, "序列化拦截记录失败", "requestId", j.rec.RequestID)
		return
	}
	// trace 标识取记录的关联键，SQL 日志可按逻辑请求串联
	ctx := ctxkeys.WithTraceID(context.Background(), j.rec.RequestID)
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		r.log.Err(err, "写入拦截记录失败", "requestId", j.rec.RequestID)
	}
}

// toRow 序列化并脱敏，再用 gjson 抽出查询列
func (r *Recorder) toRow(tapID string, rec model.Record) (RecordRow, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return RecordRow{}, err
	}
	payload := string(data)
	for _, path := range r.redact {
		if !gjson.Get(payload, path).Exists() {
			continue
		}
		payload, err = sjson.Set(payload, path, "[redacted]")
		if err != nil {
			r.log.Err(err, "脱敏失败", "path", path, "requestId", rec.RequestID)
		}
	}
	if rec.Type == model.PhaseSetRequestHeader && r.scrubHeader(gjson.Get(payload, "props.name").String()) {
		payload, err = sjson.Set(payload, "props.value", "[redacted]")
		if err != nil {
			r.log.Err(err, "脱敏失败", "path", "props.value", "requestId", rec.RequestID)
		}
	}

	ts := gjson.Get(payload, "props.timeStamp").Int()
	if ts == 0 {
		ts = time.Now().UnixMilli()
	}
	return RecordRow{
		TapID:      tapID,
		RequestID:  rec.RequestID,
		Type:       string(rec.Type),
		URL:        rec.URL,
		Method:     gjson.Get(payload, "props.method").String(),
		StatusCode: int(gjson.Get(payload, "props.statusCode").Int()),
		Timestamp:  ts,
		Payload:    payload,
	}, nil
}

// scrubHeader 头部名称是否在脱敏名单内，不区分大小写
func (r *Recorder) scrubHeader(name string) bool {
	for _, h := range r.headers {
		if strings.EqualFold(h, name) {
			return true
		}
	}
	return false
}
