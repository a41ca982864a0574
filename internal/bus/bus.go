package bus

import (
	"sync"

	"github.com/google/uuid"

	"pagetap/internal/logger"
	"pagetap/pkg/model"
)

// Sink 拦截记录的接收端
type Sink interface {
	Publish(rec model.Record)
}

// Subscription 一路订阅：C 上接收记录，Close 退订并关闭通道
type Subscription struct {
	ID string
	C  <-chan model.Record

	bus *Bus
}

// Close 退订，通道随之关闭
func (s *Subscription) Close() {
	if s.bus != nil {
		s.bus.unsubscribe(s.ID)
	}
}

// Bus 进程内广播总线。Publish 同步扇出到全部订阅者；
// 某路通道已满时丢弃该路的本条记录，发布方永不阻塞。
type Bus struct {
	mu     sync.Mutex
	subs   map[string]chan model.Record
	buffer int
	closed bool
	log    logger.Logger

	total  int64
	byType map[model.PhaseType]int64
}

// NewBus 创建广播总线，buffer 为每路订阅通道的容量
func NewBus(buffer int, l logger.Logger) *Bus {
	if l == nil {
		l = logger.NewNop()
	}
	if buffer <= 0 {
		buffer = 64
	}
	return &Bus{
		subs:   make(map[string]chan model.Record),
		buffer: buffer,
		log:    l,
		byType: make(map[model.PhaseType]int64),
	}
}

// Publish 广播一条记录，总线关闭后为空操作
func (b *Bus) Publish(rec model.Record) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.total++
	b.byType[rec.Type]++
	for id, ch := range b.subs {
		select {
		case ch <- rec:
		default:
			b.log.Warn("订阅通道已满，丢弃本条记录", "sub", id, "type", string(rec.Type), "requestId", rec.RequestID)
		}
	}
}

// Subscribe 注册一路订阅，buffer 非正时取总线默认容量；
// 总线已关闭时返回已关闭的通道
func (b *Bus) Subscribe(buffer int) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	if buffer <= 0 {
		buffer = b.buffer
	}
	ch := make(chan model.Record, buffer)
	id := uuid.New().String()
	if b.closed {
		close(ch)
		return &Subscription{ID: id, C: ch}
	}
	b.subs[id] = ch
	b.log.Debug("新增订阅", "sub", id)
	return &Subscription{ID: id, C: ch, bus: b}
}

// SubscriberCount 当前订阅数
func (b *Bus) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Stats 发布计数快照
func (b *Bus) Stats() model.TapStats {
	b.mu.Lock()
	defer b.mu.Unlock()
	byType := make(map[model.PhaseType]int64, len(b.byType))
	for k, v := range b.byType {
		byType[k] = v
	}
	return model.TapStats{Total: b.total, ByType: byType}
}

// Close 关闭总线并断开全部订阅，可重复调用
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		close(ch)
		delete(b.subs, id)
	}
}

func (b *Bus) unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch, ok := b.subs[id]
	if !ok {
		return
	}
	delete(b.subs, id)
	close(ch)
	b.log.Debug("订阅退出", "sub", id)
}
