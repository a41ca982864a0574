package sched

import "sync"

// Scheduler 延后执行：任务不得与提交调用同步运行
type Scheduler interface {
	Defer(fn func())
}

// Loop 生产调度器：单 goroutine 顺序消费任务队列
type Loop struct {
	tasks chan func()
	quit  chan struct{}
	once  sync.Once
	wg    sync.WaitGroup
}

// NewLoop 创建并启动调度循环，buffer 为任务队列容量
func NewLoop(buffer int) *Loop {
	if buffer <= 0 {
		buffer = 256
	}
	l := &Loop{
		tasks: make(chan func(), buffer),
		quit:  make(chan struct{}),
	}
	l.wg.Add(1)
	go l.run()
	return l
}

// Defer 提交任务；队列满时改由新 goroutine 执行，关闭后丢弃
func (l *Loop) Defer(fn func()) {
	select {
	case <-l.quit:
		return
	default:
	}
	select {
	case l.tasks <- fn:
	default:
		go fn()
	}
}

// Close 停止调度循环，排空剩余任务后返回，可重复调用
func (l *Loop) Close() {
	l.once.Do(func() {
		close(l.quit)
	})
	l.wg.Wait()
}

func (l *Loop) run() {
	defer l.wg.Done()
	for {
		select {
		case fn := <-l.tasks:
			fn()
		case <-l.quit:
			for {
				select {
				case fn := <-l.tasks:
					fn()
				default:
					return
				}
			}
		}
	}
}

// Manual 手动调度器：Defer 仅入队，Flush 显式排空，测试场景使用
type Manual struct {
	mu    sync.Mutex
	queue []func()
}

// NewManual 创建空的手动调度器
func NewManual() *Manual {
	return &Manual{}
}

// Defer 入队，不执行
func (m *Manual) Defer(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, fn)
}

// Pending 当前排队任务数
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}

// Flush 按入队顺序执行并清空当前任务，返回执行个数。
// 执行中新入队的任务留待下一次 Flush。
func (m *Manual) Flush() int {
	m.mu.Lock()
	tasks := m.queue
	m.queue = nil
	m.mu.Unlock()

	for _, fn := range tasks {
		fn()
	}
	return len(tasks)
}
