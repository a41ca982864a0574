package ids

import (
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Source 标识源：为每个逻辑请求产出一个 UUIDv4 形状的字符串
type Source interface {
	NewID() string
}

// 进程级源按启动时刻播种，标识只作关联键，不做加密用途
var procSource = NewSeeded(time.Now().UnixNano())

// Random 进程级随机源
type Random struct{}

// NewID 生成一个随机标识
func (Random) NewID() string {
	return procSource.NewID()
}

// Seeded 可复现标识源：固定种子驱动 uuid 生成，测试场景使用
type Seeded struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSeeded 以给定种子创建可复现标识源
func NewSeeded(seed int64) *Seeded {
	return &Seeded{rng: rand.New(rand.NewSource(seed))}
}

// NewID 生成序列中的下一个标识
func (s *Seeded) NewID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, err := uuid.NewRandomFromReader(randReader{s.rng})
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}

type randReader struct {
	rng *rand.Rand
}

func (r randReader) Read(p []byte) (int, error) {
	return r.rng.Read(p)
}
