package gossip

import (
	"math/rand/v2"
	"sync"
	"time"
)

// Random 是流水线使用的随机源，模板选择和洗牌都经由它完成。
type Random interface {
	IntN(n int) int
	Shuffle(n int, swap func(i, j int))
}

// lockedRand 让一个 *rand.Rand 可以被定时任务和HTTP请求并发使用。
type lockedRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

// NewRandom 用给定种子创建随机源，相同种子产生相同序列。
func NewRandom(seed1, seed2 uint64) Random {
	return &lockedRand{r: rand.New(rand.NewPCG(seed1, seed2))}
}

// NewTimeSeededRandom 以当前时间为种子创建随机源。
func NewTimeSeededRandom() Random {
	now := uint64(time.Now().UnixNano())
	return NewRandom(now, now>>17|now<<47)
}

func (l *lockedRand) IntN(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.IntN(n)
}

func (l *lockedRand) Shuffle(n int, swap func(i, j int)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.r.Shuffle(n, swap)
}
