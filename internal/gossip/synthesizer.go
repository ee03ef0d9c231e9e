package gossip

import (
	"time"
)

// Synthesizer 把信号转换成八卦条目。
type Synthesizer struct {
	templates *TemplateSet
	rng       Random
	now       func() time.Time
}

// NewSynthesizer 创建合成器。rng 和 now 可注入，便于测试中断言具体的模板选择。
func NewSynthesizer(templates *TemplateSet, rng Random, now func() time.Time) *Synthesizer {
	if rng == nil {
		rng = NewTimeSeededRandom()
	}
	if now == nil {
		now = time.Now
	}
	return &Synthesizer{templates: templates, rng: rng, now: now}
}

// Synthesize 从信号的文本池中均匀随机地选取一条，生成一条匿名八卦。
// 未登记的信号使用默认文本与默认严重程度，不会出错。
func (s *Synthesizer) Synthesize(signal Signal) Item {
	pool := s.templates.poolOf(signal)
	at := s.now().UTC()
	return Item{
		Text:        pool[s.rng.IntN(len(pool))],
		SignalType:  signal,
		Severity:    s.templates.severityOf(signal),
		GeneratedAt: at,
		Edition:     EditionOf(at),
		Anonymous:   true,
	}
}

// SynthesizeAll 依次为每个信号生成一条八卦。
func (s *Synthesizer) SynthesizeAll(signals []Signal) []Item {
	items := make([]Item, 0, len(signals))
	for _, signal := range signals {
		items = append(items, s.Synthesize(signal))
	}
	return items
}
