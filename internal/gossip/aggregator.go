package gossip

import (
	"encoding/json"
	"time"

	"github.com/Marwakhot/chronicles/internal/platform/config"
	"github.com/Marwakhot/chronicles/internal/progress"
)

// Slot 是抽象的特质槽位编号。
type Slot int

const (
	Slot1 Slot = iota // 惯例上是 忠诚/责任
	Slot2             // 惯例上是 同情/道德
	Slot3             // 惯例上是 生存/私利

	NumSlots = 3
)

// NeutralMean 是没有任何数据的槽位报告的均值。
const NeutralMean = 50.0

// SlotScore 是单个槽位的统计结果。
type SlotScore struct {
	Mean  float64
	Count int // 贡献了至少一个数值的进度记录数
}

// TraitProfile 是 Aggregator 对一个用户全部进度记录的汇总。
type TraitProfile struct {
	Slots [NumSlots]SlotScore

	// LatestUpdate 和 PreviousUpdate 是最近两次进度更新的时间，包括同一故事被覆盖前的那次更新。
	// 不足两次更新时 PreviousUpdate 为零值。
	LatestUpdate   time.Time
	PreviousUpdate time.Time
}

// observe 把一次更新时间计入最近两次的记录，相同的时间只算一次。
func (p *TraitProfile) observe(t time.Time) {
	switch {
	case t.IsZero() || t.Equal(p.LatestUpdate):
	case t.After(p.LatestUpdate):
		p.PreviousUpdate = p.LatestUpdate
		p.LatestUpdate = t
	case t.After(p.PreviousUpdate):
		p.PreviousUpdate = t
	}
}

// Score 返回某个槽位的统计结果。
func (p TraitProfile) Score(s Slot) SlotScore {
	return p.Slots[s]
}

// Aggregator 根据别名表把各故事的特质字段归并到三个槽位上。
type Aggregator struct {
	aliases [NumSlots][]string
}

// NewAggregator 用配置中的别名表创建 Aggregator。
func NewAggregator(cfg config.AliasConfig) *Aggregator {
	return &Aggregator{aliases: [NumSlots][]string{cfg.Slot1, cfg.Slot2, cfg.Slot3}}
}

// Aggregate 计算每个槽位在全部记录上的算术平均值。
// 数值不做范围校验或截断；没有数据的槽位均值为 NeutralMean、计数为0。
func (a *Aggregator) Aggregate(records []progress.Record) TraitProfile {
	var profile TraitProfile
	var sums [NumSlots]float64
	var samples [NumSlots]int

	for i := range records {
		rec := &records[i]
		for slot, aliases := range a.aliases {
			contributed := false
			for _, alias := range aliases {
				raw, ok := rec.TraitDeltas[alias]
				if !ok {
					continue
				}
				v, ok := numericValue(raw)
				if !ok {
					continue
				}
				sums[slot] += v
				samples[slot]++
				contributed = true
			}
			if contributed {
				profile.Slots[slot].Count++
			}
		}

		profile.observe(rec.LastUpdatedAt)
		if rec.PreviousUpdatedAt != nil {
			profile.observe(*rec.PreviousUpdatedAt)
		}
	}

	for slot := range profile.Slots {
		if samples[slot] == 0 {
			profile.Slots[slot].Mean = NeutralMean
			continue
		}
		profile.Slots[slot].Mean = sums[slot] / float64(samples[slot])
	}
	return profile
}

// numericValue 取出JSON字段中的数值，非数值类型一律忽略。
func numericValue(raw interface{}) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
